// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package headparse implements the request-line and header state machines
// that consume bytes one at a time from a channel.Reader, under a
// configured head-size budget, producing the pieces the exchange
// orchestrator assembles into an httpengine.Request.
//
// Both parsers are plain functions: each call builds its own small cursor
// over the reader, and no parser state is kept between calls.
package headparse
