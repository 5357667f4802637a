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

// Package channel implements the bounded, re-usable byte source and sink
// shared by every exchange on a connection.
//
// Reader hands out read-only View windows to successive parsers and the
// request body, and survives dismissal so the next exchange's first parser
// can resume exactly where the previous one stopped — including bytes that
// were spuriously read ahead of a message boundary (HTTP pipelining).
//
// Writer is the sequential sink: it applies the response framer
// (package framer) to each response, runs after-actions, and serializes the
// framed head and body onto the connection.
package channel
