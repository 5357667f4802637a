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

// Package exchange drives one HTTP exchange end to end: parse the
// request-line and headers off a httpengine/channel.Reader under the
// head-size budget, validate protocol version and method/body legality,
// resolve a route match, run before-actions then the handler then
// after-actions, and hand the response to a httpengine/channel.Writer.
// Errors at any step are classified (package httpengine's Kind) and run
// through an application-supplied recovery chain before falling back to
// a default handler.
//
// One Exchange is used for exactly one request/response cycle; the
// connection loop constructs a fresh Exchange (reusing the reader/writer
// per design §4.G.9) for the next pipelined request.
package exchange
