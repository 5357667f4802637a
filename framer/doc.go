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

// Package framer applies RFC 7230 §3.3 message-framing rules to a response
// immediately before it is written: deciding between Content-Length and
// chunked Transfer-Encoding, propagating Connection: close, tracking
// consecutive unsuccessful responses toward a forced channel close, and
// rejecting header/body combinations the RFC forbids.
//
// Apply updates the response it is given in place (it adds framing and
// Connection headers, and drops trailers a pre-1.1 client cannot take);
// all cross-response state (has any response on this connection carried
// Connection: close? how many consecutive 4xx/5xx?) lives in a ConnState
// the caller (httpengine/channel.Writer) owns for the lifetime of the
// connection.
package framer
