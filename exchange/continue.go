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

package exchange

import "github.com/inboundhq/httpengine"

// lazyContinueBody defers sending "100 Continue" until the handler
// actually reads the body, per spec §4.G.6's non-eager mode (as opposed
// to ImmediatelyContinueExpect100, which sends it ahead of routing).
type lazyContinueBody struct {
	httpengine.BodySource
	send func() error
	sent bool
}

func withLazyContinue(body httpengine.BodySource, send func() error) httpengine.BodySource {
	return &lazyContinueBody{BodySource: body, send: send}
}

func (b *lazyContinueBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		if err := b.send(); err != nil {
			return 0, err
		}
	}
	return b.BodySource.Read(p)
}
