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

package headparse

import (
	"errors"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
)

// errEOS is returned internally by cursor.next when the channel reports
// end-of-stream with no bytes delivered for the component being parsed.
var errEOS = errors.New("headparse: end of stream")

// cursor pulls one byte at a time out of a channel.Reader, crossing View
// boundaries transparently by calling Next again as each View is drained.
// Both parsers in this package share this shape.
type cursor struct {
	r    *channel.Reader
	view channel.View
	have bool
}

func newCursor(r *channel.Reader) *cursor { return &cursor{r: r} }

// next returns the next byte off the reader, calling through to the
// channel for more data as needed.
func (c *cursor) next() (byte, error) {
	for {
		if c.have {
			if c.view.Remaining() > 0 {
				return c.view.ReadByte()
			}
			c.have = false
		}
		v, err := c.r.Next()
		if err != nil {
			if errors.Is(err, channel.ErrExhausted) {
				return 0, errEOS
			}
			return 0, httpengine.NewError(httpengine.KindReadFailed, err)
		}
		if v.EOS() {
			return 0, errEOS
		}
		c.view = v
		c.have = true
	}
}
