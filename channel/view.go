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

package channel

import "errors"

// ErrEmptyView is returned by ReadByte and Advance when the view has no
// remaining bytes; callers obtain more by calling Reader.Next again.
var ErrEmptyView = errors.New("channel: view exhausted")

// View is a read-only window into a Reader's backing buffer, returned by
// Next. It is valid only until the next call to Next on the same Reader:
// callers that need to retain bytes past that point must copy them out
// (e.g. headparse accumulates matched bytes into its own strings.Builder).
type View struct {
	r   *Reader
	eos bool
}

// EOS reports whether this View represents end-of-stream: an empty window
// returned after the underlying Source reported io.EOF on an UNLIMITED
// reader (spec §4.C).
func (v View) EOS() bool { return v.eos }

// Remaining reports how many unconsumed bytes this view currently exposes.
func (v View) Remaining() int {
	if v.r == nil {
		return 0
	}
	return v.r.viewEnd - v.r.viewStart
}

// Bytes returns the unconsumed bytes of the view. The returned slice
// aliases the Reader's backing buffer and is invalidated by the next call
// to Next, Limit, or Reset.
func (v View) Bytes() []byte {
	if v.r == nil {
		return nil
	}
	return v.r.buf[v.r.viewStart:v.r.viewEnd]
}

// Peek returns up to n unconsumed bytes without advancing the view.
func (v View) Peek(n int) []byte {
	b := v.Bytes()
	if n < len(b) {
		return b[:n]
	}
	return b
}

// Advance consumes n bytes from the front of the view.
func (v View) Advance(n int) error {
	if v.r == nil || n > v.Remaining() {
		return ErrEmptyView
	}
	v.r.viewStart += n
	return nil
}

// ReadByte consumes and returns the next unconsumed byte of the view.
func (v View) ReadByte() (byte, error) {
	if v.Remaining() == 0 {
		return 0, ErrEmptyView
	}
	b := v.r.buf[v.r.viewStart]
	v.r.viewStart++
	return b, nil
}
