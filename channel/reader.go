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

import (
	"errors"
	"io"
	"math"
)

// DefaultBufferSize is the fixed capacity of a Reader's backing buffer.
// 512 bytes matches a common stdlib default (bufio's minimum read size);
// tune via NewReaderSize for workloads with larger head sections.
const DefaultBufferSize = 512

// LengthUnknown is the sentinel Length returns for an UNLIMITED reader.
const LengthUnknown int64 = -1

// Errors returned by Reader.Next and the lifecycle methods. These are
// protocol-level iterator signals, distinct from httpengine.Kind: a caller
// that gets ErrExhausted or ErrDismissed decides for itself whether that is
// fatal (it usually is, via httpengine.NewError).
var (
	// ErrDismissed is returned when an operation is attempted on a
	// dismissed Reader or Writer.
	ErrDismissed = errors.New("channel: dismissed")
	// ErrExhausted is returned by Next when EOS has already been observed
	// or the configured limit has already been exhausted.
	ErrExhausted = errors.New("channel: no more bytes available")
	// ErrNotEmpty is returned by Reset when the reader still has
	// unconsumed or undelivered bytes.
	ErrNotEmpty = errors.New("channel: reader is not empty")
	// ErrNotLimited is returned by Reset on an UNLIMITED reader.
	ErrNotLimited = errors.New("channel: reader is not limited")
)

type desireKind uint8

const (
	desireUnlimited desireKind = iota
	desireLimited
	desireDismissed
)

// ByteCounter receives the count of bytes a Reader has pulled off the
// underlying Source, or a Writer has pushed onto the underlying Sink.
// Nothing in this module attaches one by default (the exchange reports
// sizes to httpengine.Metrics itself); nil is a valid no-op counter.
type ByteCounter interface {
	Add(n int)
}

// Reader is a bounded, re-usable byte source. One Reader exists per
// exchange; Dismiss followed by NewReader hands the unconsumed tail of the
// connection's backing buffer to the successor exchange without copying.
//
// Reader is not safe for concurrent use: the design confines all operations
// on a connection's reader to that connection's single thread (design §5).
type Reader struct {
	src Source
	buf []byte // fixed-capacity backing storage

	bufEnd int // bytes of valid data currently sitting in buf, from index 0
	viewStart,
	viewEnd int // the window of buf already exposed to, but not yet consumed by, the current iteration

	kind      desireKind
	remaining int64 // remaining bytes the reader may yield; valid when kind == desireLimited

	eosSeen    bool
	dismissed  bool
	shutReason error // set once ShutdownRead has been issued, for diagnostics

	counter ByteCounter
}

// NewReader constructs the first Reader for a connection: empty, UNLIMITED,
// and positioned so the first call to Next performs a real read.
func NewReader(src Source) *Reader {
	return NewReaderSize(src, DefaultBufferSize)
}

// NewReaderSize is NewReader with an explicit buffer capacity.
func NewReaderSize(src Source, size int) *Reader {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reader{src: src, buf: make([]byte, size)}
}

// SetByteCounter attaches a counter that observes every successful read
// from the underlying Source. Intended for metrics wiring; see
// httpengine.Metrics.
func (r *Reader) SetByteCounter(c ByteCounter) { r.counter = c }

// Limit caps the total number of bytes any future call to Next will yield,
// across all iterations, to n. A prior unlimited read may already have
// buffered (and exposed, via the current view) bytes belonging to whatever
// follows the limited region (e.g. a pipelined next request read in the
// same socket read as this one's body); that excess is pushed back out of
// the view and left buffered for the reader that eventually takes over
// again, so the limited region cannot out-yield n.
func (r *Reader) Limit(n int64) error {
	if r.dismissed {
		return ErrDismissed
	}
	if n < 0 {
		n = 0
	}
	r.kind = desireLimited
	r.remaining = n

	if already := int64(r.viewEnd - r.viewStart); already > 0 {
		if already > r.remaining {
			already = r.remaining
		}
		r.viewEnd = r.viewStart + int(already)
		r.remaining -= already
	}
	return nil
}

// Unlimited reports whether the reader currently has no read cap.
func (r *Reader) Unlimited() bool { return r.kind == desireUnlimited }

// Reset returns a limited, empty reader to UNLIMITED. It is an error to
// call Reset on a reader that is not empty, or one that is not currently
// limited.
func (r *Reader) Reset() error {
	if r.dismissed {
		return ErrDismissed
	}
	if r.kind != desireLimited {
		return ErrNotLimited
	}
	if !r.IsEmpty() {
		return ErrNotEmpty
	}
	r.kind = desireUnlimited
	r.remaining = 0
	return nil
}

// IsEmpty reports whether the reader has nothing left to give: the current
// view has no remaining bytes, and either the limited desire has been
// exhausted or end-of-stream has been observed.
func (r *Reader) IsEmpty() bool {
	if r.viewEnd > r.viewStart {
		return false
	}
	if r.eosSeen {
		return true
	}
	return r.kind == desireLimited && r.remaining == 0
}

// Length reports how many more bytes the reader is certain (or permitted)
// to yield: 0 once EOS has been seen or the reader is dismissed,
// LengthUnknown while UNLIMITED, otherwise the sum of what is already
// buffered and what remains under the limit, saturating on overflow.
func (r *Reader) Length() int64 {
	if r.dismissed || r.eosSeen {
		return 0
	}
	if r.kind == desireUnlimited {
		return LengthUnknown
	}
	buffered := int64(r.viewEnd - r.viewStart)
	total := buffered + r.remaining
	if total < buffered { // overflow
		return math.MaxInt64
	}
	return total
}

// Next returns the current or next byte window. See the package doc and
// design §4.C for the full state machine; in short:
//
//  1. dismissed               -> ErrDismissed
//  2. outstanding view bytes  -> that view, unchanged
//  3. EOS seen or limit == 0  -> ErrExhausted
//  4. more already-buffered bytes than the view currently exposes
//     (held back by a previous desire cap) -> extend the view
//  5. otherwise perform a real read into a freshly cleared buf
func (r *Reader) Next() (View, error) {
	if r.dismissed {
		return View{}, ErrDismissed
	}
	if r.viewEnd > r.viewStart {
		return r.view(), nil
	}
	if r.eosSeen || (r.kind == desireLimited && r.remaining == 0) {
		return View{}, ErrExhausted
	}
	if r.bufEnd > r.viewEnd {
		r.extend(r.bufEnd - r.viewEnd)
		return r.view(), nil
	}
	return r.fill()
}

// extend grows viewEnd by up to avail bytes of already-buffered data,
// respecting a limited desire.
func (r *Reader) extend(avail int) {
	if r.kind == desireLimited && int64(avail) > r.remaining {
		avail = int(r.remaining)
	}
	r.viewEnd += avail
	if r.kind == desireLimited {
		r.remaining -= int64(avail)
	}
}

// fill performs a real read from the Source into a freshly cleared buf.
func (r *Reader) fill() (View, error) {
	r.bufEnd, r.viewStart, r.viewEnd = 0, 0, 0

	n, err := r.src.Read(r.buf)
	if n > 0 {
		if r.counter != nil {
			r.counter.Add(n)
		}
		r.bufEnd = n
		r.extend(n)
		return r.view(), nil
	}
	if err == nil {
		// io.Reader contract allows (0, nil); the caller is expected to
		// retry, so we do it here rather than surface a spurious empty view.
		return r.fill()
	}
	if errors.Is(err, io.EOF) {
		r.eosSeen = true
		r.shutReason = err
		_ = r.src.ShutdownRead()
		if r.kind == desireLimited {
			r.dismissed = true
			return View{}, io.ErrUnexpectedEOF
		}
		return View{eos: true}, nil
	}
	r.dismissed = true
	r.shutReason = err
	_ = r.src.ShutdownRead()
	return View{}, err
}

func (r *Reader) view() View { return View{r: r} }

// Dismiss invalidates the reader at exchange end. It is only legal on an
// empty reader; further use of a dismissed reader fails with ErrDismissed.
func (r *Reader) Dismiss() error {
	if r.dismissed {
		return nil
	}
	if !r.IsEmpty() {
		return ErrNotEmpty
	}
	r.dismissed = true
	r.kind = desireDismissed
	return nil
}

// NewReader spawns a successor reader that inherits buf and the stopped
// view position, so the next exchange's first parser resumes exactly where
// this one stopped — the zero-copy pipelining handoff (design §4.C, §8.1).
// r must already be dismissed.
func (r *Reader) NewReader() (*Reader, error) {
	if !r.dismissed {
		return nil, errors.New("channel: predecessor reader not dismissed")
	}
	return &Reader{
		src:       r.src,
		buf:       r.buf,
		bufEnd:    r.bufEnd,
		viewStart: r.viewStart,
		viewEnd:   r.viewEnd,
		eosSeen:   r.eosSeen,
		counter:   r.counter,
	}, nil
}
