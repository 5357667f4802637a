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
	"log/slog"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/framer"
)

// AfterAction runs against a response before it is framed, and may
// substitute a new response (spec §4.F.4). Returning an error aborts the
// write and is surfaced to the exchange's error path.
type AfterAction func(resp *httpengine.Response) (*httpengine.Response, error)

// Writer is the sequential per-connection sink: it runs after-actions,
// applies the response framer, and serializes the framed head and body
// onto the connection. There is no concurrent write; Write must not be
// called again until the previous call has returned.
type Writer struct {
	sink Sink

	state framer.ConnState
	cfg   framer.Config

	rejectInformationalHTTP10 bool
	continuesSeen             int // 100 Continue responses passed to Write so far

	dismissed bool
	inFlight  bool
	wroteFrom bool // wrote a Final response

	bytesWritten int64
	counter      ByteCounter

	logger *slog.Logger
}

// NewWriter constructs a Writer over sink. cfg configures the framer
// (max unsuccessful responses, logger); rejectInformationalHTTP10
// controls whether a 1xx response is silently discarded for an HTTP/1.0
// client or surfaced as a protocol-not-supported error (spec §4.F.2).
func NewWriter(sink Sink, cfg framer.Config, rejectInformationalHTTP10 bool) *Writer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{sink: sink, cfg: cfg, rejectInformationalHTTP10: rejectInformationalHTTP10, logger: logger}
}

// SetByteCounter attaches a counter observing bytes successfully written.
func (w *Writer) SetByteCounter(c ByteCounter) { w.counter = c }

// ScheduleClose asks the framer to add Connection: close on the next final
// response written through w (spec §5, "a scheduled close on the writer").
func (w *Writer) ScheduleClose() { w.state.ScheduledClose = true }

// NoteStreamShutdown records that the connection's input stream has
// already been shut down, so the next final response carries
// Connection: close (spec §4.E.3.b).
func (w *Writer) NoteStreamShutdown() { w.state.StreamShutdown = true }

// NoteServerStopping records that the server is shutting down, so the next
// final response carries Connection: close (spec §4.E.3.c).
func (w *Writer) NoteServerStopping() { w.state.ServerStopping = true }

// WroteFinal reports whether a Final response has already been written.
func (w *Writer) WroteFinal() bool { return w.wroteFrom }

// BytesWritten returns the cumulative bytes written across all calls.
func (w *Writer) BytesWritten() int64 { return w.bytesWritten }

// WriteResult is what Write hands back to the exchange orchestrator:
// whether the connection and/or channel must now be closed.
type WriteResult struct {
	CloseConnection bool
	CloseChannel    bool
}

// Write runs resp through after-actions, the framer, and onto the
// connection, per spec §4.F.
func (w *Writer) Write(resp *httpengine.Response, reqMethod string, reqCarriesClose bool, version httpengine.ProtocolVersion, afterActions []AfterAction) (WriteResult, error) {
	if w.dismissed {
		return WriteResult{}, ErrDismissed
	}
	if w.wroteFrom {
		return WriteResult{}, errors.New("channel: writer already wrote a final response")
	}
	if w.inFlight {
		return WriteResult{}, errors.New("channel: a write is already in flight")
	}
	w.inFlight = true
	defer func() { w.inFlight = false }()

	if resp.IsInformational() && !version.AtLeast(1, 1) {
		if w.rejectInformationalHTTP10 {
			return WriteResult{}, httpengine.NewError(httpengine.KindResponseRejected,
				errors.New("informational response not supported by HTTP/1.0 client"))
		}
		return WriteResult{}, nil
	}

	if resp.StatusCode == 100 {
		w.continuesSeen++
		switch {
		case w.continuesSeen == 2:
			w.logger.Debug("dropping repeated 100 Continue response")
			return WriteResult{}, nil
		case w.continuesSeen > 2:
			w.logger.Warn("dropping repeated 100 Continue response")
			return WriteResult{}, nil
		}
	}

	for _, action := range afterActions {
		next, err := action(resp)
		if err != nil {
			return WriteResult{}, httpengine.NewError(httpengine.KindResponseRejected, err)
		}
		if next != nil {
			resp = next
		}
	}

	result, err := framer.Apply(resp, reqMethod, reqCarriesClose, version, &w.state, w.cfg)
	if err != nil {
		return WriteResult{}, err
	}

	if err := w.writeOut(result, version); err != nil {
		w.dismissed = true
		_ = w.sink.ShutdownWrite()
		return WriteResult{}, httpengine.NewError(httpengine.KindWriteFailed, err)
	}

	if resp.Final {
		w.wroteFrom = true
	}
	if result.CloseChannel {
		w.dismissed = true
	} else if result.CloseConnection {
		_ = w.sink.ShutdownWrite()
	}
	return WriteResult{CloseConnection: result.CloseConnection, CloseChannel: result.CloseChannel}, nil
}

func (w *Writer) writeOut(result *framer.Result, version httpengine.ProtocolVersion) error {
	resp := result.Response

	head := make([]byte, 0, 256)
	head = appendStatusLine(head, resp, version)
	head = appendHeaders(head, resp.Header)
	head = append(head, '\r', '\n')

	n, err := w.sink.Write(head)
	w.record(n)
	if err != nil {
		return err
	}

	for {
		window, err := result.Body.Next()
		if err != nil {
			closeErr := result.Body.Close()
			if errors.Is(err, io.EOF) {
				return closeErr
			}
			return err
		}
		if len(window) == 0 {
			continue
		}
		n, werr := w.sink.Write(window)
		w.record(n)
		if werr != nil {
			_ = result.Body.Close()
			return werr
		}
	}
}

func (w *Writer) record(n int) {
	if n <= 0 {
		return
	}
	w.bytesWritten += int64(n)
	if w.counter != nil {
		w.counter.Add(n)
	}
}

func appendStatusLine(buf []byte, resp *httpengine.Response, version httpengine.ProtocolVersion) []byte {
	buf = append(buf, "HTTP/"...)
	buf = appendInt(buf, version.Major)
	buf = append(buf, '.')
	buf = appendInt(buf, version.Minor)
	buf = append(buf, ' ')
	buf = appendInt(buf, resp.StatusCode)
	buf = append(buf, ' ')
	buf = append(buf, resp.ReasonPhrase()...)
	buf = append(buf, '\r', '\n')
	return buf
}

func appendHeaders(buf []byte, h map[string][]string) []byte {
	for name, values := range h {
		for _, v := range values {
			buf = append(buf, name...)
			buf = append(buf, ':', ' ')
			buf = append(buf, v...)
			buf = append(buf, '\r', '\n')
		}
	}
	return buf
}

func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	var tmp [20]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(buf, tmp[i:]...)
}
