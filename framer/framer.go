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

package framer

import (
	"log/slog"
	"strconv"

	"github.com/inboundhq/httpengine"
)

// BodyIterator yields successive non-empty byte windows of a framed
// response body. Next returns io.EOF (with a nil slice) once exhausted.
type BodyIterator interface {
	Next() ([]byte, error)
	Close() error
}

// ConnState is the per-connection state the framer reads and updates
// across the exchanges of one connection. The caller (httpengine/channel.Writer)
// owns one instance per connection and passes it to every Apply call.
type ConnState struct {
	// CarriedClose becomes true the first time any response (request, or
	// earlier response on this connection) has carried Connection: close;
	// once true every subsequent final response must also carry it.
	CarriedClose bool

	// UnsuccessfulCount is the number of consecutive final 4xx/5xx
	// responses; it resets to 0 on any other final response.
	UnsuccessfulCount int

	// StreamShutdown reports whether the input stream has already been
	// shut down (e.g. by the channel reader on EOS or error).
	StreamShutdown bool
	// ServerStopping reports whether the server is in shutdown.
	ServerStopping bool
	// ScheduledClose reports whether the connection's writer has been
	// asked (ScheduleClose) to close after the current exchange.
	ScheduledClose bool
}

// Config carries the framer's configuration knobs, a subset of the
// server-wide Config (httpengine/config) relevant to framing decisions.
type Config struct {
	MaxUnsuccessfulResponses int // 0 disables the forced-channel-close counter
	Logger                   *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Result is what Apply hands back to the channel writer: the (possibly
// rewritten) response, an iterator over its framed body, and the two
// connection-lifecycle flags spec §4.E assigns.
type Result struct {
	Response        *httpengine.Response
	Body            BodyIterator
	CloseConnection bool
	CloseChannel    bool
}

// Apply runs the five framing transformations of spec §4.E against resp,
// which was produced for a request with method reqMethod over a connection
// at protocol version. state is mutated in place to reflect this response.
func Apply(resp *httpengine.Response, reqMethod string, reqCarriesClose bool, version httpengine.ProtocolVersion, state *ConnState, cfg Config) (*Result, error) {
	if resp.Header == nil {
		resp.Header = make(map[string][]string)
	}

	// 1. HTTP/1.0 auto-close.
	if resp.Final && !version.AtLeast(1, 1) && resp.Header.Get("Connection") == "" {
		resp.Header.Set("Connection", "close")
	}

	bodyLen, lenKnown := int64(0), true
	if resp.Body != nil {
		bodyLen, lenKnown = resp.Body.Len()
	}

	// 2. Chunked decision.
	hasTrailers := len(resp.Trailer) > 0
	if version.AtLeast(1, 1) && (hasTrailers || !lenKnown) {
		if te := resp.Header.Get("Transfer-Encoding"); te != "" && te != "chunked" {
			return nil, httpengine.NewError(httpengine.KindIllegalHeader, nil)
		}
		resp.Header.Set("Transfer-Encoding", "chunked")
	} else if !version.AtLeast(1, 1) && hasTrailers {
		cfg.logger().Warn("dropping trailers for pre-1.1 response", "version", version.String())
		resp.Trailer = nil
		hasTrailers = false
	}

	// 3. Connection-close propagation.
	if resp.Header.Get("Connection") == "close" {
		state.CarriedClose = true
	}
	if resp.Final {
		mustClose := state.CarriedClose || reqCarriesClose || state.StreamShutdown ||
			state.ServerStopping || state.ScheduledClose
		if mustClose && resp.Header.Get("Connection") == "" {
			resp.Header.Set("Connection", "close")
		}
		if resp.Header.Get("Connection") == "close" {
			state.CarriedClose = true
		}
	}

	// 4. Unsuccessful-response tracking.
	closeChannel := false
	if resp.Final {
		if resp.StatusCode >= 400 {
			state.UnsuccessfulCount++
		} else {
			state.UnsuccessfulCount = 0
		}
		if cfg.MaxUnsuccessfulResponses > 0 && state.UnsuccessfulCount >= cfg.MaxUnsuccessfulResponses {
			closeChannel = true
		}
	}

	// 5. Framing validation (RFC 7230 §3.3).
	if err := validate(resp, reqMethod, bodyLen, lenKnown); err != nil {
		return nil, err
	}

	body, err := newBodyIterator(resp, version)
	if err != nil {
		return nil, err
	}

	closeConnection := resp.Final && resp.Header.Get("Connection") == "close"
	return &Result{
		Response:        resp,
		Body:            body,
		CloseConnection: closeConnection,
		CloseChannel:    closeChannel,
	}, nil
}

func isNoBodyStatus(status int) bool {
	return (status >= 100 && status < 200) || status == 204
}

func validate(resp *httpengine.Response, reqMethod string, bodyLen int64, lenKnown bool) error {
	te := resp.Header.Get("Transfer-Encoding")
	cl := resp.Header.Get("Content-Length")
	status := resp.StatusCode
	noBodyStatus := isNoBodyStatus(status)
	bodyEmpty := lenKnown && bodyLen == 0

	switch {
	case te != "" && noBodyStatus:
		return httpengine.NewError(httpengine.KindIllegalHeader, nil)
	case te != "" && cl != "":
		return httpengine.NewError(httpengine.KindIllegalHeader, nil)
	case reqMethod == "HEAD" && !bodyEmpty:
		return httpengine.NewError(httpengine.KindIllegalResponseBody, nil)
	case status == 304 && !bodyEmpty:
		return httpengine.NewError(httpengine.KindIllegalResponseBody, nil)
	case cl != "" && noBodyStatus && bodyEmpty:
		return httpengine.NewError(httpengine.KindIllegalHeader, nil)
	case cl != "" && noBodyStatus && !bodyEmpty:
		return httpengine.NewError(httpengine.KindIllegalResponseBody, nil)
	case cl != "" && status >= 200 && reqMethod == "CONNECT":
		return httpengine.NewError(httpengine.KindIllegalHeader, nil)
	case cl != "" && lenKnown && cl != strconv.FormatInt(bodyLen, 10):
		return httpengine.NewError(httpengine.KindMismatchedLength, nil)
	case te == "" && cl == "":
		switch {
		case bodyEmpty && !noBodyStatus && reqMethod != "CONNECT":
			resp.Header.Set("Content-Length", "0")
		case bodyEmpty:
			// empty body with 1xx/204/CONNECT and no framing header: nothing to add.
		case noBodyStatus:
			return httpengine.NewError(httpengine.KindIllegalResponseBody, nil)
		case !lenKnown:
			// unknown length without chunking: the body runs until the connection closes.
		default:
			resp.Header.Set("Content-Length", strconv.FormatInt(bodyLen, 10))
		}
	}
	return nil
}
