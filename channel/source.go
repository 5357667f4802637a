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
	"io"
	"net"
)

// Source is the read half of the underlying byte stream a Reader pulls
// from. ShutdownRead closes only the read direction so a blocked or future
// Read unblocks with an error, without necessarily tearing down the whole
// connection — the timer service (design §5) calls it on idle-connection
// timeout, and Reader calls it itself on EOS or a read error.
type Source interface {
	io.Reader
	ShutdownRead() error
}

// Sink is the write half, used by Writer.
type Sink interface {
	io.Writer
	ShutdownWrite() error
}

// halfCloser is satisfied by *net.TCPConn and *net.UnixConn.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// connSource adapts a net.Conn to Source, using CloseRead when the
// concrete connection type supports half-close (TCP, Unix sockets) and
// falling back to a full Close otherwise.
type connSource struct{ conn net.Conn }

// NewConnSource wraps conn as a Source for a channel.Reader.
func NewConnSource(conn net.Conn) Source { return connSource{conn: conn} }

func (c connSource) Read(p []byte) (int, error) { return c.conn.Read(p) }

func (c connSource) ShutdownRead() error {
	if hc, ok := c.conn.(halfCloser); ok {
		return hc.CloseRead()
	}
	return c.conn.Close()
}

// connSink adapts a net.Conn to Sink.
type connSink struct{ conn net.Conn }

// NewConnSink wraps conn as a Sink for a channel.Writer.
func NewConnSink(conn net.Conn) Sink { return connSink{conn: conn} }

func (c connSink) Write(p []byte) (int, error) { return c.conn.Write(p) }

func (c connSink) ShutdownWrite() error {
	if hc, ok := c.conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return c.conn.Close()
}
