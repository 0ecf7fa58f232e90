// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport provides framed, addressed messages between the
// compositor and its client processes. Two implementations exist: an in-process
// loopback (tests) and a WebSocket transport, which the compositor
// command uses for out-of-process clients and its own input readers.
package transport

// Addr identifies one peer on a transport. The server assigns addresses
// as connections arrive; clients do not choose their own.
type Addr string

// Packet is one framed message received by the server. A zero-length
// Data means the peer has disconnected ("zero-length packet
// from a peer ⇒ that peer is dead").
type Packet struct {
	From Addr
	Data []byte
}

// Server is the compositor-side endpoint: a single receive queue fed by
// every connected peer, plus addressed sends back to them.
type Server interface {
	// Listen blocks until the next inbound packet. It returns an error
	// only when the transport itself has shut down.
	Listen() (Packet, error)

	// Send delivers data to the peer at to. Sending to a departed peer
	// is not an error; the message is dropped.
	Send(to Addr, data []byte) error

	// Broadcast delivers data to every connected peer.
	Broadcast(data []byte)

	Close() error
}

// Client is one peer's endpoint: an ordered byte-frame pipe to the
// server. Implementations serialize concurrent Sends.
type Client interface {
	Send(data []byte) error

	// Recv blocks until the next frame from the server, returning an
	// error once the connection is gone.
	Recv() ([]byte, error)

	Close() error
}
