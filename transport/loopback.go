// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"sync"
)

// recvBuffer is how many frames can be queued in either direction. A
// full server inbox blocks the sending peer; a frame for a peer whose
// queue is full is dropped.
const recvBuffer = 256

var errClosed = errors.New("transport: closed")

// Loopback is an in-process Server, used by the tests. Peers Dial it
// and behave exactly like external clients, so every state change
// funnels through the one protocol receive loop. The compositor command
// itself connects its input readers and nested-input thread over the
// WebSocket transport instead.
type Loopback struct {
	mu     sync.Mutex
	inbox  chan Packet
	peers  map[Addr]*LoopbackClient
	next   int
	closed bool
}

// NewLoopback returns an empty in-process transport.
func NewLoopback() *Loopback {
	return &Loopback{
		inbox: make(chan Packet, recvBuffer),
		peers: make(map[Addr]*LoopbackClient),
	}
}

// Dial attaches a new in-process peer. name is a human-readable hint
// folded into the assigned address ("mouse", "kbd", "test-client").
func (l *Loopback) Dial(name string) *LoopbackClient {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	addr := Addr(fmt.Sprintf("%s-%d", name, l.next))
	c := &LoopbackClient{server: l, addr: addr, recv: make(chan []byte, recvBuffer)}
	l.peers[addr] = c
	return c
}

func (l *Loopback) Listen() (Packet, error) {
	p, ok := <-l.inbox
	if !ok {
		return Packet{}, errClosed
	}
	return p, nil
}

func (l *Loopback) Send(to Addr, data []byte) error {
	l.mu.Lock()
	c, ok := l.peers[to]
	l.mu.Unlock()
	if !ok {
		return nil // departed peer: drop
	}
	c.deliver(data)
	return nil
}

func (l *Loopback) Broadcast(data []byte) {
	l.mu.Lock()
	peers := make([]*LoopbackClient, 0, len(l.peers))
	for _, c := range l.peers {
		peers = append(peers, c)
	}
	l.mu.Unlock()
	for _, c := range peers {
		c.deliver(data)
	}
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.inbox)
	for _, c := range l.peers {
		c.closeRecv()
	}
	l.peers = map[Addr]*LoopbackClient{}
	return nil
}

// post enqueues a packet on the server's inbox, dropping it if the
// server has already shut down.
func (l *Loopback) post(p Packet) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.inbox <- p
}

// LoopbackClient is one in-process peer of a Loopback server.
type LoopbackClient struct {
	server *Loopback
	addr   Addr

	mu     sync.Mutex
	recv   chan []byte
	closed bool
}

// Addr returns the server-assigned address of this peer.
func (c *LoopbackClient) Addr() Addr { return c.addr }

func (c *LoopbackClient) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errClosed
	}
	c.server.post(Packet{From: c.addr, Data: data})
	return nil
}

func (c *LoopbackClient) Recv() ([]byte, error) {
	data, ok := <-c.recv
	if !ok {
		return nil, errClosed
	}
	return data, nil
}

// Close detaches the peer. The server observes this as a zero-length
// packet, its dead-peer signal.
func (c *LoopbackClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.recv)
	c.mu.Unlock()

	c.server.mu.Lock()
	delete(c.server.peers, c.addr)
	c.server.mu.Unlock()
	c.server.post(Packet{From: c.addr})
	return nil
}

func (c *LoopbackClient) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.recv <- data:
	default:
		// Peer stopped draining; dropping beats deadlocking the
		// protocol thread.
	}
}

func (c *LoopbackClient) closeRecv() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.recv)
	}
}
