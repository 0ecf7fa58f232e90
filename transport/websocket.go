// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yabsym/compositor/internal/errs"
)

// SocketPath is where a compositor with the given server identifier
// listens. Clients discover it through the DISPLAY environment variable
//, which holds the identifier, not the path.
func SocketPath(ident string) string {
	return filepath.Join(os.TempDir(), ident+".sock")
}

// wsConn pairs a websocket connection with a write mutex; gorilla
// connections support one concurrent writer only.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// WSServer is the WebSocket Server implementation: an HTTP listener on
// a unix socket, upgrading each connection and feeding its frames into
// one shared inbox.
type WSServer struct {
	ident string
	ln    net.Listener
	srv   *http.Server
	inbox chan Packet
	done  chan struct{}

	mu    sync.Mutex
	conns map[Addr]*wsConn
	next  uint64
}

// ListenWS binds the compositor's transport endpoint for ident,
// replacing any stale socket left by a previous session.
func ListenWS(ident string) (*WSServer, error) {
	path := SocketPath(ident)
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", path, err)
	}

	s := &WSServer{
		ident: ident,
		ln:    ln,
		inbox: make(chan Packet, recvBuffer),
		done:  make(chan struct{}),
		conns: make(map[Addr]*wsConn),
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true }, // unix socket: kernel enforces locality
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if errs.Log(err) != nil {
			return
		}
		s.serveConn(conn)
	})
	s.srv = &http.Server{Handler: mux}
	go s.srv.Serve(ln)
	return s, nil
}

func (s *WSServer) serveConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.next++
	addr := Addr(fmt.Sprintf("ws-%d", s.next))
	wc := &wsConn{conn: conn}
	s.conns[addr] = wc
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, addr)
		s.mu.Unlock()
		s.post(Packet{From: addr}) // dead-peer signal
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !s.post(Packet{From: addr, Data: msg}) {
			return
		}
	}
}

func (s *WSServer) post(p Packet) bool {
	select {
	case s.inbox <- p:
		return true
	case <-s.done:
		return false
	}
}

func (s *WSServer) Listen() (Packet, error) {
	select {
	case p := <-s.inbox:
		return p, nil
	case <-s.done:
		return Packet{}, errClosed
	}
}

func (s *WSServer) Send(to Addr, data []byte) error {
	s.mu.Lock()
	c, ok := s.conns[to]
	s.mu.Unlock()
	if !ok {
		return nil // departed peer: drop
	}
	return c.write(data)
}

func (s *WSServer) Broadcast(data []byte) {
	s.mu.Lock()
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		errs.Log(c.write(data))
	}
}

func (s *WSServer) Close() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	close(s.done)
	err := srv.Close()
	os.Remove(SocketPath(s.ident))
	return err
}

// WSClient is the WebSocket Client implementation.
type WSClient struct {
	c wsConn
}

// DialWS connects to the compositor identified by ident (normally the
// value of DISPLAY).
func DialWS(ident string) (*WSClient, error) {
	path := SocketPath(ident)
	dialer := websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			return net.DialTimeout("unix", path, 5*time.Second)
		},
	}
	conn, _, err := dialer.Dial("ws://"+ident+"/ws", nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", ident, err)
	}
	return &WSClient{c: wsConn{conn: conn}}, nil
}

func (w *WSClient) Send(data []byte) error {
	return w.c.write(data)
}

func (w *WSClient) Recv() ([]byte, error) {
	_, msg, err := w.c.conn.ReadMessage()
	return msg, err
}

func (w *WSClient) Close() error {
	return w.c.conn.Close()
}
