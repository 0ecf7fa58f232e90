// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server implements the client protocol server: the
// single-threaded receive loop every state change funnels through, the
// per-message handlers, the resize handshake, and window-list
// subscriptions. It also owns the Compositor context value that ties the
// registry, z-order, damage queue, render loop, and input dispatcher
// together.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yabsym/compositor/damage"
	"github.com/yabsym/compositor/input"
	"github.com/yabsym/compositor/internal/errs"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/render"
	"github.com/yabsym/compositor/transport"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/zorder"
)

// Compositor is the singleton compositor state, threaded
// explicitly through all operations rather than held in package
// globals.
type Compositor struct {
	Ident         string
	Width, Height int

	Reg    *window.Registry
	Z      *zorder.Manager
	Damage *damage.Queue
	Loop   *render.Loop
	Disp   *input.Dispatcher
	T      transport.Server

	mu          sync.Mutex
	subscribers map[transport.Addr]struct{}
	lastMouse   map[uint32][2]int // per-window last delivered coords, for old_x/old_y
	lastButtons uint8             // held buttons as of the latest MOUSE_EVENT
}

// New wires a full compositor over the given transport, compositing a
// width x height surface presented via presenter.
func New(ident string, width, height int, t transport.Server, presenter render.Presenter) *Compositor {
	c := &Compositor{
		Ident: ident, Width: width, Height: height,
		T:           t,
		subscribers: make(map[transport.Addr]struct{}),
		lastMouse:   make(map[uint32][2]int),
	}
	c.Reg = window.New(ident)
	c.Z = zorder.NewManager(c.Reg)
	c.Damage = &damage.Queue{}
	c.Loop = render.New(c.Reg, c.Z, c.Damage, width, height, presenter)
	c.Loop.OnWindowRemoved = c.windowRemoved
	c.Disp = input.NewDispatcher(c.Reg, c.Z, c.Damage, c.Loop, width, height, c)
	return c
}

// Run executes the receive loop on the calling goroutine (the protocol
// thread, normally main) until the transport shuts down or ctx is
// cancelled. Malformed messages are logged and dropped without tearing
// down the peer.
func (c *Compositor) Run(ctx context.Context) error {
	for {
		p, err := c.T.Listen()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(p.Data) == 0 {
			c.clientDied(p.From)
			continue
		}
		env, err := wire.DecodeEnvelope(p.Data)
		if err != nil {
			errs.Log(err)
			continue
		}
		c.handle(p.From, env)
	}
}

// send encodes and delivers one message to a peer, logging (not
// propagating) transport errors: a failed send means the peer is on its
// way out and the EOF path will clean up.
func (c *Compositor) send(to transport.Addr, typ wire.Type, body []byte) {
	env := wire.Envelope{Type: typ, Body: body}
	errs.Log(c.T.Send(to, env.Encode()))
}

// markForClose begins a window's fade-out; the render loop removes it
// once the animation completes. Idempotent, so a
// WINDOW_CLOSE racing a client disconnect only starts one fade.
func (c *Compositor) markForClose(w *window.Window) {
	c.Reg.Lock()
	already := w.AnimMode == window.FadeOut
	if !already {
		w.AnimMode = window.FadeOut
		w.AnimStart = c.Loop.Tick()
	}
	c.Reg.Unlock()
	if !already {
		c.Damage.MarkWindow(w)
	}
}

// clientDied handles a zero-length packet: every window owned by the
// departed peer fades out on the normal timeline.
func (c *Compositor) clientDied(addr transport.Addr) {
	slog.Info("client disconnected", "addr", addr)
	for _, wid := range c.Reg.ClientWindows(window.ClientAddr(addr)) {
		if w, ok := c.Reg.Get(wid); ok {
			c.markForClose(w)
		}
	}
	c.mu.Lock()
	delete(c.subscribers, addr)
	c.mu.Unlock()
}

// windowRemoved runs after the render loop finished a window's
// fade-out and dropped it from all indices.
func (c *Compositor) windowRemoved(w *window.Window) {
	c.Disp.ClientClosed([]uint32{w.WID})
	c.mu.Lock()
	delete(c.lastMouse, w.WID)
	c.mu.Unlock()
	c.notifySubscribers()
}

// Subscribe adds addr to the window-list subscriber set; duplicate
// subscribes are idempotent.
func (c *Compositor) Subscribe(addr transport.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[addr] = struct{}{}
}

// Unsubscribe removes addr from the subscriber set.
func (c *Compositor) Unsubscribe(addr transport.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, addr)
}

func (c *Compositor) notifySubscribers() {
	c.mu.Lock()
	subs := make([]transport.Addr, 0, len(c.subscribers))
	for s := range c.subscribers {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		c.send(s, wire.NOTIFY, nil)
	}
}

// --- input.Sink: derived events out to clients over the transport ---

func (c *Compositor) MouseEvent(w *window.Window, kind wire.MouseEventKind, wx, wy int) {
	c.mu.Lock()
	old := c.lastMouse[w.WID]
	c.lastMouse[w.WID] = [2]int{wx, wy}
	buttons := c.lastButtons
	c.mu.Unlock()
	m := wire.WindowMouseEvent{
		WID: w.WID,
		X:   int32(wx), Y: int32(wy),
		OldX: int32(old[0]), OldY: int32(old[1]),
		Buttons: buttons,
		Kind:    uint8(kind),
	}
	c.send(transport.Addr(w.Owner), wire.WINDOW_MOUSE_EVENT, m.Encode())
}

func (c *Compositor) FocusChange(w *window.Window, focused bool) {
	m := wire.WindowFocusChange{WID: w.WID, Focused: focused}
	c.send(transport.Addr(w.Owner), wire.WINDOW_FOCUS_CHANGE, m.Encode())
}

func (c *Compositor) ResizeOffer(w *window.Window, width, height int) {
	m := wire.ResizeWH{WID: w.WID, Width: uint32(width), Height: uint32(height)}
	c.send(transport.Addr(w.Owner), wire.RESIZE_OFFER, m.Encode())
}

func (c *Compositor) KeyEvent(w *window.Window, chord key.Chord, state wire.KeyState) {
	m := wire.KeyEvent{
		WID:   w.WID,
		Code:  uint32(chord.Code()),
		State: uint8(state),
		Mods:  uint8(chord.Modifiers()),
	}
	c.send(transport.Addr(w.Owner), wire.KEY_EVENT, m.Encode())
}

func (c *Compositor) KeyBindEvent(owner window.ClientAddr, chord key.Chord, state wire.KeyState) {
	m := wire.KeyEvent{
		Code:  uint32(chord.Code()),
		State: uint8(state),
		Mods:  uint8(chord.Modifiers()),
	}
	c.send(transport.Addr(owner), wire.KEY_EVENT, m.Encode())
}
