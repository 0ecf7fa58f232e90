// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"log/slog"

	"github.com/yabsym/compositor/input"
	"github.com/yabsym/compositor/internal/errs"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/transport"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/wire"
)

// handle dispatches one well-formed message. Unknown wids are silently
// ignored throughout (the window may simply have been closed
// already); unknown types are logged and dropped.
func (c *Compositor) handle(from transport.Addr, env wire.Envelope) {
	switch env.Type {
	case wire.HELLO:
		c.handleHello(from)
	case wire.WINDOW_NEW:
		c.handleWindowNew(from, env.Body)
	case wire.FLIP:
		c.handleFlip(env.Body)
	case wire.FLIP_REGION:
		c.handleFlipRegion(env.Body)
	case wire.KEY_EVENT:
		c.handleKeyEvent(env.Body)
	case wire.MOUSE_EVENT:
		c.handleMouseEvent(env.Body)
	case wire.WINDOW_MOVE:
		c.handleWindowMove(env.Body)
	case wire.WINDOW_CLOSE:
		c.handleWindowClose(env.Body)
	case wire.WINDOW_STACK:
		c.handleWindowStack(env.Body)
	case wire.RESIZE_REQUEST, wire.RESIZE_OFFER:
		c.handleResizeRequest(env.Body)
	case wire.RESIZE_ACCEPT:
		c.handleResizeAccept(env.Body)
	case wire.RESIZE_DONE:
		c.handleResizeDone(env.Body)
	case wire.QUERY_WINDOWS:
		c.handleQueryWindows(from)
	case wire.SUBSCRIBE:
		c.Subscribe(from)
	case wire.UNSUBSCRIBE:
		c.Unsubscribe(from)
	case wire.WINDOW_ADVERTISE:
		c.handleAdvertise(env.Body)
	case wire.SESSION_END:
		c.T.Broadcast(wire.Envelope{Type: wire.SESSION_END}.Encode())
	case wire.WINDOW_FOCUS:
		c.handleWindowFocus(env.Body)
	case wire.KEY_BIND:
		c.handleKeyBind(from, env.Body)
	case wire.WINDOW_DRAG_START:
		c.handleDragStart(env.Body)
	case wire.WINDOW_UPDATE_SHAPE:
		c.handleUpdateShape(env.Body)
	default:
		slog.Warn("unknown message type", "type", uint32(env.Type), "from", from)
	}
}

func (c *Compositor) handleHello(from transport.Addr) {
	m := wire.Welcome{Width: uint32(c.Width), Height: uint32(c.Height)}
	c.send(from, wire.WELCOME, m.Encode())
}

func (c *Compositor) handleWindowNew(from transport.Addr, body []byte) {
	m, err := wire.DecodeWindowNew(body)
	if errs.Log(err) != nil {
		return
	}
	w, err := c.Reg.Create(window.ClientAddr(from), int(m.Width), int(m.Height), c.Loop.Tick())
	if errs.Log(err) != nil {
		return // shm allocation failed: fail the request without mutating anything
	}
	c.Z.Insert(w)
	c.Damage.MarkWindow(w)

	resp := wire.WindowInit{WID: w.WID, Width: m.Width, Height: m.Height, BufID: w.BufID}
	c.send(from, wire.WINDOW_INIT, resp.Encode())
	c.notifySubscribers()
}

func (c *Compositor) handleFlip(body []byte) {
	m, err := wire.DecodeWIDOnly(body)
	if errs.Log(err) != nil {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.Damage.MarkWindow(w)
	}
}

func (c *Compositor) handleFlipRegion(body []byte) {
	m, err := wire.DecodeFlipRegion(body)
	if errs.Log(err) != nil {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.Damage.MarkWindowRelative(w, int(m.X), int(m.Y), int(m.W), int(m.H))
	}
}

func (c *Compositor) handleKeyEvent(body []byte) {
	m, err := wire.DecodeKeyEvent(body)
	if errs.Log(err) != nil {
		return
	}
	c.Disp.HandleKey(key.Code(m.Code), wire.KeyState(m.State), key.Modifiers(m.Mods))
}

func (c *Compositor) handleMouseEvent(body []byte) {
	m, err := wire.DecodeMouseEvent(body)
	if errs.Log(err) != nil {
		return
	}
	c.mu.Lock()
	c.lastButtons = m.Buttons
	c.mu.Unlock()
	c.Disp.HandleMotion(wire.MotionKind(m.Kind) == wire.Relative, int(m.X), int(m.Y), input.Buttons(m.Buttons))
}

func (c *Compositor) handleWindowMove(body []byte) {
	m, err := wire.DecodeWindowMove(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	c.Damage.MarkWindow(w)
	c.Reg.Lock()
	w.X, w.Y = int(m.X), int(m.Y)
	c.Reg.Unlock()
	c.Damage.MarkWindow(w)
}

func (c *Compositor) handleWindowClose(body []byte) {
	m, err := wire.DecodeWIDOnly(body)
	if errs.Log(err) != nil {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.markForClose(w)
	}
}

func (c *Compositor) handleWindowStack(body []byte) {
	m, err := wire.DecodeWindowStack(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	c.Z.Reorder(w, m.Z)
	c.Damage.MarkWindow(w)
}

// handleResizeRequest serves both RESIZE_REQUEST and a client-initiated
// RESIZE_OFFER: either way the window's owner receives a RESIZE_OFFER
// and the handshake proceeds from there.
func (c *Compositor) handleResizeRequest(body []byte) {
	m, err := wire.DecodeResizeWH(body)
	if errs.Log(err) != nil {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.ResizeOffer(w, int(m.Width), int(m.Height))
	}
}

func (c *Compositor) handleResizeAccept(body []byte) {
	m, err := wire.DecodeResizeWH(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	newbufid, err := c.Reg.ResizeOffer(w, int(m.Width), int(m.Height))
	if errs.Log(err) != nil {
		return
	}
	resp := wire.ResizeBufID{WID: w.WID, Width: m.Width, Height: m.Height, NewBufID: newbufid}
	c.send(transport.Addr(w.Owner), wire.RESIZE_BUFID, resp.Encode())
}

func (c *Compositor) handleResizeDone(body []byte) {
	m, err := wire.DecodeResizeWH(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	c.Damage.MarkWindow(w)
	c.Reg.ResizeFinish(w, int(m.Width), int(m.Height))
	c.Damage.MarkWindow(w)
}

// handleQueryWindows emits one WINDOW_ADVERTISE per window in paint
// order (bottom, middles back-to-front, top), then a terminating empty
// advertise.
func (c *Compositor) handleQueryWindows(from transport.Addr) {
	c.Reg.RLock()
	wins := c.Z.All()
	c.Reg.RUnlock()
	for _, w := range wins {
		c.send(from, wire.WINDOW_ADVERTISE, advertiseFor(w).Encode())
	}
	c.send(from, wire.WINDOW_ADVERTISE, wire.Advertise{}.Encode())
}

func advertiseFor(w *window.Window) wire.Advertise {
	return wire.Advertise{
		WID:     w.WID,
		Flags:   w.ClientFlags,
		Offsets: w.ClientOffsets,
		Strings: w.ClientStrings,
	}
}

func (c *Compositor) handleAdvertise(body []byte) {
	m, err := wire.DecodeAdvertise(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	c.Reg.Lock()
	w.ClientFlags = m.Flags
	w.ClientOffsets = m.Offsets
	w.ClientStrings = append([]byte(nil), m.Strings...)
	c.Reg.Unlock()
	c.notifySubscribers()
}

// handleWindowFocus sets the focused window. wid 0 is reserved and
// treated as a no-op.
func (c *Compositor) handleWindowFocus(body []byte) {
	m, err := wire.DecodeWIDOnly(body)
	if errs.Log(err) != nil {
		return
	}
	if m.WID == 0 {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.Disp.SetFocus(w)
	}
}

func (c *Compositor) handleKeyBind(from transport.Addr, body []byte) {
	m, err := wire.DecodeKeyBind(body)
	if errs.Log(err) != nil {
		return
	}
	chord := key.Pack(key.Modifiers(m.Modifiers), key.Code(m.Key))
	c.Disp.Bind(chord, window.ClientAddr(from), wire.BindMode(m.Mode))
}

func (c *Compositor) handleDragStart(body []byte) {
	m, err := wire.DecodeWIDOnly(body)
	if errs.Log(err) != nil {
		return
	}
	if w, ok := c.Reg.Get(m.WID); ok {
		c.Disp.StartMove(w)
	}
}

func (c *Compositor) handleUpdateShape(body []byte) {
	m, err := wire.DecodeUpdateShape(body)
	if errs.Log(err) != nil {
		return
	}
	w, ok := c.Reg.Get(m.WID)
	if !ok {
		return
	}
	c.Reg.Lock()
	w.AlphaThreshold = m.Threshold
	c.Reg.Unlock()
}
