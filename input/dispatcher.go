// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package input implements the pointer/keyboard dispatcher and the
// interaction finite-state machine: it turns raw driver
// motion and key events into NORMAL/DRAGGING/MOVING/RESIZING transitions,
// WINDOW_MOUSE_EVENT deliveries, focus changes, tiling, and key bindings.
//
// The dispatcher holds a pointer-state cache (last position, hovered and
// focused windows) and turns each incoming sample into zero or more
// derived deliveries, driven by the four explicit FSM states.
package input

import (
	"sync"

	"github.com/yabsym/compositor/damage"
	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/render"
	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/zorder"
)

// Buttons is a bitmask of currently held mouse buttons.
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonMiddle
	ButtonRight
)

// MouseScale is the fixed sub-pixel multiplier pointer coordinates are
// tracked at. Motion samples arrive
// pre-multiplication, so an absolute sample at device x lands on
// device x exactly after the scale round-trip.
const MouseScale = 3

// State is one of the interaction FSM's four states.
type State int

const (
	StateNormal State = iota
	StateDragging
	StateMoving
	StateResizing
)

// Binding is one entry of the global key-binding table: packed chord
// -> (owner, STEAL|PASS).
type Binding struct {
	Owner window.ClientAddr
	Mode  wire.BindMode
}

// Sink is how the dispatcher delivers derived events to clients. The
// server package implements it over the transport; tests can substitute
// a recording fake. Implementations must not block the caller for long,
// since the dispatcher calls Sink methods while holding its own
// input-state lock.
type Sink interface {
	MouseEvent(w *window.Window, kind wire.MouseEventKind, wx, wy int)
	FocusChange(w *window.Window, focused bool)
	ResizeOffer(w *window.Window, width, height int)
	KeyEvent(w *window.Window, chord key.Chord, state wire.KeyState)
	KeyBindEvent(owner window.ClientAddr, chord key.Chord, state wire.KeyState)
}

// Dispatcher owns the interaction FSM's state: the scaled pointer
// position, the held modifiers, the focused/hovered windows, and the
// per-gesture snapshots MOVING/RESIZING/DRAGGING need.
type Dispatcher struct {
	Reg    *window.Registry
	Z      *zorder.Manager
	Damage *damage.Queue
	Loop   *render.Loop
	Sink   Sink

	Width, Height int // device pixels

	// mu guards the FSM's own bookkeeping below. Geometry writes made
	// while it is held (move, tile, rotate) also take Reg.Lock; it is
	// released around MakeTop and the resize-box overlay updates.
	mu sync.Mutex

	state          State
	mouseX, mouseY int // scaled by MouseScale
	mods           key.Modifiers

	focused  *window.Window
	oldHover *window.Window

	snapOriginX, snapOriginY   int
	snapPointerX, snapPointerY int
	snapW, snapH               int
	lastDragWX, lastDragWY     int
	dragMoved                  bool

	keyBinds map[key.Chord]Binding

	debugHitShape bool
	debugBounds   bool
}

// NewDispatcher returns an idle dispatcher over a width x height device
// surface.
func NewDispatcher(reg *window.Registry, z *zorder.Manager, dmg *damage.Queue, loop *render.Loop, width, height int, sink Sink) *Dispatcher {
	return &Dispatcher{
		Reg: reg, Z: z, Damage: dmg, Loop: loop, Sink: sink,
		Width: width, Height: height,
		keyBinds: make(map[key.Chord]Binding),
	}
}

// Focused returns the currently focused window, if any.
func (d *Dispatcher) Focused() *window.Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// SetFocus sets the focused window directly, emitting focus-change
// events to the old and new holders.
func (d *Dispatcher) SetFocus(w *window.Window) {
	d.mu.Lock()
	d.setFocusLocked(w)
	d.mu.Unlock()
}

func (d *Dispatcher) setFocusLocked(w *window.Window) {
	if d.focused == w {
		return
	}
	old := d.focused
	d.focused = w
	if d.Sink == nil {
		return
	}
	if old != nil {
		d.Sink.FocusChange(old, false)
	}
	if w != nil {
		d.Sink.FocusChange(w, true)
	}
}

// ClientClosed clears focus/hover if they pointed at any of wids, e.g.
// after a client disconnects ("focused_window cleared" on
// destruction).
func (d *Dispatcher) ClientClosed(wids []uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := make(map[uint32]bool, len(wids))
	for _, id := range wids {
		set[id] = true
	}
	if d.focused != nil && set[d.focused.WID] {
		d.focused = nil
	}
	if d.oldHover != nil && set[d.oldHover.WID] {
		d.oldHover = nil
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func deviceToWindow(w *window.Window, x, y int) (int, int) {
	gw := geom.Window{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Rotation: w.Rotation}
	return geom.DeviceToWindow(gw, x, y)
}

func (d *Dispatcher) sendMouse(w *window.Window, kind wire.MouseEventKind, x, y int) {
	if d.Sink == nil || w == nil {
		return
	}
	wx, wy := deviceToWindow(w, x, y)
	d.Sink.MouseEvent(w, kind, wx, wy)
}
