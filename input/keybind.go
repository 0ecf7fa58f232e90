// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package input

import (
	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/zorder"
)

// HandleKey feeds one key event through kbd_state, the built-in chord
// table, and the global key-binding table. mods is the full
// modifier state after this event is applied (the caller mirrors
// press/release into it before calling in).
func (d *Dispatcher) HandleKey(code key.Code, state wire.KeyState, mods key.Modifiers) {
	d.mu.Lock()
	d.mods = mods
	chord := key.Pack(mods, code)

	if state == wire.KeyDown && d.builtinChordLocked(chord) {
		d.mu.Unlock()
		return
	}

	binding, bound := d.keyBinds[chord]
	focused := d.focused
	d.mu.Unlock()

	if bound {
		d.Sink.KeyBindEvent(binding.Owner, chord, state)
		if binding.Mode == wire.Steal {
			return
		}
	}
	if focused != nil && d.Sink != nil {
		d.Sink.KeyEvent(focused, chord, state)
	}
}

// Bind installs or replaces a global key binding.
func (d *Dispatcher) Bind(chord key.Chord, owner window.ClientAddr, mode wire.BindMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keyBinds[chord] = Binding{Owner: owner, Mode: mode}
}

// builtinChordLocked handles the fixed rotate/debug/tile chords.
// Returns true if the chord was consumed, in which case it
// is never forwarded to key_binds or the focused window.
func (d *Dispatcher) builtinChordLocked(c key.Chord) bool {
	mods, code := c.Modifiers(), c.Code()

	switch {
	case mods == key.Control|key.Shift && code == key.CodeZ:
		d.rotateFocusedLocked(-5)
		return true
	case mods == key.Control|key.Shift && code == key.CodeX:
		d.rotateFocusedLocked(5)
		return true
	case mods == key.Control|key.Shift && code == key.CodeC:
		d.setRotationFocusedLocked(0)
		return true
	case mods == key.Control|key.Shift && code == key.CodeV:
		d.debugHitShape = !d.debugHitShape
		d.Loop.SetDebugHitShape(d.debugHitShape)
		d.Damage.MarkRegion(geom.Rect{W: d.Width, H: d.Height})
		return true
	case mods == key.Control|key.Shift && code == key.CodeB:
		d.debugBounds = !d.debugBounds
		d.Loop.SetDebugBounds(d.debugBounds)
		d.Damage.MarkRegion(geom.Rect{W: d.Width, H: d.Height})
		return true
	// Tile chords only consume the event when the focused window is
	// tileable (a middle-tier window); otherwise they fall through to
	// key_binds/focused delivery like any other chord.
	case mods == key.Alt && code == key.CodeF10:
		return d.tileLocked(1, 1, 0, 0)
	case mods == key.Meta && code == key.CodeLeft:
		return d.tileLocked(2, 1, 0, 0)
	case mods == key.Meta && code == key.CodeRight:
		return d.tileLocked(2, 1, 1, 0)
	case mods == key.Meta && code == key.CodeUp:
		return d.tileLocked(1, 2, 0, 0)
	case mods == key.Meta && code == key.CodeDown:
		return d.tileLocked(1, 2, 0, 1)
	case mods == key.Meta|key.Shift && code == key.CodeLeft:
		return d.tileLocked(2, 2, 0, 0)
	case mods == key.Meta|key.Shift && code == key.CodeRight:
		return d.tileLocked(2, 2, 1, 0)
	case mods == key.Meta|key.Control && code == key.CodeLeft:
		return d.tileLocked(2, 2, 0, 1)
	case mods == key.Meta|key.Control && code == key.CodeRight:
		return d.tileLocked(2, 2, 1, 1)
	}
	return false
}

func (d *Dispatcher) rotateFocusedLocked(delta int) {
	w := d.focused
	if w == nil || d.Z.TierOf(w) != zorder.Middle {
		return
	}
	d.Damage.MarkWindow(w)
	d.Reg.Lock()
	w.Rotation = (w.Rotation + delta + 360) % 360
	d.Reg.Unlock()
	d.Damage.MarkWindow(w)
}

func (d *Dispatcher) setRotationFocusedLocked(deg int) {
	w := d.focused
	if w == nil || d.Z.TierOf(w) != zorder.Middle {
		return
	}
	d.Damage.MarkWindow(w)
	d.Reg.Lock()
	w.Rotation = deg
	d.Reg.Unlock()
	d.Damage.MarkWindow(w)
}

// tileLocked implements tile(wdiv, hdiv, cx, cy): resize and
// relocate the focused middle window into one cell of a wdiv x hdiv grid
// below the top panel, if any. Disallowed for BOTTOM/TOP windows; reports
// whether it actually tiled anything.
func (d *Dispatcher) tileLocked(wdiv, hdiv, cx, cy int) bool {
	w := d.focused
	if w == nil || d.Z.TierOf(w) != zorder.Middle {
		return false
	}
	panelH := 0
	if top := d.Z.Top(); top != nil {
		panelH = top.Height
	}
	width := d.Width / wdiv
	height := (d.Height - panelH) / hdiv

	d.Damage.MarkWindow(w)
	d.Reg.Lock()
	w.X = width * cx
	w.Y = panelH + height*cy
	d.Reg.Unlock()
	d.Damage.MarkWindow(w)

	if d.Sink != nil {
		d.Sink.ResizeOffer(w, width, height)
	}
	return true
}
