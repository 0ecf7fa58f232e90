// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package input

import (
	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/render"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/wire"
)

// HandleMotion feeds one pointer-motion sample (relative delta or
// absolute position) through the interaction FSM, along with the
// currently held buttons. Modifiers are tracked separately via
// HandleKey's kbd_state mirror.
func (d *Dispatcher) HandleMotion(relative bool, dx, dy int, buttons Buttons) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if relative {
		d.mouseX += dx * 3
		d.mouseY += dy * 3
	} else {
		d.mouseX = dx * 3
		d.mouseY = dy * 3
	}
	maxX, maxY := d.Width*MouseScale, d.Height*MouseScale
	d.mouseX = clamp(d.mouseX, 0, maxX)
	d.mouseY = clamp(d.mouseY, 0, maxY)

	x, y := d.mouseX/MouseScale, d.mouseY/MouseScale
	d.Loop.SetCursor(x, y)

	switch d.state {
	case StateNormal:
		d.normalLocked(x, y, buttons)
	case StateMoving:
		d.movingLocked(x, y, buttons)
	case StateDragging:
		d.draggingLocked(x, y, buttons)
	case StateResizing:
		d.resizingLocked(x, y, buttons)
	}

	switch d.state {
	case StateMoving:
		d.Loop.SetCursorKind(render.CursorMove)
	case StateResizing:
		d.Loop.SetCursorKind(render.CursorResize)
	default:
		d.Loop.SetCursorKind(render.CursorNormal)
	}
}

// StartMove begins a MOVING interaction on w at the current pointer
// position, for the WINDOW_DRAG_START request: clients use
// it to let their title bars move the whole window.
func (d *Dispatcher) StartMove(w *window.Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setFocusLocked(w)
	d.state = StateMoving
	d.snapOriginX, d.snapOriginY = w.X, w.Y
	d.snapPointerX, d.snapPointerY = d.mouseX/MouseScale, d.mouseY/MouseScale
}

func (d *Dispatcher) normalLocked(x, y int, buttons Buttons) {
	switch {
	case buttons&ButtonLeft != 0 && d.altHeld():
		if d.focused == nil {
			return
		}
		d.state = StateMoving
		d.snapOriginX, d.snapOriginY = d.focused.X, d.focused.Y
		d.snapPointerX, d.snapPointerY = x, y
		w := d.focused
		d.mu.Unlock()
		d.Z.MakeTop(w)
		d.mu.Lock()

	case buttons&ButtonMiddle != 0 && d.altHeld():
		if d.focused == nil {
			return
		}
		d.state = StateResizing
		d.snapPointerX, d.snapPointerY = x, y
		d.snapW, d.snapH = d.focused.Width, d.focused.Height
		w := d.focused
		d.mu.Unlock()
		d.Loop.SetResizing(true, geom.Rect{X: w.X, Y: w.Y, W: w.Width, H: w.Height})
		d.mu.Lock()

	case buttons&ButtonLeft != 0:
		w := d.Z.HitTest(x, y)
		d.setFocusLocked(w)
		d.state = StateDragging
		d.dragMoved = false
		if w != nil {
			d.lastDragWX, d.lastDragWY = deviceToWindow(w, x, y)
			d.sendMouse(w, wire.MouseDown, x, y)
		}

	default:
		focused := d.focused
		if focused != nil {
			d.sendMouse(focused, wire.MouseMove, x, y)
		}
		tmp := d.Z.HitTest(x, y)
		if tmp != d.oldHover {
			if tmp != nil {
				d.sendMouse(tmp, wire.MouseEnter, x, y)
			}
			if d.oldHover != nil {
				d.sendMouse(d.oldHover, wire.MouseLeave, x, y)
			}
			d.oldHover = tmp
		}
		if tmp != nil && tmp != focused {
			d.sendMouse(tmp, wire.MouseMove, x, y)
		}
	}
}

func (d *Dispatcher) movingLocked(x, y int, buttons Buttons) {
	w := d.focused
	if w == nil || buttons&ButtonLeft == 0 {
		d.state = StateNormal
		return
	}
	d.Damage.MarkWindow(w)
	d.Reg.Lock()
	w.X = d.snapOriginX + (x - d.snapPointerX)
	w.Y = d.snapOriginY + (y - d.snapPointerY)
	d.Reg.Unlock()
	d.Damage.MarkWindow(w)
}

func (d *Dispatcher) draggingLocked(x, y int, buttons Buttons) {
	w := d.focused
	if buttons&ButtonLeft == 0 {
		if w != nil {
			if d.dragMoved {
				d.sendMouse(w, wire.MouseRaise, x, y)
			} else {
				d.sendMouse(w, wire.MouseClick, x, y)
			}
		}
		d.state = StateNormal
		return
	}
	if w == nil {
		return
	}
	wx, wy := deviceToWindow(w, x, y)
	if wx != d.lastDragWX || wy != d.lastDragWY {
		d.sendMouse(w, wire.MouseDrag, x, y)
		d.dragMoved = true
		d.lastDragWX, d.lastDragWY = wx, wy
	}
}

func (d *Dispatcher) resizingLocked(x, y int, buttons Buttons) {
	w := d.focused
	if w == nil {
		d.state = StateNormal
		return
	}
	newW := d.snapW + (x - d.snapPointerX)
	newH := d.snapH + (y - d.snapPointerY)

	if buttons&ButtonMiddle == 0 {
		d.mu.Unlock()
		d.Loop.SetResizing(false, geom.Rect{})
		d.mu.Lock()
		d.state = StateNormal
		if newW > 0 && newH > 0 && d.Sink != nil {
			d.Sink.ResizeOffer(w, newW, newH)
		}
		return
	}

	const margin, slack = 2, 10
	box := geom.Rect{X: w.X - margin, Y: w.Y - margin, W: newW + 2*margin + slack, H: newH + 2*margin + slack}
	d.Damage.MarkRegion(box)
	d.mu.Unlock()
	d.Loop.SetResizing(true, box)
	d.mu.Lock()
}

// altHeld reports whether Alt is currently held, per the kbd_state
// mirror HandleKey maintains.
func (d *Dispatcher) altHeld() bool {
	return d.mods.Has(key.Alt)
}
