// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zorder implements the three-tier window stack (bottom / middle
// sequence / top) and per-pixel-alpha hit testing.
package zorder

import (
	"container/list"

	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/window"
)

// Tier is which of the three stacking classes a window belongs to.
type Tier int

const (
	Bottom Tier = iota
	Middle
	Top
)

// Manager is the authoritative z-order over a window.Registry. Mutations
// are guarded by the registry's redraw_lock (one lock covers both
// the registry and the z-order tiers), not a separate lock.
type Manager struct {
	reg *window.Registry

	bottom *window.Window
	top    *window.Window
	mid    *list.List // back-to-front; Back() is frontmost (make_top target)

	elems map[uint32]*list.Element
}

// NewManager returns an empty z-order over reg.
func NewManager(reg *window.Registry) *Manager {
	return &Manager{reg: reg, mid: list.New(), elems: make(map[uint32]*list.Element)}
}

// TierOf reports which tier w currently occupies.
func (m *Manager) TierOf(w *window.Window) Tier {
	if m.bottom == w {
		return Bottom
	}
	if m.top == w {
		return Top
	}
	return Middle
}

// Insert places a freshly created window into the middle sequence,
// front-most, matching a new window's initial placement (z=1, an
// ordinal, i.e. middle).
func (m *Manager) Insert(w *window.Window) {
	m.reg.Lock()
	defer m.reg.Unlock()
	m.insertMiddleFrontLocked(w)
}

func (m *Manager) insertMiddleFrontLocked(w *window.Window) {
	el := m.mid.PushBack(w)
	m.elems[w.WID] = el
}

func (m *Manager) removeLocked(w *window.Window) {
	switch {
	case m.bottom == w:
		m.bottom = nil
	case m.top == w:
		m.top = nil
	default:
		if el, ok := m.elems[w.WID]; ok {
			m.mid.Remove(el)
			delete(m.elems, w.WID)
		}
	}
}

// Reorder removes w from its current tier and assigns newZ. If newZ
// targets BOTTOM or TOP and that tier is already occupied, the previous
// occupant is demoted to the back of the middle sequence.
func (m *Manager) Reorder(w *window.Window, newZ uint32) {
	m.reg.Lock()
	defer m.reg.Unlock()
	m.removeLocked(w)

	switch newZ {
	case wire.ZBottom:
		if prev := m.bottom; prev != nil && prev != w {
			m.bottom = nil
			m.mid.PushFront(prev)
			m.elems[prev.WID] = m.mid.Front()
		}
		m.bottom = w
		w.Z = wire.ZBottom
	case wire.ZTop:
		if prev := m.top; prev != nil && prev != w {
			m.top = nil
			m.mid.PushFront(prev)
			m.elems[prev.WID] = m.mid.Front()
		}
		m.top = w
		w.Z = wire.ZTop
	default:
		m.insertMiddleFrontLocked(w)
		w.Z = newZ
	}
}

// MakeTop moves a middle window to the end of the middle sequence
// (front-most among middles). Windows in BOTTOM/TOP are unaffected.
func (m *Manager) MakeTop(w *window.Window) {
	m.reg.Lock()
	defer m.reg.Unlock()
	if m.bottom == w || m.top == w {
		return
	}
	if el, ok := m.elems[w.WID]; ok {
		m.mid.Remove(el)
	}
	el := m.mid.PushBack(w)
	m.elems[w.WID] = el
}

// Remove takes w out of whichever tier it occupies, e.g. on close.
func (m *Manager) Remove(w *window.Window) {
	m.reg.Lock()
	defer m.reg.Unlock()
	m.removeLocked(w)
}

// Bottom/Top return the current occupant of each singleton tier, if any.
func (m *Manager) Bottom() *window.Window { return m.bottom }
func (m *Manager) Top() *window.Window    { return m.top }

// Middles returns the middle sequence back-to-front (the same order
// composition walks it).
func (m *Manager) Middles() []*window.Window {
	out := make([]*window.Window, 0, m.mid.Len())
	for e := m.mid.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*window.Window))
	}
	return out
}

// All returns every window across all three tiers, in the exact order
// composition paints them: bottom, then middles back-to-front, then top.
func (m *Manager) All() []*window.Window {
	out := make([]*window.Window, 0, m.mid.Len()+2)
	if m.bottom != nil {
		out = append(out, m.bottom)
	}
	out = append(out, m.Middles()...)
	if m.top != nil {
		out = append(out, m.top)
	}
	return out
}

// HitTest implements top_at(x, y): evaluate top, then the middle
// sequence front to back, then bottom. For each candidate, map (x, y) to
// window coordinates, reject if outside the rectangle, and accept iff the
// pixel's alpha is >= the window's alpha threshold.
func (m *Manager) HitTest(x, y int) *window.Window {
	m.reg.RLock()
	defer m.reg.RUnlock()

	candidates := make([]*window.Window, 0, m.mid.Len()+2)
	if m.top != nil {
		candidates = append(candidates, m.top)
	}
	for e := m.mid.Back(); e != nil; e = e.Prev() {
		candidates = append(candidates, e.Value.(*window.Window))
	}
	if m.bottom != nil {
		candidates = append(candidates, m.bottom)
	}

	for _, w := range candidates {
		if hit(w, x, y) {
			return w
		}
	}
	return nil
}

func hit(w *window.Window, x, y int) bool {
	gw := geom.Window{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Rotation: w.Rotation}
	wx, wy := geom.DeviceToWindow(gw, x, y)
	if wx < 0 || wy < 0 || wx >= w.Width || wy >= w.Height {
		return false
	}
	if w.Buffer == nil {
		return false
	}
	return w.Buffer.Alpha(wx, wy) >= w.AlphaThreshold
}
