// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabsym/compositor/damage"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/render"
	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/zorder"
)

type fakeBuffer struct{ data []byte }

func (f *fakeBuffer) Bytes() []byte { return f.data }
func (f *fakeBuffer) Close() error  { return nil }

type fakeAllocator struct{}

func (fakeAllocator) Create(name string, size int) (window.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}

type recordedEvent struct {
	kind    string
	wid     uint32
	x, y    int
	focused bool
	chord   key.Chord
}

type recordingSink struct {
	events []recordedEvent
}

func (s *recordingSink) MouseEvent(w *window.Window, kind wire.MouseEventKind, wx, wy int) {
	s.events = append(s.events, recordedEvent{kind: "mouse", wid: w.WID, x: wx, y: wy})
}
func (s *recordingSink) FocusChange(w *window.Window, focused bool) {
	s.events = append(s.events, recordedEvent{kind: "focus", wid: w.WID, focused: focused})
}
func (s *recordingSink) ResizeOffer(w *window.Window, width, height int) {
	s.events = append(s.events, recordedEvent{kind: "resize", wid: w.WID, x: width, y: height})
}
func (s *recordingSink) KeyEvent(w *window.Window, chord key.Chord, state wire.KeyState) {
	s.events = append(s.events, recordedEvent{kind: "key", wid: w.WID, chord: chord})
}
func (s *recordingSink) KeyBindEvent(owner window.ClientAddr, chord key.Chord, state wire.KeyState) {
	s.events = append(s.events, recordedEvent{kind: "keybind", chord: chord})
}

func newHarness(t *testing.T) (*Dispatcher, *window.Registry, *zorder.Manager, *recordingSink) {
	t.Helper()
	reg := window.New("test")
	reg.Alloc = fakeAllocator{}
	z := zorder.NewManager(reg)
	dmg := &damage.Queue{}
	loop := render.New(reg, z, dmg, 1024, 768, nil)
	sink := &recordingSink{}
	d := NewDispatcher(reg, z, dmg, loop, 1024, 768, sink)
	return d, reg, z, sink
}

func opaqueWindow(t *testing.T, reg *window.Registry, z *zorder.Manager, w, h int) *window.Window {
	t.Helper()
	win, err := reg.Create("client-a", w, h, 0)
	require.NoError(t, err)
	win.AnimMode = window.AnimNone
	for i := range win.Buffer.Pix {
		win.Buffer.Pix[i] = 0xff
	}
	z.Insert(win)
	return win
}

func TestLeftClickFocusesAndDispatchesMouseDown(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)

	d.HandleMotion(false, 10, 10, ButtonLeft)

	assert.Equal(t, w, d.Focused())
	require.GreaterOrEqual(t, len(sink.events), 2)
	assert.Equal(t, "focus", sink.events[0].kind)
	assert.True(t, sink.events[0].focused)
	assert.Equal(t, "mouse", sink.events[1].kind)
}

func TestReleaseWithoutMovementSendsClick(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	opaqueWindow(t, reg, z, 100, 100)

	d.HandleMotion(false, 10, 10, ButtonLeft)
	d.HandleMotion(false, 10, 10, 0) // release, same spot

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, "mouse", last.kind)
}

func TestAltLeftDragEntersMovingAndRepositionsWindow(t *testing.T) {
	d, reg, z, _ := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	d.SetFocus(w)

	d.mu.Lock()
	d.mods = key.Alt
	d.mu.Unlock()

	d.HandleMotion(false, 10, 10, ButtonLeft)
	assert.Equal(t, StateMoving, d.state)

	d.HandleMotion(false, 20, 20, ButtonLeft)
	assert.NotEqual(t, 0, w.X+w.Y)

	d.HandleMotion(false, 20, 20, 0)
	assert.Equal(t, StateNormal, d.state)
}

func TestAltDragMoveExactDelta(t *testing.T) {
	d, reg, z, _ := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	w.X, w.Y = 80, 80
	d.SetFocus(w)

	d.mu.Lock()
	d.mods = key.Alt
	d.mu.Unlock()

	d.HandleMotion(false, 100, 100, ButtonLeft)
	d.HandleMotion(false, 140, 140, ButtonLeft)
	d.HandleMotion(false, 140, 140, 0)

	assert.Equal(t, 120, w.X)
	assert.Equal(t, 120, w.Y)
	assert.Equal(t, StateNormal, d.state)
}

func TestTileHalfLeftBelowPanel(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	panel := opaqueWindow(t, reg, z, 1024, 24)
	z.Reorder(panel, wire.ZTop)
	w := opaqueWindow(t, reg, z, 100, 100)
	d.SetFocus(w)

	d.HandleKey(key.CodeLeft, wire.KeyDown, key.Meta)

	assert.Equal(t, 0, w.X)
	assert.Equal(t, 24, w.Y)
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, "resize", last.kind)
	assert.Equal(t, 512, last.x)
	assert.Equal(t, 372, last.y)
}

func TestRotateChordRotatesMiddleWindowOnly(t *testing.T) {
	d, reg, z, _ := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	d.SetFocus(w)

	d.HandleKey(key.CodeZ, wire.KeyDown, key.Control|key.Shift)
	assert.Equal(t, 355, w.Rotation)

	d.HandleKey(key.CodeX, wire.KeyDown, key.Control|key.Shift)
	assert.Equal(t, 0, w.Rotation)
}

func TestKeyBindStealPreventsFocusedDelivery(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	d.SetFocus(w)

	chord := key.Pack(key.Control, key.CodeF10)
	d.Bind(chord, "subscriber-a", wire.Steal)

	before := len(sink.events)
	d.HandleKey(key.CodeF10, wire.KeyDown, key.Control)
	after := sink.events[before:]

	require.Len(t, after, 1)
	assert.Equal(t, "keybind", after[0].kind)
}

func TestTileMaximizeResizesAndRepositions(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	d.SetFocus(w)

	d.HandleKey(key.CodeF10, wire.KeyDown, key.Alt)

	assert.Equal(t, 0, w.X)
	assert.Equal(t, 0, w.Y)
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, "resize", last.kind)
	assert.Equal(t, 1024, last.x)
	assert.Equal(t, 768, last.y)
}

func TestTileDisallowedForTopTierWindow(t *testing.T) {
	d, reg, z, sink := newHarness(t)
	w := opaqueWindow(t, reg, z, 100, 100)
	z.Reorder(w, wire.ZTop)
	d.SetFocus(w)

	originX, originY := w.X, w.Y
	before := len(sink.events)
	d.HandleKey(key.CodeF10, wire.KeyDown, key.Alt)
	after := sink.events[before:]

	// Not tileable: the chord falls through to ordinary key delivery
	// instead of a resize, and geometry is untouched.
	require.Len(t, after, 1)
	assert.Equal(t, "key", after[0].kind)
	assert.Equal(t, originX, w.X)
	assert.Equal(t, originY, w.Y)
}
