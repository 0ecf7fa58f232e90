// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabsym/compositor/wire"
	"github.com/yabsym/compositor/window"
)

type fakeBuffer struct{ data []byte }

func (f *fakeBuffer) Bytes() []byte { return f.data }
func (f *fakeBuffer) Close() error  { return nil }

type fakeAllocator struct{}

func (fakeAllocator) Create(name string, size int) (window.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}

func newTestReg() *window.Registry {
	r := window.New("test")
	r.Alloc = fakeAllocator{}
	return r
}

func opaqueWindow(t *testing.T, r *window.Registry, w, h int) *window.Window {
	win, err := r.Create("c", w, h, 0)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			win.Buffer.Set(x, y, fullyOpaque)
		}
	}
	return win
}

var fullyOpaque = rgba(255, 255, 255, 255)

func rgba(r, g, b, a uint8) imgColor {
	return imgColor{r, g, b, a}
}

// imgColor implements color.Color minimally via RGBA().
type imgColor struct{ R, G, B, A uint8 }

func (c imgColor) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = uint32(c.A) * 0x101
	return
}

func TestMakeTopReordersMiddleOnly(t *testing.T) {
	r := newTestReg()
	m := NewManager(r)
	a := opaqueWindow(t, r, 10, 10)
	b := opaqueWindow(t, r, 10, 10)
	m.Insert(a)
	m.Insert(b)

	assert.Equal(t, []*window.Window{a, b}, m.Middles())
	m.MakeTop(a)
	assert.Equal(t, []*window.Window{b, a}, m.Middles())
}

func TestReorderToBottomDemotesPreviousOccupant(t *testing.T) {
	r := newTestReg()
	m := NewManager(r)
	a := opaqueWindow(t, r, 10, 10)
	b := opaqueWindow(t, r, 10, 10)
	m.Reorder(a, wire.ZBottom)
	assert.Equal(t, a, m.Bottom())

	m.Reorder(b, wire.ZBottom)
	assert.Equal(t, b, m.Bottom())
	assert.Contains(t, m.Middles(), a)
}

func TestAtMostOneBottomOneTop(t *testing.T) {
	r := newTestReg()
	m := NewManager(r)
	a := opaqueWindow(t, r, 10, 10)
	b := opaqueWindow(t, r, 10, 10)
	c := opaqueWindow(t, r, 10, 10)
	m.Reorder(a, wire.ZBottom)
	m.Reorder(b, wire.ZBottom)
	m.Reorder(c, wire.ZTop)

	bottoms, tops := 0, 0
	for _, w := range m.All() {
		if m.TierOf(w) == Bottom {
			bottoms++
		}
		if m.TierOf(w) == Top {
			tops++
		}
	}
	assert.Equal(t, 1, bottoms)
	assert.Equal(t, 1, tops)
}

func TestHitTestOrderTopBeatsMiddleBeatsBottom(t *testing.T) {
	r := newTestReg()
	m := NewManager(r)
	bottom := opaqueWindow(t, r, 50, 50)
	mid := opaqueWindow(t, r, 50, 50)
	m.Reorder(bottom, wire.ZBottom)
	m.Insert(mid)

	hit := m.HitTest(10, 10)
	assert.Equal(t, mid, hit, "middle window occludes bottom at an overlapping point")

	top := opaqueWindow(t, r, 50, 50)
	m.Reorder(top, wire.ZTop)
	assert.Equal(t, top, m.HitTest(10, 10), "top window occludes middle at an overlapping point")
}

func TestHitTestThroughAlphaHole(t *testing.T) {
	r := newTestReg()
	m := NewManager(r)
	lower := opaqueWindow(t, r, 20, 20)
	upper, err := r.Create("c", 20, 20, 0)
	require.NoError(t, err)
	// With the default threshold of 0 every in-rect pixel hits; shaped
	// hit testing needs the threshold a client sets via
	// WINDOW_UPDATE_SHAPE.
	upper.AlphaThreshold = 1
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if x >= 5 && x < 15 && y >= 5 && y < 15 {
				continue // hole: leave fully transparent
			}
			upper.Buffer.Set(x, y, fullyOpaque)
		}
	}
	m.Insert(lower)
	m.Insert(upper)

	assert.Equal(t, lower, m.HitTest(10, 10), "hole pixel should hit the window behind")
	assert.Equal(t, upper, m.HitTest(1, 1), "opaque pixel should hit the front window")
}
