// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render implements the damage-driven compositor loop: a
// fixed-cadence (60 Hz) goroutine that coalesces dirty rectangles,
// composes windows in z-order, applies per-window effects, draws the
// cursor, and presents.
package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yabsym/compositor/backend"
	"github.com/yabsym/compositor/damage"
	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/zorder"
)

// TickAdvance is how much tick_count advances per frame.
const TickAdvance = 10

// FrameInterval is the fixed sleep between frames, targeting 60 Hz.
const FrameInterval = 16700 * time.Microsecond

// Presenter performs step 7 of the render tick: copying the composited
// framebuffer to wherever pixels actually end up. NativePresenter does
// this directly; a nested-mode presenter forwards to a host compositor's
// own client API (see the nested package).
type Presenter interface {
	Present(fb *backend.Backend, clip image.Rectangle)
}

// NativePresenter copies the framebuffer to a real output surface with
// the SOURCE operator.
type NativePresenter struct{ Out draw.Image }

func (p NativePresenter) Present(fb *backend.Backend, clip image.Rectangle) {
	fb.Present(p.Out, clip)
}

// Loop owns the render goroutine's state: the tick clock, cursor
// tracking, the resize-box overlay, and the set of windows whose
// fade-out completed this frame.
type Loop struct {
	Reg       *window.Registry
	Z         *zorder.Manager
	Damage    *damage.Queue
	Backend   *backend.Backend
	Presenter Presenter
	Width, Height int

	// OnWindowRemoved is called (off the render goroutine's critical
	// section) after a window's FADE_OUT completes and it has been
	// unmapped and removed from all indices; the server uses this to
	// notify window-list subscribers.
	OnWindowRemoved func(w *window.Window)

	tick int64

	cursorX, cursorY         int32
	lastCursorX, lastCursorY int32
	cursorKind               int32

	resizeMu   sync.Mutex
	resizing   bool
	resizeRect geom.Rect

	debugHitShape int32
	debugBounds   int32

	// toRemove accumulates windows whose FADE_OUT completed this tick
	// Only ever touched from the render
	// goroutine, so it needs no lock of its own.
	toRemove []*window.Window
}

// New builds a Loop compositing onto an in-memory framebuffer of the
// given size, presented via presenter.
func New(reg *window.Registry, z *zorder.Manager, dmg *damage.Queue, width, height int, presenter Presenter) *Loop {
	fb := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Loop{
		Reg: reg, Z: z, Damage: dmg,
		Backend:   backend.New(fb),
		Presenter: presenter,
		Width:     width, Height: height,
	}
}

// Tick returns the current animation clock value.
func (l *Loop) Tick() int64 { return atomic.LoadInt64(&l.tick) }

// SetCursor records the pointer's device-space position; the next frame
// damages both the old and new 64x64 footprints if it moved.
func (l *Loop) SetCursor(x, y int) {
	atomic.StoreInt32(&l.cursorX, int32(x))
	atomic.StoreInt32(&l.cursorY, int32(y))
}

// SetCursorKind selects which sprite is drawn at the pointer.
func (l *Loop) SetCursorKind(k CursorKind) {
	atomic.StoreInt32(&l.cursorKind, int32(k))
}

// SetResizing shows or hides the live resize box.
func (l *Loop) SetResizing(active bool, r geom.Rect) {
	l.resizeMu.Lock()
	l.resizing, l.resizeRect = active, r
	l.resizeMu.Unlock()
}

// SetDebugHitShape toggles the Ctrl+Shift+V overlay.
func (l *Loop) SetDebugHitShape(on bool) { atomicStoreBool(&l.debugHitShape, on) }

// SetDebugBounds toggles the Ctrl+Shift+B overlay.
func (l *Loop) SetDebugBounds(on bool) { atomicStoreBool(&l.debugBounds, on) }

func atomicStoreBool(addr *int32, v bool) {
	if v {
		atomic.StoreInt32(addr, 1)
	} else {
		atomic.StoreInt32(addr, 0)
	}
}

// Run drives Tick on a fixed-interval ticker until ctx is cancelled. No
// lock is ever held across this sleep.
func (l *Loop) Run(ctx context.Context) {
	t := time.NewTicker(FrameInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Tick1()
		}
	}
}

// Tick1 performs exactly one render tick.
func (l *Loop) Tick1() {
	tick := atomic.AddInt64(&l.tick, TickAdvance)

	l.markCursorDamage()
	l.markAnimatingWindows()

	clip, any := l.Damage.Drain()
	if any {
		l.composite(tick, toImageRect(clip))
	}

	l.drawResizeBox()
	l.present(toImageRect(clip))
	l.closeRemoved()
}

func (l *Loop) markCursorDamage() {
	x, y := atomic.LoadInt32(&l.cursorX), atomic.LoadInt32(&l.cursorY)
	lx, ly := atomic.LoadInt32(&l.lastCursorX), atomic.LoadInt32(&l.lastCursorY)
	if x == lx && y == ly {
		return
	}
	l.Damage.MarkRegion(geom.Rect{X: int(lx), Y: int(ly), W: CursorSize, H: CursorSize})
	l.Damage.MarkRegion(geom.Rect{X: int(x), Y: int(y), W: CursorSize, H: CursorSize})
	atomic.StoreInt32(&l.lastCursorX, x)
	atomic.StoreInt32(&l.lastCursorY, y)
}

func (l *Loop) markAnimatingWindows() {
	for _, w := range l.Reg.All() {
		if w.IsAnimating() {
			l.Damage.MarkWindow(w)
		}
	}
}

func (l *Loop) composite(tick int64, clip image.Rectangle) {
	l.Reg.Lock()
	defer l.Reg.Unlock()

	l.toRemove = l.toRemove[:0]
	if b := l.Z.Bottom(); b != nil {
		l.paintWindow(b, zorder.Bottom, tick, clip)
	}
	for _, w := range l.Z.Middles() {
		l.paintWindow(w, zorder.Middle, tick, clip)
	}
	if top := l.Z.Top(); top != nil {
		l.paintWindow(top, zorder.Top, tick, clip)
	}
}

// paintWindow composites one window. The caller (composite) holds the
// registry's redraw_lock for the entire pass, so every Window field read
// or written here, including clearing AnimMode when an animation ends,
// is already covered by that single lock.
func (l *Loop) paintWindow(w *window.Window, tier zorder.Tier, tick int64, clip image.Rectangle) {
	buf := w.Buffer
	if buf == nil {
		return
	}

	var src image.Image = buf
	if tier == zorder.Middle && w.Rotation != 0 {
		src = backend.Rotate(buf, radians(w.Rotation))
	}

	if w.AnimMode == window.AnimNone {
		l.Backend.Blit(src, w.X, w.Y, clip)
		l.drawDebugOverlays(w)
		return
	}

	finished := w.AnimMode
	alpha, scale, ok := w.FadeEnvelope(tick)
	if !ok {
		w.AnimMode = window.AnimNone
		if finished == window.FadeOut {
			l.toRemove = append(l.toRemove, w)
		}
		l.Backend.Blit(src, w.X, w.Y, clip)
		l.drawDebugOverlays(w)
		return
	}

	if tier == zorder.Middle && scale != 1 {
		src = backend.Scale(src, scale, scale)
	}
	l.Backend.PaintWithAlpha(src, w.X, w.Y, alpha, clip)
	l.drawDebugOverlays(w)
}

// drawDebugOverlays renders the Ctrl+Shift+V / Ctrl+Shift+B overlays on
// top of a freshly painted window: a tint over every pixel that passes
// the hit-test alpha threshold, and a stroked bounding box. The
// hit-shape tint is skipped for rotated windows, matching the
// axis-aligned limitation of damage tracking.
func (l *Loop) drawDebugOverlays(w *window.Window) {
	gw := geom.Window{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Rotation: w.Rotation}

	if atomic.LoadInt32(&l.debugHitShape) != 0 && w.Buffer != nil && w.Rotation == 0 {
		for y := 0; y < w.Height; y++ {
			for x := 0; x < w.Width; x++ {
				if w.Buffer.Alpha(x, y) >= w.AlphaThreshold {
					blendPixel(l.Backend.Dst, w.X+x, w.Y+y, hitShapeTint)
				}
			}
		}
	}

	if atomic.LoadInt32(&l.debugBounds) != 0 {
		strokeRect(l.Backend.Dst, toImageRect(geom.AABBOfRectInDevice(gw, 0, 0, w.Width, w.Height)), boundsPen)
	}
}

func blendPixel(dst draw.Image, x, y int, c color.RGBA) {
	r := image.Rect(x, y, x+1, y+1)
	draw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	u := &image.Uniform{C: c}
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Over)
}

func (l *Loop) drawResizeBox() {
	l.resizeMu.Lock()
	active, r := l.resizing, l.resizeRect
	l.resizeMu.Unlock()
	if !active {
		return
	}
	box := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	draw.Draw(box, box.Bounds(), &image.Uniform{C: translucentBlue}, image.Point{}, draw.Src)
	l.Backend.Blit(box, r.X, r.Y, image.Rectangle{})
}

func (l *Loop) present(clip image.Rectangle) {
	if l.Presenter == nil {
		return
	}
	kind := CursorKind(atomic.LoadInt32(&l.cursorKind))
	if _, ok := l.Presenter.(NativePresenter); ok {
		x, y := atomic.LoadInt32(&l.cursorX), atomic.LoadInt32(&l.cursorY)
		l.Backend.Blit(Sprite(kind), int(x), int(y), image.Rectangle{})
	}
	l.Presenter.Present(l.Backend, clip)
}

func (l *Loop) closeRemoved() {
	for _, w := range l.toRemove {
		l.Z.Remove(w)
		l.Reg.Close(w.WID)
		if l.OnWindowRemoved != nil {
			l.OnWindowRemoved(w)
		}
	}
	l.toRemove = nil
}

func toImageRect(r geom.Rect) image.Rectangle {
	if r.W == 0 && r.H == 0 {
		return image.Rectangle{}
	}
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func radians(deg int) float64 { return float64(deg) * 3.14159265358979323846 / 180 }

var (
	translucentBlue = color.RGBA{R: 60, G: 120, B: 220, A: 110}
	hitShapeTint    = color.RGBA{R: 40, G: 200, B: 80, A: 90}
	boundsPen       = color.RGBA{R: 230, G: 60, B: 60, A: 255}
)
