// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geom implements device/window coordinate mapping with
// rotation, and axis-aligned bounding boxes of rotated rectangles.
package geom

import "math"

// Point is an integer device or window-local coordinate.
type Point struct{ X, Y int }

// Rect is an axis-aligned rectangle in device coordinates, top-left origin.
type Rect struct{ X, Y, W, H int }

// Union returns the smallest rect containing both r and o. A zero-valued
// Rect (W==0 && H==0) is treated as empty and does not contribute.
func (r Rect) Union(o Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return o
	}
	if o.W == 0 && o.H == 0 {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Window is the subset of window state geometry needs: origin, size, and
// rotation in degrees.
type Window struct {
	X, Y          int
	Width, Height int
	Rotation      int
}

// radians converts the window's rotation in degrees to radians.
func (w Window) radians() float64 {
	return math.Pi * float64(w.Rotation) / 180.0
}

func (w Window) center() (cx, cy float64) {
	return float64(w.X) + float64(w.Width)/2, float64(w.Y) + float64(w.Height)/2
}

// rotate rotates (x, y) about (cx, cy) by theta radians.
func rotate(x, y, cx, cy, theta float64) (float64, float64) {
	s, c := math.Sin(theta), math.Cos(theta)
	dx, dy := x-cx, y-cy
	return cx + dx*c - dy*s, cy + dx*s + dy*c
}

// DeviceToWindow maps a device-coordinate point into the window's local
// coordinate space: subtract the window's origin, then, if the window is
// rotated, rotate by -rotation about the window's center.
//
// Positive rotation is counterclockwise at composite time; hit-testing
// therefore rotates by the negative angle to undo it.
func DeviceToWindow(w Window, dx, dy int) (int, int) {
	x, y := float64(dx), float64(dy)
	if w.Rotation != 0 {
		cx, cy := w.center()
		x, y = rotate(x, y, cx, cy, -w.radians())
	}
	return int(x) - w.X, int(y) - w.Y
}

// WindowToDevice is the inverse of DeviceToWindow: translate by the
// window's origin, then rotate by +rotation about the window's center.
func WindowToDevice(w Window, wx, wy int) (int, int) {
	x, y := float64(wx+w.X), float64(wy+w.Y)
	if w.Rotation != 0 {
		cx, cy := w.center()
		x, y = rotate(x, y, cx, cy, w.radians())
	}
	return int(x), int(y)
}

// AABBOfRectInDevice returns the axis-aligned bounding box, in device
// coordinates, of the window-local rectangle (x, y, width, height) after
// applying the window's rotation. For rotation == 0 this is exactly the
// device-space rectangle; for any rotation the result is guaranteed to
// contain the true (rotated) rectangle. Rotated windows therefore
// over-damage, never under-damage.
func AABBOfRectInDevice(w Window, x, y, width, height int) Rect {
	corners := [4][2]int{
		{x, y}, {x + width, y}, {x, y + height}, {x + width, y + height},
	}
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt
	for _, c := range corners {
		dx, dy := WindowToDevice(w, c[0], c[1])
		minX, minY = min(minX, dx), min(minY, dy)
		maxX, maxY = max(maxX, dx), max(maxY, dy)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

// WindowRect returns the window's own device-space rectangle (ignoring
// rotation): the rect mark_window would enqueue were rotation zero.
func WindowRect(w Window) Rect {
	return Rect{w.X, w.Y, w.Width, w.Height}
}
