// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package damage implements the thread-safe queue of dirty rectangles the
// render loop drains each frame, with a coarse coalescing policy:
// rather than keep a list and union it at composite time, each
// enqueue immediately unions into one running clip rectangle.
package damage

import (
	"sync"

	"github.com/yabsym/compositor/geom"
	"github.com/yabsym/compositor/window"
)

// Queue is the compositor's update list, guarded by its own lock. This
// lock is always acquired after, never together across a sleep with,
// the registry's redraw lock.
type Queue struct {
	mu    sync.Mutex
	clip  geom.Rect
	dirty bool
}

// MarkRegion enqueues r directly.
func (q *Queue) MarkRegion(r geom.Rect) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clip = q.clip.Union(r)
	q.dirty = true
}

// MarkWindow enqueues the AABB of w's (possibly rotated) bounds.
func (q *Queue) MarkWindow(w *window.Window) {
	gw := geom.Window{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Rotation: w.Rotation}
	q.MarkRegion(geom.AABBOfRectInDevice(gw, 0, 0, w.Width, w.Height))
}

// MarkWindowRelative enqueues the AABB of a window-local rect.
func (q *Queue) MarkWindowRelative(w *window.Window, x, y, wid, h int) {
	gw := geom.Window{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height, Rotation: w.Rotation}
	q.MarkRegion(geom.AABBOfRectInDevice(gw, x, y, wid, h))
}

// Drain returns the accumulated clip rectangle and clears the queue. The
// second return is false if nothing was pending.
func (q *Queue) Drain() (geom.Rect, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.dirty {
		return geom.Rect{}, false
	}
	clip := q.clip
	q.clip = geom.Rect{}
	q.dirty = false
	return clip, true
}
