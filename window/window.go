// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package window implements the window model and registry: window
// records, id allocation, the client→windows index, and shm-backed pixel
// buffers.
package window

import (
	"github.com/yabsym/compositor/backend"
)

// ClientAddr identifies a client on the transport.
type ClientAddr string

// AnimMode is the window's current animation, if any.
type AnimMode int

const (
	AnimNone AnimMode = iota
	FadeIn
	FadeOut
)

// AnimLength is the number of ticks each animation mode runs for, indexed
// by AnimMode. 256 ticks at the renderer's 10-units-per-frame clock is
// ~25 frames at 60 Hz.
var AnimLength = map[AnimMode]int{
	FadeIn:  256,
	FadeOut: 256,
}

// Window is one logical client surface.
type Window struct {
	WID   uint32
	Owner ClientAddr

	X, Y          int
	Width, Height int
	Z             uint32 // z as clients see it: BOTTOM/TOP sentinel or a middle ordinal, cache only
	Rotation      int
	AlphaThreshold uint8

	BufID  uint32
	Buffer *backend.Surface
	bufRegion region

	NewBufID  uint32
	NewBuffer *backend.Surface
	newRegion region

	AnimMode  AnimMode
	AnimStart int64 // tick_count at which the animation began

	ClientFlags   uint32
	ClientOffsets [5]uint32
	ClientStrings []byte
}

// region is the minimal surface a shm-backed buffer must expose; window
// doesn't need all of shm.Region, just enough to release it on
// close/resize. Defined as an interface so tests can fake it without a
// real /dev/shm.
type region interface {
	Close() error
}

// Window field mutations (geometry, z, rotation, animation state,
// buffers, advertised metadata) are never guarded by a lock of their own:
// every mutation of a live Window's fields is made while holding the
// registry's redraw_lock, either inside a Registry method or between
// Registry.Lock and Registry.Unlock, and the render loop holds that same
// lock for the entire composition pass. Pixel contents of Buffer are written directly by the owning
// client process outside of any Go-side lock; the compositor only reads
// them during composition, under redraw_lock.
//
// IsAnimating reports whether the window has an active fade.
func (w *Window) IsAnimating() bool { return w.AnimMode != AnimNone }

// FadeEnvelope computes the alpha/scale envelope for the window's current
// animation at the given tick. ok is false once the
// animation has run its full length; the caller then clears AnimMode (and,
// for FadeOut, schedules removal).
func (w *Window) FadeEnvelope(tick int64) (alpha, scale float64, ok bool) {
	length := AnimLength[w.AnimMode]
	frame := tick - w.AnimStart
	if frame < 0 {
		frame = 0
	}
	if int(frame) >= length {
		return 1, 1, false
	}
	f := float64(frame) / float64(length)
	scale = 0.75 + 0.25*f
	switch w.AnimMode {
	case FadeIn:
		alpha = f
	case FadeOut:
		alpha = 1 - f
	default:
		alpha = 1
	}
	return alpha, scale, true
}
