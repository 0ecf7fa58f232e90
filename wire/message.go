// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire defines the compositor's client protocol: a fixed magic
// sentinel, a type tag, and a type-specific body.
package wire

// Magic is the fixed sentinel every message begins with. Inbound messages
// with a different value are logged and dropped.
const Magic uint32 = 0x434f4d50 // "COMP"

// Type tags the body that follows magic+size in every message.
type Type uint32

const (
	HELLO Type = iota + 1
	WELCOME
	WINDOW_NEW
	WINDOW_INIT
	FLIP
	FLIP_REGION
	KEY_EVENT
	MOUSE_EVENT
	WINDOW_MOUSE_EVENT
	WINDOW_MOVE
	WINDOW_CLOSE
	WINDOW_STACK
	RESIZE_REQUEST
	RESIZE_OFFER
	RESIZE_ACCEPT
	RESIZE_BUFID
	RESIZE_DONE
	QUERY_WINDOWS
	WINDOW_ADVERTISE
	SUBSCRIBE
	UNSUBSCRIBE
	NOTIFY
	SESSION_END
	WINDOW_FOCUS
	WINDOW_FOCUS_CHANGE
	KEY_BIND
	WINDOW_DRAG_START
	WINDOW_UPDATE_SHAPE
)

// Reserved z-order sentinels.
const (
	ZBottom uint32 = 0xFFFF
	ZTop    uint32 = 0xFFFE
)

// BindMode is the steal-or-pass behavior of a key binding.
type BindMode uint8

const (
	Pass BindMode = iota
	Steal
)

// MouseEventKind distinguishes the WINDOW_MOUSE_EVENT variants sent to
// clients (down/up/move/drag/enter/leave/click/raise), folded into one
// field rather than one message type per kind.
type MouseEventKind uint8

const (
	MouseDown MouseEventKind = iota
	MouseUp
	MouseMove
	MouseDrag
	MouseEnter
	MouseLeave
	MouseClick
	MouseRaise
)

// KeyState distinguishes press from release in KEY_EVENT.
type KeyState uint8

const (
	KeyUp KeyState = iota
	KeyDown
)

// MotionKind distinguishes relative from absolute MOUSE_EVENT packets
// from an input driver.
type MotionKind uint8

const (
	Relative MotionKind = iota
	Absolute
)
