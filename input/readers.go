// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package input

import (
	"context"
	"io"

	"github.com/yabsym/compositor/internal/errs"
	"github.com/yabsym/compositor/key"
	"github.com/yabsym/compositor/wire"
)

// Poster posts one framed message into the compositor's transport. Both
// device readers behave as synthetic clients: they never touch the
// dispatcher directly, every event goes through the protocol thread's
// receive loop like any other client message.
type Poster interface {
	Send(data []byte) error
}

// ReadMouse consumes a raw mouse byte stream (3-byte PS/2-style
// packets: button mask, dx, dy) and posts relative MOUSE_EVENTs until
// the stream ends or ctx is cancelled.
func ReadMouse(ctx context.Context, r io.Reader, post Poster) {
	var pkt [3]byte
	for ctx.Err() == nil {
		if _, err := io.ReadFull(r, pkt[:]); err != nil {
			return
		}
		m := wire.MouseEvent{
			X:       int32(int8(pkt[1])),
			Y:       -int32(int8(pkt[2])), // device y grows upward
			Buttons: pkt[0] & 0x07,
			Kind:    uint8(wire.Relative),
		}
		env := wire.Envelope{Type: wire.MOUSE_EVENT, Body: m.Encode()}
		if errs.Log(post.Send(env.Encode())) != nil {
			return
		}
	}
}

// scancode values for the keys the reader resolves to named codes; the
// rest pass through as raw codes for clients to interpret.
const (
	scLCtrl  = 0x1D
	scLShift = 0x2A
	scRShift = 0x36
	scLAlt   = 0x38
	scLMeta  = 0x5B
	scZ      = 0x2C
	scX      = 0x2D
	scC      = 0x2E
	scV      = 0x2F
	scB      = 0x30
	scF10    = 0x44
	scUp     = 0x48
	scLeft   = 0x4B
	scRight  = 0x4D
	scDown   = 0x50

	scRelease  = 0x80 // OR'd into the code on key release
	scExtended = 0xE0 // prefix byte for extended codes
)

var namedCodes = map[byte]key.Code{
	scZ: key.CodeZ, scX: key.CodeX, scC: key.CodeC,
	scV: key.CodeV, scB: key.CodeB, scF10: key.CodeF10,
}

// arrows live in the 0xE0-extended namespace; the same codes without
// the prefix are keypad digits.
var extendedCodes = map[byte]key.Code{
	scUp: key.CodeUp, scDown: key.CodeDown,
	scLeft: key.CodeLeft, scRight: key.CodeRight,
}

// ReadKeyboard consumes a raw keyboard scancode stream and posts
// KEY_EVENTs, tracking modifier state across events so every posted
// event carries the full kbd_state mirror.
func ReadKeyboard(ctx context.Context, r io.Reader, post Poster) {
	var mods key.Modifiers
	var buf [1]byte
	extended := false
	for ctx.Err() == nil {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return
		}
		sc := buf[0]
		if sc == scExtended {
			extended = true
			continue
		}

		state := wire.KeyDown
		if sc&scRelease != 0 {
			state = wire.KeyUp
			sc &^= scRelease
		}

		if mod := modifierFor(sc); mod != 0 {
			if state == wire.KeyDown {
				mods |= mod
			} else {
				mods &^= mod
			}
		}

		table := namedCodes
		if extended {
			table = extendedCodes
		}
		extended = false
		code, ok := table[sc]
		if !ok {
			code = key.Code(sc)
		}
		m := wire.KeyEvent{
			Code:  uint32(code),
			State: uint8(state),
			Mods:  uint8(mods),
		}
		env := wire.Envelope{Type: wire.KEY_EVENT, Body: m.Encode()}
		if errs.Log(post.Send(env.Encode())) != nil {
			return
		}
	}
}

func modifierFor(sc byte) key.Modifiers {
	switch sc {
	case scLCtrl:
		return key.Control
	case scLShift, scRShift:
		return key.Shift
	case scLAlt:
		return key.Alt
	case scLMeta:
		return key.Meta
	}
	return 0
}
