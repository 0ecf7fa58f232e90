// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package key defines the keyboard modifier flags, key codes, and the
// packed (modifiers, code) chord used both for global key bindings and for
// KEY_EVENT wire payloads.
package key

import "strings"

// Modifiers is a bitmask of simultaneously held modifier keys.
type Modifiers uint8

const (
	Control Modifiers = 1 << iota
	Meta              // Command on macOS, the Windows key elsewhere
	Alt
	Shift
)

// Has reports whether all of mods are set.
func (m Modifiers) Has(mods Modifiers) bool {
	return m&mods == mods
}

func (m Modifiers) String() string {
	var b strings.Builder
	for _, p := range []struct {
		m Modifiers
		s string
	}{{Control, "Ctrl"}, {Meta, "Super"}, {Alt, "Alt"}, {Shift, "Shift"}} {
		if m.Has(p.m) {
			b.WriteString(p.s)
			b.WriteByte('+')
		}
	}
	return b.String()
}

// Code identifies a physical key, independent of modifier state.
type Code uint32

// Chord packs modifiers and a key code into the single uint32 the
// compositor uses as a key-binding table key: (modifiers << 24) | code.
type Chord uint32

// Pack builds a Chord from modifiers and a code.
func Pack(mods Modifiers, code Code) Chord {
	return Chord(uint32(mods)<<24 | uint32(code)&0x00FFFFFF)
}

// Modifiers extracts the modifier bits from a Chord.
func (c Chord) Modifiers() Modifiers {
	return Modifiers(c >> 24)
}

// Code extracts the key code from a Chord.
func (c Chord) Code() Code {
	return Code(c & 0x00FFFFFF)
}

func (c Chord) String() string {
	return c.Modifiers().String() + string(rune(c.Code()))
}

// Well-known codes used by the built-in chord table. Real
// key codes come from the input driver/nested host and are not
// enumerated exhaustively here.
const (
	CodeZ Code = iota + 1000
	CodeX
	CodeC
	CodeV
	CodeB
	CodeF10
	CodeLeft
	CodeRight
	CodeUp
	CodeDown
)
