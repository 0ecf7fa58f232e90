// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var order = binary.LittleEndian

// Envelope is the on-wire frame: magic, type, size, then a type-specific
// body. Encode/Decode operate on one complete transport message
// (the transport already frames messages, e.g. one WebSocket binary
// message per Envelope); Envelope's own magic/size header keeps the
// frame self-describing even though the outer transport also frames.
type Envelope struct {
	Type Type
	Body []byte
}

// Encode serializes the envelope to bytes.
func (e Envelope) Encode() []byte {
	buf := make([]byte, 12+len(e.Body))
	order.PutUint32(buf[0:4], Magic)
	order.PutUint32(buf[4:8], uint32(e.Type))
	order.PutUint32(buf[8:12], uint32(len(e.Body)))
	copy(buf[12:], e.Body)
	return buf
}

// DecodeEnvelope parses a raw frame. A bad magic or a size that does not
// match the remaining bytes is reported as an error so the caller can log
// and drop the message without tearing down the connection.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	if len(raw) < 12 {
		return Envelope{}, fmt.Errorf("wire: short frame (%d bytes)", len(raw))
	}
	magic := order.Uint32(raw[0:4])
	if magic != Magic {
		return Envelope{}, fmt.Errorf("wire: bad magic %#x", magic)
	}
	typ := Type(order.Uint32(raw[4:8]))
	size := order.Uint32(raw[8:12])
	body := raw[12:]
	if uint32(len(body)) != size {
		return Envelope{}, fmt.Errorf("wire: size mismatch (header %d, got %d)", size, len(body))
	}
	return Envelope{Type: typ, Body: body}, nil
}

// --- message bodies ---

type Welcome struct{ Width, Height uint32 }

func (m Welcome) Encode() []byte {
	b := make([]byte, 8)
	order.PutUint32(b[0:4], m.Width)
	order.PutUint32(b[4:8], m.Height)
	return b
}
func DecodeWelcome(b []byte) (Welcome, error) {
	if len(b) < 8 {
		return Welcome{}, errShort("WELCOME")
	}
	return Welcome{order.Uint32(b[0:4]), order.Uint32(b[4:8])}, nil
}

type WindowNew struct{ Width, Height uint32 }

func (m WindowNew) Encode() []byte {
	b := make([]byte, 8)
	order.PutUint32(b[0:4], m.Width)
	order.PutUint32(b[4:8], m.Height)
	return b
}
func DecodeWindowNew(b []byte) (WindowNew, error) {
	if len(b) < 8 {
		return WindowNew{}, errShort("WINDOW_NEW")
	}
	return WindowNew{order.Uint32(b[0:4]), order.Uint32(b[4:8])}, nil
}

type WindowInit struct {
	WID, Width, Height, BufID uint32
}

func (m WindowInit) Encode() []byte {
	b := make([]byte, 16)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.Width)
	order.PutUint32(b[8:12], m.Height)
	order.PutUint32(b[12:16], m.BufID)
	return b
}
func DecodeWindowInit(b []byte) (WindowInit, error) {
	if len(b) < 16 {
		return WindowInit{}, errShort("WINDOW_INIT")
	}
	return WindowInit{order.Uint32(b[0:4]), order.Uint32(b[4:8]), order.Uint32(b[8:12]), order.Uint32(b[12:16])}, nil
}

// WID-only messages: FLIP, WINDOW_CLOSE, WINDOW_FOCUS and
// WINDOW_DRAG_START all share this shape. QUERY_WINDOWS has an empty
// body; its source is the sender address at the transport layer.
type WIDOnly struct{ WID uint32 }

func (m WIDOnly) Encode() []byte {
	b := make([]byte, 4)
	order.PutUint32(b[0:4], m.WID)
	return b
}
func DecodeWIDOnly(b []byte) (WIDOnly, error) {
	if len(b) < 4 {
		return WIDOnly{}, errShort("WID")
	}
	return WIDOnly{order.Uint32(b[0:4])}, nil
}

type FlipRegion struct{ WID, X, Y, W, H uint32 }

func (m FlipRegion) Encode() []byte {
	b := make([]byte, 20)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.X)
	order.PutUint32(b[8:12], m.Y)
	order.PutUint32(b[12:16], m.W)
	order.PutUint32(b[16:20], m.H)
	return b
}
func DecodeFlipRegion(b []byte) (FlipRegion, error) {
	if len(b) < 20 {
		return FlipRegion{}, errShort("FLIP_REGION")
	}
	return FlipRegion{order.Uint32(b[0:4]), order.Uint32(b[4:8]), order.Uint32(b[8:12]), order.Uint32(b[12:16]), order.Uint32(b[16:20])}, nil
}

type KeyEvent struct {
	WID      uint32
	Code     uint32
	State    uint8
	Mods     uint8
	Rune     rune
}

func (m KeyEvent) Encode() []byte {
	b := make([]byte, 14)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.Code)
	b[8] = m.State
	b[9] = m.Mods
	order.PutUint32(b[10:14], uint32(m.Rune))
	return b
}
func DecodeKeyEvent(b []byte) (KeyEvent, error) {
	if len(b) < 14 {
		return KeyEvent{}, errShort("KEY_EVENT")
	}
	return KeyEvent{
		WID: order.Uint32(b[0:4]), Code: order.Uint32(b[4:8]),
		State: b[8], Mods: b[9], Rune: rune(order.Uint32(b[10:14])),
	}, nil
}

type MouseEvent struct {
	X, Y    int32
	Buttons uint8
	Kind    uint8 // MotionKind
}

func (m MouseEvent) Encode() []byte {
	b := make([]byte, 10)
	order.PutUint32(b[0:4], uint32(m.X))
	order.PutUint32(b[4:8], uint32(m.Y))
	b[8] = m.Buttons
	b[9] = m.Kind
	return b
}
func DecodeMouseEvent(b []byte) (MouseEvent, error) {
	if len(b) < 10 {
		return MouseEvent{}, errShort("MOUSE_EVENT")
	}
	return MouseEvent{int32(order.Uint32(b[0:4])), int32(order.Uint32(b[4:8])), b[8], b[9]}, nil
}

type WindowMouseEvent struct {
	WID                uint32
	X, Y, OldX, OldY   int32
	Buttons            uint8
	Kind               uint8 // MouseEventKind
}

func (m WindowMouseEvent) Encode() []byte {
	b := make([]byte, 22)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], uint32(m.X))
	order.PutUint32(b[8:12], uint32(m.Y))
	order.PutUint32(b[12:16], uint32(m.OldX))
	order.PutUint32(b[16:20], uint32(m.OldY))
	b[20] = m.Buttons
	b[21] = m.Kind
	return b
}
func DecodeWindowMouseEvent(b []byte) (WindowMouseEvent, error) {
	if len(b) < 22 {
		return WindowMouseEvent{}, errShort("WINDOW_MOUSE_EVENT")
	}
	return WindowMouseEvent{
		order.Uint32(b[0:4]),
		int32(order.Uint32(b[4:8])), int32(order.Uint32(b[8:12])),
		int32(order.Uint32(b[12:16])), int32(order.Uint32(b[16:20])),
		b[20], b[21],
	}, nil
}

type WindowMove struct{ WID uint32; X, Y int32 }

func (m WindowMove) Encode() []byte {
	b := make([]byte, 12)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], uint32(m.X))
	order.PutUint32(b[8:12], uint32(m.Y))
	return b
}
func DecodeWindowMove(b []byte) (WindowMove, error) {
	if len(b) < 12 {
		return WindowMove{}, errShort("WINDOW_MOVE")
	}
	return WindowMove{order.Uint32(b[0:4]), int32(order.Uint32(b[4:8])), int32(order.Uint32(b[8:12]))}, nil
}

type WindowStack struct{ WID, Z uint32 }

func (m WindowStack) Encode() []byte {
	b := make([]byte, 8)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.Z)
	return b
}
func DecodeWindowStack(b []byte) (WindowStack, error) {
	if len(b) < 8 {
		return WindowStack{}, errShort("WINDOW_STACK")
	}
	return WindowStack{order.Uint32(b[0:4]), order.Uint32(b[4:8])}, nil
}

// Resize* all share the (wid, width, height) shape, with BUFID adding a
// fourth field; reuse WindowInit's layout for RESIZE_BUFID.
type ResizeWH struct{ WID, Width, Height uint32 }

func (m ResizeWH) Encode() []byte {
	b := make([]byte, 12)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.Width)
	order.PutUint32(b[8:12], m.Height)
	return b
}
func DecodeResizeWH(b []byte) (ResizeWH, error) {
	if len(b) < 12 {
		return ResizeWH{}, errShort("RESIZE")
	}
	return ResizeWH{order.Uint32(b[0:4]), order.Uint32(b[4:8]), order.Uint32(b[8:12])}, nil
}

type ResizeBufID struct{ WID, Width, Height, NewBufID uint32 }

func (m ResizeBufID) Encode() []byte {
	b := make([]byte, 16)
	order.PutUint32(b[0:4], m.WID)
	order.PutUint32(b[4:8], m.Width)
	order.PutUint32(b[8:12], m.Height)
	order.PutUint32(b[12:16], m.NewBufID)
	return b
}
func DecodeResizeBufID(b []byte) (ResizeBufID, error) {
	if len(b) < 16 {
		return ResizeBufID{}, errShort("RESIZE_BUFID")
	}
	return ResizeBufID{order.Uint32(b[0:4]), order.Uint32(b[4:8]), order.Uint32(b[8:12]), order.Uint32(b[12:16])}, nil
}

// Advertise carries client-advertised window metadata verbatim: up to 5
// string offsets into a single packed string blob.
type Advertise struct {
	WID     uint32
	Flags   uint32
	Offsets [5]uint32
	Strings []byte
}

func (m Advertise) Encode() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, order, m.WID)
	binary.Write(buf, order, m.Flags)
	binary.Write(buf, order, m.Offsets)
	buf.Write(m.Strings)
	return buf.Bytes()
}
func DecodeAdvertise(b []byte) (Advertise, error) {
	if len(b) < 4+4+4*5 {
		return Advertise{}, errShort("WINDOW_ADVERTISE")
	}
	r := bytes.NewReader(b)
	var m Advertise
	binary.Read(r, order, &m.WID)
	binary.Read(r, order, &m.Flags)
	binary.Read(r, order, &m.Offsets)
	m.Strings = make([]byte, r.Len())
	r.Read(m.Strings)
	return m, nil
}

type WindowFocusChange struct {
	WID     uint32
	Focused bool
}

func (m WindowFocusChange) Encode() []byte {
	b := make([]byte, 5)
	order.PutUint32(b[0:4], m.WID)
	if m.Focused {
		b[4] = 1
	}
	return b
}
func DecodeWindowFocusChange(b []byte) (WindowFocusChange, error) {
	if len(b) < 5 {
		return WindowFocusChange{}, errShort("WINDOW_FOCUS_CHANGE")
	}
	return WindowFocusChange{order.Uint32(b[0:4]), b[4] != 0}, nil
}

type KeyBind struct {
	Key, Modifiers uint32
	Mode           uint8 // BindMode
}

func (m KeyBind) Encode() []byte {
	b := make([]byte, 9)
	order.PutUint32(b[0:4], m.Key)
	order.PutUint32(b[4:8], m.Modifiers)
	b[8] = m.Mode
	return b
}
func DecodeKeyBind(b []byte) (KeyBind, error) {
	if len(b) < 9 {
		return KeyBind{}, errShort("KEY_BIND")
	}
	return KeyBind{order.Uint32(b[0:4]), order.Uint32(b[4:8]), b[8]}, nil
}

type UpdateShape struct {
	WID       uint32
	Threshold uint8
}

func (m UpdateShape) Encode() []byte {
	b := make([]byte, 5)
	order.PutUint32(b[0:4], m.WID)
	b[4] = m.Threshold
	return b
}
func DecodeUpdateShape(b []byte) (UpdateShape, error) {
	if len(b) < 5 {
		return UpdateShape{}, errShort("WINDOW_UPDATE_SHAPE")
	}
	return UpdateShape{order.Uint32(b[0:4]), b[4]}, nil
}

func errShort(what string) error {
	return fmt.Errorf("wire: truncated %s body", what)
}
