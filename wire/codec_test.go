// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	body := WindowNew{Width: 400, Height: 300}.Encode()
	env := Envelope{Type: WINDOW_NEW, Body: body}
	raw := env.Encode()

	got, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, WINDOW_NEW, got.Type)

	wn, err := DecodeWindowNew(got.Body)
	require.NoError(t, err)
	assert.Equal(t, uint32(400), wn.Width)
	assert.Equal(t, uint32(300), wn.Height)
}

func TestDecodeEnvelopeBadMagic(t *testing.T) {
	raw := Envelope{Type: HELLO}.Encode()
	raw[0] ^= 0xFF
	_, err := DecodeEnvelope(raw)
	assert.Error(t, err)
}

func TestDecodeEnvelopeShortFrame(t *testing.T) {
	_, err := DecodeEnvelope([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAdvertiseRoundTrip(t *testing.T) {
	adv := Advertise{
		WID:     7,
		Flags:   3,
		Offsets: [5]uint32{0, 5, 10, 0, 0},
		Strings: []byte("xterm\x00Terminal\x00"),
	}
	got, err := DecodeAdvertise(adv.Encode())
	require.NoError(t, err)
	assert.Equal(t, adv, got)
}

func TestResizeBufIDRoundTrip(t *testing.T) {
	rb := ResizeBufID{WID: 1, Width: 800, Height: 600, NewBufID: 2}
	got, err := DecodeResizeBufID(rb.Encode())
	require.NoError(t, err)
	assert.Equal(t, rb, got)
}
