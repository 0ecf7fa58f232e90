// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuffer struct {
	data   []byte
	closed bool
}

func (f *fakeBuffer) Bytes() []byte { return f.data }
func (f *fakeBuffer) Close() error  { f.closed = true; return nil }

type fakeAllocator struct {
	created []*fakeBuffer
}

func (a *fakeAllocator) Create(name string, size int) (Buffer, error) {
	b := &fakeBuffer{data: make([]byte, size)}
	a.created = append(a.created, b)
	return b, nil
}

func newTestRegistry() (*Registry, *fakeAllocator) {
	r := New("compositor-test")
	fa := &fakeAllocator{}
	r.Alloc = fa
	return r, fa
}

func TestCreateAssignsMonotonicWIDs(t *testing.T) {
	r, _ := newTestRegistry()
	w1, err := r.Create("client-a", 100, 100, 0)
	require.NoError(t, err)
	w2, err := r.Create("client-a", 50, 50, 0)
	require.NoError(t, err)
	assert.NotEqual(t, w1.WID, w2.WID)
	assert.Greater(t, w2.WID, w1.WID)
	assert.Equal(t, FadeIn, w2.AnimMode)
}

func TestCreatePlacesAtOriginWithZOne(t *testing.T) {
	r, _ := newTestRegistry()
	w, err := r.Create("client-a", 100, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, w.X)
	assert.Equal(t, 0, w.Y)
	assert.Equal(t, uint32(1), w.Z)
}

func TestClientWindowsIndex(t *testing.T) {
	r, _ := newTestRegistry()
	w1, _ := r.Create("client-a", 10, 10, 0)
	w2, _ := r.Create("client-a", 10, 10, 0)
	_, _ = r.Create("client-b", 10, 10, 0)

	ids := r.ClientWindows("client-a")
	assert.ElementsMatch(t, []uint32{w1.WID, w2.WID}, ids)
}

func TestResizeOfferIsIdempotent(t *testing.T) {
	r, fa := newTestRegistry()
	w, _ := r.Create("client-a", 10, 10, 0)

	id1, err := r.ResizeOffer(w, 20, 20)
	require.NoError(t, err)
	id2, err := r.ResizeOffer(w, 999, 999) // different size, still idempotent
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, fa.created, 2) // initial buffer + one resize buffer
}

func TestResizeFinishPromotesBufferAndReleasesOld(t *testing.T) {
	r, fa := newTestRegistry()
	w, _ := r.Create("client-a", 10, 10, 0)
	oldBuf := fa.created[0]

	_, err := r.ResizeOffer(w, 20, 30)
	require.NoError(t, err)
	oldW, oldH := r.ResizeFinish(w, 20, 30)

	assert.Equal(t, 10, oldW)
	assert.Equal(t, 10, oldH)
	assert.Equal(t, 20, w.Width)
	assert.Equal(t, 30, w.Height)
	assert.True(t, oldBuf.closed)
	assert.Equal(t, uint32(0), w.NewBufID)
}

func TestCloseRemovesFromAllIndices(t *testing.T) {
	r, fa := newTestRegistry()
	w, _ := r.Create("client-a", 10, 10, 0)

	closed, ok := r.Close(w.WID)
	require.True(t, ok)
	assert.Equal(t, w, closed)

	_, ok = r.Get(w.WID)
	assert.False(t, ok)
	assert.Empty(t, r.ClientWindows("client-a"))
	assert.True(t, fa.created[0].closed)
}

func TestCloseDuringResizeHandshakeDropsNewBuffer(t *testing.T) {
	r, fa := newTestRegistry()
	w, _ := r.Create("client-a", 10, 10, 0)
	_, err := r.ResizeOffer(w, 20, 20)
	require.NoError(t, err)

	r.Close(w.WID)
	assert.True(t, fa.created[1].closed, "pending new buffer must be released on close")
}

func TestCloseUnknownWIDIsNotError(t *testing.T) {
	r, _ := newTestRegistry()
	_, ok := r.Close(999)
	assert.False(t, ok)
}
