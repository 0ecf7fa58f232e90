// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabsym/compositor/transport"
	"github.com/yabsym/compositor/window"
	"github.com/yabsym/compositor/wire"
)

type fakeBuffer struct{ data []byte }

func (f *fakeBuffer) Bytes() []byte { return f.data }
func (f *fakeBuffer) Close() error  { return nil }

type fakeAllocator struct{}

func (fakeAllocator) Create(name string, size int) (window.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}

func newCompositor(t *testing.T) (*Compositor, *transport.Loopback) {
	t.Helper()
	lb := transport.NewLoopback()
	c := New("test", 1024, 768, lb, nil)
	c.Reg.Alloc = fakeAllocator{}

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		lb.Close()
	})
	return c, lb
}

type testClient struct {
	t *testing.T
	c *transport.LoopbackClient
}

func dial(t *testing.T, lb *transport.Loopback, name string) *testClient {
	return &testClient{t: t, c: lb.Dial(name)}
}

func (tc *testClient) send(typ wire.Type, body []byte) {
	tc.t.Helper()
	require.NoError(tc.t, tc.c.Send(wire.Envelope{Type: typ, Body: body}.Encode()))
}

// recv reads frames until one of the wanted type arrives, failing the
// test after a timeout rather than hanging.
func (tc *testClient) recv(typ wire.Type) wire.Envelope {
	tc.t.Helper()
	deadline := time.After(5 * time.Second)
	got := make(chan wire.Envelope, 1)
	errc := make(chan error, 1)
	go func() {
		for {
			data, err := tc.c.Recv()
			if err != nil {
				errc <- err
				return
			}
			env, err := wire.DecodeEnvelope(data)
			if err != nil {
				errc <- err
				return
			}
			if env.Type == typ {
				got <- env
				return
			}
		}
	}()
	select {
	case env := <-got:
		return env
	case err := <-errc:
		tc.t.Fatalf("recv %d: %v", typ, err)
	case <-deadline:
		tc.t.Fatalf("timed out waiting for message type %d", typ)
	}
	return wire.Envelope{}
}

// barrier round-trips a HELLO so every previously sent message has been
// handled before the caller inspects state (the protocol loop is
// strictly ordered).
func (tc *testClient) barrier() {
	tc.t.Helper()
	tc.send(wire.HELLO, nil)
	tc.recv(wire.WELCOME)
}

func (tc *testClient) newWindow(w, h uint32) wire.WindowInit {
	tc.t.Helper()
	tc.send(wire.WINDOW_NEW, wire.WindowNew{Width: w, Height: h}.Encode())
	init, err := wire.DecodeWindowInit(tc.recv(wire.WINDOW_INIT).Body)
	require.NoError(tc.t, err)
	return init
}

func TestHelloWelcome(t *testing.T) {
	_, lb := newCompositor(t)
	tc := dial(t, lb, "client")

	tc.send(wire.HELLO, nil)
	m, err := wire.DecodeWelcome(tc.recv(wire.WELCOME).Body)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), m.Width)
	assert.Equal(t, uint32(768), m.Height)
}

func TestWindowNewCreatesAndNotifies(t *testing.T) {
	c, lb := newCompositor(t)
	sub := dial(t, lb, "subscriber")
	sub.send(wire.SUBSCRIBE, nil)
	sub.barrier()

	tc := dial(t, lb, "client")
	init := tc.newWindow(400, 300)

	assert.Equal(t, uint32(1), init.WID)
	assert.Equal(t, uint32(400), init.Width)
	assert.Equal(t, uint32(300), init.Height)
	assert.Equal(t, uint32(1), init.BufID)

	sub.recv(wire.NOTIFY)

	w, ok := c.Reg.Get(init.WID)
	require.True(t, ok)
	assert.Equal(t, window.FadeIn, w.AnimMode)
}

func TestSubscribeIsIdempotentAndUnsubscribeStopsNotifies(t *testing.T) {
	_, lb := newCompositor(t)
	sub := dial(t, lb, "subscriber")
	sub.send(wire.SUBSCRIBE, nil)
	sub.send(wire.SUBSCRIBE, nil)
	sub.send(wire.UNSUBSCRIBE, nil)
	sub.barrier()

	tc := dial(t, lb, "client")
	tc.newWindow(100, 100)
	tc.barrier()

	// The ex-subscriber must have received no NOTIFY: the very next
	// frame on its connection is the barrier's WELCOME, nothing before.
	sub.send(wire.HELLO, nil)
	data, err := sub.c.Recv()
	require.NoError(t, err)
	env, err := wire.DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, wire.WELCOME, env.Type)
}

func TestResizeHandshake(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	init := tc.newWindow(400, 300)

	// Client-initiated: RESIZE_REQUEST comes back as a RESIZE_OFFER.
	tc.send(wire.RESIZE_REQUEST, wire.ResizeWH{WID: init.WID, Width: 800, Height: 600}.Encode())
	offer, err := wire.DecodeResizeWH(tc.recv(wire.RESIZE_OFFER).Body)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), offer.Width)

	tc.send(wire.RESIZE_ACCEPT, wire.ResizeWH{WID: init.WID, Width: 800, Height: 600}.Encode())
	bufid, err := wire.DecodeResizeBufID(tc.recv(wire.RESIZE_BUFID).Body)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), bufid.NewBufID)

	w, _ := c.Reg.Get(init.WID)
	assert.Equal(t, bufid.NewBufID, w.NewBufID)

	tc.send(wire.RESIZE_DONE, wire.ResizeWH{WID: init.WID, Width: 800, Height: 600}.Encode())
	tc.barrier()

	assert.Equal(t, 800, w.Width)
	assert.Equal(t, 600, w.Height)
	assert.Equal(t, bufid.NewBufID, w.BufID)
	assert.Zero(t, w.NewBufID)
}

func TestQueryWindowsEmitsPaintOrderPlusTerminator(t *testing.T) {
	_, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	a := tc.newWindow(100, 100)
	b := tc.newWindow(100, 100)

	tc.send(wire.QUERY_WINDOWS, nil)
	first, err := wire.DecodeAdvertise(tc.recv(wire.WINDOW_ADVERTISE).Body)
	require.NoError(t, err)
	second, err := wire.DecodeAdvertise(tc.recv(wire.WINDOW_ADVERTISE).Body)
	require.NoError(t, err)
	term, err := wire.DecodeAdvertise(tc.recv(wire.WINDOW_ADVERTISE).Body)
	require.NoError(t, err)

	assert.Equal(t, a.WID, first.WID)
	assert.Equal(t, b.WID, second.WID)
	assert.Zero(t, term.WID)
}

func TestAdvertiseReplacesMetadataAndNotifies(t *testing.T) {
	c, lb := newCompositor(t)
	sub := dial(t, lb, "subscriber")
	sub.send(wire.SUBSCRIBE, nil)
	sub.barrier()

	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)
	sub.recv(wire.NOTIFY) // from the create

	adv := wire.Advertise{WID: init.WID, Flags: 7, Strings: []byte("term\x00Terminal\x00")}
	adv.Offsets = [5]uint32{0, 5, 0, 0, 0}
	tc.send(wire.WINDOW_ADVERTISE, adv.Encode())
	sub.recv(wire.NOTIFY)

	w, _ := c.Reg.Get(init.WID)
	assert.Equal(t, uint32(7), w.ClientFlags)
	assert.Equal(t, []byte("term\x00Terminal\x00"), w.ClientStrings)
}

func TestWindowCloseFadesOutAndNotifies(t *testing.T) {
	c, lb := newCompositor(t)
	sub := dial(t, lb, "subscriber")
	sub.send(wire.SUBSCRIBE, nil)
	sub.barrier()

	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)
	sub.recv(wire.NOTIFY)

	tc.send(wire.WINDOW_CLOSE, wire.WIDOnly{WID: init.WID}.Encode())
	tc.barrier()

	w, ok := c.Reg.Get(init.WID)
	require.True(t, ok)
	assert.Equal(t, window.FadeOut, w.AnimMode)

	// Drive the render clock past the fade-out length; the loop removes
	// the window and subscribers hear about it.
	for i := 0; i < 30; i++ {
		c.Loop.Tick1()
	}
	_, ok = c.Reg.Get(init.WID)
	assert.False(t, ok)
	sub.recv(wire.NOTIFY)
}

func TestDeadClientWindowsFadeOut(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	a := tc.newWindow(100, 100)
	b := tc.newWindow(100, 100)

	require.NoError(t, tc.c.Close())

	other := dial(t, lb, "other")
	other.barrier() // dead-peer packet is handled before this

	for i := 0; i < 30; i++ {
		c.Loop.Tick1()
	}
	_, okA := c.Reg.Get(a.WID)
	_, okB := c.Reg.Get(b.WID)
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestWindowFocusZeroIsNoOp(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)

	tc.send(wire.WINDOW_FOCUS, wire.WIDOnly{WID: init.WID}.Encode())
	fc, err := wire.DecodeWindowFocusChange(tc.recv(wire.WINDOW_FOCUS_CHANGE).Body)
	require.NoError(t, err)
	assert.Equal(t, init.WID, fc.WID)
	assert.True(t, fc.Focused)

	tc.send(wire.WINDOW_FOCUS, wire.WIDOnly{WID: 0}.Encode())
	tc.barrier()
	require.NotNil(t, c.Disp.Focused())
	assert.Equal(t, init.WID, c.Disp.Focused().WID)
}

func TestWindowMoveUpdatesGeometry(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)

	tc.send(wire.WINDOW_MOVE, wire.WindowMove{WID: init.WID, X: -20, Y: 35}.Encode())
	tc.barrier()

	w, _ := c.Reg.Get(init.WID)
	assert.Equal(t, -20, w.X)
	assert.Equal(t, 35, w.Y)
}

func TestWindowStackReordersToTopTier(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)

	tc.send(wire.WINDOW_STACK, wire.WindowStack{WID: init.WID, Z: wire.ZTop}.Encode())
	tc.barrier()

	w, _ := c.Reg.Get(init.WID)
	assert.Equal(t, w, c.Z.Top())
}

func TestUpdateShapeSetsAlphaThreshold(t *testing.T) {
	c, lb := newCompositor(t)
	tc := dial(t, lb, "client")
	init := tc.newWindow(100, 100)

	tc.send(wire.WINDOW_UPDATE_SHAPE, wire.UpdateShape{WID: init.WID, Threshold: 128}.Encode())
	tc.barrier()

	w, _ := c.Reg.Get(init.WID)
	assert.Equal(t, uint8(128), w.AlphaThreshold)
}

func TestSessionEndIsBroadcast(t *testing.T) {
	_, lb := newCompositor(t)
	a := dial(t, lb, "a")
	b := dial(t, lb, "b")
	a.barrier()
	b.barrier()

	a.send(wire.SESSION_END, nil)
	a.recv(wire.SESSION_END)
	b.recv(wire.SESSION_END)
}

func TestBadMagicIsDroppedConnectionSurvives(t *testing.T) {
	_, lb := newCompositor(t)
	tc := dial(t, lb, "client")

	require.NoError(t, tc.c.Send([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0, 0, 0, 0, 0}))
	tc.barrier() // still alive and served
}

func TestUnknownWIDIsSilentlyIgnored(t *testing.T) {
	_, lb := newCompositor(t)
	tc := dial(t, lb, "client")

	tc.send(wire.FLIP, wire.WIDOnly{WID: 999}.Encode())
	tc.send(wire.WINDOW_MOVE, wire.WindowMove{WID: 999, X: 1, Y: 1}.Encode())
	tc.send(wire.RESIZE_ACCEPT, wire.ResizeWH{WID: 999, Width: 10, Height: 10}.Encode())
	tc.barrier()
}
