// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nested lets the compositor run as a client of another
// compositor: instead of a raw
// framebuffer it owns one window on the host, presents frames into that
// window's buffer, and forwards the host's input events into its own
// protocol loop as synthetic MOUSE_EVENT/KEY_EVENT messages.
package nested

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/yabsym/compositor/backend"
	"github.com/yabsym/compositor/input"
	"github.com/yabsym/compositor/internal/errs"
	"github.com/yabsym/compositor/session"
	"github.com/yabsym/compositor/shm"
	"github.com/yabsym/compositor/transport"
	"github.com/yabsym/compositor/wire"
)

// Adapter is the host-side window the nested compositor presents into.
type Adapter struct {
	WID           uint32
	Width, Height int

	host    transport.Client
	region  *shm.Region
	surface *backend.Surface
}

// Connect performs the client-side handshake against the host
// compositor (HELLO, WINDOW_NEW) and maps the buffer the host
// allocated for us.
func Connect(host transport.Client, hostIdent string, width, height int) (*Adapter, error) {
	a := &Adapter{host: host, Width: width, Height: height}

	if err := a.sendMsg(wire.HELLO, nil); err != nil {
		return nil, err
	}
	if _, err := a.await(wire.WELCOME); err != nil {
		return nil, err
	}

	m := wire.WindowNew{Width: uint32(width), Height: uint32(height)}
	if err := a.sendMsg(wire.WINDOW_NEW, m.Encode()); err != nil {
		return nil, err
	}
	env, err := a.await(wire.WINDOW_INIT)
	if err != nil {
		return nil, err
	}
	init, err := wire.DecodeWindowInit(env.Body)
	if err != nil {
		return nil, err
	}
	a.WID = init.WID

	region, err := shm.Open(session.BufKey(hostIdent, init.WID, init.BufID))
	if err != nil {
		return nil, fmt.Errorf("nested: map host buffer: %w", err)
	}
	a.region = region
	a.surface = backend.NewSurface(region.Bytes(), width, height, 4*width)
	return a, nil
}

// Present implements render.Presenter: copy the composited framebuffer
// into the host window's buffer and ask the host to flip it. The host draws the cursor, so none is
// composited here.
func (a *Adapter) Present(fb *backend.Backend, clip image.Rectangle) {
	fb.Present(a.surface, clip)
	errs.Log(a.sendMsg(wire.FLIP, wire.WIDOnly{WID: a.WID}.Encode()))
}

// ForwardInput is the nested-input thread: it consumes the
// host's deliveries for our window and reposts them to the local
// transport as synthetic input-client messages, so the local protocol
// loop remains the single serializer. Runs until the host connection
// drops, the host session ends, or ctx is cancelled.
func (a *Adapter) ForwardInput(ctx context.Context, local input.Poster) {
	for ctx.Err() == nil {
		data, err := a.host.Recv()
		if err != nil {
			return
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			errs.Log(err)
			continue
		}
		switch env.Type {
		case wire.WINDOW_MOUSE_EVENT:
			me, err := wire.DecodeWindowMouseEvent(env.Body)
			if errs.Log(err) != nil {
				continue
			}
			m := wire.MouseEvent{
				X: me.X, Y: me.Y,
				Buttons: me.Buttons,
				Kind:    uint8(wire.Absolute),
			}
			out := wire.Envelope{Type: wire.MOUSE_EVENT, Body: m.Encode()}
			if errs.Log(local.Send(out.Encode())) != nil {
				return
			}
		case wire.KEY_EVENT:
			ke, err := wire.DecodeKeyEvent(env.Body)
			if errs.Log(err) != nil {
				continue
			}
			ke.WID = 0 // synthetic input client, not window-addressed
			out := wire.Envelope{Type: wire.KEY_EVENT, Body: ke.Encode()}
			if errs.Log(local.Send(out.Encode())) != nil {
				return
			}
		case wire.SESSION_END:
			slog.Info("host session ended")
			return
		}
	}
}

// Close releases the host window: tell the host, then unmap the buffer.
func (a *Adapter) Close() error {
	errs.Log(a.sendMsg(wire.WINDOW_CLOSE, wire.WIDOnly{WID: a.WID}.Encode()))
	if a.region != nil {
		errs.Log(a.region.Close())
	}
	return a.host.Close()
}

func (a *Adapter) sendMsg(typ wire.Type, body []byte) error {
	return a.host.Send(wire.Envelope{Type: typ, Body: body}.Encode())
}

// await reads host frames until one of the wanted type arrives,
// discarding interleaved deliveries (e.g. an early NOTIFY).
func (a *Adapter) await(typ wire.Type) (wire.Envelope, error) {
	for {
		data, err := a.host.Recv()
		if err != nil {
			return wire.Envelope{}, err
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			errs.Log(err)
			continue
		}
		if env.Type == typ {
			return env, nil
		}
	}
}
