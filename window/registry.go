// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package window

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yabsym/compositor/backend"
	"github.com/yabsym/compositor/session"
	"github.com/yabsym/compositor/shm"
)

// Allocator abstracts shm region creation so tests can substitute an
// in-memory fake instead of touching /dev/shm.
type Allocator interface {
	Create(name string, size int) (Buffer, error)
}

// Buffer is the subset of *shm.Region the registry needs.
type Buffer interface {
	Bytes() []byte
	Close() error
}

// shmAllocator is the production Allocator, backed by real shm.Region.
type shmAllocator struct{}

func (shmAllocator) Create(name string, size int) (Buffer, error) {
	return shm.Create(name, size)
}

// Registry is the authoritative set of windows for one compositor
// session: the unordered window set, the wid→window index, and the
// client→windows index. Z-ordering itself lives in the
// zorder package, which is constructed over a Registry.
type Registry struct {
	mu sync.RWMutex // the redraw lock: guards windows/wids/clients

	ServerIdent string
	Alloc       Allocator

	nextWID uint32 // monotonic, never reused within a session

	windows map[uint32]*Window
	clients map[ClientAddr][]uint32

	nextBufID uint32
}

// New returns an empty registry identified by serverIdent (used to
// namespace shm keys).
func New(serverIdent string) *Registry {
	return &Registry{
		ServerIdent: serverIdent,
		Alloc:       shmAllocator{},
		windows:     make(map[uint32]*Window),
		clients:     make(map[ClientAddr][]uint32),
	}
}

// Lock/Unlock expose the registry's redraw_lock to callers (zorder,
// render) that must take it across a multi-step registry+z-order
// operation under the fixed lock order (registry lock before the
// damage queue's).
func (r *Registry) Lock()    { r.mu.Lock() }
func (r *Registry) Unlock()  { r.mu.Unlock() }
func (r *Registry) RLock()   { r.mu.RLock() }
func (r *Registry) RUnlock() { r.mu.RUnlock() }

func (r *Registry) bufKey(wid, bufid uint32) string {
	return session.BufKey(r.ServerIdent, wid, bufid)
}

// Create allocates a new window for client, with the given initial pixel
// dimensions: zero-filled buffer, placement (0,0,z=1,
// rotation=0), FADE_IN beginning at tick.
func (r *Registry) Create(client ClientAddr, w, h int, tick int64) (*Window, error) {
	wid := atomic.AddUint32(&r.nextWID, 1)
	bufid := atomic.AddUint32(&r.nextBufID, 1)

	buf, err := r.Alloc.Create(r.bufKey(wid, bufid), 4*w*h)
	if err != nil {
		return nil, fmt.Errorf("window: create wid=%d: %w", wid, err)
	}

	win := &Window{
		WID:       wid,
		Owner:     client,
		Width:     w,
		Height:    h,
		Z:         1,
		BufID:     bufid,
		Buffer:    backend.NewSurface(buf.Bytes(), w, h, 4*w),
		AnimMode:  FadeIn,
		AnimStart: tick,
	}
	win.bufRegion = buf.(region)

	r.mu.Lock()
	r.windows[wid] = win
	r.clients[client] = append(r.clients[client], wid)
	r.mu.Unlock()
	return win, nil
}

// Get looks up a window by id. An unknown wid is not an error; callers
// should silently ignore the request.
func (r *Registry) Get(wid uint32) (*Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[wid]
	return w, ok
}

// All returns every window, in no particular order (z-order is zorder's
// job, not the registry's).
func (r *Registry) All() []*Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	return out
}

// ClientWindows returns the ids of every window owned by client.
func (r *Registry) ClientWindows(client ClientAddr) []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint32, len(r.clients[client]))
	copy(out, r.clients[client])
	return out
}

// ResizeOffer allocates a new buffer for a pending resize. Idempotent
// if a handshake is already in flight.
func (r *Registry) ResizeOffer(win *Window, w, h int) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if win.NewBufID != 0 {
		return win.NewBufID, nil // idempotent
	}
	bufid := atomic.AddUint32(&r.nextBufID, 1)
	buf, err := r.Alloc.Create(r.bufKey(win.WID, bufid), 4*w*h)
	if err != nil {
		return 0, fmt.Errorf("window: resize_offer wid=%d: %w", win.WID, err)
	}
	win.NewBufID = bufid
	win.NewBuffer = backend.NewSurface(buf.Bytes(), w, h, 4*w)
	win.newRegion = buf.(region)
	return bufid, nil
}

// ResizeFinish promotes the pending buffer, releasing the old one, and
// updates geometry. Returns the window's previous width and height.
func (r *Registry) ResizeFinish(win *Window, w, h int) (oldW, oldH int) {
	r.mu.Lock()
	oldW, oldH = win.Width, win.Height
	old := win.bufRegion

	win.Width, win.Height = w, h
	win.Buffer = win.NewBuffer
	win.BufID = win.NewBufID
	win.bufRegion = win.newRegion
	win.NewBuffer = nil
	win.NewBufID = 0
	win.newRegion = nil
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return oldW, oldH
}

// AbortResize drops an in-flight, unmapped new buffer, used when a
// window closes mid-handshake.
func (r *Registry) AbortResize(win *Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if win.newRegion != nil {
		win.newRegion.Close()
	}
	win.NewBuffer = nil
	win.NewBufID = 0
	win.newRegion = nil
}

// Close removes wid from all indices and releases its buffer(s). It
// does not touch z-order or damage; the caller (the render loop)
// is responsible for those, since the registry alone doesn't know tier
// membership.
func (r *Registry) Close(wid uint32) (*Window, bool) {
	r.mu.Lock()
	win, ok := r.windows[wid]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.windows, wid)
	owned := r.clients[win.Owner]
	for i, id := range owned {
		if id == wid {
			r.clients[win.Owner] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(r.clients[win.Owner]) == 0 {
		delete(r.clients, win.Owner)
	}
	r.mu.Unlock()

	r.AbortResize(win)
	r.mu.Lock()
	if win.bufRegion != nil {
		win.bufRegion.Close()
	}
	r.mu.Unlock()
	return win, true
}

// CloseClient returns the ids of every window owned by client and
// changes no state itself; starting the FADE_OUT of those windows is
// left to the caller, since that is tier/animation state the registry
// doesn't own.
func (r *Registry) CloseClient(client ClientAddr) []uint32 {
	return r.ClientWindows(client)
}
