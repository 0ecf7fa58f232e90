// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shm implements named shared-memory byte regions,
// used for window pixel buffers and preloaded font blobs ("sys.<server-ident>.buf.<wid>.<bufid>" and
// "sys.<server-ident>.fonts.<family-name>").
//
// Regions are backed by files under a shared-memory directory and
// mapped with mmap, so both sides see writes without copying. A region's
// size is fixed when it is created; there is no resize operation.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Dir is the directory regions are created under. /dev/shm is a tmpfs on
// Linux; it is overridable for tests and non-Linux development.
var Dir = "/dev/shm"

// Region is one named, mapped byte range.
type Region struct {
	Name string
	Size int

	mu    sync.Mutex
	file  *os.File
	data  []byte
	owned bool // created here (unlink on Close) vs mapped from another process
}

// Create allocates a new region of size bytes, zero-filled, under name.
// name should already be fully namespaced (e.g.
// "sys.compositor.buf.3.1").
func Create(name string, size int) (*Region, error) {
	path := filepath.Join(Dir, sanitize(name))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shm: truncate %s: %w", name, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Region{Name: name, Size: size, file: f, data: data, owned: true}, nil
}

// Open maps an existing region created by another process (e.g. a nested
// compositor mapping a window buffer its host allocated). The size is
// taken from the backing file.
func Open(name string) (*Region, error) {
	path := filepath.Join(Dir, sanitize(name))
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", name, err)
	}
	size := int(fi.Size())
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Region{Name: name, Size: size, file: f, data: data}, nil
}

// Bytes returns the mapped region. The caller must not retain the slice
// past Close.
func (r *Region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Close unmaps and removes the backing file.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if r.file != nil {
		r.file.Close()
		if r.owned {
			os.Remove(filepath.Join(Dir, sanitize(r.Name)))
		}
		r.file = nil
	}
	return err
}

// sanitize turns a shm key into a filesystem-safe leaf name: keys
// are already dot-separated idents, but this guards against path
// traversal from an unexpected name.
func sanitize(name string) string {
	return filepath.Base(name)
}
