// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package backend

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFramebuffer maps a raw BGRA framebuffer device (e.g. /dev/fb0) as
// a Surface of the given dimensions. The returned func unmaps and
// closes the device. Failure here is the one fatal startup error the
// compositor has: there is nothing to composite onto without it.
func OpenFramebuffer(path string, w, h int) (*Surface, func() error, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: open framebuffer %s: %w", path, err)
	}
	size := 4 * w * h
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("backend: mmap framebuffer %s: %w", path, err)
	}
	closer := func() error {
		err := unix.Munmap(data)
		f.Close()
		return err
	}
	return NewSurface(data, w, h, 4*w), closer, nil
}
