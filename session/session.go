// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session derives the compositor's server identifier and the
// shared-memory key names hung off it.
package session

import (
	"fmt"
	"os"
)

// Ident returns the server identifier: "compositor" natively, or
// "compositor-nest-<pid>" when running as a client of another
// compositor, so multiple nested sessions never collide.
func Ident(nested bool) string {
	if nested {
		return fmt.Sprintf("compositor-nest-%d", os.Getpid())
	}
	return "compositor"
}

// ExportDisplay publishes ident as DISPLAY for inheritance by launched
// clients.
func ExportDisplay(ident string) error {
	return os.Setenv("DISPLAY", ident)
}

// FontKey is the shm key a preloaded font blob lives under.
func FontKey(ident, family string) string {
	return fmt.Sprintf("sys.%s.fonts.%s", ident, family)
}

// BufKey is the shm key a window's pixel buffer lives under.
func BufKey(ident string, wid, bufid uint32) string {
	return fmt.Sprintf("sys.%s.buf.%d.%d", ident, wid, bufid)
}
