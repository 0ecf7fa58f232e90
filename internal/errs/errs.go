// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errs provides small error-logging helpers used at call sites
// throughout the compositor instead of repeated "if err != nil { log }"
// blocks.
package errs

import (
	"log/slog"
	"runtime"
	"strconv"
)

// Log logs the given error, if non-nil, along with its caller, and
// returns it unchanged. The intended usage is:
//
//	return errs.Log(doThing())
func Log(err error) error {
	if err != nil {
		slog.Error(err.Error() + " | " + callerInfo())
	}
	return err
}

// Log1 logs err if non-nil and returns v regardless. Used when a call
// returns a value alongside an error that is not fatal to the caller.
func Log1[T any](v T, err error) T {
	if err != nil {
		slog.Error(err.Error() + " | " + callerInfo())
	}
	return v
}

// Must panics if err is non-nil. Reserved for startup-time failures that
// the compositor has no sensible way to run without (e.g. the backend
// framebuffer could not be acquired).
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// callerInfo describes the function and source line that called Log or
// Log1 (two frames up from callerInfo itself).
func callerInfo() string {
	pc, file, line, _ := runtime.Caller(2)
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return name + " " + file + ":" + strconv.Itoa(line)
}
