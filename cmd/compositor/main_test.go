// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeometry(t *testing.T) {
	w, h, err := parseGeometry("640x480")
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	for _, bad := range []string{"", "640", "640x", "x480", "0x480", "-1x10", "axb"} {
		_, _, err := parseGeometry(bad)
		assert.Error(t, err, "geometry %q", bad)
	}
}
