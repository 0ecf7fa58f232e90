// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateWriteReadClose(t *testing.T) {
	Dir = t.TempDir()

	r, err := Create("sys.compositor.buf.1.1", 4*4*4)
	require.NoError(t, err)
	defer r.Close()

	buf := r.Bytes()
	require.Len(t, buf, 64)
	for i := range buf {
		require.Zero(t, buf[i])
	}
	buf[0] = 0xFF
	require.Equal(t, byte(0xFF), r.Bytes()[0])

	require.NoError(t, r.Close())
}

func TestSanitizeBlocksTraversal(t *testing.T) {
	require.Equal(t, "buf.1.1", sanitize("../../etc/buf.1.1"))
}
