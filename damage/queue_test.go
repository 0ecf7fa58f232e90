// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package damage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yabsym/compositor/geom"
)

func TestDrainEmptyQueue(t *testing.T) {
	var q Queue
	_, ok := q.Drain()
	assert.False(t, ok)
}

func TestMarkRegionUnionsAndDrains(t *testing.T) {
	var q Queue
	q.MarkRegion(geom.Rect{X: 0, Y: 0, W: 10, H: 10})
	q.MarkRegion(geom.Rect{X: 5, Y: 5, W: 10, H: 10})

	clip, ok := q.Drain()
	assert.True(t, ok)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, W: 15, H: 15}, clip)

	_, ok = q.Drain()
	assert.False(t, ok, "queue must be empty after drain")
}
