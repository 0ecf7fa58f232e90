// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"
	"image/color"
)

// CursorKind selects which pointer sprite is drawn; the sprite follows
// the interaction state rather than staying a fixed arrow.
type CursorKind int

const (
	CursorNormal CursorKind = iota
	CursorMove
	CursorResize
)

// CursorSize is the fixed 64x64 footprint used when damaging the
// cursor's old and new positions.
const CursorSize = 64

// sprites holds one procedurally built sprite per CursorKind. A real
// deployment would load PNG sprites through the external sprite
// loader; these stand in so the module renders something without it.
var sprites = map[CursorKind]*image.RGBA{
	CursorNormal: arrowSprite(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
	CursorMove:   arrowSprite(color.RGBA{R: 120, G: 200, B: 255, A: 255}),
	CursorResize: arrowSprite(color.RGBA{R: 255, G: 180, B: 80, A: 255}),
}

func arrowSprite(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, CursorSize, CursorSize))
	for y := 0; y < CursorSize/2; y++ {
		for x := 0; x <= y; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Sprite returns the sprite for kind.
func Sprite(kind CursorKind) *image.RGBA {
	return sprites[kind]
}
