// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backend is the compositor's pixel-blitting graphics backend
// (create_surface/blit/paint_with_alpha/scale/rotate/translate/clip/
// present). This package gives that interface a concrete software
// implementation so the module is runnable end to end; a GPU-accelerated
// backend could satisfy the same Backend interface without touching any
// other package.
package backend

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Surface wraps a client's ARGB32 pixel buffer ("stride =
// 4·width") as a standard library image.Image/draw.Image, so it can be
// composited with both stdlib image/draw and golang.org/x/image/draw.
//
// Byte layout per pixel is little-endian 0xAARRGGBB: B, G, R, A.
type Surface struct {
	Pix    []byte
	Stride int
	W, H   int
}

// NewSurface wraps an existing buffer.
func NewSurface(buf []byte, w, h, stride int) *Surface {
	return &Surface{Pix: buf, Stride: stride, W: w, H: h}
}

func (s *Surface) ColorModel() color.Model { return color.RGBAModel }

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.W, s.H)
}

func (s *Surface) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= s.W || y >= s.H {
		return color.RGBA{}
	}
	i := y*s.Stride + x*4
	b, g, r, a := s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3]
	return color.RGBA{R: r, G: g, B: b, A: a}
}

func (s *Surface) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= s.W || y >= s.H {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r, g, b, a := rgba.R, rgba.G, rgba.B, rgba.A
	i := y*s.Stride + x*4
	s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = b, g, r, a
}

// Alpha returns the alpha channel at (x, y), used by zorder's per-pixel
// hit test. Out-of-bounds reads as fully transparent.
func (s *Surface) Alpha(x, y int) uint8 {
	if x < 0 || y < 0 || x >= s.W || y >= s.H {
		return 0
	}
	return s.Pix[y*s.Stride+x*4+3]
}

// alphaScaled multiplies an image's alpha channel by a [0,1] factor, for
// PaintWithAlpha / fade envelopes. It implements image.Image
// so it can feed straight into draw.Draw.
type alphaScaled struct {
	src   image.Image
	scale float64
}

func (a alphaScaled) ColorModel() color.Model { return color.RGBAModel }
func (a alphaScaled) Bounds() image.Rectangle { return a.src.Bounds() }
func (a alphaScaled) At(x, y int) color.Color {
	c := color.RGBAModel.Convert(a.src.At(x, y)).(color.RGBA)
	c.A = uint8(float64(c.A) * a.scale)
	return c
}

// Backend composes the blit/paint/present operations onto a destination
// draw.Image (normally the compositor's offscreen framebuffer).
type Backend struct {
	Dst draw.Image
}

// New returns a Backend targeting dst.
func New(dst draw.Image) *Backend { return &Backend{Dst: dst} }

// CreateSurface wraps a client buffer as a paintable surface.
func (b *Backend) CreateSurface(buf []byte, w, h, stride int) *Surface {
	return NewSurface(buf, w, h, stride)
}

// Blit copies src onto the backend's destination at (dx, dy), clipped to
// clip if non-empty.
func (b *Backend) Blit(src image.Image, dx, dy int, clip image.Rectangle) {
	r := src.Bounds().Add(image.Pt(dx, dy))
	if !clip.Empty() {
		r = r.Intersect(clip)
	}
	draw.Draw(b.Dst, r, src, src.Bounds().Min, draw.Over)
}

// PaintWithAlpha blits src at (dx, dy) with its alpha channel scaled by
// alpha in [0, 1] (the fade-in/fade-out envelope).
func (b *Backend) PaintWithAlpha(src image.Image, dx, dy int, alpha float64, clip image.Rectangle) {
	r := src.Bounds().Add(image.Pt(dx, dy))
	if !clip.Empty() {
		r = r.Intersect(clip)
	}
	draw.Draw(b.Dst, r, alphaScaled{src, alpha}, src.Bounds().Min, draw.Over)
}

// Scale returns a new image of src scaled by (sx, sy) about its own
// top-left, sampled with a fast filter.
func Scale(src image.Image, sx, sy float64) image.Image {
	b := src.Bounds()
	w := int(float64(b.Dx()) * sx)
	h := int(float64(b.Dy()) * sy)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// Rotate returns a new image of src rotated by theta radians about its
// own center, using an affine transform (the AABB-based damage around a
// rotated window already accounts for the extra bounds; see geom).
func Rotate(src image.Image, theta float64) image.Image {
	b := src.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	// Output canvas large enough to hold the rotated rectangle.
	diag := int(2 * (cx + cy))
	dst := image.NewRGBA(image.Rect(0, 0, diag, diag))
	ocx, ocy := float64(diag)/2, float64(diag)/2

	s, c := math.Sin(theta), math.Cos(theta)
	m := f64.Aff3{
		c, -s, ocx - cx*c + cy*s,
		s, c, ocy - cx*s - cy*c,
	}
	xdraw.NearestNeighbor.Transform(dst, m, src, b, xdraw.Over, nil)
	return dst
}

// Translate offsets a rectangle by (dx, dy); composition applies
// translation by choice of destination origin in Blit/PaintWithAlpha, so
// this is a pure geometry helper for callers that need the translated
// rect before blitting (e.g. to compute damage).
func Translate(r image.Rectangle, dx, dy int) image.Rectangle {
	return r.Add(image.Pt(dx, dy))
}

// Clip intersects r with bound.
func Clip(r, bound image.Rectangle) image.Rectangle {
	return r.Intersect(bound)
}

// Present copies the backend's destination to a real output surface
// (native mode) with the SOURCE operator: a plain
// overwrite, no blending.
func (b *Backend) Present(out draw.Image, clip image.Rectangle) {
	r := b.Dst.Bounds()
	if !clip.Empty() {
		r = r.Intersect(clip)
	}
	draw.Draw(out, r, b.Dst, r.Min, draw.Src)
}
