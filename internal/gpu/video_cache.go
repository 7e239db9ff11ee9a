// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/arcomp/video"
	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// VideoCache turns decoded video frames into a sampleable texture.
//
// One cache belongs to one video layer for that layer's lifetime. The
// texture is reused from frame to frame and only reallocated when the
// frame size or pixel format changes. Release must be called when the
// layer is torn down.
type VideoCache struct {
	r     *Renderer
	label string
	tex   *Texture

	// scratch holds the downscaled copy of oversized frames.
	scratch *image.NRGBA
}

// NewVideoCache creates an empty cache. No GPU memory is allocated until
// the first Upload.
func (r *Renderer) NewVideoCache(label string) *VideoCache {
	return &VideoCache{r: r, label: label}
}

// Upload writes the frame into the cached texture and returns it.
// The returned texture stays valid until the next Upload or Release.
func (c *VideoCache) Upload(f video.Frame) (*Texture, error) {
	if c.r == nil || !c.r.initialized {
		return nil, ErrNotReady
	}
	if !f.Valid() {
		return nil, fmt.Errorf("video frame %dx%d: invalid pixel buffer", f.Width, f.Height)
	}

	var format gputypes.TextureFormat
	switch f.Format {
	case video.FormatBGRA8:
		format = gputypes.TextureFormatBGRA8Unorm
	case video.FormatRGBA8:
		format = gputypes.TextureFormatRGBA8Unorm
	default:
		return nil, fmt.Errorf("video frame format %s: %w", f.Format, ErrUnsupportedFormat)
	}

	if maxSize := c.r.cfg.MaxTextureSize; maxSize > 0 && (f.Width > maxSize || f.Height > maxSize) {
		f = c.downscale(f, maxSize)
		format = gputypes.TextureFormatRGBA8Unorm
	}

	w, h := uint32(f.Width), uint32(f.Height)
	if c.tex == nil || c.tex.width != w || c.tex.height != h || c.tex.format != format {
		c.r.DestroyTexture(c.tex)
		c.tex = nil
		t, err := c.r.newTexture(c.label, w, h, format, 1)
		if err != nil {
			return nil, err
		}
		c.tex = t
		slogger().Debug("arcomp: video texture allocated",
			"label", c.label, "width", w, "height", h, "format", f.Format.String())
	}

	if err := c.r.writeTexture(c.tex, 0, f.Pix, uint32(f.Stride), w, h); err != nil {
		return nil, fmt.Errorf("upload video frame %s: %w", c.label, err)
	}
	return c.tex, nil
}

// Texture returns the most recently uploaded texture, or nil.
func (c *VideoCache) Texture() *Texture { return c.tex }

// Release frees the cached texture and scratch memory.
// The cache may be reused afterwards; it starts empty again.
func (c *VideoCache) Release() {
	if c.r != nil {
		c.r.DestroyTexture(c.tex)
	}
	c.tex = nil
	c.scratch = nil
}

// downscale fits an oversized frame inside maxSize, keeping aspect ratio.
// The result is always RGBA8.
func (c *VideoCache) downscale(f video.Frame, maxSize int) video.Frame {
	src := &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	if f.Format == video.FormatBGRA8 {
		src = swizzleBGRA(src)
	}

	scale := float64(maxSize) / float64(max(f.Width, f.Height))
	w := max(1, int(float64(f.Width)*scale))
	h := max(1, int(float64(f.Height)*scale))
	if c.scratch == nil || c.scratch.Rect.Dx() != w || c.scratch.Rect.Dy() != h {
		c.scratch = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	xdraw.CatmullRom.Scale(c.scratch, c.scratch.Rect, src, src.Rect, xdraw.Src, nil)

	return video.Frame{
		Width:  w,
		Height: h,
		Stride: c.scratch.Stride,
		Pix:    c.scratch.Pix,
		Format: video.FormatRGBA8,
	}
}

// swizzleBGRA returns an RGBA copy of a BGRA buffer.
func swizzleBGRA(src *image.NRGBA) *image.NRGBA {
	b := src.Rect
	dst := image.NewNRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for i := 0; i < len(s); i += 4 {
			d[i], d[i+1], d[i+2], d[i+3] = s[i+2], s[i+1], s[i], s[i+3]
		}
	}
	return dst
}
