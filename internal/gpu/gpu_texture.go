package gpu

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultMaxTextureSize bounds the longest edge of uploaded images.
const DefaultMaxTextureSize = 4096

// Texture is a sampleable GPU texture together with the bind group that
// binds it next to the shared uniform buffer and sampler.
type Texture struct {
	label     string
	tex       hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
	width     uint32
	height    uint32
	format    gputypes.TextureFormat
	mipLevels uint32
}

// Width returns the width of mip level 0.
func (t *Texture) Width() int { return int(t.width) }

// Height returns the height of mip level 0.
func (t *Texture) Height() int { return int(t.height) }

// MipLevels returns the number of mip levels.
func (t *Texture) MipLevels() int { return int(t.mipLevels) }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// String returns a description for diagnostics.
func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%s, %dx%d, %d mips)", t.label, t.width, t.height, t.mipLevels)
}

// PrepareImage converts a decoded image into straight-alpha NRGBA and
// shrinks it to fit within maxSize on both axes. Images already in range
// are copied, never scaled.
func PrepareImage(img image.Image, maxSize int) *image.NRGBA {
	b := img.Bounds()
	if maxSize > 0 && (b.Dx() > maxSize || b.Dy() > maxSize) {
		return imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}
	return imaging.Clone(img)
}

// MipChain returns base followed by successively halved levels down to 1x1.
// Level 0 is base itself, not a copy.
func MipChain(base *image.NRGBA) []*image.NRGBA {
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil
	}
	n := 1 + int(math.Floor(math.Log2(float64(max(w, h)))))
	levels := make([]*image.NRGBA, n)
	levels[0] = base
	for i := 1; i < n; i++ {
		w, h = max(1, w/2), max(1, h/2)
		levels[i] = imaging.Resize(levels[i-1], w, h, imaging.Box)
	}
	return levels
}

// UploadImage creates a mipmapped RGBA texture from a decoded image.
func (r *Renderer) UploadImage(label string, img image.Image) (*Texture, error) {
	if !r.initialized {
		return nil, ErrNotReady
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("upload %s: empty image", label)
	}

	levels := MipChain(PrepareImage(img, r.cfg.MaxTextureSize))
	base := levels[0].Bounds()

	t, err := r.newTexture(label, uint32(base.Dx()), uint32(base.Dy()),
		gputypes.TextureFormatRGBA8Unorm, uint32(len(levels)))
	if err != nil {
		return nil, err
	}

	for mip, lvl := range levels {
		lb := lvl.Bounds()
		if err := r.writeTexture(t, uint32(mip), lvl.Pix, uint32(lvl.Stride), uint32(lb.Dx()), uint32(lb.Dy())); err != nil {
			r.DestroyTexture(t)
			return nil, fmt.Errorf("upload %s mip %d: %w", label, mip, err)
		}
	}

	slogger().Debug("arcomp: texture uploaded",
		"label", label, "width", t.width, "height", t.height, "mips", t.mipLevels)
	return t, nil
}

// newTexture allocates the texture, its view and its bind group.
func (r *Renderer) newTexture(label string, w, h uint32, format gputypes.TextureFormat, mips uint32) (*Texture, error) {
	t := &Texture{label: label, width: w, height: h, format: format, mipLevels: mips}

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         r.label(label),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	t.tex = tex

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: r.label(label + "_view"),
	})
	if err != nil {
		r.DestroyTexture(t)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	t.view = view

	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  r.label(label + "_bind"),
		Layout: r.pipelines.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: UniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		r.DestroyTexture(t)
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	t.bindGroup = bg
	return t, nil
}

// writeTexture uploads one mip level of tightly or loosely packed rows.
func (r *Renderer) writeTexture(t *Texture, mip uint32, pix []byte, stride, w, h uint32) error {
	return r.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: mip,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  stride,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// DestroyTexture releases the texture, its view and its bind group.
// Nil textures are ignored.
func (r *Renderer) DestroyTexture(t *Texture) {
	if t == nil {
		return
	}
	if t.bindGroup != nil {
		r.device.DestroyBindGroup(t.bindGroup)
		t.bindGroup = nil
	}
	if t.view != nil {
		r.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		r.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
