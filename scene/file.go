package scene

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/gogpu/arcomp"
)

// Defaults applied to fields a scene file leaves out.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

// File is the TOML schema of a scene file.
type File struct {
	Canvas Canvas      `toml:"canvas"`
	Mask   Mask        `toml:"mask"`
	Layers []LayerSpec `toml:"layer"`
}

// Canvas describes the render target and layer sizing.
type Canvas struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// Extent is the size of a scale-1 layer. Defaults to 1x1.
	Extent [2]float32 `toml:"extent"`

	// MaskExtent is the mask quad size. Zero means Extent.
	MaskExtent [2]float32 `toml:"mask_extent"`

	// Aspect overrides the width/height ratio of the fullscreen layout.
	Aspect float32 `toml:"aspect"`

	// ClearColor is RGBA in 0..1. Zero is transparent black.
	ClearColor [4]float32 `toml:"clear_color"`
}

// Mask selects the mask mode and shape.
type Mask struct {
	Mode   string     `toml:"mode"`
	Image  string     `toml:"image"`
	Offset [2]float32 `toml:"offset"`
}

// LayerSpec is one [[layer]] table. Exactly one of Image, Video and Model
// must be set.
type LayerSpec struct {
	ID         int        `toml:"id"`
	Offset     [3]float32 `toml:"offset"`
	Scale      *float32   `toml:"scale"`
	UseStencil *bool      `toml:"use_stencil"`

	Image string `toml:"image"`

	Video string  `toml:"video"`
	FPS   float64 `toml:"fps"`
	Loop  *bool   `toml:"loop"`
	Alpha string  `toml:"alpha"`

	Model string `toml:"model"`
}

func (f *File) normalize() {
	if f.Canvas.Width == 0 {
		f.Canvas.Width = DefaultWidth
	}
	if f.Canvas.Height == 0 {
		f.Canvas.Height = DefaultHeight
	}
	if f.Canvas.Extent == [2]float32{} {
		f.Canvas.Extent = [2]float32{1, 1}
	}
	for i := range f.Layers {
		if f.Layers[i].Video != "" && f.Layers[i].FPS == 0 {
			f.Layers[i].FPS = DefaultFPS
		}
	}
}

func (f *File) validate() error {
	if err := f.size().Validate(); err != nil {
		return fmt.Errorf("canvas: %w", err)
	}
	mode, err := parseMaskMode(f.Mask.Mode)
	if err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if mode == arcomp.MaskImage && f.Mask.Image == "" {
		return errors.New("mask: mode image needs an image path")
	}

	seen := make(map[int]bool, len(f.Layers))
	for i, l := range f.Layers {
		if seen[l.ID] {
			return fmt.Errorf("layer %d: duplicate id %d", i, l.ID)
		}
		seen[l.ID] = true

		sources := 0
		for _, s := range []string{l.Image, l.Video, l.Model} {
			if s != "" {
				sources++
			}
		}
		if sources != 1 {
			return fmt.Errorf("layer %d: exactly one of image, video or model is required", l.ID)
		}
		if l.Video != "" {
			if l.FPS <= 0 {
				return fmt.Errorf("layer %d: fps %g must be positive", l.ID, l.FPS)
			}
			if _, err := arcomp.ParseAlphaLayout(l.Alpha); err != nil {
				return fmt.Errorf("layer %d: %w", l.ID, err)
			}
		}
	}
	return nil
}

func (f *File) size() arcomp.Size {
	return arcomp.Size{
		Width:      f.Canvas.Width,
		Height:     f.Canvas.Height,
		Extent:     arcomp.Extent{Width: f.Canvas.Extent[0], Height: f.Canvas.Extent[1]},
		MaskExtent: arcomp.Extent{Width: f.Canvas.MaskExtent[0], Height: f.Canvas.MaskExtent[1]},
		Aspect:     f.Canvas.Aspect,
	}
}

func (f *File) clearColor() color.NRGBA {
	c := f.Canvas.ClearColor
	return color.NRGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(c[3])}
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

func parseMaskMode(s string) (arcomp.MaskMode, error) {
	switch s {
	case "", "none":
		return arcomp.MaskNone, nil
	case "image":
		return arcomp.MaskImage, nil
	case "video":
		return arcomp.MaskVideo, nil
	default:
		return arcomp.MaskNone, fmt.Errorf("unknown mask mode %q", s)
	}
}
