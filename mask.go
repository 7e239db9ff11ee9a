package arcomp

import (
	"image"

	"github.com/gogpu/arcomp/internal/gpu"
)

// MaskMode selects how the mask pass shapes the stencil.
type MaskMode uint8

const (
	// MaskNone stamps the whole mask quad.
	MaskNone MaskMode = iota

	// MaskImage stamps only where the mask image is opaque (alpha >= 0.5)
	// and shifts the mask quad by MaskConfig.Offset.
	MaskImage

	// MaskVideo is reserved. It renders like MaskNone and logs a warning.
	MaskVideo
)

// String returns the mode name.
func (m MaskMode) String() string {
	switch m {
	case MaskNone:
		return "None"
	case MaskImage:
		return "Image"
	case MaskVideo:
		return "Video"
	default:
		return "Unknown"
	}
}

// MaskConfig configures the mask.
type MaskConfig struct {
	Mode MaskMode

	// Image is the mask shape for MaskImage.
	Image image.Image

	// Offset shifts the mask quad in the plane. Only used by MaskImage.
	Offset Vec2
}

// offset returns the planar shift the mask quad receives.
func (m MaskConfig) offset() Vec2 {
	if m.Mode == MaskImage {
		return m.Offset
	}
	return Vec2{}
}

// pipeline returns the mask pipeline variant for the mode.
func (m MaskConfig) pipeline() gpu.MaskPipeline {
	if m.Mode == MaskImage && m.Image != nil {
		return gpu.MaskTextured
	}
	return gpu.MaskPlain
}
