package arcomp

import (
	"image/color"

	"github.com/gogpu/arcomp/internal/gpu"
	"github.com/gogpu/gputypes"
)

// Option configures a Compositor during creation.
//
// Example:
//
//	comp, err := arcomp.New(device, queue,
//	    arcomp.WithSampleCount(1),
//	    arcomp.WithMask(arcomp.MaskConfig{Mode: arcomp.MaskImage, Image: shape}),
//	)
type Option func(*options)

// options holds optional configuration for Compositor creation.
type options struct {
	mask       MaskConfig
	builder    Builder
	gpu        gpu.Config
	clearColor gputypes.Color
}

// defaultOptions returns the default compositor options.
func defaultOptions() options {
	return options{
		builder: Builder{DepthBias: DefaultDepthBias},
		gpu: gpu.Config{
			SampleCount:    gpu.DefaultSampleCount,
			MaxTextureSize: gpu.DefaultMaxTextureSize,
		},
	}
}

// WithMask sets the initial mask. SetMask replaces it later.
func WithMask(m MaskConfig) Option {
	return func(o *options) {
		o.mask = m
	}
}

// WithMaskMode sets the mask mode and keeps the rest of the mask config.
func WithMaskMode(mode MaskMode) Option {
	return func(o *options) {
		o.mask.Mode = mode
	}
}

// WithSampleCount sets the MSAA sample count. 1 disables MSAA.
func WithSampleCount(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.gpu.SampleCount = n
		}
	}
}

// WithFitBounds sets the half-size of the box the tracking-lost layout is
// fitted into. The default 1x1 fills clip space.
func WithFitBounds(w, h float32) Option {
	return func(o *options) {
		o.builder.Fit.BoundWidth = w
		o.builder.Fit.BoundHeight = h
	}
}

// WithDepthBias sets the depth added per unit of Offset.Z. A bias of 0
// places every layer at depth 0.
func WithDepthBias(bias float32) Option {
	return func(o *options) {
		o.builder.DepthBias = bias
		o.builder.FlatDepth = bias == 0
	}
}

// WithSPIRV compiles the shaders to SPIR-V with naga before handing them
// to the backend.
func WithSPIRV(enabled bool) Option {
	return func(o *options) {
		o.gpu.PrecompileSPIRV = enabled
	}
}

// WithMaxTextureSize bounds the longest edge of uploaded images and video
// frames. Larger content is downscaled.
func WithMaxTextureSize(px int) Option {
	return func(o *options) {
		if px > 0 {
			o.gpu.MaxTextureSize = px
		}
	}
}

// WithLabel sets the prefix of GPU debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.gpu.Label = label
	}
}

// WithClearColor sets the color the mask pass clears to.
// The default is transparent black.
func WithClearColor(c color.Color) Option {
	return func(o *options) {
		r, g, b, a := c.RGBA()
		o.clearColor = gputypes.Color{
			R: float64(r) / 0xffff,
			G: float64(g) / 0xffff,
			B: float64(b) / 0xffff,
			A: float64(a) / 0xffff,
		}
	}
}
