package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ColorFormat is the format of every color attachment the renderer draws to.
const ColorFormat = gputypes.TextureFormatBGRA8Unorm

// depthStencilFormat backs the mask stencil. Depth is never tested.
const depthStencilFormat = gputypes.TextureFormatDepth24PlusStencil8

// textureSet holds the attachments for one render target size:
//   - MSAA color: sampleCount samples, BGRA8Unorm (only when sampleCount > 1)
//   - Depth/stencil: sampleCount samples, Depth24PlusStencil8
//   - Resolve: 1x sample, BGRA8Unorm, RenderAttachment | CopySrc (offscreen only)
//
// In surface mode the caller's view replaces the resolve texture.
type textureSet struct {
	samples uint32

	msaaTex     hal.Texture
	msaaView    hal.TextureView
	stencilTex  hal.Texture
	stencilView hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView

	// surfaceView is borrowed from the host and never destroyed here.
	surfaceView hal.TextureView

	width  uint32
	height uint32
}

// colorView returns the view the render passes draw into.
func (ts *textureSet) colorView() hal.TextureView {
	if ts.msaaView != nil {
		return ts.msaaView
	}
	return ts.targetView()
}

// resolveTarget returns the view MSAA color resolves into, or nil when
// rendering single-sampled.
func (ts *textureSet) resolveTarget() hal.TextureView {
	if ts.msaaView == nil {
		return nil
	}
	return ts.targetView()
}

// targetView is the single-sample view that ends up holding the frame.
func (ts *textureSet) targetView() hal.TextureView {
	if ts.surfaceView != nil {
		return ts.surfaceView
	}
	return ts.resolveView
}

// ready reports whether every attachment for the current mode exists.
func (ts *textureSet) ready() bool {
	if ts.stencilView == nil || ts.targetView() == nil {
		return false
	}
	return ts.samples <= 1 || ts.msaaView != nil
}

// ensureTextures creates or recreates textures if the requested dimensions
// differ from the current size. If dimensions match and textures exist,
// this is a no-op. The labelPrefix parameter distinguishes GPU debug labels
// between compositor instances.
func (ts *textureSet) ensureTextures(device hal.Device, w, h uint32, labelPrefix string) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("render target %dx%d: %w", w, h, ErrInvalidTarget)
	}
	if ts.width == w && ts.height == h && ts.stencilTex != nil {
		return nil
	}
	ts.destroyTextures(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if ts.samples > 1 {
		msaaTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         labelPrefix + "_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   ts.samples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        ColorFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create MSAA color texture: %w", err)
		}
		ts.msaaTex = msaaTex

		msaaView, err := device.CreateTextureView(msaaTex, &hal.TextureViewDescriptor{
			Label: labelPrefix + "_msaa_color_view",
		})
		if err != nil {
			ts.destroyTextures(device)
			return fmt.Errorf("create MSAA color view: %w", err)
		}
		ts.msaaView = msaaView
	}

	stencilTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         labelPrefix + "_depth_stencil",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   max(ts.samples, 1),
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthStencilFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		ts.destroyTextures(device)
		return fmt.Errorf("create depth/stencil texture: %w", err)
	}
	ts.stencilTex = stencilTex

	stencilView, err := device.CreateTextureView(stencilTex, &hal.TextureViewDescriptor{
		Label: labelPrefix + "_depth_stencil_view",
	})
	if err != nil {
		ts.destroyTextures(device)
		return fmt.Errorf("create depth/stencil view: %w", err)
	}
	ts.stencilView = stencilView

	// Surface mode: the host view is the resolve target.
	if ts.surfaceView == nil {
		resolveTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         labelPrefix + "_resolve",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        ColorFormat,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			ts.destroyTextures(device)
			return fmt.Errorf("create resolve texture: %w", err)
		}
		ts.resolveTex = resolveTex

		resolveView, err := device.CreateTextureView(resolveTex, &hal.TextureViewDescriptor{
			Label: labelPrefix + "_resolve_view",
		})
		if err != nil {
			ts.destroyTextures(device)
			return fmt.Errorf("create resolve view: %w", err)
		}
		ts.resolveView = resolveView
	}

	ts.width = w
	ts.height = h
	return nil
}

// destroyTextures releases all owned texture resources and resets dimensions.
// The borrowed surface view is left alone.
func (ts *textureSet) destroyTextures(device hal.Device) {
	if ts.resolveView != nil {
		device.DestroyTextureView(ts.resolveView)
		ts.resolveView = nil
	}
	if ts.resolveTex != nil {
		device.DestroyTexture(ts.resolveTex)
		ts.resolveTex = nil
	}
	if ts.stencilView != nil {
		device.DestroyTextureView(ts.stencilView)
		ts.stencilView = nil
	}
	if ts.stencilTex != nil {
		device.DestroyTexture(ts.stencilTex)
		ts.stencilTex = nil
	}
	if ts.msaaView != nil {
		device.DestroyTextureView(ts.msaaView)
		ts.msaaView = nil
	}
	if ts.msaaTex != nil {
		device.DestroyTexture(ts.msaaTex)
		ts.msaaTex = nil
	}
	ts.width = 0
	ts.height = 0
}
