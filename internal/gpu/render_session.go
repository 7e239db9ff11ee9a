package gpu

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Draw is one textured quad in the content or backdrop pass.
type Draw struct {
	Mesh    *Mesh
	Texture *Texture
}

// Frame describes everything one redraw submits.
//
// The mask pass always runs: it clears color and stencil, then stamps
// MaskStencilRef wherever the mask mesh lands. The backdrop pass runs only
// when Background is set and draws it without any stencil test. The
// content pass draws Layers in order, each gated by the stencil.
type Frame struct {
	Uniforms [UniformSize]byte

	Mask        MaskPipeline
	MaskMesh    *Mesh
	MaskTexture *Texture

	Content    ContentPipeline
	Background *Draw
	Layers     []Draw

	ClearColor gputypes.Color

	// Readback, when non-nil, receives the finished frame. Its bounds must
	// match the attachment size. Not available in surface mode.
	Readback *image.RGBA
}

// RenderFrame validates the frame, encodes the mask, backdrop and content
// passes into one command buffer and submits it.
//
// Any missing required resource abandons the frame before anything is
// encoded; the returned error then wraps ErrFrameDropped. Layers without a
// texture are skipped, not fatal.
func (r *Renderer) RenderFrame(f *Frame) error {
	r.reap()

	if err := r.validate(f); err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}

	if err := r.queue.WriteBuffer(r.uniformBuf, 0, f.Uniforms[:]); err != nil {
		return fmt.Errorf("%w: write uniforms: %w", ErrFrameDropped, err)
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: r.label("encoder"),
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(r.label("frame")); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	r.encodeMaskPass(encoder, f)
	if f.Background != nil {
		r.encodeBackgroundPass(encoder, f.Background)
	}
	r.encodeContentPass(encoder, f)

	if f.Readback != nil {
		return r.submitReadback(encoder, f.Readback)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	idx, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		r.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}
	r.inflight = append(r.inflight, submission{index: idx, cmd: cmdBuf})
	return nil
}

func (r *Renderer) validate(f *Frame) error {
	switch {
	case f == nil:
		return errors.New("nil frame")
	case !r.Ready():
		return ErrNotReady
	case !r.targets.ready():
		return errors.New("render attachments not allocated")
	case f.MaskMesh == nil || f.MaskMesh.vertexBuf == nil:
		return errors.New("mask mesh missing")
	case f.Mask >= maskPipelineCount:
		return fmt.Errorf("unknown mask pipeline %d", f.Mask)
	case f.Content >= contentPipelineCount:
		return fmt.Errorf("unknown content pipeline %d", f.Content)
	}
	if f.Background != nil && (f.Background.Mesh == nil || f.Background.Mesh.indexBuf == nil) {
		return errors.New("background mesh missing")
	}
	for i, d := range f.Layers {
		if d.Mesh == nil || d.Mesh.vertexBuf == nil || d.Mesh.indexBuf == nil {
			return fmt.Errorf("layer %d mesh missing", i)
		}
	}
	if f.Readback != nil {
		if r.targets.surfaceView != nil {
			return errors.New("readback requested in surface mode")
		}
		b := f.Readback.Bounds()
		if uint32(b.Dx()) != r.targets.width || uint32(b.Dy()) != r.targets.height {
			return fmt.Errorf("readback target %dx%d does not match attachments %dx%d",
				b.Dx(), b.Dy(), r.targets.width, r.targets.height)
		}
	}
	return nil
}

// encodeMaskPass clears color and stencil, then writes the stencil.
func (r *Renderer) encodeMaskPass(encoder hal.CommandEncoder, f *Frame) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: r.label("mask_pass"),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.targets.colorView(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: f.ClearColor,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              r.targets.stencilView,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		},
	})

	tex := r.white
	if f.Mask == MaskTextured && f.MaskTexture != nil {
		tex = f.MaskTexture
	}
	rp.SetPipeline(r.pipelines.mask[f.Mask])
	rp.SetBindGroup(0, tex.bindGroup, nil)
	rp.SetStencilReference(MaskStencilRef)
	rp.SetVertexBuffer(0, f.MaskMesh.vertexBuf, 0)
	rp.Draw(f.MaskMesh.vertexCount, 1, 0, 0)
	rp.End()
}

// encodeBackgroundPass draws the backdrop on top of the cleared color,
// ignoring the stencil.
func (r *Renderer) encodeBackgroundPass(encoder hal.CommandEncoder, bg *Draw) {
	if bg.Texture == nil {
		slogger().Debug("arcomp: backdrop skipped, no texture")
		return
	}
	rp := encoder.BeginRenderPass(r.loadPass("background_pass", false))
	rp.SetPipeline(r.pipelines.background)
	r.drawQuad(rp, bg)
	rp.End()
}

// encodeContentPass draws every layer gated by the stencil and resolves.
func (r *Renderer) encodeContentPass(encoder hal.CommandEncoder, f *Frame) {
	rp := encoder.BeginRenderPass(r.loadPass("content_pass", true))
	rp.SetPipeline(r.pipelines.content[f.Content])
	rp.SetStencilReference(MaskStencilRef)
	for i := range f.Layers {
		if f.Layers[i].Texture == nil {
			continue
		}
		r.drawQuad(rp, &f.Layers[i])
	}
	rp.End()
}

// loadPass describes a pass that keeps the color and stencil written by
// earlier passes. Only the final pass resolves MSAA.
func (r *Renderer) loadPass(name string, resolve bool) *hal.RenderPassDescriptor {
	color := hal.RenderPassColorAttachment{
		View:    r.targets.colorView(),
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if resolve {
		color.ResolveTarget = r.targets.resolveTarget()
	}
	return &hal.RenderPassDescriptor{
		Label:            r.label(name),
		ColorAttachments: []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            r.targets.stencilView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
			StencilLoadOp:   gputypes.LoadOpLoad,
			StencilStoreOp:  gputypes.StoreOpStore,
		},
	}
}

func (r *Renderer) drawQuad(rp hal.RenderPassEncoder, d *Draw) {
	rp.SetBindGroup(0, d.Texture.bindGroup, nil)
	rp.SetVertexBuffer(0, d.Mesh.vertexBuf, 0)
	rp.SetIndexBuffer(d.Mesh.indexBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(d.Mesh.indexCount, 1, 0, 0, 0)
}

// submitReadback copies the resolved frame into a staging buffer, submits,
// waits for the GPU and converts the BGRA rows into dst.
func (r *Renderer) submitReadback(encoder hal.CommandEncoder, dst *image.RGBA) error {
	w, h := r.targets.width, r.targets.height
	resolveTex := r.targets.resolveTex

	// After the resolve the texture is in attachment layout;
	// CopyTextureToBuffer needs it as a copy source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// WebGPU requires BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: r.label("staging"),
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(staging)

	encoder.CopyTextureToBuffer(resolveTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: resolveTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Back to attachment usage for the next frame's passes.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	if _, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := r.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	mapping, err := r.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)
	copyBGRARows(dst, mapped, int(alignedBytesPerRow))
	if err := r.device.UnmapBuffer(staging); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}
	return nil
}

// copyBGRARows strips row padding from src and converts BGRA to RGBA into dst.
func copyBGRARows(dst *image.RGBA, src []byte, srcStride int) {
	b := dst.Bounds()
	rowBytes := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		s := src[y*srcStride : y*srcStride+rowBytes]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+rowBytes]
		for i := 0; i < rowBytes; i += 4 {
			d[i+0] = s[i+2]
			d[i+1] = s[i+1]
			d[i+2] = s[i+0]
			d[i+3] = s[i+3]
		}
	}
}
