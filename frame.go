package arcomp

import (
	"errors"
	"image"

	"github.com/gogpu/arcomp/internal/gpu"
)

// Stats counts what Draw did since the compositor was created.
type Stats struct {
	// Frames is the number of submitted frames.
	Frames uint64
	// Dropped is the number of redraws abandoned before submission.
	Dropped uint64
	// SkippedLayers counts layer draws skipped for lack of a texture.
	SkippedLayers uint64
}

// Stats returns the draw counters. Render goroutine only.
func (c *Compositor) Stats() Stats {
	return c.stats
}

// Draw renders one frame if a redraw was requested and the geometry is
// ready. When target is non-nil the finished frame is copied into it; its
// bounds must match the target size. Draw reports whether a frame was
// submitted.
//
// Draw must be called from the render goroutine. It never blocks on
// video decoding and never returns an error: a frame that cannot be
// rendered whole is dropped and logged.
func (c *Compositor) Draw(target *image.RGBA) bool {
	if c.closed.Load() {
		return false
	}
	c.applyPending()

	if !c.needsRedraw.Swap(false) {
		return false
	}
	if !c.drawable() {
		Logger().Debug("arcomp: draw skipped", "state", c.State(),
			"buffers_ready", c.buffersReady, "meshes", len(c.meshes), "layers", len(c.layers))
		return false
	}

	c.mu.Lock()
	fs := c.frame
	c.mu.Unlock()

	f := c.assembleFrame(fs)
	f.Readback = target
	if err := c.r.RenderFrame(f); err != nil {
		c.stats.Dropped++
		if errors.Is(err, gpu.ErrFrameDropped) {
			Logger().Warn("arcomp: frame dropped", "err", err)
		} else {
			Logger().Error("arcomp: frame submission failed", "err", err)
		}
		return false
	}
	c.stats.Frames++
	return true
}

// drawable is the draw gate: buffers exist for exactly the current layer
// set and no rebuild is in progress.
func (c *Compositor) drawable() bool {
	return c.State() == Ready &&
		c.buffersReady &&
		len(c.meshes) == len(c.layers) &&
		c.maskMesh != nil
}

// assembleFrame picks buffers, textures and pipelines for fs.
//
// Tracking draws every stencilled layer in anchor space. TrackingLost
// switches to the fitted fullscreen buffers with identity matrices and
// adds the backdrop. NotRecognized runs the mask pass only.
func (c *Compositor) assembleFrame(fs FrameState) *gpu.Frame {
	f := &gpu.Frame{
		Mask:       c.mask.pipeline(),
		MaskMesh:   c.maskMesh,
		Content:    c.content,
		ClearColor: c.opts.clearColor,
	}
	if c.maskTexture != nil {
		f.MaskTexture = c.maskTexture
	} else {
		f.Mask = gpu.MaskPlain
	}

	switch fs.Status {
	case Tracking:
		f.Uniforms = Uniforms(fs)
		if !fs.complete() {
			Logger().Debug("arcomp: incomplete transforms, using identity")
		}
	case TrackingLost:
		f.Uniforms = identityUniforms()
		f.MaskMesh = c.fullMaskMesh
		f.Background = c.backdrop()
	default:
		f.Uniforms = identityUniforms()
		return f
	}

	lost := fs.Status == TrackingLost
	f.Layers = make([]gpu.Draw, 0, len(c.layers))
	for i, l := range c.layers {
		if !l.UseStencil {
			continue
		}
		tex := c.layerTexture(l)
		if tex == nil {
			c.stats.SkippedLayers++
			continue
		}
		mesh := c.meshes[i].quad
		if lost {
			mesh = c.meshes[i].full
		}
		f.Layers = append(f.Layers, gpu.Draw{Mesh: mesh, Texture: tex})
	}
	return f
}

// backdrop returns the first layer without stencil drawn on the
// background rectangle, or nil.
func (c *Compositor) backdrop() *gpu.Draw {
	for _, l := range c.layers {
		if l.UseStencil {
			continue
		}
		tex := c.layerTexture(l)
		if tex == nil {
			c.stats.SkippedLayers++
			return nil
		}
		return &gpu.Draw{Mesh: c.background, Texture: tex}
	}
	return nil
}

// layerTexture resolves the texture a layer draws with this frame. Video
// layers sample their output at the clock's current time; a miss returns
// nil and the layer is skipped for this frame only.
func (c *Compositor) layerTexture(l *Layer) *gpu.Texture {
	switch l.Kind() {
	case KindImage:
		if l.texture == nil {
			Logger().Debug("arcomp: layer has no texture", "id", l.ID)
		}
		return l.texture

	case KindVideo:
		vc, _ := l.Video()
		if vc.Output == nil || vc.Clock == nil {
			Logger().Debug("arcomp: video layer has no output", "id", l.ID)
			return nil
		}
		t := vc.Clock.Now()
		frame, ok := vc.Output.FrameAt(t)
		if !ok {
			Logger().Debug("arcomp: no video frame", "id", l.ID, "time", t)
			return nil
		}
		cache := c.videos[l.ID]
		if cache == nil {
			return nil
		}
		tex, err := cache.Upload(frame)
		if err != nil {
			Logger().Debug("arcomp: video frame upload failed", "id", l.ID, "err", err)
			return nil
		}
		return tex

	default:
		return nil
	}
}
