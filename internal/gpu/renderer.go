package gpu

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultSampleCount is the MSAA sample count used when Config leaves it zero.
const DefaultSampleCount = 4

// Config configures a Renderer.
type Config struct {
	// SampleCount is the MSAA sample count of the color and stencil
	// attachments. Zero selects DefaultSampleCount; 1 disables MSAA.
	SampleCount uint32

	// PrecompileSPIRV compiles the WGSL shaders to SPIR-V on the CPU with
	// naga and hands the backend SPIR-V instead of WGSL.
	PrecompileSPIRV bool

	// MaxTextureSize bounds the longest edge of uploaded images and video
	// frames. Zero selects DefaultMaxTextureSize.
	MaxTextureSize int

	// Label prefixes every GPU debug label.
	Label string
}

// Renderer owns the GPU side of the stencil mask compositor: pipelines,
// attachments, the shared uniform buffer and sampler, and the per-frame
// command encoding.
//
// A Renderer is not safe for concurrent use. All calls must come from the
// render goroutine.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config

	pipelines  pipelineSet
	targets    textureSet
	uniformBuf hal.Buffer
	sampler    hal.Sampler

	// white is bound by the plain mask pipeline, which samples nothing
	// but shares the bind group layout.
	white *Texture

	inflight    []submission
	initialized bool
}

// submission is a command buffer the GPU may still be executing.
type submission struct {
	index uint64
	cmd   hal.CommandBuffer
}

// NewRenderer creates a renderer for the given device and queue. GPU
// objects are not created until Init.
func NewRenderer(device hal.Device, queue hal.Queue, cfg Config) *Renderer {
	if cfg.SampleCount == 0 {
		cfg.SampleCount = DefaultSampleCount
	}
	if cfg.MaxTextureSize == 0 {
		cfg.MaxTextureSize = DefaultMaxTextureSize
	}
	if cfg.Label == "" {
		cfg.Label = "arcomp"
	}
	r := &Renderer{device: device, queue: queue, cfg: cfg}
	r.targets.samples = cfg.SampleCount
	return r
}

// Init creates shaders, pipelines, the uniform buffer, the sampler and
// the fallback texture. Calling Init on an initialized renderer is a no-op.
// On failure everything created so far is released.
func (r *Renderer) Init() error {
	if r.initialized {
		return nil
	}
	if r.device == nil || r.queue == nil {
		return fmt.Errorf("init renderer: %w", ErrNotReady)
	}

	if err := r.pipelines.create(r.device, r.cfg.SampleCount, r.cfg.PrecompileSPIRV, r.cfg.Label); err != nil {
		r.release()
		return fmt.Errorf("create pipelines: %w", err)
	}

	uniformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: r.label("uniforms"),
		Size:  UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.release()
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        r.label("sampler"),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		r.release()
		return fmt.Errorf("create sampler: %w", err)
	}
	r.sampler = sampler

	// UploadImage requires initialized.
	r.initialized = true
	white := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	white.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	r.white, err = r.UploadImage("white", white)
	if err != nil {
		r.release()
		return fmt.Errorf("create fallback texture: %w", err)
	}

	slogger().Debug("arcomp: renderer initialized",
		"label", r.cfg.Label, "samples", r.cfg.SampleCount, "spirv", r.cfg.PrecompileSPIRV)
	return nil
}

// Ready reports whether Init succeeded and the renderer has not been destroyed.
func (r *Renderer) Ready() bool {
	return r.initialized && r.pipelines.ready()
}

// SampleCount returns the MSAA sample count in use.
func (r *Renderer) SampleCount() uint32 { return r.cfg.SampleCount }

// EnsureTargets sizes the color, stencil and resolve attachments.
// It is a no-op when the size is unchanged.
func (r *Renderer) EnsureTargets(w, h uint32) error {
	return r.targets.ensureTextures(r.device, w, h, r.cfg.Label)
}

// SetSurfaceTarget makes the renderer draw into a host-owned view instead
// of its own resolve texture. Pass a nil view to return to offscreen
// rendering. The renderer never destroys the view.
func (r *Renderer) SetSurfaceTarget(view hal.TextureView, w, h uint32) {
	modeChanged := (view == nil) != (r.targets.surfaceView == nil)
	sizeChanged := w != r.targets.width || h != r.targets.height
	if modeChanged || sizeChanged {
		r.targets.destroyTextures(r.device)
	}
	r.targets.surfaceView = view
	if view != nil {
		if err := r.EnsureTargets(w, h); err != nil {
			slogger().Warn("arcomp: surface attachments unavailable", "err", err)
		}
	}
}

// Size returns the current attachment size.
func (r *Renderer) Size() (uint32, uint32) {
	return r.targets.width, r.targets.height
}

// Destroy waits for the GPU to go idle and releases every resource the
// renderer owns. Meshes and textures created through the renderer must be
// destroyed by their owners first.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	if len(r.inflight) > 0 {
		if err := r.device.WaitIdle(); err != nil {
			slogger().Warn("arcomp: wait idle before destroy", "err", err)
		}
		for _, s := range r.inflight {
			r.device.FreeCommandBuffer(s.cmd)
		}
		r.inflight = nil
	}
	r.release()
}

func (r *Renderer) release() {
	r.DestroyTexture(r.white)
	r.white = nil
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.uniformBuf != nil {
		r.device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	r.targets.destroyTextures(r.device)
	r.pipelines.destroy(r.device)
	r.initialized = false
}

// reap frees command buffers the GPU has finished with.
func (r *Renderer) reap() {
	if len(r.inflight) == 0 {
		return
	}
	done := r.queue.PollCompleted()
	keep := r.inflight[:0]
	for _, s := range r.inflight {
		if s.index <= done {
			r.device.FreeCommandBuffer(s.cmd)
			continue
		}
		keep = append(keep, s)
	}
	r.inflight = keep
}

func (r *Renderer) label(name string) string {
	return r.cfg.Label + "_" + name
}
