package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newTestRenderer returns an initialized renderer with targets of w x h.
func newTestRenderer(t *testing.T, cfg Config, w, h uint32) *Renderer {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	r := NewRenderer(device, queue, cfg)
	if err := r.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(r.Destroy)
	if w > 0 && h > 0 {
		if err := r.EnsureTargets(w, h); err != nil {
			t.Fatalf("EnsureTargets failed: %v", err)
		}
	}
	return r
}

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(nil, nil, Config{})
	if r.cfg.SampleCount != DefaultSampleCount {
		t.Errorf("SampleCount = %d, want %d", r.cfg.SampleCount, DefaultSampleCount)
	}
	if r.cfg.MaxTextureSize != DefaultMaxTextureSize {
		t.Errorf("MaxTextureSize = %d, want %d", r.cfg.MaxTextureSize, DefaultMaxTextureSize)
	}
	if r.cfg.Label != "arcomp" {
		t.Errorf("Label = %q, want arcomp", r.cfg.Label)
	}
	if r.targets.samples != DefaultSampleCount {
		t.Errorf("targets.samples = %d, want %d", r.targets.samples, DefaultSampleCount)
	}
	if r.Ready() {
		t.Error("renderer ready before Init")
	}
}

func TestRendererInitWithoutDevice(t *testing.T) {
	r := NewRenderer(nil, nil, Config{})
	if err := r.Init(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Init() = %v, want ErrNotReady", err)
	}
}

func TestRendererInit(t *testing.T) {
	r := newTestRenderer(t, Config{}, 0, 0)

	if !r.Ready() {
		t.Fatal("renderer not ready after Init")
	}
	if r.uniformBuf == nil || r.sampler == nil {
		t.Error("uniform buffer or sampler missing")
	}
	if r.white == nil || r.white.Width() != 1 || r.white.Height() != 1 {
		t.Errorf("white texture = %v, want 1x1", r.white)
	}
	white := r.white
	if err := r.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if r.white != white {
		t.Error("second Init recreated resources")
	}
}

func TestRendererEnsureTargets(t *testing.T) {
	tests := []struct {
		name     string
		samples  uint32
		wantMSAA bool
	}{
		{"msaa", 4, true},
		{"single sample", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, Config{SampleCount: tt.samples}, 32, 16)

			if (r.targets.msaaTex != nil) != tt.wantMSAA {
				t.Errorf("msaaTex present = %t, want %t", r.targets.msaaTex != nil, tt.wantMSAA)
			}
			if r.targets.stencilTex == nil || r.targets.resolveTex == nil {
				t.Error("stencil or resolve texture missing")
			}
			if !r.targets.ready() {
				t.Error("targets not ready")
			}
			if w, h := r.Size(); w != 32 || h != 16 {
				t.Errorf("Size() = %dx%d, want 32x16", w, h)
			}

			stencil := r.targets.stencilTex
			if err := r.EnsureTargets(32, 16); err != nil {
				t.Fatal(err)
			}
			if r.targets.stencilTex != stencil {
				t.Error("same size reallocated textures")
			}
		})
	}
}

func TestRendererEnsureTargetsZeroSize(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 1}, 0, 0)
	if err := r.EnsureTargets(0, 10); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("EnsureTargets(0, 10) = %v, want ErrInvalidTarget", err)
	}
}

func TestRendererSurfaceTarget(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 4}, 32, 16)

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "surface",
		Size:          hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "surface_view"})
	if err != nil {
		t.Fatal(err)
	}

	r.SetSurfaceTarget(view, 64, 32)
	if r.targets.resolveTex != nil {
		t.Error("surface mode allocated its own resolve texture")
	}
	if r.targets.targetView() != view {
		t.Error("surface view is not the target")
	}
	if w, h := r.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}

	r.SetSurfaceTarget(nil, 0, 0)
	if r.targets.surfaceView != nil {
		t.Error("surface view kept after switching back")
	}
	if err := r.EnsureTargets(32, 16); err != nil {
		t.Fatal(err)
	}
	if r.targets.resolveTex == nil {
		t.Error("offscreen resolve texture not recreated")
	}
}

func TestRendererDestroy(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r := NewRenderer(device, queue, Config{SampleCount: 1})
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	if err := r.EnsureTargets(8, 8); err != nil {
		t.Fatal(err)
	}
	r.Destroy()

	if r.Ready() {
		t.Error("renderer ready after Destroy")
	}
	if r.white != nil || r.uniformBuf != nil || r.sampler != nil {
		t.Error("shared resources not released")
	}
	if r.targets.stencilTex != nil {
		t.Error("targets not released")
	}
	// Destroy twice must not panic.
	r.Destroy()
}
