package arcomp

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type testProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *testProvider) Device() gpucontext.Device             { return p.device }
func (p *testProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *testProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }
func (p *testProvider) HalDevice() any                        { return p.device }
func (p *testProvider) HalQueue() any                         { return p.queue }

// opaqueProvider hides its HAL objects.
type opaqueProvider struct{ testProvider }

func (opaqueProvider) HalDevice() {}

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	c, err := NewFromProvider(&testProvider{device: device, queue: queue}, WithSampleCount(1))
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	_ = c.Close()

	c, err = NewFromProvider(&testProvider{device: device, queue: queue, format: gputypes.TextureFormatBGRA8Unorm})
	if err != nil {
		t.Fatalf("NewFromProvider with BGRA8 surface: %v", err)
	}
	_ = c.Close()
}

func TestNewFromProviderRejects(t *testing.T) {
	device, queue := createNoopDevice(t)

	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("nil provider err = %v, want ErrNoDevice", err)
	}
	if _, err := NewFromProvider(&testProvider{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("provider without device err = %v, want ErrNoDevice", err)
	}
	if _, err := NewFromProvider(&opaqueProvider{testProvider{device: device, queue: queue}}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("opaque provider err = %v, want ErrNoDevice", err)
	}

	p := &testProvider{device: device, queue: queue, format: gputypes.TextureFormatRGBA16Float}
	if _, err := NewFromProvider(p); err == nil {
		t.Error("RGBA16Float surface accepted")
	}
}
