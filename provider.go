package arcomp

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by device providers that expose their HAL
// objects, such as the gogpu application window.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewFromProvider creates a compositor on the device of a host
// application. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
//
// A surface format other than BGRA8Unorm is rejected, since the
// compositor pipelines target BGRA8Unorm. Headless providers report
// TextureFormatUndefined and are accepted.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Compositor, error) {
	if provider == nil {
		return nil, ErrNoDevice
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not expose HAL types: %w", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("provider HalDevice is not hal.Device: %w", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("provider HalQueue is not hal.Queue: %w", ErrNoDevice)
	}

	switch f := provider.SurfaceFormat(); f {
	case gputypes.TextureFormatUndefined, gputypes.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("arcomp: surface format %v not supported, need BGRA8Unorm", f)
	}
	return New(device, queue, opts...)
}
