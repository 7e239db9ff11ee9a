package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Register every platform backend for -backend auto and friends.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

var backendVariants = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"metal":  gputypes.BackendMetal,
	"dx12":   gputypes.BackendDX12,
	"gl":     gputypes.BackendGL,
}

func backendNames() string {
	names := []string{"auto", "noop"}
	for n := range backendVariants {
		names = append(names, n)
	}
	sort.Strings(names[2:])
	return strings.Join(names, "|")
}

// device is an opened HAL device together with the instance it came from.
type device struct {
	instance hal.Instance
	hal.OpenDevice
	info gputypes.AdapterInfo
}

func openDevice(name string) (*device, error) {
	backend, err := selectBackend(name)
	if err != nil {
		return nil, err
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%s: no adapters found", name)
	}

	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open %s adapter %q: %w", name, adapters[0].Info.Name, err)
	}
	return &device{instance: instance, OpenDevice: open, info: adapters[0].Info}, nil
}

func selectBackend(name string) (hal.Backend, error) {
	switch name {
	case "noop":
		return noop.API{}, nil
	case "auto":
		b, err := hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("select backend: %w", err)
		}
		return b, nil
	}

	variant, ok := backendVariants[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (want %s)", name, backendNames())
	}
	if b, ok := hal.GetBackend(variant); ok {
		return b, nil
	}
	b, err := hal.CreateBackend(variant)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return b, nil
}

func (d *device) Close() {
	d.Device.Destroy()
	d.instance.Destroy()
}
