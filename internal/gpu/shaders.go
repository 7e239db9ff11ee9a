package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.

//go:embed shaders/mask.wgsl
var maskShaderSource string

//go:embed shaders/layer.wgsl
var layerShaderSource string

// ShaderSources returns every embedded shader keyed by file name.
// Used by tests and the shader validation build task.
func ShaderSources() map[string]string {
	return map[string]string{
		"mask.wgsl":  maskShaderSource,
		"layer.wgsl": layerShaderSource,
	}
}

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// createShaderModule builds a shader module from WGSL, or from SPIR-V
// compiled on the CPU when precompile is set.
func createShaderModule(device hal.Device, label, wgsl string, precompile bool) (hal.ShaderModule, error) {
	src := hal.ShaderSource{WGSL: wgsl}
	if precompile {
		words, err := CompileSPIRV(wgsl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		src = hal.ShaderSource{SPIRV: words}
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return module, nil
}
