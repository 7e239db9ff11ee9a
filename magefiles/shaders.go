//go:build mage

package main

import (
	"fmt"
	"sort"

	"github.com/gogpu/arcomp/internal/gpu"
	"github.com/magefile/mage/mg"
)

type Shaders mg.Namespace

// Validate compiles every embedded WGSL shader to SPIR-V with naga.
func (Shaders) Validate() error {
	srcs := gpu.ShaderSources()
	names := make([]string, 0, len(srcs))
	for name := range srcs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		words, err := gpu.CompileSPIRV(srcs[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Printf("%s: %d SPIR-V words\n", name, len(words))
	}
	return nil
}
