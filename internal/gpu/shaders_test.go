package gpu

import (
	"strings"
	"testing"
)

// compileOrSkip compiles WGSL with naga, skipping on features naga has
// not implemented yet.
func compileOrSkip(t *testing.T, name, src string) []uint32 {
	t.Helper()
	words, err := CompileSPIRV(src)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("Skipping %s: naga feature not yet implemented: %v", name, err)
		}
		t.Fatalf("failed to compile %s: %v", name, err)
	}
	return words
}

func TestShaderSources(t *testing.T) {
	srcs := ShaderSources()
	wantEntries := map[string][]string{
		"mask.wgsl":  {"vs_main", "fs_plain", "fs_textured"},
		"layer.wgsl": {"vs_main", "fs_normal", "fs_alpha_lr", "fs_alpha_td"},
	}
	for name, entries := range wantEntries {
		src, ok := srcs[name]
		if !ok || src == "" {
			t.Errorf("%s missing or empty", name)
			continue
		}
		for _, e := range entries {
			if !strings.Contains(src, "fn "+e) {
				t.Errorf("%s has no entry point %s", name, e)
			}
		}
	}
}

func TestShaderEntryPointsMatchPipelines(t *testing.T) {
	for _, e := range maskFragmentEntry {
		if !strings.Contains(maskShaderSource, "fn "+e) {
			t.Errorf("mask shader lacks %s", e)
		}
	}
	for _, e := range contentFragmentEntry {
		if !strings.Contains(layerShaderSource, "fn "+e) {
			t.Errorf("layer shader lacks %s", e)
		}
	}
}

func TestShadersCompileToSPIRV(t *testing.T) {
	for name, src := range ShaderSources() {
		t.Run(name, func(t *testing.T) {
			words := compileOrSkip(t, name, src)
			if len(words) < 5 {
				t.Fatalf("SPIR-V too short: %d words", len(words))
			}
			// SPIR-V magic number.
			if words[0] != 0x07230203 {
				t.Errorf("magic = %#x, want 0x07230203", words[0])
			}
		})
	}
}

func TestCompileSPIRVRejectsInvalid(t *testing.T) {
	if _, err := CompileSPIRV("fn broken( {"); err == nil {
		t.Error("invalid WGSL compiled")
	}
}
