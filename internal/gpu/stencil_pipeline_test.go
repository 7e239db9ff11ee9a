package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestPipelineSetCreate(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	var p pipelineSet
	if p.ready() {
		t.Fatal("empty pipeline set reports ready")
	}
	if err := p.create(device, 4, false, "test"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !p.ready() {
		t.Error("pipeline set not ready after create")
	}
	if p.maskShader == nil || p.layerShader == nil || p.pipeLayout == nil {
		t.Error("shader modules or layout missing")
	}

	p.destroy(device)
	if p.ready() {
		t.Error("pipeline set ready after destroy")
	}
	for i, m := range p.mask {
		if m != nil {
			t.Errorf("mask pipeline %d not released", i)
		}
	}
	if p.maskShader != nil || p.layerShader != nil || p.bindLayout != nil {
		t.Error("shaders or bind layout not released")
	}
	// Destroying twice must be safe.
	p.destroy(device)
}

func TestPipelineSetCreateSPIRV(t *testing.T) {
	for name, src := range ShaderSources() {
		compileOrSkip(t, name, src)
	}
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	var p pipelineSet
	defer p.destroy(device)
	if err := p.create(device, 1, true, "spirv"); err != nil {
		t.Fatalf("create with SPIR-V failed: %v", err)
	}
	if !p.ready() {
		t.Error("pipeline set not ready")
	}
}

func TestStencilStates(t *testing.T) {
	write := writeStencilState()
	if write.StencilFront.Compare != gputypes.CompareFunctionAlways ||
		write.StencilFront.PassOp != hal.StencilOperationReplace {
		t.Errorf("write state front = %+v, want always/replace", write.StencilFront)
	}
	if write.StencilWriteMask != 0xFF || write.DepthWriteEnabled {
		t.Errorf("write state masks: write=%#x depthWrite=%t", write.StencilWriteMask, write.DepthWriteEnabled)
	}

	test := testStencilState()
	if test.StencilFront.Compare != gputypes.CompareFunctionEqual ||
		test.StencilFront.PassOp != hal.StencilOperationKeep ||
		test.StencilFront.FailOp != hal.StencilOperationKeep {
		t.Errorf("test state front = %+v, want equal/keep", test.StencilFront)
	}
	if test.StencilBack != test.StencilFront {
		t.Error("test state front and back faces differ")
	}

	ignore := ignoreStencilState()
	if ignore.StencilWriteMask != 0 || ignore.StencilFront.Compare != gputypes.CompareFunctionAlways {
		t.Errorf("ignore state = %+v, want no writes and no test", ignore)
	}

	for _, s := range []*hal.DepthStencilState{write, test, ignore} {
		if s.Format != depthStencilFormat || s.DepthCompare != gputypes.CompareFunctionAlways {
			t.Errorf("state %+v tests depth or uses the wrong format", s)
		}
	}
}

func TestVertexLayout(t *testing.T) {
	layouts := vertexLayout()
	if len(layouts) != 1 {
		t.Fatalf("layouts = %d, want 1", len(layouts))
	}
	l := layouts[0]
	if l.ArrayStride != VertexStride {
		t.Errorf("stride = %d, want %d", l.ArrayStride, VertexStride)
	}
	wantOffsets := []uint64{0, 12, 20}
	for i, a := range l.Attributes {
		if a.Offset != wantOffsets[i] || a.ShaderLocation != uint32(i) {
			t.Errorf("attribute %d = %+v", i, a)
		}
	}
}

func TestPipelineNames(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{MaskPlain.String(), "plain"},
		{MaskTextured.String(), "textured"},
		{MaskPipeline(9).String(), "MaskPipeline(9)"},
		{ContentNormal.String(), "normal"},
		{ContentAlphaLeftRight.String(), "alpha_lr"},
		{ContentAlphaTopBottom.String(), "alpha_td"},
		{ContentPipeline(7).String(), "ContentPipeline(7)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
