package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// UniformSize is the byte size of the shared uniform buffer:
// anchor, camera and projection as three column-major mat4x4<f32>.
const UniformSize = 3 * 16 * 4

// VertexStride is the byte stride per vertex:
// position (3 x f32) + texcoord (2 x f32) + layer index (u32) = 24 bytes.
const VertexStride = 24

// MaskStencilRef is the value the mask pass writes and the content pass tests for.
const MaskStencilRef = 1

// MaskPipeline selects the fragment stage of the mask pass.
type MaskPipeline uint8

const (
	// MaskPlain marks every pixel the mask quad covers.
	MaskPlain MaskPipeline = iota

	// MaskTextured marks only pixels where the mask texture is opaque.
	MaskTextured

	maskPipelineCount
)

// String returns the pipeline name.
func (m MaskPipeline) String() string {
	switch m {
	case MaskPlain:
		return "plain"
	case MaskTextured:
		return "textured"
	default:
		return fmt.Sprintf("MaskPipeline(%d)", uint8(m))
	}
}

// ContentPipeline selects the fragment stage of the content pass.
type ContentPipeline uint8

const (
	// ContentNormal samples the layer texture as is.
	ContentNormal ContentPipeline = iota

	// ContentAlphaLeftRight takes color from the left half and alpha
	// from the right half of the frame.
	ContentAlphaLeftRight

	// ContentAlphaTopBottom takes color from the top half and alpha
	// from the bottom half of the frame.
	ContentAlphaTopBottom

	contentPipelineCount
)

// String returns the pipeline name.
func (c ContentPipeline) String() string {
	switch c {
	case ContentNormal:
		return "normal"
	case ContentAlphaLeftRight:
		return "alpha_lr"
	case ContentAlphaTopBottom:
		return "alpha_td"
	default:
		return fmt.Sprintf("ContentPipeline(%d)", uint8(c))
	}
}

var (
	maskFragmentEntry    = [maskPipelineCount]string{"fs_plain", "fs_textured"}
	contentFragmentEntry = [contentPipelineCount]string{"fs_normal", "fs_alpha_lr", "fs_alpha_td"}
)

// pipelineSet owns the shader modules, layouts and every render pipeline
// variant. All pipelines share one bind group layout:
//
//	binding 0: uniform buffer (vertex)
//	binding 1: texture_2d<f32> (fragment)
//	binding 2: filtering sampler (fragment)
type pipelineSet struct {
	maskShader  hal.ShaderModule
	layerShader hal.ShaderModule
	bindLayout  hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout

	mask       [maskPipelineCount]hal.RenderPipeline
	content    [contentPipelineCount]hal.RenderPipeline
	background hal.RenderPipeline
}

// vertexLayout describes Vertex for every pipeline.
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
				{Format: gputypes.VertexFormatUint32, Offset: 20, ShaderLocation: 2},
			},
		},
	}
}

// writeStencilState unconditionally replaces the stencil with the reference
// value wherever the mask quad lands. Failing fragments zero it.
func writeStencilState() *hal.DepthStencilState {
	face := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationZero,
		DepthFailOp: hal.StencilOperationZero,
		PassOp:      hal.StencilOperationReplace,
	}
	return &hal.DepthStencilState{
		Format:            depthStencilFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   0xFF,
		StencilWriteMask:  0xFF,
	}
}

// testStencilState lets a fragment through only where the stencil equals
// the reference value, and leaves the stencil untouched.
func testStencilState() *hal.DepthStencilState {
	face := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionEqual,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	return &hal.DepthStencilState{
		Format:            depthStencilFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   0xFF,
		StencilWriteMask:  0xFF,
	}
}

// ignoreStencilState is used by the backdrop: the attachment is bound but
// neither read nor written.
func ignoreStencilState() *hal.DepthStencilState {
	face := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	return &hal.DepthStencilState{
		Format:            depthStencilFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   0xFF,
		StencilWriteMask:  0x00,
	}
}

// create compiles shaders and builds every pipeline variant.
// On error, whatever was created is released by the caller via destroy.
func (p *pipelineSet) create(device hal.Device, samples uint32, precompile bool, label string) error { //nolint:funlen // GPU pipeline descriptors are inherently verbose
	var err error
	p.maskShader, err = createShaderModule(device, label+"_mask_shader", maskShaderSource, precompile)
	if err != nil {
		return err
	}
	p.layerShader, err = createShaderModule(device, label+"_layer_shader", layerShaderSource, precompile)
	if err != nil {
		return err
	}

	p.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	multisample := gputypes.MultisampleState{
		Count: max(samples, 1),
		Mask:  0xFFFFFFFF,
	}

	// The mask quad is a 4-vertex strip; layer quads are indexed lists.
	maskPrimitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleStrip,
		CullMode: gputypes.CullModeNone,
	}
	quadPrimitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}

	// --- Mask pipelines ---
	//
	// Color writes are suppressed; the pass only updates the stencil.
	for i := range p.mask {
		p.mask[i], err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("%s_mask_%s_pipeline", label, MaskPipeline(i)),
			Layout: p.pipeLayout,
			Vertex: hal.VertexState{
				Module:     p.maskShader,
				EntryPoint: "vs_main",
				Buffers:    vertexLayout(),
			},
			Fragment: &hal.FragmentState{
				Module:     p.maskShader,
				EntryPoint: maskFragmentEntry[i],
				Targets: []gputypes.ColorTargetState{
					{
						Format:    ColorFormat,
						WriteMask: gputypes.ColorWriteMaskNone,
					},
				},
			},
			DepthStencil: writeStencilState(),
			Multisample:  multisample,
			Primitive:    maskPrimitive,
		})
		if err != nil {
			return fmt.Errorf("create %s mask pipeline: %w", MaskPipeline(i), err)
		}
	}

	// --- Content pipelines ---
	//
	// Straight-alpha blending, gated by the stencil the mask pass wrote.
	blend := gputypes.BlendStateAlpha()
	for i := range p.content {
		p.content[i], err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("%s_content_%s_pipeline", label, ContentPipeline(i)),
			Layout: p.pipeLayout,
			Vertex: hal.VertexState{
				Module:     p.layerShader,
				EntryPoint: "vs_main",
				Buffers:    vertexLayout(),
			},
			Fragment: &hal.FragmentState{
				Module:     p.layerShader,
				EntryPoint: contentFragmentEntry[i],
				Targets: []gputypes.ColorTargetState{
					{
						Format:    ColorFormat,
						Blend:     &blend,
						WriteMask: gputypes.ColorWriteMaskAll,
					},
				},
			},
			DepthStencil: testStencilState(),
			Multisample:  multisample,
			Primitive:    quadPrimitive,
		})
		if err != nil {
			return fmt.Errorf("create %s content pipeline: %w", ContentPipeline(i), err)
		}
	}

	// --- Backdrop pipeline ---
	//
	// Same shading as normal content, without the stencil test.
	p.background, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_background_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.layerShader,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.layerShader,
			EntryPoint: contentFragmentEntry[ContentNormal],
			Targets: []gputypes.ColorTargetState{
				{
					Format:    ColorFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: ignoreStencilState(),
		Multisample:  multisample,
		Primitive:    quadPrimitive,
	})
	if err != nil {
		return fmt.Errorf("create background pipeline: %w", err)
	}

	return nil
}

// ready reports whether every pipeline exists.
func (p *pipelineSet) ready() bool {
	if p.background == nil || p.bindLayout == nil {
		return false
	}
	for _, m := range p.mask {
		if m == nil {
			return false
		}
	}
	for _, c := range p.content {
		if c == nil {
			return false
		}
	}
	return true
}

// destroy releases all pipeline resources in reverse creation order.
// Safe to call on a partially created set.
func (p *pipelineSet) destroy(device hal.Device) {
	if p.background != nil {
		device.DestroyRenderPipeline(p.background)
		p.background = nil
	}
	for i := range p.content {
		if p.content[i] != nil {
			device.DestroyRenderPipeline(p.content[i])
			p.content[i] = nil
		}
	}
	for i := range p.mask {
		if p.mask[i] != nil {
			device.DestroyRenderPipeline(p.mask[i])
			p.mask[i] = nil
		}
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.layerShader != nil {
		device.DestroyShaderModule(p.layerShader)
		p.layerShader = nil
	}
	if p.maskShader != nil {
		device.DestroyShaderModule(p.maskShader)
		p.maskShader = nil
	}
}
