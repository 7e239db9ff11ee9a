package arcomp

import (
	"fmt"
	"slices"
)

// DefaultDepthBias is the depth added per unit of Offset.Z.
const DefaultDepthBias = 0.1

// quadCorners is the unit quad centered at the origin, in strip order.
// Texture coordinates put the image origin at the top-left corner.
var quadCorners = [4]struct {
	pos [2]float32
	uv  [2]float32
}{
	{pos: [2]float32{-0.5, -0.5}, uv: [2]float32{0, 1}},
	{pos: [2]float32{0.5, -0.5}, uv: [2]float32{1, 1}},
	{pos: [2]float32{-0.5, 0.5}, uv: [2]float32{0, 0}},
	{pos: [2]float32{0.5, 0.5}, uv: [2]float32{1, 0}},
}

// Size is the canvas configuration a compositor renders against.
type Size struct {
	// Width and Height are the render target size in pixels.
	Width, Height int

	// Extent is the size of a scale-1 layer in render units.
	Extent Extent

	// MaskExtent is the size of the mask quad. Zero means Extent.
	MaskExtent Extent

	// Aspect is the width/height ratio used to pre-scale the fullscreen
	// layout. Zero means Width/Height.
	Aspect float32
}

// Validate reports ErrInvalidExtent for non-positive sizes.
func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("target %dx%d: %w", s.Width, s.Height, ErrInvalidExtent)
	}
	if !s.Extent.Valid() {
		return fmt.Errorf("extent %gx%g: %w", s.Extent.Width, s.Extent.Height, ErrInvalidExtent)
	}
	if s.MaskExtent != (Extent{}) && !s.MaskExtent.Valid() {
		return fmt.Errorf("mask extent %gx%g: %w", s.MaskExtent.Width, s.MaskExtent.Height, ErrInvalidExtent)
	}
	if s.Aspect < 0 {
		return fmt.Errorf("aspect %g: %w", s.Aspect, ErrInvalidExtent)
	}
	return nil
}

func (s Size) maskExtent() Extent {
	if s.MaskExtent.Valid() {
		return s.MaskExtent
	}
	return s.Extent
}

func (s Size) aspect() float32 {
	if s.Aspect > 0 {
		return s.Aspect
	}
	if s.Width > 0 && s.Height > 0 {
		return float32(s.Width) / float32(s.Height)
	}
	return 1
}

// SortLayers sorts layers in place, ascending by Offset.Z. Layers with
// equal Z keep their relative order, so sorting is idempotent.
func SortLayers(layers []*Layer) {
	slices.SortStableFunc(layers, func(a, b *Layer) int {
		switch {
		case a.Offset.Z < b.Offset.Z:
			return -1
		case a.Offset.Z > b.Offset.Z:
			return 1
		}
		return 0
	})
}

// Geometry is the complete vertex data for one layer set and size.
// Layers and Fullscreen are indexed like the layer slice they were built
// from.
type Geometry struct {
	// Layers holds one anchor-space quad per layer.
	Layers [][4]Vertex
	// Mask is the anchor-space mask strip.
	Mask [4]Vertex

	// Fullscreen holds the screen-space copy of every layer quad, already
	// fitted to the viewport.
	Fullscreen [][4]Vertex
	// FullscreenMask is the fitted screen-space mask strip.
	FullscreenMask [4]Vertex
	// Background is the fitted backdrop rectangle.
	Background [4]Vertex

	// Fit is the transform that was applied to the fullscreen copies.
	Fit Fit
}

// Builder turns a layer set into Geometry.
// The zero value uses DefaultDepthBias and the default FitSolver.
type Builder struct {
	// DepthBias is the depth added per unit of Offset.Z. Zero selects
	// DefaultDepthBias; set FlatDepth to place every layer at depth 0.
	DepthBias float32
	FlatDepth bool
	Fit       FitSolver
}

func (b Builder) depthBias() float32 {
	switch {
	case b.FlatDepth:
		return 0
	case b.DepthBias == 0:
		return DefaultDepthBias
	}
	return b.DepthBias
}

// Build computes anchor-space and fullscreen geometry for layers, which
// must already be sorted.
func (b Builder) Build(layers []*Layer, size Size, mask MaskConfig) Geometry {
	g := Geometry{
		Layers:     make([][4]Vertex, len(layers)),
		Fullscreen: make([][4]Vertex, len(layers)),
	}
	aspect := size.aspect()

	points := make([][2]float32, 0, 4*(len(layers)+1))
	for i, l := range layers {
		g.Layers[i] = b.quad(l, uint32(i), size.Extent)
		g.Fullscreen[i] = fullscreen(g.Layers[i], aspect)
		points = appendPoints(points, g.Fullscreen[i][:])
	}
	g.Mask = BuildMaskQuad(size.maskExtent(), mask)
	g.FullscreenMask = fullscreen(g.Mask, aspect)
	points = appendPoints(points, g.FullscreenMask[:])

	g.Background = fullscreen(rectQuad(size.Extent, 1, Vec3{}, 0, 0), aspect)

	g.Fit = b.Fit.Solve(points)
	for i := range g.Fullscreen {
		g.Fit.Apply(g.Fullscreen[i][:])
	}
	g.Fit.Apply(g.FullscreenMask[:])
	g.Fit.Apply(g.Background[:])
	return g
}

func (b Builder) quad(l *Layer, index uint32, extent Extent) [4]Vertex {
	return rectQuad(extent, l.scale(), l.Offset, l.Offset.Z*b.depthBias(), index)
}

// BuildQuad returns the anchor-space quad of a layer: the unit quad scaled
// by Scale*extent, centered at the planar offset and depth-biased by
// Offset.Z.
func BuildQuad(l *Layer, index uint32, extent Extent) [4]Vertex {
	return Builder{}.quad(l, index, extent)
}

// BuildMaskQuad returns the mask strip sized to extent. Image masks are
// shifted by their offset.
func BuildMaskQuad(extent Extent, mask MaskConfig) [4]Vertex {
	off := mask.offset()
	return rectQuad(extent, 1, Vec3{X: off.X, Y: off.Y}, 0, 0)
}

// BuildFullscreenQuad returns the unfitted screen-space copy of a layer
// quad: z flattened and y stretched by aspect.
func BuildFullscreenQuad(l *Layer, index uint32, extent Extent, aspect float32) [4]Vertex {
	return fullscreen(BuildQuad(l, index, extent), aspect)
}

func rectQuad(extent Extent, scale float32, offset Vec3, z float32, index uint32) [4]Vertex {
	var q [4]Vertex
	w, h := extent.Width*scale, extent.Height*scale
	for i, c := range quadCorners {
		q[i] = Vertex{
			Position:   [3]float32{c.pos[0]*w + offset.X, c.pos[1]*h + offset.Y, z},
			TexCoord:   c.uv,
			LayerIndex: index,
		}
	}
	return q
}

func fullscreen(q [4]Vertex, aspect float32) [4]Vertex {
	for i := range q {
		q[i].Position[1] *= aspect
		q[i].Position[2] = 0
	}
	return q
}

func appendPoints(dst [][2]float32, vs []Vertex) [][2]float32 {
	for _, v := range vs {
		dst = append(dst, [2]float32{v.Position[0], v.Position[1]})
	}
	return dst
}
