package arcomp

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/arcomp/internal/gpu"
)

// Vertex is the vertex layout shared by the mask and content pipelines.
//
// Memory layout (24 bytes, little-endian):
//
//	Position   [3]float32  12 bytes
//	TexCoord   [2]float32   8 bytes
//	LayerIndex uint32       4 bytes
type Vertex struct {
	Position   [3]float32
	TexCoord   [2]float32
	LayerIndex uint32
}

// VertexSize is the encoded size of a Vertex in bytes.
const VertexSize = gpu.VertexStride

// QuadIndices are the two triangles of every layer quad.
var QuadIndices = [6]uint16{0, 1, 2, 2, 1, 3}

// EncodeVertices packs vertices into the GPU vertex buffer layout.
func EncodeVertices(vs []Vertex) []byte {
	buf := make([]byte, 0, len(vs)*VertexSize)
	for i := range vs {
		v := &vs[i]
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Position[0]))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Position[1]))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Position[2]))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.TexCoord[0]))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.TexCoord[1]))
		buf = binary.LittleEndian.AppendUint32(buf, v.LayerIndex)
	}
	return buf
}

// Rect is an axis-aligned planar rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// Width returns MaxX - MinX.
func (r Rect) Width() float32 { return r.MaxX - r.MinX }

// Height returns MaxY - MinY.
func (r Rect) Height() float32 { return r.MaxY - r.MinY }

// Center returns the midpoint.
func (r Rect) Center() Vec2 {
	return Vec2{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Bounds returns the planar bounding box of vs. The zero Rect is returned
// for an empty slice.
func Bounds(vs []Vertex) Rect {
	if len(vs) == 0 {
		return Rect{}
	}
	r := Rect{
		MinX: vs[0].Position[0], MaxX: vs[0].Position[0],
		MinY: vs[0].Position[1], MaxY: vs[0].Position[1],
	}
	for _, v := range vs[1:] {
		r.MinX = min(r.MinX, v.Position[0])
		r.MaxX = max(r.MaxX, v.Position[0])
		r.MinY = min(r.MinY, v.Position[1])
		r.MaxY = max(r.MaxY, v.Position[1])
	}
	return r
}
