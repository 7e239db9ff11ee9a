package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Mesh is a vertex buffer with an optional uint16 index buffer.
// Layer quads are indexed; the mask quad is a bare 4-vertex strip.
type Mesh struct {
	label       string
	vertexBuf   hal.Buffer
	indexBuf    hal.Buffer
	vertexBytes uint64
	vertexCount uint32
	indexCount  uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() uint32 { return m.vertexCount }

// IndexCount returns the number of indices, 0 for non-indexed meshes.
func (m *Mesh) IndexCount() uint32 { return m.indexCount }

// Label returns the debug label.
func (m *Mesh) Label() string { return m.label }

// CreateMesh uploads encoded vertices (VertexStride bytes each) and,
// when indices is non-empty, a uint16 index buffer.
func (r *Renderer) CreateMesh(label string, vertices []byte, indices []uint16) (*Mesh, error) {
	if len(vertices) == 0 || len(vertices)%VertexStride != 0 {
		return nil, fmt.Errorf("mesh %s: vertex data length %d is not a multiple of %d", label, len(vertices), VertexStride)
	}

	m := &Mesh{
		label:       label,
		vertexBytes: uint64(len(vertices)),
		vertexCount: uint32(len(vertices) / VertexStride),
	}

	vb, err := r.createAndUploadBuffer(r.label(label+"_vertices"), vertices,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	m.vertexBuf = vb

	if len(indices) > 0 {
		ib, err := r.createAndUploadBuffer(r.label(label+"_indices"), encodeIndices(indices),
			gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
		if err != nil {
			r.device.DestroyBuffer(vb)
			return nil, err
		}
		m.indexBuf = ib
		m.indexCount = uint32(len(indices))
	}
	return m, nil
}

// UpdateVertices overwrites the vertex buffer in place. The new data must
// have the same size as the data the mesh was created with.
func (r *Renderer) UpdateVertices(m *Mesh, vertices []byte) error {
	if m == nil || m.vertexBuf == nil {
		return fmt.Errorf("update vertices: %w", ErrNotReady)
	}
	if uint64(len(vertices)) != m.vertexBytes {
		return fmt.Errorf("mesh %s: vertex data is %d bytes, buffer holds %d", m.label, len(vertices), m.vertexBytes)
	}
	if err := r.queue.WriteBuffer(m.vertexBuf, 0, vertices); err != nil {
		return fmt.Errorf("write %s vertices: %w", m.label, err)
	}
	return nil
}

// DestroyMesh releases the mesh buffers. Nil meshes are ignored.
func (r *Renderer) DestroyMesh(m *Mesh) {
	if m == nil {
		return
	}
	if m.indexBuf != nil {
		r.device.DestroyBuffer(m.indexBuf)
		m.indexBuf = nil
	}
	if m.vertexBuf != nil {
		r.device.DestroyBuffer(m.vertexBuf)
		m.vertexBuf = nil
	}
}

// encodeIndices packs uint16 indices little-endian, padded to 4 bytes
// since buffer writes must be 4-byte aligned.
func encodeIndices(indices []uint16) []byte {
	n := len(indices) * 2
	buf := make([]byte, (n+3)&^3)
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (r *Renderer) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := r.queue.WriteBuffer(buf, 0, data); err != nil {
		r.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return buf, nil
}
