package gpu

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"
)

func TestCreateMesh(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 1}, 0, 0)

	m, err := r.CreateMesh("quad", make([]byte, 4*VertexStride), []uint16{0, 1, 2, 2, 1, 3})
	if err != nil {
		t.Fatalf("CreateMesh: %v", err)
	}
	defer r.DestroyMesh(m)
	if m.VertexCount() != 4 || m.IndexCount() != 6 || m.Label() != "quad" {
		t.Errorf("mesh = %d vertices, %d indices, %q", m.VertexCount(), m.IndexCount(), m.Label())
	}

	strip, err := r.CreateMesh("strip", make([]byte, 4*VertexStride), nil)
	if err != nil {
		t.Fatalf("CreateMesh strip: %v", err)
	}
	defer r.DestroyMesh(strip)
	if strip.indexBuf != nil || strip.IndexCount() != 0 {
		t.Error("strip mesh has an index buffer")
	}
}

func TestCreateMeshRejectsBadLength(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 1}, 0, 0)
	for _, n := range []int{0, VertexStride - 1, VertexStride*2 + 3} {
		if _, err := r.CreateMesh("bad", make([]byte, n), nil); err == nil {
			t.Errorf("CreateMesh with %d bytes succeeded", n)
		}
	}
}

func TestUpdateVertices(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 1}, 0, 0)
	m, err := r.CreateMesh("quad", make([]byte, 4*VertexStride), []uint16{0, 1, 2, 2, 1, 3})
	if err != nil {
		t.Fatal(err)
	}
	defer r.DestroyMesh(m)

	data := bytes.Repeat([]byte{7}, 4*VertexStride)
	if err := r.UpdateVertices(m, data); err != nil {
		t.Fatalf("UpdateVertices: %v", err)
	}

	mapping, err := r.device.MapBuffer(m.vertexBuf, 0, m.vertexBytes)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	got := unsafe.Slice((*byte)(mapping.Ptr), m.vertexBytes)
	if !bytes.Equal(got, data) {
		t.Error("vertex buffer does not hold the updated data")
	}
	_ = r.device.UnmapBuffer(m.vertexBuf)

	if err := r.UpdateVertices(m, data[:VertexStride]); err == nil {
		t.Error("UpdateVertices with a different size succeeded")
	}
	if err := r.UpdateVertices(nil, data); !errors.Is(err, ErrNotReady) {
		t.Errorf("UpdateVertices(nil) = %v, want ErrNotReady", err)
	}
}

func TestDestroyMesh(t *testing.T) {
	r := newTestRenderer(t, Config{SampleCount: 1}, 0, 0)
	m, err := r.CreateMesh("quad", make([]byte, 4*VertexStride), []uint16{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	r.DestroyMesh(m)
	if m.vertexBuf != nil || m.indexBuf != nil {
		t.Error("buffers not released")
	}
	r.DestroyMesh(m)
	r.DestroyMesh(nil)
}

func TestEncodeIndices(t *testing.T) {
	tests := []struct {
		indices []uint16
		wantLen int
	}{
		{[]uint16{0, 1, 2, 2, 1, 3}, 12},
		{[]uint16{0, 1, 2}, 8},
		{[]uint16{5}, 4},
	}
	for _, tt := range tests {
		buf := encodeIndices(tt.indices)
		if len(buf) != tt.wantLen {
			t.Errorf("encodeIndices(%v) len = %d, want %d", tt.indices, len(buf), tt.wantLen)
		}
		if len(tt.indices) > 1 && (buf[2] != byte(tt.indices[1]) || buf[3] != 0) {
			t.Errorf("encodeIndices(%v) = %v, want little-endian uint16", tt.indices, buf)
		}
	}
}
