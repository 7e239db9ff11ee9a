package arcomp

import (
	"encoding/binary"
	"math"
	"testing"
)

func floatAt(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func TestMat4Mul(t *testing.T) {
	if got := Identity().Mul(Identity()); !got.IsIdentity() {
		t.Errorf("I*I = %v", got)
	}

	m := Translate(1, 2, 3).Mul(Scale(2, 2, 2))
	p := m.TransformPoint(V3(1, 1, 1))
	if p != V3(3, 4, 5) {
		t.Errorf("T*S applied to (1,1,1) = %v, want (3,4,5)", p)
	}

	n := Scale(2, 2, 2).Mul(Translate(1, 2, 3))
	if p := n.TransformPoint(V3(0, 0, 0)); p != V3(2, 4, 6) {
		t.Errorf("S*T applied to origin = %v, want (2,4,6)", p)
	}
}

func TestUniformsLayout(t *testing.T) {
	a, c, p := Translate(1, 0, 0), Translate(2, 0, 0), Translate(3, 0, 0)
	u := Uniforms(FrameState{Anchor: &a, Camera: &c, Projection: &p})
	buf := u[:]

	for i, want := range []float32{1, 2, 3} {
		if got := floatAt(buf, i*16+12); got != want {
			t.Errorf("matrix %d translation x = %g, want %g", i, got, want)
		}
	}
}

func TestUniformsIdentityFallback(t *testing.T) {
	a, p := Translate(5, 5, 5), Scale(2, 2, 2)
	u := Uniforms(FrameState{Anchor: &a, Projection: &p})
	if u != identityUniforms() {
		t.Fatal("missing camera did not fall back to identity for all three matrices")
	}

	id := Identity()
	buf := u[:]
	for m := 0; m < 3; m++ {
		for i := 0; i < 16; i++ {
			if got := floatAt(buf, m*16+i); got != id[i] {
				t.Fatalf("matrix %d element %d = %g, want %g", m, i, got, id[i])
			}
		}
	}
}

func TestTrackingStatusString(t *testing.T) {
	for s, want := range map[TrackingStatus]string{
		Tracking:          "Tracking",
		TrackingLost:      "TrackingLost",
		NotRecognized:     "NotRecognized",
		TrackingStatus(9): "Unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
