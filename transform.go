package arcomp

import "github.com/gogpu/arcomp/internal/gpu"

// TrackingStatus reports how well the AR session currently sees the anchor.
type TrackingStatus uint8

const (
	// Tracking means the anchor transform is valid and layers are placed
	// in anchor space.
	Tracking TrackingStatus = iota

	// TrackingLost means the anchor was seen before but is gone now. The
	// compositor switches to the fullscreen-fit layout and shows the
	// backdrop layer.
	TrackingLost

	// NotRecognized means no anchor has been found. Only the mask pass runs,
	// which leaves a transparent frame.
	NotRecognized
)

// String returns the status name.
func (s TrackingStatus) String() string {
	switch s {
	case Tracking:
		return "Tracking"
	case TrackingLost:
		return "TrackingLost"
	case NotRecognized:
		return "NotRecognized"
	default:
		return "Unknown"
	}
}

// FrameState is the per-frame transform state supplied by the AR driver.
// It is always replaced whole, never field by field.
type FrameState struct {
	Anchor     *Mat4
	Camera     *Mat4
	Projection *Mat4
	Status     TrackingStatus
}

// complete reports whether all three matrices are present.
func (fs FrameState) complete() bool {
	return fs.Anchor != nil && fs.Camera != nil && fs.Projection != nil
}

// Uniforms packs the anchor, camera and projection matrices, in that order,
// into the layout of the shared uniform buffer. If any matrix is missing
// all three are written as identity, so the shaders never combine a fresh
// matrix with a stale one.
func Uniforms(fs FrameState) [gpu.UniformSize]byte {
	anchor, camera, proj := Identity(), Identity(), Identity()
	if fs.complete() {
		anchor, camera, proj = *fs.Anchor, *fs.Camera, *fs.Projection
	}
	var out [gpu.UniformSize]byte
	buf := out[:0]
	buf = anchor.appendTo(buf)
	buf = camera.appendTo(buf)
	_ = proj.appendTo(buf)
	return out
}

// identityUniforms is what the tracking-lost layout draws with: its
// vertices are already in clip space.
func identityUniforms() [gpu.UniformSize]byte {
	return Uniforms(FrameState{})
}
