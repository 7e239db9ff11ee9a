package arcomp

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/arcomp/internal/gpu"
	"github.com/gogpu/arcomp/video"
)

// Layer is one independently placed and scaled visual element.
//
// The exported placement fields may be set freely before the layer is
// handed to a Compositor. The compositor works on a clone, so later edits
// to a layer only take effect when the layer set is assigned again. The
// exception is SetVideoOutput, which the compositor observes immediately.
type Layer struct {
	// ID identifies the layer within a layer set.
	ID int

	// Offset places the layer. X and Y are the planar offset in render
	// units; Z orders layers back to front and biases their depth.
	Offset Vec3

	// Scale multiplies the target extent. Negative values are treated as 0.
	Scale float32

	// UseStencil gates the layer by the mask. A layer with UseStencil false
	// is not drawn in the content pass; the first such layer is the
	// backdrop shown while tracking is lost.
	UseStencil bool

	content Content
	texture *gpu.Texture
}

// videoSource is the in-place replaceable state behind a video layer.
// Clones share it.
type videoSource struct {
	mu     sync.Mutex
	output video.Output
	clock  video.Clock
	layout AlphaLayout
}

func (*videoSource) Kind() ContentKind { return KindVideo }
func (*videoSource) isContent()        {}

func (v *videoSource) snapshot() VideoContent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VideoContent{Output: v.output, Clock: v.clock, Layout: v.layout}
}

// NewLayer creates a layer with scale 1, zero offset and UseStencil set.
// Passing a nil content panics.
func NewLayer(id int, c Content) *Layer {
	if c == nil {
		panic("arcomp: NewLayer with nil content")
	}
	if vc, ok := c.(VideoContent); ok {
		c = &videoSource{output: vc.Output, clock: vc.Clock, layout: vc.Layout}
	}
	return &Layer{ID: id, Scale: 1, UseStencil: true, content: c}
}

// NewImageLayer creates a layer showing a decoded image.
func NewImageLayer(id int, img image.Image) *Layer {
	return NewLayer(id, ImageContent{Image: img})
}

// NewVideoLayer creates a layer showing a decoder output driven by clock.
func NewVideoLayer(id int, out video.Output, clock video.Clock, layout AlphaLayout) *Layer {
	return NewLayer(id, VideoContent{Output: out, Clock: clock, Layout: layout})
}

// NewModelLayer creates a placeholder layer for a 3D model.
func NewModelLayer(id int, path string) *Layer {
	return NewLayer(id, ModelContent{Path: path})
}

// Kind returns the content variant, or KindNone for a Layer that was not
// made by one of the constructors.
func (l *Layer) Kind() ContentKind {
	if l.content == nil {
		return KindNone
	}
	return l.content.Kind()
}

// Image returns the image payload if the layer shows an image.
func (l *Layer) Image() (ImageContent, bool) {
	c, ok := l.content.(ImageContent)
	return c, ok
}

// Video returns a snapshot of the video payload if the layer shows video.
func (l *Layer) Video() (VideoContent, bool) {
	v, ok := l.content.(*videoSource)
	if !ok {
		return VideoContent{}, false
	}
	return v.snapshot(), true
}

// Model returns the model payload if the layer references a model.
func (l *Layer) Model() (ModelContent, bool) {
	c, ok := l.content.(ModelContent)
	return c, ok
}

// SetVideoOutput replaces the decoder output and clock of a video layer in
// place. Clones of the layer, including the one a compositor holds, see the
// new pair from their next frame on. On any other kind of layer nothing
// changes, a warning is logged and ErrNotVideo is returned.
func (l *Layer) SetVideoOutput(out video.Output, clock video.Clock) error {
	v, ok := l.content.(*videoSource)
	if !ok {
		Logger().Warn("arcomp: SetVideoOutput on non-video layer", "id", l.ID, "kind", l.Kind())
		return fmt.Errorf("layer %d: %w", l.ID, ErrNotVideo)
	}
	v.mu.Lock()
	v.output, v.clock = out, clock
	v.mu.Unlock()
	return nil
}

// Clone returns a shallow copy. The copy shares the content values, the
// video source and the uploaded texture of l.
func (l *Layer) Clone() *Layer {
	c := *l
	return &c
}

// String returns a description for diagnostics.
func (l *Layer) String() string {
	return fmt.Sprintf("Layer(%d, %s, offset=(%g,%g,%g), scale=%g, stencil=%t)",
		l.ID, l.Kind(), l.Offset.X, l.Offset.Y, l.Offset.Z, l.Scale, l.UseStencil)
}

// scale returns Scale clamped to be non-negative.
func (l *Layer) scale() float32 {
	return max(l.Scale, 0)
}
