package arcomp

import (
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/arcomp/video"
)

// ContentKind identifies which variant of Content a layer carries.
type ContentKind uint8

const (
	// KindImage is a static decoded image.
	KindImage ContentKind = iota
	// KindVideo is a decoder output sampled against a playback clock.
	KindVideo
	// KindModel is a 3D model reference. Model layers are never drawn.
	KindModel
	// KindNone is reported by a Layer built without content.
	KindNone
)

// String returns the kind name.
func (k ContentKind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindVideo:
		return "Video"
	case KindModel:
		return "Model"
	case KindNone:
		return "None"
	default:
		return "Unknown"
	}
}

// AlphaLayout describes how a video frame packs transparency next to color.
type AlphaLayout uint8

const (
	// AlphaNone means the frame has no packed alpha.
	AlphaNone AlphaLayout = iota
	// AlphaLeftRight packs color in the left half and alpha in the right.
	AlphaLeftRight
	// AlphaTopBottom packs color in the top half and alpha in the bottom.
	AlphaTopBottom
)

// String returns the layout name as accepted by ParseAlphaLayout.
func (a AlphaLayout) String() string {
	switch a {
	case AlphaNone:
		return "none"
	case AlphaLeftRight:
		return "left-right"
	case AlphaTopBottom:
		return "top-bottom"
	default:
		return fmt.Sprintf("AlphaLayout(%d)", uint8(a))
	}
}

// ParseAlphaLayout parses "none", "left-right" or "top-bottom".
// The empty string is AlphaNone. Matching is case-insensitive and also
// accepts "lr" and "tb".
func ParseAlphaLayout(s string) (AlphaLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AlphaNone, nil
	case "left-right", "leftright", "lr":
		return AlphaLeftRight, nil
	case "top-bottom", "topbottom", "tb":
		return AlphaTopBottom, nil
	}
	return AlphaNone, fmt.Errorf("arcomp: unknown alpha layout %q", s)
}

// Content is the payload of a layer: exactly one of ImageContent,
// VideoContent or ModelContent.
type Content interface {
	Kind() ContentKind
	isContent()
}

// ImageContent is an already decoded image. It is uploaded once when the
// layer set is applied.
type ImageContent struct {
	Image image.Image
}

// Kind returns KindImage.
func (ImageContent) Kind() ContentKind { return KindImage }
func (ImageContent) isContent()        {}

// VideoContent is a decoder output paired with the clock that drives it.
type VideoContent struct {
	Output video.Output
	Clock  video.Clock
	Layout AlphaLayout
}

// Kind returns KindVideo.
func (VideoContent) Kind() ContentKind { return KindVideo }
func (VideoContent) isContent()        {}

// ModelContent references a 3D model file.
type ModelContent struct {
	Path string
}

// Kind returns KindModel.
func (ModelContent) Kind() ContentKind { return KindModel }
func (ModelContent) isContent()        {}
