package video

import (
	"image"

	"github.com/disintegration/imaging"
)

// PixelFormat describes the byte order of a Frame.
type PixelFormat uint8

const (
	// FormatBGRA8 is 8 bits per channel in B, G, R, A order.
	// This is what most hardware decoders hand out.
	FormatBGRA8 PixelFormat = iota

	// FormatRGBA8 is 8 bits per channel in R, G, B, A order, straight alpha.
	FormatRGBA8
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "BGRA8"
	case FormatRGBA8:
		return "RGBA8"
	default:
		return "unknown"
	}
}

// Frame is one decoded video frame in CPU memory.
//
// Pix holds Height rows of Stride bytes each. Frames handed out by an
// Output are only valid until the next FrameAt call on that Output.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
	Format PixelFormat
}

// Valid reports whether the frame has a non-empty, consistent pixel buffer.
func (f Frame) Valid() bool {
	if f.Width <= 0 || f.Height <= 0 || f.Stride < f.Width*4 {
		return false
	}
	return len(f.Pix) >= f.Stride*(f.Height-1)+f.Width*4
}

// FrameFromImage converts any image into an RGBA8 frame with straight alpha.
func FrameFromImage(img image.Image) Frame {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: nrgba.Stride,
		Pix:    nrgba.Pix,
		Format: FormatRGBA8,
	}
}
