package gpu

import "errors"

var (
	// ErrNotReady is returned when pipelines or shared resources have not
	// been created yet.
	ErrNotReady = errors.New("gpu: renderer not initialized")

	// ErrFrameDropped wraps every reason a frame was abandoned before
	// submission. Nothing was encoded when it is returned.
	ErrFrameDropped = errors.New("gpu: frame dropped")

	// ErrInvalidTarget is returned for zero-sized render targets.
	ErrInvalidTarget = errors.New("gpu: invalid render target size")

	// ErrUnsupportedFormat is returned for pixel layouts the uploader
	// cannot map to a texture format.
	ErrUnsupportedFormat = errors.New("gpu: unsupported pixel format")
)
