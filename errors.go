package arcomp

import "errors"

var (
	// ErrNoDevice is returned when a compositor is created without a
	// usable GPU device and queue.
	ErrNoDevice = errors.New("arcomp: no GPU device")

	// ErrInvalidExtent is returned for non-positive target sizes or extents.
	ErrInvalidExtent = errors.New("arcomp: invalid extent")

	// ErrClosed is returned by operations on a closed compositor.
	ErrClosed = errors.New("arcomp: compositor closed")

	// ErrNotVideo is returned when a video-only operation is applied to a
	// layer whose content is not video.
	ErrNotVideo = errors.New("arcomp: layer content is not video")
)
