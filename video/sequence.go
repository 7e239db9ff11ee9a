// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package video

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"io"
	"sort"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Output is the decoder side of a video layer.
//
// FrameAt returns the frame that should be on screen at playback time t,
// or false when nothing is available (not decoded yet, past the end, no
// source). It must not block.
type Output interface {
	FrameAt(t time.Duration) (Frame, bool)
}

var (
	// ErrEmptySequence is returned when a sequence would have no frames.
	ErrEmptySequence = errors.New("video: sequence has no frames")

	// ErrInvalidFrameDuration is returned for non-positive frame durations.
	ErrInvalidFrameDuration = errors.New("video: frame duration must be positive")
)

// Sequence is an in-memory Output over pre-decoded frames.
// It is safe for concurrent readers since it never mutates after creation.
type Sequence struct {
	frames []Frame
	// ends[i] is the playback time at which frame i stops being current.
	ends  []time.Duration
	total time.Duration
	loop  bool
}

// NewSequence builds a sequence where every frame lasts frameDuration.
func NewSequence(frames []Frame, frameDuration time.Duration, loop bool) (*Sequence, error) {
	if frameDuration <= 0 {
		return nil, ErrInvalidFrameDuration
	}
	delays := make([]time.Duration, len(frames))
	for i := range delays {
		delays[i] = frameDuration
	}
	return newSequence(frames, delays, loop)
}

func newSequence(frames []Frame, delays []time.Duration, loop bool) (*Sequence, error) {
	if len(frames) == 0 {
		return nil, ErrEmptySequence
	}
	s := &Sequence{
		frames: frames,
		ends:   make([]time.Duration, len(frames)),
		loop:   loop,
	}
	for i, f := range frames {
		if !f.Valid() {
			return nil, fmt.Errorf("video: frame %d has an invalid pixel buffer", i)
		}
		if delays[i] <= 0 {
			return nil, ErrInvalidFrameDuration
		}
		s.total += delays[i]
		s.ends[i] = s.total
	}
	return s, nil
}

// FromImages decodes nothing: it wraps already-decoded images at the given
// frame rate.
func FromImages(imgs []image.Image, fps float64, loop bool) (*Sequence, error) {
	if fps <= 0 {
		return nil, ErrInvalidFrameDuration
	}
	frames := make([]Frame, len(imgs))
	for i, img := range imgs {
		frames[i] = FrameFromImage(img)
	}
	return NewSequence(frames, time.Duration(float64(time.Second)/fps), loop)
}

// minGIFDelay is what browsers substitute for 0 and 1 centisecond delays.
const minGIFDelay = 100 * time.Millisecond

// FromGIF decodes an animated GIF into a sequence. Frames are composited
// onto a canvas the size of the logical screen, so partial frames come
// out whole.
func FromGIF(r io.Reader, loop bool) (*Sequence, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("video: decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, ErrEmptySequence
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(bounds)

	frames := make([]Frame, len(g.Image))
	delays := make([]time.Duration, len(g.Image))
	for i, p := range g.Image {
		var restore *image.NRGBA
		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalPrevious {
			restore = image.NewNRGBA(bounds)
			xdraw.Draw(restore, bounds, canvas, bounds.Min, xdraw.Src)
		}

		xdraw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, xdraw.Over)
		frames[i] = FrameFromImage(canvas)

		switch {
		case restore != nil:
			xdraw.Draw(canvas, bounds, restore, bounds.Min, xdraw.Src)
		case i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground:
			xdraw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, xdraw.Src)
		}

		d := time.Duration(g.Delay[i]) * 10 * time.Millisecond
		if d < 20*time.Millisecond {
			d = minGIFDelay
		}
		delays[i] = d
	}
	return newSequence(frames, delays, loop)
}

// FrameAt implements Output.
func (s *Sequence) FrameAt(t time.Duration) (Frame, bool) {
	if t < 0 {
		return Frame{}, false
	}
	if t >= s.total {
		if !s.loop {
			return Frame{}, false
		}
		t %= s.total
	}
	i := sort.Search(len(s.ends), func(i int) bool { return s.ends[i] > t })
	return s.frames[i], true
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.frames) }

// Duration returns the length of one pass through the sequence.
func (s *Sequence) Duration() time.Duration { return s.total }

// Looping reports whether playback wraps around at the end.
func (s *Sequence) Looping() bool { return s.loop }
