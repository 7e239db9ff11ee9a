package video

import (
	"sync"
	"time"
)

// Clock reports the current playback position.
type Clock interface {
	Now() time.Duration
}

// ManualClock is a Clock that only moves when told to.
// The zero value is a clock stopped at 0 and ready to use.
type ManualClock struct {
	mu sync.Mutex
	t  time.Duration
}

// Now returns the current position.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new position.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t += d
	return c.t
}

// PlaybackClock follows wall time while playing.
type PlaybackClock struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	base    time.Duration
	playing bool
}

// NewPlaybackClock returns a paused clock at position 0.
func NewPlaybackClock() *PlaybackClock {
	return &PlaybackClock{now: time.Now}
}

// Now returns the current playback position.
func (c *PlaybackClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *PlaybackClock) positionLocked() time.Duration {
	if !c.playing {
		return c.base
	}
	return c.base + c.now().Sub(c.started)
}

// Play starts or resumes playback. Calling Play while playing is a no-op.
func (c *PlaybackClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.started = c.now()
	c.playing = true
}

// Pause freezes the position.
func (c *PlaybackClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.positionLocked()
	c.playing = false
}

// Seek jumps to t without changing the play/pause state.
func (c *PlaybackClock) Seek(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.started = c.now()
}

// Playing reports whether the clock is running.
func (c *PlaybackClock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}
