// Package video provides the pull-based frame source consumed by video layers.
//
// A video layer pairs an [Output] (the decoder side) with a [Clock] (the
// playback side). Once per redraw the compositor asks the clock for the
// current playback time and the output for the frame at that time. Neither
// call blocks: when no frame is available the layer is simply skipped for
// that redraw.
//
// There are no callbacks or periodic observers. Whatever drives redraws
// (a player tick, a transform update) calls into the compositor from the
// render goroutine, and the compositor samples every video layer then.
//
// [Sequence] is an in-memory Output built from decoded images or an
// animated GIF. [ManualClock] and [PlaybackClock] are the two Clock
// implementations: the first is stepped explicitly (tests, offline
// rendering), the second follows wall time.
package video
