package arcomp

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/arcomp/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for arcomp and its sub-packages.
// By default arcomp produces no log output. Pass nil to restore that.
//
// Log levels used by arcomp:
//   - [slog.LevelDebug]: per-frame diagnostics (skipped layers, uploads)
//   - [slog.LevelInfo]: lifecycle events (rebuild finished, device picked)
//   - [slog.LevelWarn]: dropped frames, content/state mismatches
//   - [slog.LevelError]: setup failures that disable a feature
//
// Example:
//
//	arcomp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by arcomp.
// The scene package calls this to share the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
