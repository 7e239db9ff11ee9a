package arcomp

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// captureLogger installs a debug-level text logger for the test and
// restores the previous one afterwards.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf syncBuffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf.buf
}

// syncBuffer serializes writes from the render and test goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestLoggerSilentByDefault(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	if _, ok := l.Handler().(nopHandler); !ok {
		t.Errorf("default handler = %T, want nopHandler", l.Handler())
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled")
	}
}

func TestSetLoggerReachesRenderer(t *testing.T) {
	out := captureLogger(t)

	c, _ := newTestCompositor(t)
	_ = c.SetTargetSize(testSize)
	_ = c.SetLayers(map[int]*Layer{7: NewImageLayer(7, solidImage(2, 2, white))})
	c.UpdateFrame(tracking())
	if !c.Draw(nil) {
		t.Fatal("Draw returned false")
	}

	got := out.String()
	for _, msg := range []string{
		"arcomp: renderer initialized", // internal/gpu
		"arcomp: texture uploaded",     // internal/gpu
		"arcomp: compositor created",
		"arcomp: layer set applied",
	} {
		if !strings.Contains(got, msg) {
			t.Errorf("log output is missing %q:\n%s", msg, got)
		}
	}
}

func TestSetLoggerNilSilencesRenderer(t *testing.T) {
	out := captureLogger(t)
	SetLogger(nil)

	c, _ := newTestCompositor(t)
	_ = c.SetTargetSize(testSize)
	_ = c.SetLayers(map[int]*Layer{1: NewImageLayer(1, solidImage(1, 1, white))})
	c.Draw(nil)
	if out.Len() != 0 {
		t.Errorf("logger replaced by nil still received:\n%s", out.String())
	}
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) left an enabled logger")
	}
}

func TestCloseLogsFrameCounts(t *testing.T) {
	out := captureLogger(t)

	c, _ := readyCompositor(t, map[int]*Layer{1: NewImageLayer(1, solidImage(1, 1, white))})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "arcomp: compositor closed") || !strings.Contains(got, "frames=1") {
		t.Errorf("close record missing or without frame count:\n%s", got)
	}
}

func TestSetVideoOutputWarnsThroughLogger(t *testing.T) {
	out := captureLogger(t)

	l := NewImageLayer(12, nil)
	_ = l.SetVideoOutput(nil, nil)

	got := out.String()
	if !strings.Contains(got, "non-video layer") || !strings.Contains(got, "id=12") || !strings.Contains(got, "kind=Image") {
		t.Errorf("expected a warning for image layer 12, got: %s", got)
	}
}

func TestSetLoggerWhileLayersWarn(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	layer := NewModelLayer(1, "robot.glb")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = layer.SetVideoOutput(nil, nil)
		}()
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(slog.Default())
			} else {
				SetLogger(nil)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkDisabledFrameLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("arcomp: draw skipped", "state", Ready, "layers", 3)
	}
}
