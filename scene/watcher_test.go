package scene

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testSettle is long enough for a test's single write to land as one reload.
const testSettle = 50 * time.Millisecond

// waitScene returns the first reloaded scene that satisfies ok. Reloads
// that catch a file mid-write are skipped.
func waitScene(t *testing.T, w *Watcher, ok func(*Scene) bool) *Scene {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s, open := <-w.Scenes():
			if !open {
				t.Fatal("Scenes closed")
			}
			if ok(s) {
				return s
			}
		case err := <-w.Errors():
			t.Logf("reload error: %v", err)
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcherReloadsOnSceneWrite(t *testing.T) {
	path := fixtureScene(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s, WithSettle(testSettle))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, string(data)+"\n[[layer]]\nid = 9\nmodel = \"extra.glb\"\n")

	got := waitScene(t, w, func(s *Scene) bool { return len(s.File().Layers) == 5 })
	if _, ok := got.Layers(nil)[9].Model(); !ok {
		t.Error("layer 9 is not a model layer")
	}
}

func TestWatcherMissingModelDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "poster.png"), 4, 4, color.White)
	path := filepath.Join(dir, "scene.toml")
	writeFile(t, path, `
[[layer]]
id = 1
image = "poster.png"

[[layer]]
id = 2
model = "models/export/robot.glb"
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s, WithSettle(testSettle))
	if err != nil {
		t.Fatalf("Watch with a missing model directory: %v", err)
	}
	defer w.Close()

	w.mu.Lock()
	watched := w.dirs[dir]
	w.mu.Unlock()
	if !watched {
		t.Errorf("scene directory %s not watched", dir)
	}
	if got := existingDir(filepath.Join(dir, "models", "export")); got != dir {
		t.Errorf("existingDir = %s, want %s", got, dir)
	}

	writePNG(t, filepath.Join(dir, "poster.png"), 6, 6, color.White)
	waitScene(t, w, func(s *Scene) bool {
		img := s.Layers(nil)[1]
		c, ok := img.Image()
		return ok && c.Image.Bounds().Dx() == 6
	})
}

func TestWatcherReloadsOnFrameWrite(t *testing.T) {
	path := fixtureScene(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s, WithSettle(testSettle))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	writePNG(t, filepath.Join(filepath.Dir(path), "frames", "0003.png"), 4, 4, color.White)

	waitScene(t, w, func(s *Scene) bool {
		seq, ok := s.Sequence(2)
		return ok && seq.Len() == 3
	})
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	path := fixtureScene(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s, WithSettle(testSettle))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	writeFile(t, filepath.Join(filepath.Dir(path), "readme.txt"), "hello")

	select {
	case <-w.Scenes():
		t.Error("reload triggered by an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherReportsBrokenScene(t *testing.T) {
	path := fixtureScene(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s, WithSettle(testSettle))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	writeFile(t, path, "[canvas]\nwidth = \"wide\"\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-w.Errors():
			if err == nil {
				t.Error("nil error delivered")
			}
			return
		case s := <-w.Scenes():
			// An empty file parses; only a scene with the broken width is wrong.
			if s != nil && s.Size().Width != DefaultWidth {
				t.Errorf("broken scene delivered: %+v", s.Size())
			}
		case <-deadline:
			t.Fatal("timed out waiting for the reload error")
		}
	}
}

func TestWatcherClose(t *testing.T) {
	s, err := Load(fixtureScene(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	w, err := Watch(s)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, ok := <-w.Scenes(); ok {
		t.Error("Scenes still open after Close")
	}
	if _, ok := <-w.Errors(); ok {
		t.Error("Errors still open after Close")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestLatestKeepsNewest(t *testing.T) {
	ch := make(chan int, 1)
	latest(ch, 1)
	latest(ch, 2)
	if got := <-ch; got != 2 {
		t.Errorf("latest kept %d, want 2", got)
	}
}
