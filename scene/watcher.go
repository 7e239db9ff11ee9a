package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/arcomp"
)

// DefaultSettle is how long a watcher waits after the last change before
// reloading. Editors often write a file in several steps.
const DefaultSettle = 100 * time.Millisecond

// Watcher reloads a scene whenever its file or a referenced asset is
// written or created, and delivers the new Scene on Scenes. Only the
// latest undelivered scene is kept.
type Watcher struct {
	path   string
	settle time.Duration
	cache  *AssetCache

	fs     *fsnotify.Watcher
	scenes chan *Scene
	errors chan error

	mu      sync.Mutex
	watched map[string]bool // assets, cleaned absolute paths
	dirs    map[string]bool // directories registered with fs

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithSettle sets the quiet period before a reload.
func WithSettle(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// Watch starts watching the file and assets of s. Reloads decode through
// the scene's asset cache, or a new one when s was loaded without.
func Watch(s *Scene, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scene: watch: %w", err)
	}
	w := &Watcher{
		path:    s.Path(),
		settle:  DefaultSettle,
		cache:   s.Cache(),
		fs:      fsw,
		scenes:  make(chan *Scene, 1),
		errors:  make(chan error, 1),
		watched: make(map[string]bool),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cache == nil {
		w.cache = NewAssetCache(DefaultCacheMB)
	}
	if err := w.track(s.Assets()); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// Scenes delivers reloaded scenes. Closed after Close.
func (w *Watcher) Scenes() <-chan *Scene { return w.scenes }

// Errors delivers reload and watch errors. Closed after Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		<-w.stopped
		err = w.fs.Close()
	})
	return err
}

// track adds the directories holding assets to the fsnotify watch list.
// Watching directories keeps working when an editor replaces a file. An
// asset whose directory does not exist yet, such as a model that was never
// exported, is watched through its nearest existing parent.
func (w *Watcher) track(assets []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range assets {
		a = filepath.Clean(a)
		w.watched[a] = true

		dir := filepath.Dir(a)
		if fi, err := os.Stat(a); err == nil && fi.IsDir() {
			dir = a
		}
		if d := existingDir(dir); d != dir {
			arcomp.Logger().Debug("scene: asset directory missing, watching parent",
				"path", a, "dir", d)
			dir = d
		}
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("scene: watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

// existingDir returns dir, or its nearest ancestor that exists.
func existingDir(dir string) string {
	for {
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// relevant reports whether name is an asset or a frame inside one.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[name] || w.watched[filepath.Dir(name)]
}

func (w *Watcher) run() {
	defer close(w.stopped)
	defer close(w.scenes)
	defer close(w.errors)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			if !w.relevant(e.Name) {
				continue
			}
			arcomp.Logger().Debug("scene: asset changed", "path", e.Name, "op", e.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			arcomp.Logger().Warn("scene: watch error", "err", err)
			latest(w.errors, err)

		case <-fire:
			fire = nil
			w.reload()

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	s, err := Load(w.path, WithCache(w.cache))
	if err != nil {
		arcomp.Logger().Warn("scene: reload failed", "path", w.path, "err", err)
		latest(w.errors, err)
		return
	}
	if err := w.track(s.Assets()); err != nil {
		arcomp.Logger().Warn("scene: watch failed", "err", err)
		latest(w.errors, err)
	}
	latest(w.scenes, s)
}

// latest sends v on a one-slot channel, replacing an undelivered value.
// The watcher goroutine is the only sender.
func latest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
