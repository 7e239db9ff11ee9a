// Command arcompose renders a scene file to PNG frames headlessly.
//
// Usage:
//
//	arcompose -scene scene.toml -out frames -frames 90 -fps 30
//
// Frames from -lost-at on are rendered with tracking lost, showing the
// scene's backdrop layer. With -watch, arcompose re-renders whenever the
// scene file or one of its assets changes, until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/gogpu/arcomp"
	"github.com/gogpu/arcomp/scene"
	"github.com/gogpu/arcomp/video"
	"github.com/schollz/progressbar/v3"
)

type config struct {
	scene    string
	out      string
	frames   int
	fps      float64
	backend  string
	lostAt   int
	logLevel string
	watch    bool
	samples  uint
	spirv    bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.scene, "scene", "", "scene file (TOML)")
	flag.StringVar(&cfg.out, "out", "frames", "output directory")
	flag.IntVar(&cfg.frames, "frames", 1, "number of frames to render")
	flag.Float64Var(&cfg.fps, "fps", 30, "frame rate of the rendered sequence")
	flag.StringVar(&cfg.backend, "backend", "auto", "GPU backend: "+backendNames())
	flag.IntVar(&cfg.lostAt, "lost-at", -1, "frame index from which tracking is lost (-1: never)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.watch, "watch", false, "re-render when the scene or its assets change")
	flag.UintVar(&cfg.samples, "samples", 4, "MSAA sample count")
	flag.BoolVar(&cfg.spirv, "spirv", false, "precompile shaders to SPIR-V")
	flag.Parse()

	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	arcomp.SetLogger(slog.New(logger))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("arcompose failed", "err", err)
	}
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("-log-level: %w", err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "arcompose",
	}), nil
}

func (c config) validate() error {
	switch {
	case c.scene == "":
		return errors.New("-scene is required")
	case c.frames < 1:
		return fmt.Errorf("-frames %d must be at least 1", c.frames)
	case c.fps <= 0:
		return fmt.Errorf("-fps %g must be positive", c.fps)
	case c.samples < 1:
		return errors.New("-samples must be at least 1")
	}
	return nil
}

func run(cfg config, logger *log.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	s, err := scene.Load(cfg.scene, scene.WithCache(scene.NewAssetCache(scene.DefaultCacheMB)))
	if err != nil {
		return err
	}

	dev, err := openDevice(cfg.backend)
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Info("device opened", "backend", cfg.backend, "adapter", dev.info.Name)

	comp, err := arcomp.New(dev.Device, dev.Queue,
		arcomp.WithSampleCount(uint32(cfg.samples)),
		arcomp.WithSPIRV(cfg.spirv),
		arcomp.WithMask(s.Mask()),
		arcomp.WithClearColor(s.ClearColor()),
	)
	if err != nil {
		return err
	}
	defer comp.Close()

	r := &renderer{cfg: cfg, comp: comp, logger: logger}
	if err := r.load(s); err != nil {
		return err
	}
	if err := r.render(); err != nil {
		return err
	}
	if !cfg.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return r.watch(ctx, s)
}

// renderer drives one compositor through a frame sequence.
type renderer struct {
	cfg    config
	comp   *arcomp.Compositor
	logger *log.Logger
	clock  video.ManualClock
	size   arcomp.Size
}

func (r *renderer) load(s *scene.Scene) error {
	r.size = s.Size()
	if err := r.comp.SetTargetSize(r.size); err != nil {
		return err
	}
	if err := r.comp.SetMask(s.Mask()); err != nil {
		return err
	}
	return r.comp.SetLayers(s.Layers(&r.clock))
}

func (r *renderer) render() error {
	if err := os.MkdirAll(r.cfg.out, 0o755); err != nil {
		return err
	}

	bar := progressbar.NewOptions(r.cfg.frames,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	frameTime := time.Duration(float64(time.Second) / r.cfg.fps)
	dropped := 0

	for i := 0; i < r.cfg.frames; i++ {
		r.clock.Set(time.Duration(i) * frameTime)
		r.comp.UpdateFrame(r.pose(i))

		img := image.NewRGBA(image.Rect(0, 0, r.size.Width, r.size.Height))
		if !r.comp.Draw(img) {
			dropped++
			_ = bar.Add(1)
			continue
		}
		name := filepath.Join(r.cfg.out, fmt.Sprintf("frame_%04d.png", i))
		if err := imaging.Save(img, name); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	stats := r.comp.Stats()
	r.logger.Info("render finished",
		"frames", r.cfg.frames, "dropped", dropped, "skipped_layers", stats.SkippedLayers, "out", r.cfg.out)
	return nil
}

// pose returns a slow orbit of the anchor in front of a fixed camera, or
// a lost-tracking state from -lost-at on.
func (r *renderer) pose(i int) arcomp.FrameState {
	if r.cfg.lostAt >= 0 && i >= r.cfg.lostAt {
		return arcomp.FrameState{Status: arcomp.TrackingLost}
	}
	t := float64(i) / r.cfg.fps
	anchor := arcomp.Translate(float32(0.05*math.Sin(t)), float32(0.05*math.Cos(t)), 0)
	camera := arcomp.Identity()
	projection := arcomp.Identity()
	return arcomp.FrameState{
		Anchor:     &anchor,
		Camera:     &camera,
		Projection: &projection,
		Status:     arcomp.Tracking,
	}
}

func (r *renderer) watch(ctx context.Context, s *scene.Scene) error {
	w, err := scene.Watch(s)
	if err != nil {
		return err
	}
	defer w.Close()
	r.logger.Info("watching scene", "path", s.Path())

	errs := w.Errors()
	for {
		select {
		case next, ok := <-w.Scenes():
			if !ok {
				return nil
			}
			if err := r.load(next); err != nil {
				r.logger.Error("apply scene", "err", err)
				continue
			}
			if err := r.render(); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("scene reload", "err", err)
		case <-ctx.Done():
			return nil
		}
	}
}
