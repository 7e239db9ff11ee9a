package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/gogpu/arcomp"
	"github.com/gogpu/arcomp/video"
	"github.com/pelletier/go-toml/v2"
)

// Scene is a parsed scene file with every asset decoded.
type Scene struct {
	path   string
	file   File
	cache  *AssetCache
	mask   image.Image
	images map[int]image.Image
	videos map[int]*video.Sequence
	assets []string
}

// LoadOption configures Load.
type LoadOption func(*Scene)

// WithCache decodes assets through c. Assets unchanged on disk since an
// earlier load come back as the same values.
func WithCache(c *AssetCache) LoadOption {
	return func(s *Scene) {
		s.cache = c
	}
}

// Load reads, validates and decodes the scene at path.
// Unknown keys in the file are errors.
func Load(path string, opts ...LoadOption) (*Scene, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}

	s := &Scene{
		path:   abs,
		file:   f,
		images: make(map[int]image.Image),
		videos: make(map[int]*video.Sequence),
		assets: []string{abs},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.decodeAssets(); err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}

	arcomp.Logger().Info("scene: loaded",
		"path", abs, "layers", len(f.Layers), "assets", len(s.assets)-1)
	return s, nil
}

// Parse decodes and validates scene TOML without touching any asset.
func Parse(data []byte) (File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse: %w", err)
	}
	f.normalize()
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (s *Scene) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(s.path), p)
}

func (s *Scene) decodeAssets() error {
	if s.file.Mask.Image != "" {
		p := s.resolve(s.file.Mask.Image)
		img, err := s.loadImage(p)
		if err != nil {
			return fmt.Errorf("mask: %w", err)
		}
		s.mask = img
		s.assets = append(s.assets, p)
	}

	for _, l := range s.file.Layers {
		switch {
		case l.Image != "":
			p := s.resolve(l.Image)
			img, err := s.loadImage(p)
			if err != nil {
				return fmt.Errorf("layer %d: %w", l.ID, err)
			}
			s.images[l.ID] = img
			s.assets = append(s.assets, p)

		case l.Video != "":
			p := s.resolve(l.Video)
			seq, err := s.loadVideo(p, l.FPS, l.Loop == nil || *l.Loop)
			if err != nil {
				return fmt.Errorf("layer %d: %w", l.ID, err)
			}
			s.videos[l.ID] = seq
			s.assets = append(s.assets, p)

		case l.Model != "":
			// Models are carried by path only and never decoded.
			s.assets = append(s.assets, s.resolve(l.Model))
		}
	}
	return nil
}

func (s *Scene) loadImage(p string) (image.Image, error) {
	if s.cache == nil {
		return decodeImage(p)
	}
	key, err := statKey(p)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.get(key); ok {
		return v.(image.Image), nil
	}
	img, err := decodeImage(p)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, img, imageSize(img))
	return img, nil
}

func (s *Scene) loadVideo(p string, fps float64, loop bool) (*video.Sequence, error) {
	if s.cache == nil {
		return decodeVideo(p, fps, loop)
	}
	key, err := statKey(p)
	if err != nil {
		return nil, err
	}
	key.fps, key.loop = fps, loop
	if v, ok := s.cache.get(key); ok {
		return v.(*video.Sequence), nil
	}
	seq, err := decodeVideo(p, fps, loop)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, seq, sequenceSize(seq))
	return seq, nil
}

// Cache returns the asset cache the scene was loaded with, or nil.
func (s *Scene) Cache() *AssetCache { return s.cache }

// Path returns the absolute path of the scene file.
func (s *Scene) Path() string { return s.path }

// File returns the parsed scene file with defaults applied.
func (s *Scene) File() File { return s.file }

// Size returns the canvas configuration.
func (s *Scene) Size() arcomp.Size { return s.file.size() }

// ClearColor returns the color the mask pass clears to.
func (s *Scene) ClearColor() color.Color { return s.file.clearColor() }

// Assets returns the absolute paths of the scene file and every asset it
// references.
func (s *Scene) Assets() []string { return append([]string(nil), s.assets...) }

// MaskImage returns the decoded mask image, or nil.
func (s *Scene) MaskImage() image.Image { return s.mask }

// Mask returns the mask configuration.
func (s *Scene) Mask() arcomp.MaskConfig {
	mode, _ := parseMaskMode(s.file.Mask.Mode)
	return arcomp.MaskConfig{
		Mode:   mode,
		Image:  s.mask,
		Offset: arcomp.Vec2{X: s.file.Mask.Offset[0], Y: s.file.Mask.Offset[1]},
	}
}

// Sequence returns the decoded video of the layer with the given id.
func (s *Scene) Sequence(id int) (*video.Sequence, bool) {
	seq, ok := s.videos[id]
	return seq, ok
}

// Layers builds a fresh layer set keyed by id. Every video layer plays
// against clock; a nil clock is replaced by a started PlaybackClock.
func (s *Scene) Layers(clock video.Clock) map[int]*arcomp.Layer {
	if clock == nil {
		pc := video.NewPlaybackClock()
		pc.Play()
		clock = pc
	}

	layers := make(map[int]*arcomp.Layer, len(s.file.Layers))
	for _, spec := range s.file.Layers {
		var l *arcomp.Layer
		switch {
		case spec.Image != "":
			l = arcomp.NewImageLayer(spec.ID, s.images[spec.ID])
		case spec.Video != "":
			layout, _ := arcomp.ParseAlphaLayout(spec.Alpha)
			l = arcomp.NewVideoLayer(spec.ID, s.videos[spec.ID], clock, layout)
		default:
			l = arcomp.NewModelLayer(spec.ID, s.resolve(spec.Model))
		}

		l.Offset = arcomp.V3(spec.Offset[0], spec.Offset[1], spec.Offset[2])
		if spec.Scale != nil {
			l.Scale = *spec.Scale
		}
		if spec.UseStencil != nil {
			l.UseStencil = *spec.UseStencil
		}
		layers[spec.ID] = l
	}
	return layers
}
