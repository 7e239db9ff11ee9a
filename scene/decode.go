package scene

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gogpu/arcomp/video"

	// Formats beyond what imaging registers.
	_ "golang.org/x/image/webp"
)

// imageExts are the frame file extensions picked up from a frame directory.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// decodeImage decodes a still image, applying any EXIF orientation.
func decodeImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// decodeVideo loads an animated GIF, or every image in a directory in name
// order as frames at fps.
func decodeVideo(path string, fps float64, loop bool) (*video.Sequence, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		if !strings.EqualFold(filepath.Ext(path), ".gif") {
			return nil, fmt.Errorf("video %s: want an animated gif or a frame directory", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return video.FromGIF(f, loop)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var frames []image.Image
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		img, err := decodeImage(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("video %s: %w", path, video.ErrEmptySequence)
	}
	seq, err := video.FromImages(frames, fps, loop)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", path, err)
	}
	return seq, nil
}
