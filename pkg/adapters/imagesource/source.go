// Package imagesource provides a frame source backed by still image files.
package imagesource

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/user/gifpress/pkg/adapters/framebuf"
	"github.com/user/gifpress/pkg/ports"
)

// ErrNoImages is returned when the inputs contain no PNG or JPEG files.
var ErrNoImages = errors.New("imagesource: no images found")

// Options configures how images become frames.
type Options struct {
	Width      int         // Canvas width (0 = size of the first image)
	Height     int         // Canvas height (0 = size of the first image)
	FPS        float64     // Frames per second used for timestamps
	Background color.Color // Letterbox fill
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		FPS:        10,
		Background: color.Black,
	}
}

// Source emits one frame per image file.
type Source struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger
	paths    []string
	opts     Options
}

// New resolves inputs into an ordered list of image files.
// Directories are expanded to the images they contain in natural order
// (frame2.png before frame10.png). Files keep the order they were given in.
func New(fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger, inputs []string, opts Options) (*Source, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultOptions().FPS
	}
	if opts.Background == nil {
		opts.Background = DefaultOptions().Background
	}

	var paths []string
	for _, input := range inputs {
		names, err := fs.ListDir(input)
		if err != nil {
			paths = append(paths, input)
			continue
		}
		var images []string
		for _, name := range names {
			if isImage(name) {
				images = append(images, name)
			}
		}
		sort.SliceStable(images, func(i, j int) bool { return natural.Less(images[i], images[j]) })
		for _, name := range images {
			paths = append(paths, filepath.Join(input, name))
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoImages
	}

	return &Source{
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("imagesource"),
		paths:    paths,
		opts:     opts,
	}, nil
}

// Paths returns the resolved image files in emission order.
func (s *Source) Paths() []string {
	return s.paths
}

// TotalFrames returns the number of image files.
func (s *Source) TotalFrames() int {
	return len(s.paths)
}

// Frames decodes each image, fits it to the canvas and emits it.
func (s *Source) Frames(ctx context.Context, emit func(ports.PixelFrame) error) error {
	width, height := s.opts.Width, s.opts.Height

	for i, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := s.fs.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		img, err := s.renderer.DecodeImage(data, ports.FormatFromExt(filepath.Ext(path)))
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}

		if width <= 0 || height <= 0 {
			width, height = img.Bounds().Dx(), img.Bounds().Dy()
		}
		img = framebuf.Letterbox(s.renderer, img, width, height, s.opts.Background)

		s.logger.Debug("Loaded frame %d from %s", i, path)

		if err := emit(framebuf.FromImage(img, i, float64(i)/s.opts.FPS)); err != nil {
			return err
		}
	}
	return nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

var _ ports.FrameSource = (*Source)(nil)
