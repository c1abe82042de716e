// Package synthsource draws synthetic animation frames. It feeds the demo
// command, the palette test tool and tests that need realistic motion
// without image files on disk.
package synthsource

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/user/gifpress/pkg/adapters/framebuf"
	"github.com/user/gifpress/pkg/ports"
)

// maxJitter keeps jittered timestamps strictly increasing.
const maxJitter = 0.9

// Theme holds the colors of a synthetic clip.
type Theme struct {
	Background color.Color
	Block      color.Color
	Ball       color.Color
	Bar        color.Color
	Text       color.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{R: 245, G: 245, B: 240, A: 255},
		Block:      color.RGBA{R: 220, G: 60, B: 50, A: 255},
		Ball:       color.RGBA{R: 40, G: 110, B: 200, A: 255},
		Bar:        color.RGBA{R: 60, G: 170, B: 90, A: 255},
		Text:       color.RGBA{R: 30, G: 30, B: 30, A: 255},
	}
}

// Options configures a synthetic clip.
type Options struct {
	Width  int
	Height int
	Frames int
	FPS    float64
	Jitter float64 // Timestamp noise as a fraction of the frame interval (0..0.9)
	Seed   uint64  // Seed for jitter
	Theme  Theme
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Width:  320,
		Height: 180,
		Frames: 30,
		FPS:    10,
		Seed:   1,
		Theme:  DefaultTheme(),
	}
}

// Source renders frames on demand.
type Source struct {
	renderer ports.Renderer
	opts     Options
}

// New creates a synthetic source.
func New(renderer ports.Renderer, opts Options) (*Source, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("synthsource: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Frames < 0 {
		return nil, fmt.Errorf("synthsource: invalid frame count %d", opts.Frames)
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultOptions().FPS
	}
	opts.Jitter = math.Max(0, math.Min(maxJitter, opts.Jitter))
	if opts.Theme.Background == nil {
		opts.Theme = DefaultTheme()
	}
	return &Source{renderer: renderer, opts: opts}, nil
}

// TotalFrames returns the configured frame count.
func (s *Source) TotalFrames() int {
	return s.opts.Frames
}

// Frames draws and emits every frame.
func (s *Source) Frames(ctx context.Context, emit func(ports.PixelFrame) error) error {
	rng := rand.New(rand.NewPCG(s.opts.Seed, s.opts.Seed^0x9e3779b97f4a7c15))
	interval := 1 / s.opts.FPS

	for i := 0; i < s.opts.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ts := float64(i) * interval
		if i > 0 && s.opts.Jitter > 0 {
			ts += (rng.Float64() - 0.5) * s.opts.Jitter * interval
		}

		if err := emit(framebuf.FromImage(s.Draw(i).ToImage(), i, ts)); err != nil {
			return err
		}
	}
	return nil
}

// Draw renders frame i onto a fresh canvas.
func (s *Source) Draw(i int) ports.Canvas {
	w, h := s.opts.Width, s.opts.Height
	theme := s.opts.Theme
	t := 0.0
	if s.opts.Frames > 1 {
		t = float64(i) / float64(s.opts.Frames-1)
	}

	canvas := s.renderer.CreateCanvas(w, h, theme.Background)

	// A block slides left to right.
	size := max(h/4, 1)
	x := int(t * float64(w-size))
	canvas.DrawRect(x, h/6, size, size, theme.Block)

	// A ball bounces through one full sine period.
	r := max(h/10, 1)
	cy := h/2 + int(math.Sin(t*2*math.Pi)*float64(h/5))
	canvas.DrawCircle(w-w/4, cy, r, theme.Ball)

	// The bar fills as the clip progresses.
	barH := max(h/20, 2)
	canvas.DrawRect(0, h-barH, int(t*float64(w)), barH, theme.Bar)

	canvas.DrawText(fmt.Sprintf("%d/%d", i+1, s.opts.Frames), w/4, h-barH*3, ports.TextStyle{
		FontSize: math.Max(10, float64(h)/12),
		Color:    theme.Text,
		Align:    ports.AlignCenter,
	})

	return canvas
}

var _ ports.FrameSource = (*Source)(nil)
