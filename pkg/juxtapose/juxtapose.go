// Package juxtapose combines two frame sources side by side into one GIF.
package juxtapose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/user/gifpress/pkg/adapters/framebuf"
	"github.com/user/gifpress/pkg/ports"
)

// ErrEmptySource is returned when either side produces no frames.
var ErrEmptySource = errors.New("juxtapose: source has no frames")

// Options configures the juxtapose operation.
type Options struct {
	// Gap is the horizontal gap between the two clips in pixels.
	Gap int
	// FPS is the output frame rate.
	FPS float64
	// Quality is the GIF quality (0.0 to 1.0).
	Quality float64
	// Loop is the loop policy of the output.
	Loop ports.LoopPolicy
	// Background fills the gap and letterbox areas.
	Background color.Color
	// LeftLabel and RightLabel are drawn above each clip when set.
	LeftLabel  string
	RightLabel string
	// LabelHeight is the height of the label strip.
	LabelHeight int
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		Gap:         10,
		FPS:         10,
		Quality:     0.7,
		Loop:        ports.LoopForever(),
		Background:  color.Black,
		LabelHeight: 24,
	}
}

// clip is a fully read frame source.
type clip struct {
	frames []image.Image
	times  []float64 // Seconds since the first frame
	width  int
	height int
}

// Combine reads both sources and encodes them side by side. The shorter
// clip holds its last frame until the longer one finishes.
func Combine(ctx context.Context, left, right ports.FrameSource, factory ports.EncoderFactory, renderer ports.Renderer, opts Options) ([]byte, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultOptions().FPS
	}
	if opts.Background == nil {
		opts.Background = DefaultOptions().Background
	}

	l, err := readClip(ctx, left)
	if err != nil {
		return nil, fmt.Errorf("read left: %w", err)
	}
	r, err := readClip(ctx, right)
	if err != nil {
		return nil, fmt.Errorf("read right: %w", err)
	}

	labelH := 0
	if opts.LeftLabel != "" || opts.RightLabel != "" {
		labelH = opts.LabelHeight
	}
	width := l.width + opts.Gap + r.width
	height := max(l.height, r.height) + labelH

	duration := math.Max(l.duration(), r.duration())
	count := max(int(math.Floor(duration*opts.FPS+1e-9))+1, 2)

	encoder, err := factory.NewEncoder(ports.EncoderSettings{
		Width:   width,
		Height:  height,
		Quality: opts.Quality,
		Loop:    opts.Loop,
	}, ports.EncoderOptions{TotalFrames: count})
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	stop := context.AfterFunc(ctx, encoder.Cancel)
	defer stop()

	style := ports.TextStyle{
		FontSize: math.Max(10, float64(labelH)*0.6),
		Color:    color.White,
		Align:    ports.AlignCenter,
	}

	for i := 0; i < count; i++ {
		ts := float64(i) / opts.FPS

		canvas := renderer.CreateCanvas(width, height, opts.Background)
		canvas.DrawImage(l.at(ts), 0, labelH+(height-labelH-l.height)/2)
		canvas.DrawImage(r.at(ts), l.width+opts.Gap, labelH+(height-labelH-r.height)/2)
		if labelH > 0 {
			canvas.DrawText(opts.LeftLabel, l.width/2, labelH/2, style)
			canvas.DrawText(opts.RightLabel, l.width+opts.Gap+r.width/2, labelH/2, style)
		}

		if err := encoder.AddFrame(ctx, framebuf.FromImage(canvas.ToImage(), i, ts)); err != nil {
			encoder.Cancel()
			return nil, fmt.Errorf("add frame %d: %w", i, err)
		}
	}

	data, err := encoder.Finish(ctx)
	if err != nil {
		return nil, fmt.Errorf("finish encoding: %w", err)
	}
	return data, nil
}

func readClip(ctx context.Context, source ports.FrameSource) (*clip, error) {
	c := &clip{}
	var first float64
	err := source.Frames(ctx, func(f ports.PixelFrame) error {
		if len(c.frames) == 0 {
			first = f.Timestamp
			c.width, c.height = f.Width, f.Height
		}
		c.frames = append(c.frames, f.Image())
		c.times = append(c.times, f.Timestamp-first)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(c.frames) == 0 {
		return nil, ErrEmptySource
	}
	return c, nil
}

func (c *clip) duration() float64 {
	return c.times[len(c.times)-1]
}

// at returns the frame shown at ts: the last one at or before it.
func (c *clip) at(ts float64) image.Image {
	for i := len(c.times) - 1; i >= 0; i-- {
		if c.times[i] <= ts+1e-9 {
			return c.frames[i]
		}
	}
	return c.frames[0]
}
