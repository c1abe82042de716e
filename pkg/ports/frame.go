package ports

import (
	"context"
	"fmt"
	"image"
	"strconv"
)

// PixelFrame is one decoded frame handed to the encoder.
type PixelFrame struct {
	Index     int     // Strictly increasing within a session
	Width     int     // Frame width in pixels
	Height    int     // Frame height in pixels
	Pixels    []byte  // RGBA8, row-major, len == Width*Height*4
	Timestamp float64 // Presentation timestamp in seconds
}

// ExpectedLen returns the pixel buffer length implied by the frame dimensions.
func (f PixelFrame) ExpectedLen() int {
	return f.Width * f.Height * 4
}

// Image returns the frame as an *image.RGBA sharing the pixel buffer.
func (f PixelFrame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameSource produces frames in presentation order.
// It plays the role of the external decoder that feeds an encoding job.
type FrameSource interface {
	// TotalFrames returns the number of frames the source expects to emit,
	// or 0 when the count is not known in advance.
	TotalFrames() int

	// Frames emits every frame in order and stops at the first error
	// returned by emit.
	Frames(ctx context.Context, emit func(PixelFrame) error) error
}

// LoopMode selects how a GIF repeats.
type LoopMode int

const (
	// LoopModeNever plays the animation once.
	LoopModeNever LoopMode = iota
	// LoopModeForever repeats the animation indefinitely.
	LoopModeForever
	// LoopModeRepeat plays the animation Count additional times.
	LoopModeRepeat
)

// LoopPolicy describes the loop behaviour written to the GIF.
type LoopPolicy struct {
	Mode  LoopMode
	Count int // Additional play-throughs for LoopModeRepeat
}

// LoopNever returns a policy that plays once.
func LoopNever() LoopPolicy { return LoopPolicy{Mode: LoopModeNever} }

// LoopForever returns a policy that repeats indefinitely.
func LoopForever() LoopPolicy { return LoopPolicy{Mode: LoopModeForever} }

// LoopRepeat returns a policy that plays n additional times.
func LoopRepeat(n int) LoopPolicy { return LoopPolicy{Mode: LoopModeRepeat, Count: n} }

// String returns the policy in the form accepted by ParseLoopPolicy.
func (p LoopPolicy) String() string {
	switch p.Mode {
	case LoopModeForever:
		return "forever"
	case LoopModeRepeat:
		return strconv.Itoa(p.Count)
	default:
		return "never"
	}
}

// ParseLoopPolicy parses "forever", "never" or a non-negative repeat count.
func ParseLoopPolicy(s string) (LoopPolicy, error) {
	switch s {
	case "", "forever", "infinite":
		return LoopForever(), nil
	case "never", "once":
		return LoopNever(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return LoopPolicy{}, fmt.Errorf("invalid loop policy %q", s)
	}
	if n == 0 {
		return LoopNever(), nil
	}
	return LoopRepeat(n), nil
}

// EncoderSettings configures one encoding session.
type EncoderSettings struct {
	Width   int        // Output canvas width
	Height  int        // Output canvas height
	Quality float64    // 0.0 (fastest, smallest) to 1.0 (best)
	Loop    LoopPolicy // Loop extension written to the header
}

// ProgressFunc receives fractional completion in [0,1].
type ProgressFunc func(fraction float64)
