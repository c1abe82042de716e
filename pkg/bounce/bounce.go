// Package bounce appends a reversed copy of a frame sequence so the animation
// plays forward and then back.
package bounce

import (
	"errors"

	"github.com/user/gifpress/pkg/ports"
)

// ErrFinished is returned by Push after Finish has been called.
var ErrFinished = errors.New("bounce: sequence already finished")

// Options configures the reverse pass.
type Options struct {
	// FrameRate is the expected source rate in frames per second. The
	// reverse pass keeps this rhythm and absorbs at most half an interval
	// of forward slippage per frame. Zero means unknown; the forward
	// average interval is used instead.
	FrameRate float64
}

// Bouncer forwards frames to emit as they arrive and re-emits them in
// reverse order on Finish.
type Bouncer struct {
	emit     func(ports.PixelFrame) error
	opts     Options
	frames   []ports.PixelFrame
	emitted  int
	finished bool
}

// New returns a Bouncer that delivers frames to emit.
func New(emit func(ports.PixelFrame) error, opts Options) *Bouncer {
	return &Bouncer{emit: emit, opts: opts}
}

// TotalFrames returns the number of frames a bounced sequence of n frames has.
func TotalFrames(n int) int {
	if n <= 0 {
		return 0
	}
	return 2*n - 1
}

// Push emits frame and keeps it for the reverse pass.
func (b *Bouncer) Push(frame ports.PixelFrame) error {
	if b.finished {
		return ErrFinished
	}
	if err := b.emit(frame); err != nil {
		return err
	}
	b.frames = append(b.frames, frame)
	b.emitted++
	return nil
}

// Finish emits the reverse pass: frames N-2 down to 0. The apex frame is not
// repeated. Reverse frames are evenly spaced so that irregular forward timing
// does not make the way back uneven. See Step for the spacing.
func (b *Bouncer) Finish() error {
	if b.finished {
		return ErrFinished
	}
	b.finished = true

	n := len(b.frames)
	if n < 2 {
		b.frames = nil
		return nil
	}

	last := b.frames[n-1]
	step := Step(b.frames[0].Timestamp, last.Timestamp, n, b.opts.FrameRate)

	for k := 1; k < n; k++ {
		f := b.frames[n-1-k]
		f.Index = last.Index + k
		f.Timestamp = last.Timestamp + float64(k)*step
		if err := b.emit(f); err != nil {
			b.frames = nil
			return err
		}
		b.emitted++
	}

	b.frames = nil
	return nil
}

// Step returns the interval between reverse frames for a forward pass of n
// frames from first to last.
//
// Without a frame rate the forward mean interval is used. With one, the
// expected interval 1/frameRate is corrected by the forward slippage spread
// over the pass, and the correction is clamped to half an interval so a
// stalled source cannot stretch or squash the way back.
func Step(first, last float64, n int, frameRate float64) float64 {
	if n < 2 {
		return 0
	}
	span := last - first
	mean := span / float64(n-1)
	if frameRate <= 0 {
		return mean
	}
	expected := 1 / frameRate
	slippage := span - float64(n-1)*expected
	correction := slippage / float64(n-1)
	correction = max(-expected/2, min(expected/2, correction))
	return expected + correction
}

// Emitted returns the number of frames delivered so far.
func (b *Bouncer) Emitted() int {
	return b.emitted
}
