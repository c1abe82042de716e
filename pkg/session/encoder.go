package session

import (
	"errors"

	"github.com/user/gifpress/pkg/delta"
	"github.com/user/gifpress/pkg/gifwriter"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/quantize"
)

// frameEncoder turns frames into image blocks. It is owned by the worker
// goroutine.
//
// A frame's delay depends on the next frame's timestamp, so one frame is held
// back until its successor arrives. The header is written together with the
// first block, which means nothing reaches the sink before two frames exist.
type frameEncoder struct {
	settings ports.EncoderSettings
	opts     quantize.Options
	w        *gifwriter.Writer
	delays   gifwriter.DelayTracker
	logger   ports.Logger

	pending   *ports.PixelFrame
	previous  *quantize.IndexedImage
	firstMask []bool // Transparent pixels of the first frame, shown again when the animation loops
	interval  float64
	received  int
}

func newFrameEncoder(settings ports.EncoderSettings, w *gifwriter.Writer, logger ports.Logger) *frameEncoder {
	return &frameEncoder{
		settings: settings,
		opts:     quantize.OptionsForQuality(settings.Quality),
		w:        w,
		logger:   logger,
	}
}

// push accepts the next frame and writes the one held back before it.
// It reports whether a block was written.
func (e *frameEncoder) push(frame ports.PixelFrame) (bool, error) {
	e.received++
	if e.pending == nil {
		e.pending = &frame
		return false, nil
	}

	prev := *e.pending
	if e.w.Frames() == 0 {
		e.firstMask = quantize.TransparentMask(prev)
	}
	if err := e.writeFrame(prev, frame.Timestamp, quantize.TransparentMask(frame)); err != nil {
		return false, err
	}
	e.interval = frame.Timestamp - prev.Timestamp
	e.pending = &frame
	return true, nil
}

// finish writes the held-back frame and the trailer. The last frame is shown
// for as long as the interval before it.
func (e *frameEncoder) finish() error {
	if e.received < MinFrames {
		return &NotEnoughFramesError{Count: e.received}
	}
	last := *e.pending
	if err := e.writeFrame(last, last.Timestamp+e.interval, e.firstMask); err != nil {
		return err
	}
	if err := e.w.WriteTrailer(); err != nil {
		return writeFailure(err)
	}
	e.release()
	return nil
}

func (e *frameEncoder) release() {
	e.pending = nil
	e.previous = nil
	e.firstMask = nil
}

// writeFrame writes one image block. next marks the pixels that are
// transparent in the frame shown after this one; the canvas under them is
// disposed to the background once this frame has been displayed.
func (e *frameEncoder) writeFrame(frame ports.PixelFrame, end float64, next []bool) error {
	if e.w.Frames() == 0 {
		if err := e.writeHeader(); err != nil {
			return err
		}
	}

	indexed, err := quantize.QuantizeWithOptions(frame, e.opts)
	if err != nil {
		if errors.Is(err, quantize.ErrInvalidFrameDimensions) {
			return err
		}
		return &EncodeError{Stage: "quantize", Err: err}
	}

	patch, err := delta.EncodeCleared(indexed, e.previous, delta.Uncovered(indexed, next))
	if err != nil {
		return &EncodeError{Stage: "delta", Err: err}
	}

	gc := gifwriter.GraphicControl{
		Delay:       e.delays.Next(frame.Timestamp, end),
		Disposal:    patch.Disposal,
		Transparent: patch.Transparent,
	}
	id := gifwriter.ImageDescriptor{
		Left:   patch.Bounds.Min.X,
		Top:    patch.Bounds.Min.Y,
		Width:  patch.Bounds.Dx(),
		Height: patch.Bounds.Dy(),
	}
	if err := e.w.WriteFrame(gc, id, patch.Indices, patch.Palette); err != nil {
		return writeFailure(err)
	}

	e.logger.Debug("Frame %d written: %dx%d at (%d,%d), %d colors, delay %dcs",
		frame.Index, id.Width, id.Height, id.Left, id.Top, len(patch.Palette), gc.Delay)

	if patch.Disposal == gifwriter.DisposalBackground {
		canvas, err := delta.Dispose(indexed, patch.Bounds)
		if err != nil {
			return &EncodeError{Stage: "delta", Err: err}
		}
		e.previous = canvas
		return nil
	}
	e.previous = indexed
	return nil
}

func (e *frameEncoder) writeHeader() error {
	if err := e.w.WriteHeader(gifwriter.ScreenDescriptor{Width: e.settings.Width, Height: e.settings.Height}); err != nil {
		return writeFailure(err)
	}
	if err := e.w.WriteLoopExtension(e.settings.Loop); err != nil {
		return writeFailure(err)
	}
	return nil
}

// writeFailure separates sink failures from malformed blocks.
func writeFailure(err error) error {
	if errors.Is(err, gifwriter.ErrWriteFailed) {
		return &WriteError{Err: err}
	}
	return &EncodeError{Stage: "write", Err: err}
}
