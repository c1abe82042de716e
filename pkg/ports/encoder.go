package ports

import (
	"context"
	"io"
)

// FrameEncoder abstracts an animated GIF encoding session.
type FrameEncoder interface {
	// AddFrame queues a frame for encoding. It blocks while the encoder's
	// queue is full.
	AddFrame(ctx context.Context, frame PixelFrame) error

	// Finish signals that no more frames follow, waits for the encoder to
	// drain and returns the complete document. It may be called once.
	Finish(ctx context.Context) ([]byte, error)

	// Cancel stops encoding at the next frame boundary.
	Cancel()
}

// EncoderOptions configures an encoder created by an EncoderFactory.
type EncoderOptions struct {
	TotalFrames   int          // Expected frame count for progress (0 = unknown)
	Progress      ProgressFunc // Called on the encoder's worker goroutine
	QueueCapacity int          // Frames buffered before AddFrame blocks (0 = default)
	Sink          io.Writer    // Stream output here instead of buffering (nil = buffer)
}

// EncoderFactory creates encoders for individual jobs.
type EncoderFactory interface {
	NewEncoder(settings EncoderSettings, opts EncoderOptions) (FrameEncoder, error)
}
