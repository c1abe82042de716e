// Package encode implements the GIF encoding stage.
package encode

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/user/gifpress/pkg/bounce"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
)

// Stage reads a frame source and encodes it into an animated GIF.
type Stage struct {
	factory ports.EncoderFactory
	sink    ports.DebugSink
	logger  ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(factory ports.EncoderFactory, sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		factory: factory,
		sink:    sink,
		logger:  logger.WithComponent("encode"),
	}
}

// Execute encodes all frames of input.Source.
//
// Frames whose timestamp does not increase are dropped here, and indices are
// reassigned sequentially, so the encoder only ever sees a clean sequence.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{}

	if input.Source == nil {
		return result, errors.New("no frame source")
	}

	total := input.Source.TotalFrames()
	if input.Bounce {
		total = bounce.TotalFrames(total)
	}

	encoder, err := s.factory.NewEncoder(input.Settings, ports.EncoderOptions{
		TotalFrames:   total,
		Progress:      input.Progress,
		QueueCapacity: input.QueueCapacity,
	})
	if err != nil {
		return result, fmt.Errorf("create encoder: %w", err)
	}

	// Cancelling ctx stops the encoder at its next frame boundary.
	stop := context.AfterFunc(ctx, encoder.Cancel)
	defer stop()

	var (
		submitted      int
		firstTimestamp float64
		lastTimestamp  float64
	)
	submit := func(frame ports.PixelFrame) error {
		frame.Index = submitted
		if err := encoder.AddFrame(ctx, frame); err != nil {
			return fmt.Errorf("add frame %d: %w", frame.Index, err)
		}
		if submitted == 0 {
			firstTimestamp = frame.Timestamp
		}
		lastTimestamp = frame.Timestamp
		submitted++
		return nil
	}

	emit := submit
	var bouncer *bounce.Bouncer
	if input.Bounce {
		bouncer = bounce.New(submit, bounce.Options{FrameRate: input.FrameRate})
		emit = bouncer.Push
	}

	var (
		read    int
		dropped int
		prevTS  float64
	)
	err = input.Source.Frames(ctx, func(frame ports.PixelFrame) error {
		read++
		if read > 1 && frame.Timestamp <= prevTS {
			dropped++
			s.logger.Warn("Dropped frame %d: timestamp %.3fs does not increase", read-1, frame.Timestamp)
			return nil
		}
		prevTS = frame.Timestamp

		if s.sink.Enabled() {
			if err := s.sink.SaveSourceFrame(read-1, frame.Image()); err != nil {
				s.logger.Warn("Failed to save source frame %d: %v", read-1, err)
			}
		}
		return emit(frame)
	})
	if err == nil && bouncer != nil {
		err = bouncer.Finish()
	}
	if err != nil {
		encoder.Cancel()
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return result, fmt.Errorf("read frames: %w: %w", err, ctxErr)
		}
		return result, fmt.Errorf("read frames: %w", err)
	}

	s.logger.Debug("Submitted %d frames (%d read, %d dropped)", submitted, read, dropped)

	data, err := encoder.Finish(ctx)
	if err != nil {
		return result, fmt.Errorf("finish encoding: %w", err)
	}

	result.GIFData = data
	result.FrameCount = submitted
	result.SourceFrames = read
	result.DroppedFrames = dropped
	result.DurationMs = int(math.Round((lastTimestamp - firstTimestamp) * 1000))
	result.FileSize = int64(len(data))

	return result, nil
}
