// Package estimate predicts the size of a GIF before the full job runs.
//
// A handful of short chunks spread across the source are encoded with a
// throwaway encoder, and the bytes per frame are extrapolated to the whole
// sequence. When too few frames are available the size falls back to a
// heuristic based on canvas area and quality.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/user/gifpress/pkg/bounce"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
)

// defaultInterval spaces chunks on the sample timeline when no interval is known.
const defaultInterval = 0.1

// errSampleComplete stops the source once every chunk has been read.
var errSampleComplete = errors.New("estimate: sample complete")

// Stage estimates the encoded size of a frame source.
type Stage struct {
	factory ports.EncoderFactory
	logger  ports.Logger
}

// NewStage creates a new estimate stage.
func NewStage(factory ports.EncoderFactory, logger ports.Logger) *Stage {
	return &Stage{
		factory: factory,
		logger:  logger.WithComponent("estimate"),
	}
}

// Execute samples input.Source and returns the predicted output size.
func (s *Stage) Execute(ctx context.Context, input pipeline.EstimateInput) (pipeline.EstimateResult, error) {
	result := pipeline.EstimateResult{}
	if input.Source == nil {
		return result, errors.New("no frame source")
	}

	defaults := pipeline.DefaultEstimateInput()
	if input.SampleCount <= 0 {
		input.SampleCount = defaults.SampleCount
	}
	if input.ChunkSize <= 0 {
		input.ChunkSize = defaults.ChunkSize
	}
	if input.ChunkSize > input.SampleCount {
		input.ChunkSize = input.SampleCount
	}

	total := input.Source.TotalFrames()
	plan := newSamplePlan(total, input.SampleCount, input.ChunkSize)

	encoder, err := s.factory.NewEncoder(input.Settings, ports.EncoderOptions{})
	if err != nil {
		return result, fmt.Errorf("create encoder: %w", err)
	}
	stop := context.AfterFunc(ctx, encoder.Cancel)
	defer stop()

	tl := &timeline{}
	seen, sampled := 0, 0
	err = input.Source.Frames(ctx, func(frame ports.PixelFrame) error {
		pos := seen
		seen++
		if plan.complete(pos) {
			return errSampleComplete
		}
		if sampled >= input.SampleCount || !plan.includes(pos) {
			return nil
		}

		ts, ok := tl.place(pos, frame.Timestamp)
		if !ok {
			return nil
		}
		frame.Index = sampled
		frame.Timestamp = ts
		if err := encoder.AddFrame(ctx, frame); err != nil {
			return err
		}
		sampled++
		return nil
	})
	if err != nil && !errors.Is(err, errSampleComplete) {
		encoder.Cancel()
		return result, fmt.Errorf("sample frames: %w", err)
	}

	frames := seen
	if errors.Is(err, errSampleComplete) || (total > 0 && total > seen) {
		frames = total
	}
	expected := frames
	if input.Bounce {
		expected = bounce.TotalFrames(frames)
	}
	result.ExpectedFrames = expected

	data, err := encoder.Finish(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotEnoughFrames) {
			result.Method = pipeline.MethodHeuristic
			result.SampledFrames = sampled
			result.EstimatedBytes = Heuristic(input.Settings.Width, input.Settings.Height, expected, input.Settings.Quality)
			s.logger.Debug("Too few frames to sample (%d), using heuristic estimate", sampled)
			return result, nil
		}
		return result, fmt.Errorf("encode sample: %w", err)
	}

	result.Method = pipeline.MethodSampled
	result.SampledFrames = sampled
	result.SampledBytes = int64(len(data))
	result.EstimatedBytes = extrapolate(result.SampledBytes, sampled, expected)

	s.logger.Debug("Sampled %d of %d frames: %d bytes, estimate %d bytes",
		sampled, expected, result.SampledBytes, result.EstimatedBytes)

	return result, nil
}

func extrapolate(sampledBytes int64, sampled, expected int) int64 {
	if sampled <= 0 {
		return 0
	}
	if expected < sampled {
		expected = sampled
	}
	return int64(math.Round(float64(sampledBytes) / float64(sampled) * float64(expected)))
}

// Heuristic guesses the size of a GIF from its canvas, frame count and
// quality. The first frame is written in full; later frames are assumed to
// change about a third of the canvas.
func Heuristic(width, height, frames int, quality float64) int64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	if frames < 1 {
		frames = 1
	}
	q := math.Max(0, math.Min(1, quality))
	if math.IsNaN(quality) {
		q = 0
	}

	const (
		overhead      = 800 // header, loop extension and per-frame color tables
		changeRatio   = 0.35
		minBitsPerPix = 1.5
		maxBitsPerPix = 6.0
	)
	full := float64(width*height) * (minBitsPerPix + (maxBitsPerPix-minBitsPerPix)*q) / 8
	size := overhead + full + full*changeRatio*float64(frames-1)
	return int64(math.Round(size))
}

// samplePlan selects which source positions are encoded.
type samplePlan struct {
	starts []int
	chunk  int
	all    bool
}

func newSamplePlan(total, count, chunk int) samplePlan {
	if total <= 0 || total <= count {
		// Unknown or short source: take the first count frames.
		return samplePlan{all: true}
	}

	n := (count + chunk - 1) / chunk
	plan := samplePlan{chunk: chunk, starts: make([]int, n)}
	if n == 1 {
		plan.starts[0] = (total - chunk) / 2
		return plan
	}
	for i := range plan.starts {
		plan.starts[i] = i * (total - chunk) / (n - 1)
	}
	return plan
}

func (p samplePlan) includes(pos int) bool {
	if p.all {
		return true
	}
	for _, start := range p.starts {
		if pos >= start && pos < start+p.chunk {
			return true
		}
	}
	return false
}

// complete reports whether every chunk lies before pos.
func (p samplePlan) complete(pos int) bool {
	if p.all {
		return false
	}
	return pos >= p.starts[len(p.starts)-1]+p.chunk
}

// timeline rebuilds a continuous clock for the sampled frames. Consecutive
// source frames keep their spacing; a jump between chunks is replaced by the
// last known interval.
type timeline struct {
	started  bool
	prevPos  int
	prevSrc  float64
	prevOut  float64
	interval float64
}

func (t *timeline) place(pos int, ts float64) (float64, bool) {
	if !t.started {
		t.started = true
		t.prevPos, t.prevSrc, t.prevOut = pos, ts, 0
		t.interval = defaultInterval
		return 0, true
	}

	var out float64
	if pos == t.prevPos+1 {
		d := ts - t.prevSrc
		if d <= 0 {
			return 0, false
		}
		out = t.prevOut + d
		t.interval = d
	} else {
		out = t.prevOut + t.interval
	}

	t.prevPos, t.prevSrc, t.prevOut = pos, ts, out
	return out, true
}
