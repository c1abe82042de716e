package estimate

import (
	"context"
	"errors"
	"testing"

	"github.com/user/gifpress/pkg/adapters/logger"
	"github.com/user/gifpress/pkg/mocks"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
	"github.com/user/gifpress/pkg/testutil"
)

func noiseSource(n int, fps float64) *mocks.FrameSource {
	frames := make([]ports.PixelFrame, n)
	for i := range frames {
		frames[i] = ports.PixelFrame{
			Index:     i,
			Width:     16,
			Height:    10,
			Pixels:    testutil.NoisePixels(16, 10, uint32(i+1)),
			Timestamp: float64(i) / fps,
		}
	}
	return mocks.NewFrameSource(frames...)
}

func testInput(source ports.FrameSource) pipeline.EstimateInput {
	input := pipeline.DefaultEstimateInput()
	input.Source = source
	input.Settings = ports.EncoderSettings{Width: 16, Height: 10, Quality: 0.7, Loop: ports.LoopForever()}
	return input
}

func TestStage_SampledEstimate(t *testing.T) {
	factory := &mocks.EncoderFactory{}
	stage := NewStage(factory, logger.NewNoop())

	result, err := stage.Execute(context.Background(), testInput(noiseSource(40, 10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Method != pipeline.MethodSampled {
		t.Errorf("expected sampled method, got %q", result.Method)
	}
	if result.SampledFrames != 10 {
		t.Errorf("expected 10 sampled frames, got %d", result.SampledFrames)
	}
	if result.ExpectedFrames != 40 {
		t.Errorf("expected 40 frames, got %d", result.ExpectedFrames)
	}
	// The mock encoder returns 7 bytes for the sample.
	if result.SampledBytes != 7 || result.EstimatedBytes != 28 {
		t.Errorf("expected 7 sampled and 28 estimated bytes, got %d and %d", result.SampledBytes, result.EstimatedBytes)
	}

	frames := factory.Encoder.ReceivedFrames()
	for i := 1; i < len(frames); i++ {
		if frames[i].Index != i {
			t.Errorf("sample %d: expected index %d, got %d", i, i, frames[i].Index)
		}
		if frames[i].Timestamp <= frames[i-1].Timestamp {
			t.Errorf("sample %d: timestamp %v does not increase", i, frames[i].Timestamp)
		}
	}
}

func TestStage_StopsAfterLastChunk(t *testing.T) {
	source := noiseSource(20, 10)
	stage := NewStage(&mocks.EncoderFactory{}, logger.NewNoop())

	input := testInput(source)
	input.SampleCount = 2
	input.ChunkSize = 2

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExpectedFrames != 20 {
		t.Errorf("expected 20 frames, got %d", result.ExpectedFrames)
	}
	// One chunk in the middle: frames 9 and 10, then the source is stopped.
	if source.Emitted != 11 {
		t.Errorf("expected the source to stop after 11 frames, got %d", source.Emitted)
	}
}

func TestStage_BounceDoublesExpectedFrames(t *testing.T) {
	stage := NewStage(&mocks.EncoderFactory{}, logger.NewNoop())
	input := testInput(noiseSource(30, 10))
	input.Bounce = true

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExpectedFrames != 59 {
		t.Errorf("expected 59 frames, got %d", result.ExpectedFrames)
	}
}

func TestStage_UnknownTotal(t *testing.T) {
	source := noiseSource(15, 10)
	source.Total = 0
	stage := NewStage(&mocks.EncoderFactory{}, logger.NewNoop())

	result, err := stage.Execute(context.Background(), testInput(source))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SampledFrames != 10 || result.ExpectedFrames != 15 {
		t.Errorf("expected 10 sampled of 15, got %d of %d", result.SampledFrames, result.ExpectedFrames)
	}
}

func TestStage_WithSession(t *testing.T) {
	stage := NewStage(session.NewFactory(nil), logger.NewNoop())

	result, err := stage.Execute(context.Background(), testInput(noiseSource(24, 12)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Method != pipeline.MethodSampled {
		t.Fatalf("expected sampled method, got %q", result.Method)
	}
	if result.SampledBytes <= 0 || result.EstimatedBytes < result.SampledBytes {
		t.Errorf("expected estimate >= sample size, got %d < %d", result.EstimatedBytes, result.SampledBytes)
	}
}

func TestStage_HeuristicFallback(t *testing.T) {
	stage := NewStage(session.NewFactory(nil), logger.NewNoop())

	input := testInput(noiseSource(1, 10))
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Method != pipeline.MethodHeuristic {
		t.Errorf("expected heuristic method, got %q", result.Method)
	}
	want := Heuristic(16, 10, 1, 0.7)
	if result.EstimatedBytes != want {
		t.Errorf("expected %d bytes, got %d", want, result.EstimatedBytes)
	}
}

func TestStage_PropagatesErrors(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("factory", func(t *testing.T) {
		stage := NewStage(&mocks.EncoderFactory{NewEncoderErr: errBoom}, logger.NewNoop())
		if _, err := stage.Execute(context.Background(), testInput(noiseSource(4, 10))); !errors.Is(err, errBoom) {
			t.Errorf("expected factory error, got %v", err)
		}
	})

	t.Run("source", func(t *testing.T) {
		source := noiseSource(4, 10)
		source.Err = errBoom
		factory := &mocks.EncoderFactory{}
		stage := NewStage(factory, logger.NewNoop())
		if _, err := stage.Execute(context.Background(), testInput(source)); !errors.Is(err, errBoom) {
			t.Errorf("expected source error, got %v", err)
		}
		if !factory.Encoder.Cancelled() {
			t.Error("expected the sample encoder to be cancelled")
		}
	})

	t.Run("cancellation", func(t *testing.T) {
		stage := NewStage(&mocks.EncoderFactory{Encoder: &mocks.FrameEncoder{
			FinishFunc: func(context.Context) ([]byte, error) { return nil, session.ErrCancelled },
		}}, logger.NewNoop())
		_, err := stage.Execute(context.Background(), testInput(noiseSource(4, 10)))
		if !session.IsCancelled(err) {
			t.Errorf("expected cancellation, got %v", err)
		}
	})
}

func TestHeuristic(t *testing.T) {
	if Heuristic(0, 10, 5, 0.5) != 0 {
		t.Error("expected 0 for an empty canvas")
	}
	if Heuristic(100, 60, 10, 0.2) >= Heuristic(100, 60, 10, 0.9) {
		t.Error("expected higher quality to estimate larger output")
	}
	if Heuristic(100, 60, 5, 0.5) >= Heuristic(100, 60, 50, 0.5) {
		t.Error("expected more frames to estimate larger output")
	}
	if Heuristic(100, 60, 0, 0.5) != Heuristic(100, 60, 1, 0.5) {
		t.Error("expected frame count to be at least 1")
	}
}

func TestSamplePlan(t *testing.T) {
	plan := newSamplePlan(100, 10, 2)
	want := []int{0, 24, 49, 73, 98}
	if len(plan.starts) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(plan.starts))
	}
	for i, s := range want {
		if plan.starts[i] != s {
			t.Errorf("chunk %d: expected start %d, got %d", i, s, plan.starts[i])
		}
	}

	count := 0
	for pos := 0; pos < 100; pos++ {
		if plan.includes(pos) {
			count++
		}
	}
	if count != 10 {
		t.Errorf("expected 10 included positions, got %d", count)
	}

	if short := newSamplePlan(8, 10, 2); !short.all {
		t.Error("expected a short source to be sampled entirely")
	}
}
