package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"testing"

	"github.com/user/gifpress/pkg/adapters/logger"
	"github.com/user/gifpress/pkg/mocks"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
	"github.com/user/gifpress/pkg/stages/encode"
	"github.com/user/gifpress/pkg/stages/estimate"
	"github.com/user/gifpress/pkg/testutil"
)

// mockEncodeStage is a mock for the encode stage.
type mockEncodeStage struct {
	result pipeline.EncodeResult
	input  pipeline.EncodeInput
	called bool
}

func (m *mockEncodeStage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	m.called = true
	m.input = input
	return m.result, nil
}

// failingEncode is an encode stage that always returns err.
func failingEncode(err error) pipeline.StageFunc[pipeline.EncodeInput, pipeline.EncodeResult] {
	return func(context.Context, pipeline.EncodeInput) (pipeline.EncodeResult, error) {
		return pipeline.EncodeResult{}, err
	}
}

func gifResult() pipeline.EncodeResult {
	data := []byte{'G', 'I', 'F', '8', '9', 'a', 0x3b}
	return pipeline.EncodeResult{
		GIFData:      data,
		FrameCount:   3,
		SourceFrames: 3,
		DurationMs:   200,
		FileSize:     int64(len(data)),
	}
}

func testConfig() Config {
	config := DefaultConfig()
	config.OutputPath = "out/clip.gif"
	return config
}

func TestOrchestrator_Run(t *testing.T) {
	encodeStage := &mockEncodeStage{result: gifResult()}
	fs := mocks.NewFileSystem()

	orch := New(encodeStage, nil, fs, mocks.NewDebugSink(false), logger.NewNoop())

	config := testConfig()
	config.Bounce = true
	config.QueueCapacity = 8

	result, err := orch.Run(context.Background(), mocks.NewFrameSource(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := fs.GetFile("out/clip.gif")
	if !ok || string(data) != string(gifResult().GIFData) {
		t.Errorf("expected GIF to be written, got %q", data)
	}

	in := encodeStage.input
	if in.Settings != config.Settings() || !in.Bounce || in.QueueCapacity != 8 || in.FrameRate != config.FPS {
		t.Errorf("unexpected encode input %+v", in)
	}

	if result.FrameCount != 3 || result.FileSize != 7 || result.DurationMs != 200 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Loop != "forever" || !result.Bounce {
		t.Errorf("expected settings to be reported, got %+v", result)
	}
	if result.EstimatedBytes != 0 {
		t.Errorf("did not expect an estimate, got %d", result.EstimatedBytes)
	}
}

func TestOrchestrator_Run_WithEstimate(t *testing.T) {
	tests := []struct {
		name       string
		result     pipeline.EstimateResult
		err        error
		enabled    bool
		wantCalled bool
		wantBytes  int64
	}{
		{
			name:       "disabled",
			wantCalled: false,
		},
		{
			name:       "enabled",
			result:     pipeline.EstimateResult{EstimatedBytes: 1234, Method: pipeline.MethodSampled},
			enabled:    true,
			wantCalled: true,
			wantBytes:  1234,
		},
		{
			name:       "failure is not fatal",
			err:        errors.New("boom"),
			enabled:    true,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			estimateStage := pipeline.StageFunc[pipeline.EstimateInput, pipeline.EstimateResult](
				func(context.Context, pipeline.EstimateInput) (pipeline.EstimateResult, error) {
					called = true
					return tt.result, tt.err
				})
			encodeStage := &mockEncodeStage{result: gifResult()}
			orch := New(encodeStage, estimateStage, mocks.NewFileSystem(), mocks.NewDebugSink(false), logger.NewNoop())

			config := testConfig()
			config.Estimate = tt.enabled

			result, err := orch.Run(context.Background(), mocks.NewFrameSource(), config)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if called != tt.wantCalled {
				t.Errorf("expected estimate called=%v", tt.wantCalled)
			}
			if result.EstimatedBytes != tt.wantBytes {
				t.Errorf("expected %d estimated bytes, got %d", tt.wantBytes, result.EstimatedBytes)
			}
			if !encodeStage.called {
				t.Error("expected encode stage to run")
			}
		})
	}
}

func TestOrchestrator_Run_WithDebugSink(t *testing.T) {
	sink := mocks.NewDebugSink(true)
	orch := New(&mockEncodeStage{result: gifResult()}, nil, mocks.NewFileSystem(), sink, logger.NewNoop())

	if _, err := orch.Run(context.Background(), mocks.NewFrameSource(), testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sink.SettingsJSON == nil {
		t.Error("expected settings JSON to be saved")
	}
	var saved RunResult
	if err := json.Unmarshal(sink.ResultJSON, &saved); err != nil {
		t.Fatalf("expected result JSON, got %v", err)
	}
	if saved.FrameCount != 3 {
		t.Errorf("expected 3 frames in result JSON, got %d", saved.FrameCount)
	}
}

func TestOrchestrator_Run_EncodeError(t *testing.T) {
	errBoom := errors.New("boom")
	fs := mocks.NewFileSystem()
	orch := New(failingEncode(errBoom), nil, fs, mocks.NewDebugSink(false), logger.NewNoop())

	_, err := orch.Run(context.Background(), mocks.NewFrameSource(), testConfig())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if exists, _ := fs.Exists("out/clip.gif"); exists {
		t.Error("did not expect output after a failed encode")
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	stage := failingEncode(fmt.Errorf("finish encoding: %w", session.ErrCancelled))
	orch := New(stage, nil, mocks.NewFileSystem(), mocks.NewDebugSink(false), logger.NewNoop())

	_, err := orch.Run(context.Background(), mocks.NewFrameSource(), testConfig())
	if !session.IsCancelled(err) {
		t.Errorf("expected cancellation to be preserved, got %v", err)
	}
}

func TestOrchestrator_Run_RemovesPartialOutput(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error {
		// Simulate a disk that fills up after the first bytes land.
		fs.WriteFileFunc = nil
		fs.WriteFile(path, data[:2])
		return errors.New("disk full")
	}

	orch := New(&mockEncodeStage{result: gifResult()}, nil, fs, mocks.NewDebugSink(false), logger.NewNoop())

	_, err := orch.Run(context.Background(), mocks.NewFrameSource(), testConfig())
	if err == nil {
		t.Fatal("expected write error")
	}
	if exists, _ := fs.Exists("out/clip.gif"); exists {
		t.Error("expected the partial file to be removed")
	}
}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	factory := session.NewFactory(logger.NewNoop())
	fs := mocks.NewFileSystem()
	orch := New(
		encode.NewStage(factory, mocks.NewDebugSink(false), logger.NewNoop()),
		estimate.NewStage(factory, logger.NewNoop()),
		fs,
		mocks.NewDebugSink(false),
		logger.NewNoop(),
	)

	frames := make([]ports.PixelFrame, 6)
	for i := range frames {
		c := color.RGBA{R: uint8(40 * i), G: 100, B: 200, A: 255}
		frames[i] = ports.PixelFrame{Index: i, Width: 12, Height: 8, Pixels: testutil.SolidPixels(12, 8, c), Timestamp: float64(i) / 10}
	}

	config := testConfig()
	config.Width, config.Height = 12, 8
	config.Estimate = true

	var progress []float64
	config.Progress = func(f float64) { progress = append(progress, f) }

	result, err := orch.Run(context.Background(), mocks.NewFrameSource(frames...), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := fs.GetFile("out/clip.gif")
	if !ok {
		t.Fatal("expected output file")
	}
	doc, err := testutil.ParseStructure(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Frames) != 6 {
		t.Errorf("expected 6 frames, got %d", len(doc.Frames))
	}
	if result.EstimatedBytes <= 0 || result.EstimateMethod != pipeline.MethodSampled {
		t.Errorf("expected a sampled estimate, got %d (%s)", result.EstimatedBytes, result.EstimateMethod)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 1 {
		t.Errorf("expected progress to end at 1, got %v", progress)
	}
}
