package summarizer

import (
	"testing"
	"time"

	"github.com/user/gifpress/pkg/orchestrator"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithInput(t *testing.T) {
	summary := NewBuilder().
		WithInput("images", "./frames").
		WithPreset("high").
		WithOutputPath("out.gif").
		Build()

	if summary.Input.Kind != "images" || summary.Input.Description != "./frames" {
		t.Errorf("unexpected input %+v", summary.Input)
	}
	if summary.Settings.Preset != "high" {
		t.Errorf("expected preset 'high', got '%s'", summary.Settings.Preset)
	}
	if summary.Output.Path != "out.gif" {
		t.Errorf("expected path 'out.gif', got '%s'", summary.Output.Path)
	}
}

func TestBuilder_WithRunResult(t *testing.T) {
	summary := NewBuilder().
		WithRunResult(orchestrator.RunResult{
			Width:          320,
			Height:         180,
			Quality:        0.7,
			Loop:           "forever",
			Bounce:         true,
			FPS:            12,
			EstimatedBytes: 9000,
			EstimateMethod: "sampled",
			SourceFrames:   20,
			FrameCount:     39,
			DroppedFrames:  1,
			DurationMs:     3166,
			FileSize:       8800,
			Elapsed:        1500 * time.Millisecond,
		}).
		Build()

	if summary.Input.SourceFrames != 20 || summary.Input.DroppedFrames != 1 {
		t.Errorf("unexpected input %+v", summary.Input)
	}
	if summary.Settings.Width != 320 || summary.Settings.Loop != "forever" || !summary.Settings.Bounce {
		t.Errorf("unexpected settings %+v", summary.Settings)
	}
	if summary.Output.FrameCount != 39 || summary.Output.FileSize != 8800 || summary.Output.EstimatedBytes != 9000 {
		t.Errorf("unexpected output %+v", summary.Output)
	}
	if summary.Timing.Elapsed != 1500*time.Millisecond {
		t.Errorf("expected 1.5s elapsed, got %v", summary.Timing.Elapsed)
	}
}

func TestFormatFunc(t *testing.T) {
	f := FormatFunc(func(s *Summary) string { return s.Input.Kind })
	if got := f.Format(&Summary{Input: InputInfo{Kind: "demo"}}); got != "demo" {
		t.Errorf("expected 'demo', got '%s'", got)
	}
}
