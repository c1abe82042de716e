// Package summarizer provides summary generation for encoding results.
package summarizer

import (
	"time"

	"github.com/user/gifpress/pkg/orchestrator"
)

// Summary contains all data collected during an encoding job.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Frame source
	Input InputInfo

	// Encoding settings
	Settings Settings

	// GIF output details
	Output OutputInfo

	// Wall clock
	Timing TimingInfo
}

// InputInfo describes the frame source.
type InputInfo struct {
	Kind          string // images, demo, ...
	Description   string // Directory, file list or generator name
	SourceFrames  int
	DroppedFrames int
}

// Settings contains the encoding configuration.
type Settings struct {
	Preset  string
	Width   int
	Height  int
	Quality float64
	Loop    string
	Bounce  bool
	FPS     float64
}

// OutputInfo contains information about the written GIF.
type OutputInfo struct {
	Path           string
	FrameCount     int
	DurationMs     int
	FileSize       int64
	EstimatedBytes int64  // 0 when no estimate was made
	EstimateMethod string // sampled or heuristic
}

// TimingInfo contains timing measurements.
type TimingInfo struct {
	Elapsed time.Duration
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets source information.
func (b *Builder) WithInput(kind, description string) *Builder {
	b.summary.Input.Kind = kind
	b.summary.Input.Description = description
	return b
}

// WithPreset records the quality preset name, if one was used.
func (b *Builder) WithPreset(preset string) *Builder {
	b.summary.Settings.Preset = preset
	return b
}

// WithOutputPath sets where the GIF was written.
func (b *Builder) WithOutputPath(path string) *Builder {
	b.summary.Output.Path = path
	return b
}

// WithRunResult copies settings, output and timing from a finished job.
func (b *Builder) WithRunResult(r orchestrator.RunResult) *Builder {
	s := b.summary
	s.Input.SourceFrames = r.SourceFrames
	s.Input.DroppedFrames = r.DroppedFrames

	s.Settings.Width = r.Width
	s.Settings.Height = r.Height
	s.Settings.Quality = r.Quality
	s.Settings.Loop = r.Loop
	s.Settings.Bounce = r.Bounce
	s.Settings.FPS = r.FPS

	s.Output.FrameCount = r.FrameCount
	s.Output.DurationMs = r.DurationMs
	s.Output.FileSize = r.FileSize
	s.Output.EstimatedBytes = r.EstimatedBytes
	s.Output.EstimateMethod = r.EstimateMethod

	s.Timing.Elapsed = r.Elapsed
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
