// Package orchestrator runs a complete gifpress job: estimation, encoding
// and output.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	OutputPath string

	// Encoding
	Width         int
	Height        int
	Quality       float64
	Loop          ports.LoopPolicy
	Bounce        bool
	FPS           float64
	QueueCapacity int

	// Estimation
	Estimate    bool
	SampleCount int
	ChunkSize   int

	// Progress receives fractional completion from the encoder goroutine.
	Progress ports.ProgressFunc
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	encode := pipeline.DefaultEncodeInput()
	estimate := pipeline.DefaultEstimateInput()
	return Config{
		Width:       encode.Settings.Width,
		Height:      encode.Settings.Height,
		Quality:     encode.Settings.Quality,
		Loop:        encode.Settings.Loop,
		FPS:         encode.FrameRate,
		SampleCount: estimate.SampleCount,
		ChunkSize:   estimate.ChunkSize,
	}
}

// Settings returns the encoder settings described by the config.
func (c Config) Settings() ports.EncoderSettings {
	return ports.EncoderSettings{
		Width:   c.Width,
		Height:  c.Height,
		Quality: c.Quality,
		Loop:    c.Loop,
	}
}

// Orchestrator coordinates the estimate and encode stages.
type Orchestrator struct {
	encodeStage   pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	estimateStage pipeline.Stage[pipeline.EstimateInput, pipeline.EstimateResult]
	fs            ports.FileSystem
	sink          ports.DebugSink
	logger        ports.Logger
}

// New creates a new Orchestrator. estimateStage may be nil when estimation
// is never requested.
func New(
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	estimateStage pipeline.Stage[pipeline.EstimateInput, pipeline.EstimateResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		encodeStage:   encodeStage,
		estimateStage: estimateStage,
		fs:            fs,
		sink:          sink,
		logger:        logger,
	}
}

// Run encodes source and writes the GIF to config.OutputPath.
// With estimation enabled the source is read twice, so it must be
// re-readable.
func (o *Orchestrator) Run(ctx context.Context, source ports.FrameSource, config Config) (RunResult, error) {
	started := time.Now()
	result := RunResult{
		Width:   config.Width,
		Height:  config.Height,
		Quality: config.Quality,
		Loop:    config.Loop.String(),
		Bounce:  config.Bounce,
		FPS:     config.FPS,
	}

	o.logger.Info(l10n.F("Encoding %dx%d GIF at quality %.2f", config.Width, config.Height, config.Quality))

	// 1. Estimate (optional, never fatal)
	if config.Estimate && o.estimateStage != nil {
		estimate, err := o.estimateStage.Execute(ctx, pipeline.EstimateInput{
			Source:      source,
			Settings:    config.Settings(),
			Bounce:      config.Bounce,
			SampleCount: config.SampleCount,
			ChunkSize:   config.ChunkSize,
		})
		switch {
		case err == nil:
			result.EstimatedBytes = estimate.EstimatedBytes
			result.EstimateMethod = estimate.Method
			o.logger.Info(l10n.F("Estimated size: %d bytes (%s)", estimate.EstimatedBytes, estimate.Method))
		case ctx.Err() != nil:
			o.logger.Warn(l10n.T("Encoding cancelled"))
			return result, fmt.Errorf("estimate stage: %w", err)
		default:
			o.logger.Warn(l10n.F("Size estimation failed: %s", err))
		}
	}

	// 2. Save settings
	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(result, "", "  "); err == nil {
			if err := o.sink.SaveSettingsJSON(data); err != nil {
				o.logger.Warn(l10n.F("Failed to save debug output: %s", err))
			}
		}
	}

	// 3. Encode
	encoded, err := o.encodeStage.Execute(ctx, pipeline.EncodeInput{
		Source:        source,
		Settings:      config.Settings(),
		Bounce:        config.Bounce,
		FrameRate:     config.FPS,
		QueueCapacity: config.QueueCapacity,
		Progress:      config.Progress,
	})
	if err != nil {
		if session.IsCancelled(err) {
			o.logger.Warn(l10n.T("Encoding cancelled"))
		} else {
			o.logger.Error(l10n.F("Failed to encode GIF: %s", err))
		}
		return result, fmt.Errorf("encode stage: %w", err)
	}
	if encoded.DroppedFrames > 0 {
		o.logger.Warn(l10n.F("Dropped %d frames with non-increasing timestamps", encoded.DroppedFrames))
	}
	o.logger.Info(l10n.F("GIF encoded: %d frames, %d bytes", encoded.FrameCount, encoded.FileSize))

	// 4. Write output
	if err := o.fs.WriteFile(config.OutputPath, encoded.GIFData); err != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", err))
		o.removePartial(config.OutputPath)
		return result, fmt.Errorf("write output: %w", err)
	}
	o.logger.Info(l10n.F("Output saved to %s", config.OutputPath))

	result.SourceFrames = encoded.SourceFrames
	result.FrameCount = encoded.FrameCount
	result.DroppedFrames = encoded.DroppedFrames
	result.DurationMs = encoded.DurationMs
	result.FileSize = encoded.FileSize
	result.Elapsed = time.Since(started)

	// 5. Save result
	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(result, "", "  "); err == nil {
			if err := o.sink.SaveResultJSON(data); err != nil {
				o.logger.Warn(l10n.F("Failed to save debug output: %s", err))
			}
		}
	}

	return result, nil
}

func (o *Orchestrator) removePartial(path string) {
	exists, err := o.fs.Exists(path)
	if err != nil || !exists {
		return
	}
	if err := o.fs.Remove(path); err != nil {
		o.logger.Warn(l10n.F("Failed to remove partial output %s: %s", path, err))
	}
}

// RunResult contains the results of a job for summary generation.
type RunResult struct {
	// Settings
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality float64 `json:"quality"`
	Loop    string  `json:"loop"`
	Bounce  bool    `json:"bounce"`
	FPS     float64 `json:"fps"`

	// Estimate (zero when not requested)
	EstimatedBytes int64  `json:"estimated_bytes,omitempty"`
	EstimateMethod string `json:"estimate_method,omitempty"`

	// Output
	SourceFrames  int           `json:"source_frames"`
	FrameCount    int           `json:"frame_count"`
	DroppedFrames int           `json:"dropped_frames"`
	DurationMs    int           `json:"duration_ms"`
	FileSize      int64         `json:"file_size"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}
