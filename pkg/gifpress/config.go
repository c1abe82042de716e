// Package gifpress provides a high-level API for configuring GIF encoding jobs.
package gifpress

import (
	"math"

	"github.com/user/gifpress/pkg/orchestrator"
	"github.com/user/gifpress/pkg/ports"
)

// QualityPreset represents a quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// PresetQuality returns the encoder quality for a preset.
// Unknown presets map to medium.
func PresetQuality(preset QualityPreset) float64 {
	switch preset {
	case QualityLow:
		return 0.4
	case QualityHigh:
		return 0.95
	default:
		return 0.7
	}
}

// Config represents the configuration of one GIF encoding job.
type Config struct {
	// Canvas
	Width  int // Output width (default: 480)
	Height int // Output height (default: 270)

	// Encoding
	Quality float64          // 0.0 to 1.0 (default: medium preset)
	Loop    ports.LoopPolicy // Loop extension (default: forever)
	Bounce  bool             // Append the reversed sequence
	FPS     float64          // Expected source rate (default: 10)

	// Concurrency
	QueueCapacity int // Frames buffered between producer and encoder (0 = default)

	// Estimation
	Estimate    bool // Log a size estimate before encoding
	SampleCount int  // Frames sampled by the estimate (default: 10)
	ChunkSize   int  // Consecutive frames per sample chunk (default: 2)
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with default values.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: defaults()}
}

func defaults() Config {
	oc := orchestrator.DefaultConfig()
	return Config{
		Width:       oc.Width,
		Height:      oc.Height,
		Quality:     PresetQuality(QualityMedium),
		Loop:        ports.LoopForever(),
		FPS:         oc.FPS,
		SampleCount: oc.SampleCount,
		ChunkSize:   oc.ChunkSize,
	}
}

// Build returns the final Config, applying validation and constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.Width < 1 {
		cfg.Width = 1
	}
	if cfg.Height < 1 {
		cfg.Height = 1
	}
	if math.IsNaN(cfg.Quality) {
		cfg.Quality = PresetQuality(QualityMedium)
	}
	cfg.Quality = math.Max(0, math.Min(1, cfg.Quality))
	if cfg.Loop.Mode == ports.LoopModeRepeat && cfg.Loop.Count < 0 {
		cfg.Loop = ports.LoopNever()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = defaults().FPS
	}
	if cfg.QueueCapacity < 0 {
		cfg.QueueCapacity = 0
	}

	return cfg
}

// WithSize sets the output canvas size.
func (b *ConfigBuilder) WithSize(width, height int) *ConfigBuilder {
	b.config.Width = width
	b.config.Height = height
	return b
}

// WithWidth sets the output width.
func (b *ConfigBuilder) WithWidth(width int) *ConfigBuilder {
	b.config.Width = width
	return b
}

// WithHeight sets the output height.
func (b *ConfigBuilder) WithHeight(height int) *ConfigBuilder {
	b.config.Height = height
	return b
}

// WithQuality sets the quality (0.0 to 1.0). Out of range values are clamped by Build.
func (b *ConfigBuilder) WithQuality(quality float64) *ConfigBuilder {
	b.config.Quality = quality
	return b
}

// WithQualityPreset applies a quality preset (low, medium, high).
func (b *ConfigBuilder) WithQualityPreset(preset QualityPreset) *ConfigBuilder {
	b.config.Quality = PresetQuality(preset)
	return b
}

// WithLoop sets the loop policy.
func (b *ConfigBuilder) WithLoop(loop ports.LoopPolicy) *ConfigBuilder {
	b.config.Loop = loop
	return b
}

// WithBounce enables or disables ping-pong playback.
func (b *ConfigBuilder) WithBounce(bounce bool) *ConfigBuilder {
	b.config.Bounce = bounce
	return b
}

// WithFPS sets the expected source frame rate.
func (b *ConfigBuilder) WithFPS(fps float64) *ConfigBuilder {
	b.config.FPS = fps
	return b
}

// WithQueueCapacity sets how many frames may wait for the encoder.
func (b *ConfigBuilder) WithQueueCapacity(capacity int) *ConfigBuilder {
	b.config.QueueCapacity = capacity
	return b
}

// WithEstimate enables a size estimate before encoding.
func (b *ConfigBuilder) WithEstimate(enabled bool) *ConfigBuilder {
	b.config.Estimate = enabled
	return b
}

// WithSampling sets the estimate's sample count and chunk size.
func (b *ConfigBuilder) WithSampling(sampleCount, chunkSize int) *ConfigBuilder {
	b.config.SampleCount = sampleCount
	b.config.ChunkSize = chunkSize
	return b
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(outputPath string) orchestrator.Config {
	return orchestrator.Config{
		OutputPath: outputPath,

		Width:         c.Width,
		Height:        c.Height,
		Quality:       c.Quality,
		Loop:          c.Loop,
		Bounce:        c.Bounce,
		FPS:           c.FPS,
		QueueCapacity: c.QueueCapacity,

		Estimate:    c.Estimate,
		SampleCount: c.SampleCount,
		ChunkSize:   c.ChunkSize,
	}
}
