// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/user/gifpress/pkg/adapters/synthsource"
	"github.com/user/gifpress/pkg/gifpress"
	"github.com/user/gifpress/pkg/orchestrator"
	"github.com/user/gifpress/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration file for gifpress.
type Config struct {
	OutputPath string `yaml:"output"`

	// Canvas
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"` // Letterbox fill for image sources

	// Encoding
	Preset        string  `yaml:"preset"`  // low, medium, high; overrides quality
	Quality       float64 `yaml:"quality"` // 0.0 to 1.0
	Loop          string  `yaml:"loop"`    // forever, never or a repeat count
	Bounce        bool    `yaml:"bounce"`
	FPS           float64 `yaml:"fps"`
	QueueCapacity int     `yaml:"queue_capacity"`

	// Estimation
	Estimate    bool `yaml:"estimate"`
	SampleCount int  `yaml:"sample_count"`
	ChunkSize   int  `yaml:"chunk_size"`

	// Synthetic source
	Demo DemoConfig `yaml:"demo"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
	LogLevel string `yaml:"log_level"`
}

// DemoConfig configures the synthetic demo source.
type DemoConfig struct {
	Frames int         `yaml:"frames"`
	Jitter float64     `yaml:"jitter"`
	Seed   uint64      `yaml:"seed"`
	Theme  ThemeConfig `yaml:"theme"`
}

// ThemeConfig represents the demo clip colors.
type ThemeConfig struct {
	Background string `yaml:"background"`
	Block      string `yaml:"block"`
	Ball       string `yaml:"ball"`
	Bar        string `yaml:"bar"`
	Text       string `yaml:"text"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	b := gifpress.NewConfigBuilder().Build()
	return Config{
		OutputPath: "output.gif",

		Width:      b.Width,
		Height:     b.Height,
		Background: "#000000",

		Quality: b.Quality,
		Loop:    b.Loop.String(),
		FPS:     b.FPS,

		SampleCount: b.SampleCount,
		ChunkSize:   b.ChunkSize,

		Demo: DemoConfig{
			Frames: 30,
			Seed:   1,
			Theme: ThemeConfig{
				Background: "#f5f5f0",
				Block:      "#dc3c32",
				Ball:       "#286ec8",
				Bar:        "#3caa5a",
				Text:       "#1e1e1e",
			},
		},

		DebugDir: "./debug",
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa. The leading # is optional.
func ParseColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Builder returns a gifpress builder seeded with this configuration.
func (c Config) Builder() (*gifpress.ConfigBuilder, error) {
	loop, err := ports.ParseLoopPolicy(c.Loop)
	if err != nil {
		return nil, err
	}

	b := gifpress.NewConfigBuilder().
		WithSize(c.Width, c.Height).
		WithQuality(c.Quality).
		WithLoop(loop).
		WithBounce(c.Bounce).
		WithFPS(c.FPS).
		WithQueueCapacity(c.QueueCapacity).
		WithEstimate(c.Estimate).
		WithSampling(c.SampleCount, c.ChunkSize)
	switch preset := gifpress.QualityPreset(c.Preset); preset {
	case "":
	case gifpress.QualityLow, gifpress.QualityMedium, gifpress.QualityHigh:
		b.WithQualityPreset(preset)
	default:
		return nil, fmt.Errorf("unknown preset %q", c.Preset)
	}
	return b, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
// A non-empty outputPath overrides the configured output.
func (c Config) ToOrchestratorConfig(outputPath string) (orchestrator.Config, error) {
	b, err := c.Builder()
	if err != nil {
		return orchestrator.Config{}, err
	}
	if outputPath == "" {
		outputPath = c.OutputPath
	}
	return b.Build().ToOrchestratorConfig(outputPath), nil
}

// SynthOptions converts the demo section to synthetic source options.
func (c Config) SynthOptions() (synthsource.Options, error) {
	opts := synthsource.DefaultOptions()
	opts.Width, opts.Height = c.Width, c.Height
	opts.FPS = c.FPS
	opts.Frames = c.Demo.Frames
	opts.Jitter = c.Demo.Jitter
	opts.Seed = c.Demo.Seed

	colors := []struct {
		hex string
		dst *color.Color
	}{
		{c.Demo.Theme.Background, &opts.Theme.Background},
		{c.Demo.Theme.Block, &opts.Theme.Block},
		{c.Demo.Theme.Ball, &opts.Theme.Ball},
		{c.Demo.Theme.Bar, &opts.Theme.Bar},
		{c.Demo.Theme.Text, &opts.Theme.Text},
	}
	for _, col := range colors {
		if col.hex == "" {
			continue
		}
		rgba, err := ParseColor(col.hex)
		if err != nil {
			return opts, err
		}
		*col.dst = rgba
	}
	return opts, nil
}

// BackgroundColor returns the parsed letterbox color, black when unset.
func (c Config) BackgroundColor() (color.RGBA, error) {
	if c.Background == "" {
		return color.RGBA{A: 255}, nil
	}
	return ParseColor(c.Background)
}
