package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/ideamans/go-l10n"

	"github.com/user/gifpress/pkg/adapters/consoleprogress"
	"github.com/user/gifpress/pkg/adapters/filesink"
	"github.com/user/gifpress/pkg/adapters/framebuf"
	"github.com/user/gifpress/pkg/adapters/ggrenderer"
	"github.com/user/gifpress/pkg/adapters/imagesource"
	"github.com/user/gifpress/pkg/adapters/mp4probe"
	"github.com/user/gifpress/pkg/adapters/nullsink"
	"github.com/user/gifpress/pkg/adapters/osfilesystem"
	"github.com/user/gifpress/pkg/adapters/synthsource"
	"github.com/user/gifpress/pkg/bounce"
	"github.com/user/gifpress/pkg/config"
	"github.com/user/gifpress/pkg/juxtapose"
	"github.com/user/gifpress/pkg/orchestrator"
	"github.com/user/gifpress/pkg/pipeline"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
	"github.com/user/gifpress/pkg/stages/encode"
	"github.com/user/gifpress/pkg/stages/estimate"
	"github.com/user/gifpress/pkg/summarizer"
)

// EncodeCmd encodes still images into a GIF.
type EncodeCmd struct {
	Inputs []string `arg:"" help:"Image files or directories of PNG/JPEG frames."`
	Output string   `short:"o" help:"Output GIF file path (default: from config or output.gif)."`

	EncodeFlags `embed:""`
	JobFlags    `embed:""`
	LogFlags    `embed:""`
}

// DemoCmd encodes a synthetic animation.
type DemoCmd struct {
	Output string   `short:"o" help:"Output GIF file path (default: from config or output.gif)."`
	Frames *int     `short:"n" help:"Number of frames (default: 30)."`
	Jitter *float64 `help:"Timestamp jitter as a fraction of the frame interval."`
	Seed   *uint64  `help:"Random seed for jitter."`

	EncodeFlags `embed:""`
	JobFlags    `embed:""`
	LogFlags    `embed:""`
}

// EstimateCmd predicts the GIF size without writing anything.
type EstimateCmd struct {
	Inputs  []string `arg:"" help:"Image files or directories of PNG/JPEG frames."`
	Samples int      `default:"10" help:"Number of frames to encode as a sample."`
	Chunk   int      `default:"2" help:"Consecutive frames per sample chunk."`

	EncodeFlags `embed:""`
	LogFlags    `embed:""`
}

// ProbeCmd reports MP4 metadata and a heuristic GIF size.
type ProbeCmd struct {
	Input string `arg:"" type:"existingfile" help:"MP4 file to inspect."`

	EncodeFlags `embed:""`
}

// JuxtaposeCmd combines two image sequences side by side.
type JuxtaposeCmd struct {
	Left       string  `arg:"" type:"existingdir" help:"Directory of frames shown on the left."`
	Right      string  `arg:"" type:"existingdir" help:"Directory of frames shown on the right."`
	Output     string  `short:"o" default:"juxtapose.gif" help:"Output GIF file path."`
	Gap        int     `default:"10" help:"Gap between the clips in pixels."`
	FPS        float64 `short:"r" default:"10" help:"Frame rate of both inputs and the output."`
	Quality    float64 `short:"q" default:"0.7" help:"Quality from 0.0 to 1.0."`
	LeftLabel  string  `help:"Label drawn above the left clip."`
	RightLabel string  `help:"Label drawn above the right clip."`

	LogFlags `embed:""`
}

// Run executes the encode command.
func (cmd *EncodeCmd) Run() error {
	cfg, err := cmd.EncodeFlags.load()
	if err != nil {
		return err
	}
	log := newLogger(cmd.LogFlags, cfg.LogLevel)

	// Frames must match the clamped canvas the encoder is built with.
	canvas, err := cfg.ToOrchestratorConfig("")
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	srcOpts := imagesource.DefaultOptions()
	srcOpts.Width, srcOpts.Height, srcOpts.FPS = canvas.Width, canvas.Height, canvas.FPS
	if srcOpts.Background, err = cfg.BackgroundColor(); err != nil {
		return err
	}
	source, err := imagesource.New(fs, renderer, log, cmd.Inputs, srcOpts)
	if err != nil {
		return err
	}

	return runJob(job{
		cfg:         cfg,
		output:      cmd.Output,
		flags:       cmd.JobFlags,
		logs:        cmd.LogFlags,
		source:      source,
		kind:        "images",
		description: strings.Join(cmd.Inputs, ", "),
		logger:      log,
	})
}

// Run executes the demo command.
func (cmd *DemoCmd) Run() error {
	cfg, err := cmd.EncodeFlags.load()
	if err != nil {
		return err
	}
	if cmd.Frames != nil {
		cfg.Demo.Frames = *cmd.Frames
	}
	if cmd.Jitter != nil {
		cfg.Demo.Jitter = *cmd.Jitter
	}
	if cmd.Seed != nil {
		cfg.Demo.Seed = *cmd.Seed
	}
	log := newLogger(cmd.LogFlags, cfg.LogLevel)

	opts, err := cfg.SynthOptions()
	if err != nil {
		return err
	}
	source, err := synthsource.New(ggrenderer.New(), opts)
	if err != nil {
		return err
	}

	return runJob(job{
		cfg:         cfg,
		output:      cmd.Output,
		flags:       cmd.JobFlags,
		logs:        cmd.LogFlags,
		source:      source,
		kind:        "demo",
		description: fmt.Sprintf("synthetic, %d frames", source.TotalFrames()),
		logger:      log,
	})
}

// job bundles everything runJob needs.
type job struct {
	cfg         config.Config
	output      string
	flags       JobFlags
	logs        LogFlags
	source      ports.FrameSource
	kind        string
	description string
	logger      ports.Logger
}

// runJob wires adapters and stages around the orchestrator and runs it
// until completion or interruption.
func runJob(j job) error {
	if j.flags.Estimate {
		j.cfg.Estimate = true
	}
	if j.flags.Debug {
		j.cfg.Debug = true
	}
	if j.flags.DebugDir != "" {
		j.cfg.DebugDir = j.flags.DebugDir
	}
	if j.cfg.DebugDir == "" {
		j.cfg.DebugDir = config.Defaults().DebugDir
	}

	orchConfig, err := j.cfg.ToOrchestratorConfig(j.output)
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if j.cfg.Debug {
		sink = filesink.New(j.cfg.DebugDir, fs, renderer)
		j.logger.Info(l10n.F("Debug output enabled: %s", j.cfg.DebugDir))
	} else {
		sink = nullsink.New()
	}

	factory := session.NewFactory(j.logger)
	orch := orchestrator.New(
		encode.NewStage(factory, sink, j.logger),
		estimate.NewStage(factory, j.logger),
		fs,
		sink,
		j.logger,
	)

	var bar *consoleprogress.Bar
	if showProgress(j.flags, j.logs) {
		bar = consoleprogress.New(l10n.T("Encoding"), os.Stderr)
		orchConfig.Progress = bar.Report
	}

	ctx, cancel := signalContext(j.logger)
	defer cancel()

	result, err := orch.Run(ctx, j.source, orchConfig)
	if bar != nil && err == nil {
		bar.Finish()
	}
	if err != nil {
		if session.IsCancelled(err) || errors.Is(err, context.Canceled) {
			return errInterrupted
		}
		return err
	}

	if j.flags.Summary != "" {
		summary := summarizer.NewBuilder().
			WithInput(j.kind, j.description).
			WithPreset(j.cfg.Preset).
			WithOutputPath(orchConfig.OutputPath).
			WithRunResult(result).
			Build()
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs)
		if err := writer.Write(j.flags.Summary, summary); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		j.logger.Info(l10n.F("Summary saved to %s", j.flags.Summary))
	}

	return nil
}

// Run executes the estimate command.
func (cmd *EstimateCmd) Run() error {
	cfg, err := cmd.EncodeFlags.load()
	if err != nil {
		return err
	}
	log := newLogger(cmd.LogFlags, cfg.LogLevel)

	orchConfig, err := cfg.ToOrchestratorConfig("")
	if err != nil {
		return err
	}

	srcOpts := imagesource.DefaultOptions()
	srcOpts.Width, srcOpts.Height, srcOpts.FPS = orchConfig.Width, orchConfig.Height, orchConfig.FPS
	if srcOpts.Background, err = cfg.BackgroundColor(); err != nil {
		return err
	}
	source, err := imagesource.New(osfilesystem.New(), ggrenderer.New(), log, cmd.Inputs, srcOpts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	stage := estimate.NewStage(session.NewFactory(log), log)
	result, err := stage.Execute(ctx, pipeline.EstimateInput{
		Source:      source,
		Settings:    orchConfig.Settings(),
		Bounce:      orchConfig.Bounce,
		SampleCount: cmd.Samples,
		ChunkSize:   cmd.Chunk,
	})
	if err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return err
	}

	fmt.Println(l10n.F("Estimated size: %d bytes (%s)", result.EstimatedBytes, result.Method))
	fmt.Println(l10n.F("Frames: %d expected, %d sampled", result.ExpectedFrames, result.SampledFrames))
	return nil
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run() error {
	cfg, err := cmd.EncodeFlags.load()
	if err != nil {
		return err
	}
	orchConfig, err := cfg.ToOrchestratorConfig("")
	if err != nil {
		return err
	}

	info, err := mp4probe.ProbeFile(cmd.Input)
	if err != nil {
		return fmt.Errorf("probe %s: %w", cmd.Input, err)
	}

	width, height := framebuf.FitSize(
		image.Rect(0, 0, info.Width, info.Height), orchConfig.Width, orchConfig.Height)
	frames := info.FramesAt(orchConfig.FPS)
	if orchConfig.Bounce {
		frames = bounce.TotalFrames(frames)
	}

	fmt.Println(l10n.F("Codec: %s", info.Codec))
	fmt.Println(l10n.F("Video: %dx%d, %d samples, %.2fs (%.2f fps)", info.Width, info.Height, info.Samples, info.Duration, info.FPS))
	if info.Fragmented {
		fmt.Println(l10n.T("Layout: fragmented"))
	}
	fmt.Println(l10n.F("GIF: %dx%d, %d frames at %.2f fps", width, height, frames, orchConfig.FPS))
	fmt.Println(l10n.F("Estimated size: %d bytes (%s)", estimate.Heuristic(width, height, frames, orchConfig.Quality), pipeline.MethodHeuristic))
	return nil
}

// Run executes the juxtapose command.
func (cmd *JuxtaposeCmd) Run() error {
	log := newLogger(cmd.LogFlags, "")

	opts := juxtapose.DefaultOptions()
	opts.Gap = cmd.Gap
	opts.FPS = cmd.FPS
	opts.Quality = cmd.Quality
	opts.LeftLabel = cmd.LeftLabel
	opts.RightLabel = cmd.RightLabel

	ctx, cancel := signalContext(log)
	defer cancel()

	if err := juxtapose.CombineDirs(ctx, cmd.Left, cmd.Right, cmd.Output, log, opts); err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return err
	}

	log.Info(l10n.F("Output saved to %s", cmd.Output))
	return nil
}
