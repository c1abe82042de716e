// Package main provides the CLI entry point for gifpress.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"

	"github.com/user/gifpress/pkg/adapters/logger"
	"github.com/user/gifpress/pkg/config"
	"github.com/user/gifpress/pkg/ports"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Encode    EncodeCmd    `cmd:"" help:"Encode image files into an animated GIF."`
	Demo      DemoCmd      `cmd:"" help:"Encode a synthetic animation."`
	Estimate  EstimateCmd  `cmd:"" help:"Estimate the GIF size for image files."`
	Probe     ProbeCmd     `cmd:"" help:"Describe an MP4 file and predict its GIF size."`
	Juxtapose JuxtaposeCmd `cmd:"" help:"Combine two image sequences side by side."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`
}

// LogFlags are shared by every command that logs.
type LogFlags struct {
	LogLevel string `short:"l" help:"Log level: debug, info, warn or error (default: from config or info)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// EncodeFlags override values from the config file.
type EncodeFlags struct {
	Config     string   `short:"C" help:"YAML config file."`
	Width      *int     `short:"W" help:"Output width (default: 480)."`
	Height     *int     `short:"H" help:"Output height (default: 270)."`
	Quality    *float64 `short:"q" help:"Quality from 0.0 to 1.0 (overrides preset)."`
	Preset     *string  `short:"p" help:"Quality preset: low, medium or high."`
	Loop       *string  `help:"Loop policy: forever, never or a repeat count."`
	Bounce     bool     `short:"b" help:"Append the reversed sequence (ping-pong)."`
	FPS        *float64 `short:"r" help:"Source frame rate (default: 10)."`
	Queue      *int     `help:"Frames buffered between reader and encoder."`
	Background *string  `help:"Letterbox color (hex, e.g., #000000)."`
}

// JobFlags control output side effects of an encoding job.
type JobFlags struct {
	Estimate   bool   `short:"e" help:"Log a size estimate before encoding."`
	Debug      bool   `short:"d" help:"Enable debug output."`
	DebugDir   string `help:"Directory for debug output (default: ./debug)."`
	Summary    string `help:"Write a Markdown summary to this file."`
	NoProgress bool   `help:"Hide the progress bar."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

// errInterrupted marks a job stopped by a signal.
var errInterrupted = errors.New("interrupted")

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("gifpress"),
		kong.Description(l10n.T("Encode frame sequences into optimized animated GIFs")),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if errors.Is(err, errInterrupted) {
		os.Exit(130)
	}
	ctx.FatalIfErrorf(err)
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("gifpress version %s", version))
	return nil
}

// newLogger builds the console logger. The flag wins over the config file.
func newLogger(flags LogFlags, configured string) ports.Logger {
	if flags.Quiet {
		return logger.NewNoop()
	}
	level := flags.LogLevel
	if level == "" {
		level = configured
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// load reads the config file, if any, and applies flag overrides.
func (f EncodeFlags) load() (config.Config, error) {
	cfg := config.Defaults()
	if f.Config != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.Config); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if f.Width != nil {
		cfg.Width = *f.Width
	}
	if f.Height != nil {
		cfg.Height = *f.Height
	}
	if f.Quality != nil {
		cfg.Quality = *f.Quality
		cfg.Preset = ""
	}
	if f.Preset != nil {
		cfg.Preset = *f.Preset
	}
	if f.Loop != nil {
		cfg.Loop = *f.Loop
	}
	if f.Bounce {
		cfg.Bounce = true
	}
	if f.FPS != nil {
		cfg.FPS = *f.FPS
	}
	if f.Queue != nil {
		cfg.QueueCapacity = *f.Queue
	}
	if f.Background != nil {
		cfg.Background = *f.Background
	}
	return cfg, nil
}

// showProgress reports whether a progress bar fits the terminal state.
func showProgress(flags JobFlags, logs LogFlags) bool {
	if flags.NoProgress || logs.Quiet {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
