package juxtapose

import (
	"context"
	"fmt"

	"github.com/user/gifpress/pkg/adapters/ggrenderer"
	"github.com/user/gifpress/pkg/adapters/imagesource"
	"github.com/user/gifpress/pkg/adapters/osfilesystem"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/session"
)

// CombineDirs combines two image directories side by side and writes the
// GIF to outputPath. This is a convenience function that uses default
// adapters; call Combine directly for custom sources or loggers.
func CombineDirs(ctx context.Context, leftDir, rightDir, outputPath string, logger ports.Logger, opts Options) error {
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	srcOpts := imagesource.DefaultOptions()
	srcOpts.FPS = opts.FPS

	left, err := imagesource.New(fs, renderer, logger, []string{leftDir}, srcOpts)
	if err != nil {
		return fmt.Errorf("left: %w", err)
	}
	right, err := imagesource.New(fs, renderer, logger, []string{rightDir}, srcOpts)
	if err != nil {
		return fmt.Errorf("right: %w", err)
	}

	data, err := Combine(ctx, left, right, session.NewFactory(logger), renderer, opts)
	if err != nil {
		return err
	}

	if err := fs.WriteFile(outputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
