// Command palettetest encodes the demo animation at several qualities and
// prints palette and output sizes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/user/gifpress/pkg/adapters/ggrenderer"
	"github.com/user/gifpress/pkg/adapters/synthsource"
	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/quantize"
	"github.com/user/gifpress/pkg/session"
)

func main() {
	opts := synthsource.DefaultOptions()
	opts.Frames = 20
	source, err := synthsource.New(ggrenderer.New(), opts)
	if err != nil {
		fmt.Printf("Error creating source: %v\n", err)
		os.Exit(1)
	}

	qualities := []float64{0.1, 0.4, 0.7, 0.95}
	factory := session.NewFactory(nil)
	ctx := context.Background()

	for _, q := range qualities {
		settings := ports.EncoderSettings{
			Width:   opts.Width,
			Height:  opts.Height,
			Quality: q,
			Loop:    ports.LoopForever(),
		}
		enc, err := factory.NewEncoder(settings, ports.EncoderOptions{})
		if err != nil {
			fmt.Printf("Error creating encoder: %v\n", err)
			continue
		}

		colors := 0
		err = source.Frames(ctx, func(frame ports.PixelFrame) error {
			if frame.Index == 0 {
				indexed, err := quantize.Quantize(frame, q)
				if err != nil {
					return err
				}
				colors = len(indexed.Palette)
			}
			return enc.AddFrame(ctx, frame)
		})
		if err != nil {
			enc.Cancel()
			fmt.Printf("Error encoding at quality %.2f: %v\n", q, err)
			continue
		}

		data, err := enc.Finish(ctx)
		if err != nil {
			fmt.Printf("Error finishing at quality %.2f: %v\n", q, err)
			continue
		}

		filename := fmt.Sprintf("tmp/palette_%03d.gif", int(q*100))
		if err := os.MkdirAll("tmp", 0755); err == nil {
			if err := os.WriteFile(filename, data, 0644); err != nil {
				fmt.Printf("Error writing file: %v\n", err)
			}
		}

		fmt.Printf("quality %.2f: %d colors (max %d), %d bytes -> %s\n",
			q, colors, quantize.OptionsForQuality(q).MaxColors, len(data), filename)
	}
}
