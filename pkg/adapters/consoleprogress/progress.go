// Package consoleprogress renders encoder progress as a terminal bar.
package consoleprogress

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// steps is the bar resolution; fractions are scaled to it.
const steps = 1000

// Bar reports fractional progress to a writer.
type Bar struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	fraction float64
	finished bool
}

// New creates a bar that renders to w.
func New(description string, w io.Writer) *Bar {
	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
	return &Bar{bar: bar}
}

// Report moves the bar to fraction. It has the shape of ports.ProgressFunc
// and may be called from the encoder goroutine. Values that would move the
// bar backwards are ignored.
func (b *Bar) Report(fraction float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished || math.IsNaN(fraction) || fraction <= b.fraction {
		return
	}
	b.fraction = math.Min(fraction, 1)
	_ = b.bar.Set(int(math.Round(b.fraction * steps)))
	if b.fraction >= 1 {
		b.finished = true
	}
}

// Finish completes the bar if the encoder did not report 1.0 itself.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}
	b.finished = true
	b.fraction = 1
	_ = b.bar.Finish()
}

// Fraction returns the last reported fraction.
func (b *Bar) Fraction() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fraction
}
