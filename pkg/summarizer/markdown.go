package summarizer

import (
	"fmt"
	"math"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Encoding Summary\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Input\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "Source", orNA(s.Input.Kind))
	if s.Input.Description != "" {
		row(&b, "Location", s.Input.Description)
	}
	row(&b, "Source Frames", fmt.Sprintf("%d", s.Input.SourceFrames))
	if s.Input.DroppedFrames > 0 {
		row(&b, "Dropped Frames", fmt.Sprintf("%d", s.Input.DroppedFrames))
	}

	b.WriteString("\n## Settings\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	if s.Settings.Preset != "" {
		row(&b, "Preset", s.Settings.Preset)
	}
	row(&b, "Canvas", fmt.Sprintf("%dx%d", s.Settings.Width, s.Settings.Height))
	row(&b, "Quality", fmt.Sprintf("%.2f", s.Settings.Quality))
	row(&b, "Loop", orNA(s.Settings.Loop))
	row(&b, "Bounce", yesNo(s.Settings.Bounce))
	row(&b, "Frame Rate", fmt.Sprintf("%.1f fps", s.Settings.FPS))

	b.WriteString("\n## Output\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	if s.Output.Path != "" {
		row(&b, "File", s.Output.Path)
	}
	row(&b, "Frames", fmt.Sprintf("%d", s.Output.FrameCount))
	row(&b, "Duration", formatMs(s.Output.DurationMs))
	row(&b, "File Size", formatBytes(s.Output.FileSize))
	if s.Output.EstimatedBytes > 0 {
		row(&b, "Estimated Size", fmt.Sprintf("%s (%s, %s)",
			formatBytes(s.Output.EstimatedBytes), orNA(s.Output.EstimateMethod),
			formatDeviation(s.Output.EstimatedBytes, s.Output.FileSize)))
	}

	b.WriteString("\n## Timing\n\n")
	fmt.Fprintf(&b, "Encoded in %s\n", formatMs(int(s.Timing.Elapsed.Milliseconds())))

	return b.String()
}

func row(b *strings.Builder, item, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", item, value)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatMs(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	}
}

// formatDeviation reports how far the estimate was from the actual size.
func formatDeviation(estimated, actual int64) string {
	if actual <= 0 {
		return "no output"
	}
	pct := (float64(estimated) - float64(actual)) / float64(actual) * 100
	if math.Abs(pct) < 0.05 {
		return "exact"
	}
	return fmt.Sprintf("%+.1f%%", pct)
}
