package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// It allows saving intermediate processing results for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveSettingsJSON saves the effective job settings as JSON.
	SaveSettingsJSON(data []byte) error

	// SaveResultJSON saves the encoding result metadata as JSON.
	SaveResultJSON(data []byte) error

	// SaveSourceFrame saves a frame as it was received from the source.
	SaveSourceFrame(index int, img image.Image) error
}
