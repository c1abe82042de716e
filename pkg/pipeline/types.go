package pipeline

import (
	"github.com/user/gifpress/pkg/ports"
)

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for encoding a frame source into a GIF.
type EncodeInput struct {
	Source        ports.FrameSource
	Settings      ports.EncoderSettings
	Bounce        bool               // Append the reversed sequence
	FrameRate     float64            // Expected source rate, used for bounce timing (0 = unknown)
	QueueCapacity int                // Frames buffered by the encoder (0 = encoder default)
	Progress      ports.ProgressFunc // Optional, called from the encoder goroutine
}

// DefaultEncodeInput returns EncodeInput with default values.
func DefaultEncodeInput() EncodeInput {
	return EncodeInput{
		Settings: ports.EncoderSettings{
			Width:   480,
			Height:  270,
			Quality: 0.7,
			Loop:    ports.LoopForever(),
		},
		FrameRate: 10,
	}
}

// EncodeResult contains the encoded GIF.
type EncodeResult struct {
	GIFData       []byte
	FrameCount    int   // Frames submitted to the encoder, bounce included
	SourceFrames  int   // Frames read from the source
	DroppedFrames int   // Source frames dropped for non-increasing timestamps
	DurationMs    int   // Timeline length from the first to the last frame
	FileSize      int64 // len(GIFData)
}

// =============================================================================
// Estimate Stage Types
// =============================================================================

// Estimation methods reported in EstimateResult.Method.
const (
	MethodSampled   = "sampled"
	MethodHeuristic = "heuristic"
)

// EstimateInput contains parameters for predicting the output size.
type EstimateInput struct {
	Source      ports.FrameSource
	Settings    ports.EncoderSettings
	Bounce      bool
	SampleCount int // Frames to encode in total (default: 10)
	ChunkSize   int // Consecutive frames per sample chunk (default: 2)
}

// DefaultEstimateInput returns EstimateInput with default values.
func DefaultEstimateInput() EstimateInput {
	return EstimateInput{
		Settings:    DefaultEncodeInput().Settings,
		SampleCount: 10,
		ChunkSize:   2,
	}
}

// EstimateResult contains the predicted output size.
type EstimateResult struct {
	EstimatedBytes int64
	Method         string // MethodSampled or MethodHeuristic
	SampledFrames  int    // Frames actually encoded
	SampledBytes   int64  // Size of the sample encoding
	ExpectedFrames int    // Frames the full job will write
}
