package mocks

import (
	"context"

	"github.com/user/gifpress/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource that emits a
// fixed list of frames.
type FrameSource struct {
	List  []ports.PixelFrame
	Total int // Reported by TotalFrames; -1 reports len(List)

	// Err is returned after all frames were emitted.
	Err error

	Emitted int
}

// NewFrameSource returns a source that emits frames and reports their count.
func NewFrameSource(frames ...ports.PixelFrame) *FrameSource {
	return &FrameSource{List: frames, Total: -1}
}

func (m *FrameSource) TotalFrames() int {
	if m.Total < 0 {
		return len(m.List)
	}
	return m.Total
}

func (m *FrameSource) Frames(ctx context.Context, emit func(ports.PixelFrame) error) error {
	for _, f := range m.List {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(f); err != nil {
			return err
		}
		m.Emitted++
	}
	return m.Err
}

var _ ports.FrameSource = (*FrameSource)(nil)
