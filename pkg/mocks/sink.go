package mocks

import (
	"image"
	"sync"

	"github.com/user/gifpress/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SettingsJSON []byte
	ResultJSON   []byte
	SourceFrames map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:      enabled,
		SourceFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveSettingsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettingsJSON = data
	return nil
}

func (m *DebugSink) SaveResultJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResultJSON = data
	return nil
}

func (m *DebugSink) SaveSourceFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFrames[index] = img
	return nil
}

// SourceFrameCount returns the number of saved source frames.
func (m *DebugSink) SourceFrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SourceFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
