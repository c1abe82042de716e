package mocks

import (
	"context"
	"sync"

	"github.com/user/gifpress/pkg/ports"
)

// FrameEncoder is a mock implementation of ports.FrameEncoder.
type FrameEncoder struct {
	mu sync.Mutex

	AddFrameFunc func(ctx context.Context, frame ports.PixelFrame) error
	FinishFunc   func(ctx context.Context) ([]byte, error)

	// Recorded calls for verification
	Frames         []ports.PixelFrame
	FinishCalled   bool
	CancelCalled   bool
	ReceivedOpts   ports.EncoderOptions
	ReceivedConfig ports.EncoderSettings
}

func (m *FrameEncoder) AddFrame(ctx context.Context, frame ports.PixelFrame) error {
	m.mu.Lock()
	m.Frames = append(m.Frames, frame)
	m.mu.Unlock()
	if m.AddFrameFunc != nil {
		return m.AddFrameFunc(ctx, frame)
	}
	return nil
}

func (m *FrameEncoder) Finish(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.FinishCalled = true
	m.mu.Unlock()
	if m.FinishFunc != nil {
		return m.FinishFunc(ctx)
	}
	// Minimal GIF89a signature and trailer
	return []byte{'G', 'I', 'F', '8', '9', 'a', 0x3b}, nil
}

func (m *FrameEncoder) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalled = true
}

// FrameCount returns the number of frames received.
func (m *FrameEncoder) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// ReceivedFrames returns a copy of the frames received so far.
func (m *FrameEncoder) ReceivedFrames() []ports.PixelFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.PixelFrame(nil), m.Frames...)
}

// Cancelled reports whether Cancel has been called.
func (m *FrameEncoder) Cancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CancelCalled
}

// Finished reports whether Finish has been called.
func (m *FrameEncoder) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FinishCalled
}

var _ ports.FrameEncoder = (*FrameEncoder)(nil)

// EncoderFactory is a mock implementation of ports.EncoderFactory.
// It hands out Encoder, or a fresh FrameEncoder when Encoder is nil.
type EncoderFactory struct {
	mu sync.Mutex

	Encoder       *FrameEncoder
	NewEncoderErr error

	Calls []EncoderFactoryCall
}

// EncoderFactoryCall records a call to NewEncoder.
type EncoderFactoryCall struct {
	Settings ports.EncoderSettings
	Options  ports.EncoderOptions
}

func (m *EncoderFactory) NewEncoder(settings ports.EncoderSettings, opts ports.EncoderOptions) (ports.FrameEncoder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, EncoderFactoryCall{Settings: settings, Options: opts})
	if m.NewEncoderErr != nil {
		return nil, m.NewEncoderErr
	}
	enc := m.Encoder
	if enc == nil {
		enc = &FrameEncoder{}
		m.Encoder = enc
	}
	enc.mu.Lock()
	enc.ReceivedConfig = settings
	enc.ReceivedOpts = opts
	enc.mu.Unlock()
	return enc, nil
}

// CallCount returns the number of NewEncoder calls.
func (m *EncoderFactory) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the arguments of the most recent NewEncoder call.
func (m *EncoderFactory) LastCall() (EncoderFactoryCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return EncoderFactoryCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

var _ ports.EncoderFactory = (*EncoderFactory)(nil)
