package session

import "github.com/user/gifpress/pkg/ports"

// Factory creates sessions for pipeline stages.
type Factory struct {
	Logger ports.Logger
}

// NewFactory returns a Factory whose sessions log through logger.
func NewFactory(logger ports.Logger) *Factory {
	return &Factory{Logger: logger}
}

// NewEncoder implements ports.EncoderFactory.
func (f *Factory) NewEncoder(settings ports.EncoderSettings, opts ports.EncoderOptions) (ports.FrameEncoder, error) {
	s, err := New(settings, Options{
		TotalFrames:   opts.TotalFrames,
		Progress:      opts.Progress,
		QueueCapacity: opts.QueueCapacity,
		Sink:          opts.Sink,
		Logger:        f.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ ports.EncoderFactory = (*Factory)(nil)
var _ ports.FrameEncoder = (*Session)(nil)
