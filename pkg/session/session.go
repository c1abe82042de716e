// Package session runs one GIF encoding job.
//
// A Session accepts frames from a producer through AddFrame and encodes them
// on a single worker goroutine fed by a bounded queue. AddFrame blocks while
// the queue is full. Finish closes the input, waits for the worker to write
// the trailer and returns the document. Cancel may be called from any
// goroutine; it takes effect at the next frame boundary.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/user/gifpress/pkg/adapters/logger"
	"github.com/user/gifpress/pkg/gifwriter"
	"github.com/user/gifpress/pkg/ports"
)

// DefaultQueueCapacity is the number of frames buffered before AddFrame blocks.
const DefaultQueueCapacity = 4

const maxDimension = 0xffff

// State is the lifecycle state of a Session.
type State int

const (
	StateConfiguring State = iota
	StateRunning
	StateFinishing
	StateFinished
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateFinishing:
		return "finishing"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Session.
type Options struct {
	TotalFrames   int                // Expected frame count for progress (0 = unknown)
	Progress      ports.ProgressFunc // Called on the worker goroutine
	QueueCapacity int                // Defaults to DefaultQueueCapacity
	Sink          io.Writer          // Stream the document here; nil buffers it in memory
	Logger        ports.Logger
}

// Stats reports what the worker has produced so far.
type Stats struct {
	FramesWritten int
	BytesWritten  int64
}

// Session is a single encoding job. Create it with New.
type Session struct {
	settings ports.EncoderSettings
	opts     Options
	logger   ports.Logger

	queue    chan ports.PixelFrame
	stop     chan struct{} // closed on cancel or failure
	stopOnce sync.Once
	done     chan struct{} // closed when the worker exits
	inflight sync.WaitGroup

	mu            sync.Mutex
	state         State
	started       bool
	finishCalled  bool
	accepted      int
	lastIndex     int
	lastTimestamp float64
	failure       error
	result        []byte

	framesWritten atomic.Int64
	bytesWritten  atomic.Int64
}

// New validates settings and returns a session in the Configuring state.
// The worker starts with the first AddFrame.
func New(settings ports.EncoderSettings, opts Options) (*Session, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	return &Session{
		settings: settings,
		opts:     opts,
		logger:   log.WithComponent("session"),
		queue:    make(chan ports.PixelFrame, opts.QueueCapacity),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateConfiguring,
	}, nil
}

func validateSettings(s ports.EncoderSettings) error {
	if s.Width <= 0 || s.Height <= 0 || s.Width > maxDimension || s.Height > maxDimension {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if math.IsNaN(s.Quality) || s.Quality < 0 || s.Quality > 1 {
		return fmt.Errorf("%w: quality %v outside [0,1]", ErrInvalidSettings, s.Quality)
	}
	if s.Loop.Mode == ports.LoopModeRepeat && s.Loop.Count < 0 {
		return fmt.Errorf("%w: negative repeat count %d", ErrInvalidSettings, s.Loop.Count)
	}
	return nil
}

// Settings returns the immutable settings of the session.
func (s *Session) Settings() ports.EncoderSettings {
	return s.settings
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the frames and bytes written so far.
func (s *Session) Stats() Stats {
	return Stats{
		FramesWritten: int(s.framesWritten.Load()),
		BytesWritten:  s.bytesWritten.Load(),
	}
}

// AddFrame queues frame for encoding. It blocks while the queue is full and
// returns once the frame is queued, the session stops, or ctx is done.
//
// A frame with the wrong dimensions aborts the session. A frame whose index
// does not increase, or whose timestamp goes backwards, is rejected with
// ErrFrameOrder and the session continues.
func (s *Session) AddFrame(ctx context.Context, frame ports.PixelFrame) error {
	s.mu.Lock()
	switch s.state {
	case StateCancelled:
		s.mu.Unlock()
		return ErrCancelled
	case StateFailed:
		err := s.failure
		s.mu.Unlock()
		return err
	case StateFinishing, StateFinished:
		s.mu.Unlock()
		return ErrSessionClosed
	}

	if frame.Width != s.settings.Width || frame.Height != s.settings.Height ||
		len(frame.Pixels) != frame.ExpectedLen() {
		err := fmt.Errorf("%w: frame %d is %dx%d with %d bytes, session is %dx%d",
			ErrInvalidFrameDimensions, frame.Index, frame.Width, frame.Height,
			len(frame.Pixels), s.settings.Width, s.settings.Height)
		s.failLocked(err)
		s.mu.Unlock()
		s.halt()
		return err
	}

	if err := s.checkOrderLocked(frame); err != nil {
		s.mu.Unlock()
		return err
	}

	prevIndex, prevTimestamp := s.lastIndex, s.lastTimestamp
	s.lastIndex, s.lastTimestamp = frame.Index, frame.Timestamp
	s.accepted++

	if !s.started {
		s.started = true
		s.state = StateRunning
		go s.run()
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case s.queue <- frame:
		return nil
	case <-s.stop:
		return s.stopErr()
	case <-s.done:
		return s.stopErr()
	case <-ctx.Done():
		s.mu.Lock()
		s.accepted--
		s.lastIndex, s.lastTimestamp = prevIndex, prevTimestamp
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Session) checkOrderLocked(frame ports.PixelFrame) error {
	if frame.Index < 0 || frame.Timestamp < 0 || math.IsNaN(frame.Timestamp) {
		return fmt.Errorf("%w: frame %d at %vs", ErrFrameOrder, frame.Index, frame.Timestamp)
	}
	if s.accepted == 0 {
		return nil
	}
	if frame.Index <= s.lastIndex {
		return fmt.Errorf("%w: index %d after %d", ErrFrameOrder, frame.Index, s.lastIndex)
	}
	if frame.Timestamp < s.lastTimestamp {
		return fmt.Errorf("%w: timestamp %vs after %vs", ErrFrameOrder, frame.Timestamp, s.lastTimestamp)
	}
	return nil
}

// Finish signals that no more frames follow, waits for the worker to write
// the trailer and returns the GIF document. When the session streams to
// Options.Sink the returned slice is nil.
//
// If ctx ends first, the session is cancelled and ErrCancelled is returned.
// Finish may be called once; later calls return ErrAlreadyFinished.
func (s *Session) Finish(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.finishCalled {
		s.mu.Unlock()
		return nil, ErrAlreadyFinished
	}
	s.finishCalled = true

	switch s.state {
	case StateCancelled:
		s.mu.Unlock()
		return nil, ErrCancelled
	case StateFailed:
		err := s.failure
		s.mu.Unlock()
		return nil, err
	case StateConfiguring:
		err := &NotEnoughFramesError{Count: 0}
		s.failLocked(err)
		s.mu.Unlock()
		s.halt()
		return nil, err
	}
	s.state = StateFinishing
	s.mu.Unlock()

	// No AddFrame can enter the queue once the state is Finishing; wait for
	// the ones already sending before closing it.
	s.inflight.Wait()
	close(s.queue)

	select {
	case <-s.done:
	case <-ctx.Done():
		s.Cancel()
		<-s.done
	}
	return s.outcome()
}

func (s *Session) outcome() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateFinished:
		data := s.result
		s.result = nil
		return data, nil
	case StateFailed:
		return nil, s.failure
	default:
		return nil, ErrCancelled
	}
}

// Cancel stops the session at the next frame boundary. Queued frames are
// discarded and no trailer is written. It is safe to call from any goroutine
// and more than once.
func (s *Session) Cancel() {
	s.mu.Lock()
	switch s.state {
	case StateFinished, StateFailed, StateCancelled:
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	s.mu.Unlock()

	s.logger.Debug("Session cancelled")
	s.halt()
}

// Close releases a session that will not be finished. It cancels the worker
// and waits for it to exit. Close is a no-op after Finish.
func (s *Session) Close() {
	s.Cancel()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Done is closed when the worker goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) failLocked(err error) {
	if s.state == StateCancelled || s.state == StateFailed || s.state == StateFinished {
		return
	}
	s.state = StateFailed
	s.failure = err
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.failLocked(err)
	s.mu.Unlock()
	s.logger.Debug("Session failed: %v", err)
	s.halt()
}

func (s *Session) stopErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return s.failure
	}
	return ErrCancelled
}

func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// run is the worker goroutine.
func (s *Session) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.fail(&EncodeError{Stage: "worker", Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	var buf *bytes.Buffer
	out := s.opts.Sink
	if out == nil {
		buf = &bytes.Buffer{}
		out = buf
	}
	w := gifwriter.NewWriter(out)
	enc := newFrameEncoder(s.settings, w, s.logger)
	defer enc.release()

	for {
		select {
		case <-s.stop:
			s.discard()
			return
		case frame, ok := <-s.queue:
			if !ok {
				s.complete(enc, w, buf)
				return
			}
			if s.stopped() {
				s.discard()
				return
			}
			wrote, err := enc.push(frame)
			if err != nil {
				s.fail(err)
				s.discard()
				return
			}
			if wrote {
				s.frameWritten(w)
			}
		}
	}
}

func (s *Session) complete(enc *frameEncoder, w *gifwriter.Writer, buf *bytes.Buffer) {
	if s.stopped() {
		return
	}
	if err := enc.finish(); err != nil {
		s.fail(err)
		return
	}
	s.framesWritten.Store(int64(w.Frames()))
	s.bytesWritten.Store(w.BytesWritten())

	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return
	}
	s.state = StateFinished
	if buf != nil {
		s.result = buf.Bytes()
	}
	s.mu.Unlock()

	s.logger.Debug("Session finished: %d frames, %d bytes", w.Frames(), w.BytesWritten())
	if s.opts.Progress != nil {
		s.opts.Progress(1)
	}
}

func (s *Session) frameWritten(w *gifwriter.Writer) {
	n := w.Frames()
	s.framesWritten.Store(int64(n))
	s.bytesWritten.Store(w.BytesWritten())

	if s.opts.Progress == nil || s.opts.TotalFrames <= 0 {
		return
	}
	fraction := float64(n) / float64(s.opts.TotalFrames)
	if fraction < 1 {
		s.opts.Progress(fraction)
	}
}

// discard drops frames still waiting in the queue.
func (s *Session) discard() {
	for {
		select {
		case _, ok := <-s.queue:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
