package session

import (
	"errors"
	"fmt"

	"github.com/user/gifpress/pkg/gifwriter"
	"github.com/user/gifpress/pkg/quantize"
)

var (
	// ErrInvalidSettings is returned by New for unusable settings.
	ErrInvalidSettings = errors.New("session: invalid settings")

	// ErrNotEnoughFrames matches *NotEnoughFramesError.
	ErrNotEnoughFrames = errors.New("session: not enough frames")

	// ErrInvalidFrameDimensions is returned when a frame does not match the
	// session canvas. It aborts the session.
	ErrInvalidFrameDimensions = quantize.ErrInvalidFrameDimensions

	// ErrEncodeFailed matches *EncodeError.
	ErrEncodeFailed = errors.New("session: encode failed")

	// ErrWriteFailed matches *WriteError.
	ErrWriteFailed = gifwriter.ErrWriteFailed

	// ErrCancelled is returned once the session has been cancelled.
	ErrCancelled = errors.New("session: cancelled")

	// ErrFrameOrder is returned for a frame whose index does not increase or
	// whose timestamp goes backwards. The frame is rejected; the session
	// stays usable.
	ErrFrameOrder = errors.New("session: frame out of order")

	// ErrSessionClosed is returned by AddFrame after Finish.
	ErrSessionClosed = errors.New("session: closed")

	// ErrAlreadyFinished is returned by a second call to Finish.
	ErrAlreadyFinished = errors.New("session: finish already called")
)

// MinFrames is the smallest number of frames an animation can have.
const MinFrames = 2

// NotEnoughFramesError reports a session finished with fewer than MinFrames.
type NotEnoughFramesError struct {
	Count int
}

func (e *NotEnoughFramesError) Error() string {
	return fmt.Sprintf("session: not enough frames: got %d, need at least %d", e.Count, MinFrames)
}

// Is reports whether target is ErrNotEnoughFrames.
func (e *NotEnoughFramesError) Is(target error) bool {
	return target == ErrNotEnoughFrames
}

// EncodeError reports a failure inside the encoding worker.
type EncodeError struct {
	Stage string // "quantize", "delta", "write" or "worker"
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("session: encode failed in %s: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEncodeFailed.
func (e *EncodeError) Is(target error) bool {
	return target == ErrEncodeFailed
}

// WriteError reports that the output sink rejected a write.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("session: write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrWriteFailed.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}

// IsCancelled reports whether err is the result of a deliberate cancellation.
// Callers use it to tell user-initiated stops from failures.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
