package gifwriter

import "errors"

var (
	// ErrWriteFailed wraps any error returned by the underlying sink.
	ErrWriteFailed = errors.New("gifwriter: write failed")

	// ErrInvalidFrame is returned when frame arguments cannot form a valid image block.
	ErrInvalidFrame = errors.New("gifwriter: invalid frame")

	// ErrState is returned when blocks are written out of document order.
	ErrState = errors.New("gifwriter: block written out of order")

	// ErrCompress is returned when LZW compression of an index stream fails.
	ErrCompress = errors.New("gifwriter: lzw compression failed")
)
