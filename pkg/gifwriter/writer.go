// Package gifwriter serializes GIF89a documents block by block.
//
// A document is written as WriteHeader, an optional WriteLoopExtension, one
// WriteFrame per image and WriteTrailer. Each frame is flushed to the sink as
// soon as it is written, so only the current frame is held in memory.
package gifwriter

import (
	"bufio"
	"fmt"
	"image/color"
	"io"

	"github.com/user/gifpress/pkg/ports"
)

// Disposal is the GIF disposal method of a frame.
type Disposal uint8

const (
	DisposalUnspecified Disposal = 0
	DisposalNone        Disposal = 1 // leave the frame in place ("do not dispose")
	DisposalBackground  Disposal = 2
	DisposalPrevious    Disposal = 3
)

// maxDimension is the largest width, height or offset a GIF can express.
const maxDimension = 0xffff

// NoTransparency marks a GraphicControl without a transparent index.
const NoTransparency = -1

// ScreenDescriptor describes the logical screen.
type ScreenDescriptor struct {
	Width  int
	Height int
}

// GraphicControl holds the graphic control extension fields of one frame.
type GraphicControl struct {
	Delay       uint16 // Centiseconds
	Disposal    Disposal
	Transparent int // Palette index, or NoTransparency
}

// ImageDescriptor positions a frame on the logical screen.
type ImageDescriptor struct {
	Left   int
	Top    int
	Width  int
	Height int
}

type writerState int

const (
	stateNew writerState = iota
	stateHeader
	stateFrames
	stateClosed
)

// Writer writes a GIF document to an io.Writer.
type Writer struct {
	out    *countingWriter
	bw     *bufio.Writer
	screen ScreenDescriptor
	state  writerState
	frames int
	err    error
}

// NewWriter returns a Writer that appends to w.
func NewWriter(w io.Writer) *Writer {
	out := &countingWriter{w: w}
	return &Writer{
		out: out,
		bw:  bufio.NewWriter(out),
	}
}

// Frames returns the number of image blocks written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// BytesWritten returns the number of bytes delivered to the sink.
func (w *Writer) BytesWritten() int64 {
	return w.out.n
}

// WriteHeader writes the signature and logical screen descriptor.
// No global color table is written; every frame carries a local one.
func (w *Writer) WriteHeader(sd ScreenDescriptor) error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateNew {
		return fmt.Errorf("%w: header already written", ErrState)
	}
	if sd.Width < 1 || sd.Height < 1 || sd.Width > maxDimension || sd.Height > maxDimension {
		return fmt.Errorf("%w: screen %dx%d", ErrInvalidFrame, sd.Width, sd.Height)
	}

	var b [13]byte
	copy(b[:6], "GIF89a")
	putUint16(b[6:], sd.Width)
	putUint16(b[8:], sd.Height)
	b[10] = 0x00 // no global color table
	b[11] = 0x00 // background color index
	b[12] = 0x00 // pixel aspect ratio
	if err := w.write(b[:]); err != nil {
		return err
	}

	w.screen = sd
	w.state = stateHeader
	return nil
}

// WriteLoopExtension writes the NETSCAPE2.0 application extension.
// Nothing is written for policies that play once.
func (w *Writer) WriteLoopExtension(policy ports.LoopPolicy) error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateHeader {
		return fmt.Errorf("%w: loop extension must follow the header", ErrState)
	}

	var count int
	switch policy.Mode {
	case ports.LoopModeForever:
		count = 0
	case ports.LoopModeRepeat:
		if policy.Count <= 0 {
			return nil
		}
		count = policy.Count
		if count > maxDimension {
			count = maxDimension
		}
	default:
		return nil
	}

	b := []byte{0x21, 0xff, 0x0b}
	b = append(b, "NETSCAPE2.0"...)
	b = append(b, 0x03, 0x01, uint8(count), uint8(count>>8), 0x00)
	return w.write(b)
}

// WriteFrame writes a graphic control extension, an image descriptor with a
// local color table, and the LZW-compressed indices.
func (w *Writer) WriteFrame(gc GraphicControl, id ImageDescriptor, indices []uint8, palette []color.RGBA) error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateHeader && w.state != stateFrames {
		return fmt.Errorf("%w: frame written before header or after trailer", ErrState)
	}
	if err := w.validateFrame(gc, id, indices, palette); err != nil {
		return err
	}

	bits := tableBits(len(palette))

	var flags uint8
	transparent := uint8(0)
	if gc.Transparent != NoTransparency {
		flags |= 0x01
		transparent = uint8(gc.Transparent)
	}
	flags |= uint8(gc.Disposal&0x07) << 2

	block := make([]byte, 0, 8+10+3*(1<<bits))
	block = append(block, 0x21, 0xf9, 0x04, flags, uint8(gc.Delay), uint8(gc.Delay>>8), transparent, 0x00)

	block = append(block, 0x2c)
	block = appendUint16(block, id.Left)
	block = appendUint16(block, id.Top)
	block = appendUint16(block, id.Width)
	block = appendUint16(block, id.Height)
	block = append(block, 0x80|uint8(bits-1))

	for i := 0; i < 1<<bits; i++ {
		if i < len(palette) {
			c := palette[i]
			block = append(block, c.R, c.G, c.B)
		} else {
			block = append(block, 0, 0, 0)
		}
	}
	if err := w.write(block); err != nil {
		return err
	}

	litWidth := bits
	if litWidth < 2 {
		litWidth = 2
	}
	if err := writeImageData(w.bw, indices, litWidth); err != nil {
		w.err = err
		return err
	}
	if err := w.flush(); err != nil {
		return err
	}

	w.frames++
	w.state = stateFrames
	return nil
}

// WriteTrailer terminates the document and flushes the sink.
func (w *Writer) WriteTrailer() error {
	if w.err != nil {
		return w.err
	}
	if w.state != stateFrames {
		return fmt.Errorf("%w: trailer requires at least one frame", ErrState)
	}
	if err := w.write([]byte{0x3b}); err != nil {
		return err
	}
	if err := w.flush(); err != nil {
		return err
	}
	w.state = stateClosed
	return nil
}

func (w *Writer) validateFrame(gc GraphicControl, id ImageDescriptor, indices []uint8, palette []color.RGBA) error {
	if id.Width < 1 || id.Height < 1 || id.Left < 0 || id.Top < 0 ||
		id.Left+id.Width > w.screen.Width || id.Top+id.Height > w.screen.Height {
		return fmt.Errorf("%w: image %dx%d at (%d,%d) outside %dx%d screen", ErrInvalidFrame,
			id.Width, id.Height, id.Left, id.Top, w.screen.Width, w.screen.Height)
	}
	if len(indices) != id.Width*id.Height {
		return fmt.Errorf("%w: %d indices for %dx%d image", ErrInvalidFrame, len(indices), id.Width, id.Height)
	}
	if len(palette) < 1 || len(palette) > 256 {
		return fmt.Errorf("%w: palette has %d entries", ErrInvalidFrame, len(palette))
	}
	if gc.Transparent != NoTransparency && (gc.Transparent < 0 || gc.Transparent >= len(palette)) {
		return fmt.Errorf("%w: transparent index %d outside palette", ErrInvalidFrame, gc.Transparent)
	}
	for i, idx := range indices {
		if int(idx) >= len(palette) {
			return fmt.Errorf("%w: index %d at pixel %d outside palette", ErrInvalidFrame, idx, i)
		}
	}
	return nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.bw.Write(p); err != nil {
		w.err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		return w.err
	}
	return nil
}

func (w *Writer) flush() error {
	if err := w.bw.Flush(); err != nil {
		w.err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		return w.err
	}
	return nil
}

// tableBits returns the smallest b >= 1 with 1<<b >= n.
func tableBits(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}

func putUint16(b []byte, v int) {
	b[0] = uint8(v)
	b[1] = uint8(v >> 8)
}

func appendUint16(b []byte, v int) []byte {
	return append(b, uint8(v), uint8(v>>8))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
