package gifwriter

import (
	"compress/lzw"
	"fmt"
	"io"
)

// blockWriter splits LZW output into GIF data sub-blocks of at most 255
// bytes, each prefixed by its length.
type blockWriter struct {
	w   io.Writer
	buf [256]byte
	n   int
	err error
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		k := copy(b.buf[1+b.n:], p)
		b.n += k
		total += k
		p = p[k:]
		if b.n == 255 {
			if err := b.flush(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (b *blockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	b.buf[0] = uint8(b.n)
	_, err := b.w.Write(b.buf[:b.n+1])
	b.n = 0
	if err != nil {
		b.err = err
	}
	return err
}

// close flushes the pending sub-block and writes the block terminator.
func (b *blockWriter) close() error {
	if err := b.flush(); err != nil {
		return err
	}
	if _, err := b.w.Write([]byte{0x00}); err != nil {
		b.err = err
		return err
	}
	return nil
}

// writeImageData writes the LZW minimum code size followed by the compressed
// index stream as terminated sub-blocks.
func writeImageData(w io.Writer, indices []uint8, litWidth int) error {
	if _, err := w.Write([]byte{uint8(litWidth)}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	bw := &blockWriter{w: w}
	enc := lzw.NewWriter(bw, lzw.LSB, litWidth)
	if _, err := enc.Write(indices); err != nil {
		enc.Close()
		return classify(bw, err)
	}
	if err := enc.Close(); err != nil {
		return classify(bw, err)
	}
	if err := bw.close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// classify separates sink failures from compressor failures.
func classify(bw *blockWriter, err error) error {
	if bw.err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, bw.err)
	}
	return fmt.Errorf("%w: %w", ErrCompress, err)
}
