package gifwriter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/user/gifpress/pkg/ports"
	"github.com/user/gifpress/pkg/testutil"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func filled(n int, v uint8) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestWriter_TwoFrameDocument(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteHeader(ScreenDescriptor{Width: 8, Height: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteLoopExtension(ports.LoopForever()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := w.WriteFrame(
		GraphicControl{Delay: 10, Disposal: DisposalNone, Transparent: NoTransparency},
		ImageDescriptor{Width: 8, Height: 4},
		filled(32, 0),
		[]color.RGBA{red},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = w.WriteFrame(
		GraphicControl{Delay: 25, Disposal: DisposalNone, Transparent: 1},
		ImageDescriptor{Left: 2, Top: 1, Width: 3, Height: 2},
		[]uint8{0, 1, 0, 1, 0, 1},
		[]color.RGBA{green, {}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteTrailer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", w.Frames())
	}
	if w.BytesWritten() != int64(buf.Len()) {
		t.Errorf("expected %d bytes counted, got %d", buf.Len(), w.BytesWritten())
	}

	g, err := gif.DecodeAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.Image) != 2 {
		t.Fatalf("expected 2 images, got %d", len(g.Image))
	}
	if g.LoopCount != 0 {
		t.Errorf("expected loop count 0 (forever), got %d", g.LoopCount)
	}
	if g.Config.Width != 8 || g.Config.Height != 4 {
		t.Errorf("expected 8x4 screen, got %dx%d", g.Config.Width, g.Config.Height)
	}
	if g.Delay[0] != 10 || g.Delay[1] != 25 {
		t.Errorf("expected delays [10 25], got %v", g.Delay)
	}
	if g.Disposal[1] != gif.DisposalNone {
		t.Errorf("expected DisposalNone, got %d", g.Disposal[1])
	}
	if g.Image[1].Bounds() != image.Rect(2, 1, 5, 3) {
		t.Errorf("unexpected second frame bounds %v", g.Image[1].Bounds())
	}

	r, gg, b, _ := g.Image[0].At(3, 2).RGBA()
	if r>>8 != 255 || gg != 0 || b != 0 {
		t.Errorf("expected red pixel, got %d,%d,%d", r>>8, gg>>8, b>>8)
	}
	_, _, _, a := g.Image[1].At(3, 1).RGBA()
	if a != 0 {
		t.Errorf("expected transparent pixel at (3,1), got alpha %d", a)
	}
}

func TestWriter_LoopExtension(t *testing.T) {
	tests := []struct {
		name   string
		policy ports.LoopPolicy
		want   int
	}{
		{"forever", ports.LoopForever(), 0},
		{"never", ports.LoopNever(), -1},
		{"repeat three", ports.LoopRepeat(3), 3},
		{"repeat zero", ports.LoopRepeat(0), -1},
		{"repeat clamped", ports.LoopRepeat(100000), 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			mustWriteSimpleDocument(t, w, tt.policy)

			doc, err := testutil.ParseStructure(buf.Bytes())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if doc.LoopCount != tt.want {
				t.Errorf("expected loop count %d, got %d", tt.want, doc.LoopCount)
			}
		})
	}
}

func TestWriter_SubBlocksAndCodeSize(t *testing.T) {
	const w, h = 97, 61
	indices := make([]uint8, w*h)
	state := uint32(7)
	for i := range indices {
		state = state*1103515245 + 12345
		indices[i] = uint8(state >> 16)
	}
	palette := make([]color.RGBA, 256)
	for i := range palette {
		palette[i] = color.RGBA{R: uint8(i), G: uint8(255 - i), B: uint8(i * 3), A: 255}
	}

	var buf bytes.Buffer
	gw := NewWriter(&buf)
	if err := gw.WriteHeader(ScreenDescriptor{Width: w, Height: h}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gc := GraphicControl{Delay: 4, Transparent: NoTransparency}
	if err := gw.WriteFrame(gc, ImageDescriptor{Width: w, Height: h}, indices, palette); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := gw.WriteFrame(gc, ImageDescriptor{Width: 1, Height: 1}, []uint8{0}, palette[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := gw.WriteTrailer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := testutil.ParseStructure(buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !doc.Trailer {
		t.Error("expected trailer")
	}
	if len(doc.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(doc.Frames))
	}
	first := doc.Frames[0]
	if first.MaxSubBlock > 255 {
		t.Errorf("sub-block of %d bytes exceeds 255", first.MaxSubBlock)
	}
	if first.DataSubBlock < 2 {
		t.Errorf("expected image data split into several sub-blocks, got %d", first.DataSubBlock)
	}
	if first.MinCodeSize != 8 || first.PaletteSize != 256 {
		t.Errorf("expected code size 8 and 256 colors, got %d and %d", first.MinCodeSize, first.PaletteSize)
	}
	second := doc.Frames[1]
	if second.MinCodeSize != 2 || second.PaletteSize != 2 {
		t.Errorf("expected code size 2 and 2 colors for a 1-color frame, got %d and %d",
			second.MinCodeSize, second.PaletteSize)
	}

	g, err := gif.DecodeAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(g.Image[0].Pix, indices) {
		t.Error("decoded indices differ from the written ones")
	}
}

func TestWriter_OrderErrors(t *testing.T) {
	gc := GraphicControl{Delay: 1, Transparent: NoTransparency}
	id := ImageDescriptor{Width: 1, Height: 1}
	pal := []color.RGBA{red}

	t.Run("frame before header", func(t *testing.T) {
		w := NewWriter(&bytes.Buffer{})
		if err := w.WriteFrame(gc, id, []uint8{0}, pal); !errors.Is(err, ErrState) {
			t.Errorf("expected ErrState, got %v", err)
		}
	})

	t.Run("trailer without frames", func(t *testing.T) {
		w := NewWriter(&bytes.Buffer{})
		if err := w.WriteHeader(ScreenDescriptor{Width: 1, Height: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.WriteTrailer(); !errors.Is(err, ErrState) {
			t.Errorf("expected ErrState, got %v", err)
		}
	})

	t.Run("loop extension after frame", func(t *testing.T) {
		w := NewWriter(&bytes.Buffer{})
		if err := w.WriteHeader(ScreenDescriptor{Width: 1, Height: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.WriteFrame(gc, id, []uint8{0}, pal); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.WriteLoopExtension(ports.LoopForever()); !errors.Is(err, ErrState) {
			t.Errorf("expected ErrState, got %v", err)
		}
	})

	t.Run("header twice", func(t *testing.T) {
		w := NewWriter(&bytes.Buffer{})
		if err := w.WriteHeader(ScreenDescriptor{Width: 1, Height: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.WriteHeader(ScreenDescriptor{Width: 1, Height: 1}); !errors.Is(err, ErrState) {
			t.Errorf("expected ErrState, got %v", err)
		}
	})
}

func TestWriter_InvalidFrames(t *testing.T) {
	tests := []struct {
		name    string
		gc      GraphicControl
		id      ImageDescriptor
		indices []uint8
		palette []color.RGBA
	}{
		{"outside screen", GraphicControl{Transparent: NoTransparency}, ImageDescriptor{Left: 3, Width: 2, Height: 1}, []uint8{0, 0}, []color.RGBA{red}},
		{"index count", GraphicControl{Transparent: NoTransparency}, ImageDescriptor{Width: 2, Height: 2}, []uint8{0}, []color.RGBA{red}},
		{"empty palette", GraphicControl{Transparent: NoTransparency}, ImageDescriptor{Width: 1, Height: 1}, []uint8{0}, nil},
		{"index outside palette", GraphicControl{Transparent: NoTransparency}, ImageDescriptor{Width: 1, Height: 1}, []uint8{2}, []color.RGBA{red, blue}},
		{"transparent outside palette", GraphicControl{Transparent: 5}, ImageDescriptor{Width: 1, Height: 1}, []uint8{0}, []color.RGBA{red}},
		{"zero size", GraphicControl{Transparent: NoTransparency}, ImageDescriptor{Width: 0, Height: 1}, nil, []color.RGBA{red}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(&bytes.Buffer{})
			if err := w.WriteHeader(ScreenDescriptor{Width: 4, Height: 4}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := w.WriteFrame(tt.gc, tt.id, tt.indices, tt.palette); !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("expected ErrInvalidFrame, got %v", err)
			}
		})
	}
}

func TestWriter_InvalidScreen(t *testing.T) {
	for _, sd := range []ScreenDescriptor{{0, 1}, {1, 0}, {70000, 1}} {
		w := NewWriter(&bytes.Buffer{})
		if err := w.WriteHeader(sd); !errors.Is(err, ErrInvalidFrame) {
			t.Errorf("%v: expected ErrInvalidFrame, got %v", sd, err)
		}
	}
}

type failingWriter struct {
	failAfter int
	written   int
}

var errDiskFull = errors.New("disk full")

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.written+len(p) > f.failAfter {
		return 0, errDiskFull
	}
	f.written += len(p)
	return len(p), nil
}

func TestWriter_SinkFailure(t *testing.T) {
	sink := &failingWriter{failAfter: 20}
	w := NewWriter(sink)

	if err := w.WriteHeader(ScreenDescriptor{Width: 16, Height: 16}); err != nil {
		t.Fatalf("header is buffered, unexpected error: %v", err)
	}
	err := w.WriteFrame(
		GraphicControl{Delay: 1, Transparent: NoTransparency},
		ImageDescriptor{Width: 16, Height: 16},
		filled(256, 0),
		[]color.RGBA{red},
	)
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("expected underlying cause to be preserved, got %v", err)
	}

	if err := w.WriteTrailer(); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected sticky ErrWriteFailed, got %v", err)
	}
}

func mustWriteSimpleDocument(t *testing.T, w *Writer, policy ports.LoopPolicy) {
	t.Helper()
	if err := w.WriteHeader(ScreenDescriptor{Width: 2, Height: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteLoopExtension(policy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range []color.RGBA{red, blue} {
		gc := GraphicControl{Delay: 10, Disposal: DisposalNone, Transparent: NoTransparency}
		if err := w.WriteFrame(gc, ImageDescriptor{Width: 2, Height: 2}, filled(4, 0), []color.RGBA{c}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := w.WriteTrailer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
