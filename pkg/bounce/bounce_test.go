package bounce

import (
	"errors"
	"math"
	"testing"

	"github.com/user/gifpress/pkg/ports"
)

type recorder struct {
	frames []ports.PixelFrame
	failAt int
}

var errStop = errors.New("stop")

func (r *recorder) emit(f ports.PixelFrame) error {
	if r.failAt > 0 && len(r.frames)+1 == r.failAt {
		return errStop
	}
	r.frames = append(r.frames, f)
	return nil
}

func frame(index int, ts float64, tag byte) ports.PixelFrame {
	return ports.PixelFrame{Index: index, Width: 1, Height: 1, Pixels: []byte{tag, 0, 0, 255}, Timestamp: ts}
}

func TestTotalFrames(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0}, {-3, 0}, {1, 1}, {2, 3}, {10, 19},
	}
	for _, tt := range tests {
		if got := TotalFrames(tt.n); got != tt.want {
			t.Errorf("TotalFrames(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBouncer_ReverseOrder(t *testing.T) {
	rec := &recorder{}
	b := New(rec.emit, Options{FrameRate: 10})

	for i := 0; i < 4; i++ {
		if err := b.Push(frame(i, float64(i)/10, byte(i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.frames) != TotalFrames(4) {
		t.Fatalf("expected %d frames, got %d", TotalFrames(4), len(rec.frames))
	}
	if b.Emitted() != 7 {
		t.Errorf("expected Emitted 7, got %d", b.Emitted())
	}

	wantTags := []byte{0, 1, 2, 3, 2, 1, 0}
	for i, f := range rec.frames {
		if f.Pixels[0] != wantTags[i] {
			t.Errorf("frame %d: expected source %d, got %d", i, wantTags[i], f.Pixels[0])
		}
		if f.Index != i {
			t.Errorf("frame %d: expected index %d, got %d", i, i, f.Index)
		}
		if i > 0 && f.Timestamp <= rec.frames[i-1].Timestamp {
			t.Errorf("frame %d: timestamp %v not after %v", i, f.Timestamp, rec.frames[i-1].Timestamp)
		}
	}
	if math.Abs(rec.frames[6].Timestamp-0.6) > 1e-9 {
		t.Errorf("expected last timestamp 0.6, got %v", rec.frames[6].Timestamp)
	}
}

func TestBouncer_ReverseSpacing(t *testing.T) {
	// Irregular forward timing spanning 0.5s.
	forward := []float64{0, 0.05, 0.3, 0.5}

	tests := []struct {
		name      string
		frameRate float64
		step      float64
	}{
		{"unknown rate uses the forward mean", 0, 0.5 / 3},
		{"slippage within half an interval", 5, 0.5 / 3},
		{"fast source clamps to 1.5 intervals", 10, 0.15},
		{"slow source clamps to half an interval", 2.5, 0.2},
		{"slower source", 2, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			b := New(rec.emit, Options{FrameRate: tt.frameRate})
			for i, ts := range forward {
				if err := b.Push(frame(i, ts, byte(i))); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if err := b.Finish(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			reverse := rec.frames[4:]
			prev := 0.5
			for i, f := range reverse {
				if d := f.Timestamp - prev; math.Abs(d-tt.step) > 1e-9 {
					t.Errorf("reverse frame %d: expected interval %.4f, got %.4f", i, tt.step, d)
				}
				prev = f.Timestamp
			}
			if end := 0.5 + 3*tt.step; math.Abs(reverse[2].Timestamp-end) > 1e-9 {
				t.Errorf("expected reverse pass to end at %.4f, got %.4f", end, reverse[2].Timestamp)
			}
		})
	}
}

func TestStep(t *testing.T) {
	tests := []struct {
		name        string
		first, last float64
		n           int
		frameRate   float64
		want        float64
	}{
		{"single frame", 0, 0, 1, 10, 0},
		{"regular source", 0, 0.3, 4, 10, 0.1},
		{"regular source without rate", 1, 1.4, 3, 0, 0.2},
		{"small slippage kept", 0, 0.33, 4, 10, 0.11},
		{"frozen source", 2, 2, 5, 10, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Step(tt.first, tt.last, tt.n, tt.frameRate); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.4f, got %.4f", tt.want, got)
			}
		})
	}
}

func TestBouncer_UnknownFrameRate(t *testing.T) {
	rec := &recorder{}
	b := New(rec.emit, Options{})

	for i, ts := range []float64{1, 1.2, 1.4} {
		if err := b.Push(frame(i+5, ts, byte(i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(rec.frames))
	}
	if rec.frames[3].Index != 8 || rec.frames[4].Index != 9 {
		t.Errorf("expected reverse indices 8 and 9, got %d and %d", rec.frames[3].Index, rec.frames[4].Index)
	}
	if math.Abs(rec.frames[4].Timestamp-1.8) > 1e-9 {
		t.Errorf("expected final timestamp 1.8, got %v", rec.frames[4].Timestamp)
	}
}

func TestBouncer_SingleFrame(t *testing.T) {
	rec := &recorder{}
	b := New(rec.emit, Options{FrameRate: 30})

	if err := b.Push(frame(0, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.frames) != 1 {
		t.Errorf("expected 1 frame, got %d", len(rec.frames))
	}
}

func TestBouncer_PushAfterFinish(t *testing.T) {
	b := New((&recorder{}).emit, Options{})
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Push(frame(0, 0, 0)); !errors.Is(err, ErrFinished) {
		t.Errorf("expected ErrFinished, got %v", err)
	}
	if err := b.Finish(); !errors.Is(err, ErrFinished) {
		t.Errorf("expected ErrFinished on second Finish, got %v", err)
	}
}

func TestBouncer_EmitErrorStopsReverse(t *testing.T) {
	rec := &recorder{failAt: 5}
	b := New(rec.emit, Options{FrameRate: 10})
	for i := 0; i < 4; i++ {
		if err := b.Push(frame(i, float64(i)/10, byte(i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := b.Finish(); !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}
	if len(rec.frames) != 4 {
		t.Errorf("expected 4 frames before the failure, got %d", len(rec.frames))
	}
}
