package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/gifpress/pkg/mocks"
	"github.com/user/gifpress/pkg/ports"
)

var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveJSON(t *testing.T) {
	tests := []struct {
		name string
		save func(*Sink, []byte) error
		file string
	}{
		{"settings", (*Sink).SaveSettingsJSON, "settings.json"},
		{"result", (*Sink).SaveResultJSON, "result.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mocks.NewFileSystem()
			sink := New(testBaseDir, fs, &mocks.Renderer{})

			data := []byte(`{"frames": 3}`)
			if err := tt.save(sink, data); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			path := filepath.Join(testBaseDir, tt.file)
			saved, ok := fs.GetFile(path)
			if !ok {
				t.Fatalf("expected file at %s", path)
			}
			if string(saved) != string(data) {
				t.Errorf("expected %q, got %q", data, saved)
			}
		})
	}
}

func TestSink_SaveSourceFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotFormat ports.ImageFormat
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotFormat = format
			return []byte("png"), nil
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SaveSourceFrame(7, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFormat != ports.FormatPNG {
		t.Errorf("expected PNG encoding, got %v", gotFormat)
	}
	path := filepath.Join(testBaseDir, "frames", "frame-0007.png")
	if data, ok := fs.GetFile(path); !ok || string(data) != "png" {
		t.Errorf("expected frame at %s, got %q (found=%v)", path, data, ok)
	}
}

func TestSink_SaveSourceFrameEncodeError(t *testing.T) {
	errEncode := errors.New("encode failed")
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(image.Image, ports.ImageFormat, int) ([]byte, error) {
			return nil, errEncode
		},
	}
	sink := New(testBaseDir, mocks.NewFileSystem(), renderer)

	if err := sink.SaveSourceFrame(0, image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, errEncode) {
		t.Errorf("expected encode error, got %v", err)
	}
}
