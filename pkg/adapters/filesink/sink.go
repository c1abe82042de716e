// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/gifpress/pkg/ports"
)

// Sink saves debug output under a base directory:
//
//	settings.json         effective job settings
//	result.json           encode result metadata
//	frames/frame-NNNN.png frames as received from the source
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSettingsJSON saves the effective job settings.
func (s *Sink) SaveSettingsJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "settings.json"), data)
}

// SaveResultJSON saves the encode result metadata.
func (s *Sink) SaveResultJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "result.json"), data)
}

// SaveSourceFrame saves a source frame as PNG.
func (s *Sink) SaveSourceFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode source frame %d: %w", index, err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index)), data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
