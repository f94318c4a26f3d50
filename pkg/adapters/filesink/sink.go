// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/webmplay/pkg/ports"
)

// Sink saves debug output to files under a base directory:
//
//	index.json               frame index dump
//	frames/frame-00042.png   published frames
//	report.md                playback report
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

// SaveIndexJSON saves the frame index dump.
func (s *Sink) SaveIndexJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "index.json")
	return s.fs.WriteFile(path, data)
}

// SaveFrame saves a published frame as PNG.
func (s *Sink) SaveFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", index, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%05d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveReport saves the playback report.
func (s *Sink) SaveReport(data []byte) error {
	path := filepath.Join(s.baseDir, "report.md")
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
