package ports

import (
	"image"
)

// DebugSink abstracts debug output produced while playing.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveIndexJSON saves the frame index dump.
	SaveIndexJSON(data []byte) error

	// SaveFrame saves a published frame, already converted to RGBA.
	SaveFrame(index int, img image.Image) error

	// SaveReport saves the playback report.
	SaveReport(data []byte) error
}
