package pipeline

import (
	"image"
	"image/color"

	"github.com/user/webmplay/pkg/ports"
)

// =============================================================================
// Pattern Stage Types
// =============================================================================

// PatternTheme defines the colors of generated test frames.
type PatternTheme struct {
	BackgroundColor color.Color
	AccentColor     color.Color
	TextColor       color.Color
}

// DefaultPatternTheme returns the default pattern theme.
func DefaultPatternTheme() PatternTheme {
	return PatternTheme{
		BackgroundColor: color.RGBA{R: 26, G: 26, B: 46, A: 255},
		AccentColor:     color.RGBA{R: 74, G: 222, B: 128, A: 255},
		TextColor:       color.White,
	}
}

// PatternInput contains parameters for drawing test frames.
type PatternInput struct {
	Width  int
	Height int
	FPS    float64
	Frames int
	Label  string // drawn under the frame counter
	Theme  PatternTheme
}

// PatternFrame is one drawn test frame.
type PatternFrame struct {
	Index       int
	TimestampNs int64
	Image       image.Image
}

// PatternResult contains the drawn frames in presentation order.
type PatternResult struct {
	Frames []PatternFrame
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for encoding drawn frames.
type EncodeInput struct {
	Frames  []PatternFrame
	FPS     float64
	Options ports.EncoderOptions
}

// EncodeResult contains the encoded video track.
type EncodeResult struct {
	Stream    ports.EncodedStream
	Keyframes int
	Bytes     int64
}

// =============================================================================
// Mux Stage Types
// =============================================================================

// MuxInput contains the tracks to write and the target container.
type MuxInput struct {
	Streams   []ports.EncodedStream
	Container string // "webm" or "mp4"
}

// MuxResult contains the container bytes.
type MuxResult struct {
	Data      []byte
	Container string
}
