package ports

import "iter"

// TrackType identifies the kind of media carried by a track.
type TrackType int

const (
	TrackUnknown TrackType = iota
	TrackVideo
	TrackAudio
	TrackSubtitle
	TrackMetadata
)

// String returns the string representation of the track type.
func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackSubtitle:
		return "subtitle"
	case TrackMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Track describes one track of a parsed container.
type Track struct {
	Number  uint64
	Type    TrackType
	CodecID string // Matroska-style codec ID, e.g. "V_VP9", "A_VORBIS"

	// CodecPrivate holds codec setup data (Xiph-laced headers for Vorbis).
	CodecPrivate []byte

	// Video timing and geometry. Zero means "not declared".
	DefaultFrameDurationNs uint64
	FrameRate              float64
	Width                  int
	Height                 int

	// Audio format. Zero means "not declared".
	SampleRate float64
	Channels   int
	BitDepth   int
}

// FrameRange locates one codec frame inside Container.Body.
type FrameRange struct {
	Offset uint64
	Length uint32
}

// Block is a container-level unit holding one or more codec frames.
type Block struct {
	IsKey  bool
	Frames []FrameRange
}

// Container abstracts a parsed media container.
// Frame ranges returned by Blocks index into the slice returned by Body,
// which stays valid for the lifetime of the container.
type Container interface {
	// Tracks returns all tracks in declaration order.
	Tracks() []Track

	// SegmentDurationNs returns the total segment duration, or 0 when unknown.
	SegmentDurationNs() uint64

	// Blocks iterates the blocks of a track in presentation order.
	Blocks(trackNumber uint64) iter.Seq[Block]

	// Body returns the byte buffer frame ranges point into.
	Body() []byte
}

// ContainerParser parses raw container bytes.
type ContainerParser interface {
	// Parse parses data and returns the container.
	// The returned container may share data.
	Parse(data []byte) (Container, error)
}
