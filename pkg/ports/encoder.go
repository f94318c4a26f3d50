package ports

import "image"

// EncoderOptions configures video encoding.
type EncoderOptions struct {
	Quality          int // 0-63, lower is better quality
	Bitrate          int // target bitrate in kbps, 0 derives one from the frame size
	KeyframeInterval int // frames between keyframes, 0 means only the first
	Threads          int
}

// EncodedFrame is one compressed frame or audio packet.
type EncodedFrame struct {
	Data        []byte
	TimestampNs int64
	IsKeyframe  bool
}

// VideoEncoder abstracts video encoding used to produce test streams.
type VideoEncoder interface {
	// CodecID returns the Matroska codec ID of the produced bitstream.
	CodecID() string

	// Begin initializes the encoder with the specified parameters.
	Begin(width, height int, fps float64, opts EncoderOptions) error

	// EncodeFrame encodes one picture and returns the frames that became available.
	EncodeFrame(img image.Image) ([]EncodedFrame, error)

	// End flushes the encoder and returns the remaining frames.
	End() ([]EncodedFrame, error)
}

// EncodedStream is a track worth of compressed frames ready for muxing.
type EncodedStream struct {
	Type         TrackType
	CodecID      string
	CodecPrivate []byte

	Width     int
	Height    int
	FrameRate float64

	SampleRate float64
	Channels   int

	Frames []EncodedFrame
}

// Muxer writes encoded streams into a container.
type Muxer interface {
	// Mux returns the container bytes for the given streams.
	Mux(streams []EncodedStream) ([]byte, error)
}
