package mocks

import (
	"image"
	"sync"

	"github.com/user/webmplay/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
// Every encoded picture yields one frame whose payload is the frame number
// in the NewFrameContainer encoding. Frame 0 is a keyframe.
type VideoEncoder struct {
	mu sync.Mutex

	ID              string
	BeginFunc       func(width, height int, fps float64, opts ports.EncoderOptions) error
	EncodeFrameFunc func(img image.Image) ([]ports.EncodedFrame, error)

	// Recorded calls for verification
	BeginCalled      bool
	BeginOptions     ports.EncoderOptions
	EncodeFrameCalls int
	EndCalled        bool

	fps float64
}

func (m *VideoEncoder) CodecID() string {
	if m.ID != "" {
		return m.ID
	}
	return "V_VP8"
}

func (m *VideoEncoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeginCalled = true
	m.BeginOptions = opts
	m.fps = fps
	if m.BeginFunc != nil {
		return m.BeginFunc(width, height, fps, opts)
	}
	return nil
}

func (m *VideoEncoder) EncodeFrame(img image.Image) ([]ports.EncodedFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.EncodeFrameCalls
	m.EncodeFrameCalls++
	if m.EncodeFrameFunc != nil {
		return m.EncodeFrameFunc(img)
	}
	ts := int64(0)
	if m.fps > 0 {
		ts = int64(float64(n) * 1e9 / m.fps)
	}
	return []ports.EncodedFrame{{
		Data:        frameBytes(n),
		TimestampNs: ts,
		IsKeyframe:  n == 0,
	}}, nil
}

func (m *VideoEncoder) End() ([]ports.EncodedFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndCalled = true
	return nil, nil
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)

// Muxer is a mock implementation of ports.Muxer.
type Muxer struct {
	MuxFunc func(streams []ports.EncodedStream) ([]byte, error)

	// Streams records the last Mux input.
	Streams []ports.EncodedStream
}

func (m *Muxer) Mux(streams []ports.EncodedStream) ([]byte, error) {
	m.Streams = streams
	if m.MuxFunc != nil {
		return m.MuxFunc(streams)
	}
	return []byte("muxed"), nil
}

var _ ports.Muxer = (*Muxer)(nil)

// ContainerParser is a mock implementation of ports.ContainerParser.
type ContainerParser struct {
	ParseFunc func(data []byte) (ports.Container, error)

	// Container is returned when ParseFunc is nil.
	Container ports.Container

	ParseCalls int
}

func (m *ContainerParser) Parse(data []byte) (ports.Container, error) {
	m.ParseCalls++
	if m.ParseFunc != nil {
		return m.ParseFunc(data)
	}
	return m.Container, nil
}

var _ ports.ContainerParser = (*ContainerParser)(nil)
