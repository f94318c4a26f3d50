package mocks

import (
	"errors"
	"sync"

	"github.com/user/webmplay/pkg/ports"
)

// AudioCodec is a mock implementation of ports.AudioCodec.
type AudioCodec struct {
	SupportsFunc func(codecID string) bool
	OpenFunc     func(codecID string) (ports.AudioDecoder, error)

	// Defaults for decoders opened without OpenFunc.
	SampleRate int
	Channels   int

	Decoders []*AudioDecoder
}

func (m *AudioCodec) Supports(codecID string) bool {
	if m.SupportsFunc != nil {
		return m.SupportsFunc(codecID)
	}
	return codecID == "A_VORBIS"
}

func (m *AudioCodec) Open(codecID string) (ports.AudioDecoder, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(codecID)
	}
	d := &AudioDecoder{Rate: m.SampleRate, Chans: m.Channels}
	m.Decoders = append(m.Decoders, d)
	return d, nil
}

var _ ports.AudioCodec = (*AudioCodec)(nil)

// AudioDecoder is a mock implementation of ports.AudioDecoder. Every
// packet byte decodes to one sample with the byte's value.
type AudioDecoder struct {
	Rate  int
	Chans int

	ReadHeaderFunc func(header []byte) error
	DecodeFunc     func(packet []byte) ([]float32, error)

	Headers    [][]byte
	Resets     int
	DecodeCall int

	buf []float32
}

func (m *AudioDecoder) ReadHeader(header []byte) error {
	if m.ReadHeaderFunc != nil {
		if err := m.ReadHeaderFunc(header); err != nil {
			return err
		}
	}
	m.Headers = append(m.Headers, header)
	return nil
}

func (m *AudioDecoder) Decode(packet []byte) ([]float32, error) {
	m.DecodeCall++
	if m.DecodeFunc != nil {
		return m.DecodeFunc(packet)
	}
	if len(m.Headers) < 3 {
		return nil, errors.New("headers not read")
	}
	m.buf = m.buf[:0]
	for _, b := range packet {
		m.buf = append(m.buf, float32(b))
	}
	return m.buf, nil
}

func (m *AudioDecoder) Reset() {
	m.Resets++
}

func (m *AudioDecoder) SampleRate() int {
	return m.Rate
}

func (m *AudioDecoder) Channels() int {
	return m.Chans
}

var _ ports.AudioDecoder = (*AudioDecoder)(nil)

// AudioDevice is a mock implementation of ports.AudioDevice. It never
// calls back on its own; tests drive the callback with Pull.
type AudioDevice struct {
	mu sync.Mutex

	OpenFunc  func(format ports.AudioFormat, cb ports.AudioCallback) error
	StartFunc func() error

	Format   ports.AudioFormat
	Callback ports.AudioCallback
	Started  bool
	Closed   bool

	// Events records the lifecycle calls in order.
	Events []string
}

func (m *AudioDevice) Open(format ports.AudioFormat, cb ports.AudioCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, "open")
	if m.OpenFunc != nil {
		if err := m.OpenFunc(format, cb); err != nil {
			return err
		}
	}
	m.Format = format
	m.Callback = cb
	m.Closed = false
	return nil
}

func (m *AudioDevice) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, "start")
	if m.StartFunc != nil {
		if err := m.StartFunc(); err != nil {
			return err
		}
	}
	m.Started = true
	return nil
}

func (m *AudioDevice) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, "stop")
	m.Started = false
	return nil
}

func (m *AudioDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, "close")
	m.Closed = true
	m.Callback = nil
	return nil
}

// Pull invokes the callback for frames frames and returns the output.
func (m *AudioDevice) Pull(frames int) []float32 {
	m.mu.Lock()
	cb, ch := m.Callback, m.Format.Channels
	m.mu.Unlock()
	out := make([]float32, frames*ch)
	if cb != nil {
		cb(out, frames, ch)
	}
	return out
}

var _ ports.AudioDevice = (*AudioDevice)(nil)
