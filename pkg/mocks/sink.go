package mocks

import (
	"image"
	"sync"

	"github.com/user/webmplay/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SaveIndexJSONFunc func(data []byte) error

	IndexJSON []byte
	Frames    map[int]image.Image
	Report    []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveIndexJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveIndexJSONFunc != nil {
		if err := m.SaveIndexJSONFunc(data); err != nil {
			return err
		}
	}
	m.IndexJSON = data
	return nil
}

func (m *DebugSink) SaveFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[index] = img
	return nil
}

func (m *DebugSink) SaveReport(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Report = data
	return nil
}

// FrameCount returns the number of saved frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
