package mocks

import (
	"encoding/binary"
	"sync"

	"github.com/user/webmplay/pkg/ports"
)

// VideoCodec is a mock implementation of ports.VideoCodec.
// Unless overridden, every codec ID is supported and opens a VideoDecoder.
type VideoCodec struct {
	mu sync.Mutex

	Families   map[string]ports.CodecFamily
	FamilyFunc func(codecID string) (ports.CodecFamily, bool)
	OpenFunc   func(codecID string, threads int) (ports.VideoDecoder, error)

	// DecodeFunc is installed on every decoder opened by default.
	DecodeFunc func(data []byte) error

	// Recorded calls for verification
	OpenCalls []OpenCall
	Decoders  []*VideoDecoder
}

// OpenCall records a call to Open.
type OpenCall struct {
	CodecID string
	Threads int
}

func (m *VideoCodec) Family(codecID string) (ports.CodecFamily, bool) {
	if m.FamilyFunc != nil {
		return m.FamilyFunc(codecID)
	}
	if m.Families != nil {
		f, ok := m.Families[codecID]
		return f, ok
	}
	return ports.CodecFamily{Name: codecID}, true
}

func (m *VideoCodec) Open(codecID string, threads int) (ports.VideoDecoder, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, OpenCall{CodecID: codecID, Threads: threads})
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(codecID, threads)
	}
	d := &VideoDecoder{DecodeFunc: m.DecodeFunc}
	m.mu.Lock()
	m.Decoders = append(m.Decoders, d)
	m.mu.Unlock()
	return d, nil
}

// Decoded returns the frame numbers fed to all decoders, in order.
func (m *VideoCodec) Decoded() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, d := range m.Decoders {
		out = append(out, d.Decoded...)
	}
	return out
}

// Current returns the most recently opened decoder.
func (m *VideoCodec) Current() *VideoDecoder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Decoders) == 0 {
		return nil
	}
	return m.Decoders[len(m.Decoders)-1]
}

var _ ports.VideoCodec = (*VideoCodec)(nil)

// VideoDecoder is a mock implementation of ports.VideoDecoder. It decodes
// payloads from NewFrameContainer into 2x2 I420 images whose luma plane
// carries the frame number.
type VideoDecoder struct {
	DecodeFunc func(data []byte) error

	Decoded []int
	Closed  bool

	pending *ports.Image
}

func (m *VideoDecoder) Decode(data []byte) error {
	if m.DecodeFunc != nil {
		if err := m.DecodeFunc(data); err != nil {
			return err
		}
	}
	n := FrameNumber(data)
	m.Decoded = append(m.Decoded, n)
	m.pending = FrameImage(n)
	return nil
}

func (m *VideoDecoder) NextImage() (*ports.Image, bool) {
	if m.pending == nil {
		return nil, false
	}
	img := m.pending
	m.pending = nil
	return img, true
}

func (m *VideoDecoder) Close() {
	m.Closed = true
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)

// FrameImage returns the image a mock decoder produces for frame n.
func FrameImage(n int) *ports.Image {
	y := binary.LittleEndian.AppendUint32(nil, uint32(n))
	return &ports.Image{
		Format:     ports.PixelFormatI420,
		ColorSpace: ports.ColorSpaceBT601,
		Width:      2,
		Height:     2,
		Planes:     [4][]byte{y, {128}, {128}},
		Strides:    [4]int{2, 1, 1},
		Heights:    [4]int{2, 1, 1},
	}
}

// ImageFrameNumber returns the frame number carried by an image from FrameImage.
func ImageFrameNumber(img *ports.Image) int {
	if img == nil {
		return -1
	}
	return FrameNumber(img.Planes[0])
}
