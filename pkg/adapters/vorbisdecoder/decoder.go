// Package vorbisdecoder decodes Vorbis audio packets with a pure Go decoder.
package vorbisdecoder

import (
	"errors"
	"fmt"

	"github.com/jfreymuth/vorbis"

	"github.com/user/webmplay/pkg/ports"
)

// CodecID is the Matroska codec ID of Vorbis tracks.
const CodecID = "A_VORBIS"

var (
	// ErrUnsupportedCodec is returned for codec IDs other than A_VORBIS.
	ErrUnsupportedCodec = errors.New("vorbisdecoder: unsupported codec")
	// ErrHeadersMissing is returned when decoding before all three headers are read.
	ErrHeadersMissing = errors.New("vorbisdecoder: headers not read")
)

// Codec implements ports.AudioCodec.
type Codec struct{}

// NewCodec creates a Vorbis codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Supports reports whether codecID is A_VORBIS.
func (c *Codec) Supports(codecID string) bool {
	return codecID == CodecID
}

// Open creates a decoder instance.
func (c *Codec) Open(codecID string) (ports.AudioDecoder, error) {
	if !c.Supports(codecID) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codecID)
	}
	return New(), nil
}

// Decoder implements ports.AudioDecoder.
type Decoder struct {
	dec vorbis.Decoder
	out []float32
}

// New creates a decoder that still needs its three headers.
func New() *Decoder {
	return &Decoder{}
}

// ReadHeader consumes the identification, comment or setup header.
func (d *Decoder) ReadHeader(header []byte) error {
	if err := d.dec.ReadHeader(header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	return nil
}

// Decode decodes one packet into interleaved samples. The slice is reused
// by the next call.
func (d *Decoder) Decode(packet []byte) ([]float32, error) {
	if !d.dec.HeadersRead() {
		return nil, ErrHeadersMissing
	}
	if need := d.dec.BufferSize(); cap(d.out) < need {
		d.out = make([]float32, need)
	}

	out, err := d.dec.DecodeInto(packet, d.out[:cap(d.out)])
	if err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}
	return out, nil
}

// Reset drops the overlap state so the next packet starts a fresh stream.
func (d *Decoder) Reset() {
	d.dec.Clear()
}

// SampleRate returns the sample rate from the identification header.
func (d *Decoder) SampleRate() int {
	return d.dec.SampleRate()
}

// Channels returns the channel count from the identification header.
func (d *Decoder) Channels() int {
	return d.dec.Channels()
}

var (
	_ ports.AudioCodec   = (*Codec)(nil)
	_ ports.AudioDecoder = (*Decoder)(nil)
)
