// Package smartdecoder maps container codec IDs to decoder backends and
// codec-family capabilities.
package smartdecoder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/user/webmplay/pkg/adapters/av1decoder"
	"github.com/user/webmplay/pkg/adapters/vpxdecoder"
	"github.com/user/webmplay/pkg/ports"
)

// Backend represents the decoding library used for a codec.
type Backend string

const (
	// BackendLibvpx represents libvpx for VP8 and VP9 decoding.
	BackendLibvpx Backend = "libvpx"
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
)

// Info describes how a codec ID is decoded.
type Info struct {
	CodecID string
	Family  ports.CodecFamily
	Backend Backend
}

// ErrUnsupportedCodec is returned when the codec ID has no backend.
var ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")

type entry struct {
	family  ports.CodecFamily
	backend Backend
	open    func(threads int) (ports.VideoDecoder, error)
}

// VP8 decoders recover at any keyframe. VP9 and AV1 decoders keep reference
// state across keyframes and must be rebuilt before re-entering the stream.
var registry = map[string]entry{
	"V_VP8": {
		family:  ports.CodecFamily{Name: "vp8", ResetOnSeek: false},
		backend: BackendLibvpx,
		open: func(threads int) (ports.VideoDecoder, error) {
			return nonNil(vpxdecoder.New(vpxdecoder.VP8, threads))
		},
	},
	"V_VP9": {
		family:  ports.CodecFamily{Name: "vp9", ResetOnSeek: true},
		backend: BackendLibvpx,
		open: func(threads int) (ports.VideoDecoder, error) {
			return nonNil(vpxdecoder.New(vpxdecoder.VP9, threads))
		},
	},
	"V_AV1": {
		family:  ports.CodecFamily{Name: "av1", ResetOnSeek: true},
		backend: BackendLibaom,
		open: func(threads int) (ports.VideoDecoder, error) {
			return nonNil(av1decoder.New(threads))
		},
	},
}

// nonNil keeps a failed constructor from returning a typed nil decoder.
func nonNil[D ports.VideoDecoder](d D, err error) (ports.VideoDecoder, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Codec implements ports.VideoCodec over the linked decoder backends.
type Codec struct{}

// New creates a codec selector.
func New() *Codec {
	return &Codec{}
}

// Family reports the codec family of a codec ID.
func (c *Codec) Family(codecID string) (ports.CodecFamily, bool) {
	e, ok := registry[codecID]
	return e.family, ok
}

// Open creates a decoder for the codec ID.
func (c *Codec) Open(codecID string, threads int) (ports.VideoDecoder, error) {
	e, ok := registry[codecID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codecID)
	}
	return e.open(threads)
}

// Info returns the family and backend used for a codec ID.
func (c *Codec) Info(codecID string) (Info, error) {
	e, ok := registry[codecID]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codecID)
	}
	return Info{CodecID: codecID, Family: e.family, Backend: e.backend}, nil
}

// SupportedCodecs returns the supported codec IDs in sorted order.
func SupportedCodecs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Ensure Codec implements ports.VideoCodec
var _ ports.VideoCodec = (*Codec)(nil)
