// Package fmp4mux writes encoded video into a single-fragment MP4 file.
package fmp4mux

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/webmplay/pkg/adapters/av1config"
	"github.com/user/webmplay/pkg/ports"
)

var (
	// ErrNoVideo is returned when no video stream with frames is given.
	ErrNoVideo = errors.New("fmp4mux: no video frames")
	// ErrUnsupportedCodec is returned for codecs without a sample entry mapping.
	ErrUnsupportedCodec = errors.New("fmp4mux: unsupported codec")
)

// Muxer implements ports.Muxer. Only the first video stream is written.
type Muxer struct{}

// New creates an MP4 muxer.
func New() *Muxer {
	return &Muxer{}
}

// Mux builds ftyp, moov and one moof/mdat pair for the first video stream.
func (m *Muxer) Mux(streams []ports.EncodedStream) ([]byte, error) {
	var video *ports.EncodedStream
	for i := range streams {
		if streams[i].Type == ports.TrackVideo && len(streams[i].Frames) > 0 {
			video = &streams[i]
			break
		}
	}
	if video == nil {
		return nil, ErrNoVideo
	}
	if video.CodecID != av1config.CodecID {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, video.CodecID)
	}
	if video.FrameRate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %g", video.FrameRate)
	}

	timescale := uint32(video.FrameRate * 1000)
	frameDur := uint32(float64(timescale) / video.FrameRate)
	trackID := uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "und")
	trak := init.Moov.Trak

	av01 := mp4.CreateVisualSampleEntryBox("av01", uint16(video.Width), uint16(video.Height), av1config.Box(video.Frames))
	trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)
	trak.Tkhd.Width = mp4.Fixed32(video.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(video.Height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	nsToTicks := func(ns int64) uint64 {
		return uint64(math.Round(float64(ns) * float64(timescale) / 1e9))
	}
	for i, f := range video.Frames {
		dur := frameDur
		if i < len(video.Frames)-1 {
			next, cur := nsToTicks(video.Frames[i+1].TimestampNs), nsToTicks(f.TimestampNs)
			if next > cur {
				dur = uint32(next - cur)
			}
		}

		flags := mp4.NonSyncSampleFlags
		if f.IsKeyframe {
			flags = mp4.SyncSampleFlags
		}

		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(f.Data)),
				Dur:   dur,
			},
			DecodeTime: nsToTicks(f.TimestampNs),
			Data:       f.Data,
		})
	}

	var buf bytes.Buffer

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}

	return buf.Bytes(), nil
}

// Ensure Muxer implements ports.Muxer
var _ ports.Muxer = (*Muxer)(nil)
