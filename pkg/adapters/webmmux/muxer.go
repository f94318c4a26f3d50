// Package webmmux writes encoded streams into a WebM file.
package webmmux

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/at-wat/ebml-go"

	"github.com/user/webmplay/pkg/ports"
)

// ErrNoStreams is returned when there is nothing to write.
var ErrNoStreams = errors.New("webmmux: no streams")

const (
	timecodeScale = 1_000_000 // 1ms
	maxClusterMs  = 5_000
	muxingApp     = "webmplay"
)

type file struct {
	Header  header  `ebml:"EBML"`
	Segment segment `ebml:"Segment"`
}

type header struct {
	EBMLVersion            uint64
	EBMLReadVersion        uint64
	EBMLMaxIDLength        uint64
	EBMLMaxSizeLength      uint64
	EBMLDocType            string
	EBMLDocTypeVersion     uint64
	EBMLDocTypeReadVersion uint64
}

type segment struct {
	Info    info
	Tracks  tracks
	Cluster []cluster
}

type info struct {
	TimecodeScale uint64
	MuxingApp     string
	WritingApp    string
	Duration      float64
}

type tracks struct {
	TrackEntry []trackEntry
}

type trackEntry struct {
	TrackNumber     uint64
	TrackUID        uint64
	TrackType       uint64
	CodecID         string
	CodecPrivate    []byte `ebml:",omitempty"`
	DefaultDuration uint64 `ebml:",omitempty"`
	Video           *video `ebml:",omitempty"`
	Audio           *audio `ebml:",omitempty"`
}

type video struct {
	PixelWidth  uint64
	PixelHeight uint64
}

type audio struct {
	SamplingFrequency float64
	Channels          uint64
}

type cluster struct {
	Timecode    uint64
	SimpleBlock []ebml.Block
}

// Muxer implements ports.Muxer. Streams become tracks numbered from 1 in order.
type Muxer struct{}

// New creates a WebM muxer.
func New() *Muxer {
	return &Muxer{}
}

type pending struct {
	track uint64
	ms    int64
	video bool
	frame ports.EncodedFrame
}

// Mux interleaves all frames by timestamp. A cluster starts at every video
// keyframe and at least every five seconds.
func (m *Muxer) Mux(streams []ports.EncodedStream) ([]byte, error) {
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}

	f := file{
		Header: header{
			EBMLVersion:            1,
			EBMLReadVersion:        1,
			EBMLMaxIDLength:        4,
			EBMLMaxSizeLength:      8,
			EBMLDocType:            "webm",
			EBMLDocTypeVersion:     2,
			EBMLDocTypeReadVersion: 2,
		},
		Segment: segment{
			Info: info{
				TimecodeScale: timecodeScale,
				MuxingApp:     muxingApp,
				WritingApp:    muxingApp,
			},
		},
	}

	var all []pending
	var endMs float64
	for i, s := range streams {
		number := uint64(i + 1)
		entry := trackEntry{
			TrackNumber:  number,
			TrackUID:     number,
			CodecID:      s.CodecID,
			CodecPrivate: s.CodecPrivate,
		}

		var frameMs float64
		switch s.Type {
		case ports.TrackVideo:
			entry.TrackType = 1
			entry.Video = &video{PixelWidth: uint64(s.Width), PixelHeight: uint64(s.Height)}
			if s.FrameRate > 0 {
				entry.DefaultDuration = uint64(math.Round(1e9 / s.FrameRate))
				frameMs = 1000 / s.FrameRate
			}
		case ports.TrackAudio:
			entry.TrackType = 2
			entry.Audio = &audio{SamplingFrequency: s.SampleRate, Channels: uint64(max(s.Channels, 1))}
		default:
			return nil, fmt.Errorf("unsupported track type %s", s.Type)
		}
		f.Segment.Tracks.TrackEntry = append(f.Segment.Tracks.TrackEntry, entry)

		for _, fr := range s.Frames {
			ms := fr.TimestampNs / 1_000_000
			all = append(all, pending{track: number, ms: ms, video: s.Type == ports.TrackVideo, frame: fr})
			endMs = max(endMs, float64(ms)+frameMs)
		}
	}
	f.Segment.Info.Duration = endMs

	slices.SortStableFunc(all, func(a, b pending) int {
		return cmp.Compare(a.ms, b.ms)
	})

	var cur *cluster
	for _, p := range all {
		if cur == nil || (p.video && p.frame.IsKeyframe) || p.ms-int64(cur.Timecode) >= maxClusterMs {
			f.Segment.Cluster = append(f.Segment.Cluster, cluster{Timecode: uint64(max(p.ms, 0))})
			cur = &f.Segment.Cluster[len(f.Segment.Cluster)-1]
		}
		cur.SimpleBlock = append(cur.SimpleBlock, ebml.Block{
			TrackNumber: p.track,
			Timecode:    int16(p.ms - int64(cur.Timecode)),
			Keyframe:    p.frame.IsKeyframe,
			Data:        [][]byte{p.frame.Data},
		})
	}

	var buf bytes.Buffer
	if err := ebml.Marshal(&f, &buf); err != nil {
		return nil, fmt.Errorf("encode ebml: %w", err)
	}
	return buf.Bytes(), nil
}

// Ensure Muxer implements ports.Muxer
var _ ports.Muxer = (*Muxer)(nil)
