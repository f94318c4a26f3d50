// Package webmdemux parses WebM (Matroska) files into ports.Container.
package webmdemux

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/at-wat/ebml-go"

	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/adapters/container"
	"github.com/user/webmplay/pkg/ports"
)

var (
	// ErrNotWebM is returned when the data does not start with an EBML header
	// or declares another document type.
	ErrNotWebM = errors.New("webmdemux: not a WebM/Matroska file")
	// ErrNoSegment is returned when the file has no tracks.
	ErrNoSegment = errors.New("webmdemux: segment has no tracks")
)

const defaultTimecodeScale = 1_000_000

// Matroska track types.
const (
	trackTypeVideo    = 0x01
	trackTypeAudio    = 0x02
	trackTypeSubtitle = 0x11
	trackTypeControl  = 0x20
	trackTypeMetadata = 0x21
)

type file struct {
	Header  header  `ebml:"EBML"`
	Segment segment `ebml:"Segment"`
}

type header struct {
	EBMLDocType string
}

type segment struct {
	Info    info
	Tracks  tracks
	Cluster []cluster
}

type info struct {
	TimecodeScale uint64
	Duration      float64
}

type tracks struct {
	TrackEntry []trackEntry
}

type trackEntry struct {
	TrackNumber     uint64
	TrackType       uint64
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration uint64
	Video           video
	Audio           audio
}

type video struct {
	PixelWidth  uint64
	PixelHeight uint64
	FrameRate   float64
}

type audio struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64
}

type cluster struct {
	Timecode    uint64
	SimpleBlock []ebml.Block
	BlockGroup  []blockGroup
}

type blockGroup struct {
	Block          ebml.Block
	ReferenceBlock []int64
}

// Parser implements ports.ContainerParser for WebM.
type Parser struct{}

// New creates a WebM parser.
func New() *Parser {
	return &Parser{}
}

// Parse decodes the whole file. Laced blocks keep their frames together in
// one block; blocks of a cluster are ordered by timecode.
func (p *Parser) Parse(data []byte) (ports.Container, error) {
	if codecdetect.DetectFormat(data) != codecdetect.FormatWebM {
		return nil, ErrNotWebM
	}

	var f file
	if err := ebml.Unmarshal(bytes.NewReader(data), &f, ebml.WithIgnoreUnknown(true)); err != nil {
		return nil, fmt.Errorf("decode ebml: %w", err)
	}
	switch f.Header.EBMLDocType {
	case "webm", "matroska":
	default:
		return nil, fmt.Errorf("%w: doc type %q", ErrNotWebM, f.Header.EBMLDocType)
	}
	if len(f.Segment.Tracks.TrackEntry) == 0 {
		return nil, ErrNoSegment
	}

	c := container.NewBuffered()
	for _, e := range f.Segment.Tracks.TrackEntry {
		c.AddTrack(describeTrack(e))
	}

	scale := f.Segment.Info.TimecodeScale
	if scale == 0 {
		scale = defaultTimecodeScale
	}
	c.SetSegmentDuration(uint64(f.Segment.Info.Duration * float64(scale)))

	for _, cl := range f.Segment.Cluster {
		for _, b := range clusterBlocks(cl) {
			if c.Track(b.TrackNumber) == nil || len(b.Data) == 0 {
				continue
			}
			c.AppendBlock(b.TrackNumber, b.Keyframe, b.Data)
		}
	}

	return c, nil
}

// clusterBlocks merges simple blocks and block groups in timecode order.
// A block group without references is a keyframe.
func clusterBlocks(cl cluster) []ebml.Block {
	blocks := slices.Clone(cl.SimpleBlock)
	for _, g := range cl.BlockGroup {
		b := g.Block
		b.Keyframe = len(g.ReferenceBlock) == 0
		blocks = append(blocks, b)
	}
	slices.SortStableFunc(blocks, func(a, b ebml.Block) int {
		return cmp.Compare(a.Timecode, b.Timecode)
	})
	return blocks
}

func describeTrack(e trackEntry) ports.Track {
	t := ports.Track{
		Number:                 e.TrackNumber,
		CodecID:                e.CodecID,
		CodecPrivate:           e.CodecPrivate,
		DefaultFrameDurationNs: e.DefaultDuration,
	}

	switch e.TrackType {
	case trackTypeVideo:
		t.Type = ports.TrackVideo
		t.Width = int(e.Video.PixelWidth)
		t.Height = int(e.Video.PixelHeight)
		t.FrameRate = e.Video.FrameRate
	case trackTypeAudio:
		t.Type = ports.TrackAudio
		t.SampleRate = e.Audio.SamplingFrequency
		t.Channels = int(e.Audio.Channels)
		t.BitDepth = int(e.Audio.BitDepth)
	case trackTypeSubtitle:
		t.Type = ports.TrackSubtitle
	case trackTypeControl, trackTypeMetadata:
		t.Type = ports.TrackMetadata
	}
	return t
}

// Ensure Parser implements ports.ContainerParser
var _ ports.ContainerParser = (*Parser)(nil)
