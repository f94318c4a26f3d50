// Package mp4demux parses fragmented MP4 files into ports.Container.
package mp4demux

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/webmplay/pkg/adapters/av1config"
	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/adapters/container"
	"github.com/user/webmplay/pkg/ports"
)

var (
	// ErrNotFragmented is returned for progressive MP4 files.
	ErrNotFragmented = errors.New("mp4demux: progressive MP4 not supported, use fragmented MP4")
	// ErrNoVideoTrack is returned when the init segment declares no video track.
	ErrNoVideoTrack = errors.New("mp4demux: no video track found")
)

// ISO/IEC 14496-12 sample_is_non_sync_sample bit.
const sampleIsNonSync = 0x00010000

// Parser implements ports.ContainerParser for fragmented MP4.
type Parser struct{}

// New creates an MP4 parser.
func New() *Parser {
	return &Parser{}
}

type trackState struct {
	id        uint32
	timescale uint32
	trex      *mp4.TrexBox
	totalDur  uint64
	firstDur  uint32
	constant  bool
	samples   int
}

// Parse decodes an init segment and its fragments. Every sample becomes a
// single-frame block; sync samples are key blocks.
func (p *Parser) Parse(data []byte) (ports.Container, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if !f.IsFragmented() || f.Init == nil || f.Init.Moov == nil {
		return nil, ErrNotFragmented
	}

	c := container.NewBuffered()
	states := make(map[uint32]*trackState)
	hasVideo := false

	for _, trak := range f.Init.Moov.Traks {
		track, ok := describeTrack(trak)
		if !ok {
			continue
		}
		if track.Type == ports.TrackVideo {
			hasVideo = true
		}
		c.AddTrack(track)

		st := &trackState{id: trak.Tkhd.TrackID, timescale: 1000, constant: true}
		if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
			st.timescale = trak.Mdia.Mdhd.Timescale
		}
		if mvex := f.Init.Moov.Mvex; mvex != nil {
			for _, t := range mvex.Trexs {
				if t.TrackID == st.id {
					st.trex = t
					break
				}
			}
		}
		states[st.id] = st
	}
	if !hasVideo {
		return nil, ErrNoVideoTrack
	}

	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			// Multi-track fragments are not interleaved here; only the first traf is read.
			if frag.Moof == nil || frag.Moof.Traf == nil {
				continue
			}
			st, ok := states[frag.Moof.Traf.Tfhd.TrackID]
			if !ok {
				continue
			}

			samples, err := frag.GetFullSamples(st.trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				c.AppendBlock(uint64(st.id), s.Flags&sampleIsNonSync == 0, [][]byte{s.Data})
				st.record(s.Dur)
			}
		}
	}

	var segmentNs uint64
	for id, st := range states {
		if st.samples == 0 {
			continue
		}
		ns := st.totalDur * 1_000_000_000 / uint64(st.timescale)
		segmentNs = max(segmentNs, ns)
		if t := c.Track(uint64(id)); t != nil && t.Type == ports.TrackVideo && st.constant && st.firstDur > 0 {
			t.DefaultFrameDurationNs = uint64(st.firstDur) * 1_000_000_000 / uint64(st.timescale)
		}
	}
	c.SetSegmentDuration(segmentNs)

	return c, nil
}

func (st *trackState) record(dur uint32) {
	if st.samples == 0 {
		st.firstDur = dur
	} else if dur != st.firstDur {
		st.constant = false
	}
	st.samples++
	st.totalDur += uint64(dur)
}

// describeTrack maps a trak box to a track. Tracks without a known handler are dropped.
func describeTrack(trak *mp4.TrakBox) (ports.Track, bool) {
	if trak.Tkhd == nil || trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return ports.Track{}, false
	}

	track := ports.Track{Number: uint64(trak.Tkhd.TrackID)}
	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		track.Type = ports.TrackVideo
	case "soun":
		track.Type = ports.TrackAudio
	case "subt", "text", "sbtl":
		track.Type = ports.TrackSubtitle
	case "meta":
		track.Type = ports.TrackMetadata
	default:
		return ports.Track{}, false
	}

	track.CodecID, _ = codecdetect.TrackCodecID(trak)

	if stbl := trak.Mdia.Minf; stbl != nil && stbl.Stbl != nil && stbl.Stbl.Stsd != nil {
		for _, child := range stbl.Stbl.Stsd.Children {
			switch entry := child.(type) {
			case *mp4.VisualSampleEntryBox:
				track.Width = int(entry.Width)
				track.Height = int(entry.Height)
				track.CodecPrivate = configRecord(entry)
			case *mp4.AudioSampleEntryBox:
				track.Channels = int(entry.ChannelCount)
				track.BitDepth = int(entry.SampleSize)
				track.SampleRate = float64(entry.SampleRate)
			}
		}
	}
	if track.Type == ports.TrackVideo && track.Width == 0 {
		track.Width = int(trak.Tkhd.Width >> 16)
		track.Height = int(trak.Tkhd.Height >> 16)
	}

	return track, true
}

// configRecord returns the av1C record of an av01 entry, or nil.
func configRecord(entry *mp4.VisualSampleEntryBox) []byte {
	for _, child := range entry.Children {
		if box, ok := child.(*mp4.Av1CBox); ok {
			rec, err := av1config.Record(box)
			if err != nil {
				return nil
			}
			return rec
		}
	}
	return nil
}

// Ensure Parser implements ports.ContainerParser
var _ ports.ContainerParser = (*Parser)(nil)
