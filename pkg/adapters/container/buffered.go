// Package container holds the in-memory container both demuxers produce.
package container

import (
	"iter"
	"slices"

	"github.com/user/webmplay/pkg/ports"
)

// Buffered implements ports.Container over a single body buffer that all
// frame ranges point into.
type Buffered struct {
	tracks    []ports.Track
	segmentNs uint64
	body      []byte
	blocks    map[uint64][]ports.Block
}

// NewBuffered creates an empty container.
func NewBuffered() *Buffered {
	return &Buffered{blocks: make(map[uint64][]ports.Block)}
}

// AddTrack appends a track description.
func (c *Buffered) AddTrack(t ports.Track) {
	c.tracks = append(c.tracks, t)
}

// Track returns a pointer to the track with the given number so demuxers can
// fill in details discovered while reading blocks.
func (c *Buffered) Track(number uint64) *ports.Track {
	for i := range c.tracks {
		if c.tracks[i].Number == number {
			return &c.tracks[i]
		}
	}
	return nil
}

// SetSegmentDuration records the total duration in nanoseconds.
func (c *Buffered) SetSegmentDuration(ns uint64) {
	c.segmentNs = ns
}

// AppendBlock copies the frames of one block into the body and records the block.
func (c *Buffered) AppendBlock(track uint64, key bool, frames [][]byte) {
	b := ports.Block{IsKey: key, Frames: make([]ports.FrameRange, 0, len(frames))}
	for _, f := range frames {
		b.Frames = append(b.Frames, ports.FrameRange{Offset: uint64(len(c.body)), Length: uint32(len(f))})
		c.body = append(c.body, f...)
	}
	c.blocks[track] = append(c.blocks[track], b)
}

// BlockCount returns the number of blocks recorded for a track.
func (c *Buffered) BlockCount(track uint64) int {
	return len(c.blocks[track])
}

func (c *Buffered) Tracks() []ports.Track {
	return c.tracks
}

func (c *Buffered) SegmentDurationNs() uint64 {
	return c.segmentNs
}

func (c *Buffered) Blocks(trackNumber uint64) iter.Seq[ports.Block] {
	return slices.Values(c.blocks[trackNumber])
}

func (c *Buffered) Body() []byte {
	return c.body
}

var _ ports.Container = (*Buffered)(nil)
