// Package mocks provides mock implementations for testing.
package mocks

import (
	"encoding/binary"
	"iter"
	"slices"

	"github.com/user/webmplay/pkg/ports"
)

// Container is a mock implementation of ports.Container.
type Container struct {
	TrackList []ports.Track
	SegmentNs uint64
	Data      []byte
	BlockMap  map[uint64][]ports.Block

	// BlocksCalls counts Blocks calls per track.
	BlocksCalls map[uint64]int
}

// NewFrameContainer builds a container holding one video track with n
// frames, one frame per block. Each payload is the frame number as a
// little-endian uint32, so mock decoders can tell which frame they got.
// Frames listed in keys start key blocks.
func NewFrameContainer(track ports.Track, n int, keys ...int) *Container {
	c := &Container{
		BlockMap:    make(map[uint64][]ports.Block),
		BlocksCalls: make(map[uint64]int),
	}
	if track.Type == ports.TrackUnknown {
		track.Type = ports.TrackVideo
	}
	if track.Number == 0 {
		track.Number = 1
	}
	c.TrackList = append(c.TrackList, track)

	for i := 0; i < n; i++ {
		r := c.appendPayload(frameBytes(i))
		c.BlockMap[track.Number] = append(c.BlockMap[track.Number], ports.Block{
			IsKey:  slices.Contains(keys, i),
			Frames: []ports.FrameRange{r},
		})
	}
	return c
}

// AddTrack adds a track whose blocks carry one packet each.
func (c *Container) AddTrack(track ports.Track, packets [][]byte) {
	c.TrackList = append(c.TrackList, track)
	for _, p := range packets {
		r := c.appendPayload(p)
		c.BlockMap[track.Number] = append(c.BlockMap[track.Number], ports.Block{
			IsKey:  true,
			Frames: []ports.FrameRange{r},
		})
	}
}

func (c *Container) appendPayload(p []byte) ports.FrameRange {
	r := ports.FrameRange{Offset: uint64(len(c.Data)), Length: uint32(len(p))}
	c.Data = append(c.Data, p...)
	return r
}

func (c *Container) Tracks() []ports.Track {
	return c.TrackList
}

func (c *Container) SegmentDurationNs() uint64 {
	return c.SegmentNs
}

func (c *Container) Blocks(trackNumber uint64) iter.Seq[ports.Block] {
	if c.BlocksCalls != nil {
		c.BlocksCalls[trackNumber]++
	}
	blocks := c.BlockMap[trackNumber]
	return slices.Values(blocks)
}

func (c *Container) Body() []byte {
	return c.Data
}

var _ ports.Container = (*Container)(nil)

func frameBytes(n int) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(n))
}

// FrameNumber decodes a payload produced by NewFrameContainer.
func FrameNumber(data []byte) int {
	if len(data) < 4 {
		return -1
	}
	return int(binary.LittleEndian.Uint32(data))
}
