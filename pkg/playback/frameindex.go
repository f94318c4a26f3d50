// Package playback keeps a decoded video stream and a pre-decoded audio
// stream on one timeline.
//
// A Session is driven from two contexts: the polled Update call (render
// cadence) owns the decoder, the frame index and the published image; the
// audio device callback owns the PCM cursor. The only state they share is
// atomic: the consumed-sample counter that acts as master clock, and the
// playing/paused/looping flags.
package playback

import (
	"fmt"
	"iter"

	"github.com/user/webmplay/pkg/ports"
)

// FrameRecord locates one decodable frame and the keyframe it depends on.
type FrameRecord struct {
	Offset        uint64
	Length        uint32
	KeyframeIndex int32
}

// FrameIndex is the read-only table of frames built at load time.
// Records are in presentation order.
type FrameIndex struct {
	frames    []FrameRecord
	keyframes []uint32
}

// BuildFrameIndex walks blocks in presentation order and records every
// sub-frame with the most recent keyframe seen before it (0 if none).
// bodyLen bounds the byte ranges. On error no index is returned.
func BuildFrameIndex(blocks iter.Seq[ports.Block], bodyLen int) (*FrameIndex, error) {
	idx := &FrameIndex{}
	var key int32

	for b := range blocks {
		if b.IsKey && len(b.Frames) > 0 {
			key = int32(len(idx.frames))
			idx.keyframes = append(idx.keyframes, uint32(key))
		}
		for _, f := range b.Frames {
			if !inBody(f, uint64(bodyLen)) {
				return nil, fmt.Errorf("%w: frame %d range %d+%d exceeds %d byte body",
					ErrFormat, len(idx.frames), f.Offset, f.Length, bodyLen)
			}
			idx.frames = append(idx.frames, FrameRecord{
				Offset:        f.Offset,
				Length:        f.Length,
				KeyframeIndex: key,
			})
		}
	}

	if len(idx.frames) == 0 {
		return nil, ErrNoFrames
	}
	return idx, nil
}

// Len returns the number of frames.
func (x *FrameIndex) Len() int {
	return len(x.frames)
}

// Frame returns the record of frame i.
func (x *FrameIndex) Frame(i int) FrameRecord {
	return x.frames[i]
}

// Keyframes returns the keyframe positions. The slice must not be modified.
func (x *FrameIndex) Keyframes() []uint32 {
	return x.keyframes
}

// KeyframeOf returns the keyframe frame i depends on.
func (x *FrameIndex) KeyframeOf(i int) int {
	return int(x.frames[i].KeyframeIndex)
}

// Payload returns the bytes of frame i inside body.
func (x *FrameIndex) Payload(body []byte, i int) []byte {
	f := x.frames[i]
	return body[f.Offset : f.Offset+uint64(f.Length)]
}

// IndexDump is the serializable form of a FrameIndex used for debug output.
type IndexDump struct {
	FrameCount int           `json:"frameCount"`
	Keyframes  []uint32      `json:"keyframes"`
	Frames     []FrameRecord `json:"frames"`
}

// Dump returns a serializable copy of the index.
func (x *FrameIndex) Dump() IndexDump {
	return IndexDump{
		FrameCount: len(x.frames),
		Keyframes:  append([]uint32(nil), x.keyframes...),
		Frames:     append([]FrameRecord(nil), x.frames...),
	}
}

// inBody reports whether r lies within a body of n bytes without summing
// Offset and Length, which can wrap.
func inBody(r ports.FrameRange, n uint64) bool {
	return r.Offset <= n && uint64(r.Length) <= n-r.Offset
}
