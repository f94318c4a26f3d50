package playback

import (
	"math"
	"time"

	"github.com/user/webmplay/pkg/ports"
)

// TimingSource records which declaration a StreamDescriptor was derived from.
type TimingSource int

const (
	TimingNone TimingSource = iota
	TimingDefaultDuration
	TimingFrameRate
	TimingSegmentDuration
)

// String returns the string representation of the timing source.
func (s TimingSource) String() string {
	switch s {
	case TimingDefaultDuration:
		return "default-duration"
	case TimingFrameRate:
		return "frame-rate"
	case TimingSegmentDuration:
		return "segment-duration"
	default:
		return "none"
	}
}

// StreamDescriptor holds the constants of the video track derived at load.
type StreamDescriptor struct {
	FrameRate       float32
	FrameDurationNs uint32
	DurationS       float32
	FrameCount      uint32

	Width   int
	Height  int
	CodecID string
	Family  ports.CodecFamily

	Source TimingSource
}

// DeriveStreamDescriptor computes frame rate, frame duration and total
// duration from exactly one of, in priority order: the track's default
// frame duration, its declared frame rate, or the segment duration divided
// by the frame count.
func DeriveStreamDescriptor(track ports.Track, family ports.CodecFamily, segmentDurationNs uint64, frameCount int) (StreamDescriptor, error) {
	d := StreamDescriptor{
		FrameCount: uint32(frameCount),
		Width:      track.Width,
		Height:     track.Height,
		CodecID:    track.CodecID,
		Family:     family,
	}
	if frameCount <= 0 {
		return d, ErrNoFrames
	}
	n := float64(frameCount)

	var frameNs, durationS float64
	switch {
	case track.DefaultFrameDurationNs > 0:
		frameNs = float64(track.DefaultFrameDurationNs)
		durationS = frameNs / 1e9 * n
		d.Source = TimingDefaultDuration
	case track.FrameRate > 0:
		frameNs = 1e9 / track.FrameRate
		durationS = n / track.FrameRate
		d.Source = TimingFrameRate
	case segmentDurationNs > 0:
		frameNs = float64(segmentDurationNs) / n
		durationS = float64(segmentDurationNs) / 1e9
		d.Source = TimingSegmentDuration
	default:
		return d, ErrNoTiming
	}

	d.FrameDurationNs = uint32(math.Min(math.Round(frameNs), math.MaxUint32))
	d.DurationS = float32(durationS)
	d.FrameRate = float32(n / durationS)
	return d, nil
}

// FrameDuration returns the duration of one frame.
func (d StreamDescriptor) FrameDuration() time.Duration {
	return time.Duration(d.FrameDurationNs)
}

// Duration returns the total duration of the stream.
func (d StreamDescriptor) Duration() time.Duration {
	return time.Duration(math.Round(float64(d.FrameCount) / float64(d.FrameRate) * 1e9))
}
