package playback

import (
	"math"
	"sync/atomic"
)

const noSeek = -1

// AudioFeeder serves pre-decoded PCM to the audio device callback.
//
// Fill runs on the device's real-time context: it takes no locks and never
// allocates. The PCM buffer is written once before the feeder is built and
// only read afterwards. Position changes from the update side go through
// the seekReq mailbox and are applied at the start of the next callback.
type AudioFeeder struct {
	clock    *Clock
	pcm      []float32
	channels int
	frames   int

	cursor int // in frames; owned by Fill

	seekReq atomic.Int64
	atEnd   atomic.Bool
	volume  atomic.Uint32
}

// NewAudioFeeder wraps an interleaved PCM buffer with the given channel count.
func NewAudioFeeder(clock *Clock, pcm []float32, channels int) *AudioFeeder {
	f := &AudioFeeder{
		clock:    clock,
		pcm:      pcm,
		channels: max(channels, 1),
	}
	f.frames = len(pcm) / f.channels
	f.seekReq.Store(noSeek)
	f.volume.Store(math.Float32bits(1))
	return f
}

// Fill is the ports.AudioCallback. out holds frames*channels samples and is
// zeroed by the caller; Fill leaves it untouched when there is nothing to play.
func (f *AudioFeeder) Fill(out []float32, frames, channels int) {
	if req := f.seekReq.Swap(noSeek); req != noSeek {
		if int(req) >= f.frames {
			// Past the PCM: the update side has moved the timeline to the
			// wall clock and the counter is no longer ours to set.
			f.cursor = f.frames
			f.atEnd.Store(true)
		} else {
			f.cursor = int(req)
			f.atEnd.Store(false)
			f.clock.consumed.Store(uint64(f.cursor))
		}
	}

	if channels <= 0 || !f.clock.playing.Load() || f.clock.paused.Load() || f.atEnd.Load() {
		return
	}
	frames = min(frames, len(out)/channels)

	n := min(frames, f.frames-f.cursor)
	f.copyFrames(out, 0, f.cursor, n, channels)
	f.cursor += n

	switch {
	case n == frames:
		f.clock.consumed.Add(uint64(n))
	case f.clock.looping.Load():
		rest := min(frames-n, f.frames)
		f.copyFrames(out, n, 0, rest, channels)
		f.cursor = rest
		f.clock.consumed.Store(uint64(rest))
	default:
		f.atEnd.Store(true)
		f.clock.consumed.Add(uint64(n))
	}

	if g := math.Float32frombits(f.volume.Load()); g != 1 {
		for i := range out[:frames*channels] {
			out[i] *= g
		}
	}
}

// copyFrames copies n frames from the PCM buffer at src into out at dst,
// duplicating the last source channel when the device has more channels.
func (f *AudioFeeder) copyFrames(out []float32, dst, src, n, channels int) {
	if n <= 0 {
		return
	}
	if channels == f.channels {
		copy(out[dst*channels:(dst+n)*channels], f.pcm[src*channels:(src+n)*channels])
		return
	}
	for i := 0; i < n; i++ {
		o := (dst + i) * channels
		p := (src + i) * f.channels
		for ch := 0; ch < channels; ch++ {
			out[o+ch] = f.pcm[p+min(ch, f.channels-1)]
		}
	}
}

// SeekToSample asks the callback to continue from audio frame s. A frame
// at or past the end of the buffer parks the feeder at the end, looping or
// not, without touching the clock's sample counter.
func (f *AudioFeeder) SeekToSample(s uint64) {
	f.seekReq.Store(int64(min(s, math.MaxInt64)))
}

// SetVolume sets the gain applied to every sample, clamped to [0,1].
func (f *AudioFeeder) SetVolume(v float32) {
	if v != v || v < 0 {
		v = 0
	}
	f.volume.Store(math.Float32bits(min(v, 1)))
}

// Volume returns the current gain.
func (f *AudioFeeder) Volume() float32 {
	return math.Float32frombits(f.volume.Load())
}

// IsAudioEnd reports whether a non-looping stream ran out of PCM. A pending
// seek clears the condition.
func (f *AudioFeeder) IsAudioEnd() bool {
	return f.atEnd.Load() && f.seekReq.Load() == noSeek
}

// Frames returns the number of PCM frames in the buffer.
func (f *AudioFeeder) Frames() int {
	return f.frames
}
