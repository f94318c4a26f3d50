package playback

import (
	"math"
	"sync/atomic"
	"time"
)

// Step is the outcome of one clock advance.
type Step struct {
	Prev     int // current frame before the advance, -1 when nothing is decoded
	Target   int // frame that should be on screen now
	NewFrame bool
	Wrapped  bool // a looping playback restarted from the first frame
}

// Clock maps elapsed wall time or consumed audio samples to a target frame.
//
// The flags and the sample counter are read by the audio callback and are
// atomic. Everything else is owned by the update call.
type Clock struct {
	playing atomic.Bool
	paused  atomic.Bool
	looping atomic.Bool

	// consumed counts audio frames handed to the device since the last
	// restart. It is the master clock while audio drives the timeline.
	consumed atomic.Uint64

	frameRate  float64
	frameCount int
	duration   time.Duration
	sampleRate int
	useAudio   bool

	elapsed  time.Duration
	current  int
	done     bool
	wrapped  bool
	resumeAt int
}

// NewClock creates a stopped clock for the stream. sampleRate is 0 when the
// session has no audio.
func NewClock(desc StreamDescriptor, sampleRate int) *Clock {
	return &Clock{
		frameRate:  float64(desc.FrameRate),
		frameCount: int(desc.FrameCount),
		duration:   desc.Duration(),
		sampleRate: sampleRate,
		useAudio:   sampleRate > 0,
		current:    -1,
		resumeAt:   -1,
	}
}

// Play starts playback. From Stopped it rewinds the accumulators to the
// start (or to the frame last seeked to while stopped) and reports true.
// While playing it only clears the pause flag and reports false.
func (c *Clock) Play() bool {
	if c.playing.Load() {
		c.paused.Store(false)
		return false
	}

	start := 0
	if c.resumeAt >= 0 {
		start = c.resumeAt
		c.resumeAt = -1
	}
	c.setTime(start)
	if start == 0 && c.current == c.frameCount-1 {
		c.current = -1
	}
	c.done = false
	c.wrapped = false
	c.useAudio = c.sampleRate > 0
	c.paused.Store(false)
	c.playing.Store(true)
	return true
}

// Stop transitions to Stopped. Counters are kept until the next Play.
func (c *Clock) Stop() {
	c.playing.Store(false)
	c.paused.Store(false)
}

// SetPaused toggles the pause flag without touching the counters.
func (c *Clock) SetPaused(paused bool) {
	c.paused.Store(paused)
}

// SetLooping sets the loop flag.
func (c *Clock) SetLooping(looping bool) {
	c.looping.Store(looping)
}

// IsPlaying reports whether the clock is not Stopped. A paused clock is
// still playing.
func (c *Clock) IsPlaying() bool { return c.playing.Load() }

// IsPaused reports whether the pause flag is set.
func (c *Clock) IsPaused() bool { return c.paused.Load() }

// IsLooping reports whether playback wraps at the end.
func (c *Clock) IsLooping() bool { return c.looping.Load() }

// IsDone reports whether a non-looping playback ran past the last frame.
func (c *Clock) IsDone() bool { return c.done }

// Current returns the current frame, -1 when nothing is decoded.
func (c *Clock) Current() int { return c.current }

// Consumed returns the audio frames consumed since the last restart.
func (c *Clock) Consumed() uint64 { return c.consumed.Load() }

// AudioDriven reports whether the audio counter currently drives the timeline.
func (c *Clock) AudioDriven() bool { return c.useAudio && c.sampleRate > 0 }

// Time returns the playback time.
func (c *Clock) Time() time.Duration {
	if c.AudioDriven() {
		return time.Duration(float64(c.consumed.Load()) / float64(c.sampleRate) * float64(time.Second))
	}
	return c.elapsed
}

// Advance accumulates elapsed time and computes the frame that should be
// shown. It never touches a decoder.
func (c *Clock) Advance(elapsed time.Duration) Step {
	step := Step{Prev: c.current, Target: c.current}
	if !c.playing.Load() || c.frameCount == 0 {
		return step
	}
	if !c.paused.Load() && !c.AudioDriven() {
		c.elapsed += elapsed
	}

	target := int(math.Floor(c.Time().Seconds()*c.frameRate + 1e-6))
	if target >= c.frameCount {
		if c.looping.Load() {
			target %= c.frameCount
			if !c.AudioDriven() {
				c.elapsed = max(c.elapsed-c.duration, 0)
			}
			// The audio counter only restarts when the PCM buffer wraps,
			// so a longer audio track reports past-the-end times for a
			// while. Only the first of those cycles restarts the chain.
			if !c.wrapped {
				c.current = -1
				c.wrapped = true
				step.Wrapped = true
			}
		} else {
			target = c.frameCount - 1
			c.playing.Store(false)
			c.done = true
		}
	} else {
		c.wrapped = false
	}

	step.Prev = c.current
	step.Target = target
	if target == c.current {
		return step
	}
	c.current = target
	step.NewFrame = true
	return step
}

// SetFrame moves the clock to frame n, setting both accumulators to the
// time implied by n. A seek while stopped is where the next Play resumes.
func (c *Clock) SetFrame(n int) {
	c.current = n
	c.setTime(n)
	c.done = false
	c.wrapped = false
	c.useAudio = c.sampleRate > 0
	if !c.playing.Load() {
		c.resumeAt = n
	}
}

// SampleOf returns the first audio frame at or after the start of video frame n.
func (c *Clock) SampleOf(n int) uint64 {
	if c.sampleRate == 0 || c.frameRate == 0 {
		return 0
	}
	return uint64(max(math.Ceil(float64(n)*float64(c.sampleRate)/c.frameRate-1e-6), 0))
}

// DetachAudio switches the timeline to the wall clock, continuing from the
// current audio time. Used when a non-looping audio track ends before the
// video does.
func (c *Clock) DetachAudio() {
	if !c.AudioDriven() {
		return
	}
	c.elapsed = c.Time()
	c.useAudio = false
}

// FollowWallClock switches the timeline to the wall clock at the time the
// elapsed accumulator already holds, as set by SetFrame or Play. Used when
// the position lies past the end of the audio track.
func (c *Clock) FollowWallClock() {
	c.useAudio = false
}

func (c *Clock) setTime(n int) {
	if c.frameRate > 0 {
		c.elapsed = time.Duration(math.Ceil(float64(n) * float64(time.Second) / c.frameRate))
	} else {
		c.elapsed = 0
	}
	c.consumed.Store(c.SampleOf(n))
}
