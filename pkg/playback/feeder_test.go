package playback

import (
	"slices"
	"sync"
	"testing"
	"time"
)

// newFeeder returns a playing clock and a mono feeder over samples 1..n.
func newFeeder(n int) (*Clock, *AudioFeeder) {
	pcm := make([]float32, n)
	for i := range pcm {
		pcm[i] = float32(i + 1)
	}
	clock := NewClock(testDescriptor(30, 30), 10)
	clock.Play()
	return clock, NewAudioFeeder(clock, pcm, 1)
}

func pull(f *AudioFeeder, frames, channels int) []float32 {
	out := make([]float32, frames*channels)
	f.Fill(out, frames, channels)
	return out
}

func TestAudioFeeder_Copy(t *testing.T) {
	clock, f := newFeeder(10)

	if got := pull(f, 4, 1); !slices.Equal(got, []float32{1, 2, 3, 4}) {
		t.Errorf("unexpected samples %v", got)
	}
	if clock.Consumed() != 4 {
		t.Errorf("expected 4 consumed, got %d", clock.Consumed())
	}
	if got := pull(f, 4, 1); !slices.Equal(got, []float32{5, 6, 7, 8}) {
		t.Errorf("unexpected samples %v", got)
	}
}

func TestAudioFeeder_SilentWhenStoppedOrPaused(t *testing.T) {
	clock, f := newFeeder(10)

	clock.SetPaused(true)
	if got := pull(f, 4, 1); !slices.Equal(got, make([]float32, 4)) {
		t.Errorf("paused feeder produced %v", got)
	}
	clock.SetPaused(false)
	clock.Stop()
	if got := pull(f, 4, 1); !slices.Equal(got, make([]float32, 4)) {
		t.Errorf("stopped feeder produced %v", got)
	}
	if clock.Consumed() != 0 {
		t.Errorf("silent callbacks must not advance the clock")
	}
}

func TestAudioFeeder_Underrun(t *testing.T) {
	clock, f := newFeeder(10)
	pull(f, 4, 1)
	pull(f, 4, 1)

	if got := pull(f, 4, 1); !slices.Equal(got, []float32{9, 10, 0, 0}) {
		t.Errorf("expected partial copy, got %v", got)
	}
	if !f.IsAudioEnd() {
		t.Errorf("expected end of audio")
	}
	if clock.Consumed() != 10 {
		t.Errorf("expected 10 consumed, got %d", clock.Consumed())
	}

	if got := pull(f, 4, 1); !slices.Equal(got, make([]float32, 4)) {
		t.Errorf("expected silence after end, got %v", got)
	}
	if clock.Consumed() != 10 {
		t.Errorf("consumed moved after end: %d", clock.Consumed())
	}
}

func TestAudioFeeder_LoopWrap(t *testing.T) {
	clock, f := newFeeder(10)
	clock.SetLooping(true)
	pull(f, 4, 1)
	pull(f, 4, 1)

	if got := pull(f, 4, 1); !slices.Equal(got, []float32{9, 10, 1, 2}) {
		t.Errorf("expected wrapped copy, got %v", got)
	}
	if clock.Consumed() != 2 {
		t.Errorf("expected counter restarted at 2, got %d", clock.Consumed())
	}
	if f.IsAudioEnd() {
		t.Errorf("looping feeder must not end")
	}
	if got := pull(f, 4, 1); !slices.Equal(got, []float32{3, 4, 5, 6}) {
		t.Errorf("unexpected samples %v", got)
	}
	if clock.Consumed() != 6 {
		t.Errorf("expected 6 consumed, got %d", clock.Consumed())
	}
}

func TestAudioFeeder_Seek(t *testing.T) {
	clock, f := newFeeder(10)
	pull(f, 4, 1)

	f.SeekToSample(7)
	if got := pull(f, 2, 1); !slices.Equal(got, []float32{8, 9}) {
		t.Errorf("expected samples from 7, got %v", got)
	}
	if clock.Consumed() != 9 {
		t.Errorf("expected 9 consumed, got %d", clock.Consumed())
	}

	// A seek clears end of stream.
	pull(f, 4, 1)
	if !f.IsAudioEnd() {
		t.Fatal("expected end of audio")
	}
	f.SeekToSample(0)
	if f.IsAudioEnd() {
		t.Errorf("pending seek should clear end of audio")
	}
	if got := pull(f, 2, 1); !slices.Equal(got, []float32{1, 2}) {
		t.Errorf("expected restart, got %v", got)
	}

	// Seeking past the end lands on the end and leaves the counter alone.
	f.SeekToSample(1000)
	if got := pull(f, 2, 1); !slices.Equal(got, []float32{0, 0}) {
		t.Errorf("expected silence past the end, got %v", got)
	}
	if !f.IsAudioEnd() {
		t.Errorf("expected end of audio")
	}
	if clock.Consumed() != 2 {
		t.Errorf("expected the counter untouched at 2, got %d", clock.Consumed())
	}
}

func TestAudioFeeder_SeekPastEndWhileLooping(t *testing.T) {
	clock, f := newFeeder(10)
	clock.SetLooping(true)
	pull(f, 4, 1)

	f.SeekToSample(10)
	if got := pull(f, 3, 1); !slices.Equal(got, []float32{0, 0, 0}) {
		t.Errorf("expected silence instead of a wrap, got %v", got)
	}
	if !f.IsAudioEnd() {
		t.Errorf("expected end of audio")
	}
	if clock.Consumed() != 4 {
		t.Errorf("expected the counter untouched at 4, got %d", clock.Consumed())
	}

	f.SeekToSample(0)
	if got := pull(f, 2, 1); !slices.Equal(got, []float32{1, 2}) {
		t.Errorf("expected restart, got %v", got)
	}
}

func TestAudioFeeder_ChannelMapping(t *testing.T) {
	clock := NewClock(testDescriptor(30, 30), 10)
	clock.Play()
	stereo := NewAudioFeeder(clock, []float32{1, 2, 3, 4}, 2)

	if got := pull(stereo, 2, 3); !slices.Equal(got, []float32{1, 2, 2, 3, 4, 4}) {
		t.Errorf("expected last channel duplicated, got %v", got)
	}

	clock.Stop()
	clock.Play()
	mono := NewAudioFeeder(clock, []float32{1, 2}, 1)
	if got := pull(mono, 2, 2); !slices.Equal(got, []float32{1, 1, 2, 2}) {
		t.Errorf("expected mono upmix, got %v", got)
	}
}

func TestAudioFeeder_Volume(t *testing.T) {
	_, f := newFeeder(10)

	f.SetVolume(0.5)
	if got := pull(f, 2, 1); !slices.Equal(got, []float32{0.5, 1}) {
		t.Errorf("expected half gain, got %v", got)
	}

	f.SetVolume(3)
	if f.Volume() != 1 {
		t.Errorf("expected volume clamped to 1, got %f", f.Volume())
	}
	f.SetVolume(-1)
	if f.Volume() != 0 {
		t.Errorf("expected volume clamped to 0, got %f", f.Volume())
	}
}

// TestAudioFeeder_Concurrent drives the callback and the clock from two
// goroutines; run with -race.
func TestAudioFeeder_Concurrent(t *testing.T) {
	pcm := make([]float32, 48000)
	clock := NewClock(testDescriptor(30, 30), 48000)
	clock.SetLooping(true)
	clock.Play()
	f := NewAudioFeeder(clock, pcm, 1)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]float32, 512)
		for {
			select {
			case <-done:
				return
			default:
				f.Fill(out, 512, 1)
			}
		}
	}()

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		step := clock.Advance(time.Millisecond)
		if step.Target < 0 || step.Target >= 30 {
			t.Errorf("target out of range: %+v", step)
		}
		f.SetVolume(0.8)
		clock.SetPaused(false)
	}
	close(done)
	wg.Wait()
}
