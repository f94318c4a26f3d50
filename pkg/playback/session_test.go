package playback

import (
	"encoding/binary"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/user/webmplay/pkg/adapters/logger"
	"github.com/user/webmplay/pkg/mocks"
	"github.com/user/webmplay/pkg/ports"
)

var vp9Track = ports.Track{Number: 1, Type: ports.TrackVideo, CodecID: "V_VP9", FrameRate: 30, Width: 320, Height: 240}

func newTestSession(t *testing.T, codec *mocks.VideoCodec, audio *mocks.AudioCodec, device *mocks.AudioDevice, opts Options) *Session {
	t.Helper()
	var ac ports.AudioCodec
	if audio != nil {
		ac = audio
	}
	var dev ports.AudioDevice
	if device != nil {
		dev = device
	}
	return NewSession(codec, ac, dev, logger.NewNoop(), opts)
}

// withAudio adds a mono Vorbis track of n one-sample packets valued 1..n.
func withAudio(c *mocks.Container, n int) {
	packets := make([][]byte, n)
	for i := range packets {
		packets[i] = []byte{byte(i + 1)}
	}
	c.AddTrack(ports.Track{
		Number:       2,
		Type:         ports.TrackAudio,
		CodecID:      "A_VORBIS",
		CodecPrivate: lace([]byte("id"), []byte("comment"), []byte("setup")),
	}, packets)
}

func sessionFrame(t *testing.T, s *Session) int {
	t.Helper()
	img, ok := s.Latest()
	if !ok {
		t.Fatal("expected a published image")
	}
	return mocks.ImageFrameNumber(img)
}

func TestSession_Load(t *testing.T) {
	codec := &mocks.VideoCodec{}
	s := newTestSession(t, codec, nil, nil, DefaultOptions())

	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	c.AddTrack(ports.Track{Number: 3, Type: ports.TrackSubtitle, CodecID: "S_TEXT/WEBVTT"}, [][]byte{[]byte("hi")})
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !s.IsLoaded() {
		t.Fatal("expected loaded")
	}
	if s.TotalFrames() != 30 || s.CurrentFrame() != 0 {
		t.Errorf("expected 30 frames at 0, got %d at %d", s.TotalFrames(), s.CurrentFrame())
	}
	if got := sessionFrame(t, s); got != 0 {
		t.Errorf("expected frame 0 after load, got %d", got)
	}
	if s.Descriptor().Source != TimingFrameRate {
		t.Errorf("expected frame-rate timing, got %s", s.Descriptor().Source)
	}
	if s.Width() != 320 || s.Height() != 240 {
		t.Errorf("unexpected size %dx%d", s.Width(), s.Height())
	}
	if s.Duration() != time.Second {
		t.Errorf("expected 1s, got %v", s.Duration())
	}
	if codec.OpenCalls[0].Threads != 8 {
		t.Errorf("expected 8 decoder threads, got %d", codec.OpenCalls[0].Threads)
	}
	if s.HasAudio() {
		t.Errorf("expected no audio")
	}
	layout, ok := s.Layout()
	if !ok || layout.Conversion != ports.ConversionBT601 || layout.Count != 3 {
		t.Errorf("unexpected layout %+v", layout)
	}
}

func TestSession_LoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		container *mocks.Container
		codec     *mocks.VideoCodec
		want      error
	}{
		{
			name:      "no frames",
			container: mocks.NewFrameContainer(vp9Track, 0),
			codec:     &mocks.VideoCodec{},
			want:      ErrNoFrames,
		},
		{
			name:      "no timing",
			container: mocks.NewFrameContainer(ports.Track{Number: 1, CodecID: "V_VP9"}, 10, 0),
			codec:     &mocks.VideoCodec{},
			want:      ErrNoTiming,
		},
		{
			name:      "unsupported codec",
			container: mocks.NewFrameContainer(vp9Track, 10, 0),
			codec:     &mocks.VideoCodec{Families: map[string]ports.CodecFamily{"V_VP8": {Name: "vp8"}}},
			want:      ErrNoVideo,
		},
		{
			name:      "decoder init failure",
			container: mocks.NewFrameContainer(vp9Track, 10, 0),
			codec: &mocks.VideoCodec{OpenFunc: func(string, int) (ports.VideoDecoder, error) {
				return nil, errors.New("libvpx missing")
			}},
			want: ErrNoVideo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.codec, nil, nil, DefaultOptions())
			err := s.Load(tt.container)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if s.IsLoaded() {
				t.Errorf("session must stay unloaded")
			}
			if _, ok := s.Latest(); ok {
				t.Errorf("no image may be published")
			}
			if !errors.Is(s.Play(), ErrNotLoaded) {
				t.Errorf("Play on an unloaded session should fail")
			}
			for _, d := range tt.codec.Decoders {
				if !d.Closed {
					t.Errorf("decoder left open after failed load")
				}
			}
		})
	}
}

func TestSession_SkipsFailingVideoTrack(t *testing.T) {
	codec := &mocks.VideoCodec{}
	codec.OpenFunc = func(id string, threads int) (ports.VideoDecoder, error) {
		if id == "V_VP8" {
			return nil, errors.New("vp8 unavailable")
		}
		d := &mocks.VideoDecoder{}
		codec.Decoders = append(codec.Decoders, d)
		return d, nil
	}

	c := mocks.NewFrameContainer(ports.Track{Number: 1, CodecID: "V_VP8", FrameRate: 30}, 5, 0)
	packets := make([][]byte, 10)
	for i := range packets {
		packets[i] = binary.LittleEndian.AppendUint32(nil, uint32(i))
	}
	c.AddTrack(ports.Track{Number: 2, Type: ports.TrackVideo, CodecID: "V_VP9", FrameRate: 25}, packets)

	s := newTestSession(t, codec, nil, nil, DefaultOptions())
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.TotalFrames() != 10 || s.Descriptor().CodecID != "V_VP9" {
		t.Errorf("expected the VP9 track, got %+v", s.Descriptor())
	}
}

func TestSession_PlaybackScenario(t *testing.T) {
	codec := &mocks.VideoCodec{}
	s := newTestSession(t, codec, nil, nil, DefaultOptions())
	if err := s.Load(mocks.NewFrameContainer(vp9Track, 30, 0)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if !s.Update(500 * time.Millisecond) {
		t.Fatal("expected a new frame")
	}
	if got := sessionFrame(t, s); got != 15 {
		t.Errorf("expected frame 15, got %d", got)
	}
	// Frame 0 came from Load; the first cycle fills 1..15.
	if got := codec.Decoded(); !slices.Equal(got, span(0, 15)) {
		t.Errorf("expected frames 0..15 decoded once each, got %v", got)
	}

	if s.Update(0) {
		t.Errorf("Update(0) should not produce a new frame")
	}
	if s.IsFrameNew() {
		t.Errorf("IsFrameNew should be false after an idle update")
	}

	qa := s.QA()
	if qa.MissedFrames != 14 || qa.Cycles != 2 || qa.FramesShown != 2 {
		t.Errorf("unexpected QA %+v", qa)
	}
}

func TestSession_LoopScenario(t *testing.T) {
	codec := &mocks.VideoCodec{}
	opts := DefaultOptions()
	opts.Loop = true
	s := newTestSession(t, codec, nil, nil, opts)
	if err := s.Load(mocks.NewFrameContainer(vp9Track, 30, 0)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Play()

	s.Update(500 * time.Millisecond)
	if !s.Update(550 * time.Millisecond) {
		t.Fatal("expected a new frame after wrapping")
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("expected frame 1, got %d", s.CurrentFrame())
	}
	got := codec.Decoded()
	if !slices.Equal(got[len(got)-2:], []int{0, 1}) {
		t.Errorf("expected re-decode from keyframe 0, got tail %v", got[len(got)-2:])
	}
	if !s.IsPlaying() || s.IsMovieDone() {
		t.Errorf("looping session should keep playing")
	}
}

func TestSession_EndOfMovie(t *testing.T) {
	s := newTestSession(t, &mocks.VideoCodec{}, nil, nil, DefaultOptions())
	s.Load(mocks.NewFrameContainer(vp9Track, 30, 0))
	s.Play()

	s.Update(5 * time.Second)
	if !s.IsMovieDone() || s.IsPlaying() {
		t.Errorf("expected movie done")
	}
	if s.CurrentFrame() != 29 {
		t.Errorf("expected last frame, got %d", s.CurrentFrame())
	}

	// Playing again restarts from the first frame.
	s.Play()
	s.Update(0)
	if got := sessionFrame(t, s); got != 0 {
		t.Errorf("expected restart at 0, got %d", got)
	}
}

func TestSession_FrameStepping(t *testing.T) {
	s := newTestSession(t, &mocks.VideoCodec{}, nil, nil, DefaultOptions())
	s.Load(mocks.NewFrameContainer(vp9Track, 30, 0, 10, 20))

	s.NextFrame()
	if s.CurrentFrame() != 1 || sessionFrame(t, s) != 1 {
		t.Errorf("expected frame 1, got %d", s.CurrentFrame())
	}
	s.PreviousFrame()
	s.PreviousFrame() // clamps at 0
	if s.CurrentFrame() != 0 {
		t.Errorf("expected frame 0, got %d", s.CurrentFrame())
	}

	s.SetLooping(true)
	s.PreviousFrame()
	if s.CurrentFrame() != 29 || sessionFrame(t, s) != 29 {
		t.Errorf("expected wrap to 29, got %d", s.CurrentFrame())
	}
	if s.Position() != 1 {
		t.Errorf("expected position 1, got %f", s.Position())
	}

	s.SetPosition(0.5)
	if s.CurrentFrame() != 14 || !s.IsFrameNew() {
		t.Errorf("expected frame 14, got %d", s.CurrentFrame())
	}
	s.FirstFrame()
	if s.CurrentFrame() != 0 {
		t.Errorf("expected frame 0, got %d", s.CurrentFrame())
	}
	if s.QA().Seeks != 5 {
		t.Errorf("expected 5 seeks, got %d", s.QA().Seeks)
	}
}

func TestSession_AudioMaster(t *testing.T) {
	codec := &mocks.VideoCodec{}
	audio := &mocks.AudioCodec{SampleRate: 30, Channels: 1}
	device := &mocks.AudioDevice{}
	s := newTestSession(t, codec, audio, device, DefaultOptions())

	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	withAudio(c, 30)
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !s.HasAudio() {
		t.Fatal("expected audio")
	}
	if want := (AudioInfo{SampleRate: 30, Channels: 1, BitsPerSample: 32, TotalSamples: 30}); s.AudioInfo() != want {
		t.Errorf("expected %+v, got %+v", want, s.AudioInfo())
	}
	if device.Format != (ports.AudioFormat{SampleRate: 30, Channels: 1}) {
		t.Errorf("unexpected device format %+v", device.Format)
	}

	s.Play()
	if !device.Started {
		t.Errorf("expected device started")
	}

	// Wall time does not move an audio-driven timeline.
	if s.Update(10 * time.Second) {
		t.Errorf("expected no frame before audio is consumed")
	}

	out := device.Pull(15)
	if out[0] != 1 || out[14] != 15 {
		t.Errorf("unexpected audio %v", out)
	}
	s.Update(0)
	if s.CurrentFrame() != 15 {
		t.Errorf("expected frame 15 from 15 consumed samples, got %d", s.CurrentFrame())
	}

	// Seek moves the audio cursor to the matching sample.
	s.SetPosition(0.5)
	if out := device.Pull(1); out[0] != 15 {
		t.Errorf("expected sample 15 after seeking to frame 14, got %v", out[0])
	}

	// Underrun: partial copy, then end of audio and end of movie.
	out = device.Pull(20)
	if out[14] != 30 || out[15] != 0 {
		t.Errorf("expected partial copy, got %v", out)
	}
	if !s.IsAudioEnd() {
		t.Errorf("expected end of audio")
	}
	s.Update(0)
	if !s.IsMovieDone() || s.CurrentFrame() != 29 {
		t.Errorf("expected movie done at 29, got %d", s.CurrentFrame())
	}
	if device.Started {
		t.Errorf("expected device stopped at the end")
	}
}

func TestSession_AudioFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		audio  *mocks.AudioCodec
		device *mocks.AudioDevice
	}{
		{
			name: "bad headers",
			audio: &mocks.AudioCodec{OpenFunc: func(string) (ports.AudioDecoder, error) {
				return &mocks.AudioDecoder{Rate: 30, Chans: 1, ReadHeaderFunc: func([]byte) error {
					return errors.New("bad header")
				}}, nil
			}},
			device: &mocks.AudioDevice{},
		},
		{
			name:  "device open failure",
			audio: &mocks.AudioCodec{SampleRate: 30, Channels: 1},
			device: &mocks.AudioDevice{OpenFunc: func(ports.AudioFormat, ports.AudioCallback) error {
				return errors.New("no device")
			}},
		},
		{
			name:  "no device",
			audio: &mocks.AudioCodec{SampleRate: 30, Channels: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, &mocks.VideoCodec{}, tt.audio, tt.device, DefaultOptions())
			c := mocks.NewFrameContainer(vp9Track, 30, 0)
			withAudio(c, 30)
			if err := s.Load(c); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if s.HasAudio() {
				t.Errorf("expected audio disabled")
			}

			// Video-only playback on the wall clock.
			s.Play()
			s.Update(500 * time.Millisecond)
			if s.CurrentFrame() != 15 {
				t.Errorf("expected frame 15, got %d", s.CurrentFrame())
			}
		})
	}
}

// newShortAudioSession loads a 1 s video whose audio track stops at 0.5 s.
func newShortAudioSession(t *testing.T, loop bool) (*Session, *mocks.AudioDevice) {
	t.Helper()
	device := &mocks.AudioDevice{}
	opts := DefaultOptions()
	opts.Loop = loop
	s := newTestSession(t, &mocks.VideoCodec{}, &mocks.AudioCodec{SampleRate: 30, Channels: 1}, device, opts)
	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	withAudio(c, 15)
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s, device
}

func TestSession_SeekPastShortAudio(t *testing.T) {
	tests := []struct {
		name string
		loop bool
	}{
		{name: "once", loop: false},
		{name: "looping", loop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, device := newShortAudioSession(t, tt.loop)
			s.Play()
			s.SetFrame(25)

			if out := device.Pull(4); !slices.Equal(out, make([]float32, 4)) {
				t.Errorf("expected silence past the audio, got %v", out)
			}
			s.Update(0)
			if got := sessionFrame(t, s); got != 25 || s.CurrentFrame() != 25 {
				t.Fatalf("expected to stay on frame 25, got %d", got)
			}
			if !s.IsAudioEnd() {
				t.Errorf("expected end of audio")
			}

			// The wall clock carries on from the seek target.
			s.Update(100 * time.Millisecond)
			if s.CurrentFrame() != 28 {
				t.Errorf("expected frame 28, got %d", s.CurrentFrame())
			}

			s.Update(100 * time.Millisecond)
			if !tt.loop {
				if !s.IsMovieDone() || s.CurrentFrame() != 29 {
					t.Errorf("expected movie done at 29, got %d", s.CurrentFrame())
				}
				if device.Started {
					t.Errorf("expected device stopped at the end")
				}
				return
			}

			// After the wrap the audio drives the timeline again.
			if s.CurrentFrame() != 1 || s.IsMovieDone() {
				t.Fatalf("expected wrap to frame 1, got %d", s.CurrentFrame())
			}
			if out := device.Pull(2); !slices.Equal(out, []float32{2, 3}) {
				t.Errorf("expected audio from sample 1, got %v", out)
			}
			if s.IsAudioEnd() {
				t.Errorf("audio should be playing again")
			}
			s.Update(time.Second)
			if s.CurrentFrame() != 3 {
				t.Errorf("expected frame 3 from 3 consumed samples, got %d", s.CurrentFrame())
			}
		})
	}
}

func TestSession_ResumePastShortAudio(t *testing.T) {
	s, device := newShortAudioSession(t, false)
	s.Play()
	s.Update(0)
	s.Stop()

	// A seek while stopped sets where Play resumes.
	s.SetFrame(20)
	if err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if out := device.Pull(4); !slices.Equal(out, make([]float32, 4)) {
		t.Errorf("expected silence past the audio, got %v", out)
	}
	s.Update(0)
	if s.CurrentFrame() != 20 {
		t.Fatalf("expected to resume at frame 20, got %d", s.CurrentFrame())
	}
	s.Update(200 * time.Millisecond)
	if s.CurrentFrame() != 26 {
		t.Errorf("expected frame 26 on the wall clock, got %d", s.CurrentFrame())
	}

	// Seeking back into the audio hands the timeline back to it.
	s.SetFrame(3)
	if out := device.Pull(2); !slices.Equal(out, []float32{4, 5}) {
		t.Errorf("expected audio from sample 3, got %v", out)
	}
	s.Update(time.Second)
	if s.CurrentFrame() != 5 {
		t.Errorf("expected frame 5 from the audio clock, got %d", s.CurrentFrame())
	}
}

func TestSession_ShortAudioHandsOverToWallClock(t *testing.T) {
	s, device := newShortAudioSession(t, false)
	s.Play()

	device.Pull(15)
	s.Update(0)
	if s.CurrentFrame() != 15 {
		t.Fatalf("expected frame 15, got %d", s.CurrentFrame())
	}

	device.Pull(5)
	if !s.IsAudioEnd() {
		t.Fatal("expected end of audio")
	}
	s.Update(0)
	if s.CurrentFrame() != 15 {
		t.Errorf("hand-over should not move the timeline, got %d", s.CurrentFrame())
	}

	s.Update(300 * time.Millisecond)
	if s.CurrentFrame() != 24 {
		t.Errorf("expected frame 24 on the wall clock, got %d", s.CurrentFrame())
	}
	s.Update(300 * time.Millisecond)
	if !s.IsMovieDone() || s.CurrentFrame() != 29 {
		t.Errorf("expected movie done at 29, got %d", s.CurrentFrame())
	}
}

func TestSession_LongAudioLoopRestartsOncePerWrap(t *testing.T) {
	codec := &mocks.VideoCodec{}
	device := &mocks.AudioDevice{}
	opts := DefaultOptions()
	opts.Loop = true
	s := newTestSession(t, codec, &mocks.AudioCodec{SampleRate: 30, Channels: 1}, device, opts)
	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	withAudio(c, 45)
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Play()

	restarts := func() int {
		n := 0
		for _, f := range codec.Decoded() {
			if f == 0 {
				n++
			}
		}
		return n - 1 // frame 0 from Load
	}

	steps := []struct {
		pull     int
		frame    int
		restarts int
	}{
		{pull: 30, frame: 0, restarts: 1}, // video wraps, audio runs on
		{pull: 6, frame: 6, restarts: 1},  // past-the-end audio time
		{pull: 9, frame: 15, restarts: 1}, // audio buffer exhausted
		{pull: 3, frame: 3, restarts: 2},  // audio wraps
		{pull: 27, frame: 0, restarts: 3}, // video wraps again
	}
	for i, st := range steps {
		device.Pull(st.pull)
		s.Update(0)
		if s.CurrentFrame() != st.frame {
			t.Errorf("step %d: expected frame %d, got %d", i, st.frame, s.CurrentFrame())
		}
		if got := restarts(); got != st.restarts {
			t.Errorf("step %d: expected %d restarts, got %d (decoded %v)", i, st.restarts, got, codec.Decoded())
		}
		if got := sessionFrame(t, s); got != st.frame {
			t.Errorf("step %d: expected image of frame %d, got %d", i, st.frame, got)
		}
	}
	if !s.IsPlaying() || s.IsMovieDone() {
		t.Errorf("looping session should keep playing")
	}
}

func TestSession_DisableAudioOption(t *testing.T) {
	audio := &mocks.AudioCodec{SampleRate: 30, Channels: 1}
	opts := DefaultOptions()
	opts.DisableAudio = true
	s := newTestSession(t, &mocks.VideoCodec{}, audio, &mocks.AudioDevice{}, opts)
	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	withAudio(c, 30)
	s.Load(c)

	if s.HasAudio() || len(audio.Decoders) != 0 {
		t.Errorf("audio should not be opened")
	}
}

func TestSession_UnloadOrder(t *testing.T) {
	codec := &mocks.VideoCodec{}
	device := &mocks.AudioDevice{}
	s := newTestSession(t, codec, &mocks.AudioCodec{SampleRate: 30, Channels: 1}, device, DefaultOptions())
	c := mocks.NewFrameContainer(vp9Track, 30, 0)
	withAudio(c, 30)
	s.Load(c)
	s.Play()

	s.Unload()
	if !slices.Equal(device.Events, []string{"open", "start", "stop", "close"}) {
		t.Errorf("unexpected device events %v", device.Events)
	}
	if !codec.Current().Closed {
		t.Errorf("expected decoder closed")
	}
	if s.IsLoaded() || s.HasAudio() || s.TotalFrames() != 0 {
		t.Errorf("expected a clean unloaded session")
	}

	// Loading again works.
	if err := s.Load(c); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
}

// TestSession_ConcurrentAudio runs the device callback on its own goroutine
// while the update loop runs; run with -race.
func TestSession_ConcurrentAudio(t *testing.T) {
	device := &mocks.AudioDevice{}
	opts := DefaultOptions()
	opts.Loop = true
	s := newTestSession(t, &mocks.VideoCodec{}, &mocks.AudioCodec{SampleRate: 30, Channels: 1}, device, opts)
	c := mocks.NewFrameContainer(vp9Track, 30, 0, 10, 20)
	withAudio(c, 30)
	if err := s.Load(c); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Play()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				device.Pull(3)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		s.Update(time.Millisecond)
		if f := s.CurrentFrame(); f < 0 || f >= 30 {
			t.Errorf("frame out of range: %d", f)
		}
		if i%100 == 0 {
			s.SetPosition(float64(i%7) / 7)
		}
	}
	close(done)
	wg.Wait()
	s.Stop()
	s.Unload()
}
