package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/webmplay/pkg/ports"
)

// Options configures a Session.
type Options struct {
	// Threads is passed to the video decoder.
	Threads int
	Loop    bool
	Volume  float32

	// DisableAudio skips audio tracks entirely.
	DisableAudio bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Threads: 8,
		Volume:  1,
	}
}

// Session plays one container. Update, the seek methods and Load/Unload
// must be called from a single goroutine; the audio device calls the
// feeder from its own context.
type Session struct {
	video  ports.VideoCodec
	audio  ports.AudioCodec
	device ports.AudioDevice
	log    ports.Logger
	opts   Options

	id string

	loaded    bool
	container ports.Container
	index     *FrameIndex
	desc      StreamDescriptor
	clock     *Clock
	cursor    *DecodeCursor
	seeker    *SeekController
	stats     Stats
	frameNew  bool

	pcm        []float32
	audioInfo  AudioInfo
	feeder     *AudioFeeder
	deviceOpen bool
}

// NewSession creates an unloaded session. audio and device may be nil for
// video-only playback.
func NewSession(video ports.VideoCodec, audio ports.AudioCodec, device ports.AudioDevice, log ports.Logger, opts Options) *Session {
	if opts.Threads <= 0 {
		opts.Threads = DefaultOptions().Threads
	}
	id := uuid.NewString()
	return &Session{
		video:  video,
		audio:  audio,
		device: device,
		log:    log.WithComponent("playback:" + id[:8]),
		opts:   opts,
		id:     id,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Load builds the frame index, opens the decoders, pre-decodes audio and
// decodes the first frame. On error the session stays unloaded.
func (s *Session) Load(c ports.Container) error {
	s.Unload()

	body := c.Body()
	var (
		videoTrack ports.Track
		family     ports.CodecFamily
		index      *FrameIndex
		cursor     *DecodeCursor
		audioTrack *ports.Track
	)

	for _, t := range c.Tracks() {
		switch t.Type {
		case ports.TrackVideo:
			if cursor != nil {
				continue
			}
			fam, ok := s.video.Family(t.CodecID)
			if !ok {
				s.log.Warn("Skipping video track %d: unsupported codec %s", t.Number, t.CodecID)
				continue
			}
			idx, err := BuildFrameIndex(c.Blocks(t.Number), len(body))
			if err != nil {
				s.log.Error("Failed to index video track %d: %v", t.Number, err)
				return err
			}
			codecID := t.CodecID
			open := func() (ports.VideoDecoder, error) {
				return s.video.Open(codecID, s.opts.Threads)
			}
			cur, err := NewDecodeCursor(idx, body, fam, open, &s.stats, s.log)
			if err != nil {
				s.log.Warn("Skipping video track %d: %v", t.Number, err)
				continue
			}
			videoTrack, family, index, cursor = t, fam, idx, cur
		case ports.TrackAudio:
			if audioTrack == nil && !s.opts.DisableAudio && s.audio != nil && s.audio.Supports(t.CodecID) {
				audioTrack = &t
			}
		case ports.TrackSubtitle, ports.TrackMetadata:
			s.log.Debug("Ignoring %s track %d", t.Type, t.Number)
		}
	}

	if cursor == nil {
		s.log.Error("No playable video track")
		return ErrNoVideo
	}

	desc, err := DeriveStreamDescriptor(videoTrack, family, c.SegmentDurationNs(), index.Len())
	if err != nil {
		cursor.Close()
		s.log.Error("Failed to derive stream timing: %v", err)
		return err
	}

	if audioTrack != nil {
		pcm, info, err := s.loadAudio(c, *audioTrack)
		if err != nil {
			s.log.Warn("Audio disabled: %v", err)
		} else {
			s.pcm, s.audioInfo = pcm, info
		}
	}

	s.container = c
	s.index = index
	s.desc = desc
	s.cursor = cursor
	s.clock = NewClock(desc, s.audioInfo.SampleRate)
	s.clock.SetLooping(s.opts.Loop)
	if s.pcm != nil {
		s.feeder = NewAudioFeeder(s.clock, s.pcm, s.audioInfo.Channels)
		s.feeder.SetVolume(s.opts.Volume)
	}
	s.seeker = NewSeekController(s.clock, s.cursor, s.index, &s.stats, s.log, s.onSeek)
	s.stats.Reset()

	// First image, available before Play.
	s.frameNew = s.cursor.Fill(-1, 0)
	s.clock.SetFrame(0)
	s.clock.resumeAt = -1

	if s.feeder != nil && s.device != nil {
		format := ports.AudioFormat{SampleRate: s.audioInfo.SampleRate, Channels: s.audioInfo.Channels}
		if err := s.device.Open(format, s.feeder.Fill); err != nil {
			s.log.Warn("Audio disabled: %v", err)
			s.disableAudio()
		} else {
			s.deviceOpen = true
		}
	} else if s.feeder != nil {
		s.disableAudio()
	}

	s.loaded = true
	s.log.Info("Loaded %s %dx%d, %d frames at %.3f fps (%s)",
		desc.CodecID, desc.Width, desc.Height, desc.FrameCount, desc.FrameRate, desc.Source)
	if s.feeder != nil {
		s.log.Info("Audio %d Hz, %d channels, %d samples", s.audioInfo.SampleRate, s.audioInfo.Channels, s.audioInfo.TotalSamples)
	}
	return nil
}

func (s *Session) loadAudio(c ports.Container, t ports.Track) ([]float32, AudioInfo, error) {
	dec, err := s.audio.Open(t.CodecID)
	if err != nil {
		return nil, AudioInfo{}, fmt.Errorf("%w: %v", ErrCodecInit, err)
	}
	return PredecodeAudio(dec, t.CodecPrivate, c.Blocks(t.Number), c.Body(), s.log)
}

func (s *Session) disableAudio() {
	s.feeder = nil
	s.pcm = nil
	s.audioInfo = AudioInfo{}
	s.clock = NewClock(s.desc, 0)
	s.clock.SetLooping(s.opts.Loop)
	s.clock.SetFrame(0)
	s.clock.resumeAt = -1
	s.seeker = NewSeekController(s.clock, s.cursor, s.index, &s.stats, s.log, nil)
}

// Unload stops and closes the audio device before releasing the PCM
// buffer, the frame index and the decoder.
func (s *Session) Unload() {
	if !s.loaded {
		return
	}
	if s.clock != nil {
		s.clock.Stop()
	}
	if s.deviceOpen {
		if err := s.device.Stop(); err != nil {
			s.log.Warn("Failed to stop audio device: %v", err)
		}
		if err := s.device.Close(); err != nil {
			s.log.Warn("Failed to close audio device: %v", err)
		}
		s.deviceOpen = false
	}
	s.feeder = nil
	s.pcm = nil
	s.audioInfo = AudioInfo{}

	if s.cursor != nil {
		s.cursor.Close()
	}
	s.cursor = nil
	s.seeker = nil
	s.clock = nil
	s.index = nil
	s.container = nil
	s.desc = StreamDescriptor{}
	s.frameNew = false
	s.loaded = false
	s.log.Debug("Unloaded")
}

// IsLoaded reports whether a video track is ready.
func (s *Session) IsLoaded() bool {
	return s.loaded
}

// Update advances the timeline by elapsed and decodes up to the target
// frame. Reports whether a new image was published.
func (s *Session) Update(elapsed time.Duration) bool {
	if !s.loaded {
		return false
	}
	begin := time.Now()
	defer func() {
		s.stats.recordUpdate(time.Since(begin), s.desc.FrameDuration())
	}()

	if s.feeder != nil && s.feeder.IsAudioEnd() {
		s.clock.DetachAudio()
	}

	step := s.clock.Advance(elapsed)
	if step.Wrapped && s.feeder != nil && !s.clock.AudioDriven() {
		// The wall clock wrapped; bring the audio back from the loop start.
		s.clock.SetFrame(step.Target)
		s.syncAudio(s.clock.Consumed())
	}
	s.frameNew = false
	if !step.NewFrame {
		return false
	}
	s.frameNew = s.cursor.Fill(step.Prev, step.Target)
	if s.clock.IsDone() && s.deviceOpen {
		if err := s.device.Stop(); err != nil {
			s.log.Warn("Failed to stop audio device: %v", err)
		}
	}
	return s.frameNew
}

// IsFrameNew reports whether the last Update or seek published an image.
func (s *Session) IsFrameNew() bool {
	return s.frameNew
}

// Latest returns the last published image.
func (s *Session) Latest() (*ports.Image, bool) {
	if !s.loaded {
		return nil, false
	}
	return s.cursor.Latest()
}

// Layout returns the plane layout of the last published image.
func (s *Session) Layout() (ports.PlaneLayout, bool) {
	img, ok := s.Latest()
	if !ok {
		return ports.PlaneLayout{}, false
	}
	return img.Layout(), true
}

// Play starts or resumes playback.
func (s *Session) Play() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if !s.clock.Play() {
		return nil
	}
	s.syncAudio(s.clock.Consumed())
	if s.deviceOpen {
		if err := s.device.Start(); err != nil {
			return fmt.Errorf("failed to start audio device: %w", err)
		}
	}
	s.log.Debug("Playing from frame %d", max(s.clock.Current(), 0))
	return nil
}

// Stop stops playback and the audio device.
func (s *Session) Stop() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	s.clock.Stop()
	if s.deviceOpen {
		if err := s.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop audio device: %w", err)
		}
	}
	return nil
}

// SetPaused pauses or resumes without moving the position.
func (s *Session) SetPaused(paused bool) {
	if s.loaded {
		s.clock.SetPaused(paused)
	}
}

// SetLooping sets whether playback wraps at the end.
func (s *Session) SetLooping(loop bool) {
	s.opts.Loop = loop
	if s.loaded {
		s.clock.SetLooping(loop)
	}
}

func (s *Session) IsPlaying() bool { return s.loaded && s.clock.IsPlaying() }
func (s *Session) IsPaused() bool  { return s.loaded && s.clock.IsPaused() }
func (s *Session) IsLooping() bool { return s.opts.Loop }

// IsMovieDone reports whether a non-looping playback reached the end.
func (s *Session) IsMovieDone() bool {
	return s.loaded && s.clock.IsDone()
}

// SetPosition seeks to a fraction of the stream.
func (s *Session) SetPosition(f float64) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	s.frameNew = s.seeker.SeekFraction(f)
	return nil
}

// SetFrame seeks to frame n.
func (s *Session) SetFrame(n int) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	s.frameNew = s.seeker.SeekFrame(n)
	return nil
}

// FirstFrame seeks to frame 0.
func (s *Session) FirstFrame() error {
	return s.SetFrame(0)
}

// NextFrame steps one frame forward, wrapping when looping.
func (s *Session) NextFrame() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	n := s.clock.Current() + 1
	if n >= s.index.Len() && s.clock.IsLooping() {
		n = 0
	}
	return s.SetFrame(n)
}

// PreviousFrame steps one frame back, wrapping when looping.
func (s *Session) PreviousFrame() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	n := s.clock.Current() - 1
	if n < 0 && s.clock.IsLooping() {
		n = s.index.Len() - 1
	}
	return s.SetFrame(n)
}

// Position returns the current frame as a fraction of the stream.
func (s *Session) Position() float64 {
	if !s.loaded || s.index.Len() < 2 {
		return 0
	}
	return float64(max(s.clock.Current(), 0)) / float64(s.index.Len()-1)
}

// Duration returns the stream duration.
func (s *Session) Duration() time.Duration {
	if !s.loaded {
		return 0
	}
	return s.desc.Duration()
}

// CurrentFrame returns the current frame, -1 when nothing is decoded.
func (s *Session) CurrentFrame() int {
	if !s.loaded {
		return -1
	}
	return s.clock.Current()
}

// TotalFrames returns the number of video frames.
func (s *Session) TotalFrames() int {
	if !s.loaded {
		return 0
	}
	return s.index.Len()
}

// PlaybackTime returns the master clock time.
func (s *Session) PlaybackTime() time.Duration {
	if !s.loaded {
		return 0
	}
	return s.clock.Time()
}

// Width returns the video width.
func (s *Session) Width() int { return s.desc.Width }

// Height returns the video height.
func (s *Session) Height() int { return s.desc.Height }

// Descriptor returns the derived stream constants.
func (s *Session) Descriptor() StreamDescriptor { return s.desc }

// AudioInfo returns the pre-decoded audio format. Zero without audio.
func (s *Session) AudioInfo() AudioInfo { return s.audioInfo }

// HasAudio reports whether audio drives the timeline.
func (s *Session) HasAudio() bool { return s.feeder != nil }

// QA returns a snapshot of the playback counters.
func (s *Session) QA() QAInfo { return s.stats.Snapshot() }

// Index returns the frame index, nil when unloaded.
func (s *Session) Index() *FrameIndex { return s.index }

// IsAudioEnd reports whether non-looping audio ran out.
func (s *Session) IsAudioEnd() bool {
	return s.feeder != nil && s.feeder.IsAudioEnd()
}

// SetVolume sets the audio gain in [0,1].
func (s *Session) SetVolume(v float32) {
	s.opts.Volume = v
	if s.feeder != nil {
		s.feeder.SetVolume(v)
	}
}

// Volume returns the audio gain.
func (s *Session) Volume() float32 {
	if s.feeder != nil {
		return s.feeder.Volume()
	}
	return s.opts.Volume
}

func (s *Session) onSeek(sample uint64) {
	s.syncAudio(sample)
}

// syncAudio moves the feeder to sample. A sample past the end of the PCM
// leaves the timeline on the wall clock at the position the clock was just
// set to, and parks the feeder at its end.
func (s *Session) syncAudio(sample uint64) {
	if s.feeder == nil {
		return
	}
	if sample >= uint64(s.feeder.Frames()) {
		s.clock.FollowWallClock()
	}
	s.feeder.SeekToSample(sample)
}

// IsFormatError reports whether err means the container cannot be played.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}
