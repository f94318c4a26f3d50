// Package summarizer provides report generation for playback runs.
package summarizer

import "time"

// Summary contains all data collected during a playback run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `json:"generatedAt"`

	// Input file
	Input InputInfo `json:"input"`

	// Video stream constants
	Stream StreamInfo `json:"stream"`

	// Audio stream, zero when the file plays without audio
	Audio AudioInfo `json:"audio"`

	// Run outcome
	Playback PlaybackInfo `json:"playback"`

	// Per-cycle counters and timings
	QA QAInfo `json:"qa"`
}

// InputInfo describes the played file.
type InputInfo struct {
	Path      string `json:"path"`
	Container string `json:"container"`
	FileSize  int64  `json:"fileSize"`
	SessionID string `json:"sessionId"`
}

// StreamInfo describes the video track.
type StreamInfo struct {
	CodecID      string        `json:"codecId"`
	Family       string        `json:"family"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	FrameRate    float64       `json:"frameRate"`
	FrameCount   int           `json:"frameCount"`
	Keyframes    int           `json:"keyframes"`
	Duration     time.Duration `json:"duration"`
	TimingSource string        `json:"timingSource"`
}

// AudioInfo describes the audio track.
type AudioInfo struct {
	Present      bool          `json:"present"`
	SampleRate   int           `json:"sampleRate"`
	Channels     int           `json:"channels"`
	TotalSamples uint64        `json:"totalSamples"`
	Duration     time.Duration `json:"duration"`
}

// PlaybackInfo describes how the run ended.
type PlaybackInfo struct {
	WallTime     time.Duration `json:"wallTime"`
	PlaybackTime time.Duration `json:"playbackTime"`
	LastFrame    int           `json:"lastFrame"`
	Completed    bool          `json:"completed"`
	Interrupted  bool          `json:"interrupted"`
	Looping      bool          `json:"looping"`
	AudioClock   bool          `json:"audioClock"`
	FramesSaved  int           `json:"framesSaved"`
}

// QAInfo contains the playback counters.
type QAInfo struct {
	Cycles           uint64        `json:"cycles"`
	FramesShown      uint64        `json:"framesShown"`
	MissedFrames     uint64        `json:"missedFrames"`
	OverBudgetCycles uint64        `json:"overBudgetCycles"`
	DecodeErrors     uint64        `json:"decodeErrors"`
	Seeks            uint64        `json:"seeks"`
	DecoderResets    uint64        `json:"decoderResets"`
	UpdateTimeWorst  time.Duration `json:"updateTimeWorst"`
	DecodeTimeWorst  time.Duration `json:"decodeTimeWorst"`
	FetchTimeWorst   time.Duration `json:"fetchTimeWorst"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets input file information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithStream sets video stream information.
func (b *Builder) WithStream(stream StreamInfo) *Builder {
	b.summary.Stream = stream
	return b
}

// WithAudio sets audio stream information. The duration is derived from the
// sample count when not set.
func (b *Builder) WithAudio(audio AudioInfo) *Builder {
	if audio.Duration == 0 && audio.SampleRate > 0 {
		audio.Duration = time.Duration(audio.TotalSamples) * time.Second / time.Duration(audio.SampleRate)
	}
	b.summary.Audio = audio
	return b
}

// WithPlayback sets the run outcome.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = playback
	return b
}

// WithQA sets the playback counters.
func (b *Builder) WithQA(qa QAInfo) *Builder {
	b.summary.QA = qa
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
