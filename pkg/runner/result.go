package runner

import (
	"time"

	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/playback"
	"github.com/user/webmplay/pkg/summarizer"
)

// Result describes a finished playback run.
type Result struct {
	Path      string
	Format    codecdetect.Format
	FileSize  int64
	SessionID string

	Descriptor playback.StreamDescriptor
	Keyframes  int
	HasAudio   bool
	Audio      playback.AudioInfo

	WallTime     time.Duration
	PlaybackTime time.Duration
	LastFrame    int
	Published    int
	FramesSaved  int
	Completed    bool
	Interrupted  bool
	Looping      bool

	QA playback.QAInfo
}

// newResult captures the stream constants of a loaded session.
func newResult(l *Loaded) Result {
	s := l.Session
	return Result{
		Path:       l.Path,
		Format:     l.Format,
		FileSize:   l.FileSize,
		SessionID:  s.ID(),
		Descriptor: s.Descriptor(),
		Keyframes:  len(s.Index().Keyframes()),
		HasAudio:   s.HasAudio(),
		Audio:      s.AudioInfo(),
	}
}

// Summary converts the result into a report summary.
func (r Result) Summary() *summarizer.Summary {
	d := r.Descriptor
	b := summarizer.NewBuilder().
		WithInput(summarizer.InputInfo{
			Path:      r.Path,
			Container: string(r.Format),
			FileSize:  r.FileSize,
			SessionID: r.SessionID,
		}).
		WithStream(summarizer.StreamInfo{
			CodecID:      d.CodecID,
			Family:       d.Family.Name,
			Width:        d.Width,
			Height:       d.Height,
			FrameRate:    float64(d.FrameRate),
			FrameCount:   int(d.FrameCount),
			Keyframes:    r.Keyframes,
			Duration:     d.Duration(),
			TimingSource: d.Source.String(),
		}).
		WithPlayback(summarizer.PlaybackInfo{
			WallTime:     r.WallTime,
			PlaybackTime: r.PlaybackTime,
			LastFrame:    r.LastFrame,
			Completed:    r.Completed,
			Interrupted:  r.Interrupted,
			Looping:      r.Looping,
			AudioClock:   r.HasAudio,
			FramesSaved:  r.FramesSaved,
		}).
		WithQA(summarizer.QAInfo{
			Cycles:           r.QA.Cycles,
			FramesShown:      r.QA.FramesShown,
			MissedFrames:     r.QA.MissedFrames,
			OverBudgetCycles: r.QA.OverBudgetCycles,
			DecodeErrors:     r.QA.DecodeErrors,
			Seeks:            r.QA.Seeks,
			DecoderResets:    r.QA.DecoderResets,
			UpdateTimeWorst:  r.QA.UpdateTimeWorst,
			DecodeTimeWorst:  r.QA.DecodeTimeWorst,
			FetchTimeWorst:   r.QA.FetchTimeWorst,
		})

	if r.HasAudio {
		b.WithAudio(summarizer.AudioInfo{
			Present:      true,
			SampleRate:   r.Audio.SampleRate,
			Channels:     r.Audio.Channels,
			TotalSamples: r.Audio.TotalSamples,
		})
	}
	return b.Build()
}
