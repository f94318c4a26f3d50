// Package runner drives playback sessions without a display: it loads a
// file, runs the update loop against the wall clock while an audio device
// pulls samples, and collects the results.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/playback"
	"github.com/user/webmplay/pkg/ports"
	"github.com/user/webmplay/pkg/summarizer"
)

// ErrUnknownFormat is returned when no parser is registered for a file's container format.
var ErrUnknownFormat = errors.New("runner: unknown container format")

// Deps groups the collaborators a Runner works with. Audio and Device may
// be nil for video-only playback.
type Deps struct {
	FS       ports.FileSystem
	Parsers  map[codecdetect.Format]ports.ContainerParser
	Video    ports.VideoCodec
	Audio    ports.AudioCodec
	Device   ports.AudioDevice
	Renderer ports.Renderer
	Sink     ports.DebugSink
	Logger   ports.Logger
}

// Runner loads files into playback sessions and drives them.
type Runner struct {
	deps   Deps
	logger ports.Logger
}

// New creates a new Runner.
func New(deps Deps) *Runner {
	return &Runner{
		deps:   deps,
		logger: deps.Logger.WithComponent("runner"),
	}
}

// Loaded is a session with its source file.
type Loaded struct {
	Path      string
	Format    codecdetect.Format
	FileSize  int64
	Container ports.Container
	Session   *playback.Session
}

// Parse reads and parses a file without creating a session.
func (r *Runner) Parse(path string) (ports.Container, codecdetect.Format, int64, error) {
	data, err := r.deps.FS.ReadFile(path)
	if err != nil {
		return nil, codecdetect.FormatUnknown, 0, fmt.Errorf("read %s: %w", path, err)
	}

	format := codecdetect.DetectFormat(data)
	parser, ok := r.deps.Parsers[format]
	if !ok {
		return nil, format, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	r.logger.Debug("Detected %s container", format)

	c, err := parser.Parse(data)
	if err != nil {
		return nil, format, 0, fmt.Errorf("%w: %v", playback.ErrFormat, err)
	}
	return c, format, int64(len(data)), nil
}

// Open parses a file and loads it into a new session using device for audio output.
func (r *Runner) Open(path string, opts playback.Options, device ports.AudioDevice) (*Loaded, error) {
	r.logger.Info("Opening %s", path)

	c, format, size, err := r.Parse(path)
	if err != nil {
		return nil, err
	}

	audio := r.deps.Audio
	if opts.DisableAudio {
		audio = nil
	}
	s := playback.NewSession(r.deps.Video, audio, device, r.deps.Logger, opts)
	if err := s.Load(c); err != nil {
		return nil, err
	}

	return &Loaded{
		Path:      path,
		Format:    format,
		FileSize:  size,
		Container: c,
		Session:   s,
	}, nil
}

// PlayOptions configures a headless playback run.
type PlayOptions struct {
	Session playback.Options

	// Tick is the update interval.
	Tick time.Duration

	// Start seeks to a fraction of the stream before playing.
	Start float64

	// MaxDuration stops the run after this much wall time. Zero plays to the
	// end, or until the context is cancelled when looping.
	MaxDuration time.Duration

	// FrameStride saves every Nth published frame to an enabled debug
	// sink. Zero saves none.
	FrameStride int

	// ProgressInterval is the period of progress log lines.
	ProgressInterval time.Duration
}

// DefaultPlayOptions returns the options used by the play command.
func DefaultPlayOptions() PlayOptions {
	return PlayOptions{
		Session:          playback.DefaultOptions(),
		Tick:             10 * time.Millisecond,
		ProgressInterval: time.Second,
	}
}

type savedFrame struct {
	index int
	img   image.Image
}

// Play loads path and plays it in real time. Cancelling ctx stops the run
// early; that is reported in the result, not as an error.
func (r *Runner) Play(ctx context.Context, path string, opts PlayOptions) (Result, error) {
	if opts.Tick <= 0 {
		opts.Tick = 10 * time.Millisecond
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = time.Second
	}

	loaded, err := r.Open(path, opts.Session, r.deps.Device)
	if err != nil {
		return Result{}, err
	}
	s := loaded.Session
	defer s.Unload()

	r.saveIndex(s)

	stride := opts.FrameStride
	if !r.deps.Sink.Enabled() {
		stride = 0
	}

	if opts.Start > 0 {
		if err := s.SetPosition(opts.Start); err != nil {
			return Result{}, err
		}
	}
	if err := s.Play(); err != nil {
		return Result{}, err
	}
	r.logger.Info("Playback started")

	var (
		current     atomic.Int64
		published   atomic.Int64
		saved       atomic.Int64
		interrupted bool
		completed   bool
	)
	current.Store(int64(s.CurrentFrame()))
	total := s.TotalFrames()

	frames := make(chan savedFrame, 4)
	done := make(chan struct{})
	begin := time.Now()

	g, gctx := errgroup.WithContext(ctx)

	// Update loop. It is the only goroutine touching the session.
	g.Go(func() error {
		defer close(done)
		defer close(frames)

		if stride > 0 {
			r.queueFrame(gctx, s, frames)
		}

		ticker := time.NewTicker(opts.Tick)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-gctx.Done():
				interrupted = true
				return nil
			case now := <-ticker.C:
				elapsed := now.Sub(last)
				last = now

				if s.Update(elapsed) {
					n := published.Add(1)
					current.Store(int64(s.CurrentFrame()))
					if stride > 0 && n%int64(stride) == 0 {
						r.queueFrame(gctx, s, frames)
					}
				}
				if s.IsMovieDone() {
					completed = true
					return nil
				}
				if opts.MaxDuration > 0 && time.Since(begin) >= opts.MaxDuration {
					return nil
				}
			}
		}
	})

	// Debug frame writer.
	g.Go(func() error {
		for f := range frames {
			if err := r.deps.Sink.SaveFrame(f.index, f.img); err != nil {
				r.logger.Warn("Failed to save frame %d: %v", f.index, err)
				continue
			}
			saved.Add(1)
		}
		return nil
	})

	// Progress reporter.
	g.Go(func() error {
		ticker := time.NewTicker(opts.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				r.logger.Info("Frame %d/%d at %.1fs", current.Load(), total, time.Since(begin).Seconds())
			}
		}
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if interrupted {
		r.logger.Warn("Interrupted, shutting down...")
	}

	if err := s.Stop(); err != nil {
		r.logger.Warn("Failed to stop playback: %v", err)
	}

	result := newResult(loaded)
	result.WallTime = time.Since(begin)
	result.PlaybackTime = s.PlaybackTime()
	result.LastFrame = s.CurrentFrame()
	result.Published = int(published.Load())
	result.FramesSaved = int(saved.Load())
	result.Completed = completed
	result.Interrupted = interrupted
	result.Looping = s.IsLooping()
	result.QA = s.QA()

	r.logger.Info("Playback finished after %s", result.WallTime.Round(time.Millisecond))

	if r.deps.Sink.Enabled() {
		report := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), r.deps.FS).Bytes(result.Summary())
		if err := r.deps.Sink.SaveReport(report); err != nil {
			r.logger.Warn("Failed to save report: %v", err)
		}
	}

	return result, nil
}

// queueFrame converts the latest image and hands it to the frame writer.
// The conversion happens here because decoder images are only valid until
// the next decode.
func (r *Runner) queueFrame(ctx context.Context, s *playback.Session, frames chan<- savedFrame) {
	img, ok := s.Latest()
	if !ok {
		return
	}
	rgba, err := r.deps.Renderer.ToRGBA(img)
	if err != nil {
		r.logger.Warn("Failed to convert frame %d: %v", s.CurrentFrame(), err)
		return
	}
	select {
	case frames <- savedFrame{index: s.CurrentFrame(), img: rgba}:
	case <-ctx.Done():
	}
}

func (r *Runner) saveIndex(s *playback.Session) {
	if !r.deps.Sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(s.Index().Dump(), "", "  ")
	if err != nil {
		r.logger.Warn("Failed to save frame index: %v", err)
		return
	}
	if err := r.deps.Sink.SaveIndexJSON(data); err != nil {
		r.logger.Warn("Failed to save frame index: %v", err)
	}
}
