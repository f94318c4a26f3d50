// Package main provides the CLI entry point for webmplay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/webmplay/pkg/adapters/av1encoder"
	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/adapters/filesink"
	"github.com/user/webmplay/pkg/adapters/fmp4mux"
	"github.com/user/webmplay/pkg/adapters/ggrenderer"
	"github.com/user/webmplay/pkg/adapters/logger"
	"github.com/user/webmplay/pkg/adapters/mp4demux"
	"github.com/user/webmplay/pkg/adapters/nullaudio"
	"github.com/user/webmplay/pkg/adapters/nullsink"
	"github.com/user/webmplay/pkg/adapters/osfilesystem"
	"github.com/user/webmplay/pkg/adapters/smartdecoder"
	"github.com/user/webmplay/pkg/adapters/vorbisdecoder"
	"github.com/user/webmplay/pkg/adapters/webmdemux"
	"github.com/user/webmplay/pkg/adapters/webmmux"
	"github.com/user/webmplay/pkg/config"
	"github.com/user/webmplay/pkg/orchestrator"
	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/playback"
	"github.com/user/webmplay/pkg/ports"
	"github.com/user/webmplay/pkg/runner"
	"github.com/user/webmplay/pkg/stages/encode"
	"github.com/user/webmplay/pkg/stages/mux"
	"github.com/user/webmplay/pkg/stages/pattern"
	"github.com/user/webmplay/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Info     InfoCmd     `cmd:"" help:"Show stream information of a WebM or MP4 file."`
	Play     PlayCmd     `cmd:"" help:"Play a file headlessly against the audio clock."`
	Snapshot SnapshotCmd `cmd:"" help:"Render one frame of a file as an image."`
	Gen      GenCmd      `cmd:"" help:"Generate a test pattern video."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Globals holds the flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"existingfile" help:"YAML configuration file."`
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// InfoCmd defines the info subcommand.
type InfoCmd struct {
	File    string `arg:"" type:"existingfile" help:"Input file."`
	JSON    bool   `help:"Print the information as JSON."`
	Frames  bool   `help:"Include the frame index."`
	Threads *int   `short:"t" help:"Decoder threads."`
}

// PlayCmd defines the play subcommand.
type PlayCmd struct {
	File string `arg:"" type:"existingfile" help:"Input file."`

	Loop     bool          `help:"Loop playback until interrupted."`
	Volume   *float64      `help:"Output volume (0.0-1.0)."`
	Start    float64       `help:"Start position as a fraction of the stream (0.0-1.0)."`
	Duration time.Duration `short:"d" help:"Stop after this much wall time (e.g. 10s)."`
	Threads  *int          `short:"t" help:"Decoder threads."`
	NoAudio  bool          `help:"Play video only, driven by the wall clock."`
	Capture  string        `help:"Write the mixed audio output to a raw float32 file."`

	Debug       bool   `help:"Enable debug output."`
	DebugDir    string `help:"Directory for debug output."`
	DebugStride *int   `help:"Save every Nth published frame in debug output."`

	Report string `short:"r" help:"Output playback summary to file (Markdown, or JSON for .json)."`
}

// SnapshotCmd defines the snapshot subcommand.
type SnapshotCmd struct {
	File     string  `arg:"" type:"existingfile" help:"Input file."`
	Output   string  `short:"o" required:"" help:"Output image path (.png or .jpg)."`
	Frame    int     `short:"f" default:"-1" help:"Frame number (overrides --position)."`
	Position float64 `short:"p" help:"Position as a fraction of the stream (0.0-1.0)."`

	Width     *int   `short:"W" help:"Output width, keeping the aspect ratio."`
	NoOverlay bool   `help:"Do not draw the caption bar."`
	Quality   *int   `short:"q" help:"JPEG quality (1-100)."`
	Font      string `help:"TrueType font for the caption."`
}

// GenCmd defines the gen subcommand.
type GenCmd struct {
	Output string `arg:"" help:"Output file path (.webm or .mp4)."`

	Width     *int     `short:"W" help:"Frame width."`
	Height    *int     `short:"H" help:"Frame height."`
	FPS       *float64 `help:"Frame rate."`
	Duration  *int     `short:"d" help:"Duration in milliseconds."`
	Quality   string   `short:"q" help:"Quality preset (low, medium, high)."`
	Keyframes *int     `help:"Keyframe interval in frames (0 = encoder default)."`
	Label     string   `help:"Text drawn on every frame."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("webmplay"),
		kong.Description(l10n.T("Play WebM video with the audio clock as master.")),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// setup loads the configuration and creates the logger.
func (g *Globals) setup() (config.Config, ports.Logger, error) {
	cfg := config.Defaults()
	if g.Config != "" {
		loaded, err := config.LoadFromFile(g.Config)
		if err != nil {
			return cfg, nil, err
		}
		cfg = loaded
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	var log ports.Logger
	if g.Quiet {
		log = logger.NewNoop()
	} else {
		level := ports.ParseLogLevel(cfg.LogLevel)
		console := logger.NewConsole(level)
		if level == ports.LevelDebug {
			console = console.WithElapsed()
		}
		log = console
	}
	if g.Config != "" {
		log.Debug("Loaded config from %s", g.Config)
	}
	return cfg, log, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// newRunner wires the playback adapters.
func newRunner(fs ports.FileSystem, renderer ports.Renderer, device ports.AudioDevice, sink ports.DebugSink, log ports.Logger) *runner.Runner {
	return runner.New(runner.Deps{
		FS: fs,
		Parsers: map[codecdetect.Format]ports.ContainerParser{
			codecdetect.FormatWebM: webmdemux.New(),
			codecdetect.FormatMP4:  mp4demux.New(),
		},
		Video:    smartdecoder.New(),
		Audio:    vorbisdecoder.NewCodec(),
		Device:   device,
		Renderer: renderer,
		Sink:     sink,
		Logger:   log,
	})
}

// Run executes the info command.
func (cmd *InfoCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	threads := cfg.Threads
	if cmd.Threads != nil {
		threads = max(*cmd.Threads, 1)
	}

	r := newRunner(osfilesystem.New(), ggrenderer.New(), nil, nullsink.New(), log)
	info, err := r.Info(cmd.File, threads)
	if err != nil {
		return err
	}
	if !cmd.Frames {
		info.Index = playback.IndexDump{}
	}

	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	printInfo(os.Stdout, info, cmd.Frames)
	return nil
}

func printInfo(w io.Writer, info runner.Info, frames bool) {
	d := info.Descriptor
	fmt.Fprintf(w, "%-14s %s\n", l10n.T("File")+":", info.Path)
	fmt.Fprintf(w, "%-14s %s (%d bytes)\n", l10n.T("Container")+":", info.Format, info.FileSize)
	for _, t := range info.Tracks {
		fmt.Fprintf(w, "%-14s #%d %s %s\n", l10n.T("Track")+":", t.Number, t.Type, t.CodecID)
	}
	fmt.Fprintf(w, "%-14s %s (%s)\n", l10n.T("Codec")+":", d.CodecID, d.Family.Name)
	fmt.Fprintf(w, "%-14s %dx%d\n", l10n.T("Resolution")+":", d.Width, d.Height)
	fmt.Fprintf(w, "%-14s %.3f fps (%s)\n", l10n.T("Frame Rate")+":", d.FrameRate, d.Source)
	fmt.Fprintf(w, "%-14s %d\n", l10n.T("Frame Count")+":", d.FrameCount)
	fmt.Fprintf(w, "%-14s %d\n", l10n.T("Keyframes")+":", info.Keyframes)
	fmt.Fprintf(w, "%-14s %s\n", l10n.T("Duration")+":", d.Duration().Round(time.Millisecond))
	if info.HasAudio {
		fmt.Fprintf(w, "%-14s %d Hz, %d ch, %d samples\n", l10n.T("Audio")+":",
			info.Audio.SampleRate, info.Audio.Channels, info.Audio.TotalSamples)
	} else {
		fmt.Fprintf(w, "%-14s %s\n", l10n.T("Audio")+":", l10n.T("None"))
	}
	if frames {
		for i, f := range info.Index.Frames {
			fmt.Fprintf(w, "%6d  offset=%-10d size=%-8d key=%d\n", i, f.Offset, f.Length, f.KeyframeIndex)
		}
	}
}

// Run executes the play command.
func (cmd *PlayCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	cmd.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	// Create audio device
	var device ports.AudioDevice
	if cfg.Audio.Enabled {
		opts := nullaudio.Options{PeriodFrames: cfg.Audio.PeriodFrames}
		if cfg.Audio.CapturePath != "" {
			f, err := os.Create(cfg.Audio.CapturePath)
			if err != nil {
				return fmt.Errorf("create audio capture: %w", err)
			}
			defer f.Close()
			opts.Capture = f
			log.Info("Audio capture enabled: %s", cfg.Audio.CapturePath)
		}
		device = nullaudio.New(opts)
	}

	// Create debug sink
	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
		log.Info("Debug output enabled: %s", cfg.DebugDir)
	} else {
		sink = nullsink.New()
	}

	opts := runner.DefaultPlayOptions()
	opts.Session.Threads = cfg.Threads
	opts.Session.Loop = cfg.Loop
	opts.Session.Volume = float32(cfg.Volume)
	opts.Session.DisableAudio = !cfg.Audio.Enabled
	opts.Tick = cfg.Tick()
	opts.Start = cmd.Start
	opts.MaxDuration = cmd.Duration
	if cfg.Debug {
		opts.FrameStride = cfg.DebugFrameStride
	}

	r := newRunner(fs, renderer, device, sink, log)
	result, err := r.Play(ctx, cmd.File, opts)
	if err != nil {
		return err
	}

	printResult(os.Stdout, result)

	if cmd.Report != "" {
		var formatter summarizer.Formatter = summarizer.NewMarkdownFormatter()
		if strings.EqualFold(filepath.Ext(cmd.Report), ".json") {
			formatter = summarizer.JSONFormatter
		}
		if err := summarizer.NewWriter(formatter, fs).Write(cmd.Report, result.Summary()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info("Report saved to %s", cmd.Report)
	}
	return nil
}

// apply overrides configuration values with the flags that were given.
func (cmd *PlayCmd) apply(cfg *config.Config) {
	if cmd.Loop {
		cfg.Loop = true
	}
	if cmd.Volume != nil {
		cfg.Volume = *cmd.Volume
	}
	if cmd.Threads != nil {
		cfg.Threads = *cmd.Threads
	}
	if cmd.NoAudio {
		cfg.Audio.Enabled = false
	}
	if cmd.Capture != "" {
		cfg.Audio.CapturePath = cmd.Capture
	}
	if cmd.Debug {
		cfg.Debug = true
	}
	if cmd.DebugDir != "" {
		cfg.DebugDir = cmd.DebugDir
	}
	if cmd.DebugStride != nil {
		cfg.DebugFrameStride = *cmd.DebugStride
	}
}

func printResult(w io.Writer, r runner.Result) {
	outcome := l10n.T("Stopped")
	switch {
	case r.Interrupted:
		outcome = l10n.T("Interrupted")
	case r.Completed:
		outcome = l10n.T("Completed")
	}
	fmt.Fprintf(w, "%s: %s, %s %d/%d, %s %s, %s %s\n",
		l10n.T("Result"), outcome,
		l10n.T("Last Frame"), r.LastFrame, r.Descriptor.FrameCount,
		l10n.T("Playback Time"), r.PlaybackTime.Round(time.Millisecond),
		l10n.T("Wall Time"), r.WallTime.Round(time.Millisecond))
	fmt.Fprintf(w, "%s: %d, %s: %d, %s: %d\n",
		l10n.T("Frames Shown"), r.QA.FramesShown,
		l10n.T("Missed Frames"), r.QA.MissedFrames,
		l10n.T("Decode Errors"), r.QA.DecodeErrors)
}

// Run executes the snapshot command.
func (cmd *SnapshotCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}

	opts := runner.DefaultSnapshotOptions()
	opts.Frame = cmd.Frame
	opts.Position = cmd.Position
	opts.Width = cfg.Snapshot.Width
	if cmd.Width != nil {
		opts.Width = max(*cmd.Width, 0)
	}
	opts.Overlay = cfg.Snapshot.Overlay && !cmd.NoOverlay
	opts.FontPath = cfg.Snapshot.FontPath
	if cmd.Font != "" {
		opts.FontPath = cmd.Font
	}
	opts.TextColor = config.ParseColor(cfg.Snapshot.TextColor)
	opts.Background = config.ParseColor(cfg.Snapshot.BackgroundColor)
	opts.Format = imageFormatFor(cmd.Output, cfg.ImageFormat())
	opts.Quality = cfg.Snapshot.Quality
	if cmd.Quality != nil {
		opts.Quality = min(max(*cmd.Quality, 1), 100)
	}
	opts.Threads = cfg.Threads

	fs := osfilesystem.New()
	r := newRunner(fs, ggrenderer.New(), nil, nullsink.New(), log)
	result, err := r.Snapshot(cmd.File, opts)
	if err != nil {
		return err
	}

	if err := fs.WriteFile(cmd.Output, result.Data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Info("Snapshot saved to %s", cmd.Output)
	return nil
}

// imageFormatFor picks the image format from the output extension.
func imageFormatFor(path string, fallback ports.ImageFormat) ports.ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ports.FormatPNG
	case ".jpg", ".jpeg":
		return ports.FormatJPEG
	default:
		return fallback
	}
}

// Run executes the gen command.
func (cmd *GenCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	cmd.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	gen := cfg.Generate

	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	workers := gen.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Create stages
	patternStage := pattern.NewStage(renderer, log, workers)
	encodeStage := encode.NewStage(av1encoder.New(), log)
	muxStage := mux.NewStage(map[string]ports.Muxer{
		"webm": webmmux.New(),
		"mp4":  fmp4mux.New(),
	}, log)

	orch := orchestrator.New(patternStage, encodeStage, muxStage, fs, log)

	orchConfig := orchestrator.DefaultConfig()
	orchConfig.OutputPath = cmd.Output
	orchConfig.Container = gen.Container
	orchConfig.Width = gen.Width
	orchConfig.Height = gen.Height
	orchConfig.FPS = gen.FPS
	orchConfig.Frames = gen.FrameCount()
	orchConfig.Label = cmd.Label
	orchConfig.Theme = pipeline.PatternTheme{
		BackgroundColor: config.ParseColor(gen.BackgroundColor),
		AccentColor:     config.ParseColor(gen.AccentColor),
		TextColor:       config.ParseColor(cfg.Snapshot.TextColor),
	}
	orchConfig.Quality = config.QuantizerFor(config.QualityPreset(gen.Quality))
	orchConfig.Bitrate = gen.Bitrate
	orchConfig.KeyframeInterval = gen.KeyframeInterval
	orchConfig.Threads = cfg.Threads

	result, err := orch.Run(ctx, orchConfig)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s %dx%d, %d %s, %s, %d bytes\n",
		result.OutputPath, result.CodecID, result.Width, result.Height,
		result.FrameCount, l10n.T("frames"), result.Duration.Round(time.Millisecond), result.FileSize)
	return nil
}

// apply overrides configuration values with the flags that were given.
func (cmd *GenCmd) apply(cfg *config.Config) {
	g := &cfg.Generate
	if cmd.Width != nil {
		g.Width = *cmd.Width
	}
	if cmd.Height != nil {
		g.Height = *cmd.Height
	}
	if cmd.FPS != nil {
		g.FPS = *cmd.FPS
	}
	if cmd.Duration != nil {
		g.DurationMs = *cmd.Duration
	}
	if cmd.Quality != "" {
		g.Quality = cmd.Quality
	}
	if cmd.Keyframes != nil {
		g.KeyframeInterval = *cmd.Keyframes
	}
	switch strings.ToLower(filepath.Ext(cmd.Output)) {
	case ".mp4", ".m4v":
		g.Container = "mp4"
	case ".webm", ".mkv":
		g.Container = "webm"
	}
}

// Run executes the version command.
func (cmd *VersionCmd) Run(g *Globals) error {
	fmt.Println(l10n.F("webmplay version %s", version))
	return nil
}
