// Package orchestrator coordinates the test stream generation stages.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/ports"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	OutputPath string
	Container  string // "webm" or "mp4"

	// Picture
	Width  int
	Height int
	FPS    float64
	Frames int
	Label  string
	Theme  pipeline.PatternTheme

	// Encoding
	Quality          int
	Bitrate          int
	KeyframeInterval int
	Threads          int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Container:        "webm",
		Width:            320,
		Height:           240,
		FPS:              30,
		Frames:           90,
		Theme:            pipeline.DefaultPatternTheme(),
		Quality:          28,
		KeyframeInterval: 30,
	}
}

// Orchestrator coordinates the execution of all generation stages.
type Orchestrator struct {
	patternStage pipeline.Stage[pipeline.PatternInput, pipeline.PatternResult]
	encodeStage  pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	muxStage     pipeline.Stage[pipeline.MuxInput, pipeline.MuxResult]
	fs           ports.FileSystem
	logger       ports.Logger
}

// New creates a new Orchestrator.
func New(
	patternStage pipeline.Stage[pipeline.PatternInput, pipeline.PatternResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	muxStage pipeline.Stage[pipeline.MuxInput, pipeline.MuxResult],
	fs ports.FileSystem,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		patternStage: patternStage,
		encodeStage:  encodeStage,
		muxStage:     muxStage,
		fs:           fs,
		logger:       logger,
	}
}

// Run draws, encodes and muxes a test stream and writes it to config.OutputPath.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	start := time.Now()
	o.logger.Info("Generating %d frames at %dx%d, %.2f fps", config.Frames, config.Width, config.Height, config.FPS)

	// 1. Draw frames
	pattern, err := o.patternStage.Execute(ctx, pipeline.PatternInput{
		Width:  config.Width,
		Height: config.Height,
		FPS:    config.FPS,
		Frames: config.Frames,
		Label:  config.Label,
		Theme:  config.Theme,
	})
	if err != nil {
		o.logger.Error("Failed to draw frames: %v", err)
		return RunResult{}, fmt.Errorf("pattern stage: %w", err)
	}

	// 2. Encode video
	o.logger.Info("Encoding video with quantizer %d", config.Quality)
	encoded, err := o.encodeStage.Execute(ctx, pipeline.EncodeInput{
		Frames: pattern.Frames,
		FPS:    config.FPS,
		Options: ports.EncoderOptions{
			Quality:          config.Quality,
			Bitrate:          config.Bitrate,
			KeyframeInterval: config.KeyframeInterval,
			Threads:          config.Threads,
		},
	})
	if err != nil {
		o.logger.Error("Failed to encode video: %v", err)
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}

	// 3. Mux
	muxed, err := o.muxStage.Execute(ctx, pipeline.MuxInput{
		Streams:   []ports.EncodedStream{encoded.Stream},
		Container: config.Container,
	})
	if err != nil {
		o.logger.Error("Failed to write container: %v", err)
		return RunResult{}, fmt.Errorf("mux stage: %w", err)
	}

	// 4. Write output file
	if err := o.fs.WriteFile(config.OutputPath, muxed.Data); err != nil {
		o.logger.Error("Failed to write output: %v", err)
		return RunResult{}, fmt.Errorf("write output: %w", err)
	}

	o.logger.Info("Output saved to %s", config.OutputPath)

	return RunResult{
		OutputPath: config.OutputPath,
		Container:  muxed.Container,
		CodecID:    encoded.Stream.CodecID,
		Width:      encoded.Stream.Width,
		Height:     encoded.Stream.Height,
		FPS:        config.FPS,
		FrameCount: len(encoded.Stream.Frames),
		Keyframes:  encoded.Keyframes,
		Duration:   time.Duration(float64(len(encoded.Stream.Frames)) * float64(time.Second) / config.FPS),
		FileSize:   int64(len(muxed.Data)),
		Elapsed:    time.Since(start),
	}, nil
}

// RunResult describes a generated stream.
type RunResult struct {
	OutputPath string
	Container  string
	CodecID    string

	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Keyframes  int
	Duration   time.Duration
	FileSize   int64

	Elapsed time.Duration
}
