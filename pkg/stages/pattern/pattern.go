// Package pattern implements the test pattern drawing stage.
package pattern

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/ports"
)

// Stage draws numbered test frames. Each frame shows its index, its
// presentation time, a bar sweeping across the picture and a progress bar,
// so a player that shows the wrong frame is easy to spot.
type Stage struct {
	renderer   ports.Renderer
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new pattern stage.
func NewStage(renderer ports.Renderer, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		logger:     logger.WithComponent("pattern"),
		numWorkers: numWorkers,
	}
}

// Execute draws all frames.
func (s *Stage) Execute(ctx context.Context, input pipeline.PatternInput) (pipeline.PatternResult, error) {
	if input.Width <= 0 || input.Height <= 0 {
		return pipeline.PatternResult{}, fmt.Errorf("invalid frame size %dx%d", input.Width, input.Height)
	}
	if input.FPS <= 0 {
		return pipeline.PatternResult{}, fmt.Errorf("invalid frame rate %g", input.FPS)
	}
	if input.Frames <= 0 {
		return pipeline.PatternResult{Frames: []pipeline.PatternFrame{}}, nil
	}

	s.logger.Debug("Drawing %d frames with %d workers", input.Frames, s.numWorkers)

	frames := make([]pipeline.PatternFrame, input.Frames)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)
	for i := 0; i < input.Frames; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each worker writes its own slot.
			frames[i] = s.draw(input, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.PatternResult{}, err
	}

	return pipeline.PatternResult{Frames: frames}, nil
}

func (s *Stage) draw(input pipeline.PatternInput, i int) pipeline.PatternFrame {
	w, h := input.Width, input.Height
	theme := input.Theme
	ts := TimestampNs(i, input.FPS)

	canvas := s.renderer.CreateCanvas(w, h, theme.BackgroundColor)

	barW := max(w/8, 1)
	step := max(w/max(int(input.FPS), 1), 1)
	x := (i * step) % w
	canvas.DrawRect(x, 0, barW, h, theme.AccentColor)

	progressH := max(h/24, 2)
	if input.Frames > 1 {
		canvas.DrawRect(0, h-progressH, w*i/(input.Frames-1), progressH, theme.AccentColor)
	}

	big := ports.TextStyle{FontSize: float64(h) / 5, Color: theme.TextColor}
	small := ports.TextStyle{FontSize: float64(h) / 12, Color: theme.TextColor}
	canvas.DrawText(FrameLabel(i), w/16, h/8, big)
	canvas.DrawText(Timecode(time.Duration(ts)), w/16, h/8+int(big.FontSize)+h/24, small)
	if input.Label != "" {
		canvas.DrawText(input.Label, w/16, h-progressH-int(small.FontSize)-h/24, small)
	}

	return pipeline.PatternFrame{
		Index:       i,
		TimestampNs: ts,
		Image:       canvas.ToImage(),
	}
}

// TimestampNs returns the presentation time of frame i at fps.
func TimestampNs(i int, fps float64) int64 {
	return int64(float64(i) * 1e9 / fps)
}

// FrameLabel returns the counter drawn on frame i.
func FrameLabel(i int) string {
	return fmt.Sprintf("#%04d", i)
}

// Timecode formats d as mm:ss.mmm.
func Timecode(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
