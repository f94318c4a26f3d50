package pattern

import (
	"context"
	"image/color"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/user/webmplay/pkg/adapters/logger"
	"github.com/user/webmplay/pkg/mocks"
	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/ports"
)

// recordingRenderer hands out mock canvases and keeps them for inspection.
type recordingRenderer struct {
	mocks.Renderer
	mu       sync.Mutex
	canvases []*mocks.Canvas
}

func newRecordingRenderer() *recordingRenderer {
	r := &recordingRenderer{}
	r.CreateCanvasFunc = func(width, height int, bg color.Color) ports.Canvas {
		c := &mocks.Canvas{}
		r.mu.Lock()
		r.canvases = append(r.canvases, c)
		r.mu.Unlock()
		return c
	}
	return r
}

func (r *recordingRenderer) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.canvases {
		out = append(out, c.Texts...)
	}
	return out
}

func TestStage_Execute(t *testing.T) {
	renderer := newRecordingRenderer()
	stage := NewStage(renderer, logger.NewNoop(), 3)

	input := pipeline.PatternInput{
		Width:  64,
		Height: 48,
		FPS:    25,
		Frames: 10,
		Label:  "webmplay",
		Theme:  pipeline.DefaultPatternTheme(),
	}

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(result.Frames))
	}
	for i, f := range result.Frames {
		if f.Index != i {
			t.Errorf("frame %d has index %d", i, f.Index)
		}
		if want := int64(i) * 40_000_000; f.TimestampNs != want {
			t.Errorf("frame %d timestamp = %d, want %d", i, f.TimestampNs, want)
		}
		if f.Image == nil {
			t.Errorf("frame %d has no image", i)
		}
	}

	texts := renderer.texts()
	for _, want := range []string{"#0000", "#0009", "00:00.360", "webmplay"} {
		if !slices.Contains(texts, want) {
			t.Errorf("expected drawn text %q", want)
		}
	}
}

func TestStage_Execute_NoFrames(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, logger.NewNoop(), 0)

	result, err := stage.Execute(context.Background(), pipeline.PatternInput{Width: 16, Height: 16, FPS: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Frames) != 0 {
		t.Errorf("expected no frames, got %d", len(result.Frames))
	}
}

func TestStage_Execute_InvalidInput(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, logger.NewNoop(), 1)

	tests := []pipeline.PatternInput{
		{Width: 0, Height: 16, FPS: 30, Frames: 1},
		{Width: 16, Height: -1, FPS: 30, Frames: 1},
		{Width: 16, Height: 16, FPS: 0, Frames: 1},
	}
	for _, input := range tests {
		if _, err := stage.Execute(context.Background(), input); err == nil {
			t.Errorf("expected error for %+v", input)
		}
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, logger.NewNoop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stage.Execute(ctx, pipeline.PatternInput{Width: 16, Height: 16, FPS: 30, Frames: 5})
	if err == nil {
		t.Error("expected cancellation error")
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00.000"},
		{1234 * time.Millisecond, "00:01.234"},
		{61*time.Second + 5*time.Millisecond, "01:01.005"},
	}
	for _, tt := range tests {
		if got := Timecode(tt.d); got != tt.want {
			t.Errorf("Timecode(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
