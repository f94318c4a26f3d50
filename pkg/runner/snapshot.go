package runner

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/user/webmplay/pkg/playback"
	"github.com/user/webmplay/pkg/ports"
)

// SnapshotOptions configures a still-frame render.
type SnapshotOptions struct {
	// Frame selects the frame when non-negative. Otherwise Position is used.
	Frame    int
	Position float64

	// Width scales the output, keeping the aspect ratio. Zero keeps the
	// decoded size.
	Width int

	// Overlay draws a caption bar with the frame number, time and codec.
	Overlay    bool
	FontPath   string
	TextColor  color.Color
	Background color.Color

	Format  ports.ImageFormat
	Quality int
	Threads int
}

// DefaultSnapshotOptions returns options rendering frame 0 as PNG.
func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{
		Overlay:    true,
		TextColor:  color.White,
		Background: color.Black,
		Format:     ports.FormatPNG,
		Quality:    90,
		Threads:    8,
	}
}

// SnapshotResult is an encoded still frame.
type SnapshotResult struct {
	Data   []byte
	Frame  int
	Width  int
	Height int
	Time   time.Duration
}

// Snapshot decodes one frame of path and encodes it as an image.
func (r *Runner) Snapshot(path string, opts SnapshotOptions) (SnapshotResult, error) {
	loaded, err := r.Open(path, playback.Options{Threads: opts.Threads, Volume: 1, DisableAudio: true}, nil)
	if err != nil {
		return SnapshotResult{}, err
	}
	s := loaded.Session
	defer s.Unload()

	if opts.Frame >= 0 {
		err = s.SetFrame(opts.Frame)
	} else {
		err = s.SetPosition(opts.Position)
	}
	if err != nil {
		return SnapshotResult{}, err
	}

	img, ok := s.Latest()
	if !ok {
		return SnapshotResult{}, fmt.Errorf("%w: no image at frame %d", playback.ErrFrameDecode, s.CurrentFrame())
	}
	frame := s.CurrentFrame()
	at := time.Duration(frame) * s.Descriptor().FrameDuration()

	rgba, err := r.deps.Renderer.ToRGBA(img)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("convert frame %d: %w", frame, err)
	}

	var out image.Image = rgba
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	if opts.Width > 0 && opts.Width != w {
		nh := max(int(math.Round(float64(h)*float64(opts.Width)/float64(w))), 1)
		out = r.deps.Renderer.ResizeImage(out, opts.Width, nh)
		w, h = opts.Width, nh
	}

	if opts.Overlay {
		out = r.drawCaption(out, w, h, captionText(frame, s.TotalFrames(), at, s.Descriptor().CodecID), opts)
	}

	data, err := r.deps.Renderer.EncodeImage(out, opts.Format, opts.Quality)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("encode frame %d: %w", frame, err)
	}

	r.logger.Info("Rendered frame %d (%dx%d)", frame, w, h)
	return SnapshotResult{Data: data, Frame: frame, Width: w, Height: h, Time: at}, nil
}

func (r *Runner) drawCaption(img image.Image, w, h int, text string, opts SnapshotOptions) image.Image {
	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	fg := opts.TextColor
	if fg == nil {
		fg = color.White
	}

	canvas := r.deps.Renderer.CreateCanvas(w, h, bg)
	canvas.DrawImage(img, 0, 0)

	bar := max(h/10, 12)
	canvas.DrawRect(0, h-bar, w, bar, color.NRGBA{A: 160})

	style := ports.TextStyle{FontSize: float64(bar) * 0.6, FontPath: opts.FontPath, Color: fg}
	_, th := canvas.MeasureText(text, style)
	canvas.DrawText(text, bar/3, h-bar+int((float64(bar)-th)/2), style)
	return canvas.ToImage()
}

func captionText(frame, total int, at time.Duration, codecID string) string {
	ms := at.Milliseconds()
	return fmt.Sprintf("frame %d/%d  %02d:%02d.%03d  %s", frame, total, ms/60000, ms/1000%60, ms%1000, codecID)
}
