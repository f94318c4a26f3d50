// Package encode implements the video encoding stage.
package encode

import (
	"context"
	"fmt"

	"github.com/user/webmplay/pkg/adapters/av1config"
	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/ports"
)

// Stage encodes drawn frames into a video track.
type Stage struct {
	encoder ports.VideoEncoder
	logger  ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(encoder ports.VideoEncoder, logger ports.Logger) *Stage {
	return &Stage{
		encoder: encoder,
		logger:  logger.WithComponent("encode"),
	}
}

// Execute encodes all frames into one EncodedStream.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{}

	if len(input.Frames) == 0 {
		return result, fmt.Errorf("no frames to encode")
	}

	bounds := input.Frames[0].Image.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if err := s.encoder.Begin(width, height, input.FPS, input.Options); err != nil {
		return result, fmt.Errorf("begin encoding: %w", err)
	}

	var out []ports.EncodedFrame
	for _, frame := range input.Frames {
		select {
		case <-ctx.Done():
			// Release encoder state; the frames are discarded.
			s.encoder.End()
			return result, ctx.Err()
		default:
		}

		frames, err := s.encoder.EncodeFrame(frame.Image)
		if err != nil {
			s.encoder.End()
			return result, fmt.Errorf("encode frame %d: %w", frame.Index, err)
		}
		out = append(out, frames...)
	}

	rest, err := s.encoder.End()
	if err != nil {
		return result, fmt.Errorf("end encoding: %w", err)
	}
	out = append(out, rest...)
	if len(out) == 0 {
		return result, fmt.Errorf("encoder produced no frames")
	}

	stream := ports.EncodedStream{
		Type:      ports.TrackVideo,
		CodecID:   s.encoder.CodecID(),
		Width:     width,
		Height:    height,
		FrameRate: input.FPS,
		Frames:    out,
	}
	if stream.CodecID == av1config.CodecID {
		priv, err := av1config.CodecPrivate(out)
		if err != nil {
			return result, fmt.Errorf("codec private: %w", err)
		}
		stream.CodecPrivate = priv
	}

	result.Stream = stream
	for _, f := range out {
		result.Bytes += int64(len(f.Data))
		if f.IsKeyframe {
			result.Keyframes++
		}
	}

	s.logger.Debug("Encoded %d frames, %d keyframes, %d bytes", len(out), result.Keyframes, result.Bytes)
	return result, nil
}
