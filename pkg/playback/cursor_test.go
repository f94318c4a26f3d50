package playback

import (
	"errors"
	"slices"
	"testing"

	"github.com/user/webmplay/pkg/adapters/logger"
	"github.com/user/webmplay/pkg/mocks"
	"github.com/user/webmplay/pkg/ports"
)

type cursorRig struct {
	codec  *mocks.VideoCodec
	index  *FrameIndex
	cursor *DecodeCursor
	stats  *Stats
}

func newCursorRig(t *testing.T, family ports.CodecFamily, frames int, keys ...int) *cursorRig {
	t.Helper()
	c := mocks.NewFrameContainer(ports.Track{FrameRate: 30}, frames, keys...)
	idx, err := BuildFrameIndex(c.Blocks(1), len(c.Body()))
	if err != nil {
		t.Fatalf("BuildFrameIndex failed: %v", err)
	}
	rig := &cursorRig{codec: &mocks.VideoCodec{}, index: idx, stats: &Stats{}}
	open := func() (ports.VideoDecoder, error) { return rig.codec.Open("V_VP9", 8) }
	rig.cursor, err = NewDecodeCursor(idx, c.Body(), family, open, rig.stats, logger.NewNoop())
	if err != nil {
		t.Fatalf("NewDecodeCursor failed: %v", err)
	}
	return rig
}

func span(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func latestFrame(t *testing.T, c *DecodeCursor) int {
	t.Helper()
	img, ok := c.Latest()
	if !ok {
		t.Fatal("expected a published image")
	}
	return mocks.ImageFrameNumber(img)
}

func TestDecodeCursor_FirstCycleDecodesFromKeyframe(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{Name: "vp9"}, 30, 0)

	if !rig.cursor.Fill(-1, 15) {
		t.Fatal("expected an image")
	}
	if got := rig.codec.Decoded(); !slices.Equal(got, span(0, 15)) {
		t.Errorf("expected frames 0..15, got %v", got)
	}
	if got := latestFrame(t, rig.cursor); got != 15 {
		t.Errorf("expected frame 15 published, got %d", got)
	}

	qa := rig.stats.Snapshot()
	if qa.MissedFrames != 15 {
		t.Errorf("expected 15 missed frames, got %d", qa.MissedFrames)
	}
	if qa.FramesShown != 1 {
		t.Errorf("expected 1 frame shown, got %d", qa.FramesShown)
	}
}

func TestDecodeCursor_ForwardContinues(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{Name: "vp9"}, 30, 0)
	rig.cursor.Fill(-1, 15)

	rig.cursor.Fill(15, 17)
	if got := rig.codec.Decoded()[16:]; !slices.Equal(got, []int{16, 17}) {
		t.Errorf("expected frames 16,17, got %v", got)
	}
}

func TestDecodeCursor_CrossKeyframe(t *testing.T) {
	tests := []struct {
		name         string
		resetOnSeek  bool
		wantDecoders int
	}{
		{name: "reset family", resetOnSeek: true, wantDecoders: 2},
		{name: "no reset family", resetOnSeek: false, wantDecoders: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newCursorRig(t, ports.CodecFamily{ResetOnSeek: tt.resetOnSeek}, 30, 0, 10, 20)
			rig.cursor.Fill(-1, 5)

			rig.cursor.Fill(5, 22)
			if got := rig.codec.Current().Decoded; !slices.Equal(got[len(got)-3:], []int{20, 21, 22}) {
				t.Errorf("expected chain 20..22, got %v", got)
			}
			if got := len(rig.codec.Decoders); got != tt.wantDecoders {
				t.Errorf("expected %d decoder instances, got %d", tt.wantDecoders, got)
			}
			if got := latestFrame(t, rig.cursor); got != 22 {
				t.Errorf("expected frame 22, got %d", got)
			}
		})
	}
}

func TestDecodeCursor_Backward(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{ResetOnSeek: true}, 30, 0, 10, 20)
	rig.cursor.Fill(-1, 22)

	rig.cursor.Fill(22, 12)
	dec := rig.codec.Current()
	if !slices.Equal(dec.Decoded, []int{10, 11, 12}) {
		t.Errorf("expected fresh decoder fed 10..12, got %v", dec.Decoded)
	}
	if !rig.codec.Decoders[0].Closed {
		t.Errorf("expected old decoder closed")
	}
	if rig.stats.Snapshot().DecoderResets != 1 {
		t.Errorf("expected 1 reset")
	}
}

func TestDecodeCursor_LoopRestartIsContiguousAtKeyframe(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{ResetOnSeek: true}, 30, 0, 10)
	rig.cursor.Fill(-1, 9)

	// Frame 10 is a keyframe right after the last decoded frame.
	rig.cursor.Fill(9, 11)
	if len(rig.codec.Decoders) != 1 {
		t.Errorf("contiguous keyframe entry should not reset, got %d decoders", len(rig.codec.Decoders))
	}
}

func TestDecodeCursor_CorruptFrameIsSkipped(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{Name: "vp8"}, 30, 0)
	rig.codec.Current().DecodeFunc = func(data []byte) error {
		if mocks.FrameNumber(data) == 3 {
			return errors.New("corrupt")
		}
		return nil
	}

	if !rig.cursor.Fill(-1, 5) {
		t.Fatal("expected an image despite a corrupt middle frame")
	}
	if got := rig.codec.Decoded(); !slices.Equal(got, []int{0, 1, 2, 4, 5}) {
		t.Errorf("expected frames 0,1,2,4,5 decoded, got %v", got)
	}
	if got := rig.stats.Snapshot().DecodeErrors; got != 1 {
		t.Errorf("expected 1 decode error, got %d", got)
	}
}

func TestDecodeCursor_FailedTargetKeepsPreviousImage(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{Name: "vp8"}, 30, 0)
	rig.cursor.Fill(-1, 5)

	rig.codec.Current().DecodeFunc = func(data []byte) error {
		if mocks.FrameNumber(data) == 6 {
			return errors.New("corrupt")
		}
		return nil
	}
	if rig.cursor.Fill(5, 6) {
		t.Errorf("expected no new image")
	}
	if got := latestFrame(t, rig.cursor); got != 5 {
		t.Errorf("expected frame 5 to stay published, got %d", got)
	}

	// Decoding continues past the bad frame.
	if !rig.cursor.Fill(6, 7) {
		t.Errorf("expected frame 7 to publish")
	}
}

func TestDecodeCursor_ReopenFailure(t *testing.T) {
	rig := newCursorRig(t, ports.CodecFamily{ResetOnSeek: true}, 30, 0, 10)
	rig.cursor.Fill(-1, 12)

	rig.codec.OpenFunc = func(string, int) (ports.VideoDecoder, error) {
		return nil, errors.New("out of memory")
	}
	if rig.cursor.Fill(12, 3) {
		t.Errorf("expected no image without a decoder")
	}
	if got := rig.stats.Snapshot().DecodeErrors; got != 4 {
		t.Errorf("expected 4 decode errors, got %d", got)
	}
	if _, ok := rig.cursor.Latest(); !ok {
		t.Errorf("previous image should stay published")
	}

	// The next forward decode opens a decoder and restarts at the keyframe.
	rig.codec.OpenFunc = nil
	if !rig.cursor.Fill(3, 4) {
		t.Fatal("expected an image once the decoder reopens")
	}
	if got := latestFrame(t, rig.cursor); got != 4 {
		t.Errorf("expected frame 4, got %d", got)
	}
	if got := rig.codec.Current().Decoded; !slices.Equal(got, span(0, 4)) {
		t.Errorf("expected frames 0..4 on the new decoder, got %v", got)
	}
}

func TestNewDecodeCursor_OpenFailure(t *testing.T) {
	c := mocks.NewFrameContainer(ports.Track{}, 3, 0)
	idx, _ := BuildFrameIndex(c.Blocks(1), len(c.Body()))
	open := func() (ports.VideoDecoder, error) { return nil, errors.New("no codec") }

	_, err := NewDecodeCursor(idx, c.Body(), ports.CodecFamily{}, open, &Stats{}, logger.NewNoop())
	if !errors.Is(err, ErrCodecInit) {
		t.Errorf("expected ErrCodecInit, got %v", err)
	}
}
