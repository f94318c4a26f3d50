package webmdemux

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/user/webmplay/pkg/adapters/webmmux"
	"github.com/user/webmplay/pkg/ports"
)

func buildWebM(t *testing.T) []byte {
	t.Helper()
	video := ports.EncodedStream{
		Type:         ports.TrackVideo,
		CodecID:      "V_VP8",
		Width:        64,
		Height:       48,
		FrameRate:    30,
		CodecPrivate: nil,
	}
	for i := 0; i < 4; i++ {
		video.Frames = append(video.Frames, ports.EncodedFrame{
			Data:        []byte{0xd0, byte(i)},
			TimestampNs: int64(i) * 1_000_000_000 / 30,
			IsKeyframe:  i%2 == 0,
		})
	}
	audio := ports.EncodedStream{
		Type:         ports.TrackAudio,
		CodecID:      "A_VORBIS",
		CodecPrivate: []byte{2, 1, 1, 'a', 'b', 'c'},
		SampleRate:   48000,
		Channels:     2,
	}
	for i := 0; i < 3; i++ {
		audio.Frames = append(audio.Frames, ports.EncodedFrame{
			Data:        []byte{0xa0, byte(i)},
			TimestampNs: int64(i) * 50_000_000,
			IsKeyframe:  true,
		})
	}

	data, err := webmmux.New().Mux([]ports.EncodedStream{video, audio})
	if err != nil {
		t.Fatalf("Mux failed: %v", err)
	}
	return data
}

func payloads(c ports.Container, track uint64) ([][]byte, []bool) {
	var data [][]byte
	var keys []bool
	for b := range c.Blocks(track) {
		for _, r := range b.Frames {
			data = append(data, c.Body()[r.Offset:r.Offset+uint64(r.Length)])
		}
		keys = append(keys, b.IsKey)
	}
	return data, keys
}

func TestParser_Parse(t *testing.T) {
	c, err := New().Parse(buildWebM(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tracks := c.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	v := tracks[0]
	if v.Type != ports.TrackVideo || v.CodecID != "V_VP8" || v.Number != 1 {
		t.Errorf("unexpected video track %+v", v)
	}
	if v.Width != 64 || v.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", v.Width, v.Height)
	}
	if v.DefaultFrameDurationNs != 33_333_333 {
		t.Errorf("expected default duration 33333333, got %d", v.DefaultFrameDurationNs)
	}

	a := tracks[1]
	if a.Type != ports.TrackAudio || a.CodecID != "A_VORBIS" {
		t.Errorf("unexpected audio track %+v", a)
	}
	if a.SampleRate != 48000 || a.Channels != 2 {
		t.Errorf("unexpected audio format %g/%d", a.SampleRate, a.Channels)
	}
	if !bytes.Equal(a.CodecPrivate, []byte{2, 1, 1, 'a', 'b', 'c'}) {
		t.Errorf("unexpected codec private %x", a.CodecPrivate)
	}

	// Last frame at 100ms plus one frame duration.
	if got := float64(c.SegmentDurationNs()); math.Abs(got-133_333_333) > 1_000_000 {
		t.Errorf("expected ~133ms segment, got %v", got)
	}

	data, keys := payloads(c, 1)
	if len(data) != 4 {
		t.Fatalf("expected 4 video frames, got %d", len(data))
	}
	for i, d := range data {
		if !bytes.Equal(d, []byte{0xd0, byte(i)}) {
			t.Errorf("video frame %d: unexpected payload %x", i, d)
		}
	}
	if !slices.Equal(keys, []bool{true, false, true, false}) {
		t.Errorf("unexpected key flags %v", keys)
	}

	data, _ = payloads(c, 2)
	if len(data) != 3 || !bytes.Equal(data[2], []byte{0xa0, 2}) {
		t.Errorf("unexpected audio payloads %x", data)
	}
}

func TestParser_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"mp4", []byte("\x00\x00\x00\x18ftypisom")},
		{"truncated", []byte{0x1a, 0x45, 0xdf, 0xa3, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().Parse(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := New().Parse([]byte("plain text")); !errors.Is(err, ErrNotWebM) {
		t.Errorf("expected ErrNotWebM, got %v", err)
	}
}
