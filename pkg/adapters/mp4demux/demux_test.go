package mp4demux

import (
	"bytes"
	"slices"
	"testing"

	"github.com/user/webmplay/pkg/adapters/fmp4mux"
	"github.com/user/webmplay/pkg/ports"
)

func buildMP4(t *testing.T, n int, keyEvery int) []byte {
	t.Helper()
	s := ports.EncodedStream{
		Type:      ports.TrackVideo,
		CodecID:   "V_AV1",
		Width:     64,
		Height:    48,
		FrameRate: 30,
	}
	for i := 0; i < n; i++ {
		s.Frames = append(s.Frames, ports.EncodedFrame{
			Data:        []byte{0x32, 0x01, byte(i)},
			TimestampNs: int64(i) * 1_000_000_000 / 30,
			IsKeyframe:  i%keyEvery == 0,
		})
	}
	data, err := fmp4mux.New().Mux([]ports.EncodedStream{s})
	if err != nil {
		t.Fatalf("Mux failed: %v", err)
	}
	return data
}

func TestParser_Parse(t *testing.T) {
	c, err := New().Parse(buildMP4(t, 6, 3))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tracks := c.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	track := tracks[0]
	if track.Type != ports.TrackVideo || track.CodecID != "V_AV1" {
		t.Errorf("unexpected track %+v", track)
	}
	if track.Width != 64 || track.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", track.Width, track.Height)
	}
	if track.DefaultFrameDurationNs != 33_333_333 {
		t.Errorf("expected default duration 33333333ns, got %d", track.DefaultFrameDurationNs)
	}
	if len(track.CodecPrivate) < 4 || track.CodecPrivate[0] != 0x81 {
		t.Errorf("expected an av1C record, got %x", track.CodecPrivate)
	}
	if c.SegmentDurationNs() != 200_000_000 {
		t.Errorf("expected 200ms segment, got %d", c.SegmentDurationNs())
	}

	blocks := slices.Collect(c.Blocks(track.Number))
	if len(blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if want := i%3 == 0; b.IsKey != want {
			t.Errorf("block %d: key %v, want %v", i, b.IsKey, want)
		}
		if len(b.Frames) != 1 {
			t.Fatalf("block %d: expected 1 frame, got %d", i, len(b.Frames))
		}
		r := b.Frames[0]
		payload := c.Body()[r.Offset : r.Offset+uint64(r.Length)]
		if !bytes.Equal(payload, []byte{0x32, 0x01, byte(i)}) {
			t.Errorf("block %d: unexpected payload %x", i, payload)
		}
	}
}

func TestParser_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not an mp4 file at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().Parse(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}
