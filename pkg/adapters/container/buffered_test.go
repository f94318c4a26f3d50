package container

import (
	"slices"
	"testing"

	"github.com/user/webmplay/pkg/ports"
)

func TestBuffered_AppendBlock(t *testing.T) {
	c := NewBuffered()
	c.AddTrack(ports.Track{Number: 1, Type: ports.TrackVideo})
	c.AddTrack(ports.Track{Number: 2, Type: ports.TrackAudio})

	c.AppendBlock(1, true, [][]byte{[]byte("abc")})
	c.AppendBlock(2, true, [][]byte{[]byte("xy"), []byte("z")})
	c.AppendBlock(1, false, [][]byte{[]byte("de")})

	video := slices.Collect(c.Blocks(1))
	if len(video) != 2 || !video[0].IsKey || video[1].IsKey {
		t.Fatalf("unexpected video blocks %+v", video)
	}
	if got := string(c.Body()[video[1].Frames[0].Offset:][:video[1].Frames[0].Length]); got != "de" {
		t.Errorf("expected payload de, got %q", got)
	}

	audio := slices.Collect(c.Blocks(2))
	if len(audio) != 1 || len(audio[0].Frames) != 2 {
		t.Fatalf("expected one laced audio block, got %+v", audio)
	}
	if audio[0].Frames[1] != (ports.FrameRange{Offset: 5, Length: 1}) {
		t.Errorf("unexpected range %+v", audio[0].Frames[1])
	}
	if c.BlockCount(3) != 0 || len(slices.Collect(c.Blocks(3))) != 0 {
		t.Errorf("unknown track should have no blocks")
	}
}

func TestBuffered_Track(t *testing.T) {
	c := NewBuffered()
	c.AddTrack(ports.Track{Number: 7})

	c.Track(7).DefaultFrameDurationNs = 40_000_000
	if c.Tracks()[0].DefaultFrameDurationNs != 40_000_000 {
		t.Errorf("expected update through Track pointer")
	}
	if c.Track(8) != nil {
		t.Errorf("expected nil for unknown track")
	}

	c.SetSegmentDuration(5)
	if c.SegmentDurationNs() != 5 {
		t.Errorf("expected segment duration 5")
	}
}
