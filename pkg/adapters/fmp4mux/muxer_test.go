package fmp4mux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/webmplay/pkg/ports"
)

func testStream(n int) ports.EncodedStream {
	s := ports.EncodedStream{
		Type:      ports.TrackVideo,
		CodecID:   "V_AV1",
		Width:     64,
		Height:    48,
		FrameRate: 30,
	}
	for i := 0; i < n; i++ {
		s.Frames = append(s.Frames, ports.EncodedFrame{
			Data:        []byte{0x12, 0x00, byte(i)},
			TimestampNs: int64(i) * 1_000_000_000 / 30,
			IsKeyframe:  i == 0,
		})
	}
	return s
}

func TestMuxer_Mux(t *testing.T) {
	data, err := New().Mux([]ports.EncodedStream{testStream(4)})
	if err != nil {
		t.Fatalf("Mux failed: %v", err)
	}
	if string(data[4:8]) != "ftyp" {
		t.Fatalf("expected ftyp first, got %q", data[4:8])
	}

	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if !f.IsFragmented() {
		t.Fatal("expected a fragmented file")
	}

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil && len(f.Init.Moov.Mvex.Trexs) > 0 {
		trex = f.Init.Moov.Mvex.Trexs[0]
	}
	samples, err := f.Segments[0].Fragments[0].GetFullSamples(trex)
	if err != nil {
		t.Fatalf("GetFullSamples failed: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s.Dur != 1000 {
			t.Errorf("sample %d: expected duration 1000, got %d", i, s.Dur)
		}
		if s.DecodeTime != uint64(i)*1000 {
			t.Errorf("sample %d: expected decode time %d, got %d", i, i*1000, s.DecodeTime)
		}
		if !bytes.Equal(s.Data, []byte{0x12, 0x00, byte(i)}) {
			t.Errorf("sample %d: unexpected data %x", i, s.Data)
		}
	}
	if samples[0].Flags != mp4.SyncSampleFlags || samples[1].Flags != mp4.NonSyncSampleFlags {
		t.Errorf("unexpected sync flags %#x %#x", samples[0].Flags, samples[1].Flags)
	}
}

func TestMuxer_Errors(t *testing.T) {
	vp9 := testStream(2)
	vp9.CodecID = "V_VP9"
	noRate := testStream(2)
	noRate.FrameRate = 0

	tests := []struct {
		name    string
		streams []ports.EncodedStream
		wantErr error
	}{
		{"no streams", nil, ErrNoVideo},
		{"empty video", []ports.EncodedStream{testStream(0)}, ErrNoVideo},
		{"audio only", []ports.EncodedStream{{Type: ports.TrackAudio, Frames: testStream(1).Frames}}, ErrNoVideo},
		{"unsupported codec", []ports.EncodedStream{vp9}, ErrUnsupportedCodec},
		{"no frame rate", []ports.EncodedStream{noRate}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Mux(tt.streams)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
