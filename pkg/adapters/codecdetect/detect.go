// Package codecdetect sniffs container formats and maps ISO-BMFF sample
// entries to Matroska-style codec IDs.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Format represents a container format.
type Format string

const (
	FormatWebM    Format = "webm"
	FormatMP4     Format = "mp4"
	FormatUnknown Format = "unknown"
)

var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// DetectFormat identifies the container format from its leading bytes.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, ebmlMagic) {
		return FormatWebM
	}
	if len(data) >= 8 {
		switch string(data[4:8]) {
		case "ftyp", "styp", "moov", "moof", "free", "mdat":
			return FormatMP4
		}
	}
	return FormatUnknown
}

// DetectFromFile identifies the container format of a file.
func DetectFromFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return FormatUnknown, fmt.Errorf("read header: %w", err)
	}
	return DetectFormat(head[:n]), nil
}

// CodecIDFromSampleEntry maps an stsd sample entry type to a codec ID.
func CodecIDFromSampleEntry(entryType string) (string, bool) {
	switch entryType {
	case "vp08":
		return "V_VP8", true
	case "vp09":
		return "V_VP9", true
	case "av01":
		return "V_AV1", true
	case "avc1", "avc3":
		return "V_MPEG4/ISO/AVC", true
	case "hvc1", "hev1":
		return "V_MPEGH/ISO/HEVC", true
	case "Opus":
		return "A_OPUS", true
	case "mp4a":
		return "A_AAC", true
	default:
		return "", false
	}
}

// TrackCodecID returns the codec ID of the first recognised sample entry of a track.
func TrackCodecID(trak *mp4.TrakBox) (string, bool) {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return "", false
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if id, ok := CodecIDFromSampleEntry(child.Type()); ok {
			return id, true
		}
	}
	return "", false
}
