// Package av1config builds the AV1 codec configuration record carried as
// av1C in MP4 and as CodecPrivate in WebM.
package av1config

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/webmplay/pkg/ports"
)

// CodecID is the Matroska codec ID of AV1 video.
const CodecID = "V_AV1"

const obuSequenceHeader = 1

// Box creates an av1C box for 8-bit 4:2:0 streams, carrying the sequence
// header OBU of the first keyframe.
func Box(frames []ports.EncodedFrame) *mp4.Av1CBox {
	var seqHdr []byte
	for _, f := range frames {
		if f.IsKeyframe && len(f.Data) > 0 {
			seqHdr = SequenceHeader(f.Data)
			break
		}
	}

	return &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:              1,
			SeqProfile:           0,
			SeqLevelIdx0:         8, // Level 4.0
			SeqTier0:             0,
			HighBitdepth:         0,
			TwelveBit:            0,
			MonoChrome:           0,
			ChromaSubsamplingX:   1, // 4:2:0
			ChromaSubsamplingY:   1,
			ChromaSamplePosition: 0,
			ConfigOBUs:           seqHdr,
		},
	}
}

// Record returns the configuration record bytes of an av1C box, without the box header.
func Record(box *mp4.Av1CBox) ([]byte, error) {
	var buf bytes.Buffer
	if err := box.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode av1C: %w", err)
	}
	const boxHeader = 8
	if buf.Len() < boxHeader {
		return nil, fmt.Errorf("encode av1C: short box")
	}
	return buf.Bytes()[boxHeader:], nil
}

// CodecPrivate returns the configuration record for a stream of AV1 frames.
func CodecPrivate(frames []ports.EncodedFrame) ([]byte, error) {
	return Record(Box(frames))
}

// SequenceHeader extracts the sequence header OBU, header included, from a
// temporal unit. It returns nil when there is none.
func SequenceHeader(data []byte) []byte {
	offset := 0
	for offset < len(data) {
		start := offset
		header := data[offset]
		obuType := (header >> 3) & 0x0f
		hasExtension := (header>>2)&0x01 == 1
		hasSizeField := (header>>1)&0x01 == 1

		offset++
		if hasExtension {
			offset++
		}
		if offset > len(data) {
			return nil
		}

		size := len(data) - offset
		if hasSizeField {
			size, offset = readLeb128(data, offset)
		}

		end := min(offset+size, len(data))
		if obuType == obuSequenceHeader {
			return data[start:end]
		}
		offset = end
	}
	return nil
}

// readLeb128 reads a LEB128 encoded value
func readLeb128(data []byte, offset int) (int, int) {
	value := 0
	for i := 0; i < 8 && offset < len(data); i++ {
		b := data[offset]
		offset++
		value |= int(b&0x7f) << (i * 7)
		if b&0x80 == 0 {
			break
		}
	}
	return value, offset
}
