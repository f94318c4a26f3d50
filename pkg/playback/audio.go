package playback

import (
	"fmt"
	"iter"

	"github.com/user/webmplay/pkg/ports"
)

// AudioInfo describes the pre-decoded audio stream.
type AudioInfo struct {
	SampleRate    int    `json:"sampleRate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bitsPerSample"`
	TotalSamples  uint64 `json:"totalSamples"` // per channel
}

// SplitXiphLacing splits codec-private data into its laced headers.
// Byte 0 is the header count minus one, followed by one base-255 length per
// header but the last; the last header takes the remaining bytes.
func SplitXiphLacing(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty codec private data", ErrAudioHeader)
	}
	count := int(data[0]) + 1
	pos := 1

	sizes := make([]int, count)
	total := 0
	for i := 0; i < count-1; i++ {
		for {
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: truncated lacing size", ErrAudioHeader)
			}
			b := int(data[pos])
			pos++
			sizes[i] += b
			if b < 255 {
				break
			}
		}
		total += sizes[i]
	}
	if pos+total > len(data) {
		return nil, fmt.Errorf("%w: laced sizes exceed %d bytes", ErrAudioHeader, len(data))
	}
	sizes[count-1] = len(data) - pos - total

	headers := make([][]byte, count)
	for i, n := range sizes {
		headers[i] = data[pos : pos+n]
		pos += n
	}
	return headers, nil
}

// PredecodeAudio decodes a whole audio track into one interleaved buffer.
// The first pass only counts samples, the second writes them into a buffer
// of exactly that size, so blocks is walked twice. Packets that fail to
// decode are skipped.
func PredecodeAudio(dec ports.AudioDecoder, codecPrivate []byte, blocks iter.Seq[ports.Block], body []byte, log ports.Logger) ([]float32, AudioInfo, error) {
	headers, err := SplitXiphLacing(codecPrivate)
	if err != nil {
		return nil, AudioInfo{}, err
	}
	if len(headers) != 3 {
		return nil, AudioInfo{}, fmt.Errorf("%w: expected 3 headers, got %d", ErrAudioHeader, len(headers))
	}
	for i, h := range headers {
		if err := dec.ReadHeader(h); err != nil {
			return nil, AudioInfo{}, fmt.Errorf("%w: header %d: %v", ErrAudioHeader, i, err)
		}
	}
	info := AudioInfo{
		SampleRate:    dec.SampleRate(),
		Channels:      dec.Channels(),
		BitsPerSample: 32,
	}
	if info.SampleRate <= 0 || info.Channels <= 0 {
		return nil, AudioInfo{}, fmt.Errorf("%w: %d Hz, %d channels", ErrAudioHeader, info.SampleRate, info.Channels)
	}

	var total, failed int
	each := func(fn func([]float32)) {
		for b := range blocks {
			for _, fr := range b.Frames {
				if !inBody(fr, uint64(len(body))) {
					failed++
					continue
				}
				pcm, err := dec.Decode(body[fr.Offset : fr.Offset+uint64(fr.Length)])
				if err != nil {
					failed++
					continue
				}
				fn(pcm)
			}
		}
	}

	each(func(pcm []float32) { total += len(pcm) })
	if failed > 0 {
		log.Warn("Skipped %d undecodable audio packets", failed)
	}

	dec.Reset()
	buf := make([]float32, total)
	w := 0
	each(func(pcm []float32) { w += copy(buf[w:], pcm) })
	buf = buf[:w]

	info.TotalSamples = uint64(len(buf) / info.Channels)
	return buf, info, nil
}
