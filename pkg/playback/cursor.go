package playback

import (
	"fmt"
	"time"

	"github.com/user/webmplay/pkg/ports"
)

// DecoderFactory opens a decoder with the session's original configuration.
type DecoderFactory func() (ports.VideoDecoder, error)

// DecodeCursor feeds frames to the video decoder in order and publishes the
// image of the last frame of each chain. It is owned by the update call.
type DecodeCursor struct {
	index  *FrameIndex
	body   []byte
	family ports.CodecFamily
	open   DecoderFactory
	stats  *Stats
	log    ports.Logger

	dec  ports.VideoDecoder
	last int // last frame fed to dec, -1 after open

	latest    ports.Image
	hasLatest bool
}

// NewDecodeCursor opens the first decoder instance.
func NewDecodeCursor(index *FrameIndex, body []byte, family ports.CodecFamily, open DecoderFactory, stats *Stats, log ports.Logger) (*DecodeCursor, error) {
	dec, err := open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecInit, err)
	}
	return &DecodeCursor{
		index:  index,
		body:   body,
		family: family,
		open:   open,
		stats:  stats,
		log:    log,
		dec:    dec,
		last:   -1,
	}, nil
}

// Fill brings the decoder from prev to target. It decodes
// max(prev+1, keyframe(target))..target, restarting at the keyframe when
// prev is -1, when target does not move forward, or when the decoder is
// not positioned at prev. Reports whether a new image was published.
func (c *DecodeCursor) Fill(prev, target int) bool {
	key := c.index.KeyframeOf(target)
	start := max(prev+1, key)
	if prev < 0 || target <= prev || c.last != start-1 {
		start = key
	}
	if start == key && c.last >= 0 && c.last != key-1 && c.family.ResetOnSeek {
		c.ResetDecoder()
	}
	return c.decodeRange(start, target)
}

// Reenter decodes target starting from its keyframe, resetting the decoder
// first when the codec family needs it.
func (c *DecodeCursor) Reenter(target int) bool {
	if c.family.ResetOnSeek && c.last >= 0 {
		c.ResetDecoder()
	}
	return c.decodeRange(c.index.KeyframeOf(target), target)
}

func (c *DecodeCursor) decodeRange(start, target int) bool {
	// A failed reopen left no decoder; try again, from the keyframe.
	if c.dec == nil && c.reopen() {
		start = c.index.KeyframeOf(target)
	}
	c.log.Debug("Decoding frames %d..%d", start, target)

	begin := time.Now()
	var lastErr error
	for i := start; i <= target; i++ {
		lastErr = c.decodeFrame(i)
		c.last = i
		if lastErr != nil {
			c.stats.decodeErrors.Add(1)
			c.log.Warn("Skipping frame %d: %v", i, lastErr)
		}
	}
	c.stats.recordDecode(time.Since(begin), target-start+1)

	if lastErr != nil || c.dec == nil {
		return false
	}

	begin = time.Now()
	var img *ports.Image
	for {
		next, ok := c.dec.NextImage()
		if !ok {
			break
		}
		img = next
	}
	if img == nil {
		return false
	}
	c.latest.CopyFrom(img)
	c.hasLatest = true
	c.stats.recordFetch(time.Since(begin))
	return true
}

func (c *DecodeCursor) decodeFrame(i int) error {
	if c.dec == nil {
		return fmt.Errorf("%w: frame %d: no decoder", ErrFrameDecode, i)
	}
	if err := c.dec.Decode(c.index.Payload(c.body, i)); err != nil {
		return fmt.Errorf("%w: frame %d: %v", ErrFrameDecode, i, err)
	}
	return nil
}

// ResetDecoder destroys the decoder and opens a new one. If reopening
// fails, frames are counted as decode errors until a later decode manages
// to open one.
func (c *DecodeCursor) ResetDecoder() {
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
	c.last = -1
	c.stats.resets.Add(1)
	c.reopen()
}

func (c *DecodeCursor) reopen() bool {
	dec, err := c.open()
	if err != nil {
		c.log.Error("Failed to reinitialize decoder: %v", err)
		return false
	}
	c.dec = dec
	c.last = -1
	return true
}

// Latest returns the last published image. It stays valid until the next
// Fill, Reenter or Close.
func (c *DecodeCursor) Latest() (*ports.Image, bool) {
	if !c.hasLatest {
		return nil, false
	}
	return &c.latest, true
}

// Invalidate withdraws the published image so no frame from before a seek
// can be shown after it.
func (c *DecodeCursor) Invalidate() {
	c.hasLatest = false
}

// Close releases the decoder.
func (c *DecodeCursor) Close() {
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
	c.hasLatest = false
	c.last = -1
}
