package playback

import (
	"math"

	"github.com/user/webmplay/pkg/ports"
)

// SeekController repositions the decoder and the clocks on explicit
// position requests.
type SeekController struct {
	clock  *Clock
	cursor *DecodeCursor
	index  *FrameIndex
	stats  *Stats
	log    ports.Logger

	// onSeek receives the audio frame matching the new position.
	onSeek func(sample uint64)
}

// NewSeekController creates a controller. onSeek may be nil.
func NewSeekController(clock *Clock, cursor *DecodeCursor, index *FrameIndex, stats *Stats, log ports.Logger, onSeek func(sample uint64)) *SeekController {
	return &SeekController{
		clock:  clock,
		cursor: cursor,
		index:  index,
		stats:  stats,
		log:    log,
		onSeek: onSeek,
	}
}

// TargetOf maps a position fraction to a frame: floor((n-1)*f) with f
// clamped to [0,1]. NaN maps to frame 0.
func TargetOf(f float64, frameCount int) int {
	if math.IsNaN(f) || f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return int(math.Floor(float64(frameCount-1) * f))
}

// SeekFraction seeks to a fractional position. Reports whether a new image
// was published.
func (s *SeekController) SeekFraction(f float64) bool {
	return s.SeekFrame(TargetOf(f, s.index.Len()))
}

// SeekFrame seeks to frame n, clamped to the stream. Seeking to the current
// frame does nothing.
func (s *SeekController) SeekFrame(n int) bool {
	target := min(max(n, 0), s.index.Len()-1)
	cur := s.clock.Current()
	if target == cur {
		return false
	}

	s.log.Debug("Seeking from frame %d to %d", cur, target)

	var published bool
	if cur < 0 || target < cur || s.index.KeyframeOf(target) != s.index.KeyframeOf(cur) {
		s.cursor.Invalidate()
		published = s.cursor.Reenter(target)
	} else {
		published = s.cursor.Fill(cur, target)
	}

	s.clock.SetFrame(target)
	s.stats.seeks.Add(1)
	if s.onSeek != nil {
		s.onSeek(s.clock.SampleOf(target))
	}
	return published
}
