package playback

import (
	"sync/atomic"
	"time"
)

// QAInfo is a point-in-time copy of the playback counters.
type QAInfo struct {
	Cycles           uint64 `json:"cycles"`
	FramesShown      uint64 `json:"framesShown"`
	MissedFrames     uint64 `json:"missedFrames"`
	OverBudgetCycles uint64 `json:"overBudgetCycles"`
	DecodeErrors     uint64 `json:"decodeErrors"`
	Seeks            uint64 `json:"seeks"`
	DecoderResets    uint64 `json:"decoderResets"`

	UpdateTime      time.Duration `json:"updateTime"`
	UpdateTimeWorst time.Duration `json:"updateTimeWorst"`
	DecodeTime      time.Duration `json:"decodeTime"`
	DecodeTimeWorst time.Duration `json:"decodeTimeWorst"`
	FetchTime       time.Duration `json:"fetchTime"`
	FetchTimeWorst  time.Duration `json:"fetchTimeWorst"`
}

// Stats collects per-cycle timings and counters. It is written by the
// update call and may be read from any goroutine.
type Stats struct {
	cycles       atomic.Uint64
	shown        atomic.Uint64
	missed       atomic.Uint64
	overBudget   atomic.Uint64
	decodeErrors atomic.Uint64
	seeks        atomic.Uint64
	resets       atomic.Uint64

	update      atomic.Int64
	updateWorst atomic.Int64
	decode      atomic.Int64
	decodeWorst atomic.Int64
	fetch       atomic.Int64
	fetchWorst  atomic.Int64
}

func (s *Stats) recordUpdate(d, budget time.Duration) {
	s.cycles.Add(1)
	s.update.Store(int64(d))
	storeMax(&s.updateWorst, int64(d))
	if budget > 0 && d > budget {
		s.overBudget.Add(1)
	}
}

// recordDecode records one decode chain. Every frame but the last one in a
// chain is decoded without ever being shown.
func (s *Stats) recordDecode(d time.Duration, frames int) {
	s.decode.Store(int64(d))
	storeMax(&s.decodeWorst, int64(d))
	if frames > 1 {
		s.missed.Add(uint64(frames - 1))
	}
}

func (s *Stats) recordFetch(d time.Duration) {
	s.shown.Add(1)
	s.fetch.Store(int64(d))
	storeMax(&s.fetchWorst, int64(d))
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() QAInfo {
	return QAInfo{
		Cycles:           s.cycles.Load(),
		FramesShown:      s.shown.Load(),
		MissedFrames:     s.missed.Load(),
		OverBudgetCycles: s.overBudget.Load(),
		DecodeErrors:     s.decodeErrors.Load(),
		Seeks:            s.seeks.Load(),
		DecoderResets:    s.resets.Load(),
		UpdateTime:       time.Duration(s.update.Load()),
		UpdateTimeWorst:  time.Duration(s.updateWorst.Load()),
		DecodeTime:       time.Duration(s.decode.Load()),
		DecodeTimeWorst:  time.Duration(s.decodeWorst.Load()),
		FetchTime:        time.Duration(s.fetch.Load()),
		FetchTimeWorst:   time.Duration(s.fetchWorst.Load()),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	for _, c := range []*atomic.Uint64{&s.cycles, &s.shown, &s.missed, &s.overBudget, &s.decodeErrors, &s.seeks, &s.resets} {
		c.Store(0)
	}
	for _, t := range []*atomic.Int64{&s.update, &s.updateWorst, &s.decode, &s.decodeWorst, &s.fetch, &s.fetchWorst} {
		t.Store(0)
	}
}

func storeMax(a *atomic.Int64, v int64) {
	for {
		old := a.Load()
		if v <= old || a.CompareAndSwap(old, v) {
			return
		}
	}
}
