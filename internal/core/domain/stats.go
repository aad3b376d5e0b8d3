package domain

import "sync/atomic"

// CaptureStats holds the lock-free counters maintained by the promiscuous
// dispatcher. Any context may read them without further synchronization;
// they are reset only by an explicit cache clear.
type CaptureStats struct {
	FramesSeen atomic.Uint64
	Message1   atomic.Uint64
	Message2   atomic.Uint64
	Completed  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy for reporting.
type StatsSnapshot struct {
	FramesSeen uint64 `json:"count"`
	Message1   uint64 `json:"m1"`
	Message2   uint64 `json:"m2"`
	Completed  uint64 `json:"complete"`
}

func (s *CaptureStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSeen: s.FramesSeen.Load(),
		Message1:   s.Message1.Load(),
		Message2:   s.Message2.Load(),
		Completed:  s.Completed.Load(),
	}
}

// Reset zeroes all counters.
func (s *CaptureStats) Reset() {
	s.FramesSeen.Store(0)
	s.Message1.Store(0)
	s.Message2.Store(0)
	s.Completed.Store(0)
}

// Event renders the snapshot as the periodic sniff_stats event object.
func (s StatsSnapshot) Event() map[string]interface{} {
	return map[string]interface{}{
		"type":     "sniff_stats",
		"count":    s.FramesSeen,
		"m1":       s.Message1,
		"m2":       s.Message2,
		"complete": s.Completed,
	}
}
