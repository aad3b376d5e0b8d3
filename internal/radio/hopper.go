// Package radio owns the exclusive radio state: the mode controller and
// the background channel hopper.
package radio

import (
	"log"
	"sync"
	"time"
)

const (
	// DefaultDwell is the time spent on each channel while hopping.
	DefaultDwell = 250 * time.Millisecond
	// StopWait bounds how long a caller blocks for the hopper loop to
	// observably exit before proceeding anyway.
	StopWait = 500 * time.Millisecond
)

// Hopper cycles the radio through a fixed channel sequence while sniffing
// with hopping enabled. It is created when sniffing starts with channel 0
// and torn down when sniffing stops or a deauth burst begins.
type Hopper struct {
	channels []int
	start    int
	dwell    time.Duration
	set      func(ch int) error

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}

	errorCount int
}

// NewHopper creates a hopper that applies channels via set. The radio is
// already tuned to start when the loop begins, so the first retune only
// happens after a full dwell; the sequence then continues from start's
// position in channels.
func NewHopper(channels []int, start int, dwell time.Duration, set func(ch int) error) *Hopper {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Hopper{
		channels: channels,
		start:    start,
		dwell:    dwell,
		set:      set,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the hop loop until Stop is called. Run it on its own
// goroutine.
func (h *Hopper) Start() {
	defer close(h.doneChan)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in channel hopper: %v", r)
		}
	}()

	if len(h.channels) == 0 {
		return
	}

	ticker := time.NewTicker(h.dwell)
	defer ticker.Stop()

	// Dwell on the current channel first. A burst resume hands us the
	// burst channel here, and retuning away immediately would close the
	// capture window the burst was meant to open.
	idx := len(h.channels) - 1
	for i, ch := range h.channels {
		if ch == h.start {
			idx = i
			break
		}
	}

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			idx = (idx + 1) % len(h.channels)
			h.hop(h.channels[idx])
		}
	}
}

func (h *Hopper) hop(ch int) {
	if err := h.set(ch); err != nil {
		h.errorCount++
		if h.errorCount == 1 || h.errorCount%10 == 0 {
			log.Printf("Warning: failed to hop to channel %d: %v (consecutive errors: %d)", ch, err, h.errorCount)
		}
		return
	}
	if h.errorCount > 0 {
		log.Printf("Channel hopper recovered after %d errors", h.errorCount)
		h.errorCount = 0
	}
}

// Stop signals the loop and blocks until it has observably exited, up to
// StopWait. On timeout it logs the anomaly and returns false; the caller
// proceeds anyway rather than deadlocking the radio subsystem.
func (h *Hopper) Stop() bool {
	h.stopOnce.Do(func() { close(h.stopChan) })
	select {
	case <-h.doneChan:
		return true
	case <-time.After(StopWait):
		log.Printf("Warning: channel hopper did not stop within %v, proceeding", StopWait)
		return false
	}
}
