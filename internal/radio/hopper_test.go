package radio

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// channelRecorder captures channel set calls
type channelRecorder struct {
	mu         sync.Mutex
	calls      []int
	shouldFail bool
	block      time.Duration
}

func (r *channelRecorder) set(ch int) error {
	r.mu.Lock()
	r.calls = append(r.calls, ch)
	fail := r.shouldFail
	block := r.block
	r.mu.Unlock()

	if block > 0 {
		time.Sleep(block)
	}
	if fail {
		return fmt.Errorf("mock failure")
	}
	return nil
}

func (r *channelRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestHopperRoundRobin(t *testing.T) {
	rec := &channelRecorder{}
	channels := []int{1, 6, 11}
	h := NewHopper(channels, 1, 10*time.Millisecond, rec.set)

	go h.Start()
	time.Sleep(55 * time.Millisecond) // should hop ~5 times
	if !h.Stop() {
		t.Fatal("Stop should report clean exit")
	}

	calls := rec.snapshot()
	if len(calls) < 3 {
		t.Fatalf("Expected at least 3 hops, got %d", len(calls))
	}
	// Channel 1 gets its dwell before the first retune, then round robin.
	for i, ch := range calls {
		want := channels[(i+1)%len(channels)]
		if ch != want {
			t.Errorf("Hop %d: got channel %d, want %d", i, ch, want)
		}
	}
}

func TestHopperDwellsBeforeFirstRetune(t *testing.T) {
	rec := &channelRecorder{}
	h := NewHopper([]int{1, 6, 11}, 11, 100*time.Millisecond, rec.set)

	go h.Start()
	time.Sleep(50 * time.Millisecond)
	if calls := rec.snapshot(); len(calls) != 0 {
		t.Fatalf("Hopper retuned inside the first dwell: %v", calls)
	}
	h.Stop()
}

func TestHopperContinuesSequenceFromStartChannel(t *testing.T) {
	rec := &channelRecorder{}
	h := NewHopper([]int{1, 6, 11, 2}, 11, 10*time.Millisecond, rec.set)

	go h.Start()
	time.Sleep(15 * time.Millisecond)
	h.Stop()

	calls := rec.snapshot()
	if len(calls) == 0 {
		t.Fatal("Expected at least one hop")
	}
	if calls[0] != 2 {
		t.Errorf("First retune after channel 11 should be 2, got %d", calls[0])
	}
}

func TestHopperUnknownStartChannel(t *testing.T) {
	rec := &channelRecorder{}
	h := NewHopper([]int{1, 6, 11}, 99, 10*time.Millisecond, rec.set)

	go h.Start()
	time.Sleep(15 * time.Millisecond)
	h.Stop()

	calls := rec.snapshot()
	if len(calls) == 0 {
		t.Fatal("Expected at least one hop")
	}
	if calls[0] != 1 {
		t.Errorf("Hopper with a start channel outside the sequence should begin at 1, got %d", calls[0])
	}
}

func TestHopperStopIsIdempotent(t *testing.T) {
	rec := &channelRecorder{}
	h := NewHopper([]int{1, 6}, 1, 10*time.Millisecond, rec.set)
	go h.Start()
	time.Sleep(15 * time.Millisecond)

	if !h.Stop() {
		t.Error("first Stop should succeed")
	}
	if !h.Stop() {
		t.Error("second Stop should still report the loop as exited")
	}
}

func TestHopperKeepsRunningOnSetErrors(t *testing.T) {
	rec := &channelRecorder{shouldFail: true}
	h := NewHopper([]int{1, 6, 11}, 1, 5*time.Millisecond, rec.set)
	go h.Start()
	time.Sleep(40 * time.Millisecond)
	h.Stop()

	if len(rec.snapshot()) < 4 {
		t.Fatalf("hopper should keep hopping despite errors, got %d calls", len(rec.snapshot()))
	}
}

func TestHopperStopTimesOutOnStuckDriver(t *testing.T) {
	rec := &channelRecorder{block: 2 * time.Second}
	h := NewHopper([]int{1}, 1, 10*time.Millisecond, rec.set)
	go h.Start()
	time.Sleep(20 * time.Millisecond) // let the loop enter the stuck set call

	start := time.Now()
	if h.Stop() {
		t.Error("Stop should time out while the driver call is stuck")
	}
	if elapsed := time.Since(start); elapsed > StopWait+200*time.Millisecond {
		t.Errorf("Stop blocked %v, want about %v", elapsed, StopWait)
	}
}

func TestHopperEmptyChannelList(t *testing.T) {
	h := NewHopper(nil, 0, 10*time.Millisecond, func(int) error { return nil })
	go h.Start()
	if !h.Stop() {
		t.Error("hopper with no channels should exit immediately")
	}
}
