package app

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-red/chimera/internal/adapters/driver"
	"github.com/chimera-red/chimera/internal/config"
	"github.com/chimera-red/chimera/internal/core/domain"
)

// gatedPublisher blocks every Publish until release is closed, standing
// in for a stalled websocket client.
type gatedPublisher struct {
	release chan struct{}

	mu     sync.Mutex
	events []map[string]interface{}
}

func (p *gatedPublisher) Publish(event map[string]interface{}) {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *gatedPublisher) byType(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e["type"] == kind {
			n++
		}
	}
	return n
}

type memStore struct {
	mu    sync.Mutex
	saved []string
}

func (s *memStore) SaveHandshake(hs *domain.Handshake) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, hs.ID)
	return nil
}

func (s *memStore) ListHandshakes() ([]domain.Handshake, error) { return nil, nil }

func (s *memStore) SaveScanResults([]domain.ScanResult) error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func newTestApp(pub *gatedPublisher) (*App, *memStore) {
	mock := driver.NewMockDriver(net.HardwareAddr{0x02, 0x00, 0x00, 0xC4, 0x11, 0x22})
	store := &memStore{}
	return New(&config.Config{Interface: "wlan0"}, mock, store, pub), store
}

func TestHandshakeSinkNeverBlocksReceivePath(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{})}
	a, store := newTestApp(pub)

	hs := &domain.Handshake{
		ID:      "hs-1",
		BSSID:   net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Station: net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB},
	}

	// With the sink worker stalled on the publisher, the receive-path
	// callback still has to return immediately every time.
	start := time.Now()
	for i := 0; i < 3*handshakeQueueSize; i++ {
		a.onHandshake(hs)
	}
	assert.Less(t, time.Since(start), time.Second,
		"handshake callback must not wait on the sink")

	close(pub.release)
	require.Eventually(t, func() bool { return store.count() >= 1 },
		2*time.Second, 10*time.Millisecond, "queued handshakes should drain once the sink unblocks")
}

func TestStartSniffingKeepsCounters(t *testing.T) {
	pub := &gatedPublisher{}
	a, _ := newTestApp(pub)

	a.stats.FramesSeen.Add(5)
	a.stats.Completed.Add(1)

	require.NoError(t, a.StartSniffing(6))
	snap := a.stats.Snapshot()
	assert.Equal(t, uint64(5), snap.FramesSeen, "starting a session must not reset counters")
	assert.Equal(t, uint64(1), snap.Completed)
	require.NoError(t, a.StopSniffing())
}

func TestClearCacheResetsCountersAndState(t *testing.T) {
	pub := &gatedPublisher{}
	a, _ := newTestApp(pub)

	a.stats.FramesSeen.Add(9)
	a.ClearCache()

	snap := a.stats.Snapshot()
	assert.Equal(t, uint64(0), snap.FramesSeen)
	assert.Equal(t, 0, a.cache.Len())
	assert.Equal(t, 1, pub.byType("cache_cleared"))
}
