package handshake

import (
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
	"github.com/chimera-red/chimera/internal/dot11"
	"github.com/chimera-red/chimera/internal/telemetry"
)

// Tracker is the EAPOL state machine. It classifies key frames into
// handshake messages, caches Message 1 and emits a complete handshake
// when the matching Message 2 arrives.
//
// Classification is computed purely from the key-info bits: Message 1 is
// (ack=1, mic=0), Message 2 is (mic=1, ack=0, secure=0). Messages 3/4 are
// not needed for offline cracking and are ignored. A Message 2 without a
// cached Message 1 inside the timeout window is dropped silently; captured
// traffic is full of retransmissions and late joins, so that is normal.
type Tracker struct {
	cache *Cache
	stats *domain.CaptureStats
	sink  ports.HandshakeSink
}

// NewTracker creates a tracker emitting completed handshakes to sink.
func NewTracker(cache *Cache, stats *domain.CaptureStats, sink ports.HandshakeSink) *Tracker {
	return &Tracker{cache: cache, stats: stats, sink: sink}
}

// HandleDataFrame feeds one received data frame through the state machine.
// Non-EAPOL and truncated frames are dropped without recording state.
func (t *Tracker) HandleDataFrame(f dot11.Frame, rssi, channel int) {
	key, err := dot11.ParseEAPOLKey(f)
	if err != nil {
		return
	}

	bssid, station, _ := f.Addresses()
	if station == nil {
		return
	}

	switch {
	case key.IsMessage1():
		t.stats.Message1.Add(1)
		telemetry.EAPOLMessages.WithLabelValues("m1").Inc()
		t.cache.Upsert(bssid, station, Entry{
			ANonce:         key.Nonce,
			ReplayCounter:  key.ReplayCounter,
			KeyDescType:    key.DescriptorType,
			KeyDescVersion: key.Version(),
		})

	case key.IsMessage2():
		t.stats.Message2.Add(1)
		telemetry.EAPOLMessages.WithLabelValues("m2").Inc()

		cached, ok := t.cache.Take(bssid, station)
		if !ok {
			return
		}

		hs := &domain.Handshake{
			ID:             uuid.New().String(),
			BSSID:          cloneMAC(bssid),
			Station:        cloneMAC(station),
			ANonce:         cached.ANonce,
			SNonce:         key.Nonce,
			MIC:            key.MIC,
			ReplayCounter:  key.ReplayCounter,
			KeyDescType:    cached.KeyDescType,
			KeyDescVersion: key.Version(),
			EAPOLFrame:     key.Frame,
			Channel:        channel,
			RSSI:           rssi,
			Timestamp:      time.Now(),
		}

		t.stats.Completed.Add(1)
		telemetry.HandshakesCompleted.Inc()
		log.Printf("Handshake captured: bssid=%s sta=%s ch=%d", hs.BSSID, hs.Station, channel)

		if t.sink != nil {
			t.sink(hs)
		}
	}
}

func cloneMAC(mac net.HardwareAddr) net.HardwareAddr {
	out := make(net.HardwareAddr, len(mac))
	copy(out, mac)
	return out
}
