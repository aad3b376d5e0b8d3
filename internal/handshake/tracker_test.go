package handshake

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/dot11"
)

const (
	keyInfoAck = 0x0080
	keyInfoMIC = 0x0100
)

// buildKeyFrame assembles a raw ToDS data frame carrying one EAPOL-Key
// message between station and bssid.
func buildKeyFrame(t *testing.T, bssid, station net.HardwareAddr, fromAP bool, keyInfo uint16, nonce, mic byte) dot11.Frame {
	t.Helper()

	body := make([]byte, 95)
	body[0] = 0x02 // RSN descriptor
	binary.BigEndian.PutUint16(body[1:3], keyInfo)
	body[12] = 1 // replay counter
	for i := 13; i < 45; i++ {
		body[i] = nonce
	}
	for i := 77; i < 93; i++ {
		body[i] = mic
	}

	var fc1 byte
	var a1, a2 net.HardwareAddr
	if fromAP {
		fc1 = 0x02 // FromDS
		a1, a2 = station, bssid
	} else {
		fc1 = 0x01 // ToDS
		a1, a2 = bssid, station
	}

	raw := []byte{0x08, fc1, 0, 0}
	raw = append(raw, a1...)
	raw = append(raw, a2...)
	raw = append(raw, bssid...)
	raw = append(raw, 0, 0)
	raw = append(raw, 0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8E)
	hdr := []byte{0x02, 0x03, 0, 0}
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(body)))
	raw = append(raw, hdr...)
	raw = append(raw, body...)

	f, err := dot11.Parse(raw)
	require.NoError(t, err)
	return f
}

type captureSink struct {
	handshakes []*domain.Handshake
}

func (s *captureSink) sink(hs *domain.Handshake) {
	s.handshakes = append(s.handshakes, hs)
}

func newTestTracker() (*Tracker, *captureSink, *domain.CaptureStats, *Cache) {
	sink := &captureSink{}
	stats := &domain.CaptureStats{}
	cache := NewCache()
	return NewTracker(cache, stats, sink.sink), sink, stats, cache
}

func TestTrackerCompletesHandshake(t *testing.T) {
	tracker, sink, stats, cache := newTestTracker()
	bssid := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	station := net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB}

	m1 := buildKeyFrame(t, bssid, station, true, keyInfoAck|0x0002, 0xA1, 0x00)
	tracker.HandleDataFrame(m1, -42, 6)
	require.Empty(t, sink.handshakes)
	assert.Equal(t, 1, cache.Len())

	m2 := buildKeyFrame(t, bssid, station, false, keyInfoMIC|0x0002, 0xB2, 0xCC)
	tracker.HandleDataFrame(m2, -40, 6)

	require.Len(t, sink.handshakes, 1)
	hs := sink.handshakes[0]
	assert.Equal(t, bssid, hs.BSSID)
	assert.Equal(t, station, hs.Station)
	assert.Equal(t, byte(0xA1), hs.ANonce[0], "ANonce comes from Message 1")
	assert.Equal(t, byte(0xB2), hs.SNonce[0], "SNonce comes from Message 2")
	assert.Equal(t, byte(0xCC), hs.MIC[0])
	assert.Equal(t, uint8(0x02), hs.KeyDescType)
	assert.Equal(t, uint8(2), hs.KeyDescVersion)
	assert.Equal(t, 6, hs.Channel)
	assert.Equal(t, -40, hs.RSSI)
	assert.NotEmpty(t, hs.ID)
	assert.NotEmpty(t, hs.EAPOLFrame)

	snap := stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Message1)
	assert.Equal(t, uint64(1), snap.Message2)
	assert.Equal(t, uint64(1), snap.Completed)

	// The cache entry was consumed; a replayed Message 2 completes nothing.
	tracker.HandleDataFrame(m2, -40, 6)
	assert.Len(t, sink.handshakes, 1)
	assert.Equal(t, uint64(1), stats.Snapshot().Completed)
}

func TestTrackerIgnoresOrphanMessage2(t *testing.T) {
	tracker, sink, stats, _ := newTestTracker()
	bssid := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	station := net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB}

	m2 := buildKeyFrame(t, bssid, station, false, keyInfoMIC|0x0002, 0xB2, 0xCC)
	tracker.HandleDataFrame(m2, -40, 6)

	assert.Empty(t, sink.handshakes)
	assert.Equal(t, uint64(1), stats.Snapshot().Message2)
	assert.Equal(t, uint64(0), stats.Snapshot().Completed)
}

func TestTrackerKeepsPairsSeparate(t *testing.T) {
	tracker, sink, _, _ := newTestTracker()
	bssid := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	stationA := net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0x01}
	stationB := net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0x02}

	// Message 1 for station A, Message 2 from station B: no match.
	tracker.HandleDataFrame(buildKeyFrame(t, bssid, stationA, true, keyInfoAck, 0xA1, 0x00), -50, 1)
	tracker.HandleDataFrame(buildKeyFrame(t, bssid, stationB, false, keyInfoMIC, 0xB2, 0xCC), -50, 1)
	assert.Empty(t, sink.handshakes)

	// The right station still completes.
	tracker.HandleDataFrame(buildKeyFrame(t, bssid, stationA, false, keyInfoMIC, 0xB3, 0xCD), -50, 1)
	require.Len(t, sink.handshakes, 1)
	assert.Equal(t, stationA, sink.handshakes[0].Station)
}

func TestTrackerDropsNonEAPOLData(t *testing.T) {
	tracker, sink, stats, _ := newTestTracker()

	raw := []byte{0x08, 0x01, 0, 0}
	raw = append(raw, make([]byte, 20)...) // addresses + seq ctl
	raw = append(raw, 0xDE, 0xAD, 0xBE, 0xEF)
	f, err := dot11.Parse(raw)
	require.NoError(t, err)

	tracker.HandleDataFrame(f, -50, 1)
	assert.Empty(t, sink.handshakes)
	assert.Equal(t, uint64(0), stats.Snapshot().Message1)
}
