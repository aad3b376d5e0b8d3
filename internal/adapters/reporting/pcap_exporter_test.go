package reporting

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/dot11"
)

func exportableHandshake() domain.Handshake {
	hs := domain.Handshake{
		ID:             "hs-1",
		BSSID:          net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Station:        net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB},
		KeyDescType:    dot11.DescTypeRSN,
		KeyDescVersion: 2,
		Channel:        6,
		Timestamp:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	// Message 2: 802.1X header plus a 95-byte key descriptor body.
	frame := make([]byte, 99)
	frame[0] = 0x02 // 802.1X version
	frame[1] = 0x03 // EAPOL-Key
	frame[2] = 0x00
	frame[3] = 95
	body := frame[4:]
	body[0] = dot11.DescTypeRSN
	body[1] = 0x01 // key info: MIC set
	body[2] = 0x02 // key info: version 2
	body[12] = 0x01
	for i := 13; i < 45; i++ {
		body[i] = 0xB2
	}
	for i := 77; i < 93; i++ {
		body[i] = 0xCC
	}
	hs.EAPOLFrame = frame
	copy(hs.SNonce[:], body[13:45])
	copy(hs.MIC[:], body[77:93])
	return hs
}

func TestWriteHandshakesProducesParseableDot11(t *testing.T) {
	hs := exportableHandshake()

	var buf bytes.Buffer
	require.NoError(t, WriteHandshakes(&buf, []domain.Handshake{hs}))

	reader, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeIEEE802_11, reader.LinkType())

	data, ci, err := reader.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, hs.Timestamp, ci.Timestamp.UTC())
	assert.Equal(t, len(data), ci.CaptureLength)

	// The exported packet must parse as the original over-the-air frame:
	// station-to-AP data carrying the EAPOL key descriptor.
	frame, err := dot11.Parse(data)
	require.NoError(t, err)
	assert.True(t, frame.IsData())
	assert.True(t, frame.ToDS())
	assert.False(t, frame.FromDS())

	bssid, station, _ := frame.Addresses()
	assert.Equal(t, hs.BSSID, bssid)
	assert.Equal(t, hs.Station, station)

	key, err := dot11.ParseEAPOLKey(frame)
	require.NoError(t, err)
	assert.True(t, key.IsMessage2())
	assert.Equal(t, hs.SNonce, key.Nonce)
	assert.Equal(t, hs.MIC, key.MIC)
	assert.Equal(t, hs.EAPOLFrame, key.Frame)
}

func TestWriteHandshakesSkipsEmptyFrames(t *testing.T) {
	hs := exportableHandshake()
	empty := domain.Handshake{ID: "empty", BSSID: hs.BSSID, Station: hs.Station}

	var buf bytes.Buffer
	require.NoError(t, WriteHandshakes(&buf, []domain.Handshake{empty, hs}))

	reader, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)

	_, _, err = reader.ReadPacketData()
	require.NoError(t, err)
	_, _, err = reader.ReadPacketData()
	assert.Error(t, err, "only the populated handshake should be in the capture")
}
