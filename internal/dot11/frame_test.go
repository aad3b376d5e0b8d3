package dot11

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mac(b byte) net.HardwareAddr {
	return net.HardwareAddr{b, b, b, b, b, b}
}

// buildDataFrame assembles a raw data frame with the given DS bits. a4 is
// appended only when both bits are set.
func buildDataFrame(toDS, fromDS, qos bool, a1, a2, a3, a4 net.HardwareAddr, payload []byte) []byte {
	fc0 := byte(TypeData << 2)
	if qos {
		fc0 |= 0x8 << 4
	}
	var fc1 byte
	if toDS {
		fc1 |= 0x01
	}
	if fromDS {
		fc1 |= 0x02
	}

	frame := []byte{fc0, fc1, 0, 0}
	frame = append(frame, a1...)
	frame = append(frame, a2...)
	frame = append(frame, a3...)
	frame = append(frame, 0, 0) // sequence control
	if toDS && fromDS {
		frame = append(frame, a4...)
	}
	if qos {
		frame = append(frame, 0, 0)
	}
	return append(frame, payload...)
}

func TestParseRejectsShortFrame(t *testing.T) {
	_, err := Parse(make([]byte, 23))
	assert.ErrorIs(t, err, ErrShortFrame)

	// WDS frame needs 30 bytes
	raw := buildDataFrame(true, true, false, mac(1), mac(2), mac(3), mac(4), nil)
	_, err = Parse(raw[:26])
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestAddressesPerDSMode(t *testing.T) {
	a1, a2, a3, a4 := mac(0x11), mac(0x22), mac(0x33), mac(0x44)

	tests := []struct {
		name         string
		toDS, fromDS bool
		bssid        net.HardwareAddr
		station      net.HardwareAddr
		dest         net.HardwareAddr
	}{
		{"ibss", false, false, a3, a2, a1},
		{"from ap", false, true, a2, a1, a1},
		{"to ap", true, false, a1, a2, a3},
		{"wds", true, true, a2, a4, a3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := buildDataFrame(tt.toDS, tt.fromDS, false, a1, a2, a3, a4, nil)
			f, err := Parse(raw)
			require.NoError(t, err)

			bssid, station, dest := f.Addresses()
			assert.Equal(t, tt.bssid, bssid, "bssid")
			assert.Equal(t, tt.station, station, "station")
			assert.Equal(t, tt.dest, dest, "dest")
		})
	}
}

func TestHeaderLenVariants(t *testing.T) {
	payload := []byte{0xDE, 0xAD}

	f, err := Parse(buildDataFrame(false, false, false, mac(1), mac(2), mac(3), nil, payload))
	require.NoError(t, err)
	assert.Equal(t, 24, f.HeaderLen())
	assert.Equal(t, payload, f.Payload())

	f, err = Parse(buildDataFrame(false, false, true, mac(1), mac(2), mac(3), nil, payload))
	require.NoError(t, err)
	assert.Equal(t, 26, f.HeaderLen())
	assert.Equal(t, payload, f.Payload())

	f, err = Parse(buildDataFrame(true, true, false, mac(1), mac(2), mac(3), mac(4), payload))
	require.NoError(t, err)
	assert.Equal(t, 30, f.HeaderLen())
	assert.Equal(t, payload, f.Payload())
	assert.Equal(t, mac(4), f.Addr4())

	f, err = Parse(buildDataFrame(true, true, true, mac(1), mac(2), mac(3), mac(4), payload))
	require.NoError(t, err)
	assert.Equal(t, 32, f.HeaderLen())
	assert.Equal(t, payload, f.Payload())
}

func TestAddr4NilOutsideWDS(t *testing.T) {
	f, err := Parse(buildDataFrame(true, false, false, mac(1), mac(2), mac(3), nil, nil))
	require.NoError(t, err)
	assert.Nil(t, f.Addr4())
}

func TestSequenceNumRoundTrip(t *testing.T) {
	raw := buildDataFrame(false, false, false, mac(1), mac(2), mac(3), nil, nil)
	for _, seq := range []uint16{0, 1, 0x0FF, 0xABC, 0xFFF} {
		SetSequence(raw, seq)
		f, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, int(seq), f.SequenceNum())
	}
}
