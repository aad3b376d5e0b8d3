package dot11

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeauthLayout(t *testing.T) {
	target, ap := mac(0x11), mac(0x22)
	frame := BuildDeauth(target, ap, 7, 0)

	require.Len(t, frame, DeauthFrameLen)
	assert.Equal(t, byte(0xC0), frame[0])
	assert.Equal(t, byte(0x00), frame[1])
	assert.Equal(t, []byte{0, 0}, frame[2:4], "duration")
	assert.Equal(t, []byte(target), frame[4:10], "DA")
	assert.Equal(t, []byte(ap), frame[10:16], "SA")
	assert.Equal(t, []byte(ap), frame[16:22], "BSSID")
	assert.Equal(t, []byte{7, 0}, frame[24:26], "reason little endian")
}

func TestBuildDeauthBroadcast(t *testing.T) {
	frame := BuildDeauth(nil, mac(0x22), 1, 0)
	assert.Equal(t, []byte(Broadcast), frame[4:10])
}

func TestDeauthRoundTrip(t *testing.T) {
	target, ap := mac(0x5C), mac(0xD4)
	frame := BuildDeauth(target, ap, 6, 1234)

	f, err := Parse(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeMgmt, f.Type())
	assert.Equal(t, SubtypeDeauth, f.Subtype())
	assert.Equal(t, 1234, f.SequenceNum())

	bssid, station, dest := f.Addresses()
	assert.Equal(t, ap, bssid)
	assert.Equal(t, ap, station)
	assert.Equal(t, target, dest)

	reason, ok := DeauthReason(frame)
	require.True(t, ok)
	assert.Equal(t, uint16(6), reason)
}

func TestDeauthReasonRejectsOtherFrames(t *testing.T) {
	_, ok := DeauthReason(make([]byte, 10))
	assert.False(t, ok)

	raw := buildDataFrame(false, false, false, mac(1), mac(2), mac(3), nil, nil)
	_, ok = DeauthReason(raw)
	assert.False(t, ok)
}

func TestSequenceWrapsWithoutGaps(t *testing.T) {
	frame := BuildDeauth(nil, mac(0x22), 1, 0)

	prev := -1
	for i := 0; i < 4096+100; i++ {
		SetSequence(frame, uint16(i))
		f, err := Parse(frame)
		require.NoError(t, err)

		got := f.SequenceNum()
		assert.Equal(t, i&0x0FFF, got)
		if prev >= 0 {
			next := (prev + 1) & 0x0FFF
			require.Equal(t, next, got, "sequence must advance by exactly one")
		}
		prev = got
	}
}
