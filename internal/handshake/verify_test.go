package handshake

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-red/chimera/internal/core/domain"
)

func testHandshake(version uint8) *domain.Handshake {
	hs := &domain.Handshake{
		BSSID:          net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Station:        net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB},
		KeyDescType:    0x02,
		KeyDescVersion: version,
		EAPOLFrame:     make([]byte, 99),
	}
	for i := range hs.ANonce {
		hs.ANonce[i] = byte(i)
	}
	for i := range hs.SNonce {
		hs.SNonce[i] = byte(0xFF - i)
	}
	hs.EAPOLFrame[0] = 0x02
	hs.EAPOLFrame[1] = 0x03
	return hs
}

func TestVerifyMICMatchesComputed(t *testing.T) {
	for _, version := range []uint8{1, 2} {
		hs := testHandshake(version)

		mic, err := ComputeMIC(hs, "correct horse battery", "TestNet")
		require.NoError(t, err)
		require.Len(t, mic, 16)
		copy(hs.MIC[:], mic)

		ok, err := VerifyMIC(hs, "correct horse battery", "TestNet")
		require.NoError(t, err)
		assert.True(t, ok, "version %d", version)
	}
}

func TestVerifyMICRejectsWrongPassphrase(t *testing.T) {
	hs := testHandshake(2)
	mic, err := ComputeMIC(hs, "rightpass", "TestNet")
	require.NoError(t, err)
	copy(hs.MIC[:], mic)

	ok, err := VerifyMIC(hs, "wrongpass", "TestNet")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VerifyMIC(hs, "rightpass", "OtherNet")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMICDependsOnNonces(t *testing.T) {
	hs := testHandshake(2)
	mic, err := ComputeMIC(hs, "rightpass", "TestNet")
	require.NoError(t, err)
	copy(hs.MIC[:], mic)

	hs.ANonce[0] ^= 0x01
	ok, err := VerifyMIC(hs, "rightpass", "TestNet")
	require.NoError(t, err)
	assert.False(t, ok, "a different ANonce must change the derived key")
}

func TestVerifyMICShortFrame(t *testing.T) {
	hs := testHandshake(2)
	hs.EAPOLFrame = hs.EAPOLFrame[:40]
	_, err := VerifyMIC(hs, "pass", "ssid")
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestVerifyMICUnknownVersion(t *testing.T) {
	hs := testHandshake(3)
	_, err := VerifyMIC(hs, "pass", "ssid")
	assert.Error(t, err)
}
