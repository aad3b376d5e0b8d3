package dot11

import (
	"encoding/binary"
	"net"
)

// DeauthFrameLen is the exact on-wire size of a deauthentication frame:
// 2 frame control + 2 duration + 3*6 addresses + 2 sequence control +
// 2 reason code. The layout is bit-exact for interoperability with real
// 802.11 stations.
const DeauthFrameLen = 26

// Broadcast is the all-stations destination address.
var Broadcast = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// BuildDeauth constructs a deauthentication frame. target nil means
// broadcast; ap is both the transmitter address and the BSSID. seq is the
// 12-bit sequence number (fragment field zero).
func BuildDeauth(target, ap net.HardwareAddr, reason uint16, seq uint16) []byte {
	frame := make([]byte, DeauthFrameLen)
	frame[0] = 0xC0 // type mgmt, subtype deauthentication
	frame[1] = 0x00
	// duration stays zero

	dst := target
	if dst == nil {
		dst = Broadcast
	}
	copy(frame[4:10], dst)
	copy(frame[10:16], ap)
	copy(frame[16:22], ap)

	SetSequence(frame, seq)
	binary.LittleEndian.PutUint16(frame[24:26], reason)
	return frame
}

// SetSequence writes a 12-bit sequence number into the sequence control
// field of frame, leaving the fragment number zero.
func SetSequence(frame []byte, seq uint16) {
	seq &= 0x0FFF
	frame[22] = byte(seq&0x0F) << 4
	frame[23] = byte(seq >> 4)
}

// DeauthReason extracts the reason code from a deauthentication frame.
func DeauthReason(frame []byte) (uint16, bool) {
	if len(frame) < DeauthFrameLen || frame[0] != 0xC0 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(frame[24:26]), true
}
