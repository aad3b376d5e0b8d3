package dot11

import (
	"encoding/binary"
	"errors"
)

// Key Information bit masks (IEEE 802.11i, EAPOL-Key frame).
const (
	KeyInfoVersionMask = 0x0007
	KeyInfoKeyType     = 1 << 3
	KeyInfoInstall     = 1 << 6
	KeyInfoAck         = 1 << 7
	KeyInfoMIC         = 1 << 8
	KeyInfoSecure      = 1 << 9
)

// Key descriptor types accepted by the capture core.
const (
	DescTypeRSN  = 0x02 // WPA2
	DescTypeWPA1 = 0xFE
)

const (
	eapolTypeKey = 3
	llcSnapLen   = 8
	eapolHdrLen  = 4
	// Fixed EAPOL-Key body up to and including the key data length field.
	keyBodyMinLen = 95
)

// llcSnapEAPOL is the 8-byte LLC/SNAP header carrying EtherType 0x888E.
var llcSnapEAPOL = [8]byte{0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8E}

var (
	// ErrNotEAPOL marks frames that are not EAPOL-Key traffic. They are
	// dropped silently, never surfaced as a fault.
	ErrNotEAPOL = errors.New("dot11: not an EAPOL key frame")
	// ErrTruncated marks EAPOL frames whose declared length exceeds the
	// captured bytes.
	ErrTruncated = errors.New("dot11: truncated EAPOL frame")
)

// EAPOLKey is a parsed EAPOL-Key frame. The byte arrays are copies; the
// struct does not alias the receive buffer.
type EAPOLKey struct {
	DescriptorType uint8
	KeyInfo        uint16
	ReplayCounter  [8]byte
	Nonce          [32]byte
	MIC            [16]byte

	// Frame is the EAPOL frame from the 802.1X header onward, bounded to
	// 256 bytes, retained for offline MIC verification.
	Frame []byte
}

func (k *EAPOLKey) Ack() bool      { return k.KeyInfo&KeyInfoAck != 0 }
func (k *EAPOLKey) HasMIC() bool   { return k.KeyInfo&KeyInfoMIC != 0 }
func (k *EAPOLKey) Secure() bool   { return k.KeyInfo&KeyInfoSecure != 0 }
func (k *EAPOLKey) Version() uint8 { return uint8(k.KeyInfo & KeyInfoVersionMask) }

// IsMessage1 reports the (ack=1, mic=0) signature of handshake Message 1.
func (k *EAPOLKey) IsMessage1() bool { return k.Ack() && !k.HasMIC() }

// IsMessage2 reports the (mic=1, ack=0, secure=0) signature of Message 2.
func (k *EAPOLKey) IsMessage2() bool { return k.HasMIC() && !k.Ack() && !k.Secure() }

// ParseEAPOLKey validates the LLC/SNAP and EAPOL framing of a data frame
// and extracts the key descriptor fields. The validation sequence
// short-circuits: any failed step returns immediately with ErrNotEAPOL or
// ErrTruncated and records no partial state.
func ParseEAPOLKey(f Frame) (*EAPOLKey, error) {
	raw := f.Raw()
	hdrLen := f.HeaderLen()

	if len(raw) < hdrLen+llcSnapLen+eapolHdrLen {
		return nil, ErrNotEAPOL
	}

	llc := raw[hdrLen : hdrLen+llcSnapLen]
	for i, b := range llcSnapEAPOL {
		if llc[i] != b {
			return nil, ErrNotEAPOL
		}
	}

	eapol := raw[hdrLen+llcSnapLen:]
	// 802.1X header: version(1) type(1) body length(2).
	if eapol[1] != eapolTypeKey {
		return nil, ErrNotEAPOL
	}
	bodyLen := int(binary.BigEndian.Uint16(eapol[2:4]))
	if eapolHdrLen+bodyLen > len(eapol) {
		return nil, ErrTruncated
	}

	body := eapol[eapolHdrLen : eapolHdrLen+bodyLen]
	if len(body) < keyBodyMinLen {
		return nil, ErrTruncated
	}

	descType := body[0]
	if descType != DescTypeRSN && descType != DescTypeWPA1 {
		return nil, ErrNotEAPOL
	}

	k := &EAPOLKey{
		DescriptorType: descType,
		KeyInfo:        binary.BigEndian.Uint16(body[1:3]),
	}
	copy(k.ReplayCounter[:], body[5:13])
	copy(k.Nonce[:], body[13:45])
	copy(k.MIC[:], body[77:93])

	frameLen := eapolHdrLen + bodyLen
	if frameLen > 256 {
		frameLen = 256
	}
	k.Frame = make([]byte, frameLen)
	copy(k.Frame, eapol[:frameLen])

	return k, nil
}
