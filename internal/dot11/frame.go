// Package dot11 provides bounds-checked views over raw 802.11 frames:
// header parsing, DS-bit address resolution, EAPOL-Key extraction and
// deauthentication frame construction.
package dot11

import (
	"errors"
	"net"
)

// Frame control field type values (bits 2-3 of the first octet).
const (
	TypeMgmt = 0x0
	TypeCtrl = 0x1
	TypeData = 0x2
)

// Management subtypes used by the recon path.
const (
	SubtypeProbeReq  = 0x4
	SubtypeProbeResp = 0x5
	SubtypeBeacon    = 0x8
	SubtypeDeauth    = 0xC
)

var (
	ErrShortFrame = errors.New("dot11: frame shorter than header")
)

// Frame is a parsed view into a raw 802.11 frame. The address accessors
// return slices aliasing the underlying buffer; callers must copy before
// retaining them past the receive callback.
type Frame struct {
	raw       []byte
	hdrLen    int
	frameType int
	subtype   int
	toDS      bool
	fromDS    bool
	hasAddr4  bool
}

// Parse validates the generic MAC header and returns a Frame view.
func Parse(raw []byte) (Frame, error) {
	if len(raw) < 24 {
		return Frame{}, ErrShortFrame
	}

	fc0, fc1 := raw[0], raw[1]
	f := Frame{
		raw:       raw,
		frameType: int(fc0>>2) & 0x3,
		subtype:   int(fc0 >> 4),
		toDS:      fc1&0x01 != 0,
		fromDS:    fc1&0x02 != 0,
	}

	f.hdrLen = 24
	if f.toDS && f.fromDS {
		f.hasAddr4 = true
		f.hdrLen += 6
	}
	// QoS data frames carry a 2-byte QoS control field after the addresses.
	if f.frameType == TypeData && f.subtype&0x8 != 0 {
		f.hdrLen += 2
	}
	if len(raw) < f.hdrLen {
		return Frame{}, ErrShortFrame
	}
	return f, nil
}

func (f Frame) Type() int        { return f.frameType }
func (f Frame) Subtype() int     { return f.subtype }
func (f Frame) ToDS() bool       { return f.toDS }
func (f Frame) FromDS() bool     { return f.fromDS }
func (f Frame) HeaderLen() int   { return f.hdrLen }
func (f Frame) Raw() []byte      { return f.raw }
func (f Frame) Payload() []byte  { return f.raw[f.hdrLen:] }
func (f Frame) IsData() bool     { return f.frameType == TypeData }
func (f Frame) IsMgmt() bool     { return f.frameType == TypeMgmt }
func (f Frame) SequenceNum() int { return int(f.raw[22])>>4 | int(f.raw[23])<<4 }

func (f Frame) addr(n int) net.HardwareAddr {
	offsets := [4]int{4, 10, 16, 24}
	off := offsets[n-1]
	return net.HardwareAddr(f.raw[off : off+6])
}

// Addr1 is the receiver address, Addr2 the transmitter, Addr3 depends on
// the DS bits, Addr4 exists only on WDS frames.
func (f Frame) Addr1() net.HardwareAddr { return f.addr(1) }
func (f Frame) Addr2() net.HardwareAddr { return f.addr(2) }
func (f Frame) Addr3() net.HardwareAddr { return f.addr(3) }

// Addr4 returns nil for non-WDS frames.
func (f Frame) Addr4() net.HardwareAddr {
	if !f.hasAddr4 {
		return nil
	}
	return f.addr(4)
}

// Addresses resolves (BSSID, station, destination) according to the
// ToDS/FromDS addressing mode:
//
//	ToDS FromDS  BSSID  Station  Destination
//	 0     0     Addr3  Addr2    Addr1
//	 0     1     Addr2  Addr1    Addr1
//	 1     0     Addr1  Addr2    Addr3
//	 1     1     Addr2  Addr4    Addr3   (WDS, BSSID approximated by TA)
//
// Mis-mapping any branch silently corrupts handshake correlation, so the
// table is reproduced exactly.
func (f Frame) Addresses() (bssid, station, dest net.HardwareAddr) {
	switch {
	case !f.toDS && !f.fromDS:
		return f.Addr3(), f.Addr2(), f.Addr1()
	case !f.toDS && f.fromDS:
		return f.Addr2(), f.Addr1(), f.Addr1()
	case f.toDS && !f.fromDS:
		return f.Addr1(), f.Addr2(), f.Addr3()
	default:
		return f.Addr2(), f.Addr4(), f.Addr3()
	}
}
