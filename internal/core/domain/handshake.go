package domain

import (
	"encoding/hex"
	"net"
	"time"
)

// MaxEAPOLFrameSize bounds the raw EAPOL frame bytes retained on a
// completed handshake for offline MIC verification.
const MaxEAPOLFrameSize = 256

// Handshake is a completed WPA/WPA2 4-way handshake capture: the ANonce
// from Message 1 correlated with the SNonce, MIC and full EAPOL frame of
// the matching Message 2. Immutable once constructed; the capture core
// does not retain it after emission.
type Handshake struct {
	ID      string
	BSSID   net.HardwareAddr
	Station net.HardwareAddr

	ANonce        [32]byte
	SNonce        [32]byte
	MIC           [16]byte
	ReplayCounter [8]byte

	KeyDescType    uint8
	KeyDescVersion uint8

	// EAPOLFrame is the full Message-2 EAPOL frame (802.1X header included),
	// truncated to MaxEAPOLFrameSize. Needed to recompute the MIC offline.
	EAPOLFrame []byte

	Channel   int
	RSSI      int
	Timestamp time.Time
}

// Event renders the handshake as the wire-format JSON event object.
func (h *Handshake) Event() map[string]interface{} {
	return map[string]interface{}{
		"type":             "wifi_handshake",
		"bssid":            h.BSSID.String(),
		"sta_mac":          h.Station.String(),
		"ch":               h.Channel,
		"rssi":             h.RSSI,
		"anonce":           hex.EncodeToString(h.ANonce[:]),
		"snonce":           hex.EncodeToString(h.SNonce[:]),
		"mic":              hex.EncodeToString(h.MIC[:]),
		"replay_counter":   hex.EncodeToString(h.ReplayCounter[:]),
		"key_desc_type":    h.KeyDescType,
		"key_desc_version": h.KeyDescVersion,
		"eapol_frame":      hex.EncodeToString(h.EAPOLFrame),
		"eapol_len":        len(h.EAPOLFrame),
		"timestamp":        h.Timestamp.UnixMilli(),
	}
}
