package handshake

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/chimera-red/chimera/internal/core/domain"
)

// micOffset is the position of the MIC inside the stored EAPOL frame:
// 4-byte 802.1X header plus 77 bytes of key descriptor fields.
const micOffset = 81

var ErrFrameTooShort = errors.New("handshake: stored EAPOL frame too short for MIC verification")

// VerifyMIC recomputes the Message-2 MIC of a completed handshake for a
// candidate passphrase and reports whether it matches. This validates a
// capture end to end (addresses, nonces, frame bytes) without any cracking
// logic: one candidate in, one boolean out.
func VerifyMIC(hs *domain.Handshake, passphrase, ssid string) (bool, error) {
	mac, err := ComputeMIC(hs, passphrase, ssid)
	if err != nil {
		return false, err
	}
	return hmac.Equal(mac, hs.MIC[:]), nil
}

// ComputeMIC derives the KCK for a candidate passphrase and returns the
// MIC the station would have produced over the stored EAPOL frame.
func ComputeMIC(hs *domain.Handshake, passphrase, ssid string) ([]byte, error) {
	if len(hs.EAPOLFrame) < micOffset+16 {
		return nil, ErrFrameTooShort
	}

	pmk := pbkdf2.Key([]byte(passphrase), []byte(ssid), 4096, 32, sha1.New)
	kck := deriveKCK(pmk, hs.BSSID, hs.Station, hs.ANonce[:], hs.SNonce[:])

	// The MIC is computed over the EAPOL frame with its MIC field zeroed.
	frame := make([]byte, len(hs.EAPOLFrame))
	copy(frame, hs.EAPOLFrame)
	for i := micOffset; i < micOffset+16; i++ {
		frame[i] = 0
	}

	switch hs.KeyDescVersion {
	case 1:
		h := hmac.New(md5.New, kck)
		h.Write(frame)
		return h.Sum(nil), nil
	case 2:
		h := hmac.New(sha1.New, kck)
		h.Write(frame)
		return h.Sum(nil)[:16], nil
	default:
		return nil, errors.New("handshake: unsupported key descriptor version")
	}
}

// deriveKCK runs the IEEE 802.11i PRF over the PMK and returns the first
// 16 bytes of the PTK (the key confirmation key).
func deriveKCK(pmk []byte, aa, sa, anonce, snonce []byte) []byte {
	data := make([]byte, 0, 12+64)
	data = append(data, minBytes(aa, sa)...)
	data = append(data, maxBytes(aa, sa)...)
	data = append(data, minBytes(anonce, snonce)...)
	data = append(data, maxBytes(anonce, snonce)...)

	return prf(pmk, "Pairwise key expansion", data, 16)
}

// prf is PRF-n from 802.11i §8.5.1.1: iterated HMAC-SHA1 over
// label || 0x00 || data || counter.
func prf(key []byte, label string, data []byte, n int) []byte {
	var out []byte
	for i := byte(0); len(out) < n; i++ {
		h := hmac.New(sha1.New, key)
		h.Write([]byte(label))
		h.Write([]byte{0x00})
		h.Write(data)
		h.Write([]byte{i})
		out = h.Sum(out)
	}
	return out[:n]
}

func minBytes(a, b []byte) []byte {
	if bytes.Compare(a, b) < 0 {
		return a
	}
	return b
}

func maxBytes(a, b []byte) []byte {
	if bytes.Compare(a, b) < 0 {
		return b
	}
	return a
}
