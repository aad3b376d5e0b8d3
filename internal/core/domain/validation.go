package domain

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// IsValidMAC reports whether s is a colon- or dash-separated MAC address.
func IsValidMAC(s string) bool {
	return macPattern.MatchString(s)
}

// ParseMAC parses a MAC address string into a 6-byte hardware address.
// Unlike net.ParseMAC it rejects EUI-64 and 20-byte forms, since 802.11
// addressing is strictly 48 bits.
func ParseMAC(s string) (net.HardwareAddr, error) {
	if !IsValidMAC(s) {
		return nil, fmt.Errorf("invalid MAC address: %q", s)
	}
	hw, err := net.ParseMAC(strings.ReplaceAll(s, "-", ":"))
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// IsValidChannel reports whether ch is a usable 2.4GHz channel.
func IsValidChannel(ch int) bool {
	return ch >= 1 && ch <= 13
}
