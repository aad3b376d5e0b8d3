package domain

// RadioMode represents the exclusive operating mode of the physical radio.
// Exactly one mode is active at a time; transitions go through the radio
// controller and never by assigning the value directly.
type RadioMode int

const (
	// RadioOff means the driver is stopped and the radio is idle.
	RadioOff RadioMode = iota
	// RadioStation is the managed client mode used for active scanning.
	RadioStation
	// RadioSniffing is passive promiscuous capture.
	RadioSniffing
	// RadioTransmitting is the spoofed-identity raw injection mode.
	RadioTransmitting
)

func (m RadioMode) String() string {
	switch m {
	case RadioOff:
		return "off"
	case RadioStation:
		return "station"
	case RadioSniffing:
		return "sniffing"
	case RadioTransmitting:
		return "transmitting"
	default:
		return "unknown"
	}
}

// HopChannels is the channel hop sequence used while sniffing with hopping
// enabled. The order front-loads 1/6/11, where most real 2.4GHz networks
// live, while still touching every channel each cycle.
var HopChannels = []int{1, 6, 11, 2, 7, 12, 3, 8, 13, 4, 9, 5, 10}

// ScanResult describes one access point found by a station-mode scan.
type ScanResult struct {
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid"`
	RSSI       int    `json:"rssi"`
	Channel    int    `json:"channel"`
	Encryption string `json:"encryption"`
}
