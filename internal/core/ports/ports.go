// Package ports defines the interfaces between the capture core and its
// adapters. The core depends only on these; hardware, storage and event
// transports plug in from the outside.
package ports

import (
	"context"
	"net"

	"github.com/chimera-red/chimera/internal/core/domain"
)

// FrameKind is the coarse classification the driver reports per frame.
type FrameKind int

const (
	FrameMgmt FrameKind = iota
	FrameData
	FrameCtrl
	FrameMisc
)

// RxFrame is one received 802.11 frame with its radio metadata. The Data
// slice is only valid for the duration of the handler call; handlers that
// need to retain bytes must copy them.
type RxFrame struct {
	Data    []byte
	Kind    FrameKind
	RSSI    int
	Channel int
}

// FrameHandler is invoked by the driver for every received frame while
// promiscuous mode is enabled. It runs in the driver's receive context and
// must not block.
type FrameHandler func(frame RxFrame)

// DriverMode is the low-level interface mode requested from the driver.
type DriverMode int

const (
	DriverOff DriverMode = iota
	DriverStation
	DriverMonitor
)

// RadioDriver abstracts the physical radio. Implementations: a Linux
// monitor-mode adapter backed by libpcap, and an in-memory mock for tests.
type RadioDriver interface {
	// SetMode reconfigures the interface. Implementations must leave the
	// radio in a consistent state or return an error; callers treat any
	// error as fatal to the transition in progress.
	SetMode(ctx context.Context, mode DriverMode) error

	// SetChannel tunes the radio. Valid only in monitor mode.
	SetChannel(ch int) error
	Channel() int

	// SetPromiscuous enables or disables frame delivery to handler.
	// Passing enabled=false detaches any registered handler.
	SetPromiscuous(enabled bool, handler FrameHandler) error

	// MAC and SetMAC read and spoof the transmit identity.
	MAC() (net.HardwareAddr, error)
	SetMAC(mac net.HardwareAddr) error

	// Transmit injects one raw 802.11 frame (no radiotap header).
	Transmit(frame []byte) error

	// Scan performs a station-mode scan and returns discovered networks.
	Scan(ctx context.Context) ([]domain.ScanResult, error)

	Close() error
}

// EventPublisher delivers one JSON event object per call to the outside
// world (serial line, websocket, or both).
type EventPublisher interface {
	Publish(event map[string]interface{})
}

// HandshakeStore persists completed handshakes and scan results.
type HandshakeStore interface {
	SaveHandshake(hs *domain.Handshake) error
	ListHandshakes() ([]domain.Handshake, error)
	SaveScanResults(results []domain.ScanResult) error
}

// HandshakeSink consumes completed handshakes as they are emitted.
type HandshakeSink func(hs *domain.Handshake)
