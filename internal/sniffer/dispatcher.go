// Package sniffer routes frames delivered by the driver's promiscuous
// callback to handshake tracking and passive reconnaissance.
package sniffer

import (
	"sync/atomic"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
	"github.com/chimera-red/chimera/internal/dot11"
	"github.com/chimera-red/chimera/internal/handshake"
	"github.com/chimera-red/chimera/internal/telemetry"
)

// Dispatcher is the single entry point for every received frame. It runs
// in the driver's receive context: no blocking, minimal work per call,
// allocations only on the rare recon-event path.
type Dispatcher struct {
	stats   *domain.CaptureStats
	tracker *handshake.Tracker

	recon atomic.Bool
	raw   atomic.Pointer[ports.FrameHandler]

	publisher ports.EventPublisher
}

// NewDispatcher wires the dispatcher to its consumers.
func NewDispatcher(stats *domain.CaptureStats, tracker *handshake.Tracker, publisher ports.EventPublisher) *Dispatcher {
	return &Dispatcher{
		stats:     stats,
		tracker:   tracker,
		publisher: publisher,
	}
}

// SetReconMode toggles passive reconnaissance output.
func (d *Dispatcher) SetReconMode(enabled bool) {
	d.recon.Store(enabled)
}

// ReconMode reports whether recon output is enabled.
func (d *Dispatcher) ReconMode() bool {
	return d.recon.Load()
}

// SetRawHandler registers an optional raw sniffer callback that receives
// every frame unmodified before classification. Pass nil to unregister.
func (d *Dispatcher) SetRawHandler(h ports.FrameHandler) {
	if h == nil {
		d.raw.Store(nil)
		return
	}
	d.raw.Store(&h)
}

// HandleFrame implements ports.FrameHandler.
func (d *Dispatcher) HandleFrame(frame ports.RxFrame) {
	d.stats.FramesSeen.Add(1)
	telemetry.FramesCaptured.WithLabelValues(kindLabel(frame.Kind)).Inc()

	if h := d.raw.Load(); h != nil {
		(*h)(frame)
	}

	f, err := dot11.Parse(frame.Data)
	if err != nil {
		return
	}

	switch {
	case f.IsMgmt():
		if d.recon.Load() {
			d.handleMgmt(f, frame)
		}
	case f.IsData():
		d.tracker.HandleDataFrame(f, frame.RSSI, frame.Channel)
	}
}

func (d *Dispatcher) handleMgmt(f dot11.Frame, frame ports.RxFrame) {
	if d.publisher == nil {
		return
	}

	switch f.Subtype() {
	case dot11.SubtypeBeacon, dot11.SubtypeProbeResp:
		// Fixed mgmt body: timestamp(8) + beacon interval(2) + caps(2),
		// then tagged parameters.
		ssid, ok := parseSSID(f.Payload(), 12)
		if !ok || ssid == "" {
			return
		}
		d.publisher.Publish(map[string]interface{}{
			"type":  "recon",
			"ssid":  ssid,
			"bssid": f.Addr3().String(),
			"rssi":  frame.RSSI,
			"ch":    frame.Channel,
		})
	case dot11.SubtypeProbeReq:
		ssid, _ := parseSSID(f.Payload(), 0)
		d.publisher.Publish(map[string]interface{}{
			"type":    "client_probe",
			"sta_mac": f.Addr2().String(),
			"ssid":    ssid,
			"rssi":    frame.RSSI,
			"ch":      frame.Channel,
		})
	}
}

// parseSSID walks the tagged parameters starting at offset and returns the
// SSID element value. Bounds-checked; a malformed element ends the walk.
func parseSSID(body []byte, offset int) (string, bool) {
	pos := offset
	for pos+2 <= len(body) {
		id := body[pos]
		length := int(body[pos+1])
		if pos+2+length > len(body) {
			return "", false
		}
		if id == 0 {
			if length > 32 {
				return "", false
			}
			return string(body[pos+2 : pos+2+length]), true
		}
		pos += 2 + length
	}
	return "", false
}

func kindLabel(k ports.FrameKind) string {
	switch k {
	case ports.FrameMgmt:
		return "mgmt"
	case ports.FrameData:
		return "data"
	case ports.FrameCtrl:
		return "ctrl"
	default:
		return "misc"
	}
}
