// Package app wires the capture core to its adapters and exposes the
// operations the command line and HTTP layers drive.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chimera-red/chimera/internal/adapters/reporting"
	"github.com/chimera-red/chimera/internal/attack/deauth"
	"github.com/chimera-red/chimera/internal/config"
	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
	"github.com/chimera-red/chimera/internal/handshake"
	"github.com/chimera-red/chimera/internal/radio"
	"github.com/chimera-red/chimera/internal/sniffer"
)

// statsInterval is how often sniff_stats events go out while sniffing.
const statsInterval = 5 * time.Second

// handshakeQueueSize bounds completed handshakes waiting for persistence
// and fanout. Matches the correlation cache capacity.
const handshakeQueueSize = 16

// App owns the assembled capture engine.
type App struct {
	cfg        *config.Config
	ctrl       *radio.Controller
	dispatcher *sniffer.Dispatcher
	engine     *deauth.Engine
	stats      *domain.CaptureStats
	cache      *handshake.Cache
	store      ports.HandshakeStore
	publisher  ports.EventPublisher
	startedAt  time.Time

	handshakeCh chan *domain.Handshake
}

// New assembles the engine around the given driver, store and publisher.
func New(cfg *config.Config, driver ports.RadioDriver, store ports.HandshakeStore, publisher ports.EventPublisher) *App {
	a := &App{
		cfg:         cfg,
		stats:       &domain.CaptureStats{},
		cache:       handshake.NewCache(),
		store:       store,
		publisher:   publisher,
		startedAt:   time.Now(),
		handshakeCh: make(chan *domain.Handshake, handshakeQueueSize),
	}
	go a.drainHandshakes()

	tracker := handshake.NewTracker(a.cache, a.stats, a.onHandshake)
	a.dispatcher = sniffer.NewDispatcher(a.stats, tracker, publisher)
	a.ctrl = radio.NewController(driver, a.dispatcher.HandleFrame)
	if cfg.DwellTime > 0 {
		a.ctrl.SetDwell(time.Duration(cfg.DwellTime) * time.Millisecond)
	}
	a.engine = deauth.NewEngine(a.ctrl)

	return a
}

// onHandshake hands a completed handshake to the sink worker. Runs in
// the receive path and must never block: a slow websocket client or a
// busy disk cannot be allowed to stall frame classification, so a full
// queue drops the handshake with a log line instead of waiting.
func (a *App) onHandshake(hs *domain.Handshake) {
	select {
	case a.handshakeCh <- hs:
	default:
		log.Printf("Handshake queue full, dropping %s/%s", hs.BSSID, hs.Station)
	}
}

// drainHandshakes runs publish, persistence and pcap export off the
// receive path. Failures are logged rather than propagated.
func (a *App) drainHandshakes() {
	for hs := range a.handshakeCh {
		a.sinkHandshake(hs)
	}
}

func (a *App) sinkHandshake(hs *domain.Handshake) {
	a.publisher.Publish(hs.Event())

	if a.store != nil {
		if err := a.store.SaveHandshake(hs); err != nil {
			log.Printf("Handshake persist failed: %v", err)
		}
	}
	if a.cfg.CaptureDir != "" {
		if path, err := reporting.ExportHandshakeFile(a.cfg.CaptureDir, hs); err != nil {
			log.Printf("Handshake pcap export failed: %v", err)
		} else {
			log.Printf("Handshake written to %s", path)
		}
	}
}

// Scan runs a station-mode scan, publishes the result event and stores
// the snapshot.
func (a *App) Scan(ctx context.Context) ([]domain.ScanResult, error) {
	results, err := a.ctrl.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	networks := make([]map[string]interface{}, len(results))
	for i, r := range results {
		networks[i] = map[string]interface{}{
			"ssid":       r.SSID,
			"bssid":      r.BSSID,
			"rssi":       r.RSSI,
			"channel":    r.Channel,
			"encryption": r.Encryption,
		}
	}
	a.publisher.Publish(map[string]interface{}{
		"type":     "wifi_scan_result",
		"count":    len(results),
		"networks": networks,
	})

	if a.store != nil {
		if err := a.store.SaveScanResults(results); err != nil {
			log.Printf("Scan persist failed: %v", err)
		}
	}
	return results, nil
}

// StartSniffing enters passive capture. Channel 0 enables hopping.
// Counters and pending correlation state accumulate across sessions;
// only ClearCache resets them.
func (a *App) StartSniffing(channel int) error {
	return a.ctrl.StartSniffing(channel)
}

// ClearCache drops pending handshake correlation state and zeroes the
// capture counters.
func (a *App) ClearCache() {
	a.cache.Clear()
	a.stats.Reset()
	a.publisher.Publish(map[string]interface{}{"type": "cache_cleared"})
}

func (a *App) StopSniffing() error {
	return a.ctrl.StopSniffing()
}

// Deauth runs a burst and publishes the result event.
func (a *App) Deauth(job domain.DeauthJob) (*domain.DeauthResult, error) {
	if job.Interval == 0 && a.cfg.BurstGap > 0 {
		job.Interval = time.Duration(a.cfg.BurstGap) * time.Millisecond
	}
	result, err := a.engine.Run(job)
	if err != nil {
		return nil, err
	}
	a.publisher.Publish(result.Event())
	return &result, nil
}

func (a *App) SetReconMode(enabled bool) {
	a.dispatcher.SetReconMode(enabled)
}

// Handshakes lists persisted handshakes.
func (a *App) Handshakes() ([]domain.Handshake, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.ListHandshakes()
}

// Status reports the engine state for the HTTP status endpoint.
func (a *App) Status() map[string]interface{} {
	snap := a.stats.Snapshot()
	return map[string]interface{}{
		"mode":           a.ctrl.Mode().String(),
		"channel":        a.ctrl.Channel(),
		"hopping":        a.ctrl.Hopping(),
		"recon":          a.dispatcher.ReconMode(),
		"frames":         snap.FramesSeen,
		"handshakes":     snap.Completed,
		"cached_entries": a.cache.Len(),
		"uptime_seconds": int(time.Since(a.startedAt).Seconds()),
	}
}

// SessionReport collects the data for a PDF session report.
func (a *App) SessionReport() (*reporting.SessionReport, error) {
	handshakes, err := a.Handshakes()
	if err != nil {
		return nil, err
	}
	return &reporting.SessionReport{
		GeneratedAt: time.Now(),
		Interface:   a.cfg.Interface,
		Stats:       a.stats.Snapshot(),
		Handshakes:  handshakes,
	}, nil
}

// RunStatsTicker emits periodic sniff_stats events while capture is
// active. Blocks until ctx is done.
func (a *App) RunStatsTicker(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.ctrl.Mode() == domain.RadioSniffing {
				a.publisher.Publish(a.stats.Snapshot().Event())
			}
		}
	}
}

// Shutdown turns the radio off.
func (a *App) Shutdown() {
	if err := a.ctrl.Off(); err != nil {
		log.Printf("Radio shutdown failed: %v", err)
	}
}
