package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesCaptured counts frames delivered by the promiscuous callback.
	FramesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "frames_captured_total",
			Help:      "Total number of 802.11 frames seen by the dispatcher",
		},
		[]string{"kind"},
	)

	// EAPOLMessages counts classified handshake messages by number.
	EAPOLMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "eapol_messages_total",
			Help:      "Total number of classified EAPOL handshake messages",
		},
		[]string{"message"},
	)

	// HandshakesCompleted counts emitted complete handshakes.
	HandshakesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "handshakes_completed_total",
			Help:      "Total number of complete M1+M2 handshakes emitted",
		},
	)

	// InjectionsTotal counts transmitted forged frames.
	InjectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "injection_total",
			Help:      "Total number of raw frame transmissions",
		},
		[]string{"type"},
	)

	// InjectionErrors counts failed transmissions.
	InjectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "injection_errors_total",
			Help:      "Total number of failed raw frame transmissions",
		},
		[]string{"type"},
	)

	// ModeTransitions counts radio mode changes by target mode.
	ModeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "radio_mode_transitions_total",
			Help:      "Total number of radio mode transitions",
		},
		[]string{"mode"},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Idempotent; safe to call from multiple entry points.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(FramesCaptured)
		prometheus.DefaultRegisterer.Register(EAPOLMessages)
		prometheus.DefaultRegisterer.Register(HandshakesCompleted)
		prometheus.DefaultRegisterer.Register(InjectionsTotal)
		prometheus.DefaultRegisterer.Register(InjectionErrors)
		prometheus.DefaultRegisterer.Register(ModeTransitions)
	})
}
