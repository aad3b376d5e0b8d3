package radio

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
	"github.com/chimera-red/chimera/internal/telemetry"
)

// Controller owns the radio mode and funnels every transition through a
// single path so no caller can leave the driver half-configured. All
// driver calls happen under the radio mutex; packet processing never
// takes it.
type Controller struct {
	// transMu serializes whole transitions. It is taken before any hopper
	// shutdown wait so the wait never happens under the radio mutex.
	transMu sync.Mutex

	// mu is the radio mutex, held only around driver calls.
	mu     sync.Mutex
	driver ports.RadioDriver
	mode   domain.RadioMode

	handler ports.FrameHandler

	hopper  *Hopper
	hopping bool
	dwell   time.Duration
}

// NewController wraps driver. handler is the promiscuous dispatcher
// callback registered whenever sniffing is active.
func NewController(driver ports.RadioDriver, handler ports.FrameHandler) *Controller {
	return &Controller{
		driver:  driver,
		mode:    domain.RadioOff,
		handler: handler,
		dwell:   DefaultDwell,
	}
}

// SetHandler registers the frame handler used while sniffing. Must be
// called before the first transition into sniffing.
func (c *Controller) SetHandler(handler ports.FrameHandler) {
	c.handler = handler
}

// SetDwell overrides the hop dwell time.
func (c *Controller) SetDwell(d time.Duration) {
	c.dwell = d
}

// Mode returns the current radio mode.
func (c *Controller) Mode() domain.RadioMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Channel returns the channel the driver is currently tuned to.
func (c *Controller) Channel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver.Channel()
}

// Hopping reports whether channel hopping is active for the current
// sniffing session.
func (c *Controller) Hopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hopping
}

// StartSniffing transitions to passive capture. channel 0 enables channel
// hopping over the fixed sequence; a concrete channel pins the radio.
func (c *Controller) StartSniffing(channel int) error {
	if channel != 0 && !domain.IsValidChannel(channel) {
		return fmt.Errorf("radio: invalid channel %d", channel)
	}
	c.transMu.Lock()
	defer c.transMu.Unlock()
	return c.enterSniffing(channel, channel == 0)
}

// StopSniffing transitions from sniffing back to off. No-op in any other
// mode.
func (c *Controller) StopSniffing() error {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	if c.Mode() != domain.RadioSniffing {
		return nil
	}
	c.stopHopper()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.driver.SetPromiscuous(false, nil); err != nil {
		return c.fallToOffLocked(err)
	}
	if err := c.driver.SetMode(context.Background(), ports.DriverOff); err != nil {
		return c.fallToOffLocked(err)
	}
	c.setModeLocked(domain.RadioOff)
	return nil
}

// Scan switches to station mode and runs an active scan. The radio stays
// in station mode afterwards; callers restart sniffing explicitly.
func (c *Controller) Scan(ctx context.Context) ([]domain.ScanResult, error) {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	c.stopHopper()

	c.mu.Lock()
	if c.mode == domain.RadioSniffing || c.mode == domain.RadioTransmitting {
		if err := c.driver.SetPromiscuous(false, nil); err != nil {
			err = c.fallToOffLocked(err)
			c.mu.Unlock()
			return nil, err
		}
	}
	if err := c.driver.SetMode(ctx, ports.DriverStation); err != nil {
		err = c.fallToOffLocked(err)
		c.mu.Unlock()
		return nil, err
	}
	c.setModeLocked(domain.RadioStation)
	c.mu.Unlock()

	return c.driver.Scan(ctx)
}

// BeginTransmit tears down sniffing cleanly, spoofs the transmit identity
// and tunes to channel. On driver failure nothing is transmitted and the
// controller falls back toward Off. Callers must pair this with
// ResumePassive (or Off) regardless of burst outcome.
func (c *Controller) BeginTransmit(channel int, spoof net.HardwareAddr) error {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	c.stopHopper()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == domain.RadioSniffing {
		if err := c.driver.SetPromiscuous(false, nil); err != nil {
			return c.fallToOffLocked(err)
		}
	}
	if err := c.driver.SetMode(context.Background(), ports.DriverMonitor); err != nil {
		return c.fallToOffLocked(err)
	}
	if err := c.driver.SetMAC(spoof); err != nil {
		return c.fallToOffLocked(err)
	}
	if err := c.driver.SetChannel(channel); err != nil {
		return c.fallToOffLocked(err)
	}
	c.setModeLocked(domain.RadioTransmitting)
	return nil
}

// Transmit injects one raw frame. Valid only while transmitting.
func (c *Controller) Transmit(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != domain.RadioTransmitting {
		return fmt.Errorf("radio: transmit in mode %s", c.mode)
	}
	return c.driver.Transmit(frame)
}

// ResumePassive restores the real MAC and returns to passive capture on
// the given channel. Hopping, when requested, resumes only after the
// promiscuous callback is re-registered so the capture window on the
// target channel opens first.
func (c *Controller) ResumePassive(channel int, hop bool, mac net.HardwareAddr) error {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	c.mu.Lock()
	if err := c.driver.SetMAC(mac); err != nil {
		err = c.fallToOffLocked(err)
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	return c.enterSniffing(channel, hop)
}

// Off tears everything down to the idle state. Used both as a normal
// transition and as the safe terminal state after driver failures.
func (c *Controller) Off() error {
	c.transMu.Lock()
	defer c.transMu.Unlock()

	c.stopHopper()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == domain.RadioOff {
		return nil
	}
	if err := c.driver.SetPromiscuous(false, nil); err != nil {
		return c.fallToOffLocked(err)
	}
	if err := c.driver.SetMode(context.Background(), ports.DriverOff); err != nil {
		return c.fallToOffLocked(err)
	}
	c.setModeLocked(domain.RadioOff)
	return nil
}

// enterSniffing applies the sniffing setup. Caller holds transMu.
func (c *Controller) enterSniffing(channel int, hop bool) error {
	c.stopHopper()

	c.mu.Lock()
	if c.mode == domain.RadioSniffing || c.mode == domain.RadioTransmitting {
		if err := c.driver.SetPromiscuous(false, nil); err != nil {
			err = c.fallToOffLocked(err)
			c.mu.Unlock()
			return err
		}
	}

	if err := c.driver.SetMode(context.Background(), ports.DriverMonitor); err != nil {
		err = c.fallToOffLocked(err)
		c.mu.Unlock()
		return err
	}

	initial := channel
	if initial == 0 {
		initial = domain.HopChannels[0]
	}
	if err := c.driver.SetChannel(initial); err != nil {
		err = c.fallToOffLocked(err)
		c.mu.Unlock()
		return err
	}
	if err := c.driver.SetPromiscuous(true, c.handler); err != nil {
		err = c.fallToOffLocked(err)
		c.mu.Unlock()
		return err
	}
	c.setModeLocked(domain.RadioSniffing)
	c.hopping = hop
	c.mu.Unlock()

	if hop {
		c.hopper = NewHopper(domain.HopChannels, initial, c.dwell, c.hopperSetChannel)
		go c.hopper.Start()
		log.Printf("Sniffer started with channel hopping")
	} else {
		log.Printf("Sniffer started on channel %d", channel)
	}
	return nil
}

// hopperSetChannel is the hop callback. It re-checks the mode under the
// radio mutex so a hop that raced a transition becomes a no-op instead of
// retuning the radio out from under another mode.
func (c *Controller) hopperSetChannel(ch int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != domain.RadioSniffing || !c.hopping {
		return nil
	}
	return c.driver.SetChannel(ch)
}

// stopHopper blocks (bounded) until the hop loop exits. Caller holds
// transMu but not mu, so an in-flight hop can finish.
func (c *Controller) stopHopper() {
	if c.hopper == nil {
		return
	}
	c.hopper.Stop()
	c.hopper = nil
	c.mu.Lock()
	c.hopping = false
	c.mu.Unlock()
}

// fallToOffLocked is the rollback path for a failed transition: rather
// than leave mixed state, force the driver off and park the controller in
// the safe terminal mode. Caller holds mu.
func (c *Controller) fallToOffLocked(cause error) error {
	log.Printf("Radio transition failed, falling back to off: %v", cause)
	if err := c.driver.SetPromiscuous(false, nil); err != nil {
		log.Printf("Rollback: disable promiscuous: %v", err)
	}
	if err := c.driver.SetMode(context.Background(), ports.DriverOff); err != nil {
		log.Printf("Rollback: driver off: %v", err)
	}
	c.setModeLocked(domain.RadioOff)
	c.hopping = false
	return cause
}

func (c *Controller) setModeLocked(m domain.RadioMode) {
	c.mode = m
	telemetry.ModeTransitions.WithLabelValues(m.String()).Inc()
}

// RestoreIdentity writes the real MAC back without changing mode. Used on
// burst abort paths where capture is not being resumed.
func (c *Controller) RestoreIdentity(mac net.HardwareAddr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver.SetMAC(mac)
}

// MAC reads the radio's current transmit identity.
func (c *Controller) MAC() (net.HardwareAddr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver.MAC()
}
