// Package command implements the line-oriented control protocol spoken
// over the serial transport. Each input line is one command; responses
// and capture output go back as JSON events.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
)

// Deauth bursts triggered over the control line use a fixed size; the
// HTTP API exposes the full job parameters instead.
const burstCount = 50

// Core is the application surface commands are dispatched to.
type Core interface {
	Scan(ctx context.Context) ([]domain.ScanResult, error)
	StartSniffing(channel int) error
	StopSniffing() error
	Deauth(job domain.DeauthJob) (*domain.DeauthResult, error)
	SetReconMode(enabled bool)
	ClearCache()
}

// Dispatcher parses command lines and drives the core.
type Dispatcher struct {
	core      Core
	publisher ports.EventPublisher
}

func NewDispatcher(core Core, publisher ports.EventPublisher) *Dispatcher {
	return &Dispatcher{core: core, publisher: publisher}
}

// Run consumes commands from r until EOF or context cancellation.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		d.Execute(ctx, line)
	}
	return scanner.Err()
}

// Execute runs a single command line.
func (d *Dispatcher) Execute(ctx context.Context, line string) {
	log.Printf("CMD: %s", line)

	cmd, payload := line, ""
	if i := strings.IndexByte(line, ':'); i >= 0 {
		cmd, payload = line[:i], line[i+1:]
	}

	var err error
	switch cmd {
	case "SCAN":
		err = d.cmdScan(ctx)
	case "SNIFF_START":
		err = d.cmdSniffStart(payload)
	case "SNIFF_STOP":
		err = d.core.StopSniffing()
	case "DEAUTH":
		err = d.cmdDeauth(payload)
	case "RECON_START":
		d.core.SetReconMode(true)
	case "RECON_STOP":
		d.core.SetReconMode(false)
	case "CLEAR":
		d.core.ClearCache()
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		d.publishError(err)
	}
}

func (d *Dispatcher) cmdScan(ctx context.Context) error {
	_, err := d.core.Scan(ctx)
	return err
}

func (d *Dispatcher) cmdSniffStart(payload string) error {
	channel := 0
	if payload != "" {
		ch, err := strconv.Atoi(payload)
		if err != nil {
			return fmt.Errorf("invalid channel %q", payload)
		}
		channel = ch
	}
	return d.core.StartSniffing(channel)
}

// cmdDeauth parses "AA:BB:CC:DD:EE:FF" or "AA:BB:CC:DD:EE:FF:7" where
// the trailing field selects the channel.
func (d *Dispatcher) cmdDeauth(payload string) error {
	mac, channel := payload, 0
	if parts := strings.Split(payload, ":"); len(parts) == 7 {
		ch, err := strconv.Atoi(parts[6])
		if err != nil {
			return fmt.Errorf("invalid channel %q", parts[6])
		}
		channel = ch
		mac = strings.Join(parts[:6], ":")
	}

	ap, err := domain.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("invalid MAC address: %w", err)
	}

	_, err = d.core.Deauth(domain.DeauthJob{
		AccessPoint:   ap,
		Channel:       channel,
		Count:         burstCount,
		RotateReasons: true,
	})
	return err
}

func (d *Dispatcher) publishError(err error) {
	d.publisher.Publish(map[string]interface{}{
		"type":    "error",
		"message": err.Error(),
	})
}
