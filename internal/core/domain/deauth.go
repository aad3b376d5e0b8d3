package domain

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DeauthJob defines one deauthentication burst. It exists only for the
// duration of the burst; results are reported through DeauthResult.
type DeauthJob struct {
	// AccessPoint is the BSSID whose identity is impersonated. Required.
	AccessPoint net.HardwareAddr

	// Target is the station to disconnect. Nil means broadcast.
	Target net.HardwareAddr

	// Channel is the channel to transmit on. 0 means "use current".
	Channel int

	// Count is the number of frames to send.
	Count int

	// Interval paces transmission between frames.
	Interval time.Duration

	// RotateReasons cycles through plausible reason codes to evade
	// simplistic reason-code filtering.
	RotateReasons bool

	// Reason is the fixed 802.11 reason code when RotateReasons is off.
	Reason uint16
}

// Validate evaluates the job against protocol and domain rules.
func (j *DeauthJob) Validate() error {
	if len(j.AccessPoint) != 6 {
		return errors.New("access point MAC is required")
	}
	if j.Target != nil && len(j.Target) != 6 {
		return fmt.Errorf("invalid target MAC length: %d", len(j.Target))
	}
	if j.Channel < 0 || j.Channel > 13 {
		return fmt.Errorf("invalid channel: %d", j.Channel)
	}
	if j.Count <= 0 {
		return errors.New("packet count must be positive")
	}
	if j.Interval < 0 {
		return errors.New("interval cannot be negative")
	}
	return nil
}

// DeauthResult is the outcome of a burst.
type DeauthResult struct {
	ID      string
	Sent    int
	Failed  int
	Channel int
}

// Event renders the result as the wire-format JSON event object.
func (r *DeauthResult) Event() map[string]interface{} {
	return map[string]interface{}{
		"type":    "deauth_result",
		"success": r.Sent > 0,
		"channel": r.Channel,
	}
}
