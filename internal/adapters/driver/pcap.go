// Package driver provides RadioDriver implementations: a Linux
// monitor-mode adapter backed by libpcap and iw, and an in-memory mock.
package driver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
)

// execCommand and execCommandContext allow mocking in tests.
var (
	execCommand        = exec.Command
	execCommandContext = exec.CommandContext
)

// PcapDriver drives a Linux wireless interface through iw/ip for mode and
// channel control and libpcap for capture and raw injection.
type PcapDriver struct {
	iface string

	mu      sync.Mutex
	mode    ports.DriverMode
	channel int
	handle  *pcap.Handle

	rxCancel context.CancelFunc
	rxDone   chan struct{}
}

// NewPcapDriver creates a driver for iface. The interface is left
// untouched until the first SetMode call.
func NewPcapDriver(iface string) *PcapDriver {
	return &PcapDriver{iface: iface, mode: ports.DriverOff}
}

func (d *PcapDriver) run(name string, args ...string) error {
	cmd := execCommand(name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SetMode reconfigures the interface type. Any receive loop and pcap
// handle are torn down first so the kernel never sees a mode flip under
// an open capture.
func (d *PcapDriver) SetMode(ctx context.Context, mode ports.DriverMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopRxLocked()
	d.closeHandleLocked()

	switch mode {
	case ports.DriverOff:
		if err := d.run("ip", "link", "set", d.iface, "down"); err != nil {
			return err
		}
	case ports.DriverStation:
		if err := d.run("ip", "link", "set", d.iface, "down"); err != nil {
			return err
		}
		if err := d.run("iw", "dev", d.iface, "set", "type", "managed"); err != nil {
			return err
		}
		if err := d.run("ip", "link", "set", d.iface, "up"); err != nil {
			return err
		}
	case ports.DriverMonitor:
		if err := d.run("ip", "link", "set", d.iface, "down"); err != nil {
			return err
		}
		if err := d.run("iw", "dev", d.iface, "set", "type", "monitor"); err != nil {
			return err
		}
		if err := d.run("ip", "link", "set", d.iface, "up"); err != nil {
			return err
		}
		handle, err := pcap.OpenLive(d.iface, 65536, true, pcap.BlockForever)
		if err != nil {
			return fmt.Errorf("open capture handle: %w", err)
		}
		d.handle = handle
	}

	d.mode = mode
	return nil
}

// SetChannel tunes the radio. Only meaningful in monitor mode.
func (d *PcapDriver) SetChannel(ch int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.run("iw", "dev", d.iface, "set", "channel", strconv.Itoa(ch)); err != nil {
		return err
	}
	d.channel = ch
	return nil
}

func (d *PcapDriver) Channel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel
}

// SetPromiscuous starts or stops the receive loop feeding handler.
func (d *PcapDriver) SetPromiscuous(enabled bool, handler ports.FrameHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopRxLocked()
	if !enabled {
		return nil
	}
	if d.handle == nil {
		return fmt.Errorf("promiscuous capture requires monitor mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.rxCancel = cancel
	d.rxDone = done

	source := gopacket.NewPacketSource(d.handle, d.handle.LinkType())
	source.NoCopy = true
	packets := source.Packets()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-packets:
				if !ok {
					return
				}
				d.deliver(pkt, handler)
			}
		}
	}()
	return nil
}

// deliver strips the radiotap header and hands the bare 802.11 frame to
// the handler together with signal and channel metadata.
func (d *PcapDriver) deliver(pkt gopacket.Packet, handler ports.FrameHandler) {
	rtLayer := pkt.Layer(layers.LayerTypeRadioTap)
	if rtLayer == nil {
		return
	}
	rt, ok := rtLayer.(*layers.RadioTap)
	if !ok {
		return
	}
	raw := rt.LayerPayload()
	if len(raw) < 2 {
		return
	}

	kind := ports.FrameMisc
	switch (raw[0] >> 2) & 0x3 {
	case 0:
		kind = ports.FrameMgmt
	case 1:
		kind = ports.FrameCtrl
	case 2:
		kind = ports.FrameData
	}

	handler(ports.RxFrame{
		Data:    raw,
		Kind:    kind,
		RSSI:    int(rt.DBMAntennaSignal),
		Channel: channelFromFreq(int(rt.ChannelFrequency)),
	})
}

func channelFromFreq(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq <= 2472:
		return (freq - 2407) / 5
	case freq >= 5000:
		return (freq - 5000) / 5
	default:
		return 0
	}
}

// MAC reads the interface hardware address.
func (d *PcapDriver) MAC() (net.HardwareAddr, error) {
	ifi, err := net.InterfaceByName(d.iface)
	if err != nil {
		return nil, err
	}
	mac := make(net.HardwareAddr, len(ifi.HardwareAddr))
	copy(mac, ifi.HardwareAddr)
	return mac, nil
}

// SetMAC spoofs the transmit identity. The link has to bounce for the
// kernel to accept the new address.
func (d *PcapDriver) SetMAC(mac net.HardwareAddr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.run("ip", "link", "set", d.iface, "down"); err != nil {
		return err
	}
	if err := d.run("ip", "link", "set", "dev", d.iface, "address", mac.String()); err != nil {
		return err
	}
	return d.run("ip", "link", "set", d.iface, "up")
}

// Transmit injects one raw 802.11 frame with a minimal radiotap header.
func (d *PcapDriver) Transmit(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handle == nil {
		return fmt.Errorf("transmit requires monitor mode")
	}

	radiotap := &layers.RadioTap{
		Present: layers.RadioTapPresentRate,
		Rate:    5,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, radiotap, gopacket.Payload(frame)); err != nil {
		return fmt.Errorf("serialize injection frame: %w", err)
	}
	return d.handle.WritePacketData(buf.Bytes())
}

// Scan runs an active station-mode scan via iw and parses the BSS list.
func (d *PcapDriver) Scan(ctx context.Context) ([]domain.ScanResult, error) {
	cmd := execCommandContext(ctx, "iw", "dev", d.iface, "scan")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("iw scan: %w", err)
	}
	return parseScanOutput(out), nil
}

// parseScanOutput extracts SSID/BSSID/signal/channel/security from
// `iw dev <iface> scan` output.
func parseScanOutput(out []byte) []domain.ScanResult {
	var results []domain.ScanResult
	var cur *domain.ScanResult

	flush := func() {
		if cur != nil {
			if cur.Encryption == "" {
				cur.Encryption = "OPEN"
			}
			results = append(results, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "BSS "):
			flush()
			mac := strings.TrimPrefix(line, "BSS ")
			if i := strings.IndexAny(mac, "( "); i > 0 {
				mac = mac[:i]
			}
			cur = &domain.ScanResult{BSSID: strings.ToLower(mac)}
		case cur == nil:
			continue
		case strings.HasPrefix(line, "SSID:"):
			cur.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case strings.HasPrefix(line, "signal:"):
			val := strings.Fields(strings.TrimPrefix(line, "signal:"))
			if len(val) > 0 {
				if f, err := strconv.ParseFloat(val[0], 64); err == nil {
					cur.RSSI = int(f)
				}
			}
		case strings.HasPrefix(line, "DS Parameter set: channel"):
			if ch, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "DS Parameter set: channel"))); err == nil {
				cur.Channel = ch
			}
		case strings.HasPrefix(line, "freq:"):
			if cur.Channel == 0 {
				if f, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "freq:"))); err == nil {
					cur.Channel = channelFromFreq(f)
				}
			}
		case strings.HasPrefix(line, "RSN:"):
			cur.Encryption = "WPA2"
		case strings.HasPrefix(line, "WPA:"):
			// The capability Privacy bit may have marked this WEP already.
			if cur.Encryption != "WPA2" {
				cur.Encryption = "WPA"
			}
		case strings.Contains(line, "Privacy") && cur.Encryption == "":
			cur.Encryption = "WEP"
		}
	}
	flush()
	return results
}

func (d *PcapDriver) stopRxLocked() {
	if d.rxCancel == nil {
		return
	}
	d.rxCancel()
	<-d.rxDone
	d.rxCancel = nil
	d.rxDone = nil
}

func (d *PcapDriver) closeHandleLocked() {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}
}

// Close releases the capture handle and stops the receive loop.
func (d *PcapDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopRxLocked()
	d.closeHandleLocked()
	log.Printf("Radio driver for %s closed", d.iface)
	return nil
}
