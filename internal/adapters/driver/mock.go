package driver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
)

// MockDriver is an in-memory RadioDriver for tests. It records every
// state change and transmitted frame, lets tests inject received frames
// into the registered handler, and can be told to fail specific calls.
type MockDriver struct {
	mu sync.Mutex

	mode    ports.DriverMode
	channel int
	mac     net.HardwareAddr
	promisc bool
	handler ports.FrameHandler

	Transmitted [][]byte
	ChannelLog  []int
	ModeLog     []ports.DriverMode
	ScanResults []domain.ScanResult

	FailSetMode     bool
	FailSetChannel  bool
	FailSetMAC      bool
	FailTransmit    bool
	FailPromiscuous bool
}

// NewMockDriver returns a mock with the given hardware address.
func NewMockDriver(mac net.HardwareAddr) *MockDriver {
	m := &MockDriver{mode: ports.DriverOff, channel: 1}
	m.mac = make(net.HardwareAddr, len(mac))
	copy(m.mac, mac)
	return m
}

func (m *MockDriver) SetMode(_ context.Context, mode ports.DriverMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetMode {
		return fmt.Errorf("mock: SetMode failure")
	}
	m.mode = mode
	m.ModeLog = append(m.ModeLog, mode)
	return nil
}

func (m *MockDriver) Mode() ports.DriverMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *MockDriver) SetChannel(ch int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetChannel {
		return fmt.Errorf("mock: SetChannel failure")
	}
	m.channel = ch
	m.ChannelLog = append(m.ChannelLog, ch)
	return nil
}

func (m *MockDriver) Channel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel
}

func (m *MockDriver) SetPromiscuous(enabled bool, handler ports.FrameHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPromiscuous {
		return fmt.Errorf("mock: SetPromiscuous failure")
	}
	m.promisc = enabled
	if enabled {
		m.handler = handler
	} else {
		m.handler = nil
	}
	return nil
}

func (m *MockDriver) Promiscuous() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promisc
}

func (m *MockDriver) MAC() (net.HardwareAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mac := make(net.HardwareAddr, len(m.mac))
	copy(mac, m.mac)
	return mac, nil
}

func (m *MockDriver) SetMAC(mac net.HardwareAddr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetMAC {
		return fmt.Errorf("mock: SetMAC failure")
	}
	m.mac = make(net.HardwareAddr, len(mac))
	copy(m.mac, mac)
	return nil
}

func (m *MockDriver) Transmit(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTransmit {
		return fmt.Errorf("mock: Transmit failure")
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	m.Transmitted = append(m.Transmitted, cp)
	return nil
}

func (m *MockDriver) Scan(_ context.Context) ([]domain.ScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScanResult(nil), m.ScanResults...), nil
}

func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promisc = false
	m.handler = nil
	m.mode = ports.DriverOff
	return nil
}

// InjectFrame delivers a frame to the registered handler as if it had
// been received over the air. Returns false if no handler is attached.
func (m *MockDriver) InjectFrame(frame ports.RxFrame) bool {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return false
	}
	h(frame)
	return true
}

// TransmitCount reports how many frames have been injected so far.
func (m *MockDriver) TransmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Transmitted)
}
