// Package events delivers capture events as JSON objects, one per
// line, to a byte stream such as a serial port or stdout.
package events

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/chimera-red/chimera/internal/core/ports"
)

// JSONLinePublisher writes each event as a single JSON line. Writes are
// serialized so events from concurrent sources never interleave.
type JSONLinePublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinePublisher wraps w. The writer is retained for the lifetime
// of the publisher.
func NewJSONLinePublisher(w io.Writer) *JSONLinePublisher {
	return &JSONLinePublisher{enc: json.NewEncoder(w)}
}

func (p *JSONLinePublisher) Publish(event map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(event); err != nil {
		log.Printf("Event publish failed: %v", err)
	}
}

// Fanout replicates each event to every wrapped publisher.
type Fanout struct {
	sinks []ports.EventPublisher
}

func NewFanout(sinks ...ports.EventPublisher) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(event map[string]interface{}) {
	for _, s := range f.sinks {
		s.Publish(event)
	}
}

var (
	_ ports.EventPublisher = (*JSONLinePublisher)(nil)
	_ ports.EventPublisher = (*Fanout)(nil)
)
