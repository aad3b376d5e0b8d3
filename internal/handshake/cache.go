// Package handshake correlates EAPOL Message 1 and Message 2 frames into
// complete WPA/WPA2 handshake records.
package handshake

import (
	"bytes"
	"net"
	"sync"
	"time"
)

const (
	// CacheSize is the fixed number of in-flight Message-1 slots.
	CacheSize = 16
	// EntryTimeout is how long a cached Message 1 stays usable. A slot
	// past this age counts as free for reuse.
	EntryTimeout = 10 * time.Second
)

// Entry is one in-flight Message-1 capture awaiting its Message 2.
type Entry struct {
	BSSID          [6]byte
	Station        [6]byte
	ANonce         [32]byte
	ReplayCounter  [8]byte
	KeyDescType    uint8
	KeyDescVersion uint8
	LastSeen       time.Time
	Valid          bool
}

// Cache is the bounded table of in-flight Message-1 captures, keyed by
// (BSSID, station). It has its own mutex so handshake correlation in the
// receive callback is never blocked behind a radio-mode transition.
type Cache struct {
	mu      sync.Mutex
	entries [CacheSize]Entry

	// now is swapped in tests to drive eviction deterministically.
	now func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

func macEqual(a [6]byte, b net.HardwareAddr) bool {
	return bytes.Equal(a[:], b)
}

// Upsert records a Message 1 for (bssid, station). An existing valid entry
// for the pair is overwritten in place, keeping the invariant of at most
// one valid entry per pair. Otherwise an invalid or expired slot is
// reused; with none free, the oldest-LastSeen slot is evicted.
func (c *Cache) Upsert(bssid, station net.HardwareAddr, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	slot := -1
	oldest := 0

	for i := range c.entries {
		cur := &c.entries[i]
		if cur.Valid && macEqual(cur.BSSID, bssid) && macEqual(cur.Station, station) {
			slot = i
			break
		}
		if !cur.Valid || now.Sub(cur.LastSeen) > EntryTimeout {
			if slot == -1 {
				slot = i
			}
			continue
		}
		if cur.LastSeen.Before(c.entries[oldest].LastSeen) || !c.entries[oldest].Valid {
			oldest = i
		}
	}
	if slot == -1 {
		slot = oldest
	}

	copy(e.BSSID[:], bssid)
	copy(e.Station[:], station)
	e.LastSeen = now
	e.Valid = true
	c.entries[slot] = e
}

// Take looks up a valid, unexpired entry for (bssid, station) and
// invalidates it in the same critical section, so a replayed Message 2
// can never complete the same handshake twice.
func (c *Cache) Take(bssid, station net.HardwareAddr) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for i := range c.entries {
		cur := &c.entries[i]
		if !cur.Valid || !macEqual(cur.BSSID, bssid) || !macEqual(cur.Station, station) {
			continue
		}
		if now.Sub(cur.LastSeen) > EntryTimeout {
			cur.Valid = false
			return Entry{}, false
		}
		e := *cur
		cur.Valid = false
		return e, true
	}
	return Entry{}, false
}

// Len reports the number of valid entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.entries {
		if c.entries[i].Valid {
			n++
		}
	}
	return n
}

// Clear invalidates every slot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i].Valid = false
	}
}
