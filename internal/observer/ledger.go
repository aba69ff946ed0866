package observer

import (
	"sync"
	"time"
)

// Ledger maps a device codename to the timestamp of the last build announced
// for it. The observer loop is the only writer during cycles; the admin
// start-date reset and status reads run concurrently, so access is guarded by
// one mutex. Only map operations happen under the lock, never I/O.
type Ledger struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]time.Time)}
}

// Record unconditionally overwrites the entry for device.
func (l *Ledger) Record(device string, ts time.Time) {
	l.mu.Lock()
	l.last[device] = ts
	l.mu.Unlock()
}

// Last returns the last announced timestamp for device. A missing entry is a
// valid result: the device has never been announced (builds are always newer).
func (l *Ledger) Last(device string) (time.Time, bool) {
	l.mu.RLock()
	ts, ok := l.last[device]
	l.mu.RUnlock()
	return ts, ok
}

// SetAll sets the entry of every listed device to ts. Used both for seeding
// at construction and for the admin start-date reset.
func (l *Ledger) SetAll(devices []string, ts time.Time) {
	l.mu.Lock()
	for _, d := range devices {
		l.last[d] = ts
	}
	l.mu.Unlock()
}

// Snapshot copies the current entries. The copy may interleave with an
// in-flight cycle's updates; per-device entries are always consistent.
func (l *Ledger) Snapshot() map[string]time.Time {
	l.mu.RLock()
	out := make(map[string]time.Time, len(l.last))
	for d, ts := range l.last {
		out[d] = ts
	}
	l.mu.RUnlock()
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.last)
}
