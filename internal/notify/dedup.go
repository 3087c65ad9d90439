package notify

import (
	"sync"
	"time"
)

// Dedup suppresses repeat alerts for the same opportunity within a TTL
// window. Seen only reads; keys are recorded with Mark once an alert has
// been delivered. It is safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time // opportunity id -> last alerted
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats a key as a duplicate if it was marked
// within ttl. A non-positive ttl disables suppression.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen reports whether key was marked within the TTL window. Expired entries
// are swept on every call.
func (d *Dedup) Seen(key string) bool {
	if d.ttl <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, k)
		}
	}
	_, ok := d.seen[key]
	return ok
}

// Mark records keys as alerted now.
func (d *Dedup) Mark(keys ...string) {
	if d.ttl <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for _, k := range keys {
		d.seen[k] = now
	}
}
