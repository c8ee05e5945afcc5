// Package dedup lascia passare una chiave una volta per finestra e conta le
// ripetizioni soppresse nel frattempo.
package dedup

import (
	"sync"
	"time"
)

type entry struct {
	until  time.Time
	hidden int
}

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]*entry
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if max <= 0 {
		max = 256
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]*entry), now: time.Now}
}

// Allow reports whether key may pass now. When it does, hidden is the number of
// repeats swallowed since the previous pass.
func (d *Deduper) Allow(key string) (ok bool, hidden int) {
	if key == "" {
		return true, 0
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	e, found := d.seen[key]
	if found && now.Before(e.until) {
		e.hidden++
		return false, 0
	}
	if found {
		hidden = e.hidden
	}
	d.seen[key] = &entry{until: now.Add(d.ttl)}
	d.evict(now)
	return true, hidden
}

// evict toglie le chiavi scadute quando la mappa supera max.
func (d *Deduper) evict(now time.Time) {
	if len(d.seen) <= d.max {
		return
	}
	for k, e := range d.seen {
		if now.After(e.until) {
			delete(d.seen, k)
		}
		if len(d.seen) <= d.max {
			return
		}
	}
}
