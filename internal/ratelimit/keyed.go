package ratelimit

import "sync"

// Keyed tracks one Window per key (e.g. per source address) behind a mutex.
// Expired windows stay in the table until Sweep evicts them.
type Keyed struct {
	mu      sync.Mutex
	clock   Clock
	limit   Limit
	windows map[string]*Window
}

func NewKeyed(clock Clock, limit Limit) *Keyed {
	if clock == nil {
		clock = RealClock{}
	}
	return &Keyed{
		clock:   clock,
		limit:   limit,
		windows: make(map[string]*Window),
	}
}

// Allow records an attempt for key.
func (k *Keyed) Allow(key string) (int, bool) {
	now := k.clock.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	w, ok := k.windows[key]
	if !ok {
		w = &Window{}
		k.windows[key] = w
	}
	return w.Hit(now, k.limit)
}

// Sweep drops every window that has elapsed and returns how many were evicted.
func (k *Keyed) Sweep() int {
	now := k.clock.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	evicted := 0
	for key, w := range k.windows {
		if w.Expired(now, k.limit) {
			delete(k.windows, key)
			evicted++
		}
	}
	return evicted
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.windows)
}
