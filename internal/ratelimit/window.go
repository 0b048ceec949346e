// Package ratelimit holds the counting-window quota used for connection
// attempts, concurrent admission and per-session message rates.
package ratelimit

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Limit allows at most Cap events per Window. Cap <= 0 disables the limit.
type Limit struct {
	Window time.Duration
	Cap    int
}

func (l Limit) Disabled() bool { return l.Cap <= 0 }

// Window counts events since start. A fresh window opens on the first event
// after the previous one elapsed.
//
// Window is not safe for concurrent use; callers own it or guard it.
type Window struct {
	start time.Time
	count int
}

// Hit records an event at now and reports the resulting count and whether the
// event is within the limit. A rejected event is not counted.
func (w *Window) Hit(now time.Time, l Limit) (int, bool) {
	if l.Disabled() {
		return w.count, true
	}
	if w.Expired(now, l) {
		w.start = now
		w.count = 1
		return w.count, true
	}
	if w.count >= l.Cap {
		return w.count, false
	}
	w.count++
	return w.count, true
}

// Expired reports whether the next Hit would open a fresh window.
func (w *Window) Expired(now time.Time, l Limit) bool {
	return w.count == 0 || now.Sub(w.start) >= l.Window
}

func (w *Window) Count() int { return w.count }
