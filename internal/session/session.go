// Package session classifies wall-clock time into forex trading sessions.
//
// Sessions follow New York local time: 00:00–08:00 Asian, 08:00–16:00 London,
// 16:00–24:00 New York. Session names double as cooldown categories, so a
// rollover lets the evaluator prune the ended session's keys.
package session

import (
	"sync"
	"time"
)

// Session names one of the three trading sessions.
type Session string

const (
	Asian   Session = "Asian"
	London  Session = "London"
	NewYork Session = "NewYork"
)

// newYork is the reference zone. DST-aware when tzdata is available,
// otherwise a fixed UTC−5 approximation.
var newYork = func() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}()

// Current returns the session active at t.
func Current(t time.Time) Session {
	hour := t.In(newYork).Hour()
	switch {
	case hour < 8:
		return Asian
	case hour < 16:
		return London
	default:
		return NewYork
	}
}

// Tracker detects session rollovers between evaluation ticks.
type Tracker struct {
	mu   sync.Mutex
	last Session
}

// NewTracker starts tracking from the session active at now.
func NewTracker(now time.Time) *Tracker {
	return &Tracker{last: Current(now)}
}

// Roll returns the session that just ended, if the session changed since the
// previous call. ok is false while the session is unchanged.
func (tr *Tracker) Roll(now time.Time) (ended Session, ok bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	cur := Current(now)
	if cur == tr.last {
		return "", false
	}
	ended = tr.last
	tr.last = cur
	return ended, true
}
