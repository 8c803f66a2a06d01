package session

import (
	"testing"
	"time"
)

func nyTime(hour int) time.Time {
	return time.Date(2026, 8, 28, hour, 30, 0, 0, newYork)
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		hour int
		want Session
	}{
		{0, Asian},
		{7, Asian},
		{8, London},
		{15, London},
		{16, NewYork},
		{23, NewYork},
	}
	for _, tt := range tests {
		if got := Current(nyTime(tt.hour)); got != tt.want {
			t.Errorf("Current(%02d:30 NY) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestCurrent_ConvertsFromUTC(t *testing.T) {
	// 03:30 NY expressed in UTC must still classify as Asian.
	utc := nyTime(3).UTC()
	if got := Current(utc); got != Asian {
		t.Errorf("Current(%v) = %s, want Asian", utc, got)
	}
}

func TestTracker_Roll(t *testing.T) {
	tr := NewTracker(nyTime(7))

	if ended, ok := tr.Roll(nyTime(7).Add(10 * time.Minute)); ok {
		t.Errorf("rollover reported inside one session: ended=%s", ended)
	}

	ended, ok := tr.Roll(nyTime(9))
	if !ok || ended != Asian {
		t.Errorf("Roll into London = (%s, %v), want (Asian, true)", ended, ok)
	}

	// Same session again: no further rollover until the next boundary.
	if ended, ok := tr.Roll(nyTime(10)); ok {
		t.Errorf("duplicate rollover reported: ended=%s", ended)
	}

	ended, ok = tr.Roll(nyTime(17))
	if !ok || ended != London {
		t.Errorf("Roll into NewYork = (%s, %v), want (London, true)", ended, ok)
	}
}
