package news

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"forex-signalsv1/internal/model"
	"forex-signalsv1/internal/notification"
)

// watchedImpacts are the impact levels worth an alert.
var watchedImpacts = map[string]bool{"High": true, "Medium": true}

// TradeBook is the read path into the active-trades book.
type TradeBook interface {
	Currencies() map[model.Currency]bool
}

// AlertLog persists which events have already been alerted.
type AlertLog interface {
	MarkEventAlerted(eventKey string, at time.Time) error
	LoadAlertedEvents() (map[string]time.Time, error)
	PruneAlertedEvents(cutoff time.Time) error
}

// Monitor periodically matches upcoming calendar events against the
// currencies of open trades and sends one alert per event.
type Monitor struct {
	fetcher  *Fetcher
	book     TradeBook
	notifier notification.Notifier
	alertLog AlertLog // nil → in-memory dedup only
	horizon  time.Duration

	mu      sync.Mutex
	alerted map[string]time.Time
}

// NewMonitor creates a monitor alerting on events within horizon of now.
func NewMonitor(fetcher *Fetcher, book TradeBook, notifier notification.Notifier, alertLog AlertLog, horizon time.Duration) *Monitor {
	m := &Monitor{
		fetcher:  fetcher,
		book:     book,
		notifier: notifier,
		alertLog: alertLog,
		horizon:  horizon,
		alerted:  make(map[string]time.Time),
	}
	if alertLog != nil {
		persisted, err := alertLog.LoadAlertedEvents()
		if err != nil {
			log.Printf("[news] load alerted events: %v", err)
		} else {
			m.alerted = persisted
		}
	}
	return m
}

// Check runs one pass: fetch, filter, alert. Returns the number of alerts
// sent. Fetch failures are logged and skipped — the next pass retries.
func (m *Monitor) Check(ctx context.Context, now time.Time) int {
	currencies := m.book.Currencies()
	if len(currencies) == 0 {
		return 0
	}

	events, err := m.fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("[news] %v", err)
		return 0
	}

	sent := 0
	for _, ev := range events {
		if !m.relevant(ev, currencies, now) {
			continue
		}
		if !m.claim(ev, now) {
			continue
		}
		msg := fmt.Sprintf("⚠️ News Alert!\n%s - %s (%s)\nTime: %s",
			ev.Currency, ev.Title, ev.Impact, ev.Time.Format("2006-01-02 15:04 UTC"))
		if err := m.notifier.Send(ctx, msg); err != nil {
			log.Printf("[news] notify: %v", err)
			continue
		}
		sent++
	}
	return sent
}

// Prune drops alert records older than cutoff (stale calendar weeks).
func (m *Monitor) Prune(cutoff time.Time) {
	m.mu.Lock()
	for k, at := range m.alerted {
		if at.Before(cutoff) {
			delete(m.alerted, k)
		}
	}
	m.mu.Unlock()

	if m.alertLog != nil {
		if err := m.alertLog.PruneAlertedEvents(cutoff); err != nil {
			log.Printf("[news] prune alerted events: %v", err)
		}
	}
}

func (m *Monitor) relevant(ev Event, currencies map[model.Currency]bool, now time.Time) bool {
	if !watchedImpacts[ev.Impact] {
		return false
	}
	if !currencies[model.Currency(ev.Currency)] {
		return false
	}
	until := ev.Time.Sub(now)
	return until >= 0 && until <= m.horizon
}

// claim marks the event alerted exactly once.
func (m *Monitor) claim(ev Event, now time.Time) bool {
	key := ev.Key()
	m.mu.Lock()
	if _, dup := m.alerted[key]; dup {
		m.mu.Unlock()
		return false
	}
	m.alerted[key] = now
	m.mu.Unlock()

	if m.alertLog != nil {
		if err := m.alertLog.MarkEventAlerted(key, now); err != nil {
			log.Printf("[news] persist alerted event: %v", err)
		}
	}
	return true
}
