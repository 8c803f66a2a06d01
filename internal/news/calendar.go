// Package news watches the economic calendar and alerts when a High or
// Medium impact event is imminent for a currency referenced by an active
// trade. The calendar never affects signal decisions — it only produces
// informational alerts.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultFeedURL is the ForexFactory weekly calendar XML.
const DefaultFeedURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.xml"

// Event is one economic calendar entry.
type Event struct {
	Title    string
	Currency string
	Impact   string // High / Medium / Low / Holiday
	Time     time.Time
}

// Key uniquely identifies an event for alert dedup.
func (e Event) Key() string {
	return fmt.Sprintf("%s|%s|%d", e.Currency, e.Title, e.Time.Unix())
}

// Fetcher downloads and parses the weekly calendar feed.
type Fetcher struct {
	url    string
	client *http.Client
}

// NewFetcher creates a calendar fetcher. url may be empty for the default feed.
func NewFetcher(url string) *Fetcher {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Fetcher{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type xmlCalendar struct {
	Events []xmlEvent `xml:"event"`
}

type xmlEvent struct {
	Title   string `xml:"title"`
	Country string `xml:"country"`
	Date    string `xml:"date"`   // "08-28-2026"
	Time    string `xml:"time"`   // "2:30am", "All Day", "Tentative"
	Impact  string `xml:"impact"` // High / Medium / Low / Holiday
}

// Fetch returns this week's parsed events. Entries without a concrete
// timestamp ("All Day", "Tentative") are skipped.
func (f *Fetcher) Fetch(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("news: create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news: calendar status %d", resp.StatusCode)
	}

	var cal xmlCalendar
	if err := xml.NewDecoder(resp.Body).Decode(&cal); err != nil {
		return nil, fmt.Errorf("news: decode calendar: %w", err)
	}
	return ParseEvents(cal.Events), nil
}

// ParseEvents converts raw feed entries to Events, dropping unparseable ones.
func ParseEvents(raw []xmlEvent) []Event {
	out := make([]Event, 0, len(raw))
	for _, e := range raw {
		ts, err := parseEventTime(e.Date, e.Time)
		if err != nil {
			continue
		}
		out = append(out, Event{
			Title:    strings.TrimSpace(e.Title),
			Currency: strings.TrimSpace(e.Country),
			Impact:   strings.TrimSpace(e.Impact),
			Time:     ts,
		})
	}
	return out
}

// parseEventTime combines the feed's date and clock fields. Feed times are GMT.
func parseEventTime(date, clock string) (time.Time, error) {
	return time.Parse("01-02-2006 3:04pm", date+" "+strings.ToLower(clock))
}
