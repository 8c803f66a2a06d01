package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Direction of a trade signal.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// RankMap maps each scored currency to its strength rank in [−7,+7].
// Rank 0 is disallowed; midpoint ties are nudged to ±1.
type RankMap map[Currency]int

// Sorted returns the currencies ordered strongest→weakest.
func (m RankMap) Sorted() []Currency {
	out := make([]Currency, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j] // stable display order for equal ranks
	})
	return out
}

// BreakoutEvent records a structural level break for one pair.
// Produced fresh on every evaluation, never persisted.
type BreakoutEvent struct {
	Pair      Pair        `json:"pair"`
	Level     float64     `json:"level"`
	Direction Direction   `json:"direction"`
	Timeframe Granularity `json:"timeframe"`
	Strategy  string      `json:"strategy"` // which detection policy confirmed
}

// TradeSignal is a fully specified directional trade notification.
// Never mutated after creation; removal from the active book is handled
// by external trade-lifecycle management.
type TradeSignal struct {
	ID           string    `json:"id"`
	Pair         Pair      `json:"pair"`
	Direction    Direction `json:"direction"`
	Entry        float64   `json:"entry"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfits  []float64 `json:"take_profits"` // ordered nearest→furthest
	StrengthDiff int       `json:"strength_diff"`

	// Diagnostics carried into the notification text.
	H1RSI    float64 `json:"h1_rsi"`
	M15RSI   float64 `json:"m15_rsi"`
	ATR      float64 `json:"atr"`
	Scenario string  `json:"scenario"` // breakout strategy that confirmed

	CreatedAt time.Time `json:"created_at"`
}

// JSON returns the JSON-encoded signal (errors ignored for hot-path usage).
func (s *TradeSignal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
