package model

import "time"

// Granularity identifies a candle timeframe using OANDA naming.
type Granularity string

const (
	GranM15 Granularity = "M15"
	GranH1  Granularity = "H1"
	GranH4  Granularity = "H4"
	GranD1  Granularity = "D"
)

// Candle is one OHLC period of one pair at one granularity (mid prices).
// Immutable once fetched. Sequences are ordered oldest→newest.
type Candle struct {
	Pair        Pair        `json:"pair"`
	Granularity Granularity `json:"granularity"`
	TS          time.Time   `json:"ts"` // bucket start time, UTC
	Open        float64     `json:"open"`
	High        float64     `json:"high"`
	Low         float64     `json:"low"`
	Close       float64     `json:"close"`
	Complete    bool        `json:"complete"`
}
