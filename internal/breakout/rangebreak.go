package breakout

import (
	"context"
	"log"

	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/indicator"
	"forex-signalsv1/internal/model"
)

// Range fires when the latest close leaves the min/max envelope of the last
// Lookback bars' highs/lows — swing-based support/resistance. When a trend
// filter is configured, confirmations must also align with the long EMA on
// daily bars (close above the EMA for buys, below for sells).
type Range struct {
	lookback int

	// trend filter, nil source disables it
	source    candles.Source
	emaPeriod int
}

// NewRange creates the range strategy over the last lookback bars,
// no trend filter.
func NewRange(lookback int) *Range {
	return &Range{lookback: lookback}
}

// NewRangeWithTrendFilter additionally gates confirmations on an emaPeriod
// EMA computed from daily closes.
func NewRangeWithTrendFilter(lookback int, source candles.Source, emaPeriod int) *Range {
	return &Range{lookback: lookback, source: source, emaPeriod: emaPeriod}
}

func (r *Range) Name() string { return "range" }

func (r *Range) Detect(ctx context.Context, pair model.Pair, cs []model.Candle, tf model.Granularity) *model.BreakoutEvent {
	// Envelope excludes the latest bar — it is the one doing the breaking.
	if len(cs) < r.lookback+1 {
		return nil
	}
	window := cs[len(cs)-1-r.lookback : len(cs)-1]
	last := cs[len(cs)-1]

	hi, lo := window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}

	var ev *model.BreakoutEvent
	switch {
	case last.Close > hi:
		ev = event(pair, hi, model.DirectionBuy, tf, "range")
	case last.Close < lo:
		ev = event(pair, lo, model.DirectionSell, tf, "range")
	default:
		return nil
	}

	if r.source != nil && !r.trendAligned(ctx, pair, last.Close, ev.Direction) {
		return nil
	}
	return ev
}

// trendAligned checks the daily EMA filter. Insufficient daily history
// counts as unaligned: an unverifiable trend never confirms a breakout.
func (r *Range) trendAligned(ctx context.Context, pair model.Pair, close float64, dir model.Direction) bool {
	daily, err := r.source.Recent(ctx, pair, model.GranD1, r.emaPeriod+10)
	if err != nil {
		log.Printf("[breakout] range: daily candles for %s: %v", pair, err)
		return false
	}
	closes := make([]float64, len(daily))
	for i, c := range daily {
		closes[i] = c.Close
	}
	ema := indicator.EMA(closes, r.emaPeriod)
	if len(ema) == 0 {
		return false
	}
	trend := ema[len(ema)-1]
	if dir == model.DirectionBuy {
		return close > trend
	}
	return close < trend
}
