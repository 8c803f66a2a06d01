// Package breakout determines whether price action has broken a structurally
// significant level on one or more timeframes.
//
// Several mutually independent detection policies exist; each is a named
// Strategy so callers choose explicitly instead of inheriting one implicit
// breakout rule. Absence of data or insufficient history yields "no
// breakout", never an error.
package breakout

import (
	"context"

	"forex-signalsv1/internal/model"
)

// Strategy is one named breakout detection policy.
type Strategy interface {
	// Name identifies the policy in signal diagnostics ("scenario").
	Name() string

	// Detect inspects an intraday candle sequence (oldest→newest) and
	// returns the broken level and direction, or nil for no breakout.
	Detect(ctx context.Context, pair model.Pair, candles []model.Candle, tf model.Granularity) *model.BreakoutEvent
}

// Detector runs an ordered list of strategies and reports the first
// confirmation. Which strategy confirmed is recorded on the event.
type Detector struct {
	strategies []Strategy
}

// NewDetector creates a detector over the given strategies, consulted in order.
func NewDetector(strategies ...Strategy) *Detector {
	return &Detector{strategies: strategies}
}

// Detect returns the first confirming strategy's event, or nil.
func (d *Detector) Detect(ctx context.Context, pair model.Pair, candles []model.Candle, tf model.Granularity) *model.BreakoutEvent {
	for _, s := range d.strategies {
		if ev := s.Detect(ctx, pair, candles, tf); ev != nil {
			return ev
		}
	}
	return nil
}

func event(pair model.Pair, level float64, dir model.Direction, tf model.Granularity, strategy string) *model.BreakoutEvent {
	return &model.BreakoutEvent{
		Pair:      pair,
		Level:     level,
		Direction: dir,
		Timeframe: tf,
		Strategy:  strategy,
	}
}
