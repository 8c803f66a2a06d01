package breakout

import (
	"context"

	"forex-signalsv1/internal/model"
)

// CurrentBar is the degenerate whipsaw detector: the latest close printing at
// or beyond its own bar's high/low. Fires on almost any strongly directional
// bar; kept as a selectable policy, not a default.
type CurrentBar struct{}

func (CurrentBar) Name() string { return "current_bar" }

func (CurrentBar) Detect(_ context.Context, pair model.Pair, candles []model.Candle, tf model.Granularity) *model.BreakoutEvent {
	if len(candles) < 1 {
		return nil
	}
	last := candles[len(candles)-1]
	switch {
	case last.Close >= last.High:
		return event(pair, last.High, model.DirectionBuy, tf, "current_bar")
	case last.Close <= last.Low:
		return event(pair, last.Low, model.DirectionSell, tf, "current_bar")
	}
	return nil
}

// PriorBar fires when the latest close breaks the immediately preceding
// bar's high or low.
type PriorBar struct{}

func (PriorBar) Name() string { return "prior_bar" }

func (PriorBar) Detect(_ context.Context, pair model.Pair, candles []model.Candle, tf model.Granularity) *model.BreakoutEvent {
	if len(candles) < 2 {
		return nil
	}
	prev := candles[len(candles)-2]
	last := candles[len(candles)-1]
	switch {
	case last.Close > prev.High:
		return event(pair, prev.High, model.DirectionBuy, tf, "prior_bar")
	case last.Close < prev.Low:
		return event(pair, prev.Low, model.DirectionSell, tf, "prior_bar")
	}
	return nil
}
