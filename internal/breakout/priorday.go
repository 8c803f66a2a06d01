package breakout

import (
	"context"
	"log"

	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/model"
)

// PriorDay fires when an intraday close breaks the previous completed daily
// bar's high or low. With ScanBars == 0 only the latest intraday close is
// checked; with ScanBars == N the last N intraday closes are scanned, i.e.
// "the break happened sometime today".
type PriorDay struct {
	source   candles.Source
	scanBars int
}

// NewPriorDay creates the prior-day strategy. scanBars <= 0 checks only the
// most recent intraday bar.
func NewPriorDay(source candles.Source, scanBars int) *PriorDay {
	return &PriorDay{source: source, scanBars: scanBars}
}

func (p *PriorDay) Name() string { return "prior_day" }

func (p *PriorDay) Detect(ctx context.Context, pair model.Pair, cs []model.Candle, tf model.Granularity) *model.BreakoutEvent {
	if len(cs) == 0 {
		return nil
	}

	day, ok := p.previousDaily(ctx, pair)
	if !ok {
		return nil
	}

	window := cs[len(cs)-1:]
	if p.scanBars > 0 {
		start := len(cs) - p.scanBars
		if start < 0 {
			start = 0
		}
		window = cs[start:]
	}

	// Scan newest→oldest so the freshest break wins.
	for i := len(window) - 1; i >= 0; i-- {
		switch {
		case window[i].Close > day.High:
			return event(pair, day.High, model.DirectionBuy, tf, "prior_day")
		case window[i].Close < day.Low:
			return event(pair, day.Low, model.DirectionSell, tf, "prior_day")
		}
	}
	return nil
}

// previousDaily returns the most recent completed daily bar.
func (p *PriorDay) previousDaily(ctx context.Context, pair model.Pair) (model.Candle, bool) {
	daily, err := p.source.Recent(ctx, pair, model.GranD1, 3)
	if err != nil {
		log.Printf("[breakout] prior_day: daily candles for %s: %v", pair, err)
		return model.Candle{}, false
	}
	for i := len(daily) - 1; i >= 0; i-- {
		if daily[i].Complete {
			return daily[i], true
		}
	}
	return model.Candle{}, false
}
