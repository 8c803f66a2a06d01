// Package strength converts per-pair indicator readings into a per-currency
// normalized strength rank.
//
// Every allow-listed pair contributes a weighted composite score to its base
// currency and the negated score to its quote currency. Per-currency averages
// are sorted and mapped linearly onto the [−7,+7] rank scale.
package strength

import (
	"context"
	"log"
	"math"
	"sort"

	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/indicator"
	"forex-signalsv1/internal/model"
)

const (
	maxRank = 7
	minRank = -7
)

// Weights are the composite score coefficients. They are tunable but the
// contribution model is fixed: price change, RSI deviation from 50, EMA
// slope, ATR.
type Weights struct {
	Price float64
	RSI   float64
	EMA   float64
	ATR   float64
}

// DefaultWeights is the 0.4/0.3/0.2/0.1 split.
var DefaultWeights = Weights{Price: 0.4, RSI: 0.3, EMA: 0.2, ATR: 0.1}

// Config tunes the scoring window and indicator periods.
type Config struct {
	Granularity model.Granularity // scoring timeframe, default H4
	Window      int               // candles per pair, default 20
	RSIPeriod   int
	EMAPeriod   int
	ATRPeriod   int
	Weights     Weights
}

// DefaultConfig returns the standard H4×20 scoring configuration.
func DefaultConfig() Config {
	return Config{
		Granularity: model.GranH4,
		Window:      20,
		RSIPeriod:   14,
		EMAPeriod:   10,
		ATRPeriod:   14,
		Weights:     DefaultWeights,
	}
}

// Engine computes currency strength ranks from candle data.
type Engine struct {
	source candles.Source
	cfg    Config
}

// NewEngine creates a strength engine over the given candle source.
func NewEngine(source candles.Source, cfg Config) *Engine {
	return &Engine{source: source, cfg: cfg}
}

// ComputeRanks scores every pair and returns the rank map. Pairs with missing
// data or untracked currencies are skipped silently; if fewer than two
// currencies end up scored the map is empty, which callers must treat as
// "no opinion" rather than retrying immediately.
func (e *Engine) ComputeRanks(ctx context.Context, pairs []model.Pair) model.RankMap {
	contributions := make(map[model.Currency][]float64, len(model.TrackedCurrencies))

	for _, pair := range pairs {
		if !model.IsTracked(pair.Base) || !model.IsTracked(pair.Quote) {
			log.Printf("[strength] skipping pair with untracked currency: %s", pair)
			continue
		}

		cs, err := e.source.Recent(ctx, pair, e.cfg.Granularity, e.cfg.Window)
		if err != nil || len(cs) == 0 {
			if err != nil {
				log.Printf("[strength] no candles for %s: %v", pair, err)
			}
			continue
		}

		score, ok := e.score(cs)
		if !ok {
			continue
		}
		contributions[pair.Base] = append(contributions[pair.Base], score)
		contributions[pair.Quote] = append(contributions[pair.Quote], -score)
	}

	return rankize(average(contributions))
}

// score computes the weighted composite for one pair's candle window.
func (e *Engine) score(cs []model.Candle) (float64, bool) {
	if len(cs) < 2 {
		return 0, false
	}
	closes := make([]float64, len(cs))
	for i, c := range cs {
		closes[i] = c.Close
	}

	priceChange := (closes[len(closes)-1] - closes[len(closes)-2]) / closes[len(closes)-2] * 100

	rsiVal := 0.0
	if rsis := indicator.RSI(closes, e.cfg.RSIPeriod); len(rsis) > 0 {
		rsiVal = rsis[len(rsis)-1]
	}
	normRSI := (rsiVal - 50) / 50

	emaTrend := indicator.EMASlope(closes, e.cfg.EMAPeriod)
	atrVal := indicator.ATR(cs, e.cfg.ATRPeriod)

	w := e.cfg.Weights
	return w.Price*priceChange + w.RSI*normRSI*100 + w.EMA*emaTrend*100 + w.ATR*atrVal, true
}

func average(contributions map[model.Currency][]float64) map[model.Currency]float64 {
	avg := make(map[model.Currency]float64, len(contributions))
	for cur, vals := range contributions {
		if len(vals) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		avg[cur] = sum / float64(len(vals))
	}
	return avg
}

// rankize maps averaged scores onto integer ranks in [−7,+7]. Rank position
// is linearly interpolated over the score ordering; a computed rank of 0 is
// nudged to +1 for the stronger half and −1 for the weaker half.
func rankize(scores map[model.Currency]float64) model.RankMap {
	if len(scores) < 2 {
		return model.RankMap{}
	}

	type scored struct {
		cur   model.Currency
		score float64
	}
	ordered := make([]scored, 0, len(scores))
	for cur, s := range scores {
		ordered = append(ordered, scored{cur, s})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].cur < ordered[j].cur
	})

	n := len(ordered)
	ranks := make(model.RankMap, n)
	for idx, s := range ordered {
		rank := int(math.Round(float64(maxRank) - float64(idx)*float64(maxRank-minRank)/float64(n-1)))
		if rank == 0 {
			if float64(idx) < float64(n)/2 {
				rank = 1
			} else {
				rank = -1
			}
		}
		ranks[s.cur] = rank
	}
	return ranks
}
