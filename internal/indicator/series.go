// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure: they operate on ordered oldest→newest sequences and
// have no side effects. Insufficient data yields a neutral default (zero value
// or empty slice), never an error — callers must treat a neutral result as
// "no confirmation".
package indicator

import "forex-signalsv1/internal/model"

// ATR returns the average true range over the trailing period bars:
// mean of max(high−low, |high−prevClose|, |low−prevClose|).
// Returns 0 if fewer than period+1 candles are available, since consumers
// use the value as a stop/target denominator and must detect "no reading".
func ATR(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l := candles[i].High, candles[i].Low
		pc := candles[i-1].Close
		tr := h - l
		if d := abs(h - pc); d > tr {
			tr = d
		}
		if d := abs(l - pc); d > tr {
			tr = d
		}
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	return sum / float64(period)
}

// RSI returns Wilder-smoothed RSI values, one per input bar from index
// period onward. Returns nil if fewer than period+1 closes are available.
// If the average loss is zero the value is pinned to 100.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(gains)-period+1)
	out = append(out, rsiValue(avgGain, avgLoss))

	// Wilder's smoothing: avg = (prevAvg*(period-1) + sample) / period
	p := float64(period)
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(p-1) + gains[i]) / p
		avgLoss = (avgLoss*(p-1) + losses[i]) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// EMA returns the exponential moving average series seeded with a simple
// average of the first period values. The first output point is the seed,
// so len(out) == len(values)-period+1. Returns nil if len(values) < period.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	for _, v := range values[period:] {
		out = append(out, v*k+out[len(out)-1]*(1-k))
	}
	return out
}

// EMASlope returns the difference between the last two EMA points, a cheap
// trend-direction proxy. Returns 0 when fewer than two EMA points exist.
func EMASlope(values []float64, period int) float64 {
	ema := EMA(values, period)
	if len(ema) < 2 {
		return 0
	}
	return ema[len(ema)-1] - ema[len(ema)-2]
}

// SwingPoints extracts local structure from a candle sequence using a 3-bar
// window: a swing high is a high strictly greater than both neighbours, a
// swing low a low strictly less than both. First and last bars never qualify.
func SwingPoints(candles []model.Candle) (highs, lows []float64) {
	for i := 1; i < len(candles)-1; i++ {
		if candles[i].High > candles[i-1].High && candles[i].High > candles[i+1].High {
			highs = append(highs, candles[i].High)
		}
		if candles[i].Low < candles[i-1].Low && candles[i].Low < candles[i+1].Low {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
