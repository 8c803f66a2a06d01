package indicator

import (
	"math"
	"testing"
	"time"

	"forex-signalsv1/internal/model"
)

func mkCandles(closes []float64, spread float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = model.Candle{
			TS:    ts.Add(time.Duration(i) * time.Hour),
			Open:  open,
			High:  c + spread,
			Low:   c - spread,
			Close: c,
		}
	}
	return out
}

func TestATR_Basic(t *testing.T) {
	// Constant spread, no gaps: TR is high-low = 2*spread every bar.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1.1000
	}
	candles := mkCandles(closes, 0.0010)

	got := ATR(candles, 14)
	want := 0.0020
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ATR = %v, want %v", got, want)
	}
}

func TestATR_InsufficientData(t *testing.T) {
	candles := mkCandles([]float64{1.1, 1.2, 1.3}, 0.001)
	if got := ATR(candles, 14); got != 0 {
		t.Errorf("ATR with short input = %v, want neutral 0", got)
	}
	if got := ATR(nil, 14); got != 0 {
		t.Errorf("ATR(nil) = %v, want 0", got)
	}
}

func TestATR_NonNegative(t *testing.T) {
	closes := []float64{1.10, 1.15, 1.05, 1.20, 1.00, 1.30, 1.10, 1.25,
		1.05, 1.15, 1.20, 1.00, 1.10, 1.30, 1.05, 1.20}
	candles := mkCandles(closes, 0.01)
	if got := ATR(candles, 14); got < 0 {
		t.Errorf("ATR = %v, want >= 0", got)
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{1.10, 1.15, 1.05, 1.20, 1.00, 1.30, 1.10, 1.25,
		1.05, 1.15, 1.20, 1.00, 1.10, 1.30, 1.05, 1.20, 1.12, 1.18}
	for _, v := range RSI(closes, 14) {
		if v < 0 || v > 100 {
			t.Errorf("RSI value %v outside [0,100]", v)
		}
	}
}

func TestRSI_AllGainsPinsTo100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1.0 + float64(i)*0.01
	}
	out := RSI(closes, 14)
	if len(out) == 0 {
		t.Fatal("expected RSI output")
	}
	for _, v := range out {
		if v != 100.0 {
			t.Errorf("RSI with zero losses = %v, want 100", v)
		}
	}
}

func TestRSI_OutputLength(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 1.0 + float64(i%5)*0.01
	}
	out := RSI(closes, 14)
	// One value per bar from index period onward: len(closes)-period.
	if want := len(closes) - 14; len(out) != want {
		t.Errorf("RSI output length = %d, want %d", len(out), want)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	if out := RSI([]float64{1.1, 1.2}, 14); out != nil {
		t.Errorf("RSI with short input = %v, want nil", out)
	}
}

func TestEMA_SeedIsSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := EMA(values, 5)
	if len(out) != 1 {
		t.Fatalf("EMA output length = %d, want 1", len(out))
	}
	if out[0] != 3 {
		t.Errorf("EMA seed = %v, want SMA 3", out[0])
	}
}

func TestEMA_Recurrence(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(values, 5)
	if len(out) != 2 {
		t.Fatalf("EMA output length = %d, want 2", len(out))
	}
	k := 2.0 / 6.0
	want := 6*k + 3*(1-k)
	if math.Abs(out[1]-want) > 1e-12 {
		t.Errorf("EMA[1] = %v, want %v", out[1], want)
	}
}

func TestEMASlope_RisingSeriesPositive(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 1.0 + float64(i)*0.01
	}
	if got := EMASlope(values, 10); got <= 0 {
		t.Errorf("EMASlope of rising series = %v, want > 0", got)
	}
}

func TestEMASlope_InsufficientDataNeutral(t *testing.T) {
	if got := EMASlope([]float64{1, 2, 3}, 10); got != 0 {
		t.Errorf("EMASlope with short input = %v, want 0", got)
	}
}

func TestSwingPoints(t *testing.T) {
	// Highs: peak at index 2; lows: trough at index 4.
	candles := []model.Candle{
		{High: 1.10, Low: 1.08},
		{High: 1.12, Low: 1.09},
		{High: 1.15, Low: 1.10}, // swing high
		{High: 1.11, Low: 1.07},
		{High: 1.10, Low: 1.05}, // swing low
		{High: 1.12, Low: 1.09},
	}
	highs, lows := SwingPoints(candles)
	if len(highs) != 1 || highs[0] != 1.15 {
		t.Errorf("swing highs = %v, want [1.15]", highs)
	}
	if len(lows) != 1 || lows[0] != 1.05 {
		t.Errorf("swing lows = %v, want [1.05]", lows)
	}
}

func TestSwingPoints_FlatSeriesNone(t *testing.T) {
	candles := mkCandles([]float64{1.1, 1.1, 1.1, 1.1, 1.1}, 0.001)
	highs, lows := SwingPoints(candles)
	if len(highs) != 0 || len(lows) != 0 {
		t.Errorf("flat series produced swings: highs=%v lows=%v", highs, lows)
	}
}
