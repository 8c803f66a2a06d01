// Package candles provides OHLC candle retrieval for currency pairs.
//
// A Source fetches recent candles for a pair at a requested granularity and
// count. Sources may return fewer candles than requested or none at all
// (market closed, thin history) — that is not an error. Errors indicate
// transport-level failure and are retried by the Retrier decorator before
// degrading to "no data for this pair this tick".
package candles

import (
	"context"

	"forex-signalsv1/internal/model"
)

// Source supplies recent candle sequences, ordered oldest→newest.
type Source interface {
	Recent(ctx context.Context, pair model.Pair, gran model.Granularity, count int) ([]model.Candle, error)
}
