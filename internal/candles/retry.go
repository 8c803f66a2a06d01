package candles

import (
	"context"
	"log"
	"time"

	"forex-signalsv1/internal/model"

	"github.com/jpillora/backoff"
)

// RetryConfig bounds the retry-with-backoff policy around a Source.
type RetryConfig struct {
	MaxAttempts int           // total attempts including the first (e.g. 3)
	MinDelay    time.Duration // first backoff delay
	MaxDelay    time.Duration // backoff ceiling
}

// Retrier decorates a Source with bounded exponential backoff.
// After the final failed attempt the last error is returned; callers treat
// it as data-unavailable for the pair this tick.
type Retrier struct {
	next Source
	cfg  RetryConfig
}

// NewRetrier wraps next with the given retry policy.
func NewRetrier(next Source, cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retrier{next: next, cfg: cfg}
}

func (r *Retrier) Recent(ctx context.Context, pair model.Pair, gran model.Granularity, count int) ([]model.Candle, error) {
	// Fresh backoff state per call: Retrier is shared across pairs.
	b := &backoff.Backoff{
		Min:    r.cfg.MinDelay,
		Max:    r.cfg.MaxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		out, err := r.next.Recent(ctx, pair, gran, count)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		delay := b.Duration()
		log.Printf("[candles] fetch %s %s failed (attempt %d/%d), retrying in %v: %v",
			pair, gran, attempt, r.cfg.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
