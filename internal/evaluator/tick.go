package evaluator

import (
	"context"
	"sort"
	"time"

	"forex-signalsv1/internal/model"
)

// candidate is a pair ordered by its base/quote rank differential.
type candidate struct {
	pair model.Pair
	diff int
}

// rankCandidates returns the pairs whose currencies both have ranks, sorted
// by differential descending. The top candidate is evaluated first; ties are
// broken by pair name for determinism.
func rankCandidates(pairs []model.Pair, ranks model.RankMap) []candidate {
	out := make([]candidate, 0, len(pairs))
	for _, p := range pairs {
		baseRank, okB := ranks[p.Base]
		quoteRank, okQ := ranks[p.Quote]
		if !okB || !okQ {
			continue
		}
		diff := baseRank - quoteRank
		if diff < 0 {
			diff = -diff
		}
		out = append(out, candidate{pair: p, diff: diff})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].diff != out[j].diff {
			return out[i].diff > out[j].diff
		}
		return out[i].pair.String() < out[j].pair.String()
	})
	return out
}

// tradeTick runs one evaluation pass: session bookkeeping, strength ranking,
// and the signal pipeline on the strongest candidate.
func (svc *Service) tradeTick(ctx context.Context) {
	start := time.Now()
	svc.prom.EvalTicksTotal.Inc()
	defer func() {
		svc.prom.EvalTickDur.Observe(time.Since(start).Seconds())
		svc.prom.CooldownKeys.Set(float64(svc.cooldowns.Len()))
		svc.prom.ActiveTrades.Set(float64(svc.book.Len()))
	}()

	// Session rollover: the ended session's cooldown keys are stale.
	if ended, ok := svc.sessions.Roll(start); ok {
		svc.cooldowns.PruneCategory(string(ended))
	}

	ranks := svc.strength.ComputeRanks(ctx, svc.pairs)
	if len(ranks) == 0 {
		// No opinion this tick — do not retry immediately.
		svc.prom.EmptyRankMaps.Inc()
		return
	}
	svc.prom.RanksComputed.Inc()
	svc.hub.PublishRanks(ranks, start)

	if cands := rankCandidates(svc.pairs, ranks); len(cands) > 0 {
		if sig := svc.builder.Build(ctx, cands[0].pair, ranks); sig != nil {
			svc.hub.PublishSignal(sig)
		}
	}

	svc.book.Flush()
}

// newsTick checks the economic calendar against the active book.
func (svc *Service) newsTick(ctx context.Context) {
	now := time.Now()
	if sent := svc.newsMon.Check(ctx, now); sent > 0 {
		svc.prom.NewsAlerts.Add(float64(sent))
	}
	// Keep the dedup key space bounded across calendar weeks.
	svc.newsMon.Prune(now.AddDate(0, 0, -14))
}
