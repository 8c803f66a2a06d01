// Package signal combines strength ranks, breakout confirmations, and
// momentum checks into fully specified trade signals.
//
// Build is a sequential gate pipeline: any failing gate short-circuits to
// "no signal". The only state retained between evaluations is the cooldown
// timestamp and, when pullback arming is enabled, a small per-pair record of
// the last M15 RSI excursion.
package signal

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"forex-signalsv1/internal/breakout"
	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/cooldown"
	"forex-signalsv1/internal/indicator"
	"forex-signalsv1/internal/logger"
	"forex-signalsv1/internal/metrics"
	"forex-signalsv1/internal/model"
	"forex-signalsv1/internal/notification"

	"github.com/google/uuid"
)

// StrengthPolicy selects the direction/strength acceptance rule.
type StrengthPolicy string

const (
	// PolicyMinAbsRank requires both ranks to reach a minimum magnitude
	// with opposite signs (e.g. |rank| ≥ 5).
	PolicyMinAbsRank StrengthPolicy = "min_abs_rank"
	// PolicyMinDiff requires the base/quote rank differential to reach a
	// minimum (e.g. ≥ 10).
	PolicyMinDiff StrengthPolicy = "min_diff"
	// PolicyAcceptedDiffs accepts only an explicit set of differentials
	// (e.g. {10, 12, 14}).
	PolicyAcceptedDiffs StrengthPolicy = "accepted_diffs"
)

// sessionWindow backstops once-per-session keys. Rollover pruning is the
// real expiry; the window only covers a missed rollover.
const sessionWindow = 24 * time.Hour

// StrengthRule is the configurable direction/strength gate.
type StrengthRule struct {
	Policy        StrengthPolicy
	MinAbsRank    int
	MinDiff       int
	AcceptedDiffs []int
}

// RetestConfig enables the optional finer-timeframe retest confirmation.
type RetestConfig struct {
	Enabled      bool
	Lookback     int     // M15 bars to scan for the retest
	ATRTolerance float64 // how close to the level counts as a retest, in ATRs
}

// Config tunes the signal pipeline.
type Config struct {
	Category string        // cooldown category, e.g. "strength_alert"
	Cooldown time.Duration // per-(pair, category) window

	DecisionTF   model.Granularity // trend/momentum timeframe (H1)
	DecisionBars int
	EntryTF      model.Granularity // execution timeframe (M15)
	EntryBars    int

	RSIPeriod int
	ATRPeriod int

	Strength StrengthRule
	Retest   RetestConfig

	// PullbackArming requires an M15 RSI excursion beyond the pullback
	// threshold followed by a cross back through 50 before an entry is
	// taken. When disabled the M15 gate is a plain threshold check.
	PullbackArming bool

	// SessionFor names the active trading session at a wall-clock time.
	// When set, a pair signals at most once per session: each emit records
	// a (pair, session) cooldown key, and the evaluator prunes the ended
	// session's keys on rollover.
	SessionFor func(time.Time) string

	MinRRR float64 // minimum reward:risk on the first target

	Debug bool // log gate rejections
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		Category:     "strength_alert",
		Cooldown:     time.Hour,
		DecisionTF:   model.GranH1,
		DecisionBars: 50,
		EntryTF:      model.GranM15,
		EntryBars:    50,
		RSIPeriod:    14,
		ATRPeriod:    14,
		Strength: StrengthRule{
			Policy:     PolicyMinAbsRank,
			MinAbsRank: 5,
		},
		MinRRR: 2.0,
	}
}

// pullbackState is the per-pair arming flag plus the previous RSI value
// used for cross detection.
type pullbackState struct {
	armed   bool
	prevRSI float64
	seeded  bool
}

// Builder runs the gate pipeline for one pair at a time.
type Builder struct {
	cfg       Config
	source    candles.Source
	detector  *breakout.Detector
	cooldowns *cooldown.Store
	book      *Book
	notifier  notification.Notifier
	prom      *metrics.Metrics // optional

	now func() time.Time

	pmu       sync.Mutex
	pullbacks map[model.Pair]*pullbackState
}

// NewBuilder wires a signal builder. prom may be nil.
func NewBuilder(cfg Config, source candles.Source, detector *breakout.Detector,
	cooldowns *cooldown.Store, book *Book, notifier notification.Notifier,
	prom *metrics.Metrics) *Builder {
	return &Builder{
		cfg:       cfg,
		source:    source,
		detector:  detector,
		cooldowns: cooldowns,
		book:      book,
		notifier:  notifier,
		prom:      prom,
		now:       time.Now,
		pullbacks: make(map[model.Pair]*pullbackState),
	}
}

// SetClock overrides the time source (tests).
func (b *Builder) SetClock(now func() time.Time) { b.now = now }

// Build evaluates one pair against the current rank map and returns a fully
// specified signal, or nil if any gate rejects. Emitting the signal appends
// it to the active book, notifies, and records the cooldown key.
func (b *Builder) Build(ctx context.Context, pair model.Pair, ranks model.RankMap) *model.TradeSignal {
	now := b.now()
	key := cooldown.Key{Pair: pair.String(), Category: b.cfg.Category}

	// 1. Cooldown gate: the per-category window, plus the once-per-session
	// key when session tracking is wired.
	if !b.cooldowns.Allowed(key, now, b.cfg.Cooldown) {
		return b.reject(pair, "cooldown")
	}
	var sessionKey *cooldown.Key
	if b.cfg.SessionFor != nil {
		k := cooldown.Key{Pair: pair.String(), Category: b.cfg.SessionFor(now)}
		if !b.cooldowns.Allowed(k, now, sessionWindow) {
			return b.reject(pair, "session")
		}
		sessionKey = &k
	}

	// Decision-timeframe candles feed the breakout, RSI, and ATR checks.
	h1, err := b.source.Recent(ctx, pair, b.cfg.DecisionTF, b.cfg.DecisionBars)
	if err != nil || len(h1) == 0 {
		return b.reject(pair, "no_data")
	}

	// 2. Breakout gate.
	ev := b.detector.Detect(ctx, pair, h1, b.cfg.DecisionTF)
	if ev == nil {
		return b.reject(pair, "breakout")
	}
	if b.prom != nil {
		b.prom.BreakoutsTotal.WithLabelValues(ev.Strategy).Inc()
	}

	// 3. Direction & strength gate.
	baseRank, okB := ranks[pair.Base]
	quoteRank, okQ := ranks[pair.Quote]
	if !okB || !okQ {
		return b.reject(pair, "ranks")
	}
	dir := model.DirectionBuy
	if baseRank < quoteRank {
		dir = model.DirectionSell
	}
	if ev.Direction != dir {
		// Strength and structure disagree: a breakout against the
		// stronger side is not a tradable signal.
		return b.reject(pair, "breakout_direction")
	}
	if !b.strengthAccepted(baseRank, quoteRank, dir) {
		return b.reject(pair, "strength")
	}

	// 4. Trend/momentum confirmation on the decision timeframe.
	h1Closes := closes(h1)
	h1RSIs := indicator.RSI(h1Closes, b.cfg.RSIPeriod)
	if len(h1RSIs) == 0 {
		return b.reject(pair, "no_data")
	}
	h1RSI := h1RSIs[len(h1RSIs)-1]
	if dir == model.DirectionBuy && h1RSI < 50 {
		return b.reject(pair, "h1_rsi")
	}
	if dir == model.DirectionSell && h1RSI > 50 {
		return b.reject(pair, "h1_rsi")
	}

	atr := indicator.ATR(h1, b.cfg.ATRPeriod)
	if atr <= 0 {
		return b.reject(pair, "atr")
	}

	// 5. Entry timing on the execution timeframe.
	m15, err := b.source.Recent(ctx, pair, b.cfg.EntryTF, b.cfg.EntryBars)
	if err != nil || len(m15) == 0 {
		return b.reject(pair, "no_data")
	}
	m15RSIs := indicator.RSI(closes(m15), b.cfg.RSIPeriod)
	if len(m15RSIs) == 0 {
		return b.reject(pair, "no_data")
	}
	m15RSI := m15RSIs[len(m15RSIs)-1]
	if !b.entryTimingOK(pair, dir, m15RSI) {
		return b.reject(pair, "m15_rsi")
	}

	// 6. Optional retest confirmation near the broken level.
	if b.cfg.Retest.Enabled && !retestConfirmed(m15, ev, dir, atr, b.cfg.Retest) {
		return b.reject(pair, "retest")
	}

	// 7. Risk computation.
	entry := m15[len(m15)-1].Close
	var stop float64
	var tps []float64
	if dir == model.DirectionBuy {
		stop = entry - atr
		tps = []float64{entry + 2*atr, entry + 4*atr, entry + 6*atr}
	} else {
		stop = entry + atr
		tps = []float64{entry - 2*atr, entry - 4*atr, entry - 6*atr}
	}
	// Tolerance absorbs float rounding when the first target sits exactly
	// at the configured multiple.
	risk := abs(entry - stop)
	if risk <= 0 || abs(tps[0]-entry)/risk < b.cfg.MinRRR-1e-9 {
		return b.reject(pair, "rrr")
	}

	diff := baseRank - quoteRank
	if diff < 0 {
		diff = -diff
	}
	sig := &model.TradeSignal{
		ID:           uuid.NewString(),
		Pair:         pair,
		Direction:    dir,
		Entry:        entry,
		StopLoss:     stop,
		TakeProfits:  tps,
		StrengthDiff: diff,
		H1RSI:        h1RSI,
		M15RSI:       m15RSI,
		ATR:          atr,
		Scenario:     ev.Strategy,
		CreatedAt:    now,
	}

	// Re-check and record atomically so concurrent evaluations of the same
	// pair cannot both clear the gate.
	if !b.cooldowns.Acquire(key, now, b.cfg.Cooldown) {
		return b.reject(pair, "cooldown")
	}
	if sessionKey != nil {
		b.cooldowns.Record(*sessionKey, now)
	}
	b.resetPullback(pair)
	b.book.Append(*sig)

	if err := b.notifier.Send(ctx, FormatSignal(sig)); err != nil {
		log.Printf("[signal] notify %s failed: %v", pair, err)
		if b.prom != nil {
			b.prom.NotifyFailures.Inc()
		}
	}
	if b.prom != nil {
		b.prom.SignalsTotal.WithLabelValues(string(dir)).Inc()
	}
	log.Printf("[signal] %s %s | diff %d | H1 RSI %.1f | M15 RSI %.1f | scenario %s",
		dir, pair, diff, h1RSI, m15RSI, ev.Strategy)
	return sig
}

// strengthAccepted applies the configured direction/strength rule.
func (b *Builder) strengthAccepted(baseRank, quoteRank int, dir model.Direction) bool {
	strong, weak := baseRank, quoteRank
	if dir == model.DirectionSell {
		strong, weak = quoteRank, baseRank
	}
	diff := strong - weak

	switch b.cfg.Strength.Policy {
	case PolicyMinDiff:
		return diff >= b.cfg.Strength.MinDiff
	case PolicyAcceptedDiffs:
		for _, d := range b.cfg.Strength.AcceptedDiffs {
			if diff == d {
				return true
			}
		}
		return false
	default: // PolicyMinAbsRank
		return strong >= b.cfg.Strength.MinAbsRank && weak <= -b.cfg.Strength.MinAbsRank
	}
}

// entryTimingOK applies the M15 momentum check. Plain mode uses relaxed
// thresholds (buy > 45, sell < 55). Arming mode requires a qualifying
// excursion first, then a cross back through the midpoint.
func (b *Builder) entryTimingOK(pair model.Pair, dir model.Direction, rsi float64) bool {
	if !b.cfg.PullbackArming {
		if dir == model.DirectionBuy {
			return rsi > 45
		}
		return rsi < 55
	}

	b.pmu.Lock()
	defer b.pmu.Unlock()
	st := b.pullbacks[pair]
	if st == nil {
		st = &pullbackState{}
		b.pullbacks[pair] = st
	}
	prev, seeded := st.prevRSI, st.seeded
	st.prevRSI = rsi
	st.seeded = true

	if dir == model.DirectionBuy {
		if rsi < 45 {
			st.armed = true
			return false
		}
		if st.armed && seeded && prev < 50 && rsi >= 50 {
			return true
		}
		return false
	}

	if rsi > 55 {
		st.armed = true
		return false
	}
	if st.armed && seeded && prev > 50 && rsi <= 50 {
		return true
	}
	return false
}

func (b *Builder) resetPullback(pair model.Pair) {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	if st := b.pullbacks[pair]; st != nil {
		st.armed = false
	}
}

// retestConfirmed scans the last Lookback entry-timeframe bars for price
// approaching the broken level within the ATR-scaled tolerance and closing
// back in the signal's direction.
func retestConfirmed(cs []model.Candle, ev *model.BreakoutEvent, dir model.Direction, atr float64, cfg RetestConfig) bool {
	tol := cfg.ATRTolerance * atr
	start := len(cs) - cfg.Lookback
	if start < 0 {
		start = 0
	}
	for _, c := range cs[start:] {
		if dir == model.DirectionBuy {
			if c.Low <= ev.Level+tol && c.Close > ev.Level {
				return true
			}
		} else {
			if c.High >= ev.Level-tol && c.Close < ev.Level {
				return true
			}
		}
	}
	return false
}

func (b *Builder) reject(pair model.Pair, gate string) *model.TradeSignal {
	if b.prom != nil {
		b.prom.GateRejects.WithLabelValues(gate).Inc()
	}
	if b.cfg.Debug {
		slog.Debug("signal rejected", logger.Pair(pair.String()), logger.Gate(gate))
	}
	return nil
}

func closes(cs []model.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
