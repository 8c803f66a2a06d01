package signal

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"forex-signalsv1/internal/breakout"
	"forex-signalsv1/internal/cooldown"
	"forex-signalsv1/internal/model"
)

var (
	eurusd  = model.Pair{Base: "EUR", Quote: "USD"}
	nowTest = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
)

// fakeSource serves one fixed candle window per granularity.
type fakeSource struct {
	byGran map[model.Granularity][]model.Candle
}

func (f *fakeSource) Recent(_ context.Context, _ model.Pair, gran model.Granularity, _ int) ([]model.Candle, error) {
	return f.byGran[gran], nil
}

// stubStrategy always reports the configured event.
type stubStrategy struct {
	ev *model.BreakoutEvent
}

func (s stubStrategy) Name() string { return "stub" }

func (s stubStrategy) Detect(_ context.Context, _ model.Pair, _ []model.Candle, _ model.Granularity) *model.BreakoutEvent {
	return s.ev
}

type recordNotifier struct {
	msgs []string
}

func (n *recordNotifier) Send(_ context.Context, text string) error {
	n.msgs = append(n.msgs, text)
	return nil
}

func trendCandles(start, step float64, n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		c := start + float64(i)*step
		hi, lo := c+0.0005, c-0.0005
		if step > 0 {
			lo = c - step - 0.0005
		} else {
			hi = c - step + 0.0005
		}
		out[i] = model.Candle{
			TS: nowTest.Add(time.Duration(i-n) * time.Hour),
			Open: c - step, High: hi, Low: lo, Close: c,
			Complete: true,
		}
	}
	return out
}

func buyEvent() *model.BreakoutEvent {
	return &model.BreakoutEvent{
		Pair: eurusd, Level: 1.1000, Direction: model.DirectionBuy,
		Timeframe: model.GranH1, Strategy: "prior_day",
	}
}

func sellEvent() *model.BreakoutEvent {
	ev := buyEvent()
	ev.Direction = model.DirectionSell
	return ev
}

type fixture struct {
	builder   *Builder
	cooldowns *cooldown.Store
	book      *Book
	notifier  *recordNotifier
}

func newFixture(cfg Config, src *fakeSource, ev *model.BreakoutEvent) *fixture {
	f := &fixture{
		cooldowns: cooldown.NewMemoryStore(),
		book:      NewBook(nil),
		notifier:  &recordNotifier{},
	}
	f.builder = NewBuilder(cfg, src, breakout.NewDetector(stubStrategy{ev: ev}),
		f.cooldowns, f.book, f.notifier, nil)
	f.builder.SetClock(func() time.Time { return nowTest })
	return f
}

func buySetup() (*fakeSource, model.RankMap) {
	src := &fakeSource{byGran: map[model.Granularity][]model.Candle{
		model.GranH1:  trendCandles(1.0900, 0.0030, 30), // rising: H1 RSI pinned high
		model.GranM15: trendCandles(1.1000, 0.0010, 30),
	}}
	ranks := model.RankMap{"EUR": 7, "USD": -7}
	return src, ranks
}

func TestBuild_BuySignal(t *testing.T) {
	src, ranks := buySetup()
	f := newFixture(DefaultConfig(), src, buyEvent())

	sig := f.builder.Build(context.Background(), eurusd, ranks)
	if sig == nil {
		t.Fatal("expected a buy signal")
	}
	if sig.Direction != model.DirectionBuy {
		t.Errorf("direction = %s, want buy", sig.Direction)
	}
	if sig.Pair != eurusd {
		t.Errorf("pair = %s, want EUR_USD", sig.Pair)
	}
	if sig.StrengthDiff != 14 {
		t.Errorf("strength diff = %d, want 14", sig.StrengthDiff)
	}
	if sig.Scenario != "prior_day" {
		t.Errorf("scenario = %q, want prior_day", sig.Scenario)
	}
	if sig.ATR <= 0 {
		t.Fatalf("ATR = %v, want > 0", sig.ATR)
	}

	m15 := src.byGran[model.GranM15]
	if entry := m15[len(m15)-1].Close; sig.Entry != entry {
		t.Errorf("entry = %v, want latest M15 close %v", sig.Entry, entry)
	}
	if got := sig.Entry - sig.StopLoss; math.Abs(got-sig.ATR) > 1e-9 {
		t.Errorf("stop distance = %v, want 1 ATR %v", got, sig.ATR)
	}
	if len(sig.TakeProfits) != 3 {
		t.Fatalf("take profits = %v, want 3", sig.TakeProfits)
	}
	for i, mult := range []float64{2, 4, 6} {
		want := sig.Entry + mult*sig.ATR
		if math.Abs(sig.TakeProfits[i]-want) > 1e-9 {
			t.Errorf("TP%d = %v, want %v", i+1, sig.TakeProfits[i], want)
		}
	}
	if !sig.CreatedAt.Equal(nowTest) {
		t.Errorf("created at = %v, want clock time %v", sig.CreatedAt, nowTest)
	}

	if f.book.Len() != 1 {
		t.Errorf("book length = %d, want 1", f.book.Len())
	}
	if len(f.notifier.msgs) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.msgs))
	}
	if !strings.HasPrefix(f.notifier.msgs[0], "🟢 BUY EUR_USD") {
		t.Errorf("notification = %q, want buy header", f.notifier.msgs[0])
	}
}

func TestBuild_SellSignal(t *testing.T) {
	src := &fakeSource{byGran: map[model.Granularity][]model.Candle{
		model.GranH1:  trendCandles(1.1900, -0.0030, 30),
		model.GranM15: trendCandles(1.1100, -0.0010, 30),
	}}
	ranks := model.RankMap{"EUR": -6, "USD": 6}
	f := newFixture(DefaultConfig(), src, sellEvent())

	sig := f.builder.Build(context.Background(), eurusd, ranks)
	if sig == nil {
		t.Fatal("expected a sell signal")
	}
	if sig.Direction != model.DirectionSell {
		t.Errorf("direction = %s, want sell", sig.Direction)
	}
	if got := sig.StopLoss - sig.Entry; math.Abs(got-sig.ATR) > 1e-9 {
		t.Errorf("stop distance = %v, want 1 ATR above entry", got)
	}
	if sig.TakeProfits[0] >= sig.Entry {
		t.Errorf("TP1 %v not below entry %v for a sell", sig.TakeProfits[0], sig.Entry)
	}
}

func TestBuild_CooldownSuppresses(t *testing.T) {
	src, ranks := buySetup()
	f := newFixture(DefaultConfig(), src, buyEvent())
	f.cooldowns.Record(cooldown.Key{Pair: "EUR_USD", Category: "strength_alert"},
		nowTest.Add(-10*time.Minute))

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted inside cooldown: %+v", sig)
	}
	if len(f.notifier.msgs) != 0 {
		t.Errorf("notifications = %d, want 0", len(f.notifier.msgs))
	}
	if f.book.Len() != 0 {
		t.Errorf("book length = %d, want 0", f.book.Len())
	}
}

func TestBuild_SecondPassSuppressed(t *testing.T) {
	src, ranks := buySetup()
	f := newFixture(DefaultConfig(), src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig == nil {
		t.Fatal("first pass must emit")
	}
	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("second pass emitted a duplicate: %+v", sig)
	}
	if len(f.notifier.msgs) != 1 {
		t.Errorf("notifications = %d, want exactly 1", len(f.notifier.msgs))
	}
	if f.book.Len() != 1 {
		t.Errorf("book length = %d, want 1", f.book.Len())
	}
}

func TestBuild_OncePerSession(t *testing.T) {
	src, ranks := buySetup()
	cfg := DefaultConfig()
	cfg.SessionFor = func(time.Time) string { return "London" }
	f := newFixture(cfg, src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig == nil {
		t.Fatal("first pass must emit")
	}

	// Past the per-category window but still inside the same session.
	later := nowTest.Add(2 * time.Hour)
	f.builder.SetClock(func() time.Time { return later })
	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("second signal within one session: %+v", sig)
	}

	// Session rollover prunes the session's keys; the pair may fire again.
	f.cooldowns.PruneCategory("London")
	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig == nil {
		t.Error("signal suppressed after the session keys were pruned")
	}
}

func TestBuild_SessionKeysPrunable(t *testing.T) {
	src, ranks := buySetup()
	cfg := DefaultConfig()
	cfg.SessionFor = func(time.Time) string { return "Asian" }
	f := newFixture(cfg, src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig == nil {
		t.Fatal("first pass must emit")
	}
	if f.cooldowns.Len() != 2 {
		t.Fatalf("cooldown keys = %d, want category + session", f.cooldowns.Len())
	}
	f.cooldowns.PruneCategory("Asian")
	if f.cooldowns.Len() != 1 {
		t.Errorf("cooldown keys = %d after rollover prune, want 1", f.cooldowns.Len())
	}
}

func TestBuild_WeakRanksRejected(t *testing.T) {
	src, _ := buySetup()
	f := newFixture(DefaultConfig(), src, buyEvent())

	ranks := model.RankMap{"EUR": 3, "USD": -3}
	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted below the rank threshold: %+v", sig)
	}
}

func TestBuild_MissingRanksRejected(t *testing.T) {
	src, _ := buySetup()
	f := newFixture(DefaultConfig(), src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{"EUR": 7}); sig != nil {
		t.Fatalf("signal emitted with a missing quote rank: %+v", sig)
	}
	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{}); sig != nil {
		t.Fatalf("signal emitted with an empty rank map: %+v", sig)
	}
}

func TestBuild_BreakoutDirectionDisagreement(t *testing.T) {
	src, ranks := buySetup()
	f := newFixture(DefaultConfig(), src, sellEvent()) // structure says sell, ranks say buy

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted against the stronger side: %+v", sig)
	}
}

func TestBuild_NoBreakoutRejected(t *testing.T) {
	src, ranks := buySetup()
	f := newFixture(DefaultConfig(), src, nil)

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted without a breakout: %+v", sig)
	}
}

func TestBuild_H1MomentumRejected(t *testing.T) {
	// Falling H1 pins RSI low; a buy must not fire into that.
	src := &fakeSource{byGran: map[model.Granularity][]model.Candle{
		model.GranH1:  trendCandles(1.1900, -0.0030, 30),
		model.GranM15: trendCandles(1.1000, 0.0010, 30),
	}}
	ranks := model.RankMap{"EUR": 7, "USD": -7}
	f := newFixture(DefaultConfig(), src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("buy emitted with bearish H1 momentum: %+v", sig)
	}
}

func TestBuild_NoDataRejected(t *testing.T) {
	src := &fakeSource{byGran: map[model.Granularity][]model.Candle{}}
	ranks := model.RankMap{"EUR": 7, "USD": -7}
	f := newFixture(DefaultConfig(), src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted without candle data: %+v", sig)
	}
}

func TestBuild_RRRRejected(t *testing.T) {
	src, ranks := buySetup()
	cfg := DefaultConfig()
	cfg.MinRRR = 3.0 // first target sits at 2R, so this must reject
	f := newFixture(cfg, src, buyEvent())

	if sig := f.builder.Build(context.Background(), eurusd, ranks); sig != nil {
		t.Fatalf("signal emitted below the reward:risk floor: %+v", sig)
	}
}

func TestBuild_MinDiffPolicy(t *testing.T) {
	src, _ := buySetup()
	cfg := DefaultConfig()
	cfg.Strength = StrengthRule{Policy: PolicyMinDiff, MinDiff: 10}

	f := newFixture(cfg, src, buyEvent())
	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{"EUR": 4, "USD": -7}); sig == nil {
		t.Error("diff 11 rejected under min_diff 10")
	}

	f = newFixture(cfg, src, buyEvent())
	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{"EUR": 4, "USD": -5}); sig != nil {
		t.Errorf("diff 9 accepted under min_diff 10: %+v", sig)
	}
}

func TestBuild_AcceptedDiffsPolicy(t *testing.T) {
	src, _ := buySetup()
	cfg := DefaultConfig()
	cfg.Strength = StrengthRule{Policy: PolicyAcceptedDiffs, AcceptedDiffs: []int{12, 14}}

	f := newFixture(cfg, src, buyEvent())
	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{"EUR": 7, "USD": -7}); sig == nil {
		t.Error("diff 14 rejected though explicitly accepted")
	}

	f = newFixture(cfg, src, buyEvent())
	if sig := f.builder.Build(context.Background(), eurusd, model.RankMap{"EUR": 7, "USD": -6}); sig != nil {
		t.Errorf("diff 13 accepted though not in the list: %+v", sig)
	}
}

func TestEntryTimingOK_PlainThresholds(t *testing.T) {
	b := NewBuilder(DefaultConfig(), nil, nil, cooldown.NewMemoryStore(), NewBook(nil), &recordNotifier{}, nil)

	tests := []struct {
		dir  model.Direction
		rsi  float64
		want bool
	}{
		{model.DirectionBuy, 60, true},
		{model.DirectionBuy, 46, true},
		{model.DirectionBuy, 45, false},
		{model.DirectionBuy, 30, false},
		{model.DirectionSell, 40, true},
		{model.DirectionSell, 54, true},
		{model.DirectionSell, 55, false},
		{model.DirectionSell, 70, false},
	}
	for _, tt := range tests {
		if got := b.entryTimingOK(eurusd, tt.dir, tt.rsi); got != tt.want {
			t.Errorf("entryTimingOK(%s, %.0f) = %v, want %v", tt.dir, tt.rsi, got, tt.want)
		}
	}
}

func TestEntryTimingOK_PullbackArming(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PullbackArming = true
	b := NewBuilder(cfg, nil, nil, cooldown.NewMemoryStore(), NewBook(nil), &recordNotifier{}, nil)

	// Buy: no entry until an excursion below 45 arms the pair, then a cross
	// back up through 50.
	if b.entryTimingOK(eurusd, model.DirectionBuy, 52) {
		t.Error("entry taken without arming excursion")
	}
	if b.entryTimingOK(eurusd, model.DirectionBuy, 40) {
		t.Error("entry taken on the arming bar itself")
	}
	if b.entryTimingOK(eurusd, model.DirectionBuy, 48) {
		t.Error("entry taken before the midpoint cross")
	}
	if !b.entryTimingOK(eurusd, model.DirectionBuy, 52) {
		t.Error("armed midpoint cross did not trigger the entry")
	}

	// Emitting resets arming: the same reading no longer qualifies.
	b.resetPullback(eurusd)
	if b.entryTimingOK(eurusd, model.DirectionBuy, 51) {
		t.Error("entry taken after the arm was consumed")
	}
}

func TestEntryTimingOK_PullbackArmingSell(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PullbackArming = true
	b := NewBuilder(cfg, nil, nil, cooldown.NewMemoryStore(), NewBook(nil), &recordNotifier{}, nil)

	if b.entryTimingOK(eurusd, model.DirectionSell, 60) {
		t.Error("entry taken on the arming bar itself")
	}
	if b.entryTimingOK(eurusd, model.DirectionSell, 53) {
		t.Error("entry taken before the midpoint cross")
	}
	if !b.entryTimingOK(eurusd, model.DirectionSell, 49) {
		t.Error("armed midpoint cross did not trigger the entry")
	}
}

func TestEntryTimingOK_ConcurrentPairs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PullbackArming = true
	b := NewBuilder(cfg, nil, nil, cooldown.NewMemoryStore(), NewBook(nil), &recordNotifier{}, nil)

	pairs := []model.Pair{
		{Base: "EUR", Quote: "USD"},
		{Base: "GBP", Quote: "JPY"},
		{Base: "AUD", Quote: "CAD"},
		{Base: "NZD", Quote: "CHF"},
	}
	var wg sync.WaitGroup
	for _, p := range pairs {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.entryTimingOK(p, model.DirectionBuy, float64(30+i%40))
				if i%50 == 0 {
					b.resetPullback(p)
				}
			}
		}()
	}
	wg.Wait()
}

func TestRetestConfirmed(t *testing.T) {
	ev := buyEvent() // level 1.1000
	atr := 0.0040
	cfg := RetestConfig{Enabled: true, Lookback: 10, ATRTolerance: 0.5}

	touch := []model.Candle{
		{Open: 1.1050, High: 1.1060, Low: 1.1015, Close: 1.1040}, // dips within tolerance, closes above
	}
	if !retestConfirmed(touch, ev, model.DirectionBuy, atr, cfg) {
		t.Error("qualifying retest not confirmed")
	}

	far := []model.Candle{
		{Open: 1.1080, High: 1.1090, Low: 1.1060, Close: 1.1085}, // never came near the level
	}
	if retestConfirmed(far, ev, model.DirectionBuy, atr, cfg) {
		t.Error("retest confirmed without price approaching the level")
	}

	through := []model.Candle{
		{Open: 1.1050, High: 1.1060, Low: 1.0950, Close: 1.0960}, // broke back through
	}
	if retestConfirmed(through, ev, model.DirectionBuy, atr, cfg) {
		t.Error("retest confirmed on a failed breakout")
	}
}

func TestBook(t *testing.T) {
	b := NewBook(nil)
	s1 := model.TradeSignal{ID: "a", Pair: eurusd, Direction: model.DirectionBuy}
	s2 := model.TradeSignal{ID: "b", Pair: model.Pair{Base: "GBP", Quote: "JPY"}, Direction: model.DirectionSell}
	b.Append(s1)
	b.Append(s2)

	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}

	curs := b.Currencies()
	for _, c := range []model.Currency{"EUR", "USD", "GBP", "JPY"} {
		if !curs[c] {
			t.Errorf("currency %s missing from book set %v", c, curs)
		}
	}

	// List returns a copy; mutating it must not touch the book.
	list := b.List()
	list[0].ID = "mutated"
	if b.List()[0].ID != "a" {
		t.Error("List exposed internal storage")
	}

	if !b.Remove("a") {
		t.Error("Remove of present ID returned false")
	}
	if b.Remove("a") {
		t.Error("Remove of absent ID returned true")
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d after removal, want 1", b.Len())
	}
}

func TestFormatSignal(t *testing.T) {
	sig := &model.TradeSignal{
		Pair:         eurusd,
		Direction:    model.DirectionSell,
		Entry:        1.10000,
		StopLoss:     1.10400,
		TakeProfits:  []float64{1.09200, 1.08400, 1.07600},
		StrengthDiff: 12,
		H1RSI:        38.2,
		M15RSI:       41.7,
		ATR:          0.00400,
		Scenario:     "range",
	}
	text := FormatSignal(sig)
	for _, want := range []string{
		"🔴 SELL EUR_USD [range]",
		"Strength Diff: 12",
		"H1 RSI: 38.2 | M15 RSI: 41.7",
		"Entry: 1.10000 | SL: 1.10400",
		"TP1:1.09200",
		"TP3:1.07600",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted signal missing %q:\n%s", want, text)
		}
	}
}
