// Package evaluator is the scheduling shell around the signal pipeline: it
// wires the candle source, strength engine, breakout detector, signal
// builder, cooldown store, and notification sinks, and drives the periodic
// evaluation loops.
package evaluator

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"forex-signalsv1/config"
	"forex-signalsv1/internal/breakout"
	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/cooldown"
	"forex-signalsv1/internal/export"
	"forex-signalsv1/internal/metrics"
	"forex-signalsv1/internal/model"
	"forex-signalsv1/internal/news"
	"forex-signalsv1/internal/notification"
	"forex-signalsv1/internal/session"
	"forex-signalsv1/internal/signal"
	sqlitestore "forex-signalsv1/internal/store/sqlite"
	"forex-signalsv1/internal/strength"
)

// trendEMAPeriod is the daily EMA used by the range strategy's trend filter.
const trendEMAPeriod = 200

// Service is the top-level evaluator: one logical instance, one pass over
// all pairs per tick.
type Service struct {
	cfg   *config.Config
	pairs []model.Pair

	source    candles.Source
	cache     *candles.Cache // nil when Redis is not configured
	strength  *strength.Engine
	detector  *breakout.Detector
	builder   *signal.Builder
	cooldowns *cooldown.Store
	book      *signal.Book
	notifier  notification.Notifier
	newsMon   *news.Monitor
	sessions  *session.Tracker
	hub       *export.Hub
	store     *sqlitestore.Store // nil in degraded memory-only mode
	prom      *metrics.Metrics
}

// New wires a Service from configuration. Only wiring failures that leave
// the evaluator unable to fetch data at all are fatal; persistence and cache
// failures degrade with a warning.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:  cfg,
		prom: metrics.NewMetrics(),
	}

	// ---- Pair universe ----
	for _, raw := range cfg.ParsePairs() {
		pair, err := model.ParsePair(raw)
		if err != nil {
			log.Printf("[evaluator] skipping misconfigured pair: %v", err)
			svc.prom.PairsSkipped.Inc()
			continue
		}
		svc.pairs = append(svc.pairs, pair)
	}
	log.Printf("[evaluator] evaluating %d pairs", len(svc.pairs))

	// ---- Candle source: OANDA → retry → optional Redis cache ----
	var source candles.Source = candles.NewRetrier(
		candles.NewOandaSource(candles.OandaConfig{
			APIURL: cfg.OandaAPIURL,
			Token:  cfg.OandaToken,
		}),
		candles.RetryConfig{
			MaxAttempts: 3,
			MinDelay:    500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
		},
	)
	if cfg.RedisAddr != "" {
		cache, err := candles.NewCache(source, candles.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      time.Minute,
		})
		if err != nil {
			log.Printf("[evaluator] WARNING: candle cache unavailable, fetching direct: %v", err)
		} else {
			svc.cache = cache
			source = cache
		}
	}
	source = &instrumentedSource{next: source, prom: svc.prom}
	svc.source = source

	// ---- Durable state ----
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Printf("[evaluator] WARNING: state dir %s unavailable, running memory-only: %v",
			filepath.Dir(cfg.SQLitePath), err)
	} else if store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath}); err != nil {
		log.Printf("[evaluator] WARNING: state store init failed, running memory-only: %v", err)
	} else {
		svc.store = store
	}

	if svc.store != nil {
		svc.cooldowns = cooldown.NewStore(svc.store)
		svc.book = signal.NewBook(svc.store)
	} else {
		svc.cooldowns = cooldown.NewMemoryStore()
		svc.book = signal.NewBook(nil)
	}

	// ---- Notification sinks ----
	var sinks notification.Fanout
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		sinks = append(sinks, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if len(sinks) == 0 {
		log.Printf("[evaluator] no notification channel configured, logging alerts")
		svc.notifier = notification.NewLogNotifier()
	} else {
		svc.notifier = sinks
	}

	// ---- Pipeline ----
	svc.strength = strength.NewEngine(source, strength.DefaultConfig())
	svc.detector = breakout.NewDetector(
		breakout.PriorBar{},
		breakout.NewPriorDay(source, cfg.PriorDayScanLen),
		breakout.NewRangeWithTrendFilter(cfg.RangeLookback, source, trendEMAPeriod),
	)

	builderCfg := signal.DefaultConfig()
	builderCfg.Cooldown = cfg.AlertCooldown
	builderCfg.MinRRR = cfg.MinRRR
	builderCfg.Debug = cfg.Debug
	builderCfg.Strength = signal.StrengthRule{
		Policy:        signal.StrengthPolicy(cfg.StrengthPolicy),
		MinAbsRank:    cfg.MinAbsRank,
		MinDiff:       cfg.MinDiff,
		AcceptedDiffs: cfg.AcceptedDiffs,
	}
	// Once-per-session keys: emits record the active session's name, and the
	// rollover prune in tradeTick clears them when the session ends.
	builderCfg.SessionFor = func(t time.Time) string {
		return string(session.Current(t))
	}
	svc.builder = signal.NewBuilder(builderCfg, source, svc.detector,
		svc.cooldowns, svc.book, svc.notifier, svc.prom)

	// ---- Collaborators ----
	var alertLog news.AlertLog
	if svc.store != nil {
		alertLog = svc.store
	}
	svc.newsMon = news.NewMonitor(news.NewFetcher(cfg.NewsFeedURL), svc.book,
		svc.notifier, alertLog, cfg.NewsHorizon)
	svc.sessions = session.NewTracker(time.Now())
	svc.hub = export.NewHub()

	return svc, nil
}

// Run starts all loops and blocks until ctx is cancelled, then flushes state.
func (svc *Service) Run(ctx context.Context) error {
	go metrics.Serve(ctx, svc.cfg.MetricsAddr)
	go export.NewServer(svc.hub, svc.book).Run(ctx, svc.cfg.ExportAddr)

	svc.heartbeat(ctx)

	tradeTicker := time.NewTicker(svc.cfg.LoopInterval)
	strengthTicker := time.NewTicker(svc.cfg.StrengthInterval)
	groupTicker := time.NewTicker(svc.cfg.GroupInterval)
	newsTicker := time.NewTicker(svc.cfg.NewsInterval)
	heartbeatTicker := time.NewTicker(svc.cfg.HeartbeatInterval)
	defer tradeTicker.Stop()
	defer strengthTicker.Stop()
	defer groupTicker.Stop()
	defer newsTicker.Stop()
	defer heartbeatTicker.Stop()

	log.Printf("[evaluator] started: trade loop %v, strength %v, group %v",
		svc.cfg.LoopInterval, svc.cfg.StrengthInterval, svc.cfg.GroupInterval)

	// Initial strength broadcast so the evaluator announces state on boot.
	svc.strengthBroadcast(ctx)

	for {
		select {
		case <-ctx.Done():
			svc.shutdown()
			return nil
		case <-tradeTicker.C:
			svc.tradeTick(ctx)
		case <-strengthTicker.C:
			svc.strengthBroadcast(ctx)
		case <-groupTicker.C:
			svc.groupBreakoutTick(ctx)
		case <-newsTicker.C:
			svc.newsTick(ctx)
		case <-heartbeatTicker.C:
			svc.heartbeat(ctx)
		}
	}
}

// instrumentedSource records fetch latency and terminal failures around the
// retrying/cached source chain.
type instrumentedSource struct {
	next candles.Source
	prom *metrics.Metrics
}

func (s *instrumentedSource) Recent(ctx context.Context, pair model.Pair, gran model.Granularity, count int) ([]model.Candle, error) {
	start := time.Now()
	out, err := s.next.Recent(ctx, pair, gran, count)
	s.prom.CandleFetchDur.Observe(time.Since(start).Seconds())
	if err != nil {
		s.prom.CandleFetchErrs.Inc()
	}
	return out, err
}

// shutdown flushes in-flight state to durable storage before exit.
func (svc *Service) shutdown() {
	log.Printf("[evaluator] shutting down, flushing state")
	svc.book.Flush()
	if svc.store != nil {
		svc.store.Close()
	}
	if svc.cache != nil {
		svc.cache.Close()
	}
}
