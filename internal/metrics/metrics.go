// Package metrics exposes Prometheus instrumentation for the evaluator.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal evaluator.
type Metrics struct {
	EvalTicksTotal  prometheus.Counter
	EvalTickDur     prometheus.Histogram
	CandleFetchDur  prometheus.Histogram
	CandleFetchErrs prometheus.Counter
	PairsSkipped    prometheus.Counter

	RanksComputed  prometheus.Counter
	EmptyRankMaps  prometheus.Counter
	BreakoutsTotal *prometheus.CounterVec // labels: strategy
	GateRejects    *prometheus.CounterVec // labels: gate
	SignalsTotal   *prometheus.CounterVec // labels: direction

	CooldownKeys   prometheus.Gauge
	ActiveTrades   prometheus.Gauge
	NotifyFailures prometheus.Counter
	NewsAlerts     prometheus.Counter
}

// NewMetrics registers and returns all evaluator metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvalTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_eval_ticks_total",
			Help: "Total evaluation passes over the pair universe",
		}),
		EvalTickDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxsignals_eval_tick_seconds",
			Help:    "Duration of one full evaluation pass",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CandleFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxsignals_candle_fetch_seconds",
			Help:    "Duration of one candle fetch including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CandleFetchErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_candle_fetch_errors_total",
			Help: "Candle fetches that failed after all retries",
		}),
		PairsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_pairs_skipped_total",
			Help: "Pairs skipped during scoring (no data or invalid config)",
		}),
		RanksComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_rank_maps_total",
			Help: "Non-empty rank maps produced",
		}),
		EmptyRankMaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_empty_rank_maps_total",
			Help: "Evaluation passes with fewer than two scored currencies",
		}),
		BreakoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignals_breakouts_total",
			Help: "Breakout confirmations by strategy",
		}, []string{"strategy"}),
		GateRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignals_gate_rejects_total",
			Help: "Signal pipeline short-circuits by gate",
		}, []string{"gate"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxsignals_signals_total",
			Help: "Trade signals emitted by direction",
		}, []string{"direction"}),
		CooldownKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxsignals_cooldown_keys",
			Help: "Cooldown keys currently tracked",
		}),
		ActiveTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxsignals_active_trades",
			Help: "Open trade signals in the active book",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_notify_failures_total",
			Help: "Notification deliveries that failed",
		}),
		NewsAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxsignals_news_alerts_total",
			Help: "Economic-news alerts sent for active trades",
		}),
	}

	prometheus.MustRegister(
		m.EvalTicksTotal,
		m.EvalTickDur,
		m.CandleFetchDur,
		m.CandleFetchErrs,
		m.PairsSkipped,
		m.RanksComputed,
		m.EmptyRankMaps,
		m.BreakoutsTotal,
		m.GateRejects,
		m.SignalsTotal,
		m.CooldownKeys,
		m.ActiveTrades,
		m.NotifyFailures,
		m.NewsAlerts,
	)

	return m
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[metrics] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
