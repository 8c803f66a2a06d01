package evaluator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"forex-signalsv1/internal/cooldown"
	"forex-signalsv1/internal/model"
	"forex-signalsv1/internal/strength"
)

// Cooldown categories for evaluator-level alerts. The "*" pair marks keys
// that are not tied to a single pair.
const (
	catStrengthBroadcast = "strength_broadcast"
	catGroupBreakout     = "group_breakout"
	catHeartbeat         = "heartbeat"
)

// strengthBroadcast sends the full rank table. The cooldown key makes the
// broadcast restart-safe: a crash right after sending does not produce a
// duplicate on reboot.
func (svc *Service) strengthBroadcast(ctx context.Context) {
	now := time.Now()
	key := cooldown.Key{Pair: "*", Category: catStrengthBroadcast}
	if !svc.cooldowns.Allowed(key, now, svc.cfg.StrengthInterval) {
		return
	}

	ranks := svc.strength.ComputeRanks(ctx, svc.pairs)
	if len(ranks) == 0 {
		svc.prom.EmptyRankMaps.Inc()
		return
	}
	svc.hub.PublishRanks(ranks, now)

	if err := svc.notifier.Send(ctx, strength.FormatAlert(ranks)); err != nil {
		log.Printf("[evaluator] strength broadcast failed: %v", err)
		svc.prom.NotifyFailures.Inc()
		return
	}
	svc.cooldowns.Record(key, now)
}

// groupBreakoutTick alerts when several pairs break out in the same pass —
// a broad-market move worth a heads-up even without a full trade signal.
func (svc *Service) groupBreakoutTick(ctx context.Context) {
	now := time.Now()

	var broken []string
	for _, pair := range svc.pairs {
		cs, err := svc.source.Recent(ctx, pair, model.GranH1, 50)
		if err != nil || len(cs) == 0 {
			continue
		}
		ev := svc.detector.Detect(ctx, pair, cs, model.GranH1)
		if ev == nil {
			continue
		}
		svc.prom.BreakoutsTotal.WithLabelValues(ev.Strategy).Inc()

		key := cooldown.Key{Pair: pair.String(), Category: catGroupBreakout}
		if svc.cooldowns.Allowed(key, now, svc.cfg.AlertCooldown) {
			broken = append(broken, pair.String())
		}
	}

	if len(broken) < svc.cfg.GroupMinPairs {
		return
	}
	sort.Strings(broken)

	msg := fmt.Sprintf("📢 Breakout Alert! (%d pairs) - %s\n\n%s",
		len(broken), now.UTC().Format("2006-01-02 15:04 UTC"), strings.Join(broken, "\n"))
	if err := svc.notifier.Send(ctx, msg); err != nil {
		log.Printf("[evaluator] group breakout alert failed: %v", err)
		svc.prom.NotifyFailures.Inc()
		return
	}
	for _, p := range broken {
		svc.cooldowns.Record(cooldown.Key{Pair: p, Category: catGroupBreakout}, now)
	}
}

// heartbeat confirms liveness once per HeartbeatInterval, restart-safe via
// the cooldown store.
func (svc *Service) heartbeat(ctx context.Context) {
	now := time.Now()
	key := cooldown.Key{Pair: "*", Category: catHeartbeat}
	if !svc.cooldowns.Allowed(key, now, svc.cfg.HeartbeatInterval) {
		return
	}
	if err := svc.notifier.Send(ctx, "💓 Heartbeat: forex signal evaluator is running"); err != nil {
		log.Printf("[evaluator] heartbeat failed: %v", err)
		svc.prom.NotifyFailures.Inc()
		return
	}
	svc.cooldowns.Record(key, now)
}
