// Command ranks prints the current currency strength table and exits.
// Useful for eyeballing the rank map without running the full evaluator.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"forex-signalsv1/config"
	"forex-signalsv1/internal/candles"
	"forex-signalsv1/internal/model"
	"forex-signalsv1/internal/strength"
)

func main() {
	log.SetFlags(0)

	cfg := config.Load()

	var pairs []model.Pair
	for _, raw := range cfg.ParsePairs() {
		pair, err := model.ParsePair(raw)
		if err != nil {
			log.Printf("skipping pair: %v", err)
			continue
		}
		pairs = append(pairs, pair)
	}

	source := candles.NewRetrier(
		candles.NewOandaSource(candles.OandaConfig{
			APIURL: cfg.OandaAPIURL,
			Token:  cfg.OandaToken,
		}),
		candles.RetryConfig{MaxAttempts: 3, MinDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ranks := strength.NewEngine(source, strength.DefaultConfig()).ComputeRanks(ctx, pairs)
	if len(ranks) == 0 {
		log.Println("no ranks: insufficient data")
		os.Exit(1)
	}

	for _, cur := range ranks.Sorted() {
		fmt.Printf("%s  %+d\n", cur, ranks[cur])
	}
}
