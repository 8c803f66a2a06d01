package candles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"forex-signalsv1/internal/model"
)

// OandaConfig configures the OANDA REST candle source.
type OandaConfig struct {
	APIURL string // e.g. "https://api-fxtrade.oanda.com/v3"
	Token  string // bearer token
}

// OandaSource fetches mid-price candles from the OANDA v3 REST API.
type OandaSource struct {
	cfg    OandaConfig
	client *http.Client
}

// NewOandaSource creates an OANDA candle source.
func NewOandaSource(cfg OandaConfig) *OandaSource {
	return &OandaSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// oandaCandle mirrors the OANDA candle JSON (prices as strings).
type oandaCandle struct {
	Complete bool      `json:"complete"`
	Time     time.Time `json:"time"`
	Mid      struct {
		Open  string `json:"o"`
		High  string `json:"h"`
		Low   string `json:"l"`
		Close string `json:"c"`
	} `json:"mid"`
}

type oandaCandlesResponse struct {
	Instrument  string        `json:"instrument"`
	Granularity string        `json:"granularity"`
	Candles     []oandaCandle `json:"candles"`
}

// Recent fetches the latest count candles for pair at gran.
// An empty response body with no candles returns an empty slice, not an error.
func (s *OandaSource) Recent(ctx context.Context, pair model.Pair, gran model.Granularity, count int) ([]model.Candle, error) {
	endpoint := fmt.Sprintf("%s/instruments/%s/candles", s.cfg.APIURL, pair)
	q := url.Values{}
	q.Set("granularity", string(gran))
	q.Set("count", strconv.Itoa(count))
	q.Set("price", "M")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("oanda: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oanda: %s %s: %w", pair, gran, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oanda: %s %s: status %d: %s", pair, gran, resp.StatusCode, body)
	}

	var payload oandaCandlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("oanda: decode %s %s: %w", pair, gran, err)
	}

	out := make([]model.Candle, 0, len(payload.Candles))
	for _, oc := range payload.Candles {
		c, err := oc.toCandle(pair, gran)
		if err != nil {
			// Malformed price field — skip the bar rather than fail the fetch.
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (oc oandaCandle) toCandle(pair model.Pair, gran model.Granularity) (model.Candle, error) {
	open, err := strconv.ParseFloat(oc.Mid.Open, 64)
	if err != nil {
		return model.Candle{}, err
	}
	high, err := strconv.ParseFloat(oc.Mid.High, 64)
	if err != nil {
		return model.Candle{}, err
	}
	low, err := strconv.ParseFloat(oc.Mid.Low, 64)
	if err != nil {
		return model.Candle{}, err
	}
	closep, err := strconv.ParseFloat(oc.Mid.Close, 64)
	if err != nil {
		return model.Candle{}, err
	}
	return model.Candle{
		Pair:        pair,
		Granularity: gran,
		TS:          oc.Time.UTC(),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closep,
		Complete:    oc.Complete,
	}, nil
}
