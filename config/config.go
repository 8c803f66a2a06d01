package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// OANDA market data
	OandaAPIURL string
	OandaToken  string

	// Notification channels (none set → log-only notifier)
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string

	// Pair universe (comma-separated "EUR_USD,GBP_JPY,...")
	Pairs string

	// Infrastructure
	SQLitePath    string
	RedisAddr     string // empty disables the candle cache
	RedisPassword string
	MetricsAddr   string
	ExportAddr    string

	// Scheduling
	LoopInterval      time.Duration // trade-signal pass cadence
	StrengthInterval  time.Duration // strength broadcast cadence
	GroupInterval     time.Duration // group breakout scan cadence
	NewsInterval      time.Duration // calendar check cadence
	HeartbeatInterval time.Duration

	// Signal pipeline tuning
	AlertCooldown   time.Duration // per-(pair, category) window
	MinRRR          float64
	StrengthPolicy  string // min_abs_rank | min_diff | accepted_diffs
	MinAbsRank      int
	MinDiff         int
	AcceptedDiffs   []int
	GroupMinPairs   int // pairs breaking out together to trigger a group alert
	RangeLookback   int
	PriorDayScanLen int

	// News filter
	NewsFeedURL string
	NewsHorizon time.Duration

	Debug bool
}

// DefaultPairs is the standard 28-pair universe over the 8 tracked currencies.
const DefaultPairs = "EUR_USD,GBP_USD,USD_JPY,USD_CHF,AUD_USD,NZD_USD,USD_CAD," +
	"EUR_GBP,EUR_JPY,GBP_JPY,EUR_AUD,EUR_CAD,EUR_NZD," +
	"GBP_AUD,GBP_CAD,GBP_NZD," +
	"AUD_JPY,NZD_JPY,CAD_JPY,CHF_JPY," +
	"AUD_NZD,AUD_CAD,AUD_CHF," +
	"NZD_CAD,NZD_CHF,CAD_CHF,EUR_CHF,GBP_CHF"

// Load reads configuration from a .env file (when present) and environment
// variables with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	return &Config{
		OandaAPIURL: getEnv("OANDA_API", "https://api-fxtrade.oanda.com/v3"),
		OandaToken:  mustEnv("OANDA_TOKEN"),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),

		Pairs: getEnv("PAIRS", DefaultPairs),

		SQLitePath:    getEnv("SQLITE_PATH", "data/state.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ExportAddr:    getEnv("EXPORT_ADDR", ":8085"),

		LoopInterval:      getDuration("LOOP_INTERVAL", time.Minute),
		StrengthInterval:  getDuration("STRENGTH_INTERVAL", 4*time.Hour),
		GroupInterval:     getDuration("GROUP_INTERVAL", time.Minute),
		NewsInterval:      getDuration("NEWS_INTERVAL", time.Minute),
		HeartbeatInterval: getDuration("HEARTBEAT_INTERVAL", 24*time.Hour),

		AlertCooldown:   getDuration("ALERT_COOLDOWN", time.Hour),
		MinRRR:          getFloat("MIN_RRR", 2.0),
		StrengthPolicy:  getEnv("STRENGTH_POLICY", "min_abs_rank"),
		MinAbsRank:      getInt("MIN_ABS_RANK", 5),
		MinDiff:         getInt("MIN_DIFF", 10),
		AcceptedDiffs:   getIntList("ACCEPTED_DIFFS", nil),
		GroupMinPairs:   getInt("GROUP_MIN_PAIRS", 4),
		RangeLookback:   getInt("RANGE_LOOKBACK", 20),
		PriorDayScanLen: getInt("PRIOR_DAY_SCAN", 12),

		NewsFeedURL: getEnv("NEWS_FEED_URL", ""),
		NewsHorizon: getDuration("NEWS_HORIZON", time.Hour),

		Debug: getEnv("DEBUG", "") != "",
	}
}

// ParsePairs splits the PAIRS value into trimmed identifiers.
func (c *Config) ParsePairs() []string {
	parts := strings.Split(c.Pairs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}

func getIntList(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			log.Printf("[config] skipping invalid %s entry: %q", key, p)
			continue
		}
		out = append(out, n)
	}
	return out
}
