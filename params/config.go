package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Matching struct {
	// CycleInterval is the period of the matching loop. Every tick the
	// scheduler walks all token pools with enough liquidity.
	CycleInterval time.Duration
	// MinBatchSize is the minimum pending-order count a pool needs before
	// a matching pass will touch it. Below this, pairing would leak too
	// much about the few orders present.
	MinBatchSize int
}

type Settlement struct {
	// MinDelay/MaxDelay bound the uniform random delay applied to every
	// match before it is handed to the executor. The randomization is what
	// breaks timing correlation between matches of the same cycle.
	MinDelay time.Duration
	MaxDelay time.Duration
	// PriceNoiseBps bounds the symmetric perturbation added to the
	// midpoint execution price, in basis points of the midpoint.
	PriceNoiseBps int64
}

type Node struct {
	APIAddr string
	Listen  string // p2p listen multiaddr, empty disables gossip
	DataDir string
	LogFile string
}

type Config struct {
	Matching   Matching
	Settlement Settlement
	Node       Node
}

func Default() Config {
	return Config{
		Matching: Matching{
			CycleInterval: 5 * time.Second,
			MinBatchSize:  2,
		},
		Settlement: Settlement{
			MinDelay:      1 * time.Second,
			MaxDelay:      8 * time.Second,
			PriceNoiseBps: 20, // 0.2% of midpoint
		},
		Node: Node{
			APIAddr: ":8080",
			DataDir: "data",
			LogFile: "data/node.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if ms, ok := envMillis("CYCLE_INTERVAL_MS"); ok {
		cfg.Matching.CycleInterval = ms
	}
	if v := os.Getenv("MIN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Matching.MinBatchSize = n
		}
	}
	if ms, ok := envMillis("SETTLE_MIN_DELAY_MS"); ok {
		cfg.Settlement.MinDelay = ms
	}
	if ms, ok := envMillis("SETTLE_MAX_DELAY_MS"); ok {
		cfg.Settlement.MaxDelay = ms
	}
	if v := os.Getenv("PRICE_NOISE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Settlement.PriceNoiseBps = n
		}
	}

	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.Listen = getEnv("LISTEN", cfg.Node.Listen)
	cfg.Node.DataDir = getEnv("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)

	// A window where min > max would break every random draw; collapse it.
	if cfg.Settlement.MaxDelay < cfg.Settlement.MinDelay {
		cfg.Settlement.MaxDelay = cfg.Settlement.MinDelay
	}

	return cfg
}

func envMillis(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
