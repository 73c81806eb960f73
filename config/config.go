package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL     string
	DatabasePoolMax int32

	// HTTP configuration
	ListenAddr  string
	MetricsPort string

	// Broadcast configuration
	NATSURL string // empty disables the NATS broadcast publisher

	// Account configuration
	StartingBalance int64 // signup grant in cents, written through the ledger
	MinWithdrawal   int64 // minimum withdrawal in cents

	// Multiplier game configuration
	RoundWaitDuration  time.Duration // betting window before each round
	RoundTickInterval  time.Duration
	RoundRestartDelay  time.Duration // pause between crash and the next round
	GrowthRate         float64       // exponent of the multiplier curve
	HouseEdge          float64
	MaxCrashMultiplier float64

	// Tiles game configuration
	TileBoardSize int
	TileMineCount int
	TileCurve     float64

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DatabasePoolMax: 10,

		ListenAddr:  ":8080",
		MetricsPort: "9090",
		NATSURL:     os.Getenv("NATS_URL"),

		StartingBalance: 0,
		MinWithdrawal:   1000, // 10.00

		RoundWaitDuration:  5 * time.Second,
		RoundTickInterval:  100 * time.Millisecond,
		RoundRestartDelay:  3 * time.Second,
		GrowthRate:         0.1,
		HouseEdge:          0.04,
		MaxCrashMultiplier: 100.0,

		TileBoardSize: 25,
		TileMineCount: 5,
		TileCurve:     10.0,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if poolMax := os.Getenv("DATABASE_POOL_MAX"); poolMax != "" {
		if parsed, err := strconv.ParseInt(poolMax, 10, 32); err == nil {
			config.DatabasePoolMax = int32(parsed)
		}
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if port := os.Getenv("METRICS_PORT"); port != "" {
		config.MetricsPort = port
	}
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if minWithdrawal := os.Getenv("MIN_WITHDRAWAL"); minWithdrawal != "" {
		if parsed, err := strconv.ParseInt(minWithdrawal, 10, 64); err == nil {
			config.MinWithdrawal = parsed
		}
	}
	if wait := os.Getenv("ROUND_WAIT_SECONDS"); wait != "" {
		if parsed, err := strconv.Atoi(wait); err == nil {
			config.RoundWaitDuration = time.Duration(parsed) * time.Second
		}
	}
	if tick := os.Getenv("ROUND_TICK_MILLIS"); tick != "" {
		if parsed, err := strconv.Atoi(tick); err == nil {
			config.RoundTickInterval = time.Duration(parsed) * time.Millisecond
		}
	}
	if delay := os.Getenv("ROUND_RESTART_SECONDS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil {
			config.RoundRestartDelay = time.Duration(parsed) * time.Second
		}
	}
	if rate := os.Getenv("GROWTH_RATE"); rate != "" {
		if parsed, err := strconv.ParseFloat(rate, 64); err == nil {
			config.GrowthRate = parsed
		}
	}
	if edge := os.Getenv("HOUSE_EDGE"); edge != "" {
		if parsed, err := strconv.ParseFloat(edge, 64); err == nil {
			config.HouseEdge = parsed
		}
	}
	if max := os.Getenv("MAX_CRASH_MULTIPLIER"); max != "" {
		if parsed, err := strconv.ParseFloat(max, 64); err == nil {
			config.MaxCrashMultiplier = parsed
		}
	}
	if size := os.Getenv("TILE_BOARD_SIZE"); size != "" {
		if parsed, err := strconv.Atoi(size); err == nil {
			config.TileBoardSize = parsed
		}
	}
	if mines := os.Getenv("TILE_MINE_COUNT"); mines != "" {
		if parsed, err := strconv.Atoi(mines); err == nil {
			config.TileMineCount = parsed
		}
	}
	if curve := os.Getenv("TILE_CURVE"); curve != "" {
		if parsed, err := strconv.ParseFloat(curve, 64); err == nil {
			config.TileCurve = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	if config.TileMineCount <= 0 || config.TileMineCount >= config.TileBoardSize {
		return nil, fmt.Errorf("TILE_MINE_COUNT must be between 1 and board size - 1")
	}

	return config, nil
}
