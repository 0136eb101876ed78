package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamashdown/batchplanner/internal/secrets"
	"github.com/liamashdown/batchplanner/internal/wager"
	"github.com/sirupsen/logrus"
)

// InputFormat selects how the wager file is decoded
type InputFormat string

const (
	InputFormatAuto InputFormat = ""
	InputFormatJSON InputFormat = "json"
	InputFormatYAML InputFormat = "yaml"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string

	// Input
	InputPath   string
	InputFormat InputFormat

	// Planning
	AsOf             *int64 // unix seconds, nil means "now" at startup
	BatchSize        int
	DefaultDayOffset int64

	// Script generation
	OutputDir        string
	StartBatch       int // 0 means continue after the highest existing script
	ContractName     string
	ContractImport   string
	PrivateKeyEnv    string
	MarketAddressEnv string

	// Summary commands
	ForgeScript string
	RPCURLEnv   string

	// Logging
	LogLevel  string
	LogFormat string // json, text

	// Metrics
	MetricsTextfile string

	// Ledger database, disabled when DSN is empty
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration
}

// Load reads configuration from environment variables, after loading .env if
// present. Numeric variables that are set but malformed are errors. Load does
// not validate; callers apply their overrides and then call Validate.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn, err := secrets.Lookup("DATABASE_DSN", "")
	if err != nil {
		return nil, fmt.Errorf("load DATABASE_DSN: %w", err)
	}

	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "production"),
		InputPath:        getEnv("INPUT_PATH", "mock_bet_data.json"),
		InputFormat:      InputFormat(strings.ToLower(getEnv("INPUT_FORMAT", ""))),
		OutputDir:        getEnv("OUTPUT_DIR", "script/batch_scripts"),
		ContractName:     getEnv("CONTRACT_NAME", "TorchPredictionMarket"),
		ContractImport:   getEnv("CONTRACT_IMPORT", "../../src/TorchPredictionMarket.sol"),
		PrivateKeyEnv:    getEnv("PRIVATE_KEY_ENV", "MAINNET_PRIVATE_KEY"),
		MarketAddressEnv: getEnv("MARKET_ADDRESS_ENV", "MAINNET_MARKET_ADDRESS_V4"),
		ForgeScript:      getEnv("FORGE_SCRIPT", "script/PlaceBatchBets.s.sol"),
		RPCURLEnv:        getEnv("RPC_URL_ENV", "MAINNET_RPC_URL"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		MetricsTextfile:  getEnv("METRICS_TEXTFILE", ""),
		DatabaseDSN:      dsn,
	}

	if value, ok := lookupEnv("AS_OF"); ok {
		asOf, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid AS_OF %q: must be a unix timestamp", value)
		}
		cfg.AsOf = &asOf
	}

	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", wager.MaxBatchSize); err != nil {
		return nil, &wager.InvalidConfigurationError{Setting: "BATCH_SIZE", Value: strings.TrimSpace(os.Getenv("BATCH_SIZE")), Reason: "must be an integer"}
	}
	if cfg.DefaultDayOffset, err = getEnvInt64("DEFAULT_DAY_OFFSET", 2); err != nil {
		return nil, err
	}
	if cfg.StartBatch, err = getEnvInt("START_BATCH", 0); err != nil {
		return nil, err
	}
	if cfg.DatabaseMaxConns, err = getEnvInt("DATABASE_MAX_CONNS", 4); err != nil {
		return nil, err
	}
	idleMins, err := getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseMaxIdleTime = time.Duration(idleMins) * time.Minute

	return cfg, nil
}

// ReferenceTime returns the configured AS_OF, or now when none was given
func (c *Config) ReferenceTime(now time.Time) int64 {
	if c.AsOf != nil {
		return *c.AsOf
	}
	return now.Unix()
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("INPUT_PATH is required")
	}

	switch c.InputFormat {
	case InputFormatAuto, InputFormatJSON, InputFormatYAML:
	default:
		return fmt.Errorf("invalid INPUT_FORMAT: %s (must be json or yaml)", c.InputFormat)
	}

	if c.BatchSize < 1 {
		return &wager.InvalidConfigurationError{Setting: "BATCH_SIZE", Value: strconv.Itoa(c.BatchSize), Reason: "must be at least 1"}
	}
	if c.BatchSize > wager.MaxBatchSize {
		return &wager.InvalidConfigurationError{
			Setting: "BATCH_SIZE",
			Value:   strconv.Itoa(c.BatchSize),
			Reason:  fmt.Sprintf("contract accepts at most %d wagers per batch", wager.MaxBatchSize),
		}
	}

	if c.AsOf != nil && *c.AsOf < 0 {
		return fmt.Errorf("AS_OF must be a unix timestamp, got %d", *c.AsOf)
	}
	if c.DefaultDayOffset < 0 {
		return fmt.Errorf("DEFAULT_DAY_OFFSET must not be negative, got %d", c.DefaultDayOffset)
	}
	if c.StartBatch < 0 {
		return fmt.Errorf("START_BATCH must not be negative, got %d", c.StartBatch)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT value: %s (valid values: json, text)", c.LogFormat)
	}

	if c.DatabaseDSN != "" && c.DatabaseMaxConns < 1 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be at least 1 when DATABASE_DSN is set")
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, ok := lookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, value)
	}
	return intVal, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value, ok := lookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, value)
	}
	return intVal, nil
}
