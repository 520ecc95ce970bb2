// Package config loads service and solver settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		// MaxBodyBytes bounds POSTed instances.
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"33554432"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Database struct {
		Type     string `env:"DB_TYPE" envDefault:"memory"`
		DSN      string `env:"DB_DSN"`
		MaxConns int    `env:"DB_MAX_CONNS" envDefault:"1"`
	}
	Optimization struct {
		// WorkerCount bounds concurrently running searches.
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"4"`
		// MaxTimeBudget caps the time budget a client may request; 0 = no cap.
		MaxTimeBudget time.Duration `env:"OPT_MAX_TIME_BUDGET" envDefault:"5m"`
	}
	Search Search
}

// Search holds the default run configuration applied to requests that do
// not override it and to the CLI.
type Search struct {
	Seed            uint64        `env:"SEARCH_SEED" envDefault:"0"`
	Algorithm       string        `env:"SEARCH_ALGORITHM" envDefault:"steepest-search"`
	NearestNeighbor bool          `env:"SEARCH_NEAREST_NEIGHBOR" envDefault:"false"`
	Moves           []string      `env:"SEARCH_MOVES" envSeparator:"," envDefault:"node-swap,edge-reversal"`
	TimeBudget      time.Duration `env:"SEARCH_TIME_BUDGET" envDefault:"0s"`
	MaxIterations   int           `env:"SEARCH_MAX_ITERATIONS" envDefault:"1000"`
	RecordHistory   bool          `env:"SEARCH_RECORD_HISTORY" envDefault:"false"`

	InitialTemperature    float64 `env:"SA_INITIAL_TEMPERATURE" envDefault:"1000"`
	CoolingRate           float64 `env:"SA_COOLING_RATE" envDefault:"0.95"`
	ChainLengthMultiplier int     `env:"SA_CHAIN_LENGTH_MULTIPLIER" envDefault:"1"`
	ToleranceIterations   int     `env:"SA_TOLERANCE_ITERATIONS" envDefault:"10"`

	TabuTenureMultiplier int `env:"TABU_TENURE_MULTIPLIER" envDefault:"1"`
	CandidateListSize    int `env:"TABU_CANDIDATE_LIST_SIZE" envDefault:"20"`
	Patience             int `env:"TABU_PATIENCE" envDefault:"100"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// Default returns the configuration an empty environment produces.
func Default() (*Config, error) {
	return load(env.Options{Environment: map[string]string{}})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	switch cfg.Database.Type {
	case "memory":
	case "sqlite":
		if cfg.Database.DSN == "" {
			if err := os.MkdirAll("data", 0o755); err != nil {
				return nil, err
			}
			cfg.Database.DSN = "file:" + filepath.Join("data", "atsp.db") + "?_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (want memory or sqlite)", cfg.Database.Type)
	}

	if cfg.Optimization.WorkerCount < 1 {
		return nil, fmt.Errorf("OPT_WORKER_COUNT must be >= 1 (got %d)", cfg.Optimization.WorkerCount)
	}

	if _, err := cfg.SearchConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchConfig converts the Search block into a validated run configuration.
func (c *Config) SearchConfig() (search.Config, error) {
	return c.Search.Config()
}

// Config converts s into a validated run configuration.
func (s Search) Config() (search.Config, error) {
	alg, err := search.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return search.Config{}, err
	}
	kinds, err := moves.ParseKindSet(strings.Join(s.Moves, ","))
	if err != nil {
		return search.Config{}, err
	}

	cfg := search.Config{
		Seed:                  s.Seed,
		Algorithm:             alg,
		NearestNeighbor:       s.NearestNeighbor,
		Moves:                 kinds,
		TimeBudget:            s.TimeBudget,
		MaxIterations:         s.MaxIterations,
		InitialTemperature:    s.InitialTemperature,
		CoolingRate:           s.CoolingRate,
		ChainLengthMultiplier: s.ChainLengthMultiplier,
		ToleranceIterations:   s.ToleranceIterations,
		TabuTenureMultiplier:  s.TabuTenureMultiplier,
		CandidateListSize:     s.CandidateListSize,
		Patience:              s.Patience,
		RecordHistory:         s.RecordHistory,
	}
	if err := cfg.Validate(); err != nil {
		return search.Config{}, err
	}
	return cfg, nil
}

// LoggingConfig adapts the Logging block for logging.NewLogger.
func (c *Config) LoggingConfig() *logging.Config {
	return &logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns the value of the environment variable as int or the default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool returns the value of the environment variable as bool or the default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
