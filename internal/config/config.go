package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Host         string   `koanf:"host" validate:"required"`
	Port         int      `koanf:"port" validate:"gte=1,lte=65535"`
	AllowOrigins []string `koanf:"allow_origins"`
	LogLevel     string   `koanf:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFile      string   `koanf:"log_file"`
	MaxUploadMB  int      `koanf:"max_upload_mb" validate:"gte=1"`
	TaxonomyFile string   `koanf:"taxonomy_file"`

	Store     StoreConfig     `koanf:"store"`
	Seed      SeedConfig      `koanf:"seed"`
	Predict   PredictConfig   `koanf:"predict"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type StoreConfig struct {
	Driver  string        `koanf:"driver" validate:"oneof=memory sqlite postgres"`
	DSN     string        `koanf:"dsn"`
	Breaker BreakerConfig `koanf:"breaker"`
}

type BreakerConfig struct {
	Name             string        `koanf:"name"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
}

// SeedConfig: таблицы, загружаемые в хранилище при старте (CSV/XLS/XLSX).
type SeedConfig struct {
	CollegesFile string `koanf:"colleges_file"`
	CutoffsFile  string `koanf:"cutoffs_file"`
	HeaderRow    int    `koanf:"header_row" validate:"gte=1"`
}

// PredictConfig: нулевой порог совпадения означал бы "брать всё", такого режима нет.
type PredictConfig struct {
	ResultCap        int     `koanf:"result_cap" validate:"gte=1"`
	MatchThreshold   float64 `koanf:"match_threshold" validate:"gt=0,lte=100"`
	DefaultTolerance float64 `koanf:"default_tolerance" validate:"gt=0,lte=100"`
}

// RateLimitConfig: Requests == 0 выключает лимит.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gte=0"`
	Window   time.Duration `koanf:"window"`
}

func defaults() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8082,
		AllowOrigins: []string{"*"},
		LogLevel:     "info",
		LogFile:      "logs/cutoff-predictor.log",
		MaxUploadMB:  64,
		Store: StoreConfig{
			Driver: "memory",
			Breaker: BreakerConfig{
				Name:             "store",
				FailureThreshold: 5,
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
			},
		},
		Seed:      SeedConfig{HeaderRow: 1},
		Predict:   PredictConfig{ResultCap: 200, MatchThreshold: 60, DefaultTolerance: 10},
		RateLimit: RateLimitConfig{Requests: 120, Window: time.Minute},
	}
}

// envKeys: переменная окружения -> ключ koanf. Остальное окружение игнорируем.
var envKeys = map[string]string{
	"HOST":                      "host",
	"PORT":                      "port",
	"ALLOW_ORIGINS":             "allow_origins",
	"LOG_LEVEL":                 "log_level",
	"LOG_FILE":                  "log_file",
	"MAX_UPLOAD_MB":             "max_upload_mb",
	"TAXONOMY_FILE":             "taxonomy_file",
	"STORE_DRIVER":              "store.driver",
	"STORE_DSN":                 "store.dsn",
	"STORE_BREAKER_THRESHOLD":   "store.breaker.failure_threshold",
	"STORE_BREAKER_TIMEOUT":     "store.breaker.timeout",
	"SEED_COLLEGES_FILE":        "seed.colleges_file",
	"SEED_CUTOFFS_FILE":         "seed.cutoffs_file",
	"SEED_HEADER_ROW":           "seed.header_row",
	"PREDICT_RESULT_CAP":        "predict.result_cap",
	"PREDICT_MATCH_THRESHOLD":   "predict.match_threshold",
	"PREDICT_DEFAULT_TOLERANCE": "predict.default_tolerance",
	"RATE_LIMIT_REQUESTS":       "rate_limit.requests",
	"RATE_LIMIT_WINDOW":         "rate_limit.window",
}

// Load: дефолты -> YAML (CONFIG_PATH, если задан) -> окружение.
func Load() (Config, error) {
	return load(os.Getenv("CONFIG_PATH"))
}

func load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	// ALLOW_ORIGINS приходит строкой "a,b,c"
	if raw, ok := k.Get("allow_origins").(string); ok {
		if err := k.Set("allow_origins", splitList(raw)); err != nil {
			return Config{}, fmt.Errorf("config: allow_origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return errors.New("config: store.dsn is required for the postgres driver")
	}
	return nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
