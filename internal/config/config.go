// Package config loads the fedreg configuration from an optional TOML file,
// a .env file and environment variables.
//
// Precedence, highest first:
//
//	FEDREG_* variables (FEDREG_LLM_API_KEY, FEDREG_STORE_DSN, ...)
//	legacy variables (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME,
//	GOOGLE_API_KEY, OPENAI_API_KEY)
//	the TOML file
//	built-in defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/logger"
	"github.com/custodia-labs/fedreg/internal/retry"
)

// EnvPrefix prefixes every fedreg environment variable.
const EnvPrefix = "FEDREG"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the complete, validated configuration. It is built once at
// start-up and not modified afterwards.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Source   SourceConfig   `mapstructure:"source"`
	Store    StoreConfig    `mapstructure:"store"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// PipelineConfig configures the daily run.
type PipelineConfig struct {
	WindowDays     int           `mapstructure:"window_days"`
	Concurrency    int           `mapstructure:"concurrency"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
	MaxPagesPerDay int           `mapstructure:"max_pages_per_day"`
	SnapshotDir    string        `mapstructure:"snapshot_dir"`
	Schedule       string        `mapstructure:"schedule"`
}

// SourceConfig configures the Federal Register API client.
type SourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	PerPage           int           `mapstructure:"per_page"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// StoreConfig selects the relational store.
// For MySQL either DSN or the discrete Host/Name settings are used.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// LLMConfig configures the agent's language model.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxReformulations int           `mapstructure:"max_reformulations"`
	SystemPrompt      string        `mapstructure:"system_prompt"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// SearchConfig bounds the search tool.
type SearchConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile written after each run. Empty disables it.
	Textfile string `mapstructure:"textfile"`
}

// RetryConfig is the serialisable form of a retry.Policy.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// Policy converts the settings into a retry policy with the given predicate.
func (r RetryConfig) Policy(retryable func(error) bool) retry.Policy {
	return retry.Policy{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay,
		MaxDelay:     r.MaxDelay,
		Multiplier:   r.Multiplier,
		Retryable:    retryable,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			WindowDays:     7,
			Concurrency:    4,
			PageTimeout:    60 * time.Second,
			MaxPagesPerDay: 100,
			Schedule:       "0 6 * * *",
		},
		Source: SourceConfig{
			BaseURL:           "https://www.federalregister.gov/api/v1",
			PerPage:           1000,
			UserAgent:         "fedreg/1.0 (DailyUpdater)",
			Timeout:           120 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			PageDelay:         200 * time.Millisecond,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Second,
				MaxDelay:     30 * time.Second,
				Multiplier:   2,
			},
		},
		Store: StoreConfig{
			Port: 3306,
		},
		LLM: LLMConfig{
			Provider:          ProviderGemini,
			Timeout:           60 * time.Second,
			MaxReformulations: 2,
			Retry: RetryConfig{
				MaxAttempts:  2,
				InitialDelay: 2 * time.Second,
				MaxDelay:     10 * time.Second,
				Multiplier:   2,
			},
		},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxLimit:     50,
			CacheTTL:     time.Minute,
		},
	}
}

// DefaultPath returns ~/.fedreg/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".fedreg", "config.toml"), nil
}

// legacyEnv maps keys to the variable names used by earlier deployments.
var legacyEnv = map[string]string{
	"store.host":     "DB_HOST",
	"store.port":     "DB_PORT",
	"store.user":     "DB_USER",
	"store.password": "DB_PASSWORD",
	"store.name":     "DB_NAME",
}

// Load builds the configuration.
// An explicit path must exist; an empty path reads ~/.fedreg/config.toml
// when present. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+envName(key), env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := readFile(v, path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigInvalid, err)
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: reading %s: %w", domain.ErrConfigInvalid, path, err)
}

func readFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			logger.Debug("no default config file: %v", err)
			return nil
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: config file: %w", domain.ErrConfigInvalid, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: reading %s: %w", domain.ErrConfigInvalid, path, err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("pipeline.window_days", d.Pipeline.WindowDays)
	v.SetDefault("pipeline.concurrency", d.Pipeline.Concurrency)
	v.SetDefault("pipeline.page_timeout", d.Pipeline.PageTimeout)
	v.SetDefault("pipeline.max_pages_per_day", d.Pipeline.MaxPagesPerDay)
	v.SetDefault("pipeline.snapshot_dir", d.Pipeline.SnapshotDir)
	v.SetDefault("pipeline.schedule", d.Pipeline.Schedule)

	v.SetDefault("source.base_url", d.Source.BaseURL)
	v.SetDefault("source.per_page", d.Source.PerPage)
	v.SetDefault("source.user_agent", d.Source.UserAgent)
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.requests_per_second", d.Source.RequestsPerSecond)
	v.SetDefault("source.burst", d.Source.Burst)
	v.SetDefault("source.page_delay", d.Source.PageDelay)
	setRetryDefaults(v, "source.retry", d.Source.Retry)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.host", d.Store.Host)
	v.SetDefault("store.port", d.Store.Port)
	v.SetDefault("store.user", d.Store.User)
	v.SetDefault("store.password", d.Store.Password)
	v.SetDefault("store.name", d.Store.Name)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_reformulations", d.LLM.MaxReformulations)
	v.SetDefault("llm.system_prompt", d.LLM.SystemPrompt)
	setRetryDefaults(v, "llm.retry", d.LLM.Retry)

	v.SetDefault("search.default_limit", d.Search.DefaultLimit)
	v.SetDefault("search.max_limit", d.Search.MaxLimit)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

func setRetryDefaults(v *viper.Viper, prefix string, r RetryConfig) {
	v.SetDefault(prefix+".max_attempts", r.MaxAttempts)
	v.SetDefault(prefix+".initial_delay", r.InitialDelay)
	v.SetDefault(prefix+".max_delay", r.MaxDelay)
	v.SetDefault(prefix+".multiplier", r.Multiplier)
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// resolve fills values derived from other settings.
func (c *Config) resolve() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
		if c.Store.DSN != "" || c.Store.Host != "" {
			c.Store.Driver = DriverMySQL
		}
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Validate checks every section. The LLM API key is checked separately by
// RequireLLM since only the agent commands need it.
func (c *Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.WindowDays < 1:
		return invalid("pipeline.window_days must be at least 1, got %d", p.WindowDays)
	case p.Concurrency < 1:
		return invalid("pipeline.concurrency must be at least 1, got %d", p.Concurrency)
	case p.PageTimeout <= 0:
		return invalid("pipeline.page_timeout must be positive")
	case p.MaxPagesPerDay < 1:
		return invalid("pipeline.max_pages_per_day must be at least 1, got %d", p.MaxPagesPerDay)
	}

	s := c.Source
	switch {
	case s.BaseURL == "":
		return invalid("source.base_url is required")
	case s.PerPage < 1 || s.PerPage > 1000:
		return invalid("source.per_page must be 1-1000, got %d", s.PerPage)
	case s.Timeout <= 0:
		return invalid("source.timeout must be positive")
	case s.RequestsPerSecond <= 0:
		return invalid("source.requests_per_second must be positive")
	case s.Burst < 1:
		return invalid("source.burst must be at least 1, got %d", s.Burst)
	case s.PageDelay < 0:
		return invalid("source.page_delay must not be negative")
	}
	if err := s.Retry.validate("source.retry"); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMySQL:
		if c.Store.DSN == "" && (c.Store.Host == "" || c.Store.Name == "") {
			return invalid("store: mysql needs dsn or host and name")
		}
	default:
		return invalid("store.driver must be %q or %q, got %q", DriverSQLite, DriverMySQL, c.Store.Driver)
	}

	l := c.LLM
	switch {
	case l.Provider != ProviderOpenAI && l.Provider != ProviderGemini:
		return invalid("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, l.Provider)
	case l.Timeout <= 0:
		return invalid("llm.timeout must be positive")
	case l.MaxReformulations < 0:
		return invalid("llm.max_reformulations must not be negative")
	}
	if err := l.Retry.validate("llm.retry"); err != nil {
		return err
	}

	q := c.Search
	switch {
	case q.DefaultLimit < 1:
		return invalid("search.default_limit must be at least 1, got %d", q.DefaultLimit)
	case q.MaxLimit < q.DefaultLimit:
		return invalid("search.max_limit (%d) must not be below default_limit (%d)", q.MaxLimit, q.DefaultLimit)
	case q.CacheTTL < 0:
		return invalid("search.cache_ttl must not be negative")
	}
	return nil
}

// RequireLLM reports a missing API key for the configured provider.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	hint := "OPENAI_API_KEY"
	if c.LLM.Provider == ProviderGemini {
		hint = "GOOGLE_API_KEY"
	}
	return invalid("llm.api_key is required for %s (set %s_LLM_API_KEY or %s)", c.LLM.Provider, EnvPrefix, hint)
}

func (r RetryConfig) validate(prefix string) error {
	switch {
	case r.MaxAttempts < 1:
		return invalid("%s.max_attempts must be at least 1, got %d", prefix, r.MaxAttempts)
	case r.InitialDelay < 0 || r.MaxDelay < 0:
		return invalid("%s delays must not be negative", prefix)
	case r.Multiplier < 1:
		return invalid("%s.multiplier must be at least 1, got %g", prefix, r.Multiplier)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
