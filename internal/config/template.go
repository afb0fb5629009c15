package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrFileExists is returned by WriteDefault when the target exists and
// overwrite was not requested.
var ErrFileExists = errors.New("config file already exists")

// fileConfig mirrors Config with durations as strings, in the layout
// written to disk.
type fileConfig struct {
	Pipeline filePipeline `toml:"pipeline"`
	Source   fileSource   `toml:"source"`
	Store    fileStore    `toml:"store"`
	LLM      fileLLM      `toml:"llm"`
	Search   fileSearch   `toml:"search"`
	Metrics  fileMetrics  `toml:"metrics"`
}

type filePipeline struct {
	WindowDays     int    `toml:"window_days" comment:"Days fetched per run, ending at today (UTC)."`
	Concurrency    int    `toml:"concurrency" comment:"Days fetched at once."`
	PageTimeout    string `toml:"page_timeout" comment:"Bound on each page request attempt."`
	MaxPagesPerDay int    `toml:"max_pages_per_day"`
	SnapshotDir    string `toml:"snapshot_dir" comment:"Raw snapshot directory. Empty uses ~/.fedreg/raw_data."`
	Schedule       string `toml:"schedule" comment:"Cron expression used by 'fedreg schedule' (UTC)."`
}

type fileRetry struct {
	MaxAttempts  int     `toml:"max_attempts"`
	InitialDelay string  `toml:"initial_delay"`
	MaxDelay     string  `toml:"max_delay"`
	Multiplier   float64 `toml:"multiplier"`
}

type fileSource struct {
	BaseURL           string    `toml:"base_url"`
	PerPage           int       `toml:"per_page"`
	UserAgent         string    `toml:"user_agent"`
	Timeout           string    `toml:"timeout"`
	RequestsPerSecond float64   `toml:"requests_per_second"`
	Burst             int       `toml:"burst"`
	PageDelay         string    `toml:"page_delay" comment:"Pause between pages of one day."`
	Retry             fileRetry `toml:"retry"`
}

type fileStore struct {
	Driver   string `toml:"driver" comment:"sqlite or mysql. Empty picks mysql when dsn or host is set."`
	Path     string `toml:"path" comment:"SQLite file. Empty uses ~/.fedreg/data/fedreg.db."`
	DSN      string `toml:"dsn" comment:"MySQL DSN or mysql:// URL. Overrides host/port/user/password/name."`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

type fileLLM struct {
	Provider          string    `toml:"provider" comment:"gemini or openai."`
	Model             string    `toml:"model" comment:"Empty uses the provider default."`
	APIKey            string    `toml:"api_key" comment:"Prefer FEDREG_LLM_API_KEY, GOOGLE_API_KEY or OPENAI_API_KEY."`
	BaseURL           string    `toml:"base_url" comment:"OpenAI-compatible server URL, or a Gemini endpoint override."`
	Timeout           string    `toml:"timeout"`
	MaxReformulations int       `toml:"max_reformulations" comment:"Malformed tool calls tolerated per turn."`
	SystemPrompt      string    `toml:"system_prompt" comment:"Empty uses the built-in prompt. {{today}} is replaced."`
	Retry             fileRetry `toml:"retry"`
}

type fileSearch struct {
	DefaultLimit int    `toml:"default_limit"`
	MaxLimit     int    `toml:"max_limit"`
	CacheTTL     string `toml:"cache_ttl"`
}

type fileMetrics struct {
	Textfile string `toml:"textfile" comment:"Node-exporter textfile written after each run."`
}

func toFileRetry(r RetryConfig) fileRetry {
	return fileRetry{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay.String(),
		MaxDelay:     r.MaxDelay.String(),
		Multiplier:   r.Multiplier,
	}
}

func toFile(c Config) fileConfig {
	return fileConfig{
		Pipeline: filePipeline{
			WindowDays:     c.Pipeline.WindowDays,
			Concurrency:    c.Pipeline.Concurrency,
			PageTimeout:    c.Pipeline.PageTimeout.String(),
			MaxPagesPerDay: c.Pipeline.MaxPagesPerDay,
			SnapshotDir:    c.Pipeline.SnapshotDir,
			Schedule:       c.Pipeline.Schedule,
		},
		Source: fileSource{
			BaseURL:           c.Source.BaseURL,
			PerPage:           c.Source.PerPage,
			UserAgent:         c.Source.UserAgent,
			Timeout:           c.Source.Timeout.String(),
			RequestsPerSecond: c.Source.RequestsPerSecond,
			Burst:             c.Source.Burst,
			PageDelay:         c.Source.PageDelay.String(),
			Retry:             toFileRetry(c.Source.Retry),
		},
		Store: fileStore{
			Driver:   c.Store.Driver,
			Path:     c.Store.Path,
			DSN:      c.Store.DSN,
			Host:     c.Store.Host,
			Port:     c.Store.Port,
			User:     c.Store.User,
			Password: c.Store.Password,
			Name:     c.Store.Name,
		},
		LLM: fileLLM{
			Provider:          c.LLM.Provider,
			Model:             c.LLM.Model,
			APIKey:            c.LLM.APIKey,
			BaseURL:           c.LLM.BaseURL,
			Timeout:           c.LLM.Timeout.String(),
			MaxReformulations: c.LLM.MaxReformulations,
			SystemPrompt:      c.LLM.SystemPrompt,
			Retry:             toFileRetry(c.LLM.Retry),
		},
		Search: fileSearch{
			DefaultLimit: c.Search.DefaultLimit,
			MaxLimit:     c.Search.MaxLimit,
			CacheTTL:     c.Search.CacheTTL.String(),
		},
		Metrics: fileMetrics{Textfile: c.Metrics.Textfile},
	}
}

// MarshalDefault renders the default configuration as TOML.
func MarshalDefault() ([]byte, error) {
	return toml.Marshal(toFile(Default()))
}

// WriteDefault writes the default configuration to path. An empty path
// uses DefaultPath. An existing file is kept unless overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%w: %s", ErrFileExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return path, err
		}
	}

	data, err := MarshalDefault()
	if err != nil {
		return path, fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return path, fmt.Errorf("creating config directory: %w", err)
	}

	// Write with restricted permissions
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
