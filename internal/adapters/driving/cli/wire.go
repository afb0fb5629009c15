package cli

import (
	"context"

	"github.com/custodia-labs/fedreg/internal/adapters/driven/llm"
	"github.com/custodia-labs/fedreg/internal/adapters/driven/metrics/prometheus"
	snapshotfile "github.com/custodia-labs/fedreg/internal/adapters/driven/snapshot/file"
	"github.com/custodia-labs/fedreg/internal/adapters/driven/storage/cache"
	"github.com/custodia-labs/fedreg/internal/adapters/driven/storage/sqlstore"
	"github.com/custodia-labs/fedreg/internal/config"
	frconnector "github.com/custodia-labs/fedreg/internal/connectors/federalregister"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
	"github.com/custodia-labs/fedreg/internal/core/services"
	"github.com/custodia-labs/fedreg/internal/logger"
	frnormaliser "github.com/custodia-labs/fedreg/internal/normalisers/federalregister"
)

// Services used by commands. Each is built on first use; tests assign
// mocks directly.
var (
	pipelineService driving.Pipeline
	agentService    driving.Agent
	searchTool      driving.SearchTool
	documentLookup  driving.DocumentLookup
	metricsRecorder *prometheus.Recorder

	// llmModelName is the model behind agentService, for display.
	llmModelName string
)

var (
	appConfig     *config.Config
	documentStore driven.DocumentStore
	closers       []func() error
)

// loadConfig reads the configuration once per process.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return appConfig, nil
}

// closeResources closes everything opened by the wiring, newest first.
func closeResources() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("closing resource: %v", err)
		}
	}
	closers = nil
}

// metrics returns the process metrics recorder.
func metrics() *prometheus.Recorder {
	if metricsRecorder != nil {
		return metricsRecorder
	}
	provider := ""
	if cfg, err := loadConfig(); err == nil {
		provider = cfg.LLM.Provider
	}
	metricsRecorder = prometheus.NewRecorder(provider)
	return metricsRecorder
}

// storeDSN returns the MySQL DSN, assembling it from discrete settings
// when no DSN is configured.
func storeDSN(s config.StoreConfig) string {
	if s.DSN != "" || s.Driver != config.DriverMySQL {
		return s.DSN
	}
	return sqlstore.MySQLDSN(s.Host, s.Port, s.User, s.Password, s.Name)
}

// openDocumentStore opens the relational store behind the search cache.
func openDocumentStore(cfg *config.Config) (driven.DocumentStore, error) {
	if documentStore != nil {
		return documentStore, nil
	}

	store, err := sqlstore.Open(sqlstore.Config{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DSN:    storeDSN(cfg.Store),
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)
	logger.Debug("document store opened (%s)", store.Driver())

	documentStore = cache.New(store.DocumentStore(), cfg.Search.CacheTTL)
	return documentStore, nil
}

// requirePipeline returns the pipeline, wiring it on first use.
func requirePipeline() (driving.Pipeline, error) {
	if pipelineService != nil {
		return pipelineService, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	docs, err := openDocumentStore(cfg)
	if err != nil {
		return nil, err
	}

	snapshots, err := snapshotfile.NewStore(cfg.Pipeline.SnapshotDir)
	if err != nil {
		return nil, err
	}

	client, err := frconnector.NewClient(frconnector.Config{
		BaseURL:   cfg.Source.BaseURL,
		PerPage:   cfg.Source.PerPage,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.Source.Timeout,
		PageDelay: cfg.Source.PageDelay,
		RateLimit: frconnector.RateLimitConfig{
			RequestsPerSecond: cfg.Source.RequestsPerSecond,
			BurstSize:         cfg.Source.Burst,
		},
	})
	if err != nil {
		return nil, err
	}

	rec := metrics()
	fetcher := services.NewFetcher(client, snapshots, services.FetcherConfig{
		Concurrency:    cfg.Pipeline.Concurrency,
		PageTimeout:    cfg.Pipeline.PageTimeout,
		MaxPagesPerDay: cfg.Pipeline.MaxPagesPerDay,
		Retry:          cfg.Source.Retry.Policy(services.IsTransientFetchError),
	}, rec)
	upserter := services.NewUpserter(snapshots, frnormaliser.New(), docs, rec)

	pipelineService = services.NewPipelineService(fetcher, upserter, snapshots, cfg.Pipeline.WindowDays)
	return pipelineService, nil
}

// requireSearch returns the search tool and document lookup.
func requireSearch() (driving.SearchTool, driving.DocumentLookup, error) {
	if searchTool != nil {
		return searchTool, documentLookup, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	docs, err := openDocumentStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	tool := services.NewQueryTool(docs, services.QueryToolConfig{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}, metrics())
	searchTool = tool
	documentLookup = tool
	return searchTool, documentLookup, nil
}

// requireAgent returns the agent. It fails when no API key is configured.
func requireAgent(ctx context.Context) (driving.Agent, error) {
	if agentService != nil {
		return agentService, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}

	tool, _, err := requireSearch()
	if err != nil {
		return nil, err
	}

	provider, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, llm.Settings{
		Provider: provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, client.Close)
	llmModelName = client.ModelName()

	agentService = services.NewAgentService(client, tool, services.AgentConfig{
		LLMTimeout:        cfg.LLM.Timeout,
		MaxReformulations: cfg.LLM.MaxReformulations,
		Retry:             cfg.LLM.Retry.Policy(services.IsTransientLLMError),
		SystemPrompt:      cfg.LLM.SystemPrompt,
	}, metrics())
	return agentService, nil
}

// optionalAgent returns the agent when an LLM is configured, nil otherwise.
func optionalAgent(ctx context.Context) (driving.Agent, error) {
	agent, err := requireAgent(ctx)
	if err == nil {
		return agent, nil
	}
	if cfg, cfgErr := loadConfig(); cfgErr == nil && cfg.RequireLLM() != nil {
		logger.Debug("agent disabled: %v", err)
		return nil, nil
	}
	return nil, err
}

// writeTextfile exports metrics when a textfile path is set.
func writeTextfile(path string) {
	if path == "" {
		return
	}
	if err := metrics().WriteTextfile(path); err != nil {
		logger.Warn("writing metrics textfile: %v", err)
		return
	}
	logger.Debug("metrics written to %s", path)
}
