package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cheyenne-cl/firegeo/internal/credits"
	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/pipeline"
	"github.com/cheyenne-cl/firegeo/internal/scrape"
	"github.com/cheyenne-cl/firegeo/internal/store"
	"github.com/cheyenne-cl/firegeo/pkg/firecrawl"
)

// mockResponseDelay paces fake provider calls so streamed progress is
// visible during local development.
const mockResponseDelay = 100 * time.Millisecond

// pipelineEnv holds the initialized store, clients, and pipeline shared
// by the serve/analyze commands.
type pipelineEnv struct {
	Store    store.Store
	Registry *llm.Registry
	Scraper  scrape.Scraper
	Ledger   credits.Ledger
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.Path)
}

// initRegistry builds the provider registry from configured credentials.
func initRegistry() (*llm.Registry, error) {
	return llm.NewRegistry(llm.Credentials{
		OpenAIKey:         cfg.OpenAI.Key,
		OpenAIModel:       cfg.OpenAI.Model,
		AnthropicKey:      cfg.Anthropic.Key,
		AnthropicModel:    cfg.Anthropic.Model,
		PerplexityKey:     cfg.Perplexity.Key,
		PerplexityBaseURL: cfg.Perplexity.BaseURL,
		PerplexityModel:   cfg.Perplexity.Model,
	}, llm.WithRateLimit(cfg.Analysis.RatePerSecond))
}

// initPipeline sets up the store, provider registry, and pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry, err := initRegistry()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var configured []string
	for _, p := range registry.Configured() {
		configured = append(configured, p.ID)
	}
	if len(configured) == 0 && !cfg.Analysis.MockMode {
		zap.L().Warn("no AI provider keys configured, analysis requests will fail")
	} else {
		zap.L().Info("providers configured", zap.Strings("providers", configured))
	}

	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))

	opts := []pipeline.Option{
		pipeline.WithStore(st),
		pipeline.WithMaxConcurrent(cfg.Analysis.MaxConcurrent),
		pipeline.WithMaxCompetitors(cfg.Analysis.MaxCompetitors),
	}
	if cfg.Analysis.MockMode {
		zap.L().Info("mock mode enabled, provider calls are simulated")
		opts = append(opts, pipeline.WithMockMode(mockResponseDelay))
	}

	return &pipelineEnv{
		Store:    st,
		Registry: registry,
		Scraper:  scrape.New(firecrawlClient, registry),
		Ledger:   credits.NewLedger(st, cfg.Credits.Balance, cfg.Credits.AnalysisCost),
		Pipeline: pipeline.New(registry, opts...),
	}, nil
}
