package main

import (
	"context"
	"fmt"

	"github.com/capitalize-ai/commerce-assistant/internal/cache"
	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
	"github.com/capitalize-ai/commerce-assistant/internal/intent"
	"github.com/capitalize-ai/commerce-assistant/internal/llm"
	"github.com/capitalize-ai/commerce-assistant/internal/retrieval"
	"github.com/capitalize-ai/commerce-assistant/internal/service"
)

// assistant is an in-process assistant over the configured catalog.
type assistant struct {
	source   catalog.Source
	gateway  *llm.Gateway
	registry *service.Registry
	chat     *service.ChatService
	close    func()
}

func newAssistant(ctx context.Context) (*assistant, error) {
	var (
		src     catalog.Source
		closeFn = func() {}
	)
	if cfg.PostgresDSN != "" {
		pg, err := catalog.OpenPostgres(ctx, catalog.PostgresOptions{
			DSN:           cfg.PostgresDSN,
			ProductsTable: cfg.ProductsTable,
			BusinessTable: cfg.BusinessTable,
			Logger:        log,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		src = pg
		closeFn = func() { pg.Close() }
	} else {
		src = catalog.NewFileSource(cfg.CatalogDir, log)
	}

	provider, key := cfg.LLMCredentials()
	client, err := llm.NewClient(ctx, llm.Provider(provider), key, cfg.LLMModel)
	if err != nil {
		warn("LLM client unavailable, running without it: %v", err)
		client = nil
	}
	gw := llm.NewGateway(client, llm.GatewayOptions{
		Timeouts: llm.Timeouts{
			Classify: cfg.LLMClassifyTimeout,
			Rewrite:  cfg.LLMRewriteTimeout,
			Validate: cfg.LLMValidateTimeout,
		},
		Concurrency: int64(cfg.LLMConcurrency),
		Logger:      log,
	})

	classifier, err := intent.New(gw, intent.Options{
		CacheSize:  cfg.IntentCacheSize,
		CacheEvict: cfg.IntentCacheEvictBatch,
		RuleAccept: cfg.ConfidenceAcceptRule,
		LLMAccept:  cfg.ConfidenceAcceptLLM,
		Logger:     log,
	})
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	reg := service.NewRegistry(src, gw, service.RegistryOptions{
		ArtifactDir: cfg.ArtifactDir,
		Cache: cache.Options{
			TTL:        cfg.DefaultCacheTTL,
			MaxSize:    cfg.CacheMaxSize,
			SessionMax: cfg.SessionCacheMax,
		},
		Retrieval: retrieval.Options{
			MaxResults:      cfg.RetrieverMaxResults,
			SpecificMax:     cfg.RetrieverSpecificMax,
			VerySpecificMax: cfg.RetrieverVerySpecificMax,
			RewriteBudget:   cfg.LLMRewriteTimeout,
		},
		SessionIdleTTL: cfg.SessionIdleTTL,
		LoadTimeout:    cfg.TenantLoadTimeout,
		Logger:         log,
	})

	return &assistant{
		source:   src,
		gateway:  gw,
		registry: reg,
		chat: service.NewChatService(reg, classifier, nil, service.Options{
			Budget:             cfg.ChatBudget,
			MaxUtteranceLength: cfg.MaxUtteranceLength,
			MaxListed:          cfg.MaxListedProducts,
			Logger:             log,
		}),
		close: closeFn,
	}, nil
}

func (a *assistant) Close() {
	a.close()
}
