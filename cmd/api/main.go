// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/cache"
	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
	"github.com/capitalize-ai/commerce-assistant/internal/config"
	"github.com/capitalize-ai/commerce-assistant/internal/handler"
	"github.com/capitalize-ai/commerce-assistant/internal/intent"
	"github.com/capitalize-ai/commerce-assistant/internal/llm"
	"github.com/capitalize-ai/commerce-assistant/internal/middleware"
	natsclient "github.com/capitalize-ai/commerce-assistant/internal/nats"
	"github.com/capitalize-ai/commerce-assistant/internal/retrieval"
	"github.com/capitalize-ai/commerce-assistant/internal/service"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/tracing"
)

const serviceName = "commerce-assistant"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing installs a no-op provider when disabled
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
		ServiceName: serviceName,
		Environment: cfg.Environment,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Warn("failed to initialize tracing", zap.Error(err))
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	// LLM gateway; without a key the assistant runs on its deterministic paths
	gateway := newGateway(ctx, cfg, log)

	// Catalog source
	src, closeSource, err := newSource(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open catalog source", zap.Error(err))
	}
	defer closeSource()

	// Shared result cache tier
	var store cache.Store
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(cache.RedisConfig{URL: cfg.RedisURL})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache only", zap.Error(err))
		} else {
			store = rs
			defer rs.Close()
		}
	}

	classifier, err := intent.New(gateway, intent.Options{
		CacheSize:  cfg.IntentCacheSize,
		CacheEvict: cfg.IntentCacheEvictBatch,
		RuleAccept: cfg.ConfidenceAcceptRule,
		LLMAccept:  cfg.ConfidenceAcceptLLM,
		Logger:     log,
	})
	if err != nil {
		log.Fatal("failed to create intent classifier", zap.Error(err))
	}

	registry := service.NewRegistry(src, gateway, service.RegistryOptions{
		ArtifactDir: cfg.ArtifactDir,
		Cache: cache.Options{
			TTL:        cfg.DefaultCacheTTL,
			MaxSize:    cfg.CacheMaxSize,
			SessionMax: cfg.SessionCacheMax,
			Store:      store,
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

	// Event bus
	var (
		events     service.EventPublisher
		natsClient *natsclient.Client
		streams    *natsclient.StreamManager
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			Name:     serviceName,
			Instance: uuid.NewString(),
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streams = natsclient.NewStreamManager(natsClient)
		if err := streams.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		events = streams
	}

	chat := service.NewChatService(registry, classifier, events, service.Options{
		Budget:             cfg.ChatBudget,
		MaxUtteranceLength: cfg.MaxUtteranceLength,
		MaxListed:          cfg.MaxListedProducts,
		Logger:             log,
	})

	if streams != nil {
		stopSub, err := streams.SubscribeCatalog(ctx, service.OriginRemote, chat.CatalogChanged)
		if err != nil {
			log.Fatal("failed to subscribe to catalog changes", zap.Error(err))
		}
		defer stopSub()
	}

	// Tenants that must serve the first request without a cold load
	for _, id := range cfg.PreloadTenants {
		if _, err := registry.Get(ctx, id); err != nil {
			log.Fatal("failed to preload tenant", zap.String("tenant_id", id), zap.Error(err))
		}
	}

	go registry.Run(ctx, cfg.SessionSweepInterval)

	if fs, ok := src.(*catalog.FileSource); ok && cfg.CatalogWatch {
		watcher, err := catalog.NewWatcher(fs.Dir(), 0, log)
		if err != nil {
			log.Warn("catalog watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			go func() {
				err := watcher.Run(ctx, func(tenantID string) {
					if err := chat.CatalogChanged(ctx, tenantID, service.OriginWatcher); err != nil {
						log.Warn("catalog reload failed", zap.String("tenant_id", tenantID), zap.Error(err))
					}
				})
				if err != nil {
					log.Warn("catalog watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	// Initialize handlers
	var turns *handler.TurnHandler
	if streams != nil {
		turns = handler.NewTurnHandler(streams, log)
	}
	router := handler.NewRouter(handler.RouterConfig{
		Chat:        handler.NewChatHandler(chat, gateway.Provider(), log),
		Catalog:     handler.NewCatalogHandler(chat, log),
		Health:      handler.NewHealthHandler(natsClient, registry, cfg.PreloadTenants),
		Turns:       turns,
		Logger:      log,
		AuthEnabled: cfg.AuthEnabled,
		JWTSecret:   cfg.JWTSecret,
		RateLimits: middleware.RateLimits{
			Visitor: cfg.RateLimitRequests,
			Tenant:  cfg.RateLimitTenantRequests,
			Window:  cfg.RateLimitWindow,
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) *llm.Gateway {
	provider, key := cfg.LLMCredentials()
	client, err := llm.NewClient(ctx, llm.Provider(provider), key, cfg.LLMModel)
	if err != nil {
		log.Warn("failed to create LLM client, LLM features disabled", zap.String("provider", provider), zap.Error(err))
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
	log.Info("llm gateway ready", zap.String("provider", gw.Provider()), zap.Bool("available", gw.Available()))
	return gw
}

func newSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (catalog.Source, func(), error) {
	if cfg.PostgresDSN == "" {
		return catalog.NewFileSource(cfg.CatalogDir, log), func() {}, nil
	}
	pg, err := catalog.OpenPostgres(ctx, catalog.PostgresOptions{
		DSN:           cfg.PostgresDSN,
		ProductsTable: cfg.ProductsTable,
		BusinessTable: cfg.BusinessTable,
		Logger:        log,
	})
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}
