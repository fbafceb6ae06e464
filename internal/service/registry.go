// Package service hosts the chat orchestrator and the per-tenant registry it
// draws its components from.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/cache"
	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
	"github.com/capitalize-ai/commerce-assistant/internal/index"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/retrieval"
	"github.com/capitalize-ai/commerce-assistant/internal/session"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

const (
	// DefaultSweepInterval is how often idle sessions are collected.
	DefaultSweepInterval = time.Minute

	// DefaultLoadTimeout bounds a tenant's first load.
	DefaultLoadTimeout = 30 * time.Second
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// ArtifactDir holds persisted indexes. Empty disables persistence.
	ArtifactDir string
	// Cache is the template for every tenant cache; Namespace is overridden.
	Cache          cache.Options
	Retrieval      retrieval.Options
	SessionIdleTTL time.Duration
	Logger         *logger.Logger
	Now            func() time.Time

	// LoadTimeout bounds a first load independently of the request that
	// triggered it.
	LoadTimeout time.Duration
}

// modTimer is implemented by sources that can tell when a catalog changed.
type modTimer interface {
	ModTime(tenantID string) (time.Time, error)
}

// Tenant bundles the components one tenant owns exclusively.
type Tenant struct {
	ID        string
	Retriever *retrieval.Retriever
	Cache     *cache.ResultCache
	Sessions  *session.Manager

	business atomic.Pointer[model.BusinessInfo]

	total, successful atomic.Int64
	latency           atomic.Int64
}

// Business returns the tenant's current business metadata.
func (t *Tenant) Business() model.BusinessInfo {
	if b := t.business.Load(); b != nil {
		return *b
	}
	return model.DefaultBusinessInfo()
}

func (t *Tenant) setBusiness(b model.BusinessInfo) {
	t.business.Store(&b)
}

func (t *Tenant) record(d time.Duration, ok bool) {
	t.total.Add(1)
	if ok {
		t.successful.Add(1)
	}
	t.latency.Add(int64(d))
}

// TenantStats are the counters of one tenant.
type TenantStats struct {
	TenantID           string      `json:"tenant_id"`
	TotalRequests      int64       `json:"total_requests"`
	SuccessfulRequests int64       `json:"successful_requests"`
	AvgResponseTimeMs  float64     `json:"avg_response_time_ms"`
	Sessions           int         `json:"active_sessions"`
	Products           int         `json:"products"`
	IndexBuiltAt       time.Time   `json:"index_built_at"`
	Cache              cache.Stats `json:"cache"`
}

// Stats snapshots the tenant's counters.
func (t *Tenant) Stats() TenantStats {
	s := TenantStats{
		TenantID:           t.ID,
		TotalRequests:      t.total.Load(),
		SuccessfulRequests: t.successful.Load(),
		Sessions:           t.Sessions.Len(),
		Cache:              t.Cache.Stats(),
	}
	if s.TotalRequests > 0 {
		s.AvgResponseTimeMs = float64(t.latency.Load()) / float64(s.TotalRequests) / float64(time.Millisecond)
	}
	if ix := t.Retriever.Index(); ix != nil {
		s.Products = ix.Len()
		s.IndexBuiltAt = ix.BuiltAt()
	}
	return s
}

// Registry lazily builds and holds the components of every tenant.
type Registry struct {
	src  catalog.Source
	llm  retrieval.LLM
	opts RegistryOptions
	log  *logger.Logger

	mu      sync.RWMutex
	tenants map[string]*Tenant
	group   singleflight.Group
}

// NewRegistry creates an empty registry. client may be nil.
func NewRegistry(src catalog.Source, client retrieval.LLM, opts RegistryOptions) *Registry {
	if opts.SessionIdleTTL <= 0 {
		opts.SessionIdleTTL = session.DefaultIdleTTL
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Registry{
		src:     src,
		llm:     client,
		opts:    opts,
		log:     opts.Logger.Named("registry"),
		tenants: make(map[string]*Tenant),
	}
}

// Get returns the tenant, loading its catalog on first use. Concurrent first
// requests share one load, which outlives a caller whose deadline is shorter
// than LoadTimeout.
func (r *Registry) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	if !catalog.ValidTenantID(tenantID) {
		return nil, apperr.New("service.Get", apperr.InputInvalid, fmt.Sprintf("invalid tenant id %q", tenantID))
	}
	if t, ok := r.Lookup(tenantID); ok {
		return t, nil
	}

	v, err, _ := r.group.Do(tenantID, func() (any, error) {
		if t, ok := r.Lookup(tenantID); ok {
			return t, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.LoadTimeout)
		defer cancel()
		t, err := r.load(lctx, tenantID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.tenants[tenantID] = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

// Lookup returns a loaded tenant without loading it.
func (r *Registry) Lookup(tenantID string) (*Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	return t, ok
}

// Tenants returns the loaded tenants ordered by id.
func (r *Registry) Tenants() []*Tenant {
	r.mu.RLock()
	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) load(ctx context.Context, tenantID string) (*Tenant, error) {
	log := r.log.With(zap.String("tenant_id", tenantID))

	ix, err := r.loadIndex(ctx, tenantID)
	if err != nil {
		return nil, apperr.Wrap("service.load", apperr.CatalogUnavailable, err)
	}

	copts := r.opts.Cache
	copts.Namespace = tenantID
	copts.Logger = log
	if copts.Now == nil {
		copts.Now = r.opts.Now
	}
	rc := cache.New(copts)

	t := &Tenant{ID: tenantID, Cache: rc}
	t.Sessions = session.NewManager(session.Options{
		IdleTTL:  r.opts.SessionIdleTTL,
		OnExpire: rc.ClearSession,
		Logger:   log,
		Now:      r.opts.Now,
	})
	ropts := r.opts.Retrieval
	ropts.Logger = log
	t.Retriever = retrieval.New(ix, rc, r.llm, ropts)
	t.setBusiness(r.businessInfo(ctx, tenantID, log))

	log.Info("tenant loaded", zap.Int("products", ix.Len()), zap.Time("index_built_at", ix.BuiltAt()))
	return t, nil
}

// loadIndex prefers a persisted artifact that is newer than the catalog and
// rebuilds otherwise.
func (r *Registry) loadIndex(ctx context.Context, tenantID string) (*index.Index, error) {
	if dir := r.opts.ArtifactDir; dir != "" {
		ix, err := index.Load(dir, tenantID)
		switch {
		case err == nil && r.fresh(ix, tenantID):
			return ix, nil
		case err != nil && !errors.Is(err, index.ErrNoArtifact):
			r.log.Warn("failed to load index artifact, rebuilding",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return r.build(ctx, tenantID)
}

func (r *Registry) fresh(ix *index.Index, tenantID string) bool {
	if ix.Source() != r.src.Name() {
		return false
	}
	mt, ok := r.src.(modTimer)
	if !ok {
		return true
	}
	mod, err := mt.ModTime(tenantID)
	if err != nil {
		return false
	}
	return !mod.After(ix.BuiltAt())
}

func (r *Registry) build(ctx context.Context, tenantID string) (*index.Index, error) {
	products, rep, err := r.src.Products(ctx, tenantID)
	if err != nil {
		metrics.RecordCatalogReload(tenantID, "error", 0)
		return nil, err
	}
	ix, err := index.Build(products, r.src.Name())
	if err != nil {
		metrics.RecordCatalogReload(tenantID, "error", 0)
		return nil, err
	}
	metrics.RecordCatalogReload(tenantID, "ok", ix.Len())
	r.log.Info("index built",
		zap.String("tenant_id", tenantID),
		zap.Int("loaded", rep.Loaded),
		zap.Int("skipped", rep.Skipped),
		zap.Int("vocabulary", ix.VocabularySize()),
	)

	if dir := r.opts.ArtifactDir; dir != "" {
		if err := ix.Save(dir, tenantID); err != nil {
			r.log.Warn("failed to persist index", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return ix, nil
}

func (r *Registry) businessInfo(ctx context.Context, tenantID string, log *logger.Logger) model.BusinessInfo {
	info, err := r.src.BusinessInfo(ctx, tenantID)
	if err != nil {
		log.Warn("failed to load business info, using defaults", zap.Error(err))
		return model.DefaultBusinessInfo()
	}
	return info
}

// Reload rebuilds a tenant's index from its source. A loaded tenant gets the
// new index swapped in, its result cache cleared and its business info
// refreshed; sessions survive. An unloaded tenant only gets a fresh artifact.
func (r *Registry) Reload(ctx context.Context, tenantID string) error {
	if !catalog.ValidTenantID(tenantID) {
		return apperr.New("service.Reload", apperr.InputInvalid, fmt.Sprintf("invalid tenant id %q", tenantID))
	}
	_, err, _ := r.group.Do("reload:"+tenantID, func() (any, error) {
		ix, err := r.build(ctx, tenantID)
		if err != nil {
			return nil, apperr.Wrap("service.Reload", apperr.CatalogUnavailable, err)
		}
		t, ok := r.Lookup(tenantID)
		if !ok {
			return nil, nil
		}
		log := r.log.With(zap.String("tenant_id", tenantID))
		t.Retriever.SetIndex(ix)
		removed := t.Cache.InvalidatePattern(ctx, "*")
		t.setBusiness(r.businessInfo(ctx, tenantID, log))
		log.Info("catalog reloaded", zap.Int("products", ix.Len()), zap.Int("cache_entries_removed", removed))
		return nil, nil
	})
	return err
}

// Sweep removes idle sessions of every tenant together with their cache tiers.
func (r *Registry) Sweep() int {
	removed := 0
	for _, t := range r.Tenants() {
		removed += t.Sessions.Sweep()
		t.Cache.CleanupExpiredSessions(r.opts.SessionIdleTTL)
		metrics.SetSessionsActive(t.ID, t.Sessions.Len())
	}
	return removed
}

// Run sweeps on interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug("idle sessions removed", zap.Int("count", n))
			}
		}
	}
}
