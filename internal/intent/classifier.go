// Package intent classifies chat messages into the closed intent set through
// an exact cache, deterministic rules, an optional LLM and a heuristic
// fallback, in that order.
package intent

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/features"
	"github.com/capitalize-ai/commerce-assistant/internal/llm"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

// Defaults for Options.
const (
	DefaultCacheSize  = 1000
	DefaultCacheEvict = 200
	DefaultRuleAccept = 0.95
	DefaultLLMAccept  = 0.7
	unclearConfidence = 0.3
	historyForLLM     = 3
)

// ContextView is the part of a session the classifier reads.
type ContextView interface {
	HistoryLen() int
	HasLastProducts() bool
	RecentMessages(n int) []string
	DetectAmbiguity(msg string) ([]model.Intent, bool)
	ResolveAmbiguity(meanings []model.Intent) model.Intent
}

// LLM is the classification call of the LLM gateway.
type LLM interface {
	Available() bool
	ClassifyIntent(ctx context.Context, message string, history []string) (*llm.IntentCall, error)
}

// Options configures a Classifier.
type Options struct {
	CacheSize  int
	CacheEvict int
	RuleAccept float64
	LLMAccept  float64
	Logger     *logger.Logger
}

// Stats counts results per layer.
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	Rules       int64 `json:"rules"`
	LLM         int64 `json:"llm"`
	LLMFailures int64 `json:"llm_failures"`
	Heuristics  int64 `json:"heuristics"`
	CacheSize   int   `json:"cache_size"`
}

// Classifier is safe for concurrent use.
type Classifier struct {
	llm      LLM
	features *features.Extractor
	opts     Options
	log      *logger.Logger

	// mu makes the batch eviction and the insert atomic.
	mu    sync.Mutex
	cache *lru.Cache[string, model.IntentResult]

	cacheHits, rules, llmHits, llmFailures, heuristics atomic.Int64
}

// New creates a classifier. client may be nil.
func New(client LLM, opts Options) (*Classifier, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheEvict <= 0 {
		opts.CacheEvict = DefaultCacheEvict
	}
	if opts.RuleAccept <= 0 {
		opts.RuleAccept = DefaultRuleAccept
	}
	if opts.LLMAccept <= 0 {
		opts.LLMAccept = DefaultLLMAccept
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	// One spare slot so the library never evicts on its own.
	cache, err := lru.New[string, model.IntentResult](opts.CacheSize + 1)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		llm:      client,
		features: features.NewExtractor(),
		opts:     opts,
		log:      opts.Logger.Named("intent"),
		cache:    cache,
	}, nil
}

// Classify returns the intent of msg. It never fails: LLM problems fall
// through to the heuristics and the heuristics end in unclear.
func (c *Classifier) Classify(ctx context.Context, msg string, view ContextView) model.IntentResult {
	if view == nil {
		view = emptyView{}
	}
	norm := textnorm.Normalize(msg)
	if norm == "" {
		return model.IntentResult{Intent: model.IntentUnclear, Confidence: unclearConfidence, Method: model.MethodFallback}
	}

	if r, ok := c.cache.Get(norm); ok {
		c.cacheHits.Add(1)
		metrics.RecordIntentLayer(string(model.MethodCache))
		r.Method = model.MethodCache
		return r
	}

	// A reference to a listed product reads differently once the session
	// has a list, so neither branch may be shared through the cache.
	listRef := refersToListed(norm)

	if r, contextual, ok := c.applyRules(msg, norm, view); ok && r.Confidence >= c.opts.RuleAccept {
		c.rules.Add(1)
		return c.accept(norm, r, contextual || listRef)
	}

	if r, withHistory, ok := c.classifyLLM(ctx, msg, view); ok {
		c.llmHits.Add(1)
		return c.accept(norm, r, withHistory || listRef)
	}

	r, contextual := c.heuristic(msg, norm, view)
	c.heuristics.Add(1)
	return c.accept(norm, r, contextual || listRef)
}

func refersToListed(norm string) bool {
	return numericFollowUp.MatchString(norm) || numericReference.MatchString(norm)
}

// classifyLLM reports withHistory when the prompt carried session messages.
func (c *Classifier) classifyLLM(ctx context.Context, msg string, view ContextView) (r model.IntentResult, withHistory, ok bool) {
	if c.llm == nil || !c.llm.Available() {
		return model.IntentResult{}, false, false
	}
	history := view.RecentMessages(historyForLLM)
	call, err := c.llm.ClassifyIntent(ctx, msg, history)
	if err != nil {
		c.llmFailures.Add(1)
		c.log.Debug("llm classification skipped",
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err),
		)
		return model.IntentResult{}, false, false
	}
	if call.Confidence < c.opts.LLMAccept || call.Intent == model.IntentNeedsLLM || call.Intent == model.IntentError {
		return model.IntentResult{}, false, false
	}
	return model.IntentResult{
		Intent: call.Intent,
		Entities: model.Entities{
			ProductName: call.ProductName,
			Features:    call.Features,
			Color:       call.Color,
		},
		Confidence: call.Confidence,
		Method:     model.MethodLLM,
	}, len(history) > 0, true
}

// accept records the layer and caches results that do not depend on the
// session.
func (c *Classifier) accept(norm string, r model.IntentResult, contextual bool) model.IntentResult {
	r.Confidence = model.ClampConfidence(r.Confidence)
	metrics.RecordIntentLayer(string(r.Method))
	if !contextual && r.Intent != model.IntentFollowUp {
		c.store(norm, r)
	}
	return r
}

func (c *Classifier) store(norm string, r model.IntentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cache.Contains(norm) && c.cache.Len() >= c.opts.CacheSize {
		for i := 0; i < c.opts.CacheEvict; i++ {
			if _, _, ok := c.cache.RemoveOldest(); !ok {
				break
			}
		}
	}
	c.cache.Add(norm, r)
}

// Forget drops every cached classification.
func (c *Classifier) Forget() {
	c.cache.Purge()
}

// Stats returns the per-layer counters.
func (c *Classifier) Stats() Stats {
	return Stats{
		CacheHits:   c.cacheHits.Load(),
		Rules:       c.rules.Load(),
		LLM:         c.llmHits.Load(),
		LLMFailures: c.llmFailures.Load(),
		Heuristics:  c.heuristics.Load(),
		CacheSize:   c.cache.Len(),
	}
}

type emptyView struct{}

func (emptyView) HistoryLen() int                                { return 0 }
func (emptyView) HasLastProducts() bool                          { return false }
func (emptyView) RecentMessages(int) []string                    { return nil }
func (emptyView) DetectAmbiguity(string) ([]model.Intent, bool)  { return nil, false }
func (emptyView) ResolveAmbiguity(m []model.Intent) model.Intent { return m[0] }
