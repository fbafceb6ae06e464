// Package retrieval finds the catalog products that answer a search query.
// It tries the result cache, then exact word matching with brand and garment
// filters, then TF-IDF search with optional LLM rewrite and validation, and
// finally fuzzy matching over product names.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/cache"
	"github.com/capitalize-ai/commerce-assistant/internal/features"
	"github.com/capitalize-ai/commerce-assistant/internal/fuzzy"
	"github.com/capitalize-ai/commerce-assistant/internal/index"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

// Defaults for Options.
const (
	DefaultMaxResults      = 5
	DefaultSpecificMax     = 2
	DefaultVerySpecificMax = 1
	DefaultRewriteBudget   = 500 * time.Millisecond

	validateBelow    = 0.6
	relaxedAbove     = 0.7
	relaxedThreshold = 0.15
	strictThreshold  = 0.25
	fuzzyThreshold   = 0.6
	rewriteMaxTokens = 3
	validateMax      = 5
)

// Source names the pass that produced a result.
type Source string

const (
	SourceNone     Source = ""
	SourceCache    Source = "cache"
	SourceSpecific Source = "specific"
	SourceExact    Source = "exact"
	SourceTFIDF    Source = "tfidf"
	SourceFuzzy    Source = "fuzzy"
)

// LLM is the part of the LLM gateway used during retrieval.
type LLM interface {
	Available() bool
	RewriteQuery(ctx context.Context, query string) (string, error)
	ValidateCandidates(ctx context.Context, query string, names []string) ([]int, error)
}

// Options configures a Retriever.
type Options struct {
	MaxResults      int
	SpecificMax     int
	VerySpecificMax int
	// RewriteBudget is how long a query rewrite may take before rewriting is
	// turned off for the session.
	RewriteBudget time.Duration
	Logger        *logger.Logger
}

// Request is one retrieval.
type Request struct {
	Query     string
	Features  []string
	Color     string
	SessionID string
	// History holds the session's past messages, oldest first.
	History []string
	// NoRewrite skips the LLM query rewrite.
	NoRewrite bool
}

// Result is the outcome of a retrieval.
type Result struct {
	Products   []model.Product
	Source     Source
	Confidence float64
	Rewritten  string
	// RewriteSlow reports that the rewrite exceeded its budget or timed out;
	// callers turn rewriting off for the session.
	RewriteSlow bool
}

// Retriever is safe for concurrent use. The index can be swapped while
// requests are in flight.
type Retriever struct {
	idx      atomic.Pointer[index.Index]
	cache    *cache.ResultCache
	llm      LLM
	fuzzy    *fuzzy.Matcher
	features *features.Extractor
	opts     Options
	log      *logger.Logger
}

// New creates a Retriever. ix, rc and client may be nil.
func New(ix *index.Index, rc *cache.ResultCache, client LLM, opts Options) *Retriever {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.SpecificMax <= 0 {
		opts.SpecificMax = DefaultSpecificMax
	}
	if opts.VerySpecificMax <= 0 {
		opts.VerySpecificMax = DefaultVerySpecificMax
	}
	if opts.RewriteBudget <= 0 {
		opts.RewriteBudget = DefaultRewriteBudget
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	r := &Retriever{
		cache:    rc,
		llm:      client,
		fuzzy:    fuzzy.NewMatcher(),
		features: features.NewExtractor(),
		opts:     opts,
		log:      opts.Logger.Named("retrieval"),
	}
	if ix != nil {
		r.idx.Store(ix)
	}
	return r
}

// SetIndex replaces the product index.
func (r *Retriever) SetIndex(ix *index.Index) {
	r.idx.Store(ix)
}

// Index returns the current product index, or nil.
func (r *Retriever) Index() *index.Index {
	return r.idx.Load()
}

// Retrieve returns at most MaxResults products for the request. It fails
// only with CatalogUnavailable when no index has been loaded.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (Result, error) {
	ix := r.idx.Load()
	if ix == nil {
		return Result{}, apperr.New("retrieval.Retrieve", apperr.CatalogUnavailable, "no product index loaded")
	}
	if strings.TrimSpace(req.Query) == "" && len(req.Features) == 0 && req.Color == "" {
		return Result{}, nil
	}

	res := r.retrieve(ctx, ix, req)
	metrics.RetrievalResults.Observe(float64(len(res.Products)))
	r.log.Debug("retrieval finished",
		zap.String("query", req.Query),
		zap.String("source", string(res.Source)),
		zap.Int("results", len(res.Products)),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

func (r *Retriever) retrieve(ctx context.Context, ix *index.Index, req Request) Result {
	lookup := cache.Lookup{
		Query:     req.Query,
		SessionID: req.SessionID,
		Features:  req.Features,
		Color:     req.Color,
		History:   req.History,
	}
	if r.cache != nil {
		data, tier, ok := r.cache.Get(ctx, lookup)
		metrics.RecordCacheLookup(string(tier), ok)
		if ok && relevant(req.Query, data) {
			return Result{Products: data, Source: SourceCache, Confidence: 1}
		}
		if ok {
			r.log.Debug("cached result not relevant", zap.String("query", req.Query))
		}
	}

	q := parseQuery(req.Query)
	res := r.exact(ix, q, req.Color)
	if len(res.Products) == 0 {
		res = r.search(ctx, ix, q, req)
	}
	if len(res.Products) == 0 {
		res.Products = r.fuzzyMatch(ix, q, req.Color)
		if len(res.Products) > 0 {
			res.Source = SourceFuzzy
		}
	}
	if len(res.Products) > 0 && r.cache != nil {
		r.cache.Put(ctx, lookup, res.Products)
	}
	return res
}

// exact runs the word-match pass: a very specific phrase returns the first
// product carrying it; otherwise every product containing enough of the
// query words and passing the hard filters.
func (r *Retriever) exact(ix *index.Index, q query, color string) Result {
	if q.clean == "" {
		return Result{}
	}
	products := ix.Products()

	if indicator, ok := q.specificIndicator(); ok {
		for _, p := range products {
			if strings.Contains(productText(p), indicator) {
				return Result{Products: []model.Product{p}, Source: SourceSpecific, Confidence: 1}
			}
		}
	}

	if len(q.words) == 0 || len(q.words) > 5 {
		return Result{}
	}
	required := q.requiredRatio()
	var matches []model.Product
	for _, p := range products {
		if q.wordRatio(productText(p)) < required {
			continue
		}
		if !q.passesFilters(p) {
			continue
		}
		if color != "" && !attribute.MatchColor(color, p.Color) {
			continue
		}
		matches = append(matches, p)
	}
	if len(matches) == 0 {
		return Result{}
	}
	return Result{Products: r.capBySpecificity(q, matches), Source: SourceExact, Confidence: 1}
}

type candidate struct {
	hit   index.Hit
	score float64
}

// search runs the TF-IDF pass.
func (r *Retriever) search(ctx context.Context, ix *index.Index, q query, req Request) Result {
	res := Result{Source: SourceTFIDF}
	hits := ix.Search(searchText(q.clean, req.Features, req.Color), r.opts.MaxResults)

	if len(hits) == 0 && len(strings.Fields(q.norm)) <= rewriteMaxTokens && !req.NoRewrite && r.llmAvailable() {
		start := time.Now()
		rewritten, err := r.llm.RewriteQuery(ctx, q.clean)
		elapsed := time.Since(start)
		if elapsed > r.opts.RewriteBudget || apperr.IsKind(err, apperr.LlmTimeout) {
			res.RewriteSlow = true
		}
		if err != nil {
			r.log.Debug("query rewrite skipped", zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
		} else if rq := parseQuery(rewritten); rq.clean != q.clean {
			res.Rewritten = rewritten
			q = rq
			hits = ix.Search(searchText(q.clean, req.Features, req.Color), r.opts.MaxResults)
		}
	}
	if len(hits) == 0 {
		return res
	}

	res.Confidence = searchConfidence(q, hits)
	if res.Confidence < validateBelow && r.llmAvailable() {
		hits = r.validate(ctx, q, hits)
	}

	threshold := strictThreshold
	if res.Confidence > relaxedAbove {
		threshold = relaxedThreshold
	}
	qFeats := r.features.Extract(q.clean)

	var ranked []candidate
	for _, h := range hits {
		p := h.Product
		if req.Color != "" && !attribute.MatchColor(req.Color, p.Color) {
			continue
		}
		if !q.passesFilters(p) {
			continue
		}
		score := r.fuse(q, qFeats, req.Color, h)
		if score < threshold {
			continue
		}
		ranked = append(ranked, candidate{hit: h, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	for _, c := range ranked {
		if len(res.Products) == r.opts.MaxResults {
			break
		}
		res.Products = append(res.Products, c.hit.Product)
	}
	return res
}

// validate asks the LLM which candidates fit the query. Failures and empty
// answers keep the original list.
func (r *Retriever) validate(ctx context.Context, q query, hits []index.Hit) []index.Hit {
	top := hits
	if len(top) > validateMax {
		top = top[:validateMax]
	}
	names := make([]string, len(top))
	for i, h := range top {
		names[i] = h.Product.Name
	}
	idx, err := r.llm.ValidateCandidates(ctx, q.raw, names)
	if err != nil {
		r.log.Debug("candidate validation skipped", zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
		return hits
	}
	if len(idx) == 0 {
		return hits
	}
	out := make([]index.Hit, 0, len(idx))
	for _, i := range idx {
		out = append(out, top[i])
	}
	r.log.Debug("candidates validated", zap.Int("before", len(hits)), zap.Int("after", len(out)))
	return out
}

// fuzzyMatch is the last pass: edit-distance ranking over names and colors.
func (r *Retriever) fuzzyMatch(ix *index.Index, q query, color string) []model.Product {
	if q.clean == "" {
		return nil
	}
	products := ix.Products()
	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = p.Name + " " + p.Color
	}
	var out []model.Product
	for _, m := range r.fuzzy.Rank(q.clean, texts, fuzzyThreshold, 0) {
		p := products[m.Index]
		if !q.passesFilters(p) {
			continue
		}
		if color != "" && !attribute.MatchColor(color, p.Color) {
			continue
		}
		out = append(out, p)
		if len(out) == r.opts.MaxResults {
			break
		}
	}
	return out
}

func (r *Retriever) llmAvailable() bool {
	return r.llm != nil && r.llm.Available()
}

func searchText(clean string, feats []string, color string) string {
	parts := []string{clean}
	parts = append(parts, feats...)
	if color != "" {
		parts = append(parts, color, "renk")
	}
	return strings.Join(parts, " ")
}
