package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	otelattribute "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/intent"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/respond"
	"github.com/capitalize-ai/commerce-assistant/internal/retrieval"
	"github.com/capitalize-ai/commerce-assistant/internal/session"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
	"github.com/capitalize-ai/commerce-assistant/pkg/tracing"
)

// Defaults for Options.
const (
	DefaultBudget             = 3 * time.Second
	DefaultMaxUtteranceLength = 500
	DefaultPublishTimeout     = 2 * time.Second

	historyForRetrieval = 3
)

// Origins of a catalog change.
const (
	OriginWatcher = "watcher"
	OriginAPI     = "api"
	// OriginRemote marks changes announced by another instance; they are not
	// announced again.
	OriginRemote = "remote"
)

// EventPublisher receives chat turns and catalog changes.
type EventPublisher interface {
	PublishTurn(ctx context.Context, ev *model.ChatEvent) error
	PublishCatalogChanged(ctx context.Context, ev *model.CatalogEvent) error
}

// Options configures a ChatService.
type Options struct {
	// Budget bounds one chat turn, LLM calls included.
	Budget             time.Duration
	MaxUtteranceLength int
	MaxListed          int
	PublishTimeout     time.Duration
	Logger             *logger.Logger
}

// ChatService answers chat turns. It is safe for concurrent use; turns of
// the same session are serialized.
type ChatService struct {
	registry   *Registry
	classifier *intent.Classifier
	composer   *respond.Composer
	events     EventPublisher
	tracer     trace.Tracer
	opts       Options
	log        *logger.Logger
}

// NewChatService creates the orchestrator. events may be nil.
func NewChatService(registry *Registry, classifier *intent.Classifier, events EventPublisher, opts Options) *ChatService {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.MaxUtteranceLength <= 0 {
		opts.MaxUtteranceLength = DefaultMaxUtteranceLength
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &ChatService{
		registry:   registry,
		classifier: classifier,
		composer:   respond.New(opts.MaxListed),
		events:     events,
		tracer:     tracing.Tracer("commerce-assistant/service"),
		opts:       opts,
		log:        opts.Logger.Named("chat"),
	}
}

// Registry returns the tenant registry.
func (s *ChatService) Registry() *Registry {
	return s.registry
}

// turnResult is the outcome of one chat turn before it becomes a response.
type turnResult struct {
	reply    string
	result   model.IntentResult
	products []model.Product
}

// Chat answers one message. Errors are returned only when the tenant cannot
// be served; every failure inside the turn becomes an apology reply.
func (s *ChatService) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.Budget)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		otelattribute.String("tenant_id", req.TenantID),
	))
	defer span.End()

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return &model.ChatResponse{
			Message:        respond.EmptyInput(),
			Intent:         model.IntentUnclear,
			Method:         model.MethodFallback,
			SessionID:      req.SessionID,
			ProcessingTime: time.Since(start).Seconds(),
		}, nil
	}

	t, err := s.registry.Get(ctx, req.TenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tenant unavailable")
		return nil, err
	}

	sc := t.Sessions.Get(req.SessionID)
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := s.log.WithContext(correlationID, t.ID, sc.ID)

	if n := utf8.RuneCountInString(msg); n > s.opts.MaxUtteranceLength {
		log.Warn("message truncated", zap.Int("length", n), zap.Int("max", s.opts.MaxUtteranceLength))
		msg = truncate(msg, s.opts.MaxUtteranceLength)
	}

	sc.Lock()
	out, err := s.turn(ctx, t, sc, msg)
	if err != nil {
		log.Error("chat turn failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
		out = turnResult{
			reply:  respond.Apology(t.Business()),
			result: model.IntentResult{Intent: model.IntentError, Method: model.MethodFallback},
		}
	}
	sc.Unlock()

	elapsed := time.Since(start)
	t.record(elapsed, out.result.Intent != model.IntentError)
	metrics.RecordChat(t.ID, string(out.result.Intent), elapsed)
	span.SetAttributes(
		otelattribute.String("intent", string(out.result.Intent)),
		otelattribute.String("method", string(out.result.Method)),
		otelattribute.Int("products_found", len(out.products)),
	)
	log.Info("chat turn",
		zap.String("intent", string(out.result.Intent)),
		zap.String("method", string(out.result.Method)),
		zap.Float64("confidence", out.result.Confidence),
		zap.Int("products_found", len(out.products)),
		zap.Duration("duration", elapsed),
	)

	resp := &model.ChatResponse{
		Message:        out.reply,
		Intent:         out.result.Intent,
		Confidence:     model.ClampConfidence(out.result.Confidence),
		ProductsFound:  len(out.products),
		ProcessingTime: elapsed.Seconds(),
		Method:         out.result.Method,
		SessionID:      sc.ID,
	}
	s.publishTurn(ctx, t.ID, msg, resp, elapsed)
	return resp, nil
}

// turn runs the ordered steps of one chat turn under the session lock.
// Panics become Internal errors and leave the session untouched.
func (s *ChatService) turn(ctx context.Context, t *Tenant, sc *session.Context, msg string) (out turnResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("panic in chat turn", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = apperr.New("service.turn", apperr.Internal, fmt.Sprint(p))
		}
	}()

	res := s.classifier.Classify(ctx, msg, sc)
	in := respond.Input{
		Business:              t.Business(),
		LastProducts:          sc.LastProducts,
		ClarificationAttempts: sc.ClarificationAttempts,
		FirstTurn:             sc.HistoryLen() == 0,
	}
	var products []model.Product

	switch {
	case isImageQuestion(res.Intent) && sc.ImageReference(msg):
		out = turnResult{reply: respond.ImageHelp(in.Business), result: res}
		sc.Update(msg, res.Intent, nil)
		return out, nil

	case res.Intent == model.IntentClarificationNeeded:
		// Compose straight away; the last results stay as they are.

	case res.Intent == model.IntentFollowUp:
		res, products = s.followUp(sc, msg, res, &in)
	}

	if res.Method != model.MethodRule && (res.Intent.IsProductIntent() || res.Intent == model.IntentUnclear) {
		if prompt, incomplete := sc.HandleIncompleteInput(msg); incomplete {
			res.Intent = model.IntentClarificationNeeded
			res.Entities.Response = prompt
		}
	}

	if q, ok := retrievalQuery(msg, res); ok {
		products = s.retrieve(ctx, t, sc, q, res)
	}

	in.Result = res
	if in.FollowUp.Kind == session.FollowUpOutOfRange {
		// The follow-up template explains the valid range.
		in.Result.Intent = model.IntentFollowUp
	}
	in.Products = products
	reply := s.composer.Compose(in)
	reply = sc.ContextualResponse(res.Intent, reply)
	sc.Update(msg, res.Intent, products)

	return turnResult{reply: reply, result: res, products: products}, nil
}

// followUp resolves a message about the last results. It may change the
// intent: a follow-up with nothing to follow becomes a search and an
// out-of-range reference becomes a clarification.
func (s *ChatService) followUp(sc *session.Context, msg string, res model.IntentResult, in *respond.Input) (model.IntentResult, []model.Product) {
	if res.Entities.Color != "" && sc.HasLastProducts() {
		m := sc.RefineByColor(res.Entities.Color)
		in.Refinement = &m
		return res, m.Matching
	}

	f := sc.HandleFollowUp(msg)
	in.FollowUp = f
	switch f.Kind {
	case session.NotFollowUp:
		if !sc.HasLastProducts() {
			res.Intent = model.IntentProductSearch
		}
		return res, nil
	case session.FollowUpOutOfRange:
		res.Intent = model.IntentClarificationNeeded
		return res, nil
	case session.FollowUpDetails, session.FollowUpPrice, session.FollowUpStock:
		return res, []model.Product{f.Product}
	case session.FollowUpAttribute:
		return res, f.Attribute.Matching
	default:
		return res, f.Products
	}
}

func (s *ChatService) retrieve(ctx context.Context, t *Tenant, sc *session.Context, query string, res model.IntentResult) []model.Product {
	rr, err := t.Retriever.Retrieve(ctx, retrieval.Request{
		Query:     query,
		Features:  res.Entities.Features,
		Color:     res.Entities.Color,
		SessionID: sc.ID,
		History:   sc.RecentMessages(historyForRetrieval),
		NoRewrite: sc.RewriteDisabled,
	})
	if err != nil {
		// Only CatalogUnavailable comes back here; the reply says nothing was found.
		s.log.Warn("retrieval failed", zap.String("tenant_id", t.ID), zap.Error(err))
		return nil
	}
	if rr.RewriteSlow && !sc.RewriteDisabled {
		sc.RewriteDisabled = true
		s.log.Info("query rewrite disabled for session", zap.String("tenant_id", t.ID), zap.String("session_id", sc.ID))
	}
	return rr.Products
}

func isImageQuestion(i model.Intent) bool {
	return i == model.IntentPriceInquiry || i == model.IntentStockInquiry || i == model.IntentUnclear
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func (s *ChatService) publishTurn(ctx context.Context, tenantID, msg string, resp *model.ChatResponse, elapsed time.Duration) {
	if s.events == nil {
		return
	}
	ev := &model.ChatEvent{
		ID:            uuid.Must(uuid.NewV7()).String(),
		TenantID:      tenantID,
		SessionID:     resp.SessionID,
		Type:          model.EventTypeTurn,
		Utterance:     msg,
		Intent:        resp.Intent,
		Confidence:    resp.Confidence,
		Method:        resp.Method,
		ProductsFound: resp.ProductsFound,
		DurationMs:    elapsed.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if resp.Intent == model.IntentError {
		ev.Type = model.EventTypeError
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
		defer cancel()
		err := s.events.PublishTurn(ctx, ev)
		metrics.RecordEventPublished(string(ev.Type), err)
		if err != nil {
			s.log.Warn("failed to publish chat event", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}()
}

// CatalogChanged reloads a tenant's catalog. Local changes are announced to
// other instances through the event publisher.
func (s *ChatService) CatalogChanged(ctx context.Context, tenantID, origin string) error {
	if err := s.registry.Reload(ctx, tenantID); err != nil {
		return err
	}
	if s.events == nil || origin == OriginRemote {
		return nil
	}
	ev := &model.CatalogEvent{
		TenantID:  tenantID,
		Type:      model.EventTypeCatalogChanged,
		Source:    origin,
		CreatedAt: time.Now().UTC(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()
	err := s.events.PublishCatalogChanged(pctx, ev)
	metrics.RecordEventPublished(string(ev.Type), err)
	if err != nil {
		s.log.Warn("failed to publish catalog change", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return nil
}

// ResetSession drops a session and its cached results.
func (s *ChatService) ResetSession(tenantID, sessionID string) bool {
	t, ok := s.registry.Lookup(tenantID)
	if !ok {
		return false
	}
	return t.Sessions.Delete(sessionID)
}

// Session returns a copy of a session's state.
func (s *ChatService) Session(tenantID, sessionID string) (session.Snapshot, bool) {
	t, ok := s.registry.Lookup(tenantID)
	if !ok {
		return session.Snapshot{}, false
	}
	sc, ok := t.Sessions.Lookup(sessionID)
	if !ok {
		return session.Snapshot{}, false
	}
	sc.Lock()
	defer sc.Unlock()
	return sc.Snapshot(), true
}

// Stats are the service-wide counters.
type Stats struct {
	Tenants     []TenantStats `json:"tenants"`
	Intent      intent.Stats  `json:"intent"`
	LLMProvider string        `json:"llm_provider"`
}

// Stats reports per-tenant and classifier counters.
func (s *ChatService) Stats(provider string) Stats {
	st := Stats{Intent: s.classifier.Stats(), LLMProvider: provider}
	for _, t := range s.registry.Tenants() {
		st.Tenants = append(st.Tenants, t.Stats())
	}
	return st
}
