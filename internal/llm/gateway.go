package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

// Operation names used for metrics and errors.
const (
	OpClassify = "classify_intent"
	OpRewrite  = "rewrite_query"
	OpValidate = "validate_candidates"
)

// Timeouts bounds each gateway operation.
type Timeouts struct {
	Classify time.Duration
	Rewrite  time.Duration
	Validate time.Duration
}

// DefaultTimeouts returns the budgets used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Classify: time.Second,
		Rewrite:  500 * time.Millisecond,
		Validate: time.Second,
	}
}

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Timeouts    Timeouts
	Concurrency int64
	Logger      *logger.Logger
}

// Gateway exposes the three LLM operations the assistant uses. Every call is
// bounded by a timeout, a process-wide concurrency limit and a circuit
// breaker. A Gateway without a client reports every call as unavailable.
type Gateway struct {
	client   Client
	sem      *semaphore.Weighted
	breaker  *gobreaker.CircuitBreaker
	timeouts Timeouts
	log      *logger.Logger
}

// NewGateway wraps client. client may be nil.
func NewGateway(client Client, opts GatewayOptions) *Gateway {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	d := DefaultTimeouts()
	if opts.Timeouts.Classify <= 0 {
		opts.Timeouts.Classify = d.Classify
	}
	if opts.Timeouts.Rewrite <= 0 {
		opts.Timeouts.Rewrite = d.Rewrite
	}
	if opts.Timeouts.Validate <= 0 {
		opts.Timeouts.Validate = d.Validate
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	log := opts.Logger.Named("llm")

	g := &Gateway{
		client:   client,
		sem:      semaphore.NewWeighted(opts.Concurrency),
		timeouts: opts.Timeouts,
		log:      log,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return g
}

// Disabled returns a gateway with no client.
func Disabled() *Gateway {
	return NewGateway(nil, GatewayOptions{})
}

// Available reports whether calls can currently be attempted.
func (g *Gateway) Available() bool {
	return g != nil && g.client != nil && g.breaker.State() != gobreaker.StateOpen
}

// Provider returns the name of the configured client, or "none".
func (g *Gateway) Provider() string {
	if g == nil || g.client == nil {
		return "none"
	}
	return g.client.Name()
}

// call runs one completion under the operation's budget and maps failures
// to apperr kinds.
func (g *Gateway) call(ctx context.Context, op string, timeout time.Duration, req *CompletionRequest) (*CompletionResponse, error) {
	if g == nil || g.client == nil {
		return nil, apperr.New(op, apperr.LlmUnavailable, "no llm client configured")
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		metrics.RecordLLMCall(op, "timeout", time.Since(start))
		return nil, apperr.Wrap(op, apperr.LlmTimeout, err)
	}
	defer g.sem.Release(1)

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Complete(ctx, req)
	})

	switch {
	case err == nil:
		resp, _ := out.(*CompletionResponse)
		if resp == nil {
			metrics.RecordLLMCall(op, "malformed", time.Since(start))
			return nil, apperr.New(op, apperr.LlmMalformed, "empty response")
		}
		metrics.RecordLLMCall(op, "ok", time.Since(start))
		metrics.RecordLLMTokens(resp.Model, resp.TokensIn, resp.TokensOut)
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordLLMCall(op, "rejected", time.Since(start))
		return nil, apperr.Wrap(op, apperr.LlmUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.RecordLLMCall(op, "timeout", time.Since(start))
		return nil, apperr.Wrap(op, apperr.LlmTimeout, err)
	default:
		metrics.RecordLLMCall(op, "error", time.Since(start))
		g.log.Debug("llm call failed", zap.String("op", op), zap.Error(err))
		return nil, apperr.Wrap(op, apperr.LlmUnavailable, err)
	}
}

// IntentCall is the parsed result of an intent classification call.
type IntentCall struct {
	Intent      model.Intent
	ProductName string
	Features    []string
	Color       string
	Confidence  float64
}

const classifySystem = `Sen bir Türk iç giyim ve ev giyim mağazasının müşteri asistanısın.
Müşterinin son mesajının niyetini belirle ve classify_intent fonksiyonunu çağır.
Ürün aramalarında ürün adını, özellikleri (hamile, dantelli, düğmeli...) ve rengi ayrı ayrı çıkar.
Emin değilsen confidence değerini düşük tut.`

func classifyFunction() FunctionDecl {
	intents := make([]string, 0, len(model.AllIntents))
	for _, i := range model.AllIntents {
		if i == model.IntentNeedsLLM || i == model.IntentError {
			continue
		}
		intents = append(intents, string(i))
	}
	return FunctionDecl{
		Name:        "classify_intent",
		Description: "Müşteri mesajının niyetini ve ürün bilgilerini döndürür",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"intent":           map[string]any{"type": "string", "enum": intents},
				"product_name":     map[string]any{"type": "string", "description": "Aranan ürün türü veya adı"},
				"product_features": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"color":            map[string]any{"type": "string"},
				"confidence":       map[string]any{"type": "number", "description": "0 ile 1 arası güven"},
			},
			"required": []string{"intent", "confidence"},
		},
	}
}

// ClassifyIntent asks the model for the intent of message given the recent
// history. Unknown intents and unparseable payloads are LlmMalformed.
func (g *Gateway) ClassifyIntent(ctx context.Context, message string, history []string) (*IntentCall, error) {
	var prompt strings.Builder
	if len(history) > 0 {
		prompt.WriteString("Önceki mesajlar:\n")
		for _, h := range history {
			prompt.WriteString("- ")
			prompt.WriteString(h)
			prompt.WriteByte('\n')
		}
		prompt.WriteByte('\n')
	}
	prompt.WriteString("Müşteri mesajı: ")
	prompt.WriteString(message)

	resp, err := g.call(ctx, OpClassify, g.timeouts.Classify, &CompletionRequest{
		System:    classifySystem,
		Messages:  []ChatMessage{{Role: "user", Content: prompt.String()}},
		Functions: []FunctionDecl{classifyFunction()},
		MaxTokens: 200,
	})
	if err != nil {
		return nil, err
	}

	args := map[string]any(nil)
	if resp.FunctionCall != nil {
		args = resp.FunctionCall.Args
	} else if parsed, perr := decodeArgs(resp.Content); perr == nil {
		args = parsed
	}
	if args == nil {
		return nil, apperr.New(OpClassify, apperr.LlmMalformed, "no function call in response")
	}
	return parseIntentCall(args)
}

func parseIntentCall(args map[string]any) (*IntentCall, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, apperr.Wrap(OpClassify, apperr.LlmMalformed, err)
	}
	var payload struct {
		Intent      string   `json:"intent"`
		ProductName string   `json:"product_name"`
		Features    []string `json:"product_features"`
		Color       string   `json:"color"`
		Confidence  *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.Wrap(OpClassify, apperr.LlmMalformed, err)
	}
	intent := model.Intent(strings.TrimSpace(payload.Intent))
	if !intent.Valid() {
		return nil, apperr.New(OpClassify, apperr.LlmMalformed, fmt.Sprintf("unknown intent %q", payload.Intent))
	}
	conf := 0.8
	if payload.Confidence != nil {
		conf = model.ClampConfidence(*payload.Confidence)
	}
	return &IntentCall{
		Intent:      intent,
		ProductName: payload.ProductName,
		Features:    payload.Features,
		Color:       payload.Color,
		Confidence:  conf,
	}, nil
}

const rewritePrompt = `Aşağıdaki Türkçe ürün arama sorgusundaki yazım hatalarını düzelt.
Sadece düzeltilmiş sorguyu yaz, açıklama ekleme.

Sorgu: %s`

// RewriteQuery asks the model to correct typos in a short search query.
func (g *Gateway) RewriteQuery(ctx context.Context, query string) (string, error) {
	resp, err := g.call(ctx, OpRewrite, g.timeouts.Rewrite, &CompletionRequest{
		Messages:  []ChatMessage{{Role: "user", Content: fmt.Sprintf(rewritePrompt, query)}},
		MaxTokens: 50,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Content)
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	out = strings.TrimSpace(strings.Trim(out, "\"'` "))
	if out == "" {
		return "", apperr.New(OpRewrite, apperr.LlmMalformed, "empty rewrite")
	}
	return out, nil
}

const validatePrompt = `Müşteri "%s" arıyor. Aşağıdaki ürünlerden hangileri bu aramaya uygun?
Kurallar: ürün türü eşleşmeli, istenen özellikler (hamile, dantelli vb.) ürün adında olmalı,
renk istendiyse renk uymalı, marka istendiyse marka adı geçmeli.

%s
Yanıtı {"indices": [0, 2]} biçiminde, 0'dan başlayan sıra numaralarıyla ver.`

// ValidateCandidates returns the 0-based indices of names the model accepts
// for query. Indices out of range are dropped.
func (g *Gateway) ValidateCandidates(ctx context.Context, query string, names []string) ([]int, error) {
	var list strings.Builder
	for i, n := range names {
		fmt.Fprintf(&list, "%d. %s\n", i, n)
	}
	resp, err := g.call(ctx, OpValidate, g.timeouts.Validate, &CompletionRequest{
		Messages:  []ChatMessage{{Role: "user", Content: fmt.Sprintf(validatePrompt, query, list.String())}},
		MaxTokens: 60,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}
	args, err := decodeArgs(resp.Content)
	if err != nil {
		return nil, apperr.Wrap(OpValidate, apperr.LlmMalformed, err)
	}
	raw, ok := args["indices"].([]any)
	if !ok {
		return nil, apperr.New(OpValidate, apperr.LlmMalformed, "missing indices")
	}
	seen := make(map[int]struct{}, len(raw))
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		i := int(f)
		if i < 0 || i >= len(names) {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out, nil
}
