package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

// fakeClient returns canned responses or blocks until the context ends.
type fakeClient struct {
	resp  *CompletionResponse
	err   error
	block bool
	calls int
	last  *CompletionRequest
}

func (f *fakeClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.calls++
	f.last = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func (f *fakeClient) Name() string { return "fake" }

func TestDisabledGateway(t *testing.T) {
	g := Disabled()
	assert.False(t, g.Available())
	assert.Equal(t, "none", g.Provider())

	_, err := g.ClassifyIntent(context.Background(), "merhaba", nil)
	assert.True(t, apperr.IsKind(err, apperr.LlmUnavailable))

	_, err = g.RewriteQuery(context.Background(), "gecelk")
	assert.True(t, apperr.IsKind(err, apperr.LlmUnavailable))
}

func TestClassifyIntentFunctionCall(t *testing.T) {
	fc := &fakeClient{resp: &CompletionResponse{FunctionCall: &FunctionCall{
		Name: "classify_intent",
		Args: map[string]any{
			"intent":           "product_search",
			"product_name":     "gecelik",
			"product_features": []any{"dantelli"},
			"color":            "siyah",
			"confidence":       0.85,
		},
	}}}
	g := NewGateway(fc, GatewayOptions{})
	assert.True(t, g.Available())

	call, err := g.ClassifyIntent(context.Background(), "siyah dantelli gecelik", []string{"merhaba"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentProductSearch, call.Intent)
	assert.Equal(t, "gecelik", call.ProductName)
	assert.Equal(t, []string{"dantelli"}, call.Features)
	assert.Equal(t, "siyah", call.Color)
	assert.InDelta(t, 0.85, call.Confidence, 1e-9)

	require.Len(t, fc.last.Functions, 1)
	assert.Contains(t, fc.last.Messages[0].Content, "merhaba")
}

func TestClassifyIntentTextFallbackAndMalformed(t *testing.T) {
	fc := &fakeClient{resp: &CompletionResponse{Content: "```json\n{\"intent\": \"greeting\", \"confidence\": 1.4}\n```"}}
	g := NewGateway(fc, GatewayOptions{})

	call, err := g.ClassifyIntent(context.Background(), "selamlar", nil)
	require.NoError(t, err)
	assert.Equal(t, model.IntentGreeting, call.Intent)
	assert.Equal(t, 1.0, call.Confidence)

	fc.resp = &CompletionResponse{Content: "bilmiyorum"}
	_, err = g.ClassifyIntent(context.Background(), "selamlar", nil)
	assert.True(t, apperr.IsKind(err, apperr.LlmMalformed))

	fc.resp = &CompletionResponse{Content: `{"intent": "dance", "confidence": 0.9}`}
	_, err = g.ClassifyIntent(context.Background(), "selamlar", nil)
	assert.True(t, apperr.IsKind(err, apperr.LlmMalformed))
}

func TestTimeout(t *testing.T) {
	fc := &fakeClient{block: true}
	g := NewGateway(fc, GatewayOptions{Timeouts: Timeouts{Rewrite: 20 * time.Millisecond}})

	start := time.Now()
	_, err := g.RewriteQuery(context.Background(), "gecelk")
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, apperr.IsKind(err, apperr.LlmTimeout))
}

func TestClientErrorIsUnavailable(t *testing.T) {
	fc := &fakeClient{err: errors.New("boom")}
	g := NewGateway(fc, GatewayOptions{})
	_, err := g.ValidateCandidates(context.Background(), "gecelik", []string{"a"})
	assert.True(t, apperr.IsKind(err, apperr.LlmUnavailable))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	fc := &fakeClient{err: errors.New("boom")}
	g := NewGateway(fc, GatewayOptions{})
	for i := 0; i < 5; i++ {
		_, _ = g.RewriteQuery(context.Background(), "x")
	}
	assert.False(t, g.Available())

	calls := fc.calls
	_, err := g.RewriteQuery(context.Background(), "x")
	assert.True(t, apperr.IsKind(err, apperr.LlmUnavailable))
	assert.Equal(t, calls, fc.calls, "open breaker must not reach the client")
}

func TestRewriteQuery(t *testing.T) {
	fc := &fakeClient{resp: &CompletionResponse{Content: "\"dantelli gecelik\"\nbaşka bir şey"}}
	g := NewGateway(fc, GatewayOptions{})
	out, err := g.RewriteQuery(context.Background(), "dantlli gecelk")
	require.NoError(t, err)
	assert.Equal(t, "dantelli gecelik", out)

	fc.resp = &CompletionResponse{Content: "   "}
	_, err = g.RewriteQuery(context.Background(), "x")
	assert.True(t, apperr.IsKind(err, apperr.LlmMalformed))
}

func TestValidateCandidates(t *testing.T) {
	fc := &fakeClient{resp: &CompletionResponse{Content: `{"indices": [2, 0, 7, 2, -1]}`}}
	g := NewGateway(fc, GatewayOptions{})
	got, err := g.ValidateCandidates(context.Background(), "dantelli gecelik", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, got)
	assert.True(t, fc.last.JSON)

	fc.resp = &CompletionResponse{Content: `{"ok": true}`}
	_, err = g.ValidateCandidates(context.Background(), "x", []string{"a"})
	assert.True(t, apperr.IsKind(err, apperr.LlmMalformed))
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs("Sonuç: {\"intent\": \"thanks\"} tamam")
	require.NoError(t, err)
	assert.Equal(t, "thanks", args["intent"])

	_, err = decodeArgs("yok")
	assert.Error(t, err)
}
