package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
	"github.com/capitalize-ai/commerce-assistant/internal/llm"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

type fakeView struct {
	history  int
	products bool
}

func (v fakeView) HistoryLen() int             { return v.history }
func (v fakeView) HasLastProducts() bool       { return v.products }
func (v fakeView) RecentMessages(int) []string { return []string{"merhaba"} }

func (v fakeView) DetectAmbiguity(msg string) ([]model.Intent, bool) {
	if msg == "iyi günler" {
		return []model.Intent{model.IntentGreeting, model.IntentGoodbye}, true
	}
	return nil, false
}

func (v fakeView) ResolveAmbiguity(m []model.Intent) model.Intent {
	if v.history > 2 {
		return model.IntentGoodbye
	}
	return model.IntentGreeting
}

type fakeLLM struct {
	call  *llm.IntentCall
	err   error
	calls int
}

func (f *fakeLLM) Available() bool { return true }

func (f *fakeLLM) ClassifyIntent(_ context.Context, _ string, _ []string) (*llm.IntentCall, error) {
	f.calls++
	return f.call, f.err
}

func newClassifier(t *testing.T, client LLM, opts Options) *Classifier {
	t.Helper()
	c, err := New(client, opts)
	require.NoError(t, err)
	return c
}

func TestExactRuleThenCache(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "Merhaba!", nil)
	assert.Equal(t, model.IntentGreeting, r.Intent)
	assert.Equal(t, model.MethodRule, r.Method)
	assert.InDelta(t, 0.99, r.Confidence, 1e-9)

	r = c.Classify(context.Background(), "merhaba", nil)
	assert.Equal(t, model.IntentGreeting, r.Intent)
	assert.Equal(t, model.MethodCache, r.Method)

	s := c.Stats()
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(1), s.Rules)
}

func TestCompoundRules(t *testing.T) {
	c := newClassifier(t, nil, Options{})
	tests := []struct {
		msg     string
		want    model.Intent
		product string
		color   string
		size    string
	}{
		{msg: "afrika gecelik siyah var mı", want: model.IntentProductColorQuery, product: "afrika", color: "siyah"},
		{msg: "afrika gecelik 38 beden var mı", want: model.IntentProductSizeQuery, product: "afrika", size: "38"},
		{msg: "iade etmek istiyorum", want: model.IntentReturnPolicy},
		{msg: "telefon numaranızı alabilir miyim", want: model.IntentPhoneInquiry},
		{msg: "Fiyatı nedir?", want: model.IntentPriceInquiry},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := c.Classify(context.Background(), tt.msg, fakeView{})
			assert.Equal(t, tt.want, r.Intent)
			assert.Equal(t, model.MethodRule, r.Method)
			assert.GreaterOrEqual(t, r.Confidence, 0.95)
			assert.Equal(t, tt.product, r.Entities.ProductName)
			assert.Equal(t, tt.color, r.Entities.Color)
			assert.Equal(t, tt.size, r.Entities.Size)
		})
	}
}

func TestBareCategoryAsksForDetails(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "gecelik", fakeView{})
	assert.Equal(t, model.IntentClarificationNeeded, r.Intent)
	assert.Contains(t, r.Entities.Response, "Gecelik arıyorsunuz")
	assert.Contains(t, r.Entities.Response, "'siyah gecelik'")

	r = c.Classify(context.Background(), "sabahlık var mı", fakeView{})
	assert.Equal(t, model.IntentClarificationNeeded, r.Intent)
	assert.Contains(t, r.Entities.Response, "Sabahlık arıyorsunuz")
}

func TestColorOnlyDependsOnContext(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "siyahı var mı", fakeView{history: 2, products: true})
	assert.Equal(t, model.IntentFollowUp, r.Intent)
	assert.Equal(t, "siyah", r.Entities.Color)
	assert.Equal(t, model.MethodContext, r.Method)

	r = c.Classify(context.Background(), "teşekkürler, siyahı var mı", fakeView{})
	assert.Equal(t, model.IntentProductSearch, r.Intent)
	assert.Equal(t, "siyah", r.Entities.Color)

	assert.Zero(t, c.Stats().CacheSize, "context-dependent results are not cached")
}

func TestAmbiguityResolvedFromContext(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "iyi günler", fakeView{})
	assert.Equal(t, model.IntentGreeting, r.Intent)

	r = c.Classify(context.Background(), "iyi günler", fakeView{history: 5})
	assert.Equal(t, model.IntentGoodbye, r.Intent)
	assert.Equal(t, model.MethodContext, r.Method)
}

func TestNumericFollowUpNeedsLastProducts(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "2 numaralı ürünü göster", fakeView{history: 2, products: true})
	assert.Equal(t, model.IntentFollowUp, r.Intent)

	r = c.Classify(context.Background(), "2 numaralı ürünü göster", fakeView{})
	assert.NotEqual(t, model.IntentFollowUp, r.Intent)
}

func TestListReferenceNotSharedAcrossSessions(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "1 numaralı ürünün fiyatı", fakeView{})
	assert.Equal(t, model.IntentPriceInquiry, r.Intent)

	r = c.Classify(context.Background(), "1 numaralı ürünün fiyatı", fakeView{history: 2, products: true})
	assert.Equal(t, model.IntentFollowUp, r.Intent)
	assert.NotEqual(t, model.MethodCache, r.Method)

	r = c.Classify(context.Background(), "1 numaralı ürünün fiyatı", fakeView{})
	assert.Equal(t, model.IntentPriceInquiry, r.Intent)
	assert.NotEqual(t, model.MethodCache, r.Method)

	assert.Zero(t, c.Stats().CacheSize)
}

func TestBareNegativeNotCached(t *testing.T) {
	c := newClassifier(t, nil, Options{})

	r := c.Classify(context.Background(), "yok", fakeView{})
	assert.Equal(t, model.IntentNegativeResponse, r.Intent)

	r = c.Classify(context.Background(), "yok", fakeView{history: 3})
	assert.Equal(t, model.IntentGoodbye, r.Intent)
	assert.Equal(t, model.MethodHeuristic, r.Method)
}

func TestLLMLayer(t *testing.T) {
	fl := &fakeLLM{call: &llm.IntentCall{Intent: model.IntentProductSearch, ProductName: "gecelik", Confidence: 0.9}}
	c := newClassifier(t, fl, Options{})

	r := c.Classify(context.Background(), "bana güzel bir şey önerir misin", fakeView{})
	assert.Equal(t, model.IntentProductSearch, r.Intent)
	assert.Equal(t, model.MethodLLM, r.Method)
	assert.Equal(t, "gecelik", r.Entities.ProductName)
	assert.Equal(t, 1, fl.calls)

	// Rules answer before the LLM is consulted.
	c.Classify(context.Background(), "teşekkürler", fakeView{})
	assert.Equal(t, 1, fl.calls)
}

func TestLLMResultWithHistoryNotCached(t *testing.T) {
	fl := &fakeLLM{call: &llm.IntentCall{Intent: model.IntentProductSearch, ProductName: "gecelik", Confidence: 0.9}}
	c := newClassifier(t, fl, Options{})

	c.Classify(context.Background(), "bana güzel bir şey önerir misin", fakeView{history: 1})
	r := c.Classify(context.Background(), "bana güzel bir şey önerir misin", fakeView{history: 1})
	assert.Equal(t, model.MethodLLM, r.Method)
	assert.Equal(t, 2, fl.calls)

	// Without history the answer is shared.
	c.Classify(context.Background(), "bana güzel bir şey önerir misin", nil)
	r = c.Classify(context.Background(), "bana güzel bir şey önerir misin", nil)
	assert.Equal(t, model.MethodCache, r.Method)
	assert.Equal(t, 3, fl.calls)
}

func TestLLMLowConfidenceFallsBack(t *testing.T) {
	fl := &fakeLLM{call: &llm.IntentCall{Intent: model.IntentComplaint, Confidence: 0.5}}
	c := newClassifier(t, fl, Options{})

	r := c.Classify(context.Background(), "bir şey soracaktım", fakeView{})
	assert.Equal(t, model.IntentUnclear, r.Intent)
	assert.Equal(t, model.MethodFallback, r.Method)
	assert.InDelta(t, 0.3, r.Confidence, 1e-9)

	fl.call = &llm.IntentCall{Intent: model.IntentNeedsLLM, Confidence: 0.99}
	r = c.Classify(context.Background(), "başka bir şey soracaktım", fakeView{})
	assert.NotEqual(t, model.IntentNeedsLLM, r.Intent)
}

func TestLLMErrorFallsBackToHeuristics(t *testing.T) {
	fl := &fakeLLM{err: apperr.New("llm.classify", apperr.LlmTimeout, "deadline")}
	c := newClassifier(t, fl, Options{})

	r := c.Classify(context.Background(), "kargonuz kaç günde gelir", fakeView{})
	assert.Equal(t, model.IntentShippingInfo, r.Intent)
	assert.Equal(t, model.MethodHeuristic, r.Method)
	assert.Equal(t, int64(1), c.Stats().LLMFailures)
}

func TestHeuristics(t *testing.T) {
	c := newClassifier(t, nil, Options{})
	tests := []struct {
		msg  string
		view fakeView
		want model.Intent
	}{
		{"kargom nerede kaldı", fakeView{}, model.IntentOrderStatus},
		{"merhabaaaa", fakeView{}, model.IntentGreeting},
		{"dantelli bir şey var mı", fakeView{}, model.IntentProductSearch},
		{"xl beden var mı", fakeView{}, model.IntentSizeInquiry},
		{"ne kadar acaba", fakeView{}, model.IntentPriceInquiry},
		{"yok kalsın", fakeView{}, model.IntentNegativeResponse},
		{"yok", fakeView{history: 3}, model.IntentGoodbye},
		{"asdfgh", fakeView{}, model.IntentUnclear},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := c.Classify(context.Background(), tt.msg, tt.view)
			assert.Equal(t, tt.want, r.Intent)
			assert.LessOrEqual(t, r.Confidence, 0.9)
			assert.GreaterOrEqual(t, r.Confidence, 0.0)
		})
	}
}

func TestHeuristicEntities(t *testing.T) {
	c := newClassifier(t, nil, Options{})
	r := c.Classify(context.Background(), "hamile için dantelli bir şey lazım", fakeView{})
	assert.Equal(t, model.IntentProductSearch, r.Intent)
	assert.Contains(t, r.Entities.Features, "hamile")
	assert.Contains(t, r.Entities.Features, "dantelli")
}

func TestCacheBatchEviction(t *testing.T) {
	c := newClassifier(t, nil, Options{CacheSize: 5, CacheEvict: 2})
	for i := 0; i < 5; i++ {
		c.Classify(context.Background(), fmt.Sprintf("qwx %d", i), nil)
	}
	assert.Equal(t, 5, c.Stats().CacheSize)

	c.Classify(context.Background(), "qwx 5", nil)
	assert.Equal(t, 4, c.Stats().CacheSize)

	// The two oldest entries went in one batch.
	r := c.Classify(context.Background(), "qwx 0", nil)
	assert.NotEqual(t, model.MethodCache, r.Method)
	r = c.Classify(context.Background(), "qwx 2", nil)
	assert.Equal(t, model.MethodCache, r.Method)

	c.Forget()
	assert.Zero(t, c.Stats().CacheSize)
}

func TestEmptyMessage(t *testing.T) {
	c := newClassifier(t, nil, Options{})
	r := c.Classify(context.Background(), "  ?! ", nil)
	assert.Equal(t, model.IntentUnclear, r.Intent)
}
