package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func at(hour int) *clock {
	return &clock{t: time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)}
}

func product(name, color string, price int64, stock int) model.Product {
	p := decimal.NewFromInt(price)
	return model.Product{Name: name, Color: color, Price: p, FinalPrice: p, Stock: stock}
}

func afrikaResults() []model.Product {
	return []model.Product{
		product("Afrika Etnik Baskılı Dantelli Gecelik", "BEJ", 565, 3),
		product("Afrika Etnik Baskılı Dantelli Gecelik", "SİYAH", 565, 2),
		product("Afrika Etnik Baskılı Dantelli Gecelik", "BEYAZ", 565, 0),
	}
}

func TestManagerGetCreatesOnce(t *testing.T) {
	m := NewManager(Options{})
	a := m.Get("s1")
	b := m.Get("s1")
	assert.Same(t, a, b)
	assert.Equal(t, StateGreeting, a.State)
	assert.Equal(t, 1, m.Len())

	anon := m.Get("")
	assert.NotEmpty(t, anon.ID)
	assert.Equal(t, 2, m.Len())
}

func TestManagerSweep(t *testing.T) {
	clk := at(10)
	var expired []string
	m := NewManager(Options{IdleTTL: 30 * time.Minute, Now: clk.now, OnExpire: func(id string) {
		expired = append(expired, id)
	}})

	m.Get("old")
	clk.advance(20 * time.Minute)
	m.Get("fresh")
	clk.advance(10 * time.Minute)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, []string{"old"}, expired)
	_, ok := m.Lookup("old")
	assert.False(t, ok)
	_, ok = m.Lookup("fresh")
	assert.True(t, ok)

	assert.True(t, m.Delete("fresh"))
	assert.False(t, m.Delete("fresh"))
	assert.Equal(t, []string{"old", "fresh"}, expired)
}

func TestManagerRunStops(t *testing.T) {
	m := NewManager(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUpdateHistoryAndState(t *testing.T) {
	c := NewManager(Options{}).Get("s")

	for i := 0; i < 12; i++ {
		c.Update(fmt.Sprintf("m%d", i), model.IntentGreeting, nil)
	}
	require.Len(t, c.History, MaxHistory)
	assert.Equal(t, "m2", c.History[0].Message)
	assert.Equal(t, []string{"m9", "m10", "m11"}, c.RecentMessages(3))

	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())
	assert.Equal(t, StateProductSearch, c.State)
	assert.Len(t, c.LastProducts, 3)
	assert.Equal(t, "afrika gecelik", c.LastQuery)
	assert.Equal(t, 3, c.History[len(c.History)-1].ResultCount)

	// An empty search keeps the previous results.
	c.Update("zzz", model.IntentProductSearch, nil)
	assert.Len(t, c.LastProducts, 3)

	c.Update("teşekkürler", model.IntentThanks, nil)
	assert.Equal(t, StateGoodbye, c.State)
}

func TestClarificationCounter(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	for i := 0; i < 5; i++ {
		c.Update("asdf", model.IntentUnclear, nil)
	}
	assert.Equal(t, MaxClarificationAttempts, c.ClarificationAttempts)
	assert.Equal(t, StateClarification, c.State)

	c.Update("merhaba", model.IntentGreeting, nil)
	assert.Zero(t, c.ClarificationAttempts)
}

func TestResolveAmbiguity(t *testing.T) {
	meanings, ok := (&Context{}).DetectAmbiguity("İyi günler!")
	require.True(t, ok)

	tests := []struct {
		name    string
		hour    int
		history int
		want    model.Intent
	}{
		{"empty history evening", 20, 0, model.IntentGreeting},
		{"morning long history", 9, 5, model.IntentGreeting},
		{"evening long history", 19, 3, model.IntentGoodbye},
		{"evening short history", 19, 2, model.IntentGreeting},
		{"afternoon", 15, 4, model.IntentGreeting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewManager(Options{Now: at(tt.hour).now}).Get("s")
			for i := 0; i < tt.history; i++ {
				c.Update("x", model.IntentProductSearch, nil)
			}
			assert.Equal(t, tt.want, c.ResolveAmbiguity(meanings))
		})
	}

	_, ok = (&Context{}).DetectAmbiguity("merhaba")
	assert.False(t, ok)
}

func TestHandleIncompleteInput(t *testing.T) {
	c := NewManager(Options{}).Get("s")

	tests := []struct {
		in   string
		want string
	}{
		{"siyah", "Siyah renkte hangi ürün türünü arıyorsunuz? (gecelik, pijama, sabahlık, takım)"},
		{"sabahlık", "Sabahlık arıyorsunuz. Hangi renkte olsun?"},
		{"xl", "XL beden için hangi ürün türünü arıyorsunuz?"},
		{"tamam", "Size nasıl yardımcı olabilirim? Hangi ürünü arıyorsunuz?"},
		{"a?", "Lütfen daha açık bir şekilde belirtir misiniz? Size nasıl yardımcı olabilirim?"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := c.HandleIncompleteInput(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := c.HandleIncompleteInput("siyah dantelli gecelik")
	assert.False(t, ok)

	c.LastProducts = afrikaResults()
	got, ok := c.HandleIncompleteInput("İyi")
	require.True(t, ok)
	assert.Equal(t, "Hangi ürün hakkında daha fazla bilgi almak istersiniz?", got)
}

func TestContextualResponse(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	assert.Equal(t, "base", c.ContextualResponse(model.IntentUnclear, "base"))

	c.Update("a", model.IntentUnclear, nil)
	c.Update("b", model.IntentUnclear, nil)
	assert.Contains(t, c.ContextualResponse(model.IntentUnclear, "base"), "Size şu konularda yardımcı olabilirim")

	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())
	assert.Contains(t, c.ContextualResponse(model.IntentGreeting, "Merhaba!"), "Daha önce gösterdiğim ürünler")
	assert.Contains(t, c.ContextualResponse(model.IntentThanks, "Rica ederim"), "daha fazla bilgi")
	assert.Equal(t, "Hoşça kalın", c.ContextualResponse(model.IntentGoodbye, "Hoşça kalın"))
}

func TestHandleFollowUpNumeric(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	assert.False(t, c.HandleFollowUp("1 numaralı ürün").IsFollowUp(), "no previous results")

	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())

	f := c.HandleFollowUp("1 numaralı ürünün fiyatı")
	assert.Equal(t, FollowUpPrice, f.Kind)
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, "BEJ", f.Product.Color)

	f = c.HandleFollowUp("2 numaralı ürün")
	assert.Equal(t, FollowUpDetails, f.Kind)
	assert.Equal(t, "SİYAH", f.Product.Color)

	f = c.HandleFollowUp("3 stok")
	assert.Equal(t, FollowUpStock, f.Kind)

	f = c.HandleFollowUp("5 numaralı ürün")
	assert.Equal(t, FollowUpOutOfRange, f.Kind)
	assert.Equal(t, 5, f.Index)

	f = c.HandleFollowUp("ikinci ürünü göster")
	assert.Equal(t, FollowUpDetails, f.Kind)
	assert.Equal(t, 2, f.Index)
}

func TestHandleFollowUpWeak(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())

	f := c.HandleFollowUp("fiyatı ne kadar")
	assert.Equal(t, FollowUpPriceList, f.Kind)
	assert.Len(t, f.Products, 3)

	f = c.HandleFollowUp("stokta var mı")
	require.Equal(t, FollowUpAttribute, f.Kind)
	assert.Equal(t, attribute.Stock, f.Attribute.Type)

	// New product words start a new search.
	assert.False(t, c.HandleFollowUp("hamile pijama var mı").IsFollowUp())
	// Color-only questions are refinements, not follow-ups.
	assert.False(t, c.HandleFollowUp("siyahı var mı").IsFollowUp())
	assert.False(t, c.HandleFollowUp("teşekkürler, beyazı var mı").IsFollowUp())
}

func TestRefineByColor(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())

	m := c.RefineByColor("siyah")
	assert.True(t, m.Found)
	require.Len(t, m.Matching, 1)
	assert.Equal(t, "SİYAH", m.Matching[0].Color)

	m = c.RefineByColor("kırmızı")
	assert.False(t, m.Found)
	assert.Len(t, m.All, 3)
}

func TestImageReference(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	assert.True(t, c.ImageReference("fiyatı ne"))
	assert.True(t, c.ImageReference("bunun fiyatı ne"))
	assert.False(t, c.ImageReference("siyahı var mı"))
	assert.False(t, c.ImageReference("hamile pijama arıyorum"))

	c.LastProducts = afrikaResults()
	assert.False(t, c.ImageReference("fiyatı ne"))
}

func TestResetAndSnapshot(t *testing.T) {
	c := NewManager(Options{}).Get("s")
	c.Update("afrika gecelik", model.IntentProductSearch, afrikaResults())

	snap := c.Snapshot()
	assert.Equal(t, "s", snap.ID)
	assert.Equal(t, 3, snap.LastProducts)
	assert.Len(t, snap.History, 1)

	c.Reset()
	assert.Empty(t, c.History)
	assert.False(t, c.HasLastProducts())
	assert.Equal(t, StateGreeting, c.State)
}
