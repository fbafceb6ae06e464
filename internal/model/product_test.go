package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProductValidate(t *testing.T) {
	valid := Product{Name: "Dantelli Gecelik", Color: "SİYAH", Price: dec("869.90"), FinalPrice: dec("565.44"), DiscountPercent: dec("35"), Stock: 3}

	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{"valid", func(p *Product) {}, false},
		{"missing name", func(p *Product) { p.Name = "" }, true},
		{"final above price", func(p *Product) { p.FinalPrice = dec("900") }, true},
		{"discount without reduction", func(p *Product) { p.FinalPrice = p.Price }, true},
		{"discount out of range", func(p *Product) { p.DiscountPercent = dec("120") }, true},
		{"negative stock", func(p *Product) { p.Stock = -1 }, true},
		{"no discount equal prices", func(p *Product) { p.DiscountPercent = decimal.Zero; p.FinalPrice = p.Price }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProductHelpers(t *testing.T) {
	p := Product{Name: "x", Price: dec("100"), FinalPrice: dec("80"), DiscountPercent: dec("20"), Stock: 0}
	assert.False(t, p.InStock())
	assert.True(t, p.HasDiscount())
	assert.Equal(t, "20.00 TL", FormatPrice(p.Savings()))
	assert.Equal(t, "80.00 TL", FormatPrice(p.FinalPrice))
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentGreeting, ParseIntent("greeting"))
	assert.Equal(t, IntentUnclear, ParseIntent("weather"))
	assert.True(t, IntentProductColorQuery.IsProductIntent())
	assert.False(t, IntentFollowUp.IsProductIntent())
}

func TestBusinessInfoDefaults(t *testing.T) {
	b := BusinessInfo{Name: "Lale Butik", Phone: "0532 000 00 00"}.WithDefaults()
	assert.Equal(t, "Lale Butik", b.Name)
	assert.Equal(t, "0532 000 00 00", b.Phone)
	assert.Equal(t, DefaultWebsite, b.Website)
	assert.Equal(t, DefaultEmail, b.Email)
}

func TestProductBaseName(t *testing.T) {
	assert.Equal(t, "Dantelli Gecelik", Product{Name: "Siyah Dantelli Gecelik"}.BaseName())
	assert.Equal(t, "Afrika Etnik Gecelik", Product{Name: "Afrika Etnik Gecelik"}.BaseName())
	assert.Equal(t, "Siyah", Product{Name: "Siyah"}.BaseName())

	p := Product{Price: dec("100"), FinalPrice: dec("80")}
	assert.True(t, p.Savings().Equal(dec("20")))
}
