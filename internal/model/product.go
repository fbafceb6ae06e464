// Package model defines the typed records shared across the assistant core.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// Product is a catalog item. It is immutable once handed to a product index.
type Product struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"name"`
	Color           string          `json:"color"`
	Price           decimal.Decimal `json:"price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent decimal.Decimal `json:"discount"`
	Category        string          `json:"category"`
	Stock           int             `json:"stock"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the ingestion invariants of a product.
func (p Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %q: price must not be negative", p.Name)
	}
	if p.FinalPrice.IsNegative() {
		return fmt.Errorf("product %q: final price must not be negative", p.Name)
	}
	if p.FinalPrice.GreaterThan(p.Price) {
		return fmt.Errorf("product %q: final price exceeds price", p.Name)
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("product %q: discount must be within 0..100", p.Name)
	}
	if p.DiscountPercent.IsPositive() && !p.FinalPrice.LessThan(p.Price) {
		return fmt.Errorf("product %q: discounted final price must be below price", p.Name)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %q: stock must not be negative", p.Name)
	}
	return nil
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// HasDiscount reports whether the product is sold below its original price.
func (p Product) HasDiscount() bool {
	return p.DiscountPercent.IsPositive()
}

// Savings is the difference between the original and the final price.
func (p Product) Savings() decimal.Decimal {
	return p.Price.Sub(p.FinalPrice)
}

// FormatPrice renders a price the way customers see it, e.g. "565.44 TL".
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2) + " TL"
}

// nameColors are the color words that vary between otherwise identical
// products. Matched against normalized tokens.
var nameColors = map[string]struct{}{
	"siyah": {}, "beyaz": {}, "kirmizi": {}, "mavi": {}, "yesil": {}, "sari": {},
	"mor": {}, "pembe": {}, "lacivert": {}, "bordo": {}, "vizon": {}, "ekru": {},
}

// BaseName is the product name without color words, used to group color
// variants of the same item.
func (p Product) BaseName() string {
	var kept []string
	for _, w := range strings.Fields(p.Name) {
		if _, isColor := nameColors[textnorm.Normalize(w)]; isColor {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(p.Name)
	}
	return strings.Join(kept, " ")
}
