package service

import (
	"strings"
	"unicode"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// questionWords carry the question, not the product, in attribute queries.
var questionWords = map[string]struct{}{
	"beden": {}, "bedeni": {}, "bedenli": {}, "numara": {}, "var": {}, "mi": {}, "mu": {},
	"mevcut": {}, "stok": {}, "stokta": {}, "renk": {}, "renkte": {}, "rengi": {},
	"fiyat": {}, "fiyati": {}, "kac": {}, "para": {}, "ne": {}, "kadar": {}, "nedir": {},
}

// retrievalQuery returns the text to search for, or false when the intent
// is answered without retrieval. Price and stock questions only search when
// they name a product.
func retrievalQuery(msg string, res model.IntentResult) (string, bool) {
	switch res.Intent {
	case model.IntentProductSearch:
		return msg, true
	case model.IntentProductColorQuery, model.IntentProductSizeQuery:
		return stripAttributes(msg), true
	case model.IntentPriceInquiry, model.IntentStockInquiry:
		if res.Entities.ProductName == "" && len(res.Entities.Features) == 0 {
			return "", false
		}
		return stripAttributes(msg), true
	}
	return "", false
}

// stripAttributes drops color, size, number and question words so that only
// the product words remain. The color itself travels as a filter.
func stripAttributes(msg string) string {
	words := strings.Fields(textnorm.CleanLower(msg))
	kept := words[:0]
	for _, w := range words {
		norm := textnorm.Normalize(w)
		if _, ok := questionWords[norm]; ok {
			continue
		}
		if _, ok := attribute.CanonicalColor(norm); ok {
			continue
		}
		if _, ok := attribute.CanonicalSize(norm); ok {
			continue
		}
		if strings.IndexFunc(norm, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return msg
	}
	return strings.Join(kept, " ")
}
