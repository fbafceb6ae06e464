package session

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// FollowUpKind says what a follow-up message asked about.
type FollowUpKind int

const (
	// NotFollowUp means the message starts something new.
	NotFollowUp FollowUpKind = iota
	// FollowUpDetails asks for the full card of one product.
	FollowUpDetails
	// FollowUpPrice asks for the price of one product.
	FollowUpPrice
	// FollowUpStock asks for the availability of one product.
	FollowUpStock
	// FollowUpOutOfRange references a position the last list does not have.
	FollowUpOutOfRange
	// FollowUpPriceList asks for the prices of the whole last list.
	FollowUpPriceList
	// FollowUpAttribute is a color, size, stock or price question over the last list.
	FollowUpAttribute
)

// FollowUp is the resolved meaning of a follow-up message.
type FollowUp struct {
	Kind FollowUpKind
	// Index is the 1-based position of Product in the last list.
	Index     int
	Product   model.Product
	Products  []model.Product
	Attribute attribute.Match
}

// IsFollowUp reports whether the message referred to the last results.
func (f FollowUp) IsFollowUp() bool { return f.Kind != NotFollowUp }

// Patterns run on folded text.
var (
	strongPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s*(numarali|nolu|no\b)`),
		regexp.MustCompile(`\d+\s*(fiyat|kac|para)`),
		regexp.MustCompile(`\d+\s*(stok|var|mevcut)`),
		regexp.MustCompile(`\b(bu|su|o)\s*urun`),
		regexp.MustCompile(`\b(ilk|birinci|ikinci|ucuncu)\s*urun`),
	}
	weakPattern = regexp.MustCompile(`fiyat|stok|var mi|mevcut|kac`)
	numberRe    = regexp.MustCompile(`\d+`)

	newProductWords = []string{"gecelik", "pijama", "sabahlik", "takim", "hamile", "dantelli", "afrika"}
	ordinals        = map[string]int{"ilk": 1, "birinci": 1, "ikinci": 2, "ucuncu": 3}
)

// HandleFollowUp decides whether msg refers to the last result list and, if
// so, what it asks. Color-only questions ("siyahı var mı") are never
// follow-ups here; the caller answers them as a color-filtered search.
func (c *Context) HandleFollowUp(msg string) FollowUp {
	if !c.HasLastProducts() {
		return FollowUp{}
	}
	norm := textnorm.Normalize(msg)
	if _, ok := attribute.ColorOnlyQuery(norm); ok {
		return FollowUp{}
	}

	strong := false
	for _, re := range strongPatterns {
		if re.MatchString(norm) {
			strong = true
			break
		}
	}
	if !strong {
		if !weakPattern.MatchString(norm) || mentionsNewProduct(norm) {
			return FollowUp{}
		}
		return c.weakFollowUp(msg, norm)
	}

	idx := c.referencedIndex(norm)
	if idx < 1 || idx > len(c.LastProducts) {
		return FollowUp{Kind: FollowUpOutOfRange, Index: idx, Products: c.LastProducts}
	}
	f := FollowUp{Index: idx, Product: c.LastProducts[idx-1], Products: c.LastProducts}
	switch {
	case containsAny(norm, "fiyat", "kac", "para"):
		f.Kind = FollowUpPrice
	case containsAny(norm, "stok", "var", "mevcut"):
		f.Kind = FollowUpStock
	default:
		f.Kind = FollowUpDetails
	}
	return f
}

// referencedIndex returns the 1-based position a message points at: an
// explicit number, an ordinal, or the first product for "bu ürün".
func (c *Context) referencedIndex(norm string) int {
	if m := numberRe.FindString(norm); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return n
	}
	for _, w := range strings.Fields(norm) {
		if n, ok := ordinals[w]; ok {
			return n
		}
	}
	return 1
}

func (c *Context) weakFollowUp(msg, norm string) FollowUp {
	products := c.LastProducts
	if attribute.IsPriceQuery(norm) || strings.Contains(norm, "kac") {
		if len(products) == 1 {
			return FollowUp{Kind: FollowUpPrice, Index: 1, Product: products[0], Products: products}
		}
		return FollowUp{Kind: FollowUpPriceList, Products: products}
	}
	if m, ok := attribute.Lookup(msg, products); ok {
		return FollowUp{Kind: FollowUpAttribute, Products: products, Attribute: m}
	}
	return FollowUp{Kind: FollowUpPriceList, Products: products}
}

func mentionsNewProduct(norm string) bool {
	for _, w := range newProductWords {
		if strings.Contains(norm, w) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RefineByColor answers a color-only question over the last result list.
func (c *Context) RefineByColor(color string) attribute.Match {
	matching := attribute.FilterByColor(c.LastProducts, color)
	return attribute.Match{
		Type:      attribute.Color,
		Requested: color,
		Found:     len(matching) > 0,
		Matching:  matching,
		All:       c.LastProducts,
	}
}
