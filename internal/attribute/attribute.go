// Package attribute recognizes product attribute questions (color, size,
// stock, price) and matches them against a product list.
package attribute

import (
	"regexp"
	"sort"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// Type is the kind of attribute a query asks about.
type Type string

const (
	None  Type = ""
	Color Type = "color"
	Size  Type = "size"
	Stock Type = "stock"
	Price Type = "price"
)

// colorMappings maps canonical colors to the spellings customers use.
var colorMappings = []struct {
	canonical string
	variants  []string
}{
	{"siyah", []string{"siyah", "siyahı", "black", "siyahi"}},
	{"beyaz", []string{"beyaz", "beyazı", "white", "ekru", "ekrusu", "beyazi"}},
	{"kırmızı", []string{"kırmızı", "kırmızısı", "kirmizi", "red", "kirmizisi"}},
	{"mavi", []string{"mavi", "mavisi", "blue"}},
	{"lacivert", []string{"lacivert", "navy", "laciverti"}},
	{"yeşil", []string{"yeşil", "yeşili", "yesil", "green", "yesili"}},
	{"sarı", []string{"sarı", "sarısı", "sari", "yellow", "sarisi"}},
	{"mor", []string{"mor", "moru", "purple", "lila"}},
	{"pembe", []string{"pembe", "pembesi", "pink"}},
	{"vizon", []string{"vizon", "vizonu", "beige", "bej"}},
	{"bordo", []string{"bordo", "bordosu", "burgundy"}},
	{"gri", []string{"gri", "grisi", "gray", "grey"}},
	{"turuncu", []string{"turuncu", "turuncusu", "orange"}},
	{"kahverengi", []string{"kahverengi", "kahve", "brown"}},
}

var sizeMappings = []struct {
	canonical string
	variants  []string
}{
	{"xs", []string{"xs", "extra small"}},
	{"s", []string{"s", "small"}},
	{"m", []string{"m", "medium"}},
	{"l", []string{"l", "large"}},
	{"xl", []string{"xl", "extra large"}},
	{"xxl", []string{"xxl", "2xl"}},
	{"xxxl", []string{"xxxl", "3xl"}},
}

var (
	stockIndicators = []string{"stok", "var mi", "mevcut", "bulunur mu", "kaldi mi"}
	priceIndicators = []string{"fiyat", "ne kadar"}
	// priceWords only count as whole words.
	priceWords = map[string]struct{}{"kaca": {}, "para": {}, "tl": {}, "lira": {}}

	// queryIndicators mark a message as an attribute question at all.
	queryIndicators = []string{"var mi", "mevcut", "stok", "bulunur mu", "fiyat", "ne kadar", "beden"}

	cleanWords = map[string]struct{}{
		"var": {}, "mi": {}, "mu": {}, "mevcut": {}, "stok": {}, "stokta": {},
	}
)

var (
	colorVariant = map[string]string{}
	sizeVariant  = map[string]string{}
	// colorsByCanonical holds the folded variants of each canonical color.
	colorsByCanonical = map[string][]string{}
)

func init() {
	for _, m := range colorMappings {
		for _, v := range m.variants {
			f := textnorm.Normalize(v)
			colorVariant[f] = m.canonical
			colorsByCanonical[m.canonical] = append(colorsByCanonical[m.canonical], f)
		}
	}
	for _, m := range sizeMappings {
		for _, v := range m.variants {
			sizeVariant[textnorm.Normalize(v)] = m.canonical
		}
	}
}

// Colors returns the canonical color names.
func Colors() []string {
	out := make([]string, 0, len(colorMappings))
	for _, m := range colorMappings {
		out = append(out, m.canonical)
	}
	return out
}

// CanonicalColor maps a spelling ("siyahı", "black") to its canonical color.
func CanonicalColor(word string) (string, bool) {
	c, ok := colorVariant[textnorm.Normalize(word)]
	return c, ok
}

// CanonicalSize maps a spelling ("medium", "2xl") to its canonical size.
func CanonicalSize(word string) (string, bool) {
	s, ok := sizeVariant[textnorm.Normalize(word)]
	return s, ok
}

// Variants returns the folded spellings accepted for a color.
func Variants(color string) []string {
	if c, ok := CanonicalColor(color); ok {
		return colorsByCanonical[c]
	}
	return []string{textnorm.Normalize(color)}
}

// FindColor returns the first canonical color mentioned in text.
func FindColor(text string) (string, bool) {
	for _, w := range textnorm.Tokens(text) {
		if c, ok := colorVariant[w]; ok {
			return c, true
		}
	}
	return "", false
}

// FindSize returns the first canonical size mentioned in text. Multi-word
// spellings are not recognized here; single letters only count when the
// message also mentions "beden".
func FindSize(text string) (string, bool) {
	toks := textnorm.Tokens(text)
	hasBeden := false
	for _, w := range toks {
		if strings.HasPrefix(w, "beden") {
			hasBeden = true
		}
	}
	for _, w := range toks {
		s, ok := sizeVariant[w]
		if !ok {
			continue
		}
		if len(w) == 1 && !hasBeden {
			continue
		}
		return s, true
	}
	return "", false
}

// MatchColor reports whether a product color satisfies the requested color,
// directly, by containment or through an accepted variant.
func MatchColor(requested, productColor string) bool {
	req := textnorm.Normalize(requested)
	pc := textnorm.Normalize(productColor)
	if req == "" || pc == "" {
		return false
	}
	if strings.Contains(pc, req) {
		return true
	}
	if c, ok := colorVariant[req]; ok {
		for _, v := range colorsByCanonical[c] {
			if containsWord(pc, v) {
				return true
			}
		}
	}
	return false
}

// FilterByColor keeps the products whose color matches.
func FilterByColor(products []model.Product, color string) []model.Product {
	var out []model.Product
	for _, p := range products {
		if MatchColor(color, p.Color) {
			out = append(out, p)
		}
	}
	return out
}

// IsStockQuery reports whether the message asks about availability.
func IsStockQuery(text string) bool {
	return containsAny(textnorm.Normalize(text), stockIndicators)
}

// IsPriceQuery reports whether the message asks about price.
func IsPriceQuery(text string) bool {
	norm := textnorm.Normalize(text)
	if containsAny(norm, priceIndicators) {
		return true
	}
	for _, w := range strings.Fields(norm) {
		if _, ok := priceWords[w]; ok {
			return true
		}
	}
	return false
}

// HasQueryIndicator reports whether the text is phrased as an attribute question.
func HasQueryIndicator(text string) bool {
	return containsAny(textnorm.Normalize(text), queryIndicators)
}

// Extract returns the attribute a message asks about, checking color, size,
// stock and price in that order.
func Extract(text string) (Type, string) {
	norm := textnorm.Normalize(text)
	var kept []string
	for _, w := range strings.Fields(norm) {
		if _, skip := cleanWords[w]; !skip {
			kept = append(kept, w)
		}
	}
	clean := strings.Join(kept, " ")

	if c, ok := FindColor(clean); ok {
		return Color, c
	}
	if s, ok := FindSize(norm); ok {
		return Size, s
	}
	if IsStockQuery(norm) {
		return Stock, "stock"
	}
	if IsPriceQuery(norm) {
		return Price, "price"
	}
	return None, ""
}

// Match is the outcome of checking an attribute against a product list.
type Match struct {
	Type      Type
	Requested string
	Found     bool
	Matching  []model.Product
	All       []model.Product
}

// Lookup answers an attribute question over products. ok is false when the
// message is not an attribute question.
func Lookup(text string, products []model.Product) (Match, bool) {
	t, v := Extract(text)
	if t == None || !HasQueryIndicator(text) {
		return Match{}, false
	}
	m := Match{Type: t, Requested: v, All: products}
	switch t {
	case Color:
		m.Matching = FilterByColor(products, v)
	case Size:
		// Products carry no size field; size questions are answered by
		// pointing the customer to the size chart.
	case Stock, Price:
		m.Matching = products
	}
	m.Found = len(m.Matching) > 0
	return m, true
}

var colorOnly = regexp.MustCompile(`^(?:(?:tesekkurler|tesekkur ederim|sagolasin|sagol|tamam|peki)\s+)?(\S+)\s*(?:var\s*mi|mevcut(?:\s*mu)?|stok(?:ta)?(?:\s*var\s*mi)?)$`)

// ColorOnlyQuery recognizes messages like "siyahı var mı" or "teşekkürler,
// beyazı var mı" that ask for a color without naming a product.
func ColorOnlyQuery(text string) (string, bool) {
	m := colorOnly.FindStringSubmatch(textnorm.Normalize(text))
	if m == nil {
		return "", false
	}
	return CanonicalColor(m[1])
}

// AvailableColors lists distinct product colors in first-seen order.
func AvailableColors(products []model.Product) []model.Product {
	seen := make(map[string]struct{})
	var out []model.Product
	for _, p := range products {
		key := textnorm.Normalize(p.Color)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ColorNames lists the distinct colors of products, sorted.
func ColorNames(products []model.Product) []string {
	var out []string
	for _, p := range AvailableColors(products) {
		out = append(out, p.Color)
	}
	sort.Strings(out)
	return out
}

func containsAny(norm string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(norm, n) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	return strings.Contains(" "+text+" ", " "+word+" ")
}
