package retrieval

import (
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/index"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// stopPhrases carry no product meaning. Folded; removed longest first.
var stopPhrases = []string{
	"bulunur mu", "var miydi", "ne kadar", "kac para", "var mi", "var mu",
	"ariyorum", "istiyorum", "lazim", "gerek", "mevcut mu", "fiyati", "fiyat", "icin",
}

// veryspecific phrases name one product line; a query containing one is
// answered with the first product carrying it.
var verySpecific = []string{"new york", "africa style", "calm down", "never give up", "stay strong"}

// narrowWords make a multi-word query select a single product line.
var narrowWords = []string{"afrika", "etnik"}

// brands are enforced against product names when the query names them or
// both of their words.
var brands = []string{"stay strong", "calm down", "africa style", "basic", "premium", "comfort", "sport", "classic"}

// typeWords are garment types that act as hard filters.
var typeWords = []string{"gecelik", "pijama", "sabahlik"}

// query is a retrieval query in the forms the passes need.
type query struct {
	raw   string
	norm  string
	clean string
	// words are the content tokens longer than two letters.
	words []string
}

func parseQuery(raw string) query {
	norm := textnorm.CorrectTypos(textnorm.Normalize(raw))
	clean := " " + norm + " "
	for _, p := range stopPhrases {
		clean = strings.ReplaceAll(clean, " "+p+" ", " ")
	}
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		clean = norm
	}
	var words []string
	for _, w := range strings.Fields(clean) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	return query{raw: raw, norm: norm, clean: clean, words: words}
}

func (q query) specificIndicator() (string, bool) {
	for _, s := range verySpecific {
		if strings.Contains(q.clean, s) {
			return s, true
		}
	}
	return "", false
}

// brand returns the brand the query asks for, if any.
func (q query) brand() (string, bool) {
	for _, b := range brands {
		if strings.Contains(q.clean, b) {
			return b, true
		}
		parts := strings.Fields(b)
		if len(parts) == 2 && hasToken(q.clean, parts[0]) && hasToken(q.clean, parts[1]) {
			return b, true
		}
	}
	return "", false
}

// requiredRatio is the share of query words a product must contain.
func (q query) requiredRatio() float64 {
	switch n := len(q.words); {
	case n <= 2:
		return 1.0
	case n <= 4:
		return 0.9
	default:
		return 0.85
	}
}

// passesFilters applies the garment type and brand hard filters.
func (q query) passesFilters(p model.Product) bool {
	name := textnorm.Normalize(p.Name)
	for _, t := range typeWords {
		if strings.Contains(q.clean, t) && !strings.Contains(name, t) {
			return false
		}
	}
	if b, ok := q.brand(); ok && !strings.Contains(name, b) {
		return false
	}
	return true
}

// wordRatio is the share of query words found in text, allowing a
// suffix-stripped root to stand in for the word.
func (q query) wordRatio(text string) float64 {
	if len(q.words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range q.words {
		if containsWordOrRoot(text, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(q.words))
}

func containsWordOrRoot(text, w string) bool {
	if strings.Contains(text, w) {
		return true
	}
	root := textnorm.StripSuffix(w)
	return root != w && len([]rune(root)) >= 3 && strings.Contains(text, root)
}

func hasToken(text, tok string) bool {
	return strings.Contains(" "+text+" ", " "+tok+" ")
}

func productText(p model.Product) string {
	return textnorm.Normalize(p.Name + " " + p.Color)
}

// capBySpecificity limits the number of distinct product lines. Color
// variants of a kept line stay together; the total never exceeds max.
func (r *Retriever) capBySpecificity(q query, products []model.Product) []model.Product {
	lines := r.opts.MaxResults
	if len(q.words) >= 2 {
		lines = r.opts.SpecificMax
		for _, w := range narrowWords {
			if strings.Contains(q.clean, w) {
				lines = r.opts.VerySpecificMax
				break
			}
		}
	}
	return capLines(products, lines, r.opts.MaxResults)
}

func capLines(products []model.Product, lines, max int) []model.Product {
	seen := make(map[string]struct{})
	var out []model.Product
	for _, p := range products {
		base := textnorm.Normalize(p.BaseName())
		if _, ok := seen[base]; !ok {
			if len(seen) == lines {
				continue
			}
			seen[base] = struct{}{}
		}
		out = append(out, p)
		if len(out) == max {
			break
		}
	}
	return out
}

// relevant decides whether a cached list still answers the query. Short and
// attribute-only queries always pass; otherwise half of the top three cached
// products must contain 60% of the query's content words.
func relevant(raw string, cached []model.Product) bool {
	if len(cached) == 0 {
		return false
	}
	norm := textnorm.Normalize(raw)
	if len([]rune(norm)) < 3 || attribute.HasQueryIndicator(norm) {
		return true
	}
	if t, _ := attribute.Extract(norm); t != attribute.None && len(strings.Fields(norm)) <= 2 {
		return true
	}
	var words []string
	for _, w := range strings.Fields(norm) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return true
	}
	top := cached
	if len(top) > 3 {
		top = top[:3]
	}
	ok := 0
	for _, p := range top {
		text := textnorm.Normalize(index.SearchText(p, index.ProductFeatures(p)))
		hits := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				hits++
			}
		}
		if float64(hits)/float64(len(words)) >= 0.6 {
			ok++
		}
	}
	return float64(ok)/float64(len(top)) >= 0.5
}
