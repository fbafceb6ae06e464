// Package features extracts weighted product features (garment type, target
// group, style, color, ...) from Turkish shopping queries.
package features

import (
	"regexp"
	"sort"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// Category groups features that play the same role in a query.
type Category string

const (
	GarmentType Category = "GARMENT_TYPE"
	TargetGroup Category = "TARGET_GROUP"
	Style       Category = "STYLE"
	Color       Category = "COLOR"
	BodyPart    Category = "BODY_PART"
	Closure     Category = "CLOSURE"
	Material    Category = "MATERIAL"
	Pattern     Category = "PATTERN"
	Size        Category = "SIZE"
	Occasion    Category = "OCCASION"
	QueryType   Category = "QUERY_TYPE"
)

// Categories lists every category in scan order.
var Categories = []Category{
	GarmentType, TargetGroup, Style, Color, BodyPart, Closure, Material, Pattern, Size, Occasion, QueryType,
}

// Span is the byte range of a match inside the normalized query.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Feature is a single extracted product attribute.
type Feature struct {
	Value           string   `json:"value"`
	Category        Category `json:"category"`
	Weight          float64  `json:"weight"`
	Confidence      float64  `json:"confidence"`
	Synonyms        []string `json:"synonyms,omitempty"`
	NormalizedValue string   `json:"normalized_value"`
	Span            Span     `json:"span"`
}

// Score is the ordering key of a feature.
func (f Feature) Score() float64 {
	return f.Weight * f.Confidence
}

// Extractor scans text against fixed per-category dictionaries.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	dict map[Category][]definition
}

// NewExtractor returns an extractor loaded with the built-in dictionaries.
func NewExtractor() *Extractor {
	return &Extractor{dict: compileDictionary(dictionary)}
}

// favorableLeft are adjectives that make the following word more likely to be
// a product attribute ("siyah gecelik", "dantelli sabahlık").
var favorableLeft = map[string]struct{}{
	"siyah": {}, "beyaz": {}, "dantelli": {}, "dugmeli": {},
}

const (
	baseConfidence     = 0.8
	literalBonus       = 0.10
	wordBoundaryBonus  = 0.05
	leftNeighbourBonus = 0.05
)

// Extract returns the features found in text, deduplicated by category and
// value and sorted by weight times confidence, highest first.
func (e *Extractor) Extract(text string) []Feature {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return nil
	}
	words := strings.Fields(norm)

	best := make(map[string]Feature)
	var order []string
	for _, cat := range Categories {
		for _, def := range e.dict[cat] {
			span, ok := def.match(norm)
			if !ok {
				continue
			}
			f := Feature{
				Value:           def.canonical,
				Category:        cat,
				Weight:          def.weight,
				Confidence:      confidence(def.folded, norm, words),
				Synonyms:        def.synonyms,
				NormalizedValue: def.folded,
				Span:            span,
			}
			key := string(cat) + "_" + def.canonical
			prev, seen := best[key]
			if !seen {
				order = append(order, key)
				best[key] = f
				continue
			}
			if f.Confidence > prev.Confidence {
				best[key] = f
			}
		}
	}

	out := make([]Feature, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}

func confidence(folded, norm string, words []string) float64 {
	c := baseConfidence
	if strings.Contains(norm, folded) {
		c += literalBonus
	}
	if containsWord(norm, folded) {
		c += wordBoundaryBonus
	}
	for i, w := range words {
		if w != folded {
			continue
		}
		if i > 0 {
			if _, ok := favorableLeft[words[i-1]]; ok {
				c += leftNeighbourBonus
			}
		}
		break
	}
	if c > 1 {
		c = 1
	}
	return c
}

// containsWord reports whether phrase occurs in text delimited by spaces or
// the text edges. Both arguments are normalized.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// Values returns the values of the features in the given category, in order.
func Values(fs []Feature, cat Category) []string {
	var out []string
	for _, f := range fs {
		if f.Category == cat {
			out = append(out, f.Value)
		}
	}
	return out
}

// First returns the highest ranked feature of a category.
func First(fs []Feature, cat Category) (Feature, bool) {
	for _, f := range fs {
		if f.Category == cat {
			return f, true
		}
	}
	return Feature{}, false
}

// NormalizedValues returns the normalized values of all features, sorted.
// It is used to build cache keys that do not depend on extraction order.
func NormalizedValues(fs []Feature) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.NormalizedValue)
	}
	sort.Strings(out)
	return out
}

// Similarity compares two feature sets category by category. Identical values
// score 1, equal normalized values 0.9 and synonym matches 0.8, each weighted
// by the feature weight of the left side.
func Similarity(a, b []Feature) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	byCat := make(map[Category][]Feature)
	for _, f := range b {
		byCat[f.Category] = append(byCat[f.Category], f)
	}

	var total, weight float64
	for _, fa := range a {
		candidates := byCat[fa.Category]
		if len(candidates) == 0 {
			continue
		}
		var bestScore float64
		for _, fb := range candidates {
			var s float64
			switch {
			case fa.Value == fb.Value:
				s = 1
			case fa.NormalizedValue == fb.NormalizedValue:
				s = 0.9
			case contains(fa.Synonyms, fb.Value) || contains(fb.Synonyms, fa.Value):
				s = 0.8
			}
			if s > bestScore {
				bestScore = s
			}
		}
		total += bestScore * fa.Weight
		weight += fa.Weight
	}
	if weight == 0 {
		return 0
	}
	return total / weight
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Stats describes the loaded dictionaries.
type Stats struct {
	Categories map[Category][]string `json:"categories"`
}

// Stats lists the canonical values known per category.
func (e *Extractor) Stats() Stats {
	s := Stats{Categories: make(map[Category][]string, len(e.dict))}
	for cat, defs := range e.dict {
		for _, d := range defs {
			s.Categories[cat] = append(s.Categories[cat], d.canonical)
		}
	}
	return s
}

type definition struct {
	canonical string
	folded    string
	weight    float64
	synonyms  []string
	foldedSyn []string
	patterns  []*regexp.Regexp
}

// match tries the canonical form, then the patterns, then the synonyms.
func (d definition) match(norm string) (Span, bool) {
	if i := strings.Index(norm, d.folded); i >= 0 {
		return Span{Start: i, End: i + len(d.folded)}, true
	}
	for _, re := range d.patterns {
		if loc := re.FindStringIndex(norm); loc != nil {
			return Span{Start: loc[0], End: loc[1]}, true
		}
	}
	for _, syn := range d.foldedSyn {
		if !containsWord(norm, syn) {
			continue
		}
		i := strings.Index(" "+norm+" ", " "+syn+" ")
		return Span{Start: i, End: i + len(syn)}, true
	}
	return Span{}, false
}

func compileDictionary(src map[Category][]entry) map[Category][]definition {
	out := make(map[Category][]definition, len(src))
	for cat, entries := range src {
		defs := make([]definition, 0, len(entries))
		for _, e := range entries {
			d := definition{
				canonical: e.value,
				folded:    textnorm.Normalize(e.value),
				weight:    e.weight,
				synonyms:  e.synonyms,
			}
			for _, s := range e.synonyms {
				d.foldedSyn = append(d.foldedSyn, textnorm.Normalize(s))
			}
			for _, p := range e.patterns {
				d.patterns = append(d.patterns, regexp.MustCompile(p))
			}
			defs = append(defs, d)
		}
		out[cat] = defs
	}
	return out
}
