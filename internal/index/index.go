// Package index builds and queries the per-tenant TF-IDF product index.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// MinSimilarity is the cosine floor for search candidates.
const MinSimilarity = 0.01

// ErrEmptyCatalog is returned when an index is built from no products.
var ErrEmptyCatalog = errors.New("catalog has no products")

// Document is an indexed product with its derived search text.
type Document struct {
	Product    model.Product
	Features   []string
	SearchText string
}

// Hit is a search candidate.
type Hit struct {
	Position   int
	Product    model.Product
	Similarity float64
}

// Index is an immutable TF-IDF index over a product snapshot.
// It is safe for concurrent readers.
type Index struct {
	docs    []Document
	vec     *Vectorizer
	matrix  []Vector
	builtAt time.Time
	source  string
}

// Build fits a vectorizer over the products' search texts.
// source identifies the catalog version the index was built from.
func Build(products []model.Product, source string) (*Index, error) {
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	docs := make([]Document, len(products))
	texts := make([]string, len(products))
	for i, p := range products {
		feats := ProductFeatures(p)
		docs[i] = Document{Product: p, Features: feats, SearchText: SearchText(p, feats)}
		texts[i] = docs[i].SearchText
	}

	vec := NewVectorizer(DefaultMaxFeatures)
	vec.Fit(texts)

	matrix := make([]Vector, len(docs))
	for i, t := range texts {
		matrix[i] = vec.Transform(t)
	}
	return &Index{docs: docs, vec: vec, matrix: matrix, builtAt: time.Now(), source: source}, nil
}

func newIndex(docs []Document, vec *Vectorizer, matrix []Vector, builtAt time.Time, source string) (*Index, error) {
	if len(matrix) != len(docs) {
		return nil, fmt.Errorf("matrix has %d rows for %d products", len(matrix), len(docs))
	}
	if !vec.Fitted() {
		return nil, errors.New("vectorizer is not fitted")
	}
	return &Index{docs: docs, vec: vec, matrix: matrix, builtAt: builtAt, source: source}, nil
}

// Search returns up to limit*3 products with cosine similarity of at least
// MinSimilarity, most similar first. Ties keep catalog order.
func (ix *Index) Search(text string, limit int) []Hit {
	if limit <= 0 {
		return nil
	}
	q := ix.vec.Transform(text)
	if q.Empty() {
		return nil
	}

	var hits []Hit
	for i, row := range ix.matrix {
		sim := q.Dot(row)
		if sim < MinSimilarity {
			continue
		}
		hits = append(hits, Hit{Position: i, Product: ix.docs[i].Product, Similarity: sim})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if n := limit * 3; len(hits) > n {
		hits = hits[:n]
	}
	return hits
}

// Similarity returns the cosine similarity between text and product i.
func (ix *Index) Similarity(text string, i int) float64 {
	if i < 0 || i >= len(ix.matrix) {
		return 0
	}
	return ix.vec.Transform(text).Dot(ix.matrix[i])
}

// Vector returns the TF-IDF vector of text under the fitted vocabulary.
func (ix *Index) Vector(text string) Vector {
	return ix.vec.Transform(text)
}

// Len is the number of indexed products.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Document returns the i-th indexed document.
func (ix *Index) Document(i int) Document {
	return ix.docs[i]
}

// Documents returns the indexed documents in catalog order.
func (ix *Index) Documents() []Document {
	out := make([]Document, len(ix.docs))
	copy(out, ix.docs)
	return out
}

// Products returns the product snapshot in catalog order.
func (ix *Index) Products() []model.Product {
	out := make([]model.Product, len(ix.docs))
	for i, d := range ix.docs {
		out[i] = d.Product
	}
	return out
}

// VocabularySize is the number of learned terms.
func (ix *Index) VocabularySize() int {
	return len(ix.vec.Vocabulary)
}

// BuiltAt is when the index was fitted.
func (ix *Index) BuiltAt() time.Time {
	return ix.builtAt
}

// Source identifies the catalog version the index was built from.
func (ix *Index) Source() string {
	return ix.source
}

var (
	ekonomikCeiling = decimal.NewFromInt(1000)
	ortaCeiling     = decimal.NewFromInt(2000)
)

var nameTags = []struct {
	needles []string
	tag     string
}{
	{[]string{"pijama"}, "pijama"},
	{[]string{"gecelik"}, "gecelik"},
	{[]string{"sabahlık"}, "sabahlık"},
	{[]string{"takım"}, "takım"},
	{[]string{"dantelli"}, "dantelli"},
	{[]string{"dekolteli", "dekolte"}, "dekolteli"},
	{[]string{"düğmeli"}, "düğmeli"},
	{[]string{"askılı"}, "askılı"},
	{[]string{"hamile"}, "hamile"},
	{[]string{"lohusa"}, "lohusa"},
	{[]string{"büyük beden"}, "büyük_beden"},
}

// ProductFeatures derives the tags that are appended to a product's search
// text: garment and style words found in the name, a color tag and a price band.
func ProductFeatures(p model.Product) []string {
	name := textnorm.CleanLower(p.Name)
	var out []string
	for _, nt := range nameTags {
		for _, n := range nt.needles {
			if strings.Contains(name, n) {
				out = append(out, nt.tag)
				break
			}
		}
	}
	if c := textnorm.CleanLower(p.Color); c != "" {
		out = append(out, "renk_"+strings.ReplaceAll(c, " ", "_"))
	}
	switch {
	case p.FinalPrice.LessThan(ekonomikCeiling):
		out = append(out, "ekonomik")
	case p.FinalPrice.LessThan(ortaCeiling):
		out = append(out, "orta_segment")
	default:
		out = append(out, "premium")
	}
	return out
}

// SearchText concatenates name, color, category, derived tags and price.
func SearchText(p model.Product, feats []string) string {
	parts := []string{p.Name}
	if p.Color != "" {
		parts = append(parts, p.Color+" renk")
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	parts = append(parts, feats...)
	if p.FinalPrice.IsPositive() {
		parts = append(parts, p.FinalPrice.String()+" TL fiyat")
	}
	return textnorm.CleanLower(strings.Join(parts, " "))
}
