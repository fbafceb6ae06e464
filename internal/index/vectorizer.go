package index

import (
	"math"
	"sort"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 5000

// Vector is a sparse, L2-normalized TF-IDF row. Indices are ascending.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product, which is the cosine similarity for
// normalized vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Empty reports whether the vector has no non-zero terms.
func (v Vector) Empty() bool {
	return len(v.Indices) == 0
}

// Vectorizer turns text into TF-IDF vectors over a vocabulary of unigrams
// and bigrams. The vocabulary is frozen by Fit.
type Vectorizer struct {
	MaxFeatures int
	Vocabulary  map[string]int
	IDF         []float64
}

// NewVectorizer returns an unfitted vectorizer. maxFeatures <= 0 uses the default.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fitted reports whether Fit has been called.
func (v *Vectorizer) Fitted() bool {
	return len(v.Vocabulary) > 0
}

// Fit learns the vocabulary and smoothed inverse document frequencies.
// When the corpus has more distinct terms than MaxFeatures, the most frequent
// terms are kept.
func (v *Vectorizer) Fit(docs []string) {
	counts := make(map[string]int)
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, t := range terms(d) {
			counts[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	vocab := make([]string, 0, len(counts))
	for t := range counts {
		vocab = append(vocab, t)
	}
	if len(vocab) > v.MaxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if counts[vocab[i]] != counts[vocab[j]] {
				return counts[vocab[i]] > counts[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:v.MaxFeatures]
	}
	sort.Strings(vocab)

	n := float64(len(docs))
	v.Vocabulary = make(map[string]int, len(vocab))
	v.IDF = make([]float64, len(vocab))
	for i, t := range vocab {
		v.Vocabulary[t] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
}

// Transform vectorizes text with the fitted vocabulary. Unknown terms are
// ignored.
func (v *Vectorizer) Transform(text string) Vector {
	tf := make(map[int]float64)
	for _, t := range terms(text) {
		if idx, ok := v.Vocabulary[t]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return Vector{}
	}

	vec := Vector{
		Indices: make([]int, 0, len(tf)),
		Values:  make([]float64, 0, len(tf)),
	}
	for idx := range tf {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, idx := range vec.Indices {
		w := tf[idx] * v.IDF[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range vec.Values {
		vec.Values[i] /= norm
	}
	return vec
}

// terms returns the unigrams and bigrams of the normalized text.
func terms(text string) []string {
	toks := strings.Fields(textnorm.Normalize(text))
	out := make([]string, 0, 2*len(toks))
	out = append(out, toks...)
	for i := 0; i+1 < len(toks); i++ {
		out = append(out, toks[i]+" "+toks[i+1])
	}
	return out
}
