package retrieval

import (
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/features"
	"github.com/capitalize-ai/commerce-assistant/internal/index"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// searchConfidence averages word overlap and cosine over the top three hits
// and adds 0.3 when the query appears verbatim in the best name.
func searchConfidence(q query, hits []index.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	qWords := make(map[string]struct{})
	for _, w := range strings.Fields(q.clean) {
		qWords[w] = struct{}{}
	}

	top := hits
	if len(top) > 3 {
		top = top[:3]
	}
	var total float64
	for _, h := range top {
		var overlap float64
		if len(qWords) > 0 {
			nameWords := make(map[string]struct{})
			for _, w := range strings.Fields(textnorm.Normalize(h.Product.Name)) {
				nameWords[w] = struct{}{}
			}
			n := 0
			for w := range qWords {
				if _, ok := nameWords[w]; ok {
					n++
				}
			}
			overlap = float64(n) / float64(len(qWords))
		}
		total += overlap*0.6 + h.Similarity*0.4
	}
	conf := total / float64(len(top))
	if strings.Contains(textnorm.Normalize(hits[0].Product.Name), q.clean) {
		conf += 0.3
	}
	return clamp(conf)
}

// fuse combines cosine similarity with the retrieval boosts: content words
// in the name, garment type agreement, requested color and feature overlap.
func (r *Retriever) fuse(q query, qFeats []features.Feature, color string, h index.Hit) float64 {
	name := textnorm.Normalize(h.Product.Name)
	score := h.Similarity

	for _, w := range q.words {
		if strings.Contains(name, w) {
			score += 0.1
		}
	}
	switch {
	case strings.Contains(q.clean, "sabahlik") && strings.Contains(name, "sabahlik"),
		strings.Contains(q.clean, "gecelik") && strings.Contains(name, "gecelik"),
		strings.Contains(q.clean, "pijama") && strings.Contains(name, "pijama"):
		score += 0.3
	case strings.Contains(q.clean, "takim") && strings.Contains(name, "takim"):
		score += 0.2
	}
	if color != "" && attribute.MatchColor(color, h.Product.Color) {
		score += 0.15
	}
	if len(qFeats) > 0 {
		score += 0.2 * features.Similarity(qFeats, r.features.Extract(h.Product.Name))
	}
	return score
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
