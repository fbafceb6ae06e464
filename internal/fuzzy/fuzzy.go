// Package fuzzy scores how closely a Turkish query matches a product name
// using edit-distance ratios plus a few language-specific boosts.
package fuzzy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// Scores holds the individual similarity measures, each in [0,1].
type Scores struct {
	Ratio     float64 `json:"ratio"`
	Partial   float64 `json:"partial"`
	TokenSort float64 `json:"token_sort"`
	TokenSet  float64 `json:"token_set"`
}

// Weighted combines the measures into a single unboosted score.
func (s Scores) Weighted() float64 {
	return 0.30*s.Ratio + 0.25*s.TokenSort + 0.25*s.TokenSet + 0.20*s.Partial
}

// Confidence rates how consistent the measures are with each other.
func (s Scores) Confidence() float64 {
	all := []float64{s.Ratio, s.TokenSort, s.TokenSet, s.Partial}
	lo, hi, sum := all[0], all[0], 0.0
	for _, v := range all {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	avg := sum / 4
	c := avg*0.7 + (1-(hi-lo))*0.2 + max(0, avg-0.7)*0.5
	return clamp(c)
}

// Match is the outcome of scoring one candidate.
type Match struct {
	Index         int      `json:"index"`
	Score         float64  `json:"score"`
	Scores        Scores   `json:"scores"`
	MatchedTokens []string `json:"matched_tokens,omitempty"`
}

type boost struct {
	re     *regexp.Regexp
	factor float64
}

// Terms are matched against normalized (diacritic-folded) text.
var boosts = []boost{
	{regexp.MustCompile(`\bgecelik\b`), 1.10},
	{regexp.MustCompile(`\bpijama\b`), 1.10},
	{regexp.MustCompile(`\belbise\b`), 1.10},
	{regexp.MustCompile(`\bsabahlik\b`), 1.10},
	{regexp.MustCompile(`\btakim\b`), 1.10},
	{regexp.MustCompile(`\bhamile\b`), 1.20},
	{regexp.MustCompile(`\blohusa\b`), 1.20},
	{regexp.MustCompile(`\bdantelli\b`), 1.10},
	{regexp.MustCompile(`\bdugmeli\b`), 1.10},
	{regexp.MustCompile(`\bsiyah\b`), 1.05},
	{regexp.MustCompile(`\bbeyaz\b`), 1.05},
}

// Matcher scores queries against product texts. It is stateless.
type Matcher struct{}

// NewMatcher returns a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Compare returns the raw measures between two already normalized strings.
func Compare(a, b string) Scores {
	return Scores{
		Ratio:     Ratio(a, b),
		Partial:   PartialRatio(a, b),
		TokenSort: TokenSortRatio(a, b),
		TokenSet:  TokenSetRatio(a, b),
	}
}

// Score returns the boosted, clamped similarity of query and productText.
func (m *Matcher) Score(query, productText string) float64 {
	q := textnorm.Normalize(query)
	p := textnorm.Normalize(productText)
	return clamp(Compare(q, p).Weighted() * boostFactor(q, p))
}

// Rank scores every candidate and returns those at or above threshold, best
// first. A non-positive limit returns all of them.
func (m *Matcher) Rank(query string, candidates []string, threshold float64, limit int) []Match {
	q := textnorm.Normalize(query)
	if q == "" {
		return nil
	}
	qTokens := strings.Fields(q)

	var out []Match
	for i, c := range candidates {
		p := textnorm.Normalize(c)
		if p == "" {
			continue
		}
		s := Compare(q, p)
		score := clamp(s.Weighted() * boostFactor(q, p))
		if score < threshold {
			continue
		}
		out = append(out, Match{
			Index:         i,
			Score:         score,
			Scores:        s,
			MatchedTokens: intersect(qTokens, strings.Fields(p)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func boostFactor(q, p string) float64 {
	f := 1.0
	for _, b := range boosts {
		if b.re.MatchString(q) && b.re.MatchString(p) {
			f *= b.factor
		}
	}

	qWords := strings.Fields(q)
	pWords := strings.Fields(p)

	pRoots := make(map[string]struct{}, len(pWords))
	pSet := make(map[string]struct{}, len(pWords))
	for _, w := range pWords {
		pRoots[textnorm.StripSuffix(w)] = struct{}{}
		pSet[w] = struct{}{}
	}

	var rootHits, phoneticHits int
	for _, w := range qWords {
		root := textnorm.StripSuffix(w)
		if _, ok := pRoots[root]; ok && len(root) > 2 {
			rootHits++
		}
		for _, v := range textnorm.PhoneticVariants(w) {
			if _, ok := pSet[v]; ok {
				phoneticHits++
				break
			}
		}
	}
	if rootHits > 0 {
		f *= 1 + 0.05*float64(rootHits)
	}
	if phoneticHits > 0 {
		f *= 1 + 0.03*float64(phoneticHits)
	}
	return f
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, w := range b {
		set[w] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, w := range a {
		if _, ok := set[w]; !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
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
