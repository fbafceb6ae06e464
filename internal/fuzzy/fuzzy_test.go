package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"gecelik", "gecelik", 0},
		{"ğ", "g", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
		})
	}
}

func TestRatios(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.InDelta(t, 1-3.0/7, Ratio("kitten", "sitting"), 1e-9)

	assert.Equal(t, 1.0, PartialRatio("gecelik", "siyah gecelik"))
	assert.Equal(t, 0.0, PartialRatio("", "gecelik"))

	assert.Equal(t, 1.0, TokenSortRatio("gecelik siyah", "siyah gecelik"))
	assert.InDelta(t, 1.0/3, TokenSetRatio("a b", "b c"), 1e-9)
}

func TestScoresWeighted(t *testing.T) {
	s := Scores{Ratio: 1, Partial: 1, TokenSort: 1, TokenSet: 1}
	assert.InDelta(t, 1.0, s.Weighted(), 1e-9)
	assert.InDelta(t, 1.0, s.Confidence(), 1e-9)

	s = Scores{Ratio: 0.5}
	assert.InDelta(t, 0.15, s.Weighted(), 1e-9)
}

func TestMatcherScoreBoosts(t *testing.T) {
	m := NewMatcher()

	assert.Equal(t, 1.0, m.Score("siyah gecelik", "Siyah Gecelik"))

	raw := Compare("hamile pijama", "hamile lohusa pijama takimi").Weighted()
	boosted := m.Score("hamile pijama", "Hamile Lohusa Pijama Takımı")
	assert.Greater(t, boosted, raw)
	assert.LessOrEqual(t, boosted, 1.0)
}

func TestMatcherRank(t *testing.T) {
	m := NewMatcher()
	names := []string{
		"Hamile Pijama Takımı",
		"Dantelli Gecelik",
		"Afrika Etnik Baskılı Gecelik",
	}

	got := m.Rank("dantelli gecelik", names, 0, 0)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Index)
	assert.ElementsMatch(t, []string{"dantelli", "gecelik"}, got[0].MatchedTokens)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	assert.Len(t, m.Rank("dantelli gecelik", names, 0, 1), 1)
	assert.Empty(t, m.Rank("", names, 0, 0))
}
