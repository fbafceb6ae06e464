package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrdering(t *testing.T) {
	e := NewExtractor()

	fs := e.Extract("Siyah dantelli gecelik")
	require.Len(t, fs, 3)
	assert.Equal(t, "gecelik", fs[0].Value)
	assert.Equal(t, GarmentType, fs[0].Category)
	assert.Equal(t, "dantelli", fs[1].Value)
	assert.Equal(t, "siyah", fs[2].Value)

	// gecelik follows a favorable adjective and matches on a word boundary.
	assert.InDelta(t, 1.0, fs[0].Confidence, 1e-9)
	assert.InDelta(t, 0.95, fs[2].Confidence, 1e-9)
}

func TestExtractQueryType(t *testing.T) {
	e := NewExtractor()

	fs := e.Extract("hamile pijama fiyatı")
	require.Len(t, fs, 3)
	assert.Equal(t, []string{"pijama", "hamile", "fiyat"}, []string{fs[0].Value, fs[1].Value, fs[2].Value})

	// "fiyat" only occurs as a prefix of "fiyati", so no word boundary bonus.
	assert.InDelta(t, 0.9, fs[2].Confidence, 1e-9)
	assert.Equal(t, QueryType, fs[2].Category)
}

func TestExtractSynonymsAndPatterns(t *testing.T) {
	e := NewExtractor()

	fs := e.Extract("black nightgown")
	require.Len(t, fs, 2)
	assert.Equal(t, "gecelik", fs[0].Value)
	assert.Equal(t, "siyah", fs[1].Value)
	assert.InDelta(t, 0.8, fs[0].Confidence, 1e-9)

	fs = e.Extract("siyah sabahlık")
	f, ok := First(fs, GarmentType)
	require.True(t, ok)
	assert.Equal(t, "sabahlık", f.Value)
	assert.Equal(t, "sabahlik", f.NormalizedValue)
	assert.Equal(t, Span{Start: 6, End: 14}, f.Span)
}

func TestExtractEmpty(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   !!! "))
}

func TestHelpers(t *testing.T) {
	e := NewExtractor()
	fs := e.Extract("siyah dantelli gecelik")

	assert.Equal(t, []string{"siyah"}, Values(fs, Color))
	assert.Equal(t, []string{"dantelli", "gecelik", "siyah"}, NormalizedValues(fs))

	_, ok := First(fs, TargetGroup)
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	e := NewExtractor()
	a := e.Extract("siyah gecelik")
	b := e.Extract("black nightgown")
	c := e.Extract("hamile pijama")

	assert.InDelta(t, 1.0, Similarity(a, a), 1e-9)
	assert.InDelta(t, 1.0, Similarity(a, b), 1e-9)
	assert.InDelta(t, 0.0, Similarity(a, c), 1e-9)
	assert.Zero(t, Similarity(nil, a))
}

func TestStats(t *testing.T) {
	s := NewExtractor().Stats()
	assert.Len(t, s.Categories, len(Categories))
	assert.Contains(t, s.Categories[GarmentType], "gecelik")
}
