package attribute

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

func item(name, color string, stock int) model.Product {
	p := decimal.NewFromInt(500)
	return model.Product{Name: name, Color: color, Price: p, FinalPrice: p, Stock: stock}
}

func TestCanonicalColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"siyahı", "siyah", true},
		{"BLACK", "siyah", true},
		{"ekru", "beyaz", true},
		{"kırmızısı", "kırmızı", true},
		{"kirmizi", "kırmızı", true},
		{"bej", "vizon", true},
		{"gecelik", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchColor(t *testing.T) {
	assert.True(t, MatchColor("siyah", "SİYAH"))
	assert.True(t, MatchColor("siyah", "SİYAH-BEYAZ"))
	assert.True(t, MatchColor("beyaz", "EKRU"))
	assert.True(t, MatchColor("vizon", "BEJ"))
	assert.False(t, MatchColor("siyah", "BEJ"))
	assert.False(t, MatchColor("", "BEJ"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		in    string
		typ   Type
		value string
	}{
		{"siyahı var mı", Color, "siyah"},
		{"M beden var mı", Size, "m"},
		{"xl mevcut mu", Size, "xl"},
		{"stokta var mı", Stock, "stock"},
		{"fiyatı ne kadar", Price, "price"},
		{"kaça", Price, "price"},
		{"merhaba", None, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, v := Extract(tt.in)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestLookup(t *testing.T) {
	products := []model.Product{
		item("Afrika Gecelik", "BEJ", 3),
		item("Afrika Gecelik", "SİYAH", 0),
		item("Dantelli Sabahlık", "EKRU", 2),
	}

	m, ok := Lookup("siyahı var mı", products)
	require.True(t, ok)
	assert.Equal(t, Color, m.Type)
	assert.True(t, m.Found)
	require.Len(t, m.Matching, 1)
	assert.Equal(t, "SİYAH", m.Matching[0].Color)

	m, ok = Lookup("kırmızı var mı", products)
	require.True(t, ok)
	assert.False(t, m.Found)
	assert.Len(t, m.All, 3)

	_, ok = Lookup("siyah gecelik", products)
	assert.False(t, ok, "no question phrasing")
}

func TestColorOnlyQuery(t *testing.T) {
	c, ok := ColorOnlyQuery("siyahı var mı")
	require.True(t, ok)
	assert.Equal(t, "siyah", c)

	c, ok = ColorOnlyQuery("Teşekkürler, beyazı var mı?")
	require.True(t, ok)
	assert.Equal(t, "beyaz", c)

	_, ok = ColorOnlyQuery("siyah gecelik var mı")
	assert.False(t, ok)
	_, ok = ColorOnlyQuery("gecelik var mı")
	assert.False(t, ok)
}

func TestFindSizeNeedsContextForLetters(t *testing.T) {
	_, ok := FindSize("s harfi")
	assert.False(t, ok)
	s, ok := FindSize("s beden")
	require.True(t, ok)
	assert.Equal(t, "s", s)
	s, ok = FindSize("2xl var mı")
	require.True(t, ok)
	assert.Equal(t, "xxl", s)
}

func TestAvailableColors(t *testing.T) {
	products := []model.Product{item("a", "BEJ", 1), item("b", "bej", 1), item("c", "SİYAH", 1), item("d", "", 1)}
	assert.Len(t, AvailableColors(products), 2)
	assert.Equal(t, []string{"BEJ", "SİYAH"}, ColorNames(products))
}
