package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Merhaba!", "merhaba"},
		{"  SİYAH   Sabahlık?? ", "siyah sabahlik"},
		{"IŞIK", "isik"},
		{"Çiçekli, Düğmeli; Gecelik", "cicekli dugmeli gecelik"},
		{"1 numaralı ürünün fiyatı", "1 numarali urunun fiyati"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Afrika Etnik Baskılı Dantelli Gecelik",
		"İYİ GÜNLER!!!",
		"hamile-lohusa pijama (xl)",
		"ÖĞRENCİ   ŞORT",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestLowerUpperTurkish(t *testing.T) {
	assert.Equal(t, "ışık", Lower("IŞIK"))
	assert.Equal(t, "siyah", Lower("SİYAH"))
	assert.Equal(t, "SİYAH", Upper("siyah"))
	assert.Equal(t, "siyah sabahlık", CleanLower("  SİYAH   Sabahlık "))
}

func TestStripSuffix(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"kolları", "kol"},
		{"geceliği", "geceliğ"},
		{"pijamada", "pijama"},
		{"ev", "ev"},
		{"eve", "eve"},
		{"renkleri", "renk"},
		{"sabahlik", "sabah"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSuffix(tt.word))
		})
	}
}

func TestPhoneticVariants(t *testing.T) {
	variants := PhoneticVariants("kazak")
	assert.Contains(t, variants, "kazak")
	assert.Contains(t, variants, "cazac")
	assert.Len(t, variants, 2)

	variants = PhoneticVariants("dağ")
	assert.Contains(t, variants, "dag")
	assert.Contains(t, variants, "da")

	assert.Equal(t, []string{"xyz"}, PhoneticVariants("xyz"))
}

func TestCorrectTypos(t *testing.T) {
	assert.Equal(t, "afrika gecelik", CorrectTypos("afirka geclik"))
	assert.Equal(t, "hamile pijama", CorrectTypos("hamle pjama"))
	assert.Equal(t, "siyah gecelik", CorrectTypos("siyah gecelik"))
}
