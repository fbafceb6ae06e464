package session

import (
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// ambiguous maps folded phrases to the intents they can mean.
var ambiguous = map[string][]model.Intent{
	"iyi gunler": {model.IntentGreeting, model.IntentGoodbye},
}

// DetectAmbiguity reports whether msg is a phrase with several meanings and
// returns the candidate intents.
func (c *Context) DetectAmbiguity(msg string) ([]model.Intent, bool) {
	meanings, ok := ambiguous[textnorm.Normalize(msg)]
	return meanings, ok
}

// ResolveAmbiguity picks a meaning by time of day and how far the
// conversation has gone. Mornings and fresh sessions greet; evenings after a
// few turns say goodbye.
func (c *Context) ResolveAmbiguity(meanings []model.Intent) model.Intent {
	if len(meanings) == 0 {
		return model.IntentUnclear
	}
	hour := c.now().Hour()
	if len(c.History) == 0 || hour < 12 {
		if hasIntent(meanings, model.IntentGreeting) {
			return model.IntentGreeting
		}
		return meanings[0]
	}
	if hour >= 18 && len(c.History) >= 3 && hasIntent(meanings, model.IntentGoodbye) {
		return model.IntentGoodbye
	}
	if hasIntent(meanings, model.IntentGreeting) {
		return model.IntentGreeting
	}
	return meanings[0]
}

func hasIntent(list []model.Intent, want model.Intent) bool {
	for _, i := range list {
		if i == want {
			return true
		}
	}
	return false
}

var (
	incompleteColors = wordSet("siyah beyaz kırmızı mavi lacivert yeşil mor pembe ekru")
	incompleteTypes  = wordSet("gecelik pijama sabahlık takım elbise şort")
	incompleteSizes  = wordSet("xs s m l xl xxl")
	vagueWords       = wordSet("tamam evet olur iyi güzel")
)

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[textnorm.Normalize(w)] = struct{}{}
	}
	return out
}

// HandleIncompleteInput answers single-word and very short messages that
// cannot start a search on their own. ok is false when msg is complete.
func (c *Context) HandleIncompleteInput(msg string) (string, bool) {
	display := textnorm.CleanLower(msg)
	words := strings.Fields(display)

	if len(words) == 1 {
		word := strings.Trim(words[0], ".,!?")
		key := textnorm.Normalize(word)
		if _, ok := incompleteColors[key]; ok {
			if c.HasLastProducts() {
				return title(word) + " renkte ürünler arasından seçim yapıyorsunuz. Size uygun ürünleri göstereyim.", true
			}
			return title(word) + " renkte hangi ürün türünü arıyorsunuz? (gecelik, pijama, sabahlık, takım)", true
		}
		if _, ok := incompleteTypes[key]; ok {
			return title(word) + " arıyorsunuz. Hangi renkte olsun?", true
		}
		if _, ok := incompleteSizes[key]; ok {
			return textnorm.Upper(word) + " beden için hangi ürün türünü arıyorsunuz?", true
		}
		if _, ok := vagueWords[key]; ok {
			if c.HasLastProducts() {
				return "Hangi ürün hakkında daha fazla bilgi almak istersiniz?", true
			}
			return "Size nasıl yardımcı olabilirim? Hangi ürünü arıyorsunuz?", true
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(msg)) < 3 {
		return "Lütfen daha açık bir şekilde belirtir misiniz? Size nasıl yardımcı olabilirim?", true
	}
	return "", false
}

// title uppercases the first letter with Turkish rules.
func title(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return textnorm.Upper(string(r)) + word[size:]
}

const helpMenu = "Anlaşılan biraz karışıklık var. Size şu konularda yardımcı olabilirim:\n\n" +
	"• Ürün arama (örnek: 'hamile pijama arıyorum')\n" +
	"• Fiyat bilgisi (örnek: 'bu ürünün fiyatı nedir?')\n" +
	"• Stok durumu\n" +
	"• Mağaza bilgileri\n\n" +
	"Hangi konuda yardım istiyorsunuz?"

// ContextualResponse rewrites a composed reply using the pre-update state:
// repeated confusion gets the help menu, a greeting in the middle of a search
// and thanks after a search get replies that keep the search going.
func (c *Context) ContextualResponse(intent model.Intent, base string) string {
	switch {
	case intent == model.IntentUnclear && c.ClarificationAttempts+1 > 2:
		return helpMenu
	case intent == model.IntentGreeting && c.State == StateProductSearch && c.HasLastProducts():
		return "Merhaba! Daha önce gösterdiğim ürünler hakkında soru sormak ister misiniz? Yoksa başka bir ürün mü arıyorsunuz?"
	case intent == model.IntentThanks && c.State == StateProductSearch:
		return "Rica ederim! 😊 Gösterdiğim ürünlerden herhangi biri hakkında daha fazla bilgi almak ister misiniz?"
	}
	return base
}

var (
	imagePhrases = []string{
		"fiyati nedir", "fiyati ne", "kac para", "ne kadar",
		"var mi", "mevcut mu", "stokta mi", "bulunuyor mu",
		"bunu istiyorum", "sunu istiyorum", "onu istiyorum",
	}
	imageMarkers = wordSet("bu şu o bunun şunun onun yukarıdaki gönderdiğim attığım")
)

// ImageReference reports whether a short message seems to point at a picture
// the customer shared rather than at a product name.
func (c *Context) ImageReference(msg string) bool {
	if c.HasLastProducts() {
		return false
	}
	norm := textnorm.Normalize(msg)
	for _, p := range imagePhrases {
		if norm == p {
			return true
		}
	}
	words := strings.Fields(norm)
	if len(words) > 3 {
		return false
	}
	hasPhrase := false
	for _, p := range imagePhrases {
		if strings.Contains(norm, p) {
			hasPhrase = true
			break
		}
	}
	if !hasPhrase {
		return false
	}
	for _, w := range words {
		if _, ok := imageMarkers[w]; ok {
			return true
		}
	}
	return false
}
