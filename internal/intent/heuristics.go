package intent

import (
	"regexp"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/features"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

// family is a group of phrases that signal one intent. Phrases match at the
// start of a word so suffixed forms ("kargonuz", "telefonunuz") still count.
type family struct {
	intent     model.Intent
	confidence float64
	phrases    []string
}

// families are checked in order; order status comes before shipping so
// "kargom nerede" is not answered with shipping terms.
var families = []family{
	{model.IntentPhoneInquiry, 0.85, []string{"telefon", "numaraniz", "numarasi", "numaranizi"}},
	{model.IntentReturnPolicy, 0.85, []string{"iade", "geri ver", "degisim", "degistir"}},
	{model.IntentOrderStatus, 0.85, []string{"siparisim", "kargom", "siparis durum", "siparisimi"}},
	{model.IntentShippingInfo, 0.85, []string{"kargo", "teslimat", "gonderim"}},
	{model.IntentWebsiteInquiry, 0.85, []string{"site", "web", "internet sitesi"}},
	{model.IntentPaymentInfo, 0.85, []string{"odeme", "kredi karti", "havale", "eft", "taksit", "kapida"}},
	{model.IntentAddressInquiry, 0.8, []string{"adres", "nerede", "konum", "magaza"}},
	{model.IntentContactInfo, 0.85, []string{"iletisim", "instagram", "mail", "e posta"}},
	{model.IntentOrderRequest, 0.85, []string{"siparis ver", "satin al", "almak istiyorum", "nasil alirim"}},
	{model.IntentComplaint, 0.85, []string{"sikayet", "sorun", "problem", "memnun degil", "berbat", "kotu"}},
}

var (
	greetingWords = []string{"merhaba", "selam", "slm", "mrb", "gunaydin", "iyi aksamlar", "hey", "hello"}
	thanksWords   = []string{"tesekkur", "sagol", "sag ol", "eyvallah", "tsk", "thanks", "eline saglik"}
	goodbyeWords  = []string{"gule gule", "gorusuruz", "hosca kal", "hoscakal", "bye", "iyi geceler", "kendine iyi bak"}
	generalWords  = []string{"hakkinda", "bilgi", "calisma saat", "kac yillik", "neler sat", "ne satiyor"}
	ackWords      = []string{"tamam", "peki", "anladim", "olur", "evet", "tamamdir", "ok", "okey"}
	negativeWords = []string{"hayir", "yok", "istemiyorum", "gerek yok", "vazgectim", "almayacagim"}

	numericReference = regexp.MustCompile(`\d+\s*(numarali|nolu|no\b|fiyat|kac|para|stok|var|mevcut)|\b(bu|su|o|ilk|birinci|ikinci|ucuncu)\s*urun`)
	letterSizes      = regexp.MustCompile(`\b(xs|xl|xxl|xxxl)\b.*\b(var|mevcut)`)
)

// heuristic is the last layer. It always answers; unclear is the floor.
func (c *Classifier) heuristic(msg, norm string, view ContextView) (model.IntentResult, bool) {
	if view.HasLastProducts() && numericReference.MatchString(norm) {
		return heuristicResult(model.IntentFollowUp, 0.85), true
	}

	for _, f := range families {
		if hasPhrase(norm, f.phrases...) {
			return heuristicResult(f.intent, f.confidence), false
		}
	}

	if r, contextual, ok := c.productSignal(msg, norm, view); ok {
		return r, contextual
	}

	squeezed := squeeze(norm)
	switch {
	case hasPhrase(squeezed, greetingWords...):
		return heuristicResult(model.IntentGreeting, 0.85), false
	case hasPhrase(squeezed, thanksWords...):
		return heuristicResult(model.IntentThanks, 0.85), false
	case hasPhrase(squeezed, goodbyeWords...):
		return heuristicResult(model.IntentGoodbye, 0.85), false
	case hasPhrase(norm, "beden") || letterSizes.MatchString(norm):
		return heuristicResult(model.IntentSizeInquiry, 0.8), false
	case attribute.IsPriceQuery(norm):
		return heuristicResult(model.IntentPriceInquiry, 0.7), false
	case attribute.IsStockQuery(norm):
		return heuristicResult(model.IntentStockInquiry, 0.7), false
	case hasPhrase(norm, generalWords...):
		return heuristicResult(model.IntentGeneralInfo, 0.6), false
	case hasWord(squeezed, ackWords...):
		return heuristicResult(model.IntentAcknowledgment, 0.85), false
	case hasPhrase(norm, negativeWords...):
		// A bare "hayır" late in a conversation closes it.
		if len(strings.Fields(norm)) == 1 {
			if view.HistoryLen() > 1 {
				return heuristicResult(model.IntentGoodbye, 0.8), true
			}
			return heuristicResult(model.IntentNegativeResponse, 0.8), true
		}
		return heuristicResult(model.IntentNegativeResponse, 0.8), false
	}
	r := heuristicResult(model.IntentUnclear, unclearConfidence)
	r.Method = model.MethodFallback
	return r, false
}

// productSignal turns extracted product features into a search intent.
func (c *Classifier) productSignal(msg, norm string, view ContextView) (model.IntentResult, bool, bool) {
	fs := c.features.Extract(msg)
	var product string
	var feats []string
	for _, f := range fs {
		switch f.Category {
		case features.GarmentType:
			if product == "" {
				product = f.Value
			}
		case features.TargetGroup, features.Style:
			feats = append(feats, f.Value)
		}
	}
	color, hasColor := attribute.FindColor(norm)

	if product != "" || len(feats) > 0 {
		r := heuristicResult(model.IntentProductSearch, 0.85)
		r.Entities = model.Entities{ProductName: product, Features: feats, Color: color}
		return r, false, true
	}
	if !hasColor {
		return model.IntentResult{}, false, false
	}
	// A bare color narrows the last results when there are any.
	intent := model.IntentProductSearch
	if view.HasLastProducts() {
		intent = model.IntentFollowUp
	}
	r := heuristicResult(intent, 0.8)
	r.Entities.Color = color
	return r, true, true
}

func heuristicResult(intent model.Intent, confidence float64) model.IntentResult {
	return model.IntentResult{Intent: intent, Confidence: confidence, Method: model.MethodHeuristic}
}

// hasPhrase reports whether any phrase starts at a word boundary of norm.
func hasPhrase(norm string, phrases ...string) bool {
	padded := " " + norm
	for _, p := range phrases {
		if strings.Contains(padded, " "+p) {
			return true
		}
	}
	return false
}

func hasWord(norm string, words ...string) bool {
	padded := " " + norm + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

// squeeze collapses letters repeated three or more times ("merhabaaa").
func squeeze(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); {
		j := i
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			n = 1
		}
		for k := 0; k < n; k++ {
			b.WriteRune(rs[i])
		}
		i = j
	}
	return b.String()
}
