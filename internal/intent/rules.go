package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

const (
	exactConfidence    = 0.99
	compoundConfidence = 0.95
)

// exactPhrases are whole messages with a certain meaning. Keys are folded at init.
var exactPhrases = map[string]model.Intent{
	"merhaba": model.IntentGreeting, "merhabalar": model.IntentGreeting, "selam": model.IntentGreeting,
	"selamlar": model.IntentGreeting, "hello": model.IntentGreeting, "hi": model.IntentGreeting,
	"günaydın": model.IntentGreeting, "iyi akşamlar": model.IntentGreeting, "mrb": model.IntentGreeting,
	"slm": model.IntentGreeting, "merhaba iyi günler": model.IntentGreeting,

	"teşekkürler": model.IntentThanks, "teşekkür ederim": model.IntentThanks, "çok teşekkürler": model.IntentThanks,
	"sağol": model.IntentThanks, "sağolun": model.IntentThanks, "sağ olun": model.IntentThanks,
	"thanks": model.IntentThanks, "eyvallah": model.IntentThanks, "tşk": model.IntentThanks,

	"güle güle": model.IntentGoodbye, "görüşürüz": model.IntentGoodbye, "bye": model.IntentGoodbye,
	"hoşça kal": model.IntentGoodbye, "hoşçakal": model.IntentGoodbye, "hoşça kalın": model.IntentGoodbye,
	"iyi geceler": model.IntentGoodbye, "iyi günler dilerim": model.IntentGoodbye,

	"tamam": model.IntentAcknowledgment, "peki": model.IntentAcknowledgment, "anladım": model.IntentAcknowledgment,
	"tamamdır": model.IntentAcknowledgment, "ok": model.IntentAcknowledgment, "okey": model.IntentAcknowledgment,

	"hayır": model.IntentNegativeResponse, "istemiyorum": model.IntentNegativeResponse,
	"gerek yok": model.IntentNegativeResponse, "başka sorum yok": model.IntentNegativeResponse,

	"telefon": model.IntentPhoneInquiry, "telefon numaranız": model.IntentPhoneInquiry,
	"telefon numaranız nedir": model.IntentPhoneInquiry, "telefon numarası": model.IntentPhoneInquiry,
	"numaranız": model.IntentPhoneInquiry, "numaranız nedir": model.IntentPhoneInquiry,

	"iade": model.IntentReturnPolicy, "iade var mı": model.IntentReturnPolicy,
	"iade nasıl yapılır": model.IntentReturnPolicy, "iade şartları": model.IntentReturnPolicy,
	"değişim var mı": model.IntentReturnPolicy,

	"kargo": model.IntentShippingInfo, "kargo ücreti": model.IntentShippingInfo,
	"kargo ücreti ne kadar": model.IntentShippingInfo, "kargo kaç gün": model.IntentShippingInfo,
	"teslimat": model.IntentShippingInfo,

	"web sitesi": model.IntentWebsiteInquiry, "web siteniz": model.IntentWebsiteInquiry,
	"siteniz": model.IntentWebsiteInquiry, "internet sitesi": model.IntentWebsiteInquiry,

	"iletişim": model.IntentContactInfo, "iletişim bilgileri": model.IntentContactInfo,
	"instagram": model.IntentContactInfo, "mail adresiniz": model.IntentContactInfo,

	"ödeme": model.IntentPaymentInfo, "ödeme seçenekleri": model.IntentPaymentInfo,
	"kapıda ödeme var mı": model.IntentPaymentInfo, "taksit var mı": model.IntentPaymentInfo,
	"kredi kartı": model.IntentPaymentInfo,

	"adres": model.IntentAddressInquiry, "adresiniz": model.IntentAddressInquiry,
	"neredesiniz": model.IntentAddressInquiry, "mağaza nerede": model.IntentAddressInquiry,

	"sipariş vermek istiyorum": model.IntentOrderRequest, "nasıl sipariş verebilirim": model.IntentOrderRequest,
	"siparişim nerede": model.IntentOrderStatus, "sipariş durumu": model.IntentOrderStatus,
	"kargom nerede": model.IntentOrderStatus,

	"şikayet": model.IntentComplaint, "şikayetim var": model.IntentComplaint,

	"beden tablosu": model.IntentSizeInquiry, "hangi beden": model.IntentSizeInquiry,
	"beden ölçüleri": model.IntentSizeInquiry,

	"fiyatı nedir": model.IntentPriceInquiry, "fiyatı ne": model.IntentPriceInquiry,
	"kaç para": model.IntentPriceInquiry, "ne kadar": model.IntentPriceInquiry,
}

func init() {
	folded := make(map[string]model.Intent, len(exactPhrases))
	for k, v := range exactPhrases {
		folded[textnorm.Normalize(k)] = v
	}
	exactPhrases = folded
}

var (
	// productWords mark a message as being about a concrete product.
	productWords = []string{"afrika", "hamile", "dantelli", "gecelik", "pijama", "sabahlik", "takim"}

	askWords = []string{"var mi", "mevcut", "stok"}

	sizePattern     = regexp.MustCompile(`(\w+)\s*(\w+).*?(\d+)\s*(si|beden|numara)\b.*?(var mi|mevcut|stok)`)
	numericFollowUp = regexp.MustCompile(`\d+\s*(numarali|fiyat|stok)`)
	bareCategory    = regexp.MustCompile(`^(gecelik|pijama|sabahlik|takim)(\s+(var mi|mevcut mu))?$`)

	categoryDisplay = map[string]string{
		"gecelik":  "gecelik",
		"pijama":   "pijama",
		"sabahlik": "sabahlık",
		"takim":    "takım",
	}
)

// applyRules runs the deterministic layer. contextual is set when the
// result depended on the session and must not be cached.
func (c *Classifier) applyRules(msg, norm string, view ContextView) (r model.IntentResult, contextual, ok bool) {
	if meanings, amb := view.DetectAmbiguity(msg); amb {
		return ruleResult(view.ResolveAmbiguity(meanings), compoundConfidence, model.MethodContext), true, true
	}

	if intent, hit := exactPhrases[norm]; hit {
		return ruleResult(intent, exactConfidence, model.MethodRule), false, true
	}

	if m := sizePattern.FindStringSubmatch(norm); m != nil {
		name := firstProductWord(norm)
		if name == "" {
			name = m[1]
		}
		r := ruleResult(model.IntentProductSizeQuery, compoundConfidence, model.MethodRule)
		r.Entities.ProductName = name
		r.Entities.Size = m[3]
		return r, false, true
	}

	color, hasColor := attribute.FindColor(norm)
	product := firstProductWord(norm)
	asks := containsAny(norm, askWords...)

	if hasColor && product != "" && asks {
		r := ruleResult(model.IntentProductColorQuery, compoundConfidence, model.MethodRule)
		r.Entities.ProductName = product
		r.Entities.Color = color
		return r, false, true
	}

	if numericFollowUp.MatchString(norm) && view.HasLastProducts() {
		return ruleResult(model.IntentFollowUp, compoundConfidence, model.MethodContext), true, true
	}

	// Color questions without a product refine the last results when there
	// are any and start a color-filtered search otherwise.
	if only, isOnly := attribute.ColorOnlyQuery(norm); isOnly {
		intent := model.IntentProductSearch
		if view.HasLastProducts() {
			intent = model.IntentFollowUp
		}
		r := ruleResult(intent, compoundConfidence, model.MethodContext)
		r.Entities.Color = only
		return r, true, true
	}

	if m := bareCategory.FindStringSubmatch(norm); m != nil {
		r := ruleResult(model.IntentClarificationNeeded, compoundConfidence, model.MethodRule)
		r.Entities.ProductName = categoryDisplay[m[1]]
		r.Entities.Response = clarifyCategory(categoryDisplay[m[1]])
		return r, false, true
	}

	if strings.HasPrefix(norm, "iade") {
		return ruleResult(model.IntentReturnPolicy, compoundConfidence, model.MethodRule), false, true
	}
	if strings.Contains(norm, "telefon") && (strings.Contains(norm, "numara") || strings.Contains(norm, "nedir")) {
		return ruleResult(model.IntentPhoneInquiry, compoundConfidence, model.MethodRule), false, true
	}
	return model.IntentResult{}, false, false
}

// clarifyCategory asks for a color or feature of a bare category.
func clarifyCategory(category string) string {
	return fmt.Sprintf("%s arıyorsunuz. Hangi renk veya özellikte olsun?\n\n💡 **Örnekler:**\n"+
		"• 'siyah %[2]s'\n• 'afrika %[2]s'\n• 'hamile %[2]s'\n• 'dantelli %[2]s'",
		textnorm.Upper(category[:1])+category[1:], category)
}

func ruleResult(intent model.Intent, confidence float64, method model.Method) model.IntentResult {
	return model.IntentResult{Intent: intent, Confidence: confidence, Method: method}
}

func firstProductWord(norm string) string {
	for _, w := range productWords {
		if strings.Contains(norm, w) {
			return w
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
