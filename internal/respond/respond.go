// Package respond turns classified intents, retrieved products and business
// metadata into the text shown to the customer. Replies are template driven.
package respond

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/session"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

// DefaultMaxListed is how many products a numbered list shows.
const DefaultMaxListed = 5

// Input is everything a reply may draw on.
type Input struct {
	Business model.BusinessInfo
	Result   model.IntentResult
	// Products were retrieved for this turn.
	Products []model.Product
	// LastProducts is the list shown before this turn.
	LastProducts []model.Product
	FollowUp     session.FollowUp
	// Refinement is set when a color question was answered from LastProducts.
	Refinement            *attribute.Match
	ClarificationAttempts int
	FirstTurn             bool
}

type template func(in Input) string

// Composer renders replies. It is safe for concurrent use.
type Composer struct {
	maxListed int
	templates map[model.Intent]template
}

// New creates a Composer. maxListed <= 0 selects DefaultMaxListed.
func New(maxListed int) *Composer {
	if maxListed <= 0 {
		maxListed = DefaultMaxListed
	}
	c := &Composer{maxListed: maxListed}
	c.templates = map[model.Intent]template{
		model.IntentGreeting:            c.greeting,
		model.IntentThanks:              c.thanks,
		model.IntentGoodbye:             c.goodbye,
		model.IntentAcknowledgment:      c.acknowledgment,
		model.IntentNegativeResponse:    c.negative,
		model.IntentPhoneInquiry:        c.fixed,
		model.IntentReturnPolicy:        c.fixed,
		model.IntentShippingInfo:        c.fixed,
		model.IntentWebsiteInquiry:      c.fixed,
		model.IntentContactInfo:         c.fixed,
		model.IntentPaymentInfo:         c.fixed,
		model.IntentAddressInquiry:      c.fixed,
		model.IntentOrderRequest:        c.fixed,
		model.IntentOrderStatus:         c.fixed,
		model.IntentComplaint:           c.fixed,
		model.IntentSizeInquiry:         c.fixed,
		model.IntentProductSearch:       c.productSearch,
		model.IntentProductColorQuery:   c.colorQuery,
		model.IntentProductSizeQuery:    c.sizeQuery,
		model.IntentPriceInquiry:        c.priceInquiry,
		model.IntentStockInquiry:        c.stockInquiry,
		model.IntentFollowUp:            c.followUp,
		model.IntentClarificationNeeded: c.clarification,
		model.IntentGeneralInfo:         c.generalInfo,
		model.IntentUnclear:             c.unclear,
		model.IntentError:               func(in Input) string { return Apology(in.Business) },
	}
	return c
}

// Compose renders the reply for in. Intents without a template get the
// unclear reply.
func (c *Composer) Compose(in Input) string {
	in.Business = in.Business.WithDefaults()
	render, ok := c.templates[in.Result.Intent]
	if !ok {
		render = c.unclear
	}
	return render(in)
}

var whatsAppIntents = map[model.Intent]struct{}{
	model.IntentProductSearch: {},
	model.IntentReturnPolicy:  {},
	model.IntentShippingInfo:  {},
	model.IntentComplaint:     {},
	model.IntentOrderStatus:   {},
	model.IntentSizeInquiry:   {},
}

// WhatsApp returns the support line with a wa.me link for the intents that
// offer one, and "" for every other intent.
func WhatsApp(intent model.Intent, phone string) string {
	if _, ok := whatsAppIntents[intent]; !ok {
		return ""
	}
	digits := WhatsAppNumber(phone)
	if digits == "" {
		return ""
	}
	return "\n\n💬 Size yardımcı olamadıysam WhatsApp'tan ulaşabilirsiniz: wa.me/" + digits
}

// WhatsAppNumber reduces a phone number to digits with the Turkish country
// code in front.
func WhatsAppNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch {
	case d == "":
		return ""
	case strings.HasPrefix(d, "90"):
		return d
	case strings.HasPrefix(d, "0"):
		return "90" + d[1:]
	default:
		return "90" + d
	}
}

func (c *Composer) greeting(in Input) string {
	b := in.Business
	if in.FirstTurn && b.WelcomeTemplate != "" {
		return expand(b.WelcomeTemplate, b)
	}
	if b.GreetingTemplate != "" {
		return expand(b.GreetingTemplate, b)
	}
	return fmt.Sprintf("Merhaba! 👋 %s mağazasına hoş geldiniz. Size nasıl yardımcı olabilirim? "+
		"Ürünlerimiz hakkında bilgi alabilir, fiyat sorabilirsiniz.", b.Name)
}

func (c *Composer) thanks(Input) string {
	return "Rica ederim! 😊 Başka sorunuz var mı?"
}

func (c *Composer) goodbye(in Input) string {
	return fmt.Sprintf("Görüşmek üzere! %s ekibi olarak iyi günler dileriz. 👋", in.Business.Name)
}

func (c *Composer) acknowledgment(in Input) string {
	if len(in.LastProducts) > 0 {
		return "Tamam! 😊 Gösterdiğim ürünlerden birinin numarasını yazarak detaylarını görebilirsiniz."
	}
	return "Tamam! 😊 Başka bir konuda size yardımcı olabilir miyim?"
}

func (c *Composer) negative(Input) string {
	return "Anladım. 😊 Başka bir konuda size yardımcı olabilir miyim?\n\n" +
		"💡 **Yapabileceklerim:**\n• 🔍 Ürün arama\n• 💰 Fiyat bilgisi\n• 📦 Stok durumu\n• 🏢 Mağaza bilgileri"
}

func (c *Composer) generalInfo(Input) string {
	return "ℹ️ Size nasıl yardımcı olabilirim?\n\n" +
		"💡 **Yapabileceklerim:**\n• 🔍 Ürün arama\n• 💰 Fiyat bilgisi\n• 📦 Stok durumu\n" +
		"• 🏢 Mağaza bilgileri\n• 🚚 Kargo bilgileri\n• 📋 İade politikası"
}

// fixed renders the store-information intents.
func (c *Composer) fixed(in Input) string {
	b := in.Business
	var s string
	switch in.Result.Intent {
	case model.IntentPhoneInquiry:
		s = "📞 Telefon numaramız: " + b.Phone
	case model.IntentReturnPolicy:
		s = "📋 İade politikamız: 14 gün içinde iade kabul edilir. Ürün kullanılmamış ve etiketli olmalıdır."
	case model.IntentShippingInfo:
		s = "🚚 Kargo bilgileri: Türkiye geneli ücretsiz kargo. 1-3 iş günü içinde teslimat."
	case model.IntentWebsiteInquiry:
		s = "🌐 Web sitemiz: " + b.Website
	case model.IntentContactInfo:
		s = fmt.Sprintf("📞 Telefon: %s\n🌐 Web: %s\n📧 Email: %s", b.Phone, b.Website, b.Email)
		if b.InstagramHandle != "" {
			s += "\n📷 Instagram: @" + strings.TrimPrefix(b.InstagramHandle, "@")
		}
	case model.IntentPaymentInfo:
		s = fmt.Sprintf("💳 Ödeme seçenekleri için web sitemizi ziyaret edin: %s\n📞 Detaylı bilgi: %s", b.Website, b.Phone)
	case model.IntentAddressInquiry:
		s = "📍 Adres bilgileri için lütfen bizi arayın: " + b.Phone
	case model.IntentOrderRequest:
		s = fmt.Sprintf("🛒 Sipariş vermek için web sitemizi ziyaret edebilirsiniz: %s\n\n📞 Telefon ile sipariş: %s", b.Website, b.Phone)
	case model.IntentOrderStatus:
		s = fmt.Sprintf("📦 Sipariş durumunuz için lütfen bizi arayın: %s\n\nSipariş numaranızı hazır bulundurun.", b.Phone)
	case model.IntentComplaint:
		s = fmt.Sprintf("😔 Üzgünüz! Sorununuz için lütfen bizi arayın: %s\n\nMüşteri hizmetlerimiz size yardımcı olacaktır.", b.Phone)
	case model.IntentSizeInquiry:
		s = fmt.Sprintf("📏 Beden bilgileri için web sitemizi ziyaret edebilirsiniz: %s\n\n📞 Detaylı bilgi için bizi arayabilirsiniz: %s", b.Website, b.Phone)
	}
	return s + WhatsApp(in.Result.Intent, b.Phone)
}

func (c *Composer) clarification(in Input) string {
	if r := in.Result.Entities.Response; r != "" {
		return r
	}
	return "Lütfen daha açık belirtir misiniz? Hangi ürünü, hangi renk veya özellikte arıyorsunuz?\n\n" +
		"💡 **Örnekler:**\n• 'siyah dantelli gecelik'\n• 'hamile pijama takımı'"
}

func (c *Composer) unclear(in Input) string {
	if in.ClarificationAttempts > 2 {
		return "🤔 Anlaşılan biraz karışıklık var. Size şu konularda yardımcı olabilirim:\n\n" +
			"🛍️ **Ürün Arama Örnekleri:**\n• 'hamile pijama arıyorum'\n• 'dantelli gecelik'\n• 'siyah sabahlık'\n\n" +
			"💡 **Diğer Sorular:**\n• 'telefon numaranız nedir?'\n• 'kargo ücreti ne kadar?'\n• 'iade nasıl yapılır?'\n\n" +
			"Hangi konuda yardım istiyorsunuz?"
	}
	return "🤔 Anlayamadım. Size nasıl yardımcı olabilirim?\n\n" +
		"💡 **Yapabileceklerim:**\n• 🔍 Ürün arama\n• 💰 Fiyat bilgisi\n• 📦 Stok durumu\n• 🏢 Mağaza bilgileri"
}

// EmptyInput is the reply to a blank message.
func EmptyInput() string {
	return "📝 Lütfen bir mesaj yazın."
}

// Apology is the reply when a turn fails internally.
func Apology(b model.BusinessInfo) string {
	b = b.WithDefaults()
	return "😔 Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin.\n\nSorun devam ederse bizi arayabilirsiniz: " + b.Phone
}

// ImageHelp answers a message that points at a picture the customer sent.
func ImageHelp(b model.BusinessInfo) string {
	b = b.WithDefaults()
	return "📸 Gönderdiğiniz görselle ilgili yardım için:\n\n" +
		"💡 **Lütfen ürünün adını yazın** veya görseldeki ürünü tarif edin\n\n" +
		"📞 **Hızlı yardım:** " + b.Phone
}

func expand(tmpl string, b model.BusinessInfo) string {
	return strings.NewReplacer(
		"{name}", b.Name,
		"{phone}", b.Phone,
		"{email}", b.Email,
		"{website}", b.Website,
		"{instagram}", b.InstagramHandle,
	).Replace(tmpl)
}

// titleWords uppercases the first letter of every word with Turkish rules.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError || !unicode.IsLetter(r) {
			continue
		}
		words[i] = textnorm.Upper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// short cuts long product names in lists.
func short(name string, max int) string {
	if utf8.RuneCountInString(name) <= max {
		return name
	}
	return string([]rune(name)[:max]) + "..."
}
