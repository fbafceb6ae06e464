package respond

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/session"
)

func product(name, color string, price string, stock int) model.Product {
	p := decimal.RequireFromString(price)
	return model.Product{Name: name, Color: color, Price: p, FinalPrice: p, Stock: stock}
}

func afrika() []model.Product {
	return []model.Product{
		product("Afrika Etnik Baskılı Dantelli Gecelik", "BEJ", "1200", 3),
		product("Afrika Etnik Baskılı Dantelli Gecelik", "SİYAH", "1200", 2),
		product("Afrika Etnik Baskılı Dantelli Gecelik", "BEYAZ", "1200", 0),
	}
}

func business() model.BusinessInfo {
	return model.BusinessInfo{Name: "Butik Ceylan", Phone: "0555 111 22 33", Website: "www.ceylan.com"}
}

func compose(in Input) string {
	if in.Business.Name == "" {
		in.Business = business()
	}
	return New(0).Compose(in)
}

func TestWhatsAppNumber(t *testing.T) {
	tests := map[string]string{
		"0212 123 45 67":    "902121234567",
		"+90 555 111 22 33": "905551112233",
		"555-111-22-33":     "905551112233",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, WhatsAppNumber(in), in)
	}
}

func TestWhatsAppOnlyForSupportIntents(t *testing.T) {
	for _, i := range []model.Intent{model.IntentReturnPolicy, model.IntentShippingInfo, model.IntentComplaint, model.IntentOrderStatus, model.IntentSizeInquiry} {
		msg := compose(Input{Result: model.IntentResult{Intent: i}})
		assert.Contains(t, msg, "wa.me/905551112233", i)
	}
	for _, i := range []model.Intent{model.IntentPhoneInquiry, model.IntentWebsiteInquiry, model.IntentGreeting, model.IntentContactInfo} {
		msg := compose(Input{Result: model.IntentResult{Intent: i}})
		assert.NotContains(t, msg, "wa.me", i)
	}
}

func TestFixedTemplatesUseBusinessInfo(t *testing.T) {
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentPhoneInquiry}})
	assert.Contains(t, msg, "0555 111 22 33")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentContactInfo}})
	assert.Contains(t, msg, "www.ceylan.com")
	assert.Contains(t, msg, model.DefaultEmail)

	msg = New(0).Compose(Input{Result: model.IntentResult{Intent: model.IntentPhoneInquiry}})
	assert.Contains(t, msg, model.DefaultPhone)
}

func TestGreeting(t *testing.T) {
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentGreeting}})
	assert.True(t, strings.HasPrefix(msg, "Merhaba!"))
	assert.Contains(t, msg, "Butik Ceylan")

	b := business()
	b.GreetingTemplate = "Selam, {name} burada! Bize {phone} numarasından da ulaşabilirsiniz."
	msg = compose(Input{Business: b, Result: model.IntentResult{Intent: model.IntentGreeting}})
	assert.Equal(t, "Selam, Butik Ceylan burada! Bize 0555 111 22 33 numarasından da ulaşabilirsiniz.", msg)

	b.WelcomeTemplate = "Hoş geldiniz!"
	msg = compose(Input{Business: b, Result: model.IntentResult{Intent: model.IntentGreeting}, FirstTurn: true})
	assert.Equal(t, "Hoş geldiniz!", msg)
}

func TestSingleProductCard(t *testing.T) {
	p := product("Africa Style Saten Gecelik", "LACİVERT", "950", 4)
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentProductSearch}, Products: []model.Product{p}})
	assert.Contains(t, msg, "Africa Style Saten Gecelik")
	assert.Contains(t, msg, "950.00 TL")
	assert.Contains(t, msg, "0555 111 22 33")
	assert.Contains(t, msg, "✅ Mevcut")
	assert.NotContains(t, msg, "İndirim")
}

func TestDiscountedCard(t *testing.T) {
	p := product("Dantelli Askılı Gecelik", "KIRMIZI", "1000", 0)
	p.FinalPrice = decimal.RequireFromString("800")
	p.DiscountPercent = decimal.NewFromInt(20)

	msg := Card(business(), p)
	assert.Contains(t, msg, "800.00 TL")
	assert.Contains(t, msg, "%20")
	assert.Contains(t, msg, "Eski fiyat: 1000.00 TL")
	assert.Contains(t, msg, "Tasarruf:** 200.00 TL")
	assert.Contains(t, msg, "❌ Tükendi")
	assert.Contains(t, msg, "Bilgi için")
}

func TestColorVariantsAreGrouped(t *testing.T) {
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentProductSearch}, Products: afrika()})
	assert.Equal(t, 1, strings.Count(msg, "✨"))
	assert.Contains(t, msg, "Mevcut Renkler")
	assert.Contains(t, msg, "1. BEJ ✅")
	assert.Contains(t, msg, "2. SİYAH ✅")
	assert.Contains(t, msg, "3. BEYAZ ❌")
	assert.Contains(t, msg, "1200.00 TL")
}

func TestGroupShowsPriceRange(t *testing.T) {
	ps := afrika()
	ps[1].FinalPrice = decimal.RequireFromString("1000")
	ps[1].Price = ps[1].FinalPrice
	msg := New(0).Products(business(), ps)
	assert.Contains(t, msg, "1000.00 - 1200.00 TL")
	assert.Contains(t, msg, "SİYAH (1000.00 TL)")
}

func TestNumberedListCapsAtMax(t *testing.T) {
	var ps []model.Product
	for _, n := range []string{"Hamile Pijama", "Dantelli Gecelik", "Saten Sabahlık", "Şortlu Takım", "Pamuklu Pijama", "Uzun Gecelik"} {
		ps = append(ps, product(n, "GRİ", "100", 1))
	}
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentProductSearch}, Products: ps})
	assert.Contains(t, msg, "**5 ürün** buldum")
	assert.Contains(t, msg, "**5.** Pamuklu Pijama")
	assert.NotContains(t, msg, "Uzun Gecelik")
	assert.Contains(t, msg, "wa.me/")
}

func TestNoProducts(t *testing.T) {
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentProductSearch}})
	assert.Contains(t, msg, "bulamadım")
	assert.Contains(t, msg, "0555 111 22 33")
	assert.Contains(t, msg, "wa.me/905551112233")
}

func TestRefinementByColor(t *testing.T) {
	c := session.NewManager(session.Options{}).Get("s")
	c.Update("afrika gecelik", model.IntentProductSearch, afrika())

	m := c.RefineByColor("siyah")
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentFollowUp}, Refinement: &m})
	assert.Contains(t, msg, "SİYAH renk mevcut")
	assert.Contains(t, msg, "Afrika Etnik Baskılı Dantelli Gecelik")
	assert.Equal(t, 1, strings.Count(msg, "✨"))

	m = c.RefineByColor("kırmızı")
	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentFollowUp}, Refinement: &m})
	assert.Contains(t, msg, "KIRMIZI** renkte ürün bulunmuyor")
	assert.Contains(t, msg, "Mevcut renkler")
	assert.Contains(t, msg, "BEJ")
}

func TestFollowUpKinds(t *testing.T) {
	ps := afrika()
	tests := []struct {
		name string
		f    session.FollowUp
		want string
	}{
		{"details", session.FollowUp{Kind: session.FollowUpDetails, Index: 2, Product: ps[1], Products: ps}, "🎨 **Renk:** SİYAH"},
		{"price", session.FollowUp{Kind: session.FollowUpPrice, Index: 1, Product: ps[0], Products: ps}, "fiyatı: **1200.00 TL**"},
		{"stock", session.FollowUp{Kind: session.FollowUpStock, Index: 3, Product: ps[2], Products: ps}, "stok durumu: ❌ Tükendi"},
		{"out of range", session.FollowUp{Kind: session.FollowUpOutOfRange, Index: 5, Products: ps}, "1 ile 3 arasında"},
		{"price list", session.FollowUp{Kind: session.FollowUpPriceList, Products: ps}, "Fiyat bilgileri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := compose(Input{Result: model.IntentResult{Intent: model.IntentFollowUp}, FollowUp: tt.f, LastProducts: ps})
			assert.Contains(t, msg, tt.want)
		})
	}
}

func TestAttributeAnswers(t *testing.T) {
	ps := afrika()
	m, ok := attribute.Lookup("beyazı var mı", ps)
	require.True(t, ok)
	assert.Contains(t, Attribute(business(), m), "BEYAZ renk mevcut")

	msg := Attribute(business(), attribute.Match{Type: attribute.Size, Requested: "xl", All: ps})
	assert.Contains(t, msg, "**XL** beden")

	msg = Attribute(business(), attribute.Match{Type: attribute.Stock, All: ps})
	assert.Contains(t, msg, "Stok durumları")
	assert.Contains(t, msg, "❌ Tükendi")
}

func TestColorQuery(t *testing.T) {
	res := model.IntentResult{
		Intent:   model.IntentProductColorQuery,
		Entities: model.Entities{ProductName: "afrika", Color: "siyah"},
	}
	msg := compose(Input{Result: res, Products: afrika()})
	assert.Contains(t, msg, "✅ **Afrika siyah** renkte mevcut")
	assert.Contains(t, msg, "1200.00 TL")

	res.Entities.Color = "mor"
	msg = compose(Input{Result: res, Products: afrika()})
	assert.Contains(t, msg, "**mor** renkte bulunmuyor")
	assert.Contains(t, msg, "Mevcut renkler")

	msg = compose(Input{Result: res})
	assert.Contains(t, msg, "**Afrika** ürünü bulunamadı")
}

func TestSizeQuery(t *testing.T) {
	res := model.IntentResult{
		Intent:   model.IntentProductSizeQuery,
		Entities: model.Entities{ProductName: "afrika", Size: "38"},
	}
	msg := compose(Input{Result: res, Products: afrika()})
	assert.Contains(t, msg, "**38** beden")
	assert.Contains(t, msg, "www.ceylan.com")
	assert.Equal(t, 2, strings.Count(msg, "Afrika Etnik"))
}

func TestPriceAndStockInquiry(t *testing.T) {
	ps := afrika()
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentPriceInquiry}, Products: ps[:1]})
	assert.Contains(t, msg, "Güncel Fiyat: 1200.00 TL")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentPriceInquiry}, LastProducts: ps})
	assert.Contains(t, msg, "Son gösterdiğim ürünlerin fiyatları")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentPriceInquiry}})
	assert.Contains(t, msg, "Hangi ürünün fiyatını")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentStockInquiry}, LastProducts: ps})
	assert.Contains(t, msg, "❌ Tükendi")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentStockInquiry}})
	assert.Contains(t, msg, "stok durumunu")
}

func TestClarificationAndUnclear(t *testing.T) {
	res := model.IntentResult{Intent: model.IntentClarificationNeeded, Entities: model.Entities{Response: "Gecelik arıyorsunuz."}}
	assert.Equal(t, "Gecelik arıyorsunuz.", compose(Input{Result: res}))

	res.Entities.Response = ""
	assert.Contains(t, compose(Input{Result: res}), "Örnekler")

	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentUnclear}, ClarificationAttempts: 1})
	assert.Contains(t, msg, "Anlayamadım")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentUnclear}, ClarificationAttempts: 3})
	assert.Contains(t, msg, "Ürün Arama Örnekleri")

	msg = compose(Input{Result: model.IntentResult{Intent: model.IntentNeedsLLM}})
	assert.Contains(t, msg, "Anlayamadım")
}

func TestApologyCarriesPhone(t *testing.T) {
	msg := compose(Input{Result: model.IntentResult{Intent: model.IntentError}})
	assert.Contains(t, msg, "bir hata oluştu")
	assert.Contains(t, msg, "0555 111 22 33")
	assert.Contains(t, ImageHelp(model.BusinessInfo{}), model.DefaultPhone)
}
