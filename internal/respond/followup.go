package respond

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/session"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

func (c *Composer) followUp(in Input) string {
	b := in.Business
	if in.Refinement != nil {
		return Attribute(b, *in.Refinement)
	}
	f := in.FollowUp
	switch f.Kind {
	case session.FollowUpDetails:
		return Card(b, f.Product)
	case session.FollowUpPrice:
		return priceLine(f.Product) + contactLines(b)
	case session.FollowUpStock:
		return stockLine(f.Product) + contactLines(b)
	case session.FollowUpOutOfRange:
		return c.outOfRange(f)
	case session.FollowUpPriceList:
		return c.priceList(f.Products)
	case session.FollowUpAttribute:
		return Attribute(b, f.Attribute)
	}
	if len(in.LastProducts) > 0 {
		return c.pick(in.LastProducts)
	}
	return c.unclear(in)
}

func contactLines(b model.BusinessInfo) string {
	return fmt.Sprintf("\n\n🛒 Sipariş için: %s\n🌐 Web: %s", b.Phone, b.Website)
}

func (c *Composer) outOfRange(f session.FollowUp) string {
	n := len(f.Products)
	var s strings.Builder
	if f.Index > 0 {
		fmt.Fprintf(&s, "🔢 %d numaralı ürün listede yok. ", f.Index)
	}
	fmt.Fprintf(&s, "Son listede %d ürün var, lütfen 1 ile %d arasında bir numara yazın:\n\n", n, n)
	for i, p := range first(f.Products, c.maxListed) {
		fmt.Fprintf(&s, "**%d.** %s (%s)\n", i+1, short(p.Name, listNameWidth), p.Color)
	}
	return strings.TrimSuffix(s.String(), "\n")
}

func (c *Composer) pick(products []model.Product) string {
	var s strings.Builder
	s.WriteString("Hangi ürün hakkında bilgi almak istersiniz?\n\n")
	for i, p := range first(products, c.maxListed) {
		fmt.Fprintf(&s, "**%d.** %s (%s)\n", i+1, short(p.Name, listNameWidth), p.Color)
	}
	return strings.TrimSuffix(s.String(), "\n")
}

func (c *Composer) priceList(products []model.Product) string {
	if len(products) == 1 {
		return priceLine(products[0])
	}
	var s strings.Builder
	s.WriteString("💰 **Fiyat bilgileri:**\n\n")
	for i, p := range first(products, c.maxListed) {
		fmt.Fprintf(&s, "**%d.** %s - **%s**\n", i+1, short(p.Name, listNameWidth), model.FormatPrice(p.FinalPrice))
	}
	return strings.TrimSuffix(s.String(), "\n")
}

// Attribute renders the answer to a color, size, stock or price question
// asked about a product list.
func Attribute(b model.BusinessInfo, m attribute.Match) string {
	b = b.WithDefaults()
	switch m.Type {
	case attribute.Color:
		return colorAnswer(b, m)
	case attribute.Size:
		return fmt.Sprintf("📏 **%s** beden bilgisi için lütfen bizi arayın: %s\n\n"+
			"💡 Web sitemizdeki beden tablosuna da bakabilirsiniz: %s", textnorm.Upper(m.Requested), b.Phone, b.Website)
	case attribute.Stock:
		if len(m.All) == 1 {
			return stockLine(m.All[0])
		}
		var s strings.Builder
		s.WriteString("📦 **Stok durumları:**\n\n")
		for i, p := range first(m.All, DefaultMaxListed) {
			fmt.Fprintf(&s, "**%d.** %s - %s\n", i+1, short(p.Name, listNameWidth), stockStatus(p))
		}
		return strings.TrimSuffix(s.String(), "\n")
	case attribute.Price:
		if len(m.All) == 1 {
			return priceLine(m.All[0])
		}
		var s strings.Builder
		s.WriteString("💰 **Fiyat listesi:**\n\n")
		for i, p := range first(m.All, DefaultMaxListed) {
			fmt.Fprintf(&s, "**%d.** %s - **%s**\n", i+1, short(p.Name, 40), model.FormatPrice(p.FinalPrice))
		}
		return strings.TrimSuffix(s.String(), "\n")
	}
	return "Üzgünüm, bu konuda yardımcı olamıyorum. 📞 " + b.Phone
}

func colorAnswer(b model.BusinessInfo, m attribute.Match) string {
	color := textnorm.Upper(m.Requested)
	var s strings.Builder
	switch {
	case len(m.Matching) == 1:
		p := m.Matching[0]
		fmt.Fprintf(&s, "🎨 %s renk mevcut!\n\n", color)
		fmt.Fprintf(&s, "✨ **%s**\n", p.Name)
		fmt.Fprintf(&s, "💰 **Fiyat:** %s\n", model.FormatPrice(p.FinalPrice))
		fmt.Fprintf(&s, "📦 **Stok:** %s\n\n", stockStatus(p))
	case len(m.Matching) > 1:
		fmt.Fprintf(&s, "🎨 %s renkte **%d ürün** mevcut:\n\n", color, len(m.Matching))
		for i, p := range first(m.Matching, 3) {
			fmt.Fprintf(&s, "**%d.** %s\n   💰 **%s** - %s\n\n", i+1, short(p.Name, 40), model.FormatPrice(p.FinalPrice), stockStatus(p))
		}
	default:
		fmt.Fprintf(&s, "❌ **%s** renkte ürün bulunmuyor.\n\n", color)
		s.WriteString(availableColors(m.All))
	}
	fmt.Fprintf(&s, "🛒 **Sipariş için:** %s", b.Phone)
	return s.String()
}
