package respond

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/capitalize-ai/commerce-assistant/internal/attribute"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
)

const listNameWidth = 50

func stockStatus(p model.Product) string {
	if p.InStock() {
		return "✅ Mevcut"
	}
	return "❌ Tükendi"
}

func stockEmoji(p model.Product) string {
	if p.InStock() {
		return "✅"
	}
	return "❌"
}

func orderLines(b model.BusinessInfo) string {
	return fmt.Sprintf("\n\n🛒 **Sipariş için:** %s\n🌐 **Web:** %s", b.Phone, b.Website)
}

func (c *Composer) productSearch(in Input) string {
	if len(in.Products) == 0 {
		return NoProducts(in.Business, in.Result.Intent)
	}
	return c.Products(in.Business, in.Products) + WhatsApp(model.IntentProductSearch, in.Business.Phone)
}

// Products renders a result list: a full card for one product, a grouped
// card when all products are color variants of one item, otherwise a
// numbered list.
func (c *Composer) Products(b model.BusinessInfo, products []model.Product) string {
	b = b.WithDefaults()
	switch groups := groupByBaseName(products); {
	case len(products) == 0:
		return NoProducts(b, "")
	case len(products) == 1:
		return Card(b, products[0])
	case len(groups) == 1:
		return groupCard(b, groups[0])
	default:
		return c.list(products)
	}
}

// Card is the full card of one product.
func Card(b model.BusinessInfo, p model.Product) string {
	b = b.WithDefaults()
	var s strings.Builder
	fmt.Fprintf(&s, "✨ **%s**\n\n", p.Name)
	fmt.Fprintf(&s, "🎨 **Renk:** %s\n", p.Color)
	fmt.Fprintf(&s, "💰 **Fiyat:** %s", model.FormatPrice(p.FinalPrice))
	if p.HasDiscount() {
		fmt.Fprintf(&s, "\n🏷️ **İndirim:** %%%s (Eski fiyat: %s)", p.DiscountPercent.String(), model.FormatPrice(p.Price))
		fmt.Fprintf(&s, "\n💸 **Tasarruf:** %s", model.FormatPrice(p.Savings()))
	}
	fmt.Fprintf(&s, "\n📦 **Stok:** %s", stockStatus(p))
	if p.InStock() {
		s.WriteString(orderLines(b))
	} else {
		fmt.Fprintf(&s, "\n\n📞 **Bilgi için:** %s", b.Phone)
	}
	return s.String()
}

type group struct {
	name     string
	products []model.Product
}

// groupByBaseName groups color variants, keeping first-seen order.
func groupByBaseName(products []model.Product) []group {
	var groups []group
	pos := make(map[string]int)
	for _, p := range products {
		key := textnorm.Normalize(p.BaseName())
		i, ok := pos[key]
		if !ok {
			i = len(groups)
			pos[key] = i
			groups = append(groups, group{name: p.BaseName()})
		}
		groups[i].products = append(groups[i].products, p)
	}
	return groups
}

func groupCard(b model.BusinessInfo, g group) string {
	lo, hi := g.products[0].FinalPrice, g.products[0].FinalPrice
	for _, p := range g.products[1:] {
		lo = decimal.Min(lo, p.FinalPrice)
		hi = decimal.Max(hi, p.FinalPrice)
	}
	samePrice := lo.Equal(hi)

	var s strings.Builder
	fmt.Fprintf(&s, "✨ **%s**\n\n", g.name)
	if samePrice {
		fmt.Fprintf(&s, "💰 **Fiyat:** %s\n", model.FormatPrice(lo))
	} else {
		fmt.Fprintf(&s, "💰 **Fiyat:** %s - %s\n", lo.StringFixed(2), model.FormatPrice(hi))
	}
	s.WriteString("🎨 **Mevcut Renkler:**\n")
	for i, p := range g.products {
		price := ""
		if !samePrice {
			price = " (" + model.FormatPrice(p.FinalPrice) + ")"
		}
		fmt.Fprintf(&s, "   %d. %s%s %s\n", i+1, p.Color, price, stockEmoji(p))
	}
	s.WriteString(strings.TrimPrefix(orderLines(b), "\n"))
	return s.String()
}

func (c *Composer) list(products []model.Product) string {
	if len(products) > c.maxListed {
		products = products[:c.maxListed]
	}
	var s strings.Builder
	fmt.Fprintf(&s, "🛍️ Size uygun **%d ürün** buldum:\n\n", len(products))
	for i, p := range products {
		fmt.Fprintf(&s, "**%d.** %s\n", i+1, p.Name)
		fmt.Fprintf(&s, "   🎨 **Renk:** %s\n", p.Color)
		fmt.Fprintf(&s, "   💰 **Fiyat:** %s", model.FormatPrice(p.FinalPrice))
		if p.HasDiscount() {
			fmt.Fprintf(&s, " 🏷️ *(%%%s indirim)*", p.DiscountPercent.String())
		}
		fmt.Fprintf(&s, "\n   📦 %s\n\n", stockStatus(p))
	}
	s.WriteString("💡 Detay için ürün numarasını yazabilirsiniz (örn: '1 numaralı ürün').")
	return s.String()
}

// NoProducts is the reply when retrieval found nothing.
func NoProducts(b model.BusinessInfo, intent model.Intent) string {
	b = b.WithDefaults()
	return "Üzgünüm, aradığınız kriterlere uygun ürün bulamadım. 😔\n\n" +
		"💡 **Öneriler:**\n• Ürünün tam adını yazın (örn: 'Afrika Etnik Baskılı Gecelik')\n" +
		"• Farklı renk deneyin\n• Daha genel arama yapın\n\n" +
		"📞 **Yardım için:** " + b.Phone + WhatsApp(intent, b.Phone)
}

func productNotFound(b model.BusinessInfo, name string) string {
	return fmt.Sprintf("❌ **%s** ürünü bulunamadı.\n\n💡 **Öneriler:**\n• Ürün adını kontrol edin\n"+
		"• Farklı arama terimleri deneyin\n\n📞 **Yardım:** %s", titleWords(name), b.Phone)
}

// colorQuery answers "afrika gecelik siyah var mı" from the products found
// for the named product.
func (c *Composer) colorQuery(in Input) string {
	b := in.Business
	name := in.Result.Entities.ProductName
	color := in.Result.Entities.Color
	if len(in.Products) == 0 {
		return productNotFound(b, name)
	}
	matching := attribute.FilterByColor(in.Products, color)
	var s strings.Builder
	if len(matching) > 0 {
		fmt.Fprintf(&s, "✅ **%s %s** renkte mevcut!\n\n", titleWords(name), color)
		for i, p := range first(matching, 3) {
			fmt.Fprintf(&s, "**%d.** %s\n", i+1, p.Name)
			fmt.Fprintf(&s, "   💰 **%s**", model.FormatPrice(p.FinalPrice))
			if p.HasDiscount() {
				fmt.Fprintf(&s, " 🏷️ *(%%%s indirim)*", p.DiscountPercent.String())
			}
			fmt.Fprintf(&s, "\n   📦 %s\n\n", stockStatus(p))
		}
	} else {
		fmt.Fprintf(&s, "❌ **%s** ürünü **%s** renkte bulunmuyor.\n\n", titleWords(name), color)
		s.WriteString(availableColors(in.Products))
	}
	fmt.Fprintf(&s, "🛒 **Sipariş için:** %s", b.Phone)
	return s.String()
}

// availableColors lists up to five distinct colors with price and stock.
func availableColors(products []model.Product) string {
	colors := attribute.AvailableColors(products)
	if len(colors) == 0 {
		return ""
	}
	var s strings.Builder
	s.WriteString("🎨 **Mevcut renkler:**\n\n")
	for i, p := range first(colors, 5) {
		fmt.Fprintf(&s, "**%d.** %s - **%s** %s\n", i+1, textnorm.Upper(p.Color), model.FormatPrice(p.FinalPrice), stockEmoji(p))
	}
	s.WriteString("\n")
	return s.String()
}

func (c *Composer) sizeQuery(in Input) string {
	b := in.Business
	name := in.Result.Entities.ProductName
	if len(in.Products) == 0 {
		return productNotFound(b, name)
	}
	var s strings.Builder
	fmt.Fprintf(&s, "📏 **%s** ürünü için **%s** beden bilgisi:\n\n", titleWords(name), in.Result.Entities.Size)
	fmt.Fprintf(&s, "🔍 Beden bilgileri için lütfen bizi arayın:\n📞 **Telefon:** %s\n\n", b.Phone)
	fmt.Fprintf(&s, "💡 **Alternatif:** Web sitemizden beden tablosuna bakabilirsiniz:\n🌐 **Web:** %s\n\n", b.Website)
	s.WriteString("📦 **Mevcut ürünler:**\n")
	for i, p := range first(in.Products, 2) {
		fmt.Fprintf(&s, "**%d.** %s - **%s**\n", i+1, p.Name, model.FormatPrice(p.FinalPrice))
	}
	return strings.TrimSuffix(s.String(), "\n")
}

// priceInquiry prices the named product when one was found, otherwise the
// products shown last.
func (c *Composer) priceInquiry(in Input) string {
	b := in.Business
	if len(in.Products) > 0 {
		p := in.Products[0]
		var s strings.Builder
		fmt.Fprintf(&s, "💰 **%s** fiyat bilgisi:\n\n", p.Name)
		fmt.Fprintf(&s, "🎨 Renk: %s\n", p.Color)
		fmt.Fprintf(&s, "💰 **Güncel Fiyat: %s**", model.FormatPrice(p.FinalPrice))
		if p.HasDiscount() {
			fmt.Fprintf(&s, "\n🏷️ **İndirim: %%%s** (Eski fiyat: %s)", p.DiscountPercent.String(), model.FormatPrice(p.Price))
			fmt.Fprintf(&s, "\n💸 **Tasarruf: %s**", model.FormatPrice(p.Savings()))
		}
		fmt.Fprintf(&s, "\n📦 Stok: %s", stockStatus(p))
		if p.InStock() {
			fmt.Fprintf(&s, "\n\n🛒 Sipariş için: %s", b.Phone)
		}
		return s.String()
	}
	if len(in.LastProducts) > 0 {
		var s strings.Builder
		s.WriteString("💰 **Son gösterdiğim ürünlerin fiyatları:**\n\n")
		for i, p := range first(in.LastProducts, 3) {
			fmt.Fprintf(&s, "%d. %s\n   💰 **%s**", i+1, short(p.Name, 40), model.FormatPrice(p.FinalPrice))
			if p.HasDiscount() {
				s.WriteString(" (İndirimli!)")
			}
			s.WriteString("\n\n")
		}
		s.WriteString("Hangi ürün hakkında detaylı fiyat bilgisi istersiniz?")
		return s.String()
	}
	return "💰 Hangi ürünün fiyatını öğrenmek istiyorsunuz?\n\n" +
		"💡 **Lütfen ürün adını belirtin:**\n• 'Afrika gecelik fiyatı'\n• 'Hamile pijama ne kadar'\n• 'Dantelli sabahlık fiyat'\n\n" +
		"📞 **Yardım için:** " + b.Phone
}

func (c *Composer) stockInquiry(in Input) string {
	if len(in.Products) > 0 {
		return stockLine(in.Products[0])
	}
	if len(in.LastProducts) > 0 {
		var s strings.Builder
		s.WriteString("📦 **Son gösterdiğim ürünlerin stok durumu:**\n\n")
		for i, p := range first(in.LastProducts, 3) {
			fmt.Fprintf(&s, "%d. %s\n   📦 **%s**\n\n", i+1, short(p.Name, 40), stockStatus(p))
		}
		return strings.TrimSuffix(s.String(), "\n\n")
	}
	return "📦 Hangi ürünün stok durumunu öğrenmek istiyorsunuz?\n\n" +
		"💡 **Örnek:** 'hamile pijama stok' veya ürün adını yazın.\n\n" +
		"📞 Detaylı bilgi: " + in.Business.Phone
}

func stockLine(p model.Product) string {
	return fmt.Sprintf("📦 **%s** stok durumu: %s", p.Name, stockStatus(p))
}

func priceLine(p model.Product) string {
	s := fmt.Sprintf("💰 **%s** fiyatı: **%s**", p.Name, model.FormatPrice(p.FinalPrice))
	if p.HasDiscount() {
		s += fmt.Sprintf(" 🏷️ **(İndirimli! Eski fiyat: %s, %%%s indirim)**", model.FormatPrice(p.Price), p.DiscountPercent.String())
	}
	return s
}

func first(products []model.Product, n int) []model.Product {
	if len(products) > n {
		return products[:n]
	}
	return products
}
