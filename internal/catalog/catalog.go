// Package catalog reads tenant product catalogs and business metadata from
// JSON files or Postgres and validates them before they reach the index.
package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// Source loads the catalog and business metadata of a tenant.
type Source interface {
	Products(ctx context.Context, tenantID string) ([]model.Product, Report, error)
	BusinessInfo(ctx context.Context, tenantID string) (model.BusinessInfo, error)
	// Name identifies the source in index artifacts and logs.
	Name() string
}

// Report counts what ingestion kept and dropped.
type Report struct {
	Loaded  int
	Skipped int
}

// Record is one catalog row as delivered by a source.
type Record struct {
	ID         string              `json:"id,omitempty"`
	Name       string              `json:"name"`
	Color      string              `json:"color"`
	Price      decimal.Decimal     `json:"price"`
	FinalPrice decimal.NullDecimal `json:"final_price"`
	Discount   decimal.Decimal     `json:"discount"`
	Category   string              `json:"category"`
	Stock      int                 `json:"stock"`
}

// Product converts the record. A missing final price means no discount.
func (r Record) Product() model.Product {
	final := r.Price
	if r.FinalPrice.Valid {
		final = r.FinalPrice.Decimal
	}
	return model.Product{
		ID:              r.ID,
		Name:            strings.Join(strings.Fields(r.Name), " "),
		Color:           textnorm.Upper(strings.TrimSpace(r.Color)),
		Price:           r.Price,
		FinalPrice:      final,
		DiscountPercent: r.Discount,
		Category:        strings.TrimSpace(r.Category),
		Stock:           r.Stock,
	}
}

// Ingest validates records and returns the products that pass, in order.
// Invalid rows are logged and skipped.
func Ingest(records []Record, log *logger.Logger) ([]model.Product, Report) {
	if log == nil {
		log = logger.Nop()
	}
	products := make([]model.Product, 0, len(records))
	var rep Report
	for i, r := range records {
		p := r.Product()
		if err := p.Validate(); err != nil {
			rep.Skipped++
			log.Warn("skipping invalid catalog row", zap.Int("row", i), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	rep.Loaded = len(products)
	return products, rep
}
