package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// PostgresOptions configures a PostgresSource.
type PostgresOptions struct {
	DSN             string
	ProductsTable   string
	BusinessTable   string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	Logger          *logger.Logger
}

// PostgresSource reads catalogs from a products table keyed by tenant_id.
type PostgresSource struct {
	db       *sql.DB
	products string
	business string
	log      *logger.Logger
}

// OpenPostgres connects to Postgres and checks the connection.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*PostgresSource, error) {
	if opts.ProductsTable == "" {
		opts.ProductsTable = "products"
	}
	if opts.BusinessTable == "" {
		opts.BusinessTable = "businesses"
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 5
	}
	if opts.ConnMaxIdleTime <= 0 {
		opts.ConnMaxIdleTime = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresSource(db, opts), nil
}

// NewPostgresSource wraps an open database.
func NewPostgresSource(db *sql.DB, opts PostgresOptions) *PostgresSource {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &PostgresSource{
		db:       db,
		products: pq.QuoteIdentifier(orDefault(opts.ProductsTable, "products")),
		business: pq.QuoteIdentifier(orDefault(opts.BusinessTable, "businesses")),
		log:      opts.Logger.Named("catalog"),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *PostgresSource) Name() string { return "postgres" }

// Close closes the database.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// Products reads the tenant's rows in catalog order.
func (s *PostgresSource) Products(ctx context.Context, tenantID string) ([]model.Product, Report, error) {
	query := `
		SELECT id::text, name, COALESCE(color, ''), price, final_price,
		       COALESCE(discount_percent, 0), COALESCE(category, ''), COALESCE(stock, 0)
		FROM ` + s.products + `
		WHERE tenant_id = $1
		ORDER BY position, id`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, Report{}, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Color, &r.Price, &r.FinalPrice, &r.Discount, &r.Category, &r.Stock); err != nil {
			return nil, Report{}, fmt.Errorf("scan product: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Report{}, fmt.Errorf("iterate products: %w", err)
	}

	products, rep := Ingest(records, s.log.With(zap.String("tenant_id", tenantID)))
	return products, rep, nil
}

// BusinessInfo reads the tenant's business row. No row yields the defaults.
func (s *PostgresSource) BusinessInfo(ctx context.Context, tenantID string) (model.BusinessInfo, error) {
	query := `
		SELECT COALESCE(name, ''), COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''),
		       COALESCE(instagram_handle, ''), COALESCE(greeting_template, ''), COALESCE(welcome_template, '')
		FROM ` + s.business + `
		WHERE tenant_id = $1`

	var b model.BusinessInfo
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&b.Name, &b.Phone, &b.Email, &b.Website,
		&b.InstagramHandle, &b.GreetingTemplate, &b.WelcomeTemplate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultBusinessInfo(), nil
	}
	if err != nil {
		return model.BusinessInfo{}, fmt.Errorf("query business info: %w", err)
	}
	return b.WithDefaults(), nil
}
