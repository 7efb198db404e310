package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"awsmp-go-scraper/internal/models"
)

const createProductsTable = `
CREATE TABLE IF NOT EXISTS marketplace_products (
	prodview_id            text PRIMARY KEY,
	url                    text NOT NULL,
	product_name           text,
	seller_name            text,
	category_primary       text,
	categories_all         text,
	delivery_method        text,
	pricing_type           text,
	contract_terms         text,
	price_visible          int,
	price_min_usd          double precision,
	price_max_usd          double precision,
	reviews_page_exists    int,
	reviews_supported      int,
	aws_reviews_count      int,
	external_reviews_count int,
	avg_rating             double precision,
	ratings_count          int
)`

// PGSink mirrors enriched rows into Postgres. The CSV table stays the source
// of truth for resume; this sink only ever inserts, never updates.
type PGSink struct {
	pool *pgxpool.Pool
}

func OpenPG(ctx context.Context, dsn string) (*PGSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createProductsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ensure table: %w", err)
	}
	return &PGSink{pool: pool}, nil
}

func (s *PGSink) Close() { s.pool.Close() }

// Insert queues one INSERT per row, skipping rows without a prodview id and
// leaving existing rows untouched.
func (s *PGSink) Insert(ctx context.Context, rows []models.ProductRecord) error {
	b := &pgx.Batch{}
	count := 0
	for _, r := range rows {
		if r.ProdviewID == nil {
			continue
		}
		b.Queue(
			`INSERT INTO marketplace_products
			(prodview_id, url, product_name, seller_name, category_primary, categories_all,
			 delivery_method, pricing_type, contract_terms, price_visible, price_min_usd,
			 price_max_usd, reviews_page_exists, reviews_supported, aws_reviews_count,
			 external_reviews_count, avg_rating, ratings_count)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (prodview_id) DO NOTHING`,
			*r.ProdviewID, r.URL, r.ProductName, r.SellerName, r.CategoryPrimary,
			r.CategoriesAll, r.DeliveryMethod, r.Type, r.ContractTerms, r.Visible,
			r.MinUSD, r.MaxUSD, r.Reviews.PageExists, r.Reviews.Supported,
			r.Reviews.AWSReviews, r.Reviews.ExternalReviews, r.Reviews.AvgRating,
			r.Reviews.RatingsCount,
		)
		count++
	}
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pg insert: %w", err)
		}
	}
	return nil
}
