package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"awsmp-go-scraper/internal/models"
)

// productHeader is the fixed column order of the enriched-products table.
var productHeader = []string{
	"url", "prodview_id", "product_name", "seller_name",
	"category_primary", "categories_all", "delivery_method",
	"pricing_type", "contract_terms", "price_visible", "price_min_usd", "price_max_usd",
	"reviews_page_exists", "reviews_supported", "aws_reviews_count",
	"external_reviews_count", "avg_rating", "ratings_count",
}

// CSVSink persists the enriched-products table. Every write replaces the whole
// file so an interrupted run leaves a loadable table behind.
type CSVSink struct {
	path string
}

func NewCSV(path string) *CSVSink { return &CSVSink{path: path} }

func (s *CSVSink) WriteAll(rows []models.ProductRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(productHeader); err != nil {
		f.Close()
		return err
	}
	for _, rec := range rows {
		if err := w.Write(productRow(rec)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the table back, returning the rows and the set of prodview ids
// already present. A missing file is an empty table, not an error.
func (s *CSVSink) Load() ([]models.ProductRecord, map[string]bool, error) {
	done := map[string]bool{}
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, done, nil
	}
	if err != nil {
		return nil, done, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, done, err
	}
	if len(raw) == 0 {
		return nil, done, nil
	}

	col := map[string]int{}
	for i, h := range raw[0] {
		col[h] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, done, fmt.Errorf("%s: missing url column", s.path)
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rows []models.ProductRecord
	for _, row := range raw[1:] {
		rec := models.ProductRecord{URL: field(row, "url")}
		if rec.URL == "" {
			continue
		}
		rec.ProdviewID = optStr(field(row, "prodview_id"))
		rec.ProductName = optStr(field(row, "product_name"))
		rec.SellerName = optStr(field(row, "seller_name"))
		rec.CategoryPrimary = optStr(field(row, "category_primary"))
		rec.CategoriesAll = optStr(field(row, "categories_all"))
		rec.DeliveryMethod = optStr(field(row, "delivery_method"))
		rec.Type = field(row, "pricing_type")
		rec.ContractTerms = optStr(field(row, "contract_terms"))
		rec.Visible = optIntValue(field(row, "price_visible"))
		rec.MinUSD = optFloat(field(row, "price_min_usd"))
		rec.MaxUSD = optFloat(field(row, "price_max_usd"))
		rec.Reviews.PageExists = optIntValue(field(row, "reviews_page_exists"))
		rec.Reviews.Supported = optInt(field(row, "reviews_supported"))
		rec.Reviews.AWSReviews = optInt(field(row, "aws_reviews_count"))
		rec.Reviews.ExternalReviews = optInt(field(row, "external_reviews_count"))
		rec.Reviews.AvgRating = optFloat(field(row, "avg_rating"))
		rec.Reviews.RatingsCount = optInt(field(row, "ratings_count"))
		rows = append(rows, rec)
		if rec.ProdviewID != nil {
			done[*rec.ProdviewID] = true
		}
	}
	return rows, done, nil
}

func productRow(r models.ProductRecord) []string {
	return []string{
		r.URL,
		strOrEmpty(r.ProdviewID),
		strOrEmpty(r.ProductName),
		strOrEmpty(r.SellerName),
		strOrEmpty(r.CategoryPrimary),
		strOrEmpty(r.CategoriesAll),
		strOrEmpty(r.DeliveryMethod),
		r.Type,
		strOrEmpty(r.ContractTerms),
		strconv.Itoa(r.Visible),
		floatOrEmpty(r.MinUSD),
		floatOrEmpty(r.MaxUSD),
		strconv.Itoa(r.Reviews.PageExists),
		intOrEmpty(r.Reviews.Supported),
		intOrEmpty(r.Reviews.AWSReviews),
		intOrEmpty(r.Reviews.ExternalReviews),
		floatOrEmpty(r.Reviews.AvgRating),
		intOrEmpty(r.Reviews.RatingsCount),
	}
}

// WriteTaxonomy writes the full sitemap taxonomy table.
func WriteTaxonomy(path string, rows []models.TaxonomyRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"url", "section", "level_2", "level_3", "depth"}); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		rec := []string{
			row.URL,
			strOrEmpty(row.Section),
			strOrEmpty(row.Level2),
			strOrEmpty(row.Level3),
			strconv.Itoa(row.Depth),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return models.StrPtr(s)
}

func optInt(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return models.IntPtr(n)
}

func optIntValue(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func optFloat(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return models.FloatPtr(f)
}
