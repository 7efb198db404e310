package models

type URLKind string

const (
	KindProduct  URLKind = "product"
	KindSeller   URLKind = "seller"
	KindCategory URLKind = "category"
	KindOther    URLKind = "other"
)

// URLRecord is one classified sitemap entry. Slug is nil when the kind has no
// path pattern or the pattern did not match.
type URLRecord struct {
	URL  string  `json:"url"`
	Kind URLKind `json:"kind"`
	Slug *string `json:"slug,omitempty"`
}

// TaxonomyRow is one row of the full sitemap taxonomy table: the URL split
// into its marketplace path levels.
type TaxonomyRow struct {
	URL     string  `json:"url"`
	Section *string `json:"section,omitempty"`
	Level2  *string `json:"level_2,omitempty"`
	Level3  *string `json:"level_3,omitempty"`
	Depth   int     `json:"depth"`
}

// Pricing holds the classified pricing signals of a product page.
type Pricing struct {
	Type          string   `json:"pricing_type"`
	ContractTerms *string  `json:"contract_terms,omitempty"`
	Visible       int      `json:"price_visible"`
	MinUSD        *float64 `json:"price_min_usd,omitempty"`
	MaxUSD        *float64 `json:"price_max_usd,omitempty"`
}

// ReviewsInfo is the outcome of the reviews-list sub-page for one product.
// Supported is nil when the page loaded but was too short to interpret.
type ReviewsInfo struct {
	PageExists      int      `json:"reviews_page_exists"`
	Supported       *int     `json:"reviews_supported,omitempty"`
	AvgRating       *float64 `json:"avg_rating,omitempty"`
	RatingsCount    *int     `json:"ratings_count,omitempty"`
	AWSReviews      *int     `json:"aws_reviews_count,omitempty"`
	ExternalReviews *int     `json:"external_reviews_count,omitempty"`
}

// ProductRecord is one enriched output row. Every field except URL is
// optional; absence is an expected outcome, not an error.
type ProductRecord struct {
	URL             string  `json:"url"`
	ProdviewID      *string `json:"prodview_id,omitempty"`
	ProductName     *string `json:"product_name,omitempty"`
	SellerName      *string `json:"seller_name,omitempty"`
	CategoryPrimary *string `json:"category_primary,omitempty"`
	CategoriesAll   *string `json:"categories_all,omitempty"`
	DeliveryMethod  *string `json:"delivery_method,omitempty"`
	Pricing
	Reviews ReviewsInfo `json:"reviews"`
}

// Pointer helpers used when assembling records.

func StrPtr(s string) *string     { return &s }
func IntPtr(n int) *int           { return &n }
func FloatPtr(f float64) *float64 { return &f }
