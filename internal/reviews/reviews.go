package reviews

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"awsmp-go-scraper/internal/fetch"
	"awsmp-go-scraper/internal/models"
	"awsmp-go-scraper/internal/product"
)

const notSupportedMarker = "reviews are not supported"

var (
	awsReviewsRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s+AWS reviews\b`)
	extReviewsRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s+external reviews\b`)
	ratingsRe    = regexp.MustCompile(`(?i)(\d[\d,]*)\s+ratings\b`)

	// avg-rating heuristics, tried in order: the explicit out-of-5 phrase,
	// then a decimal near the "ratings and reviews" section label, then a
	// decimal followed by a parenthesized count.
	outOfFiveRe   = regexp.MustCompile(`(?i)\b([0-5]\.\d)\s+out of 5\b`)
	decimalRe     = regexp.MustCompile(`\b([0-5]\.\d)\b`)
	parenCountRe  = regexp.MustCompile(`\b([0-5]\.\d)\b\s*\(\d[\d,]*\)`)
	ratingsWindow = 800
)

// NoPage is the terminal state for a missing or unfetchable reviews page.
func NoPage() models.ReviewsInfo {
	return models.ReviewsInfo{PageExists: 0, Supported: models.IntPtr(0)}
}

// ambiguousPage marks a page that loaded but could not be interpreted:
// neither "no page" nor "not supported".
func ambiguousPage() models.ReviewsInfo {
	return models.ReviewsInfo{PageExists: 1, Supported: nil}
}

// Extractor resolves the reviews-list sub-page for a product id.
type Extractor struct {
	fetcher   *fetch.Fetcher
	baseURL   string
	minLength int
}

func NewExtractor(fetcher *fetch.Fetcher, baseURL string, minLength int) *Extractor {
	return &Extractor{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), minLength: minLength}
}

// Fetch walks the reviews-page state machine for prodviewID. It never returns
// an error: every fetch or parse problem degrades to a defined state.
func (e *Extractor) Fetch(ctx context.Context, prodviewID string) models.ReviewsInfo {
	url := fmt.Sprintf("%s/marketplace/reviews/reviews-list/%s", e.baseURL, prodviewID)
	content, err := e.fetcher.Fetch(ctx, url, "reviews", true)
	if err != nil {
		// 404 or retries exhausted: no reviews page
		return NoPage()
	}

	doc, err := product.Parse(content, "")
	if err != nil {
		// the page exists, it just cannot be interpreted
		return ambiguousPage()
	}
	text := product.NormalizedText(doc)

	if len(text) < e.minLength {
		// page loaded but there is nothing to interpret; distinct from both
		// "no page" and "not supported"
		return ambiguousPage()
	}
	return Parse(text)
}

// Parse extracts the rating and count fields from normalized reviews-page
// text. An unparsable match nils that field only.
func Parse(text string) models.ReviewsInfo {
	if strings.Contains(strings.ToLower(text), notSupportedMarker) {
		return models.ReviewsInfo{PageExists: 1, Supported: models.IntPtr(0)}
	}

	out := models.ReviewsInfo{PageExists: 1, Supported: models.IntPtr(1)}
	if m := awsReviewsRe.FindStringSubmatch(text); m != nil {
		out.AWSReviews = parseCount(m[1])
	}
	if m := extReviewsRe.FindStringSubmatch(text); m != nil {
		out.ExternalReviews = parseCount(m[1])
	}
	if m := ratingsRe.FindStringSubmatch(text); m != nil {
		out.RatingsCount = parseCount(m[1])
	}
	out.AvgRating = avgRating(text)
	return out
}

func avgRating(text string) *float64 {
	if m := outOfFiveRe.FindStringSubmatch(text); m != nil {
		return parseRating(m[1])
	}
	// search and slice the same lowercased string: lowercasing can change
	// byte offsets for non-ASCII input
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, "ratings and reviews"); idx != -1 {
		end := idx + ratingsWindow
		if end > len(lower) {
			end = len(lower)
		}
		if m := decimalRe.FindStringSubmatch(lower[idx:end]); m != nil {
			return parseRating(m[1])
		}
	}
	if m := parenCountRe.FindStringSubmatch(text); m != nil {
		return parseRating(m[1])
	}
	return nil
}

func parseCount(s string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return nil
	}
	return models.IntPtr(n)
}

func parseRating(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return models.FloatPtr(v)
}
