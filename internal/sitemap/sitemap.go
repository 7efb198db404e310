package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"awsmp-go-scraper/internal/fetch"
	"awsmp-go-scraper/internal/models"
	"awsmp-go-scraper/pkg/logger"
)

var (
	productRe  = regexp.MustCompile(`/marketplace/pp/([^/?]+)`)
	sellerRe   = regexp.MustCompile(`/marketplace/seller-profile/([^/?]+)`)
	categoryRe = regexp.MustCompile(`/marketplace/b/([^/?]+)`)
)

// ClassifyURL buckets a sitemap URL by its marketplace path pattern.
func ClassifyURL(rawURL string) models.URLKind {
	switch {
	case strings.Contains(rawURL, "/marketplace/pp/"):
		return models.KindProduct
	case strings.Contains(rawURL, "/marketplace/seller-profile/"):
		return models.KindSeller
	case strings.Contains(rawURL, "/marketplace/b/"):
		return models.KindCategory
	default:
		return models.KindOther
	}
}

// ExtractSlug pulls the path segment following the kind's prefix. Nil when the
// kind has no pattern or the pattern fails to match.
func ExtractSlug(rawURL string, kind models.URLKind) *string {
	var re *regexp.Regexp
	switch kind {
	case models.KindProduct:
		re = productRe
	case models.KindSeller:
		re = sellerRe
	case models.KindCategory:
		re = categoryRe
	default:
		return nil
	}
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return nil
	}
	return models.StrPtr(m[1])
}

// Indexer fetches the marketplace sitemap and turns it into classified URL
// records plus the full path taxonomy.
type Indexer struct {
	fetcher    *fetch.Fetcher
	sitemapURL string
	log        *logger.Logger
}

func NewIndexer(fetcher *fetch.Fetcher, sitemapURL string, log *logger.Logger) *Indexer {
	return &Indexer{fetcher: fetcher, sitemapURL: sitemapURL, log: log}
}

// Index fetches and classifies the sitemap. A terminal fetch failure is fatal:
// without the index there is no work to do.
func (ix *Indexer) Index(ctx context.Context) ([]models.URLRecord, []models.TaxonomyRow, error) {
	ix.log.Infof("fetching sitemap %s", ix.sitemapURL)
	content, err := ix.fetcher.Fetch(ctx, ix.sitemapURL, "sitemap", true)
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch sitemap: %w", err)
	}

	urls, err := ParseLocations(content)
	if err != nil {
		return nil, nil, fmt.Errorf("parse sitemap: %w", err)
	}
	ix.log.Infof("%d URLs found in sitemap", len(urls))

	records := make([]models.URLRecord, 0, len(urls))
	var taxonomy []models.TaxonomyRow
	for _, u := range urls {
		kind := ClassifyURL(u)
		records = append(records, models.URLRecord{
			URL:  u,
			Kind: kind,
			Slug: ExtractSlug(u, kind),
		})
		if row, ok := taxonomyRow(u); ok {
			taxonomy = append(taxonomy, row)
		}
	}
	return records, taxonomy, nil
}

// ParseLocations collects the text of every <loc> element. Matching is by
// local element name only; sitemap namespaces vary and must not break parsing.
func ParseLocations(content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var urls []string
	var inLoc bool
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "loc" {
				inLoc = true
				buf.Reset()
			}
		case xml.CharData:
			if inLoc {
				buf.Write(t)
			}
		case xml.EndElement:
			if inLoc && t.Name.Local == "loc" {
				if u := strings.TrimSpace(buf.String()); u != "" {
					urls = append(urls, u)
				}
				inLoc = false
			}
		}
	}
	return urls, nil
}

// taxonomyRow splits a marketplace URL path into its levels. URLs outside the
// marketplace root are skipped.
func taxonomyRow(rawURL string) (models.TaxonomyRow, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.TaxonomyRow{}, false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return models.TaxonomyRow{}, false
	}
	parts := strings.Split(path, "/")
	if parts[0] != "marketplace" {
		return models.TaxonomyRow{}, false
	}
	row := models.TaxonomyRow{URL: rawURL, Depth: len(parts) - 1}
	if len(parts) > 1 {
		row.Section = models.StrPtr(parts[1])
	}
	if len(parts) > 2 {
		row.Level2 = models.StrPtr(parts[2])
	}
	if len(parts) > 3 {
		row.Level3 = models.StrPtr(parts[3])
	}
	return row, true
}

// ProductURLs filters slug-bearing product records and deduplicates them
// preserving first occurrence.
func ProductURLs(records []models.URLRecord) []string {
	seen := make(map[string]bool, len(records))
	var urls []string
	for _, rec := range records {
		if rec.Kind != models.KindProduct || rec.Slug == nil {
			continue
		}
		if seen[rec.URL] {
			continue
		}
		seen[rec.URL] = true
		urls = append(urls, rec.URL)
	}
	return urls
}
