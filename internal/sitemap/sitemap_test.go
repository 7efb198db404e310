package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"awsmp-go-scraper/internal/config"
	"awsmp-go-scraper/internal/fetch"
	"awsmp-go-scraper/internal/models"
	"awsmp-go-scraper/pkg/logger"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		kind models.URLKind
		slug string
	}{
		{"https://aws.amazon.com/marketplace/pp/prodview-abc123", models.KindProduct, "prodview-abc123"},
		{"https://aws.amazon.com/marketplace/pp/prodview-abc123?ref=x", models.KindProduct, "prodview-abc123"},
		{"https://aws.amazon.com/marketplace/seller-profile/acme-inc", models.KindSeller, "acme-inc"},
		{"https://aws.amazon.com/marketplace/b/security", models.KindCategory, "security"},
		{"https://aws.amazon.com/marketplace/search", models.KindOther, ""},
		{"https://aws.amazon.com/about", models.KindOther, ""},
	}
	for _, tc := range tests {
		kind := ClassifyURL(tc.url)
		assert.Equal(t, tc.kind, kind, tc.url)
		slug := ExtractSlug(tc.url, kind)
		if tc.slug == "" {
			assert.Nil(t, slug, tc.url)
		} else {
			require.NotNil(t, slug, tc.url)
			assert.Equal(t, tc.slug, *slug, tc.url)
		}
	}
}

func TestExtractSlugMismatch(t *testing.T) {
	// kind does not match the URL: no slug, no panic
	assert.Nil(t, ExtractSlug("https://aws.amazon.com/about", models.KindProduct))
}

func TestParseLocationsNamespaceAgnostic(t *testing.T) {
	withNS := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://aws.amazon.com/marketplace/pp/prodview-a</loc></url>
  <url><loc> https://aws.amazon.com/marketplace/b/security </loc></url>
</urlset>`)
	urls, err := ParseLocations(withNS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://aws.amazon.com/marketplace/pp/prodview-a",
		"https://aws.amazon.com/marketplace/b/security",
	}, urls)

	noNS := []byte(`<urlset><url><loc>https://x.test/marketplace/pp/prodview-b</loc></url></urlset>`)
	urls, err = ParseLocations(noNS)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestProductURLsDedupe(t *testing.T) {
	slug := models.StrPtr("prodview-a")
	records := []models.URLRecord{
		{URL: "https://x.test/marketplace/pp/prodview-a", Kind: models.KindProduct, Slug: slug},
		{URL: "https://x.test/marketplace/pp/prodview-a", Kind: models.KindProduct, Slug: slug},
		{URL: "https://x.test/marketplace/b/security", Kind: models.KindCategory, Slug: models.StrPtr("security")},
		{URL: "https://x.test/marketplace/pp/prodview-b", Kind: models.KindProduct, Slug: models.StrPtr("prodview-b")},
		{URL: "https://x.test/other", Kind: models.KindOther},
	}
	assert.Equal(t, []string{
		"https://x.test/marketplace/pp/prodview-a",
		"https://x.test/marketplace/pp/prodview-b",
	}, ProductURLs(records))
}

func TestIndexFatalOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.BaseDelaySeconds = 0
	cfg.JitterSeconds = 0
	f := fetch.New(cfg, fetch.NewMemStore(), logger.New())
	ix := NewIndexer(f, ts.URL+"/marketplace/sitemap.xml", logger.New())

	_, _, err := ix.Index(context.Background())
	require.Error(t, err)
}

func TestIndexTaxonomy(t *testing.T) {
	const sitemapXML = `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://aws.amazon.com/marketplace/pp/prodview-a</loc></url>
  <url><loc>https://aws.amazon.com/marketplace/b/security/cat123</loc></url>
  <url><loc>https://aws.amazon.com/other/page</loc></url>
</urlset>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sitemapXML))
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.BaseDelaySeconds = 0
	cfg.JitterSeconds = 0
	f := fetch.New(cfg, fetch.NewMemStore(), logger.New())
	ix := NewIndexer(f, ts.URL+"/sitemap.xml", logger.New())

	records, taxonomy, err := ix.Index(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.KindProduct, records[0].Kind)
	assert.Equal(t, models.KindCategory, records[1].Kind)
	assert.Equal(t, models.KindOther, records[2].Kind)

	// only marketplace URLs make the taxonomy
	require.Len(t, taxonomy, 2)
	require.NotNil(t, taxonomy[0].Section)
	assert.Equal(t, "pp", *taxonomy[0].Section)
	assert.Equal(t, 2, taxonomy[0].Depth)
	require.NotNil(t, taxonomy[1].Level3)
	assert.Equal(t, "cat123", *taxonomy[1].Level3)
	assert.Equal(t, 3, taxonomy[1].Depth)
}
