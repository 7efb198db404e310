package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"awsmp-go-scraper/internal/models"
)

func sampleRecord() models.ProductRecord {
	return models.ProductRecord{
		URL:             "https://aws.amazon.com/marketplace/pp/prodview-abc",
		ProdviewID:      models.StrPtr("prodview-abc"),
		ProductName:     models.StrPtr("Acme Tool"),
		SellerName:      models.StrPtr("Acme Inc"),
		CategoryPrimary: models.StrPtr("Security"),
		CategoriesAll:   models.StrPtr("Security|Networking"),
		DeliveryMethod:  models.StrPtr("SaaS"),
		Pricing: models.Pricing{
			Type:          "contract",
			ContractTerms: models.StrPtr("1-month,12-month"),
			Visible:       1,
			MinUSD:        models.FloatPtr(10),
			MaxUSD:        models.FloatPtr(1234.56),
		},
		Reviews: models.ReviewsInfo{
			PageExists:      1,
			Supported:       models.IntPtr(1),
			AvgRating:       models.FloatPtr(4.6),
			RatingsCount:    models.IntPtr(968),
			AWSReviews:      models.IntPtr(3),
			ExternalReviews: models.IntPtr(965),
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products.csv")
	s := NewCSV(path)

	sparse := models.ProductRecord{
		URL:     "https://aws.amazon.com/marketplace/pp/prodview-empty",
		Pricing: models.Pricing{Type: "unknown"},
		Reviews: models.ReviewsInfo{PageExists: 0, Supported: models.IntPtr(0)},
	}
	require.NoError(t, s.WriteAll([]models.ProductRecord{sampleRecord(), sparse}))

	rows, done, err := s.Load()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]bool{"prodview-abc": true}, done)

	got := rows[0]
	assert.Equal(t, sampleRecord(), got)

	// absent fields survive as nil
	assert.Nil(t, rows[1].ProductName)
	assert.Nil(t, rows[1].MinUSD)
	assert.Equal(t, "unknown", rows[1].Type)
}

func TestLoadMissingFile(t *testing.T) {
	s := NewCSV(filepath.Join(t.TempDir(), "nope.csv"))
	rows, done, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, done)
}

func TestWriteAllReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	s := NewCSV(path)
	require.NoError(t, s.WriteAll([]models.ProductRecord{sampleRecord()}))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.WriteAll([]models.ProductRecord{sampleRecord()}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.csv")
	rows := []models.TaxonomyRow{
		{URL: "https://x.test/marketplace/pp/prodview-a", Section: models.StrPtr("pp"),
			Level2: models.StrPtr("prodview-a"), Depth: 2},
		{URL: "https://x.test/marketplace", Depth: 0},
	}
	require.NoError(t, WriteTaxonomy(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "url,section,level_2,level_3,depth\n" +
		"https://x.test/marketplace/pp/prodview-a,pp,prodview-a,,2\n" +
		"https://x.test/marketplace,,,,0\n"
	assert.Equal(t, want, string(data))
}
