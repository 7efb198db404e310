package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdviewID(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://aws.amazon.com/marketplace/pp/prodview-abc123", "prodview-abc123", true},
		{"https://aws.amazon.com/marketplace/pp/prodview-abc123?ref=search", "prodview-abc123", true},
		{"https://aws.amazon.com/marketplace/pp/prodview-abc123/", "prodview-abc123", true},
		{"https://aws.amazon.com/marketplace/b/security", "", false},
		{"https://aws.amazon.com/", "", false},
		{"://bad", "", false},
	}
	for _, tc := range tests {
		got, ok := ProdviewID(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestCacheKeyStableIdentifier(t *testing.T) {
	// two URLs for the same listing collide on the prodview id
	a := CacheKey("product", "https://aws.amazon.com/marketplace/pp/prodview-abc123")
	b := CacheKey("product", "https://aws.amazon.com/marketplace/pp/prodview-abc123?ref=x")
	assert.Equal(t, "product__prodview-abc123.html", a)
	assert.Equal(t, a, b)

	// same id, different kind: distinct entries
	c := CacheKey("reviews", "https://aws.amazon.com/marketplace/reviews/reviews-list/prodview-abc123")
	assert.Equal(t, "reviews__prodview-abc123.html", c)
	assert.NotEqual(t, a, c)
}

func TestCacheKeyHashFallback(t *testing.T) {
	a := CacheKey("sitemap", "https://aws.amazon.com/marketplace/sitemap.xml")
	b := CacheKey("sitemap", "https://aws.amazon.com/marketplace/sitemap2.xml")
	assert.NotEqual(t, a, b)
	// deterministic
	assert.Equal(t, a, CacheKey("sitemap", "https://aws.amazon.com/marketplace/sitemap.xml"))
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Get("product__prodview-x.html")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put("product__prodview-x.html", []byte("body")))
	data, ok, err := store.Get("product__prodview-x.html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "body", string(data))
}
