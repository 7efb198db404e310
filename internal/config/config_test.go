package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sitemap_url: https://example.test/sitemap.xml
max_retries: 2
sample_total: 5
base_delay_seconds: 0.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/sitemap.xml", cfg.SitemapURL)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 5, cfg.SampleTotal)
	assert.Equal(t, 0.5, cfg.BaseDelaySeconds)

	// untouched keys keep their defaults
	assert.Equal(t, "https://aws.amazon.com", cfg.ReviewsBaseURL)
	assert.True(t, cfg.Resume)
	assert.Equal(t, 100, cfg.PauseEveryN)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 0\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
