package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable run configuration. Components receive it at
// construction; there are no package-level settings anywhere else.
type Config struct {
	SitemapURL     string `yaml:"sitemap_url"`
	ReviewsBaseURL string `yaml:"reviews_base_url"`
	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"`

	// Politeness / safety.
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`
	JitterSeconds    float64 `yaml:"jitter_seconds"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	MaxRetries       int     `yaml:"max_retries"`
	MaxBodyBytes     int64   `yaml:"max_body_bytes"`

	// Run settings.
	SampleTotal int   `yaml:"sample_total"`
	RandomSeed  int64 `yaml:"random_seed"`
	Resume      bool  `yaml:"resume"`

	// Extra cooldown pause every N processed products.
	PauseEveryN      int `yaml:"pause_every_n"`
	PauseMinSeconds  int `yaml:"pause_min_seconds"`
	PauseMaxSeconds  int `yaml:"pause_max_seconds"`
	ReviewsMinLength int `yaml:"reviews_min_length"`

	// Output.
	CacheDir     string `yaml:"cache_dir"`
	TaxonomyFile string `yaml:"taxonomy_file"`
	ProductsFile string `yaml:"products_file"`
}

func Default() Config {
	return Config{
		SitemapURL:       "https://aws.amazon.com/marketplace/sitemap.xml",
		ReviewsBaseURL:   "https://aws.amazon.com",
		UserAgent:        "Mozilla/5.0 (compatible; awsmp-go-scraper/1.0)",
		AcceptLanguage:   "en-US,en;q=0.9",
		BaseDelaySeconds: 1.6,
		JitterSeconds:    1.2,
		TimeoutSeconds:   25,
		MaxRetries:       4,
		MaxBodyBytes:     5 * 1024 * 1024,
		SampleTotal:      100,
		RandomSeed:       42,
		Resume:           true,
		PauseEveryN:      100,
		PauseMinSeconds:  30,
		PauseMaxSeconds:  90,
		ReviewsMinLength: 50,
		CacheDir:         "data/cache_html",
		TaxonomyFile:     "data/urls_taxonomy.csv",
		ProductsFile:     "data/products_enriched.csv",
	}
}

// Load reads a YAML settings file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SitemapURL == "" {
		return fmt.Errorf("sitemap_url is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.BaseDelaySeconds < 0 || c.JitterSeconds < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.PauseMaxSeconds < c.PauseMinSeconds {
		return fmt.Errorf("pause_max_seconds < pause_min_seconds")
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
