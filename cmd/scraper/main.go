package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"awsmp-go-scraper/internal/config"
	"awsmp-go-scraper/internal/fetch"
	"awsmp-go-scraper/internal/pipeline"
	"awsmp-go-scraper/internal/sink"
	"awsmp-go-scraper/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "optional YAML settings file")
	sitemapURL := flag.String("sitemap", "", "sitemap URL (overrides settings)")
	sample := flag.Int("sample", -1, "number of products to sample, 0 for all (overrides settings)")
	seed := flag.Int64("seed", -1, "sampling seed (overrides settings)")
	cacheDir := flag.String("cache", "", "HTML cache directory (overrides settings)")
	products := flag.String("out", "", "enriched products CSV path (overrides settings)")
	taxonomy := flag.String("taxonomy", "", "taxonomy CSV path (overrides settings)")
	pgDSN := flag.String("pg-dsn", "", "optional Postgres DSN to mirror rows into")
	noResume := flag.Bool("no-resume", false, "ignore any existing products file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if *sitemapURL != "" {
		cfg.SitemapURL = *sitemapURL
	}
	if *sample >= 0 {
		cfg.SampleTotal = *sample
	}
	if *seed >= 0 {
		cfg.RandomSeed = *seed
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *products != "" {
		cfg.ProductsFile = *products
	}
	if *taxonomy != "" {
		cfg.TaxonomyFile = *taxonomy
	}
	if *noResume {
		cfg.Resume = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	l := logger.New()
	ctx := context.Background()

	store, err := fetch.NewDiskStore(cfg.CacheDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cache dir:", err)
		os.Exit(1)
	}

	p := pipeline.New(cfg, l, fetch.New(cfg, store, l))
	if *pgDSN != "" {
		pg, err := sink.OpenPG(ctx, *pgDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, "postgres:", err)
			os.Exit(1)
		}
		defer pg.Close()
		p.SetMirror(pg)
	}

	if err := p.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}
}
