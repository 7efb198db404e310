package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"awsmp-go-scraper/internal/config"
	"awsmp-go-scraper/internal/fetch"
	"awsmp-go-scraper/internal/models"
	"awsmp-go-scraper/internal/pricing"
	"awsmp-go-scraper/internal/product"
	"awsmp-go-scraper/internal/reviews"
	"awsmp-go-scraper/internal/sink"
	"awsmp-go-scraper/internal/sitemap"
	"awsmp-go-scraper/pkg/logger"
)

// Mirror is an optional secondary sink for enriched rows.
type Mirror interface {
	Insert(ctx context.Context, rows []models.ProductRecord) error
}

// Pipeline runs the whole scrape: index the sitemap, sample product URLs,
// enrich each one, and persist continuously. Deliberately sequential; the
// blocking sleeps in the fetcher are the rate limit.
type Pipeline struct {
	cfg     config.Config
	log     *logger.Logger
	fetcher *fetch.Fetcher
	indexer *sitemap.Indexer
	reviews *reviews.Extractor
	csv     *sink.CSVSink
	mirror  Mirror
	rng     *rand.Rand
	sleep   func(time.Duration)
}

func New(cfg config.Config, log *logger.Logger, fetcher *fetch.Fetcher) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		log:     log,
		fetcher: fetcher,
		indexer: sitemap.NewIndexer(fetcher, cfg.SitemapURL, log),
		reviews: reviews.NewExtractor(fetcher, cfg.ReviewsBaseURL, cfg.ReviewsMinLength),
		csv:     sink.NewCSV(cfg.ProductsFile),
		rng:     rand.New(rand.NewSource(cfg.RandomSeed)),
		sleep:   time.Sleep,
	}
}

func (p *Pipeline) SetMirror(m Mirror) { p.mirror = m }

// Run executes one full pass. Only a sitemap failure aborts; every per-item
// failure is logged and skipped so the run always produces a best-effort
// table.
func (p *Pipeline) Run(ctx context.Context) error {
	records, taxonomy, err := p.indexer.Index(ctx)
	if err != nil {
		return err
	}
	if err := sink.WriteTaxonomy(p.cfg.TaxonomyFile, taxonomy); err != nil {
		return fmt.Errorf("write taxonomy: %w", err)
	}
	p.log.Infof("saved taxonomy -> %s", p.cfg.TaxonomyFile)

	urls := sitemap.ProductURLs(records)
	p.log.Infof("%d product URLs found", len(urls))
	urls = p.sample(urls)
	p.log.Infof("sampling %d products", len(urls))

	var rows []models.ProductRecord
	done := map[string]bool{}
	if p.cfg.Resume {
		rows, done, err = p.csv.Load()
		if err != nil {
			p.log.Warnf("could not read resume file: %v", err)
			rows, done = nil, map[string]bool{}
		} else if len(done) > 0 {
			p.log.Infof("resume on, %d products already in %s", len(done), p.cfg.ProductsFile)
		}
	}

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}

		pid, hasPID := fetch.ProdviewID(url)
		if !hasPID {
			// without a stable id the row could never be resumed; drop it
			p.log.Infof("[%d/%d] skip %s (no prodview id)", i+1, len(urls), url)
			continue
		}
		if done[pid] {
			p.log.Infof("[%d/%d] skip %s (already done)", i+1, len(urls), pid)
			continue
		}

		p.log.Infof("[%d/%d] %s", i+1, len(urls), url)
		row, ok := p.enrich(ctx, url, pid)
		if ok {
			rows = append(rows, row)
			done[pid] = true
			if err := p.csv.WriteAll(rows); err != nil {
				p.log.Errorf("write products: %v", err)
			}
			if p.mirror != nil {
				if err := p.mirror.Insert(ctx, []models.ProductRecord{row}); err != nil {
					p.log.Errorf("mirror insert: %v", err)
				}
			}
		}

		if p.cfg.PauseEveryN > 0 && (i+1)%p.cfg.PauseEveryN == 0 {
			extra := p.cfg.PauseMinSeconds
			if span := p.cfg.PauseMaxSeconds - p.cfg.PauseMinSeconds; span > 0 {
				extra += p.rng.Intn(span + 1)
			}
			p.log.Infof("pausing %ds for safety", extra)
			p.sleep(time.Duration(extra) * time.Second)
		}
	}

	p.summarize(rows)
	p.log.Infof("saved final dataset -> %s", p.cfg.ProductsFile)
	return nil
}

// enrich builds one output row from a product URL. Returns ok=false when the
// page yields no data.
func (p *Pipeline) enrich(ctx context.Context, url, pid string) (models.ProductRecord, bool) {
	content, err := p.fetcher.Fetch(ctx, url, "product", true)
	if err != nil {
		if fetch.IsNoData(err) {
			p.log.Infof("skip: no product page for %s", url)
		} else {
			p.log.Errorf("skip %s: %v", url, err)
		}
		return models.ProductRecord{}, false
	}

	doc, err := product.Parse(content, "")
	if err != nil {
		p.log.Errorf("skip %s: parse: %v", url, err)
		return models.ProductRecord{}, false
	}
	text := product.NormalizedText(doc)
	fields := product.Extract(doc)

	row := models.ProductRecord{
		URL:             url,
		ProductName:     fields.Name,
		SellerName:      fields.Seller,
		CategoryPrimary: fields.CategoryPrimary,
		CategoriesAll:   fields.CategoriesAll,
		DeliveryMethod:  fields.DeliveryMethod,
		Pricing:         pricing.ParseDetails(text),
	}
	row.ProdviewID = models.StrPtr(pid)
	// reviews are keyed by the same product id as the row URL
	row.Reviews = p.reviews.Fetch(ctx, pid)

	p.log.Infof("ok %s | %s | pricing=%s | reviews_page=%d",
		pid, strOr(row.ProductName, "-"), row.Type, row.Reviews.PageExists)
	return row, true
}

func (p *Pipeline) sample(urls []string) []string {
	if p.cfg.SampleTotal <= 0 || len(urls) <= p.cfg.SampleTotal {
		return urls
	}
	shuffled := make([]string, len(urls))
	copy(shuffled, urls)
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:p.cfg.SampleTotal]
}

func (p *Pipeline) summarize(rows []models.ProductRecord) {
	byPricing := map[string]int{}
	withReviews := 0
	for _, r := range rows {
		byPricing[r.Type]++
		if r.Reviews.Supported != nil && *r.Reviews.Supported == 1 {
			withReviews++
		}
	}
	p.log.Infof("done: %d rows, %d with supported reviews", len(rows), withReviews)
	for tag, n := range byPricing {
		p.log.Infof("pricing %s: %d", tag, n)
	}
}

func strOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
