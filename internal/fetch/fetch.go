package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"awsmp-go-scraper/internal/config"
	"awsmp-go-scraper/pkg/logger"
)

// Terminal outcomes. Both mean "no data for this URL": a 404 is a valid
// negative result, exhausted retries degrade to the same thing.
var (
	ErrNotFound  = errors.New("not found")
	ErrExhausted = errors.New("retries exhausted")
)

// IsNoData reports whether err is one of the terminal no-data outcomes that a
// caller should treat as "skip this item".
func IsNoData(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExhausted)
}

// transientStatus lists the HTTP statuses that warrant backoff and retry.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher issues sequential polite GETs with a disk-backed content cache.
//
// Retry policy: 404 is terminal and never retried; the listed transient
// statuses, every other non-2xx status, and transport errors all back off and
// retry up to MaxRetries attempts. Only 404 short-circuits.
type Fetcher struct {
	client *http.Client
	store  Store
	cfg    config.Config
	log    *logger.Logger
	rng    *rand.Rand
	sleep  func(time.Duration)
}

func New(cfg config.Config, store Store, log *logger.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		store: store,
		cfg:   cfg,
		log:   log,
		rng:   rand.New(rand.NewSource(cfg.RandomSeed)),
		sleep: time.Sleep,
	}
}

// Fetch returns the body of url, serving from cache when possible. A cache
// hit bypasses both the network and the polite delay. kind tags the cache
// entry (sitemap/product/reviews).
func (f *Fetcher) Fetch(ctx context.Context, rawURL, kind string, useCache bool) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	key := CacheKey(kind, rawURL)
	if useCache {
		if data, ok, err := f.store.Get(key); err == nil && ok {
			return data, nil
		} else if err != nil {
			f.log.Warnf("cache read %s: %v", key, err)
		}
	}

	backoff := 2.0
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
		req.Header.Set("User-Agent", f.cfg.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			f.log.Warnf("fetch failed %s (attempt %d/%d): %v", rawURL, attempt, f.cfg.MaxRetries, err)
			f.politeSleep(backoff)
			backoff *= 2
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
		resp.Body.Close()
		status := resp.StatusCode

		if status == http.StatusNotFound {
			// Not transient: the page does not exist. No retry, no cache write.
			f.log.Infof("404 (no page) %s", rawURL)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
		}
		if transientStatus[status] {
			f.log.Warnf("%d %s (attempt %d/%d) -> backoff %.1fx", status, rawURL, attempt, f.cfg.MaxRetries, backoff)
			f.politeSleep(backoff)
			backoff *= 2
			continue
		}
		if status < 200 || status >= 300 {
			f.log.Warnf("unexpected %d %s (attempt %d/%d) -> backoff %.1fx", status, rawURL, attempt, f.cfg.MaxRetries, backoff)
			f.politeSleep(backoff)
			backoff *= 2
			continue
		}
		if readErr != nil {
			f.log.Warnf("read body %s (attempt %d/%d): %v", rawURL, attempt, f.cfg.MaxRetries, readErr)
			f.politeSleep(backoff)
			backoff *= 2
			continue
		}

		if useCache {
			if err := f.store.Put(key, body); err != nil {
				f.log.Warnf("cache write %s: %v", key, err)
			}
		}
		f.politeSleep(1.0)
		return body, nil
	}

	f.log.Errorf("failed after %d attempts: %s", f.cfg.MaxRetries, rawURL)
	return nil, fmt.Errorf("%w: %s", ErrExhausted, rawURL)
}

// politeSleep blocks for mult * (base delay + random jitter). The whole
// pipeline is single-threaded; blocking here is the throttle.
func (f *Fetcher) politeSleep(mult float64) {
	secs := mult * (f.cfg.BaseDelaySeconds + f.rng.Float64()*f.cfg.JitterSeconds)
	f.sleep(time.Duration(secs * float64(time.Second)))
}
