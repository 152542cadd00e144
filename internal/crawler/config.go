package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults applied when the caller leaves a knob unset.
const (
	DefaultConcurrency = 2
	DefaultInterval    = 500 * time.Millisecond
	DefaultTimeout     = 20 * time.Second
	DefaultUserAgent   = "MetaSitemapCrawler/1.0 (+https://example.local)"
)

// CrawlConfig captures every knob that influences a crawl run. It is built
// once from external input and never mutated afterwards.
type CrawlConfig struct {
	StartURL      string
	Domain        string
	MaxDepth      int
	Concurrency   int
	Interval      time.Duration
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
}

// NewCrawlConfig validates the seed and fills defaults. The domain defaults to
// the seed's hostname.
func NewCrawlConfig(cfg CrawlConfig) (CrawlConfig, error) {
	seed, err := parseSeed(cfg.StartURL)
	if err != nil {
		return CrawlConfig{}, err
	}
	cfg.StartURL = strings.TrimSpace(cfg.StartURL)
	cfg.Domain = strings.TrimSpace(cfg.Domain)
	if cfg.Domain == "" {
		cfg.Domain = seed.Hostname()
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c CrawlConfig) Validate() error {
	if _, err := parseSeed(c.StartURL); err != nil {
		return err
	}
	if c.Domain == "" {
		return fmt.Errorf("crawl.domain must be set")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Interval < 0 {
		return fmt.Errorf("crawl.interval must be >= 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("crawl.timeout must be > 0")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("crawl.user_agent must be set")
	}
	return nil
}

func parseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: start url is required", ErrInvalidSeed)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidSeed, raw)
	}
	return u, nil
}
