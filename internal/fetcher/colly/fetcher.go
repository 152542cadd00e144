// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodySize   int
}

// Fetcher implements crawler.Fetcher using the Colly collector. Redirects are
// not followed; a 3xx response is returned with its Location so the scheduler
// can offer the target to the frontier.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Collectors cloned per fetch share the HTTP backend and
// the robots.txt cache of the base collector.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = crawler.DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = crawler.DefaultUserAgent
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
	)
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodySize > 0 {
		c.MaxBodySize = cfg.MaxBodySize
	}
	c.WithTransport(newRobotsRetryTransport(newHTTPTransport(), logger))
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		received bool
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, start, &result, &received, &fetchErr)

	visitErr := collector.Visit(rawURL)
	switch {
	case errors.Is(visitErr, colly.ErrRobotsTxtBlocked):
		return crawler.FetchResponse{}, crawler.ErrDisallowed
	case fetchErr != nil:
		return crawler.FetchResponse{}, classifyTransportError(fetchErr)
	case visitErr != nil && !received:
		return crawler.FetchResponse{}, classifyTransportError(visitErr)
	case !received:
		return crawler.FetchResponse{}, &crawler.FetchError{
			Kind: crawler.FetchErrorGeneric,
			Err:  errors.New("colly fetch produced no response"),
		}
	}
	result.URL = rawURL
	return result, classifyStatus(result)
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *crawler.FetchResponse,
	received *bool,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		*received = true
		var headers http.Header
		if r.Headers != nil {
			headers = *r.Headers
		}
		*result = crawler.FetchResponse{
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: headers.Get("Content-Type"),
			Location:    headers.Get("Location"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode > 0 {
			f.logger.Debug("colly error with response", zap.Int("status", r.StatusCode), zap.Error(err))
		}
		*fetchErr = err
	})
}

// classifyStatus maps HTTP statuses onto the fetch error taxonomy. Redirects
// with a Location are not errors.
func classifyStatus(resp crawler.FetchResponse) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 300 && code < 400 && resp.Location != "":
		return nil
	case code == http.StatusNotFound:
		return &crawler.FetchError{Kind: crawler.FetchErrorNotFound, Status: code}
	default:
		return &crawler.FetchError{
			Kind:   crawler.FetchErrorGeneric,
			Status: code,
			Err:    fmt.Errorf("unexpected status %d", code),
		}
	}
}

// classifyTransportError turns a failed round trip into a timeout or a client
// error carrying a network error code.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &crawler.FetchError{Kind: crawler.FetchErrorTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &crawler.FetchError{Kind: crawler.FetchErrorTimeout, Err: err}
	}
	return &crawler.FetchError{Kind: crawler.FetchErrorClient, ClientCode: clientCode(err), Err: err}
}

func clientCode(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.EHOSTUNREACH):
		return "EHOSTUNREACH"
	case errors.Is(err, syscall.ENETUNREACH):
		return "ENETUNREACH"
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE"
	default:
		return "unknown"
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
