package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultRatePerSecond defines the default request rate per second when creating a new Fetcher.
const DefaultRatePerSecond = 2

// DefaultMaxWorkers defines the default number of concurrent fetches.
const DefaultMaxWorkers = 10

// defaultRequestTimeout bounds a single HTTP request.
const defaultRequestTimeout = 30 * time.Second

// defaultRetryAfter specifies the default value for Retry-After header in case of too many requests.
const defaultRetryAfter = 60

// defaultMaxRetryCount defines the default maximum number of retries for a failed URL fetch.
const defaultMaxRetryCount = 100

// defaultMaxElapsedTime specifies the default maximum elapsed time for the exponential backoff.
const defaultMaxElapsedTime = 10 * time.Minute

// defaultMaxInterval defines the default maximum interval for the exponential backoff.
const defaultMaxInterval = 2 * time.Minute

// browserUserAgents is the pool of User-Agent values rotated across
// requests. Listing pages sit behind anti-automation checks that reject
// obvious non-browser agents outright.
var browserUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// Fetcher represents a URL fetcher with rate limiting, retry mechanisms,
// and browser-like request headers.
type Fetcher struct {
	Client      *http.Client
	RateLimiter *rate.Limiter
	BackoffCfg  backoff.BackOff
	MaxWorkers  int
	UserAgent   string

	ratePerSecond int
	burst         int
	timeout       time.Duration
	proxyURL      *url.URL
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRatePerSecond sets the request rate limit.
func WithRatePerSecond(ratePerSecond int) Option {
	return func(f *Fetcher) {
		if ratePerSecond > 0 {
			f.ratePerSecond = ratePerSecond
		}
	}
}

// WithBurst sets the rate limiter burst size.
func WithBurst(burst int) Option {
	return func(f *Fetcher) {
		if burst > 0 {
			f.burst = burst
		}
	}
}

// WithProxyURL routes all requests through the given proxy.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(f *Fetcher) {
		f.proxyURL = proxyURL
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithBackOffConfig replaces the default exponential backoff. The config
// acts as a prototype: every request retries on its own copy.
func WithBackOffConfig(b backoff.BackOff) Option {
	return func(f *Fetcher) {
		f.BackoffCfg = b
	}
}

// WithMaxWorkers sets the number of concurrent fetches used by FetchURLs.
func WithMaxWorkers(maxWorkers int) Option {
	return func(f *Fetcher) {
		if maxWorkers > 0 {
			f.MaxWorkers = maxWorkers
		}
	}
}

// WithUserAgent pins the User-Agent header instead of rotating the pool.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.UserAgent = userAgent
	}
}

// NewFetcher creates a new Fetcher configured by the given options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		ratePerSecond: DefaultRatePerSecond,
		burst:         1,
		timeout:       defaultRequestTimeout,
		MaxWorkers:    DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.BackoffCfg == nil {
		f.BackoffCfg = makeDefaultBackoff()
	}
	transport := http.DefaultTransport
	if f.proxyURL != nil {
		transport = &http.Transport{Proxy: http.ProxyURL(f.proxyURL)}
	}
	f.Client = &http.Client{Transport: transport, Timeout: f.timeout}
	f.RateLimiter = rate.NewLimiter(rate.Limit(f.ratePerSecond), f.burst)
	return f
}

// FetchResult represents the result of a URL fetch operation.
type FetchResult struct {
	Url   string
	Body  io.ReadCloser
	Error error
}

// FetchError represents an HTTP-level fetch failure, carrying the status
// code and, for rate-limit responses, the server's requested retry delay.
type FetchError struct {
	StatusCode      int
	TooManyRequests bool
	RetryAfter      int
}

// Error returns the error message for the FetchError.
func (e *FetchError) Error() string {
	if e.TooManyRequests {
		return fmt.Sprintf("too many requests, retry after %d seconds", e.RetryAfter)
	}
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// FetchURLs concurrently fetches the specified URLs and returns a channel to receive the FetchResults.
// The returned channel will be closed once all fetch operations are completed.
func (f *Fetcher) FetchURLs(ctx context.Context, urls []string) <-chan FetchResult {
	results := make(chan FetchResult, len(urls))
	var eg errgroup.Group

	sem := make(chan struct{}, f.MaxWorkers)

	for _, u := range urls {
		u := u
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			body, err := f.FetchURL(ctx, u)
			select {
			case <-ctx.Done():
				if body != nil {
					body.Close()
				}
				return ctx.Err()
			default:
				results <- FetchResult{Url: u, Body: body, Error: err}
				return nil
			}
		})
	}

	go func() {
		eg.Wait()
		close(results)
	}()

	return results
}

// FetchURL fetches the specified URL and returns the response body as io.ReadCloser and any encountered error.
// It uses rate limiting and retry mechanisms to handle rate limits and transient failures.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (io.ReadCloser, error) {
	return f.fetchWithRetry(ctx, url, nil)
}

// FetchPage fetches a listing page and returns its markup. A 403 response
// gets one more attempt with Referer and Origin set to the page's own
// origin, which clears the first tier of anti-automation checks.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	body, err := f.fetchWithRetry(ctx, pageURL, nil)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusForbidden {
			return "", err
		}
		origin := originForPage(pageURL)
		extra := http.Header{}
		extra.Set("Referer", origin+"/")
		extra.Set("Origin", origin)
		body, err = f.fetchWithRetry(ctx, pageURL, extra)
		if err != nil {
			return "", err
		}
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url string, extra http.Header) (io.ReadCloser, error) {
	var body io.ReadCloser
	var err error
	var retryCounter int
	var nextRetryWait time.Duration

	operation := func() error {
		if retryCounter >= defaultMaxRetryCount {
			err = fmt.Errorf("max retry count reached for URL: %s", url)
			return nil
		}
		if nextRetryWait > 0 {
			time.Sleep(nextRetryWait)
		}
		err = f.RateLimiter.Wait(ctx)
		if err != nil {
			return err // Could be a context cancellation or error in limiter
		}
		body, err = f.fetch(ctx, url, extra)
		if err != nil {
			retryCounter++
		}
		return err
	}

	notify := func(err error, d time.Duration) {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.TooManyRequests {
			nextRetryWait = time.Duration(fetchErr.RetryAfter) * time.Second
			if retryCounter > 0 {
				nextRetryWait *= time.Duration(retryCounter)
			}
		}
	}

	backoff.RetryNotify(operation, backoff.WithContext(f.newBackOff(), ctx), notify)

	return body, err
}

// fetch performs the actual HTTP GET request. Rate-limit responses surface
// as retryable FetchErrors honoring the Retry-After header; other 4xx
// responses are permanent and stop the backoff loop; 5xx responses stay
// retryable.
func (f *Fetcher) fetch(ctx context.Context, url string, extra http.Header) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	f.setRequestHeaders(req, extra)

	res, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusTooManyRequests {
		res.Body.Close()
		retryAfter := defaultRetryAfter
		if retryAfterStr := res.Header.Get("Retry-After"); retryAfterStr != "" {
			retryAfter, err = strconv.Atoi(retryAfterStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Retry-After header: %v", err)
			}
		}
		return nil, &FetchError{StatusCode: res.StatusCode, TooManyRequests: true, RetryAfter: retryAfter}
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		fetchErr := &FetchError{StatusCode: res.StatusCode}
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return nil, backoff.Permanent(fetchErr)
		}
		return nil, fetchErr
	}

	return res.Body, nil
}

// setRequestHeaders applies the browser-like header set. Accept-Encoding
// and Connection stay unset so the transport keeps handling compression
// and keep-alive itself.
func (f *Fetcher) setRequestHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
	for key, values := range extra {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
}

func (f *Fetcher) userAgent() string {
	if f.UserAgent != "" {
		return f.UserAgent
	}
	return browserUserAgents[rand.Intn(len(browserUserAgents))]
}

// newBackOff derives the backoff for a single request. Exponential configs
// carry per-run interval state, so concurrent fetches each get a fresh copy
// of the configured prototype instead of sharing one schedule.
func (f *Fetcher) newBackOff() backoff.BackOff {
	if expo, ok := f.BackoffCfg.(*backoff.ExponentialBackOff); ok {
		fresh := *expo
		return &fresh
	}
	return f.BackoffCfg
}

// makeDefaultBackoff creates and returns the default exponential backoff configuration.
func makeDefaultBackoff() backoff.BackOff {
	backOffCfg := backoff.NewExponentialBackOff()
	backOffCfg.MaxElapsedTime = defaultMaxElapsedTime
	backOffCfg.MaxInterval = defaultMaxInterval
	backOffCfg.Multiplier = 2.0

	return backOffCfg
}
