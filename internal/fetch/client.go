package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Default transport settings.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimitWait = 5 * time.Second
	DefaultMaxRetries    = 60
	DefaultMaxBodySize   = 16 * 1024 * 1024 // 16MB
	DefaultUserAgent     = "threadcount/1.0"
)

// RateLimitHook is called before every wait caused by a 429 response.
// attempt counts requests made for the URL so far, starting at 1.
type RateLimitHook func(url string, attempt int)

// Response is a successfully fetched page.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header.
	ContentType string

	// Body is the response body.
	Body []byte

	// Attempts is the number of requests made, including 429 retries.
	Attempts int

	// Duration is the time taken by the final attempt.
	Duration time.Duration
}

// Client fetches pages over HTTP.
// It is safe for concurrent use, though the delay between requests is
// shared by all callers.
type Client struct {
	// http is the underlying resty client.
	http *resty.Client

	// limiter enforces the delay between requests.
	limiter *rate.Limiter

	// maxBodySize is the largest body accepted, in bytes.
	maxBodySize int64
}

type options struct {
	timeout       time.Duration
	delay         time.Duration
	rateLimitWait time.Duration
	maxRetries    int
	userAgent     string
	maxBodySize   int64
	proxy         string
	onRateLimited RateLimitHook
	transport     http.RoundTripper
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the timeout of a single request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithDelay sets the minimum time between two requests. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithRateLimitWait sets the wait after a 429 response.
func WithRateLimitWait(d time.Duration) Option {
	return func(o *options) {
		o.rateLimitWait = d
	}
}

// WithMaxRetries sets how often a 429 response is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithMaxBodySize sets the largest response body accepted.
func WithMaxBodySize(size int64) Option {
	return func(o *options) {
		o.maxBodySize = size
	}
}

// WithProxy routes requests through a proxy, e.g. "socks5://127.0.0.1:9050".
// An empty string disables the proxy.
func WithProxy(rawURL string) Option {
	return func(o *options) {
		o.proxy = rawURL
	}
}

// WithOnRateLimited registers a hook called before each 429 wait.
func WithOnRateLimited(hook RateLimitHook) Option {
	return func(o *options) {
		o.onRateLimited = hook
	}
}

// WithTransport replaces the base transport. Mostly useful in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// NewClient creates a Client.
// It validates the proxy URL but does not connect to anything.
func NewClient(opts ...Option) (*Client, error) {
	o := &options{
		timeout:       DefaultTimeout,
		rateLimitWait: DefaultRateLimitWait,
		maxRetries:    DefaultMaxRetries,
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(o)
	}

	base, err := baseTransport(o)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if o.delay > 0 {
		limit = rate.Every(o.delay)
	}

	c := &Client{
		limiter:     rate.NewLimiter(limit, 1),
		maxBodySize: o.maxBodySize,
	}

	c.http = resty.New().
		SetTransport(&limitTransport{base: base, limit: o.maxBodySize}).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", o.userAgent).
		SetRetryCount(o.maxRetries).
		SetRetryWaitTime(o.rateLimitWait).
		SetRetryMaxWaitTime(o.rateLimitWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && r.StatusCode() == http.StatusTooManyRequests
		}).
		AddRetryHook(func(r *resty.Response, _ error) {
			if o.onRateLimited != nil && r != nil && r.Request != nil {
				o.onRateLimited(r.Request.URL, r.Request.Attempt)
			}
		}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return c.limiter.Wait(r.Context())
		})

	return c, nil
}

// baseTransport builds the transport requests go through before the body
// limit is applied.
func baseTransport(o *options) (http.RoundTripper, error) {
	if o.transport != nil {
		return o.transport, nil
	}
	if o.proxy == "" {
		return http.DefaultTransport.(*http.Transport).Clone(), nil //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	}

	u, err := ParseProxyURL(o.proxy)
	if err != nil {
		return nil, err
	}
	if isSOCKS(u) {
		return socksTransport(u)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.Proxy = http.ProxyURL(u)
	return transport, nil
}

// Get fetches url. Non-2xx responses are returned as *StatusError.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode()}
	}

	body := resp.Body()
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", url, ErrBodyTooLarge, c.maxBodySize)
	}

	finalURL := url
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
		Attempts:    resp.Request.Attempt,
		Duration:    resp.Time(),
	}, nil
}

// limitTransport wraps an http.RoundTripper so that at most limit+1 bytes
// of every response body are read.
type limitTransport struct {
	base  http.RoundTripper
	limit int64
}

// RoundTrip implements http.RoundTripper.
func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &limitedBody{
		Reader: io.LimitReader(resp.Body, t.limit+1),
		Closer: resp.Body,
	}
	return resp, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
