package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idle hosts lose their limiter after this long
const hostLimiterTTL = 10 * time.Minute

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page is a fetched HTML document. URL is the address after redirects.
type Page struct {
	URL  string
	Body string
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

type Client struct {
	httpClient   HTTPClient
	rateLimit    rate.Limit
	limiters     *gocache.Cache
	limitersMu   sync.Mutex
	userAgent    string
	maxBodyBytes int64
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    "Mozilla/5.0 (compatible; autoapply/1.0)",
		maxBodyBytes: 2 << 20,
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

// SetRateLimit limits requests to each host separately. Different hosts never wait on each other.
func (c *Client) SetRateLimit(maxRequestsPerSecond float64) {
	c.rateLimit = rate.Limit(maxRequestsPerSecond)
	c.limiters = gocache.New(hostLimiterTTL, 2*hostLimiterTTL)
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters.Get(host)
	if !ok {
		limiter = rate.NewLimiter(c.rateLimit, 1)
	}
	c.limiters.Set(host, limiter, gocache.DefaultExpiration)
	return limiter.(*rate.Limiter)
}

func (c *Client) SetUserAgent(userAgent string) {
	c.userAgent = userAgent
}

func (c *Client) SetMaxBodyBytes(n int64) {
	c.maxBodyBytes = n
}

// Exists probes url with HEAD, falling back to GET when the server rejects HEAD.
func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = c.do(ctx, http.MethodGet, url)
		if err != nil {
			return false, err
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Fetch returns the body of a successful GET. Bodies are truncated to the configured limit.
func (c *Client) Fetch(ctx context.Context, url string) (Page, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("error reading response body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Page{URL: finalURL, Body: string(body)}, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	if c.limiters != nil {
		if err := c.limiterFor(url).Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	return resp, nil
}
