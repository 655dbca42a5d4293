// file: internal/fetch/fetch.go
// version: 1.2.0
// guid: 1f8c4e6a-3d9b-4a7c-8e5f-2b6d9a4c7e1b

package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "iran-memorial-enricher/2.0"
	maxResponseBytes  = 32 << 20 // 32 MiB, source dumps stay well under
)

// Client fetches source documents with rate limiting, bounded retries,
// and an on-disk response cache keyed by URL hash. Memorial sources are
// small NGO sites; politeness matters more than throughput.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	cacheDir   string // "" disables caching
	maxRetries int
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithCacheDir enables the disk cache rooted at dir.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a Client. Default: 1 request/second, 3 retries, no cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		maxRetries: defaultMaxRetries,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *Client) cachePath(url string) string {
	return filepath.Join(c.cacheDir, cacheKey(url))
}

func (c *Client) readCache(url string) ([]byte, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.cachePath(url))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Client) writeCache(url string, data []byte) {
	if c.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		log.Printf("[WARN] fetch: cache dir: %v", err)
		return
	}
	tmp := c.cachePath(url) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("[WARN] fetch: cache write: %v", err)
		return
	}
	if err := os.Rename(tmp, c.cachePath(url)); err != nil {
		log.Printf("[WARN] fetch: cache rename: %v", err)
	}
}

// Get fetches a URL, consulting the cache first. Retries transient
// failures (network errors, 429, 5xx) with exponential backoff; 4xx
// other than 429 fails immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.readCache(url); ok {
		log.Printf("[DEBUG] fetch: cache hit %s", url)
		return data, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			log.Printf("[WARN] fetch: retry %d/%d for %s in %s: %v",
				attempt, c.maxRetries, url, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		data, retryable, err := c.doOnce(ctx, url)
		if err == nil {
			c.writeCache(url, data)
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("fetch %s: retries exhausted: %w", url, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, err
	}
	return data, false, nil
}
