// Package httpcache provides provider HTTP calls with response caching, retries
// and per-host pacing.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
	"golang.org/x/time/rate"
)

// UserAgent identifies provider requests.
const UserAgent = "dossier/1.0 (+https://github.com/codeGROOVE-dev/dossier)"

// maxBody caps how much of a provider response is read.
const maxBody = 4 << 20

// Stats counts cache hits and misses since process start.
type Stats struct {
	Hits   int64
	Misses int64
}

var hits, misses atomic.Int64

// CacheStats returns the process-wide counters.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

func recordHit()  { hits.Add(1) }
func recordMiss() { misses.Add(1) }

// Cacher allows external cache implementations to be shared across adapters.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for provider response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a Cache persisted under the user cache directory.
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "dossier"))
}

// NewNull creates a Cache with no persistence (all gets miss, all sets discard).
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc, ttl: 0}
}

// NewWithPath creates a Cache persisted at cachePath.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("dossier", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key hashes arbitrary request identity into a cache key.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

// HTTPError represents a non-200 provider response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, redactURL(e.URL))
}

// Fetch executes req and returns the response body.
//
// Successful responses and permanent HTTP errors are cached when cache is
// non-nil; concurrent identical requests share a single upstream call.
// Transient failures are retried and never cached.
func Fetch(ctx context.Context, cache Cacher, client *http.Client, req *http.Request, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	if cache == nil {
		recordMiss()
		return doFetch(ctx, client, req, logger)
	}

	cacheKey, err := requestKey(req)
	if err != nil {
		return nil, err
	}

	var wasFetched bool
	data, err := cache.GetSet(ctx, cacheKey, func(ctx context.Context) ([]byte, error) {
		wasFetched = true
		recordMiss()
		logger.DebugContext(ctx, "cache miss", "url", redactURL(req.URL.String()))
		body, fetchErr := doFetch(ctx, client, req, logger)
		if fetchErr != nil {
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) && !isRetryableStatus(httpErr.StatusCode) {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			return nil, fetchErr
		}
		return body, nil
	}, cache.TTL())

	if !wasFetched {
		recordHit()
		logger.DebugContext(ctx, "cache hit", "url", redactURL(req.URL.String()))
	}
	if err != nil {
		return nil, err
	}

	if errCode, found := strings.CutPrefix(string(data), "ERROR:"); found {
		code, _ := strconv.Atoi(errCode) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: code, URL: req.URL.String()}
	}

	return data, nil
}

// requestKey derives a cache key from method, URL and body.
func requestKey(req *http.Request) (string, error) {
	var body []byte
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return "", fmt.Errorf("read request body: %w", err)
		}
		body, err = io.ReadAll(rc)
		_ = rc.Close() //nolint:errcheck // in-memory body
		if err != nil {
			return "", fmt.Errorf("read request body: %w", err)
		}
	}
	return Key(req.Method, req.URL.String(), string(body)), nil
}

func doFetch(ctx context.Context, client *http.Client, req *http.Request, logger *slog.Logger) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			globalRateLimiter.Wait(ctx, req.URL.String(), logger)

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, retry.Unrecoverable(err)
				}
				req.Body = body
			}

			resp, err := client.Do(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			}

			var buf bytes.Buffer
			if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBody)); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx, "retrying HTTP request", "attempt", n+1, "url", redactURL(req.URL.String()), "error", err)
		}),
	)
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableStatus(httpErr.StatusCode)
	}
	return true
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// redactURL drops query parameters that commonly carry credentials.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"api_key", "access_key", "key", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Rate limiting.
var globalRateLimiter = newDomainRateLimiter(250 * time.Millisecond)

// SetMinDelay changes the minimum spacing between requests to the same host.
func SetMinDelay(d time.Duration) {
	globalRateLimiter.setMinDelay(d)
}

// domainRateLimiter keeps one single-token limiter per host.
type domainRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	limiters map[string]*rate.Limiter
}

func newDomainRateLimiter(minDelay time.Duration) *domainRateLimiter {
	return &domainRateLimiter{limit: every(minDelay), limiters: make(map[string]*rate.Limiter)}
}

func every(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

func (r *domainRateLimiter) setMinDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = every(d)
	for _, l := range r.limiters {
		l.SetLimit(r.limit)
	}
}

func (r *domainRateLimiter) limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		l = rate.NewLimiter(r.limit, 1)
		r.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to rawURL's host may start or ctx ends.
func (r *domainRateLimiter) Wait(ctx context.Context, rawURL string, logger *slog.Logger) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return
	}

	res := r.limiter(u.Host).Reserve()
	wait := res.Delay()
	if wait <= 0 {
		return
	}
	logger.DebugContext(ctx, "rate limit pause", "domain", u.Host, "wait", wait)
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		res.Cancel()
	}
}
