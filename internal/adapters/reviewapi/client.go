// internal/adapters/reviewapi/client.go
package reviewapi

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

const (
	DefaultTimeout = 30 * time.Second
	service        = "review_api"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrUnauthorized = errors.New("review api: unauthorized")
	ErrForbidden    = errors.New("review api: forbidden")
	ErrBadPayload   = errors.New("review api: unexpected payload")
)

// Options tune the transport. Zero values mean: 30s timeout, 10 rps,
// no retries.
type Options struct {
	Timeout time.Duration
	RPS     int
	Retries int
}

type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

func New(base string, o Options) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("review api base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("review api base URL: %w", err)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return &Client{
		base:    base,
		hc:      &http.Client{Timeout: o.Timeout},
		rl:      rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
		retries: o.Retries,
	}, nil
}

// ---- Read paths ----

func (c *Client) GetRecentReviews(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out []map[string]any
	return out, c.do(ctx, http.MethodGet, "/reviews/recent", q, &out)
}

func (c *Client) GetPendingReviews(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	return out, c.do(ctx, http.MethodGet, "/reviews/pending", nil, &out)
}

func (c *Client) GetReview(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/reviews/"+url.PathEscape(id), nil, &out)
}

func (c *Client) GetStats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	return out, c.do(ctx, http.MethodGet, "/stats", nil, &out)
}

func (c *Client) GetSentimentTrend(ctx context.Context, days int) (map[string]map[string]int, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	var out map[string]map[string]int
	return out, c.do(ctx, http.MethodGet, "/stats/sentiment-trend", q, &out)
}

func (c *Client) GetRecentLogs(ctx context.Context, limit int) (any, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var out any
	return out, c.do(ctx, http.MethodGet, "/logs/recent", q, &out)
}

// ---- Job triggers (never retried) ----

func (c *Client) TriggerScrape(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodPost, "/scrape", nil, &out)
}

func (c *Client) TriggerReplyGeneration(ctx context.Context, maxCount int) (map[string]any, error) {
	q := url.Values{}
	q.Set("max_count", strconv.Itoa(maxCount))
	var out map[string]any
	return out, c.do(ctx, http.MethodPost, "/generate-replies", q, &out)
}

func (c *Client) RegenerateReply(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodPost, "/reviews/"+url.PathEscape(id)+"/regenerate-reply", nil, &out)
}

// ---- Internals ----

// do performs one call with client-side rate limiting and JSON decode into
// out. GETs are retried on 429 and transient 5xx up to c.retries times,
// honoring Retry-After when provided; POSTs trigger jobs and are sent once.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		last := i == attempts-1

		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "review-dashboard/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, path, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			if !last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, path, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %s %s: %v", ErrBadPayload, method, path, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%s %s: remote %d", method, path, resp.StatusCode)
			if !last && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%s %s: bad status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
