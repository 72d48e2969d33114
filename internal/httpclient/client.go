package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AD7six/shop-images/internal/config"
	"github.com/AD7six/shop-images/internal/logging"
)

// Client wraps an HTTP client with a concurrency limiter and coordinated
// retry/pausing on 429s.
type Client struct {
	UserAgent      string
	UnderlyingHTTP *http.Client

	// concurrency limiter; a slot is held until the response has been handled
	sem chan struct{}

	// max retries for errors (including 5xx) and 429s
	retries int

	// If we receive a 429 all requests wait until pauseUntil
	pause      sync.Mutex
	pauseUntil time.Time
}

const (
	defaultMaxConcurrency = 8
	defaultRetries        = 3
	defaultHTTPTimeout    = 60 * time.Second
)

// New returns a client configured from settings, allowing at most
// maxConcurrent requests in flight.
func New(settings *config.Settings, maxConcurrent int) *Client {
	return newClient(settings.UserAgent, maxConcurrent, settings.HTTPRetries, settings.HTTPTimeout)
}

func newClient(userAgent string, maxConcurrent, retries int, timeout time.Duration) *Client {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrency
	}
	if retries < 0 {
		retries = defaultRetries
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		UserAgent:      userAgent,
		UnderlyingHTTP: &http.Client{Timeout: timeout},
		sem:            make(chan struct{}, maxConcurrent),
		retries:        retries,
	}
}

// Fetch performs a GET request and passes the response to handle. The
// concurrency slot is held until handle returns, so streaming the body counts
// against the limit. The response body is closed by Fetch.
func (c *Client) Fetch(ctx context.Context, url string, handle func(*http.Response) error) error {
	// Acquire concurrency slot
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return handle(resp)
}

// get runs the retry loop for a single URL.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		// If globally paused due to 429, wait it out
		if err := c.waitIfPaused(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		resp, err := c.UnderlyingHTTP.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			if attempt < c.retries {
				logging.Logger.Debug("request failed, retrying", "url", url, "attempt", attempt+1, "error", err)
				if err := sleep(ctx, backoffDuration(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		// Handle 429: set global pause, then retry after waiting
		if resp.StatusCode == http.StatusTooManyRequests {
			// Determine wait duration from Retry-After (seconds) or fall back to 1s
			wait := parseRetryAfter(resp)
			closeBody(resp)

			c.setPause(wait)

			if attempt < c.retries {
				logging.Logger.Debug("rate limited, retrying", "url", url, "after", wait)
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			return nil, &rateLimitedError{after: wait}
		}

		// Retry transient server errors (5xx). Do not retry other 4xx.
		if resp.StatusCode >= 500 && attempt < c.retries {
			closeBody(resp)
			logging.Logger.Debug("server error, retrying", "url", url, "status", resp.Status, "attempt", attempt+1)
			if err := sleep(ctx, backoffDuration(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logging.Logger.Warn("failed to close response body", "error", err)
	}
}

// Backoff: 500ms, 1s, 2s, capped
func backoffDuration(attempt int) time.Duration {
	d := 500 * time.Millisecond
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > 5*time.Second {
			d = 5 * time.Second
			break
		}
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) waitIfPaused(ctx context.Context) error {
	for {
		c.pause.Lock()
		now := time.Now()
		until := c.pauseUntil
		c.pause.Unlock()
		if until.IsZero() || !now.Before(until) {
			return nil
		}
		if err := sleep(ctx, until.Sub(now)); err != nil {
			return err
		}
	}
}

func (c *Client) setPause(d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	c.pause.Lock()
	// If there is already a longer pause in place, keep it
	proposed := time.Now().Add(d)
	if proposed.After(c.pauseUntil) {
		c.pauseUntil = proposed
	}
	c.pause.Unlock()
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return time.Second
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		// Could be a HTTP date; ignore for simplicity
	}
	return time.Second
}

type rateLimitedError struct {
	after time.Duration
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by server (retry after %v)", e.after)
}
