package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hadsh/spamhunter/pkg/utils"
)

// ClientConfig controls the RateLimitedClient's pacing and timeouts.
type ClientConfig struct {
	// MinInterval is the minimum gap enforced between the start of
	// consecutive outbound requests (spec default: 30s).
	MinInterval time.Duration
	// ForbiddenWindow is how long is_forbidden() stays true after a 403.
	ForbiddenWindow time.Duration
	// ConnResetWindow is how long is_forbidden() stays true after a
	// connection reset.
	ConnResetWindow time.Duration
	// Timeout bounds both connect and full-request duration.
	Timeout time.Duration
}

// DefaultClientConfig returns the spec defaults: 30s spacing, 1h forbidden
// window on 403, 15m on connection reset, 120s request timeout.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MinInterval:     30 * time.Second,
		ForbiddenWindow: time.Hour,
		ConnResetWindow: 15 * time.Minute,
		Timeout:         120 * time.Second,
	}
}

// RateLimitedClient serializes outbound HTTP requests to the remote
// platform to exactly one in flight at a time, paced by a minimum
// inter-request interval, and tracks a forbidden-backoff window.
type RateLimitedClient struct {
	cfg              ClientConfig
	http             *http.Client
	limiter          *rate.Limiter
	logger           *zap.Logger
	forbiddenWindows prometheus.Counter

	mu             sync.Mutex
	inFlight       sync.Mutex
	forbiddenUntil time.Time
}

// NewRateLimitedClient builds a RateLimitedClient around a stdlib
// *http.Client, gated by a token-bucket limiter configured for the
// minimum-interval rule (burst 1, one token every MinInterval).
// forbiddenWindows is incremented every time a 403 or connection reset
// opens a backoff window; pass nil to skip that observation (e.g. in tests).
func NewRateLimitedClient(cfg ClientConfig, logger *zap.Logger, forbiddenWindows prometheus.Counter) *RateLimitedClient {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &RateLimitedClient{
		cfg:              cfg,
		http:             &http.Client{Timeout: cfg.Timeout},
		limiter:          rate.NewLimiter(limit, 1),
		logger:           logger.Named("platform.client"),
		forbiddenWindows: forbiddenWindows,
	}
}

// IsForbidden reports whether the client is currently within a backoff
// window triggered by a prior 403 or connection reset.
func (c *RateLimitedClient) IsForbidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Now().Before(c.forbiddenUntil)
}

func (c *RateLimitedClient) setForbidden(until time.Time) {
	c.mu.Lock()
	c.forbiddenUntil = until
	c.mu.Unlock()

	if c.forbiddenWindows != nil {
		c.forbiddenWindows.Inc()
	}
}

func (c *RateLimitedClient) clearForbidden() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.forbiddenUntil = time.Time{}
}

// Fetch issues method to url with the given headers/body, serialized against
// every other caller (single slot, spaced by MinInterval). Transient
// name-resolution failures retry without consuming an additional slot.
func (c *RateLimitedClient) Fetch(
	ctx context.Context, method, url string, headers http.Header, body io.Reader,
) (*http.Response, error) {
	c.inFlight.Lock()
	defer c.inFlight.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("platform: rate limiter wait: %w", err)
	}

	var resp *http.Response

	err := utils.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, method, url, body)
		if reqErr != nil {
			return backoff.Permanent(fmt.Errorf("platform: build request: %w", reqErr))
		}

		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		var doErr error

		resp, doErr = c.http.Do(req)
		if doErr == nil {
			return nil
		}

		var dnsErr *net.DNSError
		if errors.As(doErr, &dnsErr) && dnsErr.IsTemporary {
			c.logger.Warn("transient DNS resolution failure, retrying", zap.Error(doErr))
			return doErr
		}

		if isConnReset(doErr) {
			c.setForbidden(time.Now().Add(c.cfg.ConnResetWindow))
			return backoff.Permanent(fmt.Errorf("%w: connection reset: %w", Forbidden, doErr))
		}

		return backoff.Permanent(fmt.Errorf("platform: request failed: %w", doErr))
	}, utils.GetPlatformRetryOptions())
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		c.setForbidden(time.Now().Add(c.cfg.ForbiddenWindow))

		return nil, fmt.Errorf("%w: status 403 for %s", Forbidden, url)
	}

	c.clearForbidden()

	return resp, nil
}

// CheckProfile issues a HEAD request against a user's profile URL. It
// returns InvalidUser on 404/410 (the profile no longer exists), nil on any
// other 2xx/3xx, Forbidden (from Fetch) on 403, and HTTPError otherwise.
func (c *RateLimitedClient) CheckProfile(ctx context.Context, profileURL string) error {
	resp, err := c.Fetch(ctx, http.MethodHead, profileURL, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d for %s", InvalidUser, resp.StatusCode, profileURL)
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return nil
	default:
		return &HTTPError{Status: resp.StatusCode, URL: profileURL}
	}
}

func isConnReset(err error) bool {
	return strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "broken pipe")
}
