// Package suffix decomposes a hostname into every registrable parent name
// not present in the public suffix list, refreshing the list lazily and
// serving the last good copy on refresh failure.
package suffix

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultListURI is the canonical public suffix list location.
const DefaultListURI = "https://publicsuffix.org/list/public_suffix_list.dat"

// DefaultCacheDuration is how long a fetched list is considered fresh
// (spec §4.3 default: one week).
const DefaultCacheDuration = 7 * 24 * time.Hour

// Cache holds the public suffix list and serves hostname decomposition.
// The suffix fetch is not subject to the platform's rate limit, so Cache
// owns its own plain *http.Client.
type Cache struct {
	listURI       string
	cacheDuration time.Duration
	http          *http.Client
	logger        *zap.Logger

	mu       sync.Mutex
	suffixes map[string]struct{}
	expiry   time.Time
}

// New builds a Cache. Pass an empty listURI/zero cacheDuration to accept
// the defaults.
func New(listURI string, cacheDuration time.Duration, logger *zap.Logger) *Cache {
	if listURI == "" {
		listURI = DefaultListURI
	}

	if cacheDuration <= 0 {
		cacheDuration = DefaultCacheDuration
	}

	return &Cache{
		listURI:       listURI,
		cacheDuration: cacheDuration,
		http:          &http.Client{Timeout: 30 * time.Second},
		logger:        logger.Named("suffix"),
	}
}

func (c *Cache) refresh(ctx context.Context) error {
	c.mu.Lock()
	fresh := time.Now().Before(c.expiry)
	c.mu.Unlock()

	if fresh {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURI, nil)
	if err != nil {
		return fmt.Errorf("suffix: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("suffix: fetch list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("suffix: fetch list: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("suffix: read list: %w", err)
	}

	set := make(map[string]struct{})

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "//") || strings.Contains(line, "*") {
			continue
		}

		set[line] = struct{}{}
	}

	c.mu.Lock()
	c.suffixes = set
	c.expiry = time.Now().Add(c.cacheDuration)
	c.mu.Unlock()

	c.logger.Debug("refreshed public suffix list", zap.Int("entries", len(set)))

	return nil
}

// Split decomposes a fully qualified hostname into every accumulated
// candidate, starting from the TLD, that is not itself a public suffix.
// For "foo.bar.example.com" this returns
// ["example.com", "bar.example.com", "foo.bar.example.com"] — least
// specific first, matching the accumulation order the scoring model
// groups counts by.
func (c *Cache) Split(ctx context.Context, hostname string) []string {
	if err := c.refresh(ctx); err != nil {
		c.mu.Lock()
		haveList := c.suffixes != nil
		c.mu.Unlock()

		if !haveList {
			c.logger.Warn("no suffix list available, treating hostname as unsplit", zap.Error(err))
			return []string{hostname}
		}

		c.logger.Warn("failed to refresh suffix list, serving stale copy", zap.Error(err))
	}

	c.mu.Lock()
	suffixes := c.suffixes
	c.mu.Unlock()

	parts := strings.Split(hostname, ".")

	result := make([]string, 0, len(parts))

	var acc []string

	for i := len(parts) - 1; i >= 0; i-- {
		acc = append([]string{parts[i]}, acc...)
		candidate := strings.Join(acc, ".")

		if _, isSuffix := suffixes[candidate]; !isSuffix {
			result = append(result, candidate)
		}
	}

	return result
}
