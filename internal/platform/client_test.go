package platform_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/platform"
)

func TestRateLimitedClient_MinInterval(t *testing.T) {
	t.Parallel()

	var hits []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits = append(hits, time.Now())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 50 * time.Millisecond
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	ctx := t.Context()

	resp1, err := client.Fetch(ctx, http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	resp1.Body.Close()

	resp2, err := client.Fetch(ctx, http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	resp2.Body.Close()

	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 40*time.Millisecond)
}

func TestRateLimitedClient_ForbiddenOn403(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0
	cfg.ForbiddenWindow = time.Minute
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	assert.False(t, client.IsForbidden())

	_, err := client.Fetch(t.Context(), http.MethodGet, server.URL, nil, nil)
	require.ErrorIs(t, err, platform.Forbidden)
	assert.True(t, client.IsForbidden())
}

func TestRateLimitedClient_ClearsForbiddenOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0
	cfg.ForbiddenWindow = time.Millisecond
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	_, err := client.Fetch(t.Context(), http.MethodGet, server.URL, nil, nil)
	require.Error(t, err)

	time.Sleep(5 * time.Millisecond)

	resp, err := client.Fetch(t.Context(), http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, client.IsForbidden())
}

func TestRateLimitedClient_CheckProfile(t *testing.T) {
	t.Parallel()

	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	require.NoError(t, client.CheckProfile(t.Context(), server.URL))

	status = http.StatusGone
	err := client.CheckProfile(t.Context(), server.URL)
	require.ErrorIs(t, err, platform.InvalidUser)
}
