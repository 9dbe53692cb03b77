package suffix_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/suffix"
)

func TestCache_Split(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("// comment\ncom\nco.uk\n*.example.com\n"))
	}))
	defer server.Close()

	cache := suffix.New(server.URL, time.Hour, zaptest.NewLogger(t))

	result := cache.Split(t.Context(), "foo.bar.example.com")
	assert.Equal(t, []string{"example.com", "bar.example.com", "foo.bar.example.com"}, result)
}

func TestCache_Split_CoUK(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("com\nuk\nco.uk\n"))
	}))
	defer server.Close()

	cache := suffix.New(server.URL, time.Hour, zaptest.NewLogger(t))

	result := cache.Split(t.Context(), "shop.example.co.uk")
	assert.Equal(t, []string{"example.co.uk", "shop.example.co.uk"}, result)
}

func TestCache_Split_ServesStaleOnRefreshFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte("com\n"))
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := suffix.New(server.URL, time.Millisecond, zaptest.NewLogger(t))

	first := cache.Split(t.Context(), "example.com")
	require.Equal(t, []string{"example.com"}, first)

	time.Sleep(5 * time.Millisecond)

	second := cache.Split(t.Context(), "example.com")
	assert.Equal(t, []string{"example.com"}, second)
	assert.GreaterOrEqual(t, calls, 2)
}
