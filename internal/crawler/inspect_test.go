package crawler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/metrics"
	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/suffix"
	"github.com/hadsh/spamhunter/internal/traits"
)

// newInspectCrawler wires a Crawler with a sqlmock-backed store, a trait
// registry with no traits registered, and a platform client pointed at a
// local httptest server standing in for the profile-existence check.
func newInspectCrawler(t *testing.T) (*Crawler, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	bunDB := bun.NewDB(sqlDB, pgdialect.New())
	st := store.NewWithDB(bunDB, zaptest.NewLogger(t))

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0

	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	return &Crawler{
		store:      st,
		client:     client,
		traits:     traits.NewRegistry(st, zaptest.NewLogger(t)),
		metrics:    metrics.NewWithRegisterer(prometheus.NewRegistry()),
		logger:     zaptest.NewLogger(t),
		deletedIDs: make(map[int64]struct{}),
	}, mock
}

func TestInspectUser_SkipsAlreadyDeletedUser(t *testing.T) {
	t.Parallel()

	c, mock := newInspectCrawler(t)
	c.markDeleted(5)

	require.NoError(t, c.InspectUser(t.Context(), platform.User{ID: 5}, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectUser_WithinIdempotenceWindowNoOps(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, mock := newInspectCrawler(t)

	recent := time.Now().Add(-time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM \"users\" (.+)id = 1\\b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "screen_name", "profile_url", "remote_created_at", "last_inspected_at"}).
			AddRow(int64(1), "someone", server.URL, time.Now(), recent))

	err := c.InspectUser(t.Context(), platform.User{ID: 1, URL: server.URL}, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectUser_ClassifiedSkipsUnclassifiedPipeline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, mock := newInspectCrawler(t)

	mock.ExpectQuery("SELECT (.+) FROM \"users\" (.+)id = 1\\b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "screen_name", "profile_url", "remote_created_at"}).
			AddRow(int64(1), "someone", server.URL, time.Now()))

	mock.ExpectQuery("SELECT (.+) FROM \"user_groups\"").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("legit"))

	mock.ExpectExec("UPDATE \"users\"").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := c.InspectUser(t.Context(), platform.User{ID: 1, URL: server.URL}, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanLinks_SkipsLinksWithEmptyTitleOrURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"page":1,"last_page":1,"links":[
			{"title":"","url":"https://example.com/empty-title"},
			{"title":"no url here","url":""},
			{"title":"My Blog","url":"https://example.com/blog"}
		]}`)
	}))
	defer server.Close()

	c, mock := newInspectCrawler(t)
	c.api = platform.NewAPI(platform.APIConfig{BaseURI: server.URL}, c.client, zaptest.NewLogger(t))
	c.suffix = suffix.New("http://127.0.0.1:1/invalid", time.Hour, zaptest.NewLogger(t))

	mock.ExpectExec("INSERT INTO \"user_links\" (.+)\\(42, 'https://example\\.com/blog', 'My Blog'\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	var tallied []string

	hostFreq := make(map[string]int64)
	match := false

	err := c.scanLinks(t.Context(), 42,
		func(s string) { tallied = append(tallied, s) },
		hostFreq, &match)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, []string{"My Blog"}, tallied)
	require.True(t, match)
}
