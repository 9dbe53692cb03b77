package crawler

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/metrics"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/traits"
)

func TestVerdict_DirectionAndGroup(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, VerdictLegit.direction())
	require.Equal(t, -1, VerdictSuspect.direction())
	require.Equal(t, "legit", VerdictLegit.group())
	require.Equal(t, "suspect", VerdictSuspect.group())
}

// newMockCrawler builds a Crawler whose store talks to a sqlmock-backed
// bun.DB, with an empty trait registry (no traits registered), so
// ApplyVerdict's orchestration can be exercised without a live database.
func newMockCrawler(t *testing.T) (*Crawler, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	bunDB := bun.NewDB(sqlDB, pgdialect.New())
	st := store.NewWithDB(bunDB, zaptest.NewLogger(t))

	return &Crawler{
		store:   st,
		traits:  traits.NewRegistry(st, zaptest.NewLogger(t)),
		metrics: metrics.NewWithRegisterer(prometheus.NewRegistry()),
		logger:  zaptest.NewLogger(t),
	}, mock
}

func TestApplyVerdict_Suspect(t *testing.T) {
	t.Parallel()

	c, mock := newMockCrawler(t)

	mock.ExpectQuery("SELECT (.+) FROM \"users\" (.+)id = 1\\b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "screen_name", "profile_url", "remote_created_at"}).
			AddRow(int64(1), "someone", "https://example.com/someone", time.Now()))

	mock.ExpectBegin()

	for _, name := range []string{"auto_legit", "auto_suspect", "legit", "suspect"} {
		mock.ExpectQuery("SELECT (.+) FROM \"groups\" (.+)name = '" + name + "'").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), name))
		mock.ExpectExec("DELETE FROM \"user_groups\"").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	mock.ExpectQuery("SELECT (.+) FROM \"groups\" (.+)name = 'suspect'").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "suspect"))
	mock.ExpectExec("INSERT INTO \"user_groups\"").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT (.+) FROM \"user_words\"").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "word_id", "count"}))
	mock.ExpectQuery("SELECT (.+) FROM \"user_hostnames\"").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "hostname_id", "count"}))
	mock.ExpectQuery("SELECT (.+) FROM \"user_word_adjacents\"").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "predecessor_id", "successor_id", "count"}))

	mock.ExpectExec("DELETE FROM \"deferred_users\"").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	require.NoError(t, c.ApplyVerdict(t.Context(), 1, VerdictSuspect))
	require.NoError(t, mock.ExpectationsWereMet())
}
