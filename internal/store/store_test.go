package store

import (
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap/zaptest"
)

// newMockStore wires a Store to a sqlmock-backed bun.DB so the store's
// query-building can be exercised without a live Postgres connection.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	bunDB := bun.NewDB(sqlDB, pgdialect.New())

	return NewWithDB(bunDB, zaptest.NewLogger(t)), mock
}

func TestAssignGroup_UnknownGroupSkipsQuery(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	err := s.AssignGroup(t.Context(), 1, "not_a_real_group")
	require.ErrorIs(t, err, ErrUnknownGroup)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserWordCount_NonPositiveDeletes(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM \"user_words\" (.+)user_id = 7(.+)word_id = 3\\b").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetUserWordCount(t.Context(), 7, 3, 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserWordCount_PositiveUpserts(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO \"user_words\" (.+)\\(7, 3, 5\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetUserWordCount(t.Context(), 7, 3, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyWordVerdict_AddsSignedDelta(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE \"words\" (.+)score = score \\+ -4(.+)count = count \\+ 4(.+)id = 9\\b").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ApplyWordVerdict(t.Context(), 9, 4, -1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWord_NotFoundWrapsErrNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM \"words\" (.+)id = 42\\b").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetWord(t.Context(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
