package traits_test

import (
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
	"github.com/hadsh/spamhunter/internal/traits"
)

func TestObservation_WeightedScore(t *testing.T) {
	t.Parallel()

	zero := traits.Observation{AggScore: 5, AggCount: 0, Weight: 2}
	assert.InDelta(t, 0, zero.WeightedScore(), 0)

	scored := traits.Observation{AggScore: 10, AggCount: 4, Weight: 2}
	assert.InDelta(t, 5, scored.WeightedScore(), 1e-9)
}

func TestSpamName_Assess(t *testing.T) {
	t.Parallel()

	row := &models.Trait{ID: 1, Class: "spamname", Weight: 1, Score: -3, Count: 6}
	s := traits.SpamName{}

	obs, err := s.Assess(t.Context(), nil, row, &models.User{ScreenName: "A1bcd"})
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.True(t, obs.IsSingleton)
	assert.Equal(t, int64(1), obs.TraitID)

	obs, err = s.Assess(t.Context(), nil, row, &models.User{ScreenName: "normalname"})
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestAvatarHash_Assess_NoAvatarSkips(t *testing.T) {
	t.Parallel()

	trait := traits.NewSHA512AvatarTrait()
	row := &models.Trait{ID: 1, Class: "avatar.sha512", Weight: 1}

	obs, err := trait.Assess(t.Context(), nil, row, &models.User{ScreenName: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestAllTraits_ClassesAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for _, tr := range traits.AllTraits() {
		_, dup := seen[tr.Class()]
		assert.False(t, dup, "duplicate trait class %q", tr.Class())
		seen[tr.Class()] = struct{}{}
	}

	assert.Len(t, seen, 7)
}

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	bunDB := bun.NewDB(sqlDB, pgdialect.New())

	return store.NewWithDB(bunDB, zaptest.NewLogger(t)), mock
}

func TestAboutMeLink_Assess_FiresOnMatchingLinkTitle(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM \"user_details\" (.+)user_id = 9\\b").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "about_me"}).AddRow(int64(9), "buy cheap stuff here"))

	mock.ExpectQuery("SELECT (.+) FROM \"user_links\" (.+)user_id = 9\\b").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "url", "title"}).
			AddRow(int64(9), "https://example.com", "buy cheap stuff here"))

	row := &models.Trait{ID: 2, Class: "aboutmelink", Weight: 1}

	obs, err := traits.AboutMeLink{}.Assess(t.Context(), st, row, &models.User{ID: 9})
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.True(t, obs.IsSingleton)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAboutMeLink_Assess_NoDetailIsNotAnError(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM \"user_details\" (.+)user_id = 9\\b").
		WillReturnError(sql.ErrNoRows)

	row := &models.Trait{ID: 2, Class: "aboutmelink", Weight: 1}

	obs, err := traits.AboutMeLink{}.Assess(t.Context(), st, row, &models.User{ID: 9})
	require.NoError(t, err)
	assert.Nil(t, obs)
	require.NoError(t, mock.ExpectationsWereMet())
}
