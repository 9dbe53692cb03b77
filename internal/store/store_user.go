package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hadsh/spamhunter/internal/store/models"
)

// UserFields is the set of mutable User columns accepted by UpsertUser.
type UserFields struct {
	ID            int64
	ScreenName    string
	ProfileURL    string
	AvatarID      *int64
	RemoteCreated time.Time
}

// GetUser fetches a user by id. Returns ErrNotFound if absent.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)

	err := s.db.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, "get user %d", id)
	}

	return user, nil
}

// UpsertUser inserts or updates a User row, preserving LastInspected unless
// the caller already set it via SetLastInspected.
func (s *Store) UpsertUser(ctx context.Context, fields UserFields) error {
	user := &models.User{
		ID:            fields.ID,
		ScreenName:    fields.ScreenName,
		ProfileURL:    fields.ProfileURL,
		AvatarID:      fields.AvatarID,
		RemoteCreated: fields.RemoteCreated,
	}

	_, err := s.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("screen_name = EXCLUDED.screen_name").
		Set("profile_url = EXCLUDED.profile_url").
		Set("avatar_id = EXCLUDED.avatar_id").
		Set("remote_created_at = EXCLUDED.remote_created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", fields.ID, err)
	}

	return nil
}

// SetLastInspected stamps a User's last_inspected_at to now. Monotonically
// nondecreasing per spec §3 — callers only invoke this going forward.
func (s *Store) SetLastInspected(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_inspected_at = ?", at).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set last_inspected_at for user %d: %w", userID, err)
	}

	return nil
}

// DeleteUser removes a user and, via ON DELETE CASCADE foreign keys, every
// dependent row (spec §3's deletion lifecycle).
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.User)(nil)).Where("id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}

	return nil
}

// GetUserDetail fetches a user's free-text profile fields.
func (s *Store) GetUserDetail(ctx context.Context, userID int64) (*models.UserDetail, error) {
	detail := new(models.UserDetail)

	err := s.db.NewSelect().Model(detail).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, "get user detail for %d", userID)
	}

	return detail, nil
}

// GetUserLinks fetches every outbound link a user has published.
func (s *Store) GetUserLinks(ctx context.Context, userID int64) ([]models.UserLink, error) {
	var links []models.UserLink

	if err := s.db.NewSelect().Model(&links).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get user links for %d: %w", userID, err)
	}

	return links, nil
}

// UserDetailFields is the set of mutable UserDetail columns.
type UserDetailFields struct {
	AboutMe      string
	WhoAmI       string
	WantToDo     string
	Location     string
	ProjectCount int
}

// UpsertUserDetail inserts or updates a user's UserDetail row.
func (s *Store) UpsertUserDetail(ctx context.Context, userID int64, fields UserDetailFields) error {
	detail := &models.UserDetail{
		UserID:       userID,
		AboutMe:      fields.AboutMe,
		WhoAmI:       fields.WhoAmI,
		WantToDo:     fields.WantToDo,
		Location:     fields.Location,
		ProjectCount: fields.ProjectCount,
	}

	_, err := s.db.NewInsert().
		Model(detail).
		On("CONFLICT (user_id) DO UPDATE").
		Set("about_me = EXCLUDED.about_me").
		Set("who_am_i = EXCLUDED.who_am_i").
		Set("what_i_would_like_to_do = EXCLUDED.what_i_would_like_to_do").
		Set("location = EXCLUDED.location").
		Set("project_count = EXCLUDED.project_count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user detail for %d: %w", userID, err)
	}

	return nil
}

// UpsertUserLink inserts or updates a UserLink row.
func (s *Store) UpsertUserLink(ctx context.Context, userID int64, url, title string) error {
	link := &models.UserLink{UserID: userID, URL: url, Title: title}

	_, err := s.db.NewInsert().
		Model(link).
		On("CONFLICT (user_id, url) DO UPDATE").
		Set("title = EXCLUDED.title").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user link for %d: %w", userID, err)
	}

	return nil
}

// IncrementUserToken adds count to the per-user count of a matched
// suspicious substring, inserting the row with that count on first match.
func (s *Store) IncrementUserToken(ctx context.Context, userID int64, token string, count int64) error {
	row := &models.UserToken{UserID: userID, Token: token, Count: int(count)}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, token) DO UPDATE").
		Set("count = user_tokens.count + EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment user token for %d: %w", userID, err)
	}

	return nil
}

func wrapNotFound(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	prefix := fmt.Sprintf(format, args...)
	if isNoRows(err) {
		return fmt.Errorf("%s: %w", prefix, ErrNotFound)
	}

	return fmt.Errorf("%s: %w", prefix, err)
}
