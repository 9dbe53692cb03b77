package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hadsh/spamhunter/internal/store/models"
)

// EnqueueNew adds a user id to the NewUser inbox (idempotent).
func (s *Store) EnqueueNew(ctx context.Context, userID int64) error {
	_, err := s.db.NewInsert().
		Model(&models.NewUser{UserID: userID}).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue new user %d: %w", userID, err)
	}

	return nil
}

// EnqueueNewBulk adds many user ids to the NewUser inbox in one statement,
// ignoring conflicts (spec §4.8.1 step 5: "bulk-insert the rest ... ignore
// conflicts").
func (s *Store) EnqueueNewBulk(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]*models.NewUser, len(userIDs))
	for i, id := range userIDs {
		rows[i] = &models.NewUser{UserID: id}
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to bulk enqueue new users: %w", err)
	}

	return nil
}

// FilterUnknownIDs returns the subset of ids that are neither an existing
// User nor already present in NewUser (spec §4.8.1 step 5).
func (s *Store) FilterUnknownIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var known []int64

	err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Union(
			s.db.NewSelect().
				Model((*models.NewUser)(nil)).
				ColumnExpr("user_id AS id").
				Where("user_id IN (?)", bun.In(ids)),
		).
		Scan(ctx, &known)
	if err != nil {
		return nil, fmt.Errorf("failed to filter known ids: %w", err)
	}

	knownSet := make(map[int64]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	unknown := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, ok := knownSet[id]; !ok {
			unknown = append(unknown, id)
		}
	}

	return unknown, nil
}

// DequeueNew returns up to limit pending user ids in descending id order
// (spec §4.8.3: "take up to 50 rows from NewUser in descending ID order").
func (s *Store) DequeueNew(ctx context.Context, limit int) ([]int64, error) {
	var rows []*models.NewUser

	err := s.db.NewSelect().Model(&rows).Order("user_id DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue new users: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}

	return ids, nil
}

// RemoveNew deletes a NewUser row once its id exists as a User (spec §4.8.3:
// "Delete NewUser rows whose IDs now exist as User").
func (s *Store) RemoveNew(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.NewUser)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove new user %d: %w", userID, err)
	}

	return nil
}

// Defer writes or advances a DeferredUser row.
func (s *Store) Defer(ctx context.Context, userID int64, inspectAt time.Time, inspections int) error {
	row := &models.DeferredUser{UserID: userID, InspectAt: inspectAt, Inspections: inspections}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("inspect_at = EXCLUDED.inspect_at").
		Set("inspections = EXCLUDED.inspections").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to defer user %d: %w", userID, err)
	}

	return nil
}

// Undefer removes any DeferredUser row for a user.
func (s *Store) Undefer(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.DeferredUser)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to undefer user %d: %w", userID, err)
	}

	return nil
}

// GetDeferred returns a user's DeferredUser row, if any.
func (s *Store) GetDeferred(ctx context.Context, userID int64) (*models.DeferredUser, error) {
	row := new(models.DeferredUser)
	if err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get deferred user %d", userID)
	}

	return row, nil
}

// ListDeferred returns up to limit eligible DeferredUser rows ordered by
// inspect_at ascending (spec §4.8.4).
func (s *Store) ListDeferred(ctx context.Context, maxInspections, limit int) ([]*models.DeferredUser, error) {
	var rows []*models.DeferredUser

	err := s.db.NewSelect().
		Model(&rows).
		Where("inspections < ?", maxInspections).
		Where("inspect_at < ?", time.Now()).
		Order("inspect_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deferred users: %w", err)
	}

	return rows, nil
}

// UpsertPageRefresh records that a discovery page was scanned at timestamp.
func (s *Store) UpsertPageRefresh(ctx context.Context, page int, at time.Time) error {
	row := &models.NewestPageRefresh{PageNum: page, RefreshedAt: at}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (page_num) DO UPDATE").
		Set("refreshed_at = EXCLUDED.refreshed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert page refresh for page %d: %w", page, err)
	}

	return nil
}

// GetPageRefresh returns the last refresh time for a discovery page, if any.
func (s *Store) GetPageRefresh(ctx context.Context, page int) (*models.NewestPageRefresh, error) {
	row := new(models.NewestPageRefresh)
	if err := s.db.NewSelect().Model(row).Where("page_num = ?", page).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get page refresh for page %d", page)
	}

	return row, nil
}

// MaxPageRefresh returns the highest page number ever refreshed, or 0 if none.
func (s *Store) MaxPageRefresh(ctx context.Context) (int, error) {
	var page int

	err := s.db.NewSelect().
		Model((*models.NewestPageRefresh)(nil)).
		ColumnExpr("COALESCE(MAX(page_num), 0)").
		Scan(ctx, &page)
	if err != nil {
		return 0, fmt.Errorf("failed to get max page refresh: %w", err)
	}

	return page, nil
}
