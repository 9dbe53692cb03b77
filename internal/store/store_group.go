package store

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store/models"
)

var allGroups = map[string]struct{}{
	models.GroupAdmin:       {},
	models.GroupAutoLegit:   {},
	models.GroupAutoSuspect: {},
	models.GroupLegit:       {},
	models.GroupSuspect:     {},
}

func (s *Store) groupID(ctx context.Context, name string) (int64, error) {
	if _, ok := allGroups[name]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}

	group := new(models.Group)
	if err := s.db.NewSelect().Model(group).Where("name = ?", name).Scan(ctx); err != nil {
		return 0, fmt.Errorf("failed to resolve group %q: %w", name, err)
	}

	return group.ID, nil
}

// AssignGroup adds a user to a group without clearing any other group
// membership. Most callers that need exclusivity should use
// AssignExclusive instead.
func (s *Store) AssignGroup(ctx context.Context, userID int64, name string) error {
	groupID, err := s.groupID(ctx, name)
	if err != nil {
		return err
	}

	_, err = s.db.NewInsert().
		Model(&models.UserGroup{UserID: userID, GroupID: groupID}).
		On("CONFLICT (user_id, group_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to assign user %d to group %q: %w", userID, name, err)
	}

	return nil
}

// RemoveGroup removes a user from a group.
func (s *Store) RemoveGroup(ctx context.Context, userID int64, name string) error {
	groupID, err := s.groupID(ctx, name)
	if err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Model((*models.UserGroup)(nil)).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove user %d from group %q: %w", userID, name, err)
	}

	return nil
}

// AssignExclusive adds a user to name and removes it from every group in
// clear, inside one transaction, enforcing spec §4.6's exclusivity
// invariant (auto_legit/auto_suspect, and the verdict applier's
// auto_%/legit/suspect clear-then-assign) at the Store boundary rather than
// relying on every caller to sequence AssignGroup/RemoveGroup correctly.
func (s *Store) AssignExclusive(ctx context.Context, userID int64, name string, clear ...string) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *Store) error {
		for _, g := range clear {
			if err := tx.RemoveGroup(ctx, userID, g); err != nil {
				return fmt.Errorf("clear %q: %w", g, err)
			}
		}

		if err := tx.AssignGroup(ctx, userID, name); err != nil {
			return fmt.Errorf("assign %q: %w", name, err)
		}

		return nil
	})
}

// InGroups returns which of the named groups a user currently belongs to.
func (s *Store) InGroups(ctx context.Context, userID int64, names ...string) (map[string]bool, error) {
	result := make(map[string]bool, len(names))

	var memberOf []string

	err := s.db.NewSelect().
		Model((*models.UserGroup)(nil)).
		Join("JOIN groups ON groups.id = user_groups.group_id").
		ColumnExpr("groups.name").
		Where("user_groups.user_id = ?", userID).
		Scan(ctx, &memberOf)
	if err != nil {
		return nil, fmt.Errorf("failed to check groups for user %d: %w", userID, err)
	}

	set := make(map[string]struct{}, len(memberOf))
	for _, n := range memberOf {
		set[n] = struct{}{}
	}

	for _, n := range names {
		_, result[n] = set[n]
	}

	return result, nil
}

// SetGroupMembers replaces the admin group's membership with exactly
// memberIDs (spec §4.8.5: "The membership of the admin group is set to
// exactly {team} ∪ {explicit admin ids}").
func (s *Store) SetGroupMembers(ctx context.Context, name string, memberIDs []int64) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *Store) error {
		groupID, err := tx.groupID(ctx, name)
		if err != nil {
			return err
		}

		if _, err := tx.db.NewDelete().
			Model((*models.UserGroup)(nil)).
			Where("group_id = ?", groupID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear group %q: %w", name, err)
		}

		if len(memberIDs) == 0 {
			return nil
		}

		rows := make([]*models.UserGroup, len(memberIDs))
		for i, id := range memberIDs {
			rows[i] = &models.UserGroup{UserID: id, GroupID: groupID}
		}

		if _, err := tx.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to repopulate group %q: %w", name, err)
		}

		return nil
	})
}
