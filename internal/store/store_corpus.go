package store

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store/models"
)

// UpsertWord idempotently creates a Word row for text and returns its id.
// Score/Count are left untouched on conflict (spec §4.8.2 step 5: "scores
// and counts stay at their current values").
func (s *Store) UpsertWord(ctx context.Context, text string) (int64, error) {
	word := &models.Word{Text: text}

	_, err := s.db.NewInsert().
		Model(word).
		On("CONFLICT (text) DO UPDATE").
		Set("text = EXCLUDED.text").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert word %q: %w", text, err)
	}

	return word.ID, nil
}

// UpsertHostname idempotently creates a Hostname row for name and returns its id.
func (s *Store) UpsertHostname(ctx context.Context, name string) (int64, error) {
	host := &models.Hostname{Name: name}

	_, err := s.db.NewInsert().
		Model(host).
		On("CONFLICT (name) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert hostname %q: %w", name, err)
	}

	return host.ID, nil
}

// UpsertWordAdjacent idempotently creates a WordAdjacent row for the ordered
// pair and returns it (creating with score 0 if absent, per spec §4.8.6
// step 4: "WordAdjacent rows missing a global entry are created on demand").
func (s *Store) UpsertWordAdjacent(ctx context.Context, predecessorID, successorID int64) (*models.WordAdjacent, error) {
	pair := &models.WordAdjacent{PredecessorID: predecessorID, SuccessorID: successorID}

	_, err := s.db.NewInsert().
		Model(pair).
		On("CONFLICT (predecessor_id, successor_id) DO UPDATE").
		Set("predecessor_id = EXCLUDED.predecessor_id").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert word pair (%d,%d): %w", predecessorID, successorID, err)
	}

	return pair, nil
}

// GetWord, GetHostname, GetWordAdjacent fetch the current global corpus row,
// used by the scoring step (spec §4.8.2 step 6) to read (score, count).
func (s *Store) GetWord(ctx context.Context, id int64) (*models.Word, error) {
	row := new(models.Word)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get word %d", id)
	}

	return row, nil
}

func (s *Store) GetHostname(ctx context.Context, id int64) (*models.Hostname, error) {
	row := new(models.Hostname)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get hostname %d", id)
	}

	return row, nil
}

func (s *Store) GetWordAdjacent(ctx context.Context, predecessorID, successorID int64) (*models.WordAdjacent, error) {
	row := new(models.WordAdjacent)

	err := s.db.NewSelect().
		Model(row).
		Where("predecessor_id = ?", predecessorID).
		Where("successor_id = ?", successorID).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, "get word pair (%d,%d)", predecessorID, successorID)
	}

	return row, nil
}

// SetUserWordCount sets a user's observation count for a word. Per spec
// §4.6's set_user_counter policy, count<=0 deletes the row instead of
// writing zero.
func (s *Store) SetUserWordCount(ctx context.Context, userID, wordID, count int64) error {
	if count <= 0 {
		_, err := s.db.NewDelete().
			Model((*models.UserWord)(nil)).
			Where("user_id = ?", userID).
			Where("word_id = ?", wordID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete user word (%d,%d): %w", userID, wordID, err)
		}

		return nil
	}

	row := &models.UserWord{UserID: userID, WordID: wordID, Count: count}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, word_id) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set user word count (%d,%d): %w", userID, wordID, err)
	}

	return nil
}

// SetUserHostnameCount sets a user's observation count for a hostname.
func (s *Store) SetUserHostnameCount(ctx context.Context, userID, hostnameID, count int64) error {
	if count <= 0 {
		_, err := s.db.NewDelete().
			Model((*models.UserHostname)(nil)).
			Where("user_id = ?", userID).
			Where("hostname_id = ?", hostnameID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete user hostname (%d,%d): %w", userID, hostnameID, err)
		}

		return nil
	}

	row := &models.UserHostname{UserID: userID, HostnameID: hostnameID, Count: count}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, hostname_id) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set user hostname count (%d,%d): %w", userID, hostnameID, err)
	}

	return nil
}

// SetUserWordAdjacentCount sets a user's observation count for a word pair.
func (s *Store) SetUserWordAdjacentCount(ctx context.Context, userID, predecessorID, successorID, count int64) error {
	if count <= 0 {
		_, err := s.db.NewDelete().
			Model((*models.UserWordAdjacent)(nil)).
			Where("user_id = ?", userID).
			Where("predecessor_id = ?", predecessorID).
			Where("successor_id = ?", successorID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete user word pair (%d,%d,%d): %w", userID, predecessorID, successorID, err)
		}

		return nil
	}

	row := &models.UserWordAdjacent{UserID: userID, PredecessorID: predecessorID, SuccessorID: successorID, Count: count}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, predecessor_id, successor_id) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set user word pair count (%d,%d,%d): %w", userID, predecessorID, successorID, err)
	}

	return nil
}

// ListUserWords, ListUserHostnames, ListUserWordAdjacents return every
// per-user counter row for the user, used both by the scoring step and by
// apply_verdict's corpus-mutation step.
func (s *Store) ListUserWords(ctx context.Context, userID int64) ([]*models.UserWord, error) {
	var rows []*models.UserWord
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list user words for %d: %w", userID, err)
	}

	return rows, nil
}

func (s *Store) ListUserHostnames(ctx context.Context, userID int64) ([]*models.UserHostname, error) {
	var rows []*models.UserHostname
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list user hostnames for %d: %w", userID, err)
	}

	return rows, nil
}

func (s *Store) ListUserWordAdjacents(ctx context.Context, userID int64) ([]*models.UserWordAdjacent, error) {
	var rows []*models.UserWordAdjacent
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list user word pairs for %d: %w", userID, err)
	}

	return rows, nil
}

// ApplyWordVerdict adds direction*count to a Word's score and count to its
// count (spec §4.8.6 step 4).
func (s *Store) ApplyWordVerdict(ctx context.Context, wordID, count int64, direction int) error {
	_, err := s.db.NewUpdate().
		Model((*models.Word)(nil)).
		Set("score = score + ?", int64(direction)*count).
		Set("count = count + ?", count).
		Where("id = ?", wordID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply verdict to word %d: %w", wordID, err)
	}

	return nil
}

// ApplyHostnameVerdict adds direction*count to a Hostname's score and count.
func (s *Store) ApplyHostnameVerdict(ctx context.Context, hostnameID, count int64, direction int) error {
	_, err := s.db.NewUpdate().
		Model((*models.Hostname)(nil)).
		Set("score = score + ?", int64(direction)*count).
		Set("count = count + ?", count).
		Where("id = ?", hostnameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply verdict to hostname %d: %w", hostnameID, err)
	}

	return nil
}

// ApplyWordAdjacentVerdict adds direction*count to a WordAdjacent's score
// and count, creating the row first if it does not exist.
func (s *Store) ApplyWordAdjacentVerdict(ctx context.Context, predecessorID, successorID, count int64, direction int) error {
	if _, err := s.UpsertWordAdjacent(ctx, predecessorID, successorID); err != nil {
		return err
	}

	_, err := s.db.NewUpdate().
		Model((*models.WordAdjacent)(nil)).
		Set("score = score + ?", int64(direction)*count).
		Set("count = count + ?", count).
		Where("predecessor_id = ?", predecessorID).
		Where("successor_id = ?", successorID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply verdict to word pair (%d,%d): %w", predecessorID, successorID, err)
	}

	return nil
}

// DeleteUserWords, DeleteUserHostnames, DeleteUserWordAdjacents remove every
// per-user counter row for a user, used by apply_verdict(legit) (spec
// §4.8.6 step 6).
func (s *Store) DeleteUserWords(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.UserWord)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user words for %d: %w", userID, err)
	}

	return nil
}

func (s *Store) DeleteUserHostnames(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.UserHostname)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user hostnames for %d: %w", userID, err)
	}

	return nil
}

func (s *Store) DeleteUserWordAdjacents(ctx context.Context, userID int64) error {
	_, err := s.db.NewDelete().Model((*models.UserWordAdjacent)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user word pairs for %d: %w", userID, err)
	}

	return nil
}

// DeleteUserDetailAndLinks removes UserDetail and UserLink rows for a user,
// used by apply_verdict(legit) (spec §4.8.6 step 6).
func (s *Store) DeleteUserDetailAndLinks(ctx context.Context, userID int64) error {
	if _, err := s.db.NewDelete().Model((*models.UserDetail)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user detail for %d: %w", userID, err)
	}

	if _, err := s.db.NewDelete().Model((*models.UserLink)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user links for %d: %w", userID, err)
	}

	return nil
}
