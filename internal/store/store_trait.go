package store

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store/models"
)

// UpsertTrait idempotently registers a Trait and returns its row (creating
// it with the given type/weight on first registration).
func (s *Store) UpsertTrait(ctx context.Context, class string, typ models.TraitType, weight float64) (*models.Trait, error) {
	trait := &models.Trait{Class: class, Type: typ, Weight: weight}

	_, err := s.db.NewInsert().
		Model(trait).
		On("CONFLICT (trait_class) DO UPDATE").
		Set("trait_class = EXCLUDED.trait_class").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert trait %q: %w", class, err)
	}

	return trait, nil
}

// GetOrCreateStringInstance returns the TraitInstance for (traitID, key),
// creating it with (score 0, count 0) if absent.
func (s *Store) GetOrCreateStringInstance(ctx context.Context, traitID int64, key string) (*models.TraitInstance, error) {
	instance := &models.TraitInstance{TraitID: traitID, StringKey: &key}

	_, err := s.db.NewInsert().
		Model(instance).
		On("CONFLICT (trait_id, string_key) WHERE string_key IS NOT NULL DO UPDATE").
		Set("trait_id = EXCLUDED.trait_id").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create string trait instance: %w", err)
	}

	return instance, nil
}

// GetOrCreateHashInstance returns the TraitInstance for (traitID, hashID),
// creating it with (score 0, count 0) if absent.
func (s *Store) GetOrCreateHashInstance(ctx context.Context, traitID, hashID int64) (*models.TraitInstance, error) {
	instance := &models.TraitInstance{TraitID: traitID, HashID: &hashID}

	_, err := s.db.NewInsert().
		Model(instance).
		On("CONFLICT (trait_id, hash_id) WHERE hash_id IS NOT NULL DO UPDATE").
		Set("trait_id = EXCLUDED.trait_id").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create hash trait instance: %w", err)
	}

	return instance, nil
}

// GetTrait fetches a Trait row's current aggregate (score, count, weight).
func (s *Store) GetTrait(ctx context.Context, traitID int64) (*models.Trait, error) {
	row := new(models.Trait)
	if err := s.db.NewSelect().Model(row).Where("id = ?", traitID).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get trait %d", traitID)
	}

	return row, nil
}

// GetTraitInstance fetches a TraitInstance row's current aggregate.
func (s *Store) GetTraitInstance(ctx context.Context, instanceID int64) (*models.TraitInstance, error) {
	row := new(models.TraitInstance)
	if err := s.db.NewSelect().Model(row).Where("id = ?", instanceID).Scan(ctx); err != nil {
		return nil, wrapNotFound(err, "get trait instance %d", instanceID)
	}

	return row, nil
}

// GetUserTraitCount returns a user's observation count against a singleton
// trait, 0 if absent.
func (s *Store) GetUserTraitCount(ctx context.Context, userID, traitID int64) (int64, error) {
	row := new(models.UserTrait)

	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Where("trait_id = ?", traitID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to get user trait count: %w", err)
	}

	return row.Count, nil
}

// SetUserTraitCount upserts a user's observation count against a singleton trait.
func (s *Store) SetUserTraitCount(ctx context.Context, userID, traitID, count int64) error {
	row := &models.UserTrait{UserID: userID, TraitID: traitID, Count: count}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, trait_id) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set user trait count: %w", err)
	}

	return nil
}

// SetUserTraitInstanceCount upserts a user's observation count against a
// keyed TraitInstance.
func (s *Store) SetUserTraitInstanceCount(ctx context.Context, userID, instanceID, count int64) error {
	row := &models.UserTraitInstance{UserID: userID, InstanceID: instanceID, Count: count}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, instance_id) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set user trait instance count: %w", err)
	}

	return nil
}

// DiscardUserTraitLink removes a user's per-user link to a singleton trait
// (spec §4.7: "then persist or discard the per-user link per the verdict
// policy").
func (s *Store) DiscardUserTraitLink(ctx context.Context, userID, traitID int64) error {
	_, err := s.db.NewDelete().
		Model((*models.UserTrait)(nil)).
		Where("user_id = ?", userID).
		Where("trait_id = ?", traitID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to discard user trait link: %w", err)
	}

	return nil
}

// DiscardUserTraitInstanceLink removes a user's per-user link to a keyed
// TraitInstance.
func (s *Store) DiscardUserTraitInstanceLink(ctx context.Context, userID, instanceID int64) error {
	_, err := s.db.NewDelete().
		Model((*models.UserTraitInstance)(nil)).
		Where("user_id = ?", userID).
		Where("instance_id = ?", instanceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to discard user trait instance link: %w", err)
	}

	return nil
}

// ApplyTraitVerdict adds count*direction to a Trait's score and count to its
// count (spec §4.7: "add count × direction to instance.score and count to
// instance.count").
func (s *Store) ApplyTraitVerdict(ctx context.Context, traitID, count int64, direction int) error {
	_, err := s.db.NewUpdate().
		Model((*models.Trait)(nil)).
		Set("score = score + ?", int64(direction)*count).
		Set("count = count + ?", count).
		Where("id = ?", traitID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply verdict to trait %d: %w", traitID, err)
	}

	return nil
}

// ApplyTraitInstanceVerdict adds count*direction to a TraitInstance's score
// and count to its count.
func (s *Store) ApplyTraitInstanceVerdict(ctx context.Context, instanceID, count int64, direction int) error {
	_, err := s.db.NewUpdate().
		Model((*models.TraitInstance)(nil)).
		Set("score = score + ?", int64(direction)*count).
		Set("count = count + ?", count).
		Where("id = ?", instanceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply verdict to trait instance %d: %w", instanceID, err)
	}

	return nil
}

// DeleteUserTraitLinks removes every UserTrait/UserTraitInstance row for a
// user (spec §4.8.6 step 6, legit verdict path).
func (s *Store) DeleteUserTraitLinks(ctx context.Context, userID int64) error {
	if _, err := s.db.NewDelete().Model((*models.UserTrait)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user trait links for %d: %w", userID, err)
	}

	if _, err := s.db.NewDelete().Model((*models.UserTraitInstance)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user trait instance links for %d: %w", userID, err)
	}

	return nil
}
