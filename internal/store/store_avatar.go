package store

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store/models"
)

// UpsertAvatar idempotently creates an Avatar row for a URL (content-addressed
// per spec §4.6) and returns its id, fetching bytes lazily elsewhere.
func (s *Store) UpsertAvatar(ctx context.Context, url string) (int64, error) {
	avatar := &models.Avatar{URL: url}

	_, err := s.db.NewInsert().
		Model(avatar).
		On("CONFLICT (url) DO UPDATE").
		Set("url = EXCLUDED.url").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert avatar %q: %w", url, err)
	}

	return avatar.ID, nil
}

// GetAvatarURL returns the source URL an avatar was content-addressed by,
// for callers that need to fetch its body (spec §6's get_avatar/fetch_avatar).
func (s *Store) GetAvatarURL(ctx context.Context, avatarID int64) (string, error) {
	avatar := new(models.Avatar)

	if err := s.db.NewSelect().Model(avatar).Column("url").Where("id = ?", avatarID).Scan(ctx); err != nil {
		return "", wrapNotFound(err, "get avatar url for %d", avatarID)
	}

	return avatar.URL, nil
}

// FetchAvatarBytes returns the cached bytes and content type for an avatar,
// or an empty content type if the body has not been fetched yet.
func (s *Store) FetchAvatarBytes(ctx context.Context, avatarID int64) (contentType string, data []byte, err error) {
	avatar := new(models.Avatar)

	if err := s.db.NewSelect().Model(avatar).Where("id = ?", avatarID).Scan(ctx); err != nil {
		return "", nil, wrapNotFound(err, "fetch avatar bytes for %d", avatarID)
	}

	return avatar.ContentType, avatar.Bytes, nil
}

// SetAvatarBytes caches the fetched body of an avatar.
func (s *Store) SetAvatarBytes(ctx context.Context, avatarID int64, contentType string, data []byte) error {
	_, err := s.db.NewUpdate().
		Model((*models.Avatar)(nil)).
		Set("content_type = ?", contentType).
		Set("bytes = ?", data).
		Where("id = ?", avatarID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set avatar bytes for %d: %w", avatarID, err)
	}

	return nil
}

// UpsertAvatarHash idempotently creates an AvatarHash row for (algorithm,
// digest) and returns its id.
func (s *Store) UpsertAvatarHash(ctx context.Context, algorithm string, digest []byte) (int64, error) {
	hash := &models.AvatarHash{Algorithm: algorithm, Digest: digest}

	_, err := s.db.NewInsert().
		Model(hash).
		On("CONFLICT (algorithm, digest) DO UPDATE").
		Set("algorithm = EXCLUDED.algorithm").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert avatar hash: %w", err)
	}

	return hash.ID, nil
}

// AssociateAvatarHash links an avatar to one of its computed hashes.
func (s *Store) AssociateAvatarHash(ctx context.Context, avatarID, hashID int64) error {
	assoc := &models.AvatarHashAssoc{AvatarID: avatarID, HashID: hashID}

	_, err := s.db.NewInsert().
		Model(assoc).
		On("CONFLICT (avatar_id, hash_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to associate avatar %d with hash %d: %w", avatarID, hashID, err)
	}

	return nil
}

// GetAvatarHash returns the hash id for an avatar under a given algorithm,
// if one has already been computed and associated.
func (s *Store) GetAvatarHash(ctx context.Context, avatarID int64, algorithm string) (*models.AvatarHash, error) {
	hash := new(models.AvatarHash)

	err := s.db.NewSelect().
		Model(hash).
		Where("algorithm = ?", algorithm).
		Where("id IN (SELECT hash_id FROM avatar_hash_assocs WHERE avatar_id = ?)", avatarID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err, "get avatar hash for avatar %d algorithm %s", avatarID, algorithm)
	}

	return hash, nil
}
