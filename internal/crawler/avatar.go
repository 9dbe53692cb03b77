package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hadsh/spamhunter/internal/imagehash"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// FetchAvatar returns an avatar's cached body, downloading and caching it
// on first demand (spec §6's get_avatar/fetch_avatar).
func (c *Crawler) FetchAvatar(ctx context.Context, avatarID int64) (contentType string, data []byte, err error) {
	contentType, data, err = c.store.FetchAvatarBytes(ctx, avatarID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch avatar %d: %w", avatarID, err)
	}

	if contentType != "" {
		return contentType, data, nil
	}

	avatarURL, err := c.store.GetAvatarURL(ctx, avatarID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch avatar %d: resolve url: %w", avatarID, err)
	}

	resp, err := c.client.Fetch(ctx, http.MethodGet, avatarURL, nil, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetch avatar %d: %w", avatarID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("fetch avatar %d: read body: %w", avatarID, err)
	}

	contentType = resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := c.store.SetAvatarBytes(ctx, avatarID, contentType, body); err != nil {
		return "", nil, fmt.Errorf("fetch avatar %d: cache body: %w", avatarID, err)
	}

	return contentType, body, nil
}

// GetAvatarHash returns the digest of an avatar under algorithm, computing
// and caching it on first demand (spec §6's get_avatar_hash).
func (c *Crawler) GetAvatarHash(
	ctx context.Context, avatarID int64, algorithm imagehash.Algorithm,
) (*models.AvatarHash, error) {
	existing, err := c.store.GetAvatarHash(ctx, avatarID, string(algorithm))
	if err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get avatar hash %d/%s: %w", avatarID, algorithm, err)
	}

	_, body, err := c.FetchAvatar(ctx, avatarID)
	if err != nil {
		return nil, fmt.Errorf("get avatar hash %d/%s: %w", avatarID, algorithm, err)
	}

	digest, err := c.hasher.Hash(ctx, body, algorithm)
	if err != nil {
		return nil, fmt.Errorf("get avatar hash %d/%s: compute: %w", avatarID, algorithm, err)
	}

	hashID, err := c.store.UpsertAvatarHash(ctx, string(algorithm), digest)
	if err != nil {
		return nil, fmt.Errorf("get avatar hash %d/%s: upsert: %w", avatarID, algorithm, err)
	}

	if err := c.store.AssociateAvatarHash(ctx, avatarID, hashID); err != nil {
		return nil, fmt.Errorf("get avatar hash %d/%s: associate: %w", avatarID, algorithm, err)
	}

	return c.store.GetAvatarHash(ctx, avatarID, string(algorithm))
}
