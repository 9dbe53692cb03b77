package traits

import (
	"context"
	"errors"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// avatarHash is an image-hash-keyed trait firing with the avatar's digest
// under one fingerprinting algorithm. One instance per algorithm.
type avatarHash struct {
	class     string
	algorithm string
}

// Avatar trait constructors, one per algorithm the image hasher computes.
func NewSHA512AvatarTrait() Trait {
	return avatarHash{class: "avatar.sha512", algorithm: "sha512"}
}

func NewAverageHashAvatarTrait() Trait {
	return avatarHash{class: "avatar.average_hash", algorithm: "average_hash"}
}

func NewPHashAvatarTrait() Trait { return avatarHash{class: "avatar.phash", algorithm: "phash"} }
func NewDHashAvatarTrait() Trait { return avatarHash{class: "avatar.dhash", algorithm: "dhash"} }
func NewWHashAvatarTrait() Trait { return avatarHash{class: "avatar.whash", algorithm: "whash"} }

func (a avatarHash) Class() string        { return a.class }
func (avatarHash) Type() models.TraitType { return models.TraitTypeImageHash }
func (avatarHash) DefaultWeight() float64 { return 1 }

func (a avatarHash) Assess(
	ctx context.Context, st *store.Store, row *models.Trait, user *models.User,
) (*Observation, error) {
	if user.AvatarID == nil {
		return nil, nil
	}

	hash, err := st.GetAvatarHash(ctx, *user.AvatarID, a.algorithm)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: get avatar hash: %w", a.class, err)
	}

	instance, err := st.GetOrCreateHashInstance(ctx, row.ID, hash.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: get/create trait instance: %w", a.class, err)
	}

	return hashObservation(row, instance), nil
}

// AllTraits returns every concrete trait required by the core, in
// registration order.
func AllTraits() []Trait {
	return []Trait{
		SpamName{},
		AboutMeLink{},
		NewSHA512AvatarTrait(),
		NewAverageHashAvatarTrait(),
		NewPHashAvatarTrait(),
		NewDHashAvatarTrait(),
		NewWHashAvatarTrait(),
	}
}
