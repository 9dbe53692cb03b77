package traits

import (
	"context"
	"errors"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// AboutMeLink is a singleton trait firing when one of a user's published
// link titles is verbatim equal to their About-me text — a pattern common
// to spam profiles that paste the same string into both fields.
type AboutMeLink struct{}

func (AboutMeLink) Class() string         { return "aboutmelink" }
func (AboutMeLink) Type() models.TraitType { return models.TraitTypeSingleton }
func (AboutMeLink) DefaultWeight() float64 { return 1 }

func (AboutMeLink) Assess(
	ctx context.Context, st *store.Store, row *models.Trait, user *models.User,
) (*Observation, error) {
	detail, err := st.GetUserDetail(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("aboutmelink: get user detail: %w", err)
	}

	links, err := st.GetUserLinks(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("aboutmelink: get user links: %w", err)
	}

	for _, link := range links {
		if link.Title == detail.AboutMe {
			return singletonObservation(row), nil
		}
	}

	return nil, nil
}
