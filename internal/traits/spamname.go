package traits

import (
	"context"
	"regexp"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// spamNamePatterns are the configured screen-name shapes associated with
// spam accounts (spec §7 glossary): a whole five-character name of one
// letter, one digit and three letters, or a digit-letter-triple-digit-letter
// run anchored at the end of the name.
var spamNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Za-z][0-9][A-Za-z]{3}$`),
	regexp.MustCompile(`[0-9][A-Za-z][0-9]{3}[A-Za-z]$`),
}

// SpamName is a singleton trait firing when a user's screen name matches
// either spamNamePatterns entry.
type SpamName struct{}

func (SpamName) Class() string         { return "spamname" }
func (SpamName) Type() models.TraitType { return models.TraitTypeSingleton }
func (SpamName) DefaultWeight() float64 { return 1 }

func (SpamName) Assess(
	_ context.Context, _ *store.Store, row *models.Trait, user *models.User,
) (*Observation, error) {
	for _, pattern := range spamNamePatterns {
		if pattern.MatchString(user.ScreenName) {
			return singletonObservation(row), nil
		}
	}

	return nil, nil
}
