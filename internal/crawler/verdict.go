package crawler

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// Verdict is a moderator's manual classification of a user (spec §4.8.6,
// glossary "Verdict").
type Verdict string

const (
	VerdictLegit   Verdict = "legit"
	VerdictSuspect Verdict = "suspect"
)

// direction is the sign applied to every corpus/trait delta this verdict
// contributes: +1 for legit, -1 for suspect.
func (v Verdict) direction() int {
	if v == VerdictLegit {
		return 1
	}

	return -1
}

func (v Verdict) group() string {
	if v == VerdictLegit {
		return models.GroupLegit
	}

	return models.GroupSuspect
}

// ApplyVerdict folds a moderator's classification of userID back into the
// corpus (spec §4.8.6): it reassigns the user's group, adds
// direction*count to every word/hostname/adjacency/trait the user
// contributed, and for a legit verdict discards the user's own evidence so
// it cannot be counted twice. The whole transition runs inside a single
// transaction (spec §4.6, §9): a failure partway through must not leave the
// user reassigned with the corpus only half-folded.
func (c *Crawler) ApplyVerdict(ctx context.Context, userID int64, verdict Verdict) error {
	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("apply verdict %d: get user: %w", userID, err)
	}

	err = c.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		for _, g := range []string{models.GroupAutoLegit, models.GroupAutoSuspect, models.GroupLegit, models.GroupSuspect} {
			if err := tx.RemoveGroup(ctx, userID, g); err != nil {
				return fmt.Errorf("clear %s: %w", g, err)
			}
		}

		if err := tx.AssignGroup(ctx, userID, verdict.group()); err != nil {
			return fmt.Errorf("assign %s: %w", verdict.group(), err)
		}

		direction := verdict.direction()

		if err := c.applyCorpusVerdict(ctx, tx, userID, direction); err != nil {
			return fmt.Errorf("corpus: %w", err)
		}

		if err := c.applyTraitVerdict(ctx, tx, user, direction); err != nil {
			return fmt.Errorf("traits: %w", err)
		}

		if verdict == VerdictLegit {
			if err := c.discardUserEvidence(ctx, tx, userID); err != nil {
				return fmt.Errorf("discard evidence: %w", err)
			}
		}

		if err := tx.Undefer(ctx, userID); err != nil {
			return fmt.Errorf("undefer: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("apply verdict %d: %w", userID, err)
	}

	c.metrics.VerdictsTotal.WithLabelValues(string(verdict)).Inc()

	return nil
}

// applyCorpusVerdict adds direction*count to every Word/Hostname/
// WordAdjacent row the user has an observation counter for (spec §4.8.6
// step 4).
func (c *Crawler) applyCorpusVerdict(ctx context.Context, tx *store.Store, userID int64, direction int) error {
	words, err := tx.ListUserWords(ctx, userID)
	if err != nil {
		return err
	}

	for _, w := range words {
		if err := tx.ApplyWordVerdict(ctx, w.WordID, w.Count, direction); err != nil {
			return err
		}
	}

	hostnames, err := tx.ListUserHostnames(ctx, userID)
	if err != nil {
		return err
	}

	for _, h := range hostnames {
		if err := tx.ApplyHostnameVerdict(ctx, h.HostnameID, h.Count, direction); err != nil {
			return err
		}
	}

	pairs, err := tx.ListUserWordAdjacents(ctx, userID)
	if err != nil {
		return err
	}

	for _, p := range pairs {
		if err := tx.ApplyWordAdjacentVerdict(ctx, p.PredecessorID, p.SuccessorID, p.Count, direction); err != nil {
			return err
		}
	}

	return nil
}

// applyTraitVerdict runs Assess against the user's current state and, for
// each observation, adds count*direction to the trait's (or instance's)
// aggregate, then discards the per-user link (spec §4.7, §4.8.6 step 5).
func (c *Crawler) applyTraitVerdict(ctx context.Context, tx *store.Store, user *models.User, direction int) error {
	observations, err := c.traits.Assess(ctx, tx, user)
	if err != nil {
		return err
	}

	for _, obs := range observations {
		if obs.IsSingleton {
			if err := tx.ApplyTraitVerdict(ctx, obs.TraitID, obs.Count, direction); err != nil {
				return err
			}

			if err := tx.DiscardUserTraitLink(ctx, user.ID, obs.TraitID); err != nil {
				return err
			}

			continue
		}

		if err := tx.ApplyTraitInstanceVerdict(ctx, obs.InstanceID, obs.Count, direction); err != nil {
			return err
		}

		if err := tx.DiscardUserTraitInstanceLink(ctx, user.ID, obs.InstanceID); err != nil {
			return err
		}
	}

	return nil
}

// discardUserEvidence removes every per-user row a legit verdict retires
// (spec §4.8.6 step 6): the user's own text/links and its observation
// counters, since a legit account's content no longer needs re-scanning.
func (c *Crawler) discardUserEvidence(ctx context.Context, tx *store.Store, userID int64) error {
	if err := tx.DeleteUserDetailAndLinks(ctx, userID); err != nil {
		return err
	}

	if err := tx.DeleteUserWords(ctx, userID); err != nil {
		return err
	}

	if err := tx.DeleteUserWordAdjacents(ctx, userID); err != nil {
		return err
	}

	if err := tx.DeleteUserHostnames(ctx, userID); err != nil {
		return err
	}

	if err := tx.DeleteUserTraitLinks(ctx, userID); err != nil {
		return err
	}

	return nil
}
