// Package traits holds the named, weighted predicates assessed against
// every inspected user: a screen-name pattern, a self-referential about-me
// link, and the five avatar perceptual/cryptographic hash fingerprints.
package traits

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
)

// Observation is one trait firing against a user. WeightedScore reads the
// trait's (or keyed instance's) aggregate score/count as of assessment
// time; it does not reflect this observation's own contribution.
type Observation struct {
	Class       string
	TraitID     int64
	Weight      float64
	IsSingleton bool
	InstanceID  int64
	AggScore    int64
	AggCount    int64
	// Count is how much this observation contributes on verdict
	// application (spec §4.7: "add count × direction to instance.score
	// and count to instance.count"). Every concrete trait in this corpus
	// fires with count 1.
	Count int64
}

// WeightedScore is (instance.score × trait.weight) / instance.count, 0 if
// count is 0.
func (o Observation) WeightedScore() float64 {
	if o.AggCount == 0 {
		return 0
	}

	return float64(o.AggScore) * o.Weight / float64(o.AggCount)
}

// Trait is a concrete predicate: a class name, the key shape its instances
// use, a default weight for first-time registration, and an assessment
// function.
type Trait interface {
	Class() string
	Type() models.TraitType
	DefaultWeight() float64
	Assess(ctx context.Context, st *store.Store, row *models.Trait, user *models.User) (*Observation, error)
}

type entry struct {
	trait Trait
	row   *models.Trait
}

// Registry holds every registered Trait and assesses users against all of
// them.
type Registry struct {
	store   *store.Store
	logger  *zap.Logger
	entries []entry
}

// NewRegistry builds an empty Registry. Call Register for each concrete
// trait before Assess.
func NewRegistry(st *store.Store, logger *zap.Logger) *Registry {
	return &Registry{store: st, logger: logger.Named("traits")}
}

// Register idempotently persists a Trait's row and adds it to the set
// Assess evaluates.
func (r *Registry) Register(ctx context.Context, t Trait) error {
	row, err := r.store.UpsertTrait(ctx, t.Class(), t.Type(), t.DefaultWeight())
	if err != nil {
		return err
	}

	r.entries = append(r.entries, entry{trait: t, row: row})

	return nil
}

// Assess runs every registered trait against user, skipping (and logging)
// any trait whose assessment errors rather than failing the whole pass —
// grounded on the original's per-trait try/except in Trait.assess. st is
// the store each trait reads/writes through; callers inside a transaction
// (the verdict applier) pass the transaction-scoped Store so a trait's
// GetOrCreate-style writes commit atomically with the rest of the verdict.
func (r *Registry) Assess(ctx context.Context, st *store.Store, user *models.User) ([]Observation, error) {
	observations := make([]Observation, 0, len(r.entries))

	for _, e := range r.entries {
		obs, err := e.trait.Assess(ctx, st, e.row, user)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			r.logger.Warn("trait assessment failed",
				zap.String("trait", e.trait.Class()),
				zap.Int64("user_id", user.ID),
				zap.Error(err))

			continue
		}

		if obs != nil {
			observations = append(observations, *obs)
		}
	}

	return observations, nil
}

// singletonObservation builds the Observation for a singleton trait that
// fired once, reading the trait row's own aggregate as instance state.
func singletonObservation(row *models.Trait) *Observation {
	return &Observation{
		Class:       row.Class,
		TraitID:     row.ID,
		Weight:      row.Weight,
		IsSingleton: true,
		AggScore:    row.Score,
		AggCount:    row.Count,
		Count:       1,
	}
}

// hashObservation builds the Observation for an image-hash-keyed trait
// whose TraitInstance for this avatar hash already exists (created via
// GetOrCreateHashInstance).
func hashObservation(row *models.Trait, instance *models.TraitInstance) *Observation {
	return &Observation{
		Class:    row.Class,
		TraitID:  row.ID,
		Weight:   row.Weight,
		InstanceID: instance.ID,
		AggScore: instance.Score,
		AggCount: instance.Count,
		Count:    1,
	}
}
