package migrations

import (
	"context"
	"fmt"

	"github.com/hadsh/spamhunter/internal/store/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []any{
			(*models.User)(nil),
			(*models.UserDetail)(nil),
			(*models.UserLink)(nil),
			(*models.UserToken)(nil),
			(*models.Avatar)(nil),
			(*models.AvatarHash)(nil),
			(*models.AvatarHashAssoc)(nil),
			(*models.Word)(nil),
			(*models.WordAdjacent)(nil),
			(*models.Hostname)(nil),
			(*models.UserWord)(nil),
			(*models.UserHostname)(nil),
			(*models.UserWordAdjacent)(nil),
			(*models.NewUser)(nil),
			(*models.DeferredUser)(nil),
			(*models.NewestPageRefresh)(nil),
			(*models.Group)(nil),
			(*models.UserGroup)(nil),
			(*models.Trait)(nil),
			(*models.TraitInstance)(nil),
			(*models.UserTrait)(nil),
			(*models.UserTraitInstance)(nil),
		}

		for _, model := range tables {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		// Seed the required groups (spec §3).
		groups := []string{
			models.GroupAdmin, models.GroupAutoLegit, models.GroupAutoSuspect,
			models.GroupLegit, models.GroupSuspect,
		}
		for _, name := range groups {
			if _, err := db.NewInsert().
				Model(&models.Group{Name: name}).
				On("CONFLICT (name) DO NOTHING").
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to seed group %q: %w", name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []any{
			(*models.UserTraitInstance)(nil),
			(*models.UserTrait)(nil),
			(*models.TraitInstance)(nil),
			(*models.Trait)(nil),
			(*models.UserGroup)(nil),
			(*models.Group)(nil),
			(*models.NewestPageRefresh)(nil),
			(*models.DeferredUser)(nil),
			(*models.NewUser)(nil),
			(*models.UserWordAdjacent)(nil),
			(*models.UserHostname)(nil),
			(*models.UserWord)(nil),
			(*models.Hostname)(nil),
			(*models.WordAdjacent)(nil),
			(*models.Word)(nil),
			(*models.AvatarHashAssoc)(nil),
			(*models.AvatarHash)(nil),
			(*models.Avatar)(nil),
			(*models.UserToken)(nil),
			(*models.UserLink)(nil),
			(*models.UserDetail)(nil),
			(*models.User)(nil),
		}

		for _, model := range tables {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
