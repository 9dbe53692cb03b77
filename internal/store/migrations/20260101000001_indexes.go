package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			CREATE UNIQUE INDEX IF NOT EXISTS avatar_hash_index
			ON avatar_hashes (algorithm, digest);

			CREATE INDEX IF NOT EXISTS idx_avatar_hash_assocs_hash
			ON avatar_hash_assocs (hash_id);

			CREATE INDEX IF NOT EXISTS idx_deferred_users_inspect_at
			ON deferred_users (inspect_at ASC)
			WHERE inspections < 2147483647;

			CREATE INDEX IF NOT EXISTS idx_user_words_word
			ON user_words (word_id);

			CREATE INDEX IF NOT EXISTS idx_user_hostnames_hostname
			ON user_hostnames (hostname_id);

			CREATE INDEX IF NOT EXISTS idx_user_word_adjacents_pair
			ON user_word_adjacents (predecessor_id, successor_id);

			CREATE INDEX IF NOT EXISTS idx_trait_instances_trait
			ON trait_instances (trait_id);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_trait_instances_string_key
			ON trait_instances (trait_id, string_key)
			WHERE string_key IS NOT NULL;

			CREATE UNIQUE INDEX IF NOT EXISTS idx_trait_instances_hash_id
			ON trait_instances (trait_id, hash_id)
			WHERE hash_id IS NOT NULL;

			CREATE INDEX IF NOT EXISTS idx_user_groups_group
			ON user_groups (group_id);
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_user_groups_group;
			DROP INDEX IF EXISTS idx_trait_instances_hash_id;
			DROP INDEX IF EXISTS idx_trait_instances_string_key;
			DROP INDEX IF EXISTS idx_trait_instances_trait;
			DROP INDEX IF EXISTS idx_user_word_adjacents_pair;
			DROP INDEX IF EXISTS idx_user_hostnames_hostname;
			DROP INDEX IF EXISTS idx_user_words_word;
			DROP INDEX IF EXISTS idx_deferred_users_inspect_at;
			DROP INDEX IF EXISTS idx_avatar_hash_assocs_hash;
			DROP INDEX IF EXISTS avatar_hash_index;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
