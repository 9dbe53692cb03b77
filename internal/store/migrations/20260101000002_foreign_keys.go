package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// cascadeFKs holds (child table, child column, parent table) triples for
// every row family owned by a User, so deleting a User cascades per
// spec §3 ("destroyed only when the platform returns 404/410... then its
// dependent rows cascade").
var cascadeFKs = []struct {
	child, column, parent string
}{
	{"user_details", "user_id", "users"},
	{"user_links", "user_id", "users"},
	{"user_tokens", "user_id", "users"},
	{"user_words", "user_id", "users"},
	{"user_hostnames", "user_id", "users"},
	{"user_word_adjacents", "user_id", "users"},
	{"new_users", "user_id", "users"},
	{"deferred_users", "user_id", "users"},
	{"user_groups", "user_id", "users"},
	{"user_traits", "user_id", "users"},
	{"user_trait_instances", "user_id", "users"},
	{"avatar_hash_assocs", "avatar_id", "avatars"},
	{"user_words", "word_id", "words"},
	{"user_word_adjacents", "predecessor_id", "words"},
	{"user_word_adjacents", "successor_id", "words"},
	{"word_adjacents", "predecessor_id", "words"},
	{"word_adjacents", "successor_id", "words"},
	{"user_hostnames", "hostname_id", "hostnames"},
	{"avatar_hash_assocs", "hash_id", "avatar_hashes"},
	{"trait_instances", "trait_id", "traits"},
	{"user_traits", "trait_id", "traits"},
	{"user_trait_instances", "instance_id", "trait_instances"},
	{"user_groups", "group_id", "groups"},
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, fk := range cascadeFKs {
			name := fmt.Sprintf("fk_%s_%s", fk.child, fk.column)
			_, err := db.NewRaw(fmt.Sprintf(`
				ALTER TABLE %s
				ADD CONSTRAINT %s
				FOREIGN KEY (%s) REFERENCES %s (id)
				ON DELETE CASCADE
			`, fk.child, name, fk.column, fk.parent)).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to add constraint %s: %w", name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, fk := range cascadeFKs {
			name := fmt.Sprintf("fk_%s_%s", fk.child, fk.column)
			_, err := db.NewRaw(fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s`, fk.child, name)).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop constraint %s: %w", name, err)
			}
		}

		return nil
	})
}
