// Package store is the persistent-state abstraction required by spec §4.6:
// users, their derived content, the word/hostname/word-adjacency corpus,
// the discovery/deferral queues, groups, and traits. All multi-row
// mutations run inside a transaction; every insert-or-update uses
// `INSERT ... ON CONFLICT DO UPDATE` upsert semantics.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/store/dbretry"
	"github.com/hadsh/spamhunter/internal/store/migrations"
)

// PostgreSQL holds the connection parameters for the store's database.
type PostgreSQL struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	DBName       string `koanf:"db_name"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxLifetime  int    `koanf:"max_lifetime_minutes"`
	MaxIdleTime  int    `koanf:"max_idle_time_minutes"`
}

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) { return sonic.Marshal(v) }

func (sonicProvider) Unmarshal(data []byte, v any) error { return sonic.Unmarshal(data, v) }

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Store bundles the bun connection with the operations required by spec
// §4.6. Methods are grouped across store_*.go files by entity family. Every
// query runs against db, which is the connection itself on a top-level
// Store and a transaction on one returned by WithTx.
type Store struct {
	conn   *bun.DB
	db     bun.IDB
	logger *zap.Logger
}

// New establishes a database connection and returns a ready Store.
func New(ctx context.Context, cfg *PostgreSQL, logger *zap.Logger, autoMigrate bool) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("spamhunter"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(NewHook(logger))

	if autoMigrate {
		migrator := migrate.NewMigrator(db, migrations.Migrations)
		if err := migrator.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize migrations: %w", err)
		}

		group, err := migrator.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		if !group.IsZero() {
			logger.Info("Automatically ran migrations", zap.String("group", group.String()))
		}
	}

	logger.Info("Database connection established")

	return &Store{conn: db, db: db, logger: logger.Named("store")}, nil
}

// NewWithDB wraps an already-configured bun.DB in a Store, bypassing the
// connection setup New performs. Used by tests that substitute a
// sqlmock-backed *sql.DB for a live Postgres connection.
func NewWithDB(db *bun.DB, logger *zap.Logger) *Store {
	return &Store{conn: db, db: db, logger: logger.Named("store")}
}

// DB returns the underlying bun.DB instance, for migration tooling.
func (s *Store) DB() *bun.DB { return s.conn }

// Close gracefully shuts down the database connection.
func (s *Store) Close() error {
	if err := s.conn.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	s.logger.Info("Database connection closed")

	return nil
}

// WithTx runs fn against a Store backed by a single transaction, retried on
// a transient connection error (internal/store/dbretry). Every store method
// called through the txStore argument participates in the same
// transaction, so callers that span several store calls (e.g. the verdict
// applier) get the single-writer, atomic-commit semantics spec §4.6 and §9
// require for multi-row mutations.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore *Store) error) error {
	return dbretry.Transaction(ctx, s.conn, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{conn: s.conn, db: tx, logger: s.logger})
	})
}
