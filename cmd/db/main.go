// Command db manages the crawler's schema migrations: init, migrate,
// rollback, status and scaffolding a new Go migration file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/setup/config"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/migrations"
)

type cliDependencies struct {
	store    *store.Store
	migrator *migrate.Migrator
	logger   *zap.Logger
}

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	deps, err := setupDependencies()
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.store.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Crawler database migration tool",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return deps.migrator.Init(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := deps.migrator.Lock(ctx); err != nil {
						return err
					}
					defer deps.migrator.Unlock(ctx) //nolint:errcheck

					group, err := deps.migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						deps.logger.Info("no new migrations to run")
						return nil
					}

					deps.logger.Info("migrated", zap.String("group", group.String()))

					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "Roll back the last migration group",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := deps.migrator.Lock(ctx); err != nil {
						return err
					}
					defer deps.migrator.Unlock(ctx) //nolint:errcheck

					group, err := deps.migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						deps.logger.Info("no groups to roll back")
						return nil
					}

					deps.logger.Info("rolled back", zap.String("group", group.String()))

					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: func(ctx context.Context, _ *cli.Command) error {
					ms, err := deps.migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					deps.logger.Info("migration status",
						zap.String("migrations", ms.String()),
						zap.String("unapplied", ms.Unapplied().String()),
						zap.String("last_group", ms.LastGroup().String()),
					)

					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return errNameRequired
					}

					files, err := deps.migrator.CreateGoMigration(ctx, name)
					if err != nil {
						return err
					}

					deps.logger.Info("created migration", zap.String("path", files.Path))

					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

var errNameRequired = errors.New("NAME argument required")

func setupDependencies() (*cliDependencies, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	storeCfg := store.PostgreSQL(cfg.PostgreSQL)

	st, err := store.New(context.Background(), &storeCfg, logger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator := migrate.NewMigrator(st.DB(), migrations.Migrations)

	return &cliDependencies{
		store:    st,
		migrator: migrator,
		logger:   logger,
	}, nil
}
