package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/infra/pgutils"
	"github.com/fastprodman/topup/pkg/envconf"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	// seeds are tracked separately so their versions never clash with schema versions
	seedMigrationsTable = "seed_migrations"
	connectTimeout      = 30 * time.Second
)

type migratorConfig struct {
	Postgres config.PostgresConfig
	LogLevel slog.Level `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	AppEnv   string     `env:"APP_ENV" envDefault:"PROD"`
}

func main() {
	err := migrateAll()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func migrateAll() error {
	err := envconf.LoadDotenv()
	if err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(migratorConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	return apply(db, cfg.AppEnv == "DEV")
}

func apply(db *sql.DB, withSeeds bool) error {
	err := runMigrations(db, baseFS, "migrations", postgres.DefaultMigrationsTable)
	if err != nil {
		return fmt.Errorf("base migrations failed: %w", err)
	}

	slog.Info("base migrations applied")

	if !withSeeds {
		return nil
	}

	err = runMigrations(db, devFS, "test_data", seedMigrationsTable)
	if err != nil {
		return fmt.Errorf("dev seed migrations failed: %w", err)
	}

	slog.Info("dev seed migrations applied")

	return nil
}

func runMigrations(db *sql.DB, fsys fs.FS, dir, table string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	return nil
}
