// Package storage opens the account and deposit stores for the configured driver.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/infra/mongoutils"
	"github.com/fastprodman/topup/internal/infra/pgutils"
	"github.com/fastprodman/topup/internal/repos/accounts"
	memaccounts "github.com/fastprodman/topup/internal/repos/accounts/memory"
	mongoaccounts "github.com/fastprodman/topup/internal/repos/accounts/mongo"
	pgaccounts "github.com/fastprodman/topup/internal/repos/accounts/postgres"
	"github.com/fastprodman/topup/internal/repos/deposits"
	memdeposits "github.com/fastprodman/topup/internal/repos/deposits/memory"
	mongodeposits "github.com/fastprodman/topup/internal/repos/deposits/mongo"
	pgdeposits "github.com/fastprodman/topup/internal/repos/deposits/postgres"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Stores struct {
	Accounts accounts.Accounts
	Deposits deposits.Deposits

	// Close releases the underlying connection. It is never nil.
	Close func(ctx context.Context) error
}

func Open(ctx context.Context, cfg config.StorageConfig) (Stores, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", DriverPostgres:
		if cfg.Postgres == nil {
			return Stores{}, fmt.Errorf("postgres config missing")
		}

		db, err := pgutils.OpenDB(ctx, *cfg.Postgres)
		if err != nil {
			return Stores{}, fmt.Errorf("open postgres: %w", err)
		}

		return Stores{
			Accounts: pgaccounts.New(db),
			Deposits: pgdeposits.New(db),
			Close: func(context.Context) error {
				slog.Info("Close postgres")
				return db.Close()
			},
		}, nil

	case DriverMongo:
		if cfg.Mongo == nil {
			return Stores{}, fmt.Errorf("mongo config missing")
		}

		client, db, err := mongoutils.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return Stores{}, fmt.Errorf("open mongo: %w", err)
		}

		err = mongoutils.EnsureIndexes(ctx, db)
		if err != nil {
			_ = client.Disconnect(ctx)
			return Stores{}, fmt.Errorf("ensure indexes: %w", err)
		}

		return Stores{
			Accounts: mongoaccounts.New(db),
			Deposits: mongodeposits.New(db),
			Close: func(c context.Context) error {
				slog.Info("Disconnect mongo")
				return client.Disconnect(c)
			},
		}, nil

	case DriverMemory:
		return Stores{
			Accounts: memaccounts.New(),
			Deposits: memdeposits.New(),
			Close:    func(context.Context) error { return nil },
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
