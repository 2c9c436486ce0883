// Package backends opens the registry and operation log selected by
// configuration.
package backends

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sreeramp-official/solana-token-app/internal/config"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
	chstore "github.com/sreeramp-official/solana-token-app/internal/storage/clickhouse"
	"github.com/sreeramp-official/solana-token-app/internal/storage/memory"
	"github.com/sreeramp-official/solana-token-app/internal/storage/migrations"
	pgstore "github.com/sreeramp-official/solana-token-app/internal/storage/postgres"
)

// Stores holds the registry and operation log backends.
type Stores struct {
	Registry   storage.TokenRegistry
	Operations storage.OperationLog
}

// Open creates the stores for cfg. The returned cleanup closes any
// database connections.
//
// With the postgres backend, a ClickHouse DSN adds an analytics copy of the
// operation log.
func Open(ctx context.Context, cfg config.Storage, logger *log.Logger) (*Stores, func(), error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[storage] ", log.LstdFlags|log.Lshortfile)
	}

	if cfg.Backend == config.StorageMemory {
		return &Stores{
			Registry:   memory.NewTokenRegistry(),
			Operations: memory.NewOperationLog(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Println("PostgreSQL migrations applied")
	}

	st := &Stores{
		Registry:   pgstore.NewTokenRegistry(pool),
		Operations: pgstore.NewOperationLog(pool),
	}
	if cfg.ClickhouseDSN == "" {
		return st, pool.Close, nil
	}

	// ClickHouse
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	st.Operations = storage.NewMirroredOperationLog(st.Operations, chstore.NewOperationLog(chConn), logger)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}
