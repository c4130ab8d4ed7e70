package repository

import (
	"context"

	"github.com/18061718791/AITestCraft-sub000/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires repositories backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repos() Repos {
	return reposFor(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repos) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(reposFor(tx))
	})
}

func (s *postgresStore) ImportLogs() ImportLogRepository {
	return NewImportLogRepository(s.pool)
}

func reposFor(q db.DBTX) Repos {
	return Repos{
		Systems:   NewSystemRepository(q),
		Modules:   NewModuleRepository(q),
		Scenarios: NewScenarioRepository(q),
		TestCases: NewTestCaseRepository(q),
	}
}

// guarded runs a single write inside a savepoint so that a constraint
// violation does not poison an enclosing transaction.
func guarded(ctx context.Context, q db.DBTX, fn func(db.DBTX) error) error {
	return db.WithTx(ctx, q, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
