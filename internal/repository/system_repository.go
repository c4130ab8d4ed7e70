package repository

import (
	"context"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
)

const systemColumns = `id, name, description, created_at, updated_at`

type systemRepository struct {
	db db.DBTX
}

// NewSystemRepository creates a new system repository
func NewSystemRepository(q db.DBTX) SystemRepository {
	return &systemRepository{db: q}
}

func scanSystem(row pgx.Row) (domain.System, error) {
	var s domain.System
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *systemRepository) Create(ctx context.Context, system domain.System) (domain.System, error) {
	var created domain.System
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		created, scanErr = scanSystem(q.QueryRow(ctx,
			`INSERT INTO systems (name, description) VALUES ($1, $2) RETURNING `+systemColumns,
			system.Name, system.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.System{}, classify(err, fmt.Sprintf("create system %q", system.Name))
	}
	return created, nil
}

func (r *systemRepository) GetByID(ctx context.Context, id int64) (domain.System, error) {
	s, err := scanSystem(r.db.QueryRow(ctx, `SELECT `+systemColumns+` FROM systems WHERE id = $1`, id))
	if err != nil {
		return domain.System{}, classify(err, fmt.Sprintf("get system %d", id))
	}
	return s, nil
}

func (r *systemRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.System, error) {
	if len(ids) == 0 {
		return []domain.System{}, nil
	}
	return r.list(ctx, `SELECT `+systemColumns+` FROM systems WHERE id = ANY($1) ORDER BY id`, ids)
}

func (r *systemRepository) FindByName(ctx context.Context, name string) (domain.System, error) {
	s, err := scanSystem(r.db.QueryRow(ctx, `SELECT `+systemColumns+` FROM systems WHERE name = $1`, name))
	if err != nil {
		return domain.System{}, classify(err, fmt.Sprintf("find system %q", name))
	}
	return s, nil
}

func (r *systemRepository) List(ctx context.Context) ([]domain.System, error) {
	return r.list(ctx, `SELECT `+systemColumns+` FROM systems ORDER BY name`)
}

func (r *systemRepository) list(ctx context.Context, query string, args ...any) ([]domain.System, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list systems")
	}
	defer rows.Close()

	systems := []domain.System{}
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		systems = append(systems, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate systems: %w", err)
	}
	return systems, nil
}

func (r *systemRepository) Update(ctx context.Context, system domain.System) (domain.System, error) {
	var updated domain.System
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		updated, scanErr = scanSystem(q.QueryRow(ctx,
			`UPDATE systems SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING `+systemColumns,
			system.ID, system.Name, system.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.System{}, classify(err, fmt.Sprintf("update system %d", system.ID))
	}
	return updated, nil
}

func (r *systemRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "systems", id)
}

func (r *systemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM systems`).Scan(&count); err != nil {
		return 0, classify(err, "count systems")
	}
	return count, nil
}

// deleteByID removes one row by primary key, reporting ErrNotFound when the
// row does not exist.
func deleteByID(ctx context.Context, q db.DBTX, table string, id int64) error {
	var affected int64
	err := guarded(ctx, q, func(tx db.DBTX) error {
		tag, execErr := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return execErr
	})
	if err != nil {
		return classify(err, fmt.Sprintf("delete %s %d", table, id))
	}
	if affected == 0 {
		return fmt.Errorf("delete %s %d: %w", table, id, ErrNotFound)
	}
	return nil
}
