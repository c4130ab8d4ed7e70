package repository

import (
	"context"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
)

const moduleColumns = `id, system_id, name, description, created_at, updated_at`

type moduleRepository struct {
	db db.DBTX
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(q db.DBTX) ModuleRepository {
	return &moduleRepository{db: q}
}

func scanModule(row pgx.Row) (domain.Module, error) {
	var m domain.Module
	err := row.Scan(&m.ID, &m.SystemID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *moduleRepository) Create(ctx context.Context, module domain.Module) (domain.Module, error) {
	var created domain.Module
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		created, scanErr = scanModule(q.QueryRow(ctx,
			`INSERT INTO modules (system_id, name, description) VALUES ($1, $2, $3) RETURNING `+moduleColumns,
			module.SystemID, module.Name, module.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.Module{}, classify(err, fmt.Sprintf("create module %q in system %d", module.Name, module.SystemID))
	}
	return created, nil
}

func (r *moduleRepository) GetByID(ctx context.Context, id int64) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRow(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id))
	if err != nil {
		return domain.Module{}, classify(err, fmt.Sprintf("get module %d", id))
	}
	return m, nil
}

func (r *moduleRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Module, error) {
	if len(ids) == 0 {
		return []domain.Module{}, nil
	}
	return r.list(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = ANY($1) ORDER BY id`, ids)
}

func (r *moduleRepository) FindByName(ctx context.Context, systemID int64, name string) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRow(ctx,
		`SELECT `+moduleColumns+` FROM modules WHERE system_id = $1 AND name = $2`, systemID, name))
	if err != nil {
		return domain.Module{}, classify(err, fmt.Sprintf("find module %q in system %d", name, systemID))
	}
	return m, nil
}

func (r *moduleRepository) ListBySystem(ctx context.Context, systemID int64) ([]domain.Module, error) {
	return r.list(ctx, `SELECT `+moduleColumns+` FROM modules WHERE system_id = $1 ORDER BY name`, systemID)
}

func (r *moduleRepository) list(ctx context.Context, query string, args ...any) ([]domain.Module, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list modules")
	}
	defer rows.Close()

	modules := []domain.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modules: %w", err)
	}
	return modules, nil
}

func (r *moduleRepository) Update(ctx context.Context, module domain.Module) (domain.Module, error) {
	var updated domain.Module
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		updated, scanErr = scanModule(q.QueryRow(ctx,
			`UPDATE modules SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING `+moduleColumns,
			module.ID, module.Name, module.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.Module{}, classify(err, fmt.Sprintf("update module %d", module.ID))
	}
	return updated, nil
}

func (r *moduleRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "modules", id)
}
