package repository

import (
	"context"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
)

const scenarioColumns = `id, module_id, name, description, created_at, updated_at`

type scenarioRepository struct {
	db db.DBTX
}

// NewScenarioRepository creates a new scenario repository
func NewScenarioRepository(q db.DBTX) ScenarioRepository {
	return &scenarioRepository{db: q}
}

func scanScenario(row pgx.Row) (domain.Scenario, error) {
	var s domain.Scenario
	err := row.Scan(&s.ID, &s.ModuleID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *scenarioRepository) Create(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error) {
	var created domain.Scenario
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		created, scanErr = scanScenario(q.QueryRow(ctx,
			`INSERT INTO scenarios (module_id, name, description) VALUES ($1, $2, $3) RETURNING `+scenarioColumns,
			scenario.ModuleID, scenario.Name, scenario.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.Scenario{}, classify(err, fmt.Sprintf("create scenario %q in module %d", scenario.Name, scenario.ModuleID))
	}
	return created, nil
}

func (r *scenarioRepository) GetByID(ctx context.Context, id int64) (domain.Scenario, error) {
	s, err := scanScenario(r.db.QueryRow(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = $1`, id))
	if err != nil {
		return domain.Scenario{}, classify(err, fmt.Sprintf("get scenario %d", id))
	}
	return s, nil
}

func (r *scenarioRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Scenario, error) {
	if len(ids) == 0 {
		return []domain.Scenario{}, nil
	}
	return r.list(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = ANY($1) ORDER BY id`, ids)
}

func (r *scenarioRepository) FindByName(ctx context.Context, moduleID int64, name string) (domain.Scenario, error) {
	s, err := scanScenario(r.db.QueryRow(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE module_id = $1 AND name = $2`, moduleID, name))
	if err != nil {
		return domain.Scenario{}, classify(err, fmt.Sprintf("find scenario %q in module %d", name, moduleID))
	}
	return s, nil
}

func (r *scenarioRepository) ListByModule(ctx context.Context, moduleID int64) ([]domain.Scenario, error) {
	return r.list(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE module_id = $1 ORDER BY name`, moduleID)
}

func (r *scenarioRepository) list(ctx context.Context, query string, args ...any) ([]domain.Scenario, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list scenarios")
	}
	defer rows.Close()

	scenarios := []domain.Scenario{}
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		scenarios = append(scenarios, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scenarios: %w", err)
	}
	return scenarios, nil
}

func (r *scenarioRepository) Update(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error) {
	var updated domain.Scenario
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		updated, scanErr = scanScenario(q.QueryRow(ctx,
			`UPDATE scenarios SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING `+scenarioColumns,
			scenario.ID, scenario.Name, scenario.Description,
		))
		return scanErr
	})
	if err != nil {
		return domain.Scenario{}, classify(err, fmt.Sprintf("update scenario %d", scenario.ID))
	}
	return updated, nil
}

func (r *scenarioRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "scenarios", id)
}
