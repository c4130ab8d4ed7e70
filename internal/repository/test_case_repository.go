package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
)

const testCaseColumns = `id, title, preconditions, steps, expected_result, priority, status, tags,
	system_id, module_id, scenario_id, source, created_at, updated_at`

type testCaseRepository struct {
	db db.DBTX
}

// NewTestCaseRepository creates a new test case repository
func NewTestCaseRepository(q db.DBTX) TestCaseRepository {
	return &testCaseRepository{db: q}
}

func scanTestCase(row pgx.Row) (domain.TestCase, error) {
	var (
		tc       domain.TestCase
		priority string
		status   string
	)
	err := row.Scan(
		&tc.ID,
		&tc.Title,
		&tc.Preconditions,
		&tc.Steps,
		&tc.ExpectedResult,
		&priority,
		&status,
		&tc.Tags,
		&tc.SystemID,
		&tc.ModuleID,
		&tc.ScenarioID,
		&tc.Source,
		&tc.CreatedAt,
		&tc.UpdatedAt,
	)
	tc.Priority = domain.Priority(priority)
	tc.Status = domain.Status(status)
	return tc, err
}

func (r *testCaseRepository) Create(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error) {
	testCase = testCase.ApplyDefaults()
	if testCase.Source == "" {
		testCase.Source = domain.SourceManual
	}
	var created domain.TestCase
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		created, scanErr = scanTestCase(q.QueryRow(ctx,
			`INSERT INTO test_cases (title, preconditions, steps, expected_result, priority, status, tags,
				system_id, module_id, scenario_id, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING `+testCaseColumns,
			testCase.Title,
			testCase.Preconditions,
			testCase.Steps,
			testCase.ExpectedResult,
			string(testCase.Priority),
			string(testCase.Status),
			testCase.Tags,
			testCase.SystemID,
			testCase.ModuleID,
			testCase.ScenarioID,
			testCase.Source,
		))
		return scanErr
	})
	if err != nil {
		return domain.TestCase{}, classify(err, fmt.Sprintf("create test case %q", testCase.Title))
	}
	return created, nil
}

func (r *testCaseRepository) GetByID(ctx context.Context, id int64) (domain.TestCase, error) {
	tc, err := scanTestCase(r.db.QueryRow(ctx, `SELECT `+testCaseColumns+` FROM test_cases WHERE id = $1`, id))
	if err != nil {
		return domain.TestCase{}, classify(err, fmt.Sprintf("get test case %d", id))
	}
	return tc, nil
}

func (r *testCaseRepository) FindByTitle(ctx context.Context, title string) (domain.TestCase, error) {
	tc, err := scanTestCase(r.db.QueryRow(ctx,
		`SELECT `+testCaseColumns+` FROM test_cases WHERE title = $1 ORDER BY id LIMIT 1`, title))
	if err != nil {
		return domain.TestCase{}, classify(err, fmt.Sprintf("find test case %q", title))
	}
	return tc, nil
}

func (r *testCaseRepository) CountByTitle(ctx context.Context, title string) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM test_cases WHERE title = $1`, title).Scan(&count); err != nil {
		return 0, classify(err, "count test cases")
	}
	return count, nil
}

func (r *testCaseRepository) List(ctx context.Context, filter TestCaseFilter) ([]domain.TestCase, int, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.SystemID != nil {
		add("system_id = $%d", *filter.SystemID)
	}
	if filter.ModuleID != nil {
		add("module_id = $%d", *filter.ModuleID)
	}
	if filter.ScenarioID != nil {
		add("scenario_id = $%d", *filter.ScenarioID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("title ILIKE '%%' || $%d || '%%'", q)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM test_cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify(err, "count test cases")
	}

	query := `SELECT ` + testCaseColumns + ` FROM test_cases` + where + ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify(err, "list test cases")
	}
	defer rows.Close()

	testCases := []domain.TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan test case: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate test cases: %w", err)
	}
	return testCases, total, nil
}

func (r *testCaseRepository) Update(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error) {
	testCase = testCase.ApplyDefaults()
	var updated domain.TestCase
	err := guarded(ctx, r.db, func(q db.DBTX) error {
		var scanErr error
		updated, scanErr = scanTestCase(q.QueryRow(ctx,
			`UPDATE test_cases SET
				title = $2, preconditions = $3, steps = $4, expected_result = $5, priority = $6, status = $7,
				tags = $8, system_id = $9, module_id = $10, scenario_id = $11, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+testCaseColumns,
			testCase.ID,
			testCase.Title,
			testCase.Preconditions,
			testCase.Steps,
			testCase.ExpectedResult,
			string(testCase.Priority),
			string(testCase.Status),
			testCase.Tags,
			testCase.SystemID,
			testCase.ModuleID,
			testCase.ScenarioID,
		))
		return scanErr
	})
	if err != nil {
		return domain.TestCase{}, classify(err, fmt.Sprintf("update test case %d", testCase.ID))
	}
	return updated, nil
}

func (r *testCaseRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "test_cases", id)
}
