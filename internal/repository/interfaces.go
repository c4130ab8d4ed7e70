package repository

import (
	"context"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
)

// SystemRepository defines the interface for system operations
type SystemRepository interface {
	Create(ctx context.Context, system domain.System) (domain.System, error)
	GetByID(ctx context.Context, id int64) (domain.System, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.System, error)
	FindByName(ctx context.Context, name string) (domain.System, error)
	List(ctx context.Context) ([]domain.System, error)
	Update(ctx context.Context, system domain.System) (domain.System, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// ModuleRepository defines the interface for module operations. Names are
// unique per system.
type ModuleRepository interface {
	Create(ctx context.Context, module domain.Module) (domain.Module, error)
	GetByID(ctx context.Context, id int64) (domain.Module, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Module, error)
	FindByName(ctx context.Context, systemID int64, name string) (domain.Module, error)
	ListBySystem(ctx context.Context, systemID int64) ([]domain.Module, error)
	Update(ctx context.Context, module domain.Module) (domain.Module, error)
	Delete(ctx context.Context, id int64) error
}

// ScenarioRepository defines the interface for scenario operations. Names are
// unique per module.
type ScenarioRepository interface {
	Create(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error)
	GetByID(ctx context.Context, id int64) (domain.Scenario, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Scenario, error)
	FindByName(ctx context.Context, moduleID int64, name string) (domain.Scenario, error)
	ListByModule(ctx context.Context, moduleID int64) ([]domain.Scenario, error)
	Update(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error)
	Delete(ctx context.Context, id int64) error
}

// TestCaseFilter narrows test case listings.
type TestCaseFilter struct {
	SystemID   *int64
	ModuleID   *int64
	ScenarioID *int64
	Query      string
	Limit      int
	Offset     int
}

// TestCaseRepository defines the interface for test case operations
type TestCaseRepository interface {
	Create(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error)
	GetByID(ctx context.Context, id int64) (domain.TestCase, error)
	// FindByTitle returns the oldest test case with exactly this title.
	FindByTitle(ctx context.Context, title string) (domain.TestCase, error)
	CountByTitle(ctx context.Context, title string) (int64, error)
	List(ctx context.Context, filter TestCaseFilter) ([]domain.TestCase, int, error)
	Update(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error)
	Delete(ctx context.Context, id int64) error
}

// ImportLogRepository stores import errors for auditing.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, jobID string, limit int, offset int) ([]domain.ImportLogEntry, error)
}

// Repos bundles the repositories bound to one unit of work.
type Repos struct {
	Systems   SystemRepository
	Modules   ModuleRepository
	Scenarios ScenarioRepository
	TestCases TestCaseRepository
}

// Store is the persistence entry point used by services.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repos
	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repos) error) error
	ImportLogs() ImportLogRepository
}
