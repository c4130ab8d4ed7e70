// Package catalog manages the system → module → scenario hierarchy and the
// test cases filed under it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/hierarchyloader"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ErrInvalidInput wraps every request validation failure.
var ErrInvalidInput = errors.New("invalid input")

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service implements the catalog operations.
type Service struct {
	store    repository.Store
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewService creates a catalog service. A nil logger falls back to the
// standard logrus logger.
func NewService(store repository.Store, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.WithField("component", "catalog"),
	}
}

// HierarchyInput creates or renames a system, module or scenario.
type HierarchyInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// TestCaseInput creates or replaces a test case.
type TestCaseInput struct {
	Title          string   `json:"title" validate:"required,max=500"`
	Preconditions  string   `json:"preconditions"`
	Steps          string   `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Priority       string   `json:"priority"`
	Status         string   `json:"status"`
	Tags           []string `json:"tags" validate:"omitempty,dive,required,max=64"`
	SystemID       *int64   `json:"systemId" validate:"omitempty,gt=0"`
	ModuleID       *int64   `json:"moduleId" validate:"omitempty,gt=0"`
	ScenarioID     *int64   `json:"scenarioId" validate:"omitempty,gt=0"`
}

// TestCaseView is a test case with its hierarchy names.
type TestCaseView struct {
	domain.TestCase
	hierarchyloader.Names
}

// TestCasePage is one page of a listing.
type TestCasePage struct {
	Items []TestCaseView `json:"items"`
	Total int            `json:"total"`
}

func (s *Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

func (i HierarchyInput) trimmed() HierarchyInput {
	i.Name = strings.TrimSpace(i.Name)
	i.Description = strings.TrimSpace(i.Description)
	return i
}

func (s *Service) ListSystems(ctx context.Context) ([]domain.System, error) {
	return s.store.Repos().Systems.List(ctx)
}

func (s *Service) GetSystem(ctx context.Context, id int64) (domain.System, error) {
	return s.store.Repos().Systems.GetByID(ctx, id)
}

func (s *Service) CreateSystem(ctx context.Context, input HierarchyInput) (domain.System, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.System{}, err
	}
	return s.store.Repos().Systems.Create(ctx, domain.NewSystem(input.Name, input.Description))
}

func (s *Service) UpdateSystem(ctx context.Context, id int64, input HierarchyInput) (domain.System, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.System{}, err
	}
	return s.store.Repos().Systems.Update(ctx, domain.System{ID: id, Name: input.Name, Description: input.Description})
}

func (s *Service) DeleteSystem(ctx context.Context, id int64) error {
	return s.store.Repos().Systems.Delete(ctx, id)
}

func (s *Service) ListModules(ctx context.Context, systemID int64) ([]domain.Module, error) {
	repos := s.store.Repos()
	if _, err := repos.Systems.GetByID(ctx, systemID); err != nil {
		return nil, err
	}
	return repos.Modules.ListBySystem(ctx, systemID)
}

func (s *Service) CreateModule(ctx context.Context, systemID int64, input HierarchyInput) (domain.Module, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.Module{}, err
	}
	repos := s.store.Repos()
	if _, err := repos.Systems.GetByID(ctx, systemID); err != nil {
		return domain.Module{}, err
	}
	return repos.Modules.Create(ctx, domain.NewModule(systemID, input.Name, input.Description))
}

func (s *Service) UpdateModule(ctx context.Context, id int64, input HierarchyInput) (domain.Module, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.Module{}, err
	}
	return s.store.Repos().Modules.Update(ctx, domain.Module{ID: id, Name: input.Name, Description: input.Description})
}

func (s *Service) DeleteModule(ctx context.Context, id int64) error {
	return s.store.Repos().Modules.Delete(ctx, id)
}

func (s *Service) ListScenarios(ctx context.Context, moduleID int64) ([]domain.Scenario, error) {
	repos := s.store.Repos()
	if _, err := repos.Modules.GetByID(ctx, moduleID); err != nil {
		return nil, err
	}
	return repos.Scenarios.ListByModule(ctx, moduleID)
}

func (s *Service) CreateScenario(ctx context.Context, moduleID int64, input HierarchyInput) (domain.Scenario, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.Scenario{}, err
	}
	repos := s.store.Repos()
	if _, err := repos.Modules.GetByID(ctx, moduleID); err != nil {
		return domain.Scenario{}, err
	}
	return repos.Scenarios.Create(ctx, domain.NewScenario(moduleID, input.Name, input.Description))
}

func (s *Service) UpdateScenario(ctx context.Context, id int64, input HierarchyInput) (domain.Scenario, error) {
	input = input.trimmed()
	if err := s.check(input); err != nil {
		return domain.Scenario{}, err
	}
	return s.store.Repos().Scenarios.Update(ctx, domain.Scenario{ID: id, Name: input.Name, Description: input.Description})
}

func (s *Service) DeleteScenario(ctx context.Context, id int64) error {
	return s.store.Repos().Scenarios.Delete(ctx, id)
}

// ListTestCases returns one page of test cases with their hierarchy names.
func (s *Service) ListTestCases(ctx context.Context, filter repository.TestCaseFilter) (TestCasePage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	items, total, err := s.store.Repos().TestCases.List(ctx, filter)
	if err != nil {
		return TestCasePage{}, err
	}
	views, err := s.withNames(ctx, items)
	if err != nil {
		return TestCasePage{}, err
	}
	return TestCasePage{Items: views, Total: total}, nil
}

func (s *Service) GetTestCase(ctx context.Context, id int64) (TestCaseView, error) {
	tc, err := s.store.Repos().TestCases.GetByID(ctx, id)
	if err != nil {
		return TestCaseView{}, err
	}
	views, err := s.withNames(ctx, []domain.TestCase{tc})
	if err != nil {
		return TestCaseView{}, err
	}
	return views[0], nil
}

func (s *Service) CreateTestCase(ctx context.Context, input TestCaseInput) (domain.TestCase, error) {
	tc, err := s.buildTestCase(input)
	if err != nil {
		return domain.TestCase{}, err
	}
	var created domain.TestCase
	err = s.store.WithinTx(ctx, func(repos repository.Repos) error {
		if err := checkHierarchy(ctx, repos, tc.Hierarchy()); err != nil {
			return err
		}
		created, err = repos.TestCases.Create(ctx, tc)
		return err
	})
	return created, err
}

func (s *Service) UpdateTestCase(ctx context.Context, id int64, input TestCaseInput) (domain.TestCase, error) {
	tc, err := s.buildTestCase(input)
	if err != nil {
		return domain.TestCase{}, err
	}
	tc.ID = id
	var updated domain.TestCase
	err = s.store.WithinTx(ctx, func(repos repository.Repos) error {
		if err := checkHierarchy(ctx, repos, tc.Hierarchy()); err != nil {
			return err
		}
		updated, err = repos.TestCases.Update(ctx, tc)
		return err
	})
	return updated, err
}

func (s *Service) DeleteTestCase(ctx context.Context, id int64) error {
	return s.store.Repos().TestCases.Delete(ctx, id)
}

// BatchDeleteError reports why one id could not be deleted.
type BatchDeleteError struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// BatchDeleteResult summarizes a best-effort batch delete.
type BatchDeleteResult struct {
	Deleted int                `json:"deleted"`
	Failed  int                `json:"failed"`
	Errors  []BatchDeleteError `json:"errors"`
}

// BatchDelete removes each id independently; one failure never stops the rest.
func (s *Service) BatchDelete(ctx context.Context, ids []int64) (BatchDeleteResult, error) {
	if len(ids) == 0 {
		return BatchDeleteResult{}, fmt.Errorf("%w: ids must not be empty", ErrInvalidInput)
	}
	result := BatchDeleteResult{Errors: []BatchDeleteError{}}
	seen := make(map[int64]struct{}, len(ids))
	repo := s.store.Repos().TestCases
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		err := repo.Delete(ctx, id)
		switch {
		case err == nil:
			result.Deleted++
		case errors.Is(err, repository.ErrNotFound):
			result.Failed++
			result.Errors = append(result.Errors, BatchDeleteError{ID: id, Message: "test case not found"})
		case errors.Is(err, repository.ErrHasDependents):
			result.Failed++
			result.Errors = append(result.Errors, BatchDeleteError{ID: id, Message: "test case is still referenced"})
		default:
			s.logger.WithError(err).WithField("test_case_id", id).Warn("batch delete failed")
			result.Failed++
			result.Errors = append(result.Errors, BatchDeleteError{ID: id, Message: err.Error()})
		}
	}
	return result, nil
}

func (s *Service) buildTestCase(input TestCaseInput) (domain.TestCase, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.check(input); err != nil {
		return domain.TestCase{}, err
	}

	tc := domain.TestCase{
		Title:          input.Title,
		Preconditions:  input.Preconditions,
		Steps:          input.Steps,
		ExpectedResult: input.ExpectedResult,
		Priority:       domain.DefaultPriority,
		Status:         domain.DefaultStatus,
		SystemID:       input.SystemID,
		ModuleID:       input.ModuleID,
		ScenarioID:     input.ScenarioID,
		Source:         domain.SourceManual,
	}
	if strings.TrimSpace(input.Priority) != "" {
		p, ok := domain.ParsePriority(input.Priority)
		if !ok {
			return domain.TestCase{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, input.Priority)
		}
		tc.Priority = p
	}
	if strings.TrimSpace(input.Status) != "" {
		st, ok := domain.ParseStatus(input.Status)
		if !ok {
			return domain.TestCase{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
		}
		tc.Status = st
	}
	if len(input.Tags) > 0 {
		tc.Tags = make([]string, 0, len(input.Tags))
		for _, tag := range input.Tags {
			tc.Tags = append(tc.Tags, strings.TrimSpace(tag))
		}
	}
	if !tc.Hierarchy().Consistent() {
		return domain.TestCase{}, fmt.Errorf("%w: a module needs its system and a scenario needs its module", ErrInvalidInput)
	}
	return tc, nil
}

// checkHierarchy verifies that every referenced level exists and belongs to
// the referenced parent.
func checkHierarchy(ctx context.Context, repos repository.Repos, ref domain.HierarchyRef) error {
	if ref.SystemID != nil {
		if _, err := repos.Systems.GetByID(ctx, *ref.SystemID); err != nil {
			return hierarchyErr(err, "system %d does not exist", *ref.SystemID)
		}
	}
	if ref.ModuleID != nil {
		module, err := repos.Modules.GetByID(ctx, *ref.ModuleID)
		if err != nil {
			return hierarchyErr(err, "module %d does not exist", *ref.ModuleID)
		}
		if module.SystemID != *ref.SystemID {
			return fmt.Errorf("%w: module %d does not belong to system %d", ErrInvalidInput, module.ID, *ref.SystemID)
		}
	}
	if ref.ScenarioID != nil {
		scenario, err := repos.Scenarios.GetByID(ctx, *ref.ScenarioID)
		if err != nil {
			return hierarchyErr(err, "scenario %d does not exist", *ref.ScenarioID)
		}
		if scenario.ModuleID != *ref.ModuleID {
			return fmt.Errorf("%w: scenario %d does not belong to module %d", ErrInvalidInput, scenario.ID, *ref.ModuleID)
		}
	}
	return nil
}

func hierarchyErr(err error, format string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: "+format, ErrInvalidInput, id)
	}
	return err
}

func (s *Service) withNames(ctx context.Context, items []domain.TestCase) ([]TestCaseView, error) {
	loaders := hierarchyloader.FromContext(ctx)
	if loaders == nil {
		loaders = hierarchyloader.New(s.store.Repos())
	}

	waits := make([]func() (hierarchyloader.Names, error), len(items))
	for i, tc := range items {
		waits[i] = loaders.Prime(ctx, tc.Hierarchy())
	}
	views := make([]TestCaseView, len(items))
	for i, tc := range items {
		names, err := waits[i]()
		if err != nil {
			return nil, fmt.Errorf("load hierarchy names: %w", err)
		}
		views[i] = TestCaseView{TestCase: tc, Names: names}
	}
	return views, nil
}
