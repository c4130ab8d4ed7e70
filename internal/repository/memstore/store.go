// Package memstore is an in-process implementation of repository.Store. It
// enforces the same uniqueness rules as the Postgres schema and gives
// WithinTx all-or-nothing semantics by working on a copy of the data.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"
)

type state struct {
	nextID     int64
	systems    map[int64]domain.System
	modules    map[int64]domain.Module
	scenarios  map[int64]domain.Scenario
	testCases  map[int64]domain.TestCase
	importLogs []domain.ImportLogEntry
}

func newState() *state {
	return &state{
		systems:   map[int64]domain.System{},
		modules:   map[int64]domain.Module{},
		scenarios: map[int64]domain.Scenario{},
		testCases: map[int64]domain.TestCase{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.systems {
		c.systems[k] = v
	}
	for k, v := range s.modules {
		c.modules[k] = v
	}
	for k, v := range s.scenarios {
		c.scenarios[k] = v
	}
	for k, v := range s.testCases {
		c.testCases[k] = v.Clone()
	}
	c.importLogs = append([]domain.ImportLogEntry(nil), s.importLogs...)
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps all records in memory.
type Store struct {
	mu   sync.Mutex
	data *state
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState()}
}

var _ repository.Store = (*Store)(nil)

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repos {
	return reposFor(&view{store: s})
}

// WithinTx serialises transactions and commits the working copy only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(reposFor(&view{tx: work})); err != nil {
		return err
	}
	s.data = work
	return nil
}

// ImportLogs returns the import log repository.
func (s *Store) ImportLogs() repository.ImportLogRepository {
	return &importLogs{view: &view{store: s}}
}

// view runs an operation either against a transaction's working copy or
// against the live data under the store lock.
type view struct {
	store *Store
	tx    *state
}

func (v *view) do(fn func(*state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func reposFor(v *view) repository.Repos {
	return repository.Repos{
		Systems:   &systems{v},
		Modules:   &modules{v},
		Scenarios: &scenarios{v},
		TestCases: &testCases{v},
	}
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, repository.ErrNotFound)
}

func duplicate(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, repository.ErrDuplicate)
}

type systems struct{ *view }

func (r *systems) Create(ctx context.Context, system domain.System) (domain.System, error) {
	err := r.do(func(st *state) error {
		for _, existing := range st.systems {
			if existing.Name == system.Name {
				return duplicate("system", system.Name)
			}
		}
		now := time.Now()
		system.ID = st.id()
		system.CreatedAt, system.UpdatedAt = now, now
		st.systems[system.ID] = system
		return nil
	})
	return system, err
}

func (r *systems) GetByID(ctx context.Context, id int64) (domain.System, error) {
	var found domain.System
	err := r.do(func(st *state) error {
		s, ok := st.systems[id]
		if !ok {
			return notFound("system", id)
		}
		found = s
		return nil
	})
	return found, err
}

func (r *systems) GetByIDs(ctx context.Context, ids []int64) ([]domain.System, error) {
	out := []domain.System{}
	err := r.do(func(st *state) error {
		for _, id := range ids {
			if s, ok := st.systems[id]; ok {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

func (r *systems) FindByName(ctx context.Context, name string) (domain.System, error) {
	var found domain.System
	err := r.do(func(st *state) error {
		for _, s := range st.systems {
			if s.Name == name {
				found = s
				return nil
			}
		}
		return notFound("system", name)
	})
	return found, err
}

func (r *systems) List(ctx context.Context) ([]domain.System, error) {
	out := []domain.System{}
	err := r.do(func(st *state) error {
		for _, s := range st.systems {
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *systems) Update(ctx context.Context, system domain.System) (domain.System, error) {
	var updated domain.System
	err := r.do(func(st *state) error {
		current, ok := st.systems[system.ID]
		if !ok {
			return notFound("system", system.ID)
		}
		for id, other := range st.systems {
			if id != system.ID && other.Name == system.Name {
				return duplicate("system", system.Name)
			}
		}
		current.Name = system.Name
		current.Description = system.Description
		current.UpdatedAt = time.Now()
		st.systems[system.ID] = current
		updated = current
		return nil
	})
	return updated, err
}

func (r *systems) Delete(ctx context.Context, id int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.systems[id]; !ok {
			return notFound("system", id)
		}
		for _, m := range st.modules {
			if m.SystemID == id {
				return fmt.Errorf("system %d: %w", id, repository.ErrHasDependents)
			}
		}
		delete(st.systems, id)
		for tcID, tc := range st.testCases {
			if tc.SystemID != nil && *tc.SystemID == id {
				tc.SystemID = nil
				st.testCases[tcID] = tc
			}
		}
		return nil
	})
}

func (r *systems) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.do(func(st *state) error {
		count = int64(len(st.systems))
		return nil
	})
	return count, err
}

type modules struct{ *view }

func (r *modules) Create(ctx context.Context, module domain.Module) (domain.Module, error) {
	err := r.do(func(st *state) error {
		if _, ok := st.systems[module.SystemID]; !ok {
			return fmt.Errorf("system %d: %w", module.SystemID, repository.ErrNotFound)
		}
		for _, existing := range st.modules {
			if existing.SystemID == module.SystemID && existing.Name == module.Name {
				return duplicate("module", module.Name)
			}
		}
		now := time.Now()
		module.ID = st.id()
		module.CreatedAt, module.UpdatedAt = now, now
		st.modules[module.ID] = module
		return nil
	})
	return module, err
}

func (r *modules) GetByID(ctx context.Context, id int64) (domain.Module, error) {
	var found domain.Module
	err := r.do(func(st *state) error {
		m, ok := st.modules[id]
		if !ok {
			return notFound("module", id)
		}
		found = m
		return nil
	})
	return found, err
}

func (r *modules) GetByIDs(ctx context.Context, ids []int64) ([]domain.Module, error) {
	out := []domain.Module{}
	err := r.do(func(st *state) error {
		for _, id := range ids {
			if m, ok := st.modules[id]; ok {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *modules) FindByName(ctx context.Context, systemID int64, name string) (domain.Module, error) {
	var found domain.Module
	err := r.do(func(st *state) error {
		for _, m := range st.modules {
			if m.SystemID == systemID && m.Name == name {
				found = m
				return nil
			}
		}
		return notFound("module", name)
	})
	return found, err
}

func (r *modules) ListBySystem(ctx context.Context, systemID int64) ([]domain.Module, error) {
	out := []domain.Module{}
	err := r.do(func(st *state) error {
		for _, m := range st.modules {
			if m.SystemID == systemID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *modules) Update(ctx context.Context, module domain.Module) (domain.Module, error) {
	var updated domain.Module
	err := r.do(func(st *state) error {
		current, ok := st.modules[module.ID]
		if !ok {
			return notFound("module", module.ID)
		}
		for id, other := range st.modules {
			if id != module.ID && other.SystemID == current.SystemID && other.Name == module.Name {
				return duplicate("module", module.Name)
			}
		}
		current.Name = module.Name
		current.Description = module.Description
		current.UpdatedAt = time.Now()
		st.modules[module.ID] = current
		updated = current
		return nil
	})
	return updated, err
}

func (r *modules) Delete(ctx context.Context, id int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.modules[id]; !ok {
			return notFound("module", id)
		}
		for _, s := range st.scenarios {
			if s.ModuleID == id {
				return fmt.Errorf("module %d: %w", id, repository.ErrHasDependents)
			}
		}
		delete(st.modules, id)
		for tcID, tc := range st.testCases {
			if tc.ModuleID != nil && *tc.ModuleID == id {
				tc.ModuleID = nil
				st.testCases[tcID] = tc
			}
		}
		return nil
	})
}

type scenarios struct{ *view }

func (r *scenarios) Create(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error) {
	err := r.do(func(st *state) error {
		if _, ok := st.modules[scenario.ModuleID]; !ok {
			return fmt.Errorf("module %d: %w", scenario.ModuleID, repository.ErrNotFound)
		}
		for _, existing := range st.scenarios {
			if existing.ModuleID == scenario.ModuleID && existing.Name == scenario.Name {
				return duplicate("scenario", scenario.Name)
			}
		}
		now := time.Now()
		scenario.ID = st.id()
		scenario.CreatedAt, scenario.UpdatedAt = now, now
		st.scenarios[scenario.ID] = scenario
		return nil
	})
	return scenario, err
}

func (r *scenarios) GetByID(ctx context.Context, id int64) (domain.Scenario, error) {
	var found domain.Scenario
	err := r.do(func(st *state) error {
		s, ok := st.scenarios[id]
		if !ok {
			return notFound("scenario", id)
		}
		found = s
		return nil
	})
	return found, err
}

func (r *scenarios) GetByIDs(ctx context.Context, ids []int64) ([]domain.Scenario, error) {
	out := []domain.Scenario{}
	err := r.do(func(st *state) error {
		for _, id := range ids {
			if s, ok := st.scenarios[id]; ok {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

func (r *scenarios) FindByName(ctx context.Context, moduleID int64, name string) (domain.Scenario, error) {
	var found domain.Scenario
	err := r.do(func(st *state) error {
		for _, s := range st.scenarios {
			if s.ModuleID == moduleID && s.Name == name {
				found = s
				return nil
			}
		}
		return notFound("scenario", name)
	})
	return found, err
}

func (r *scenarios) ListByModule(ctx context.Context, moduleID int64) ([]domain.Scenario, error) {
	out := []domain.Scenario{}
	err := r.do(func(st *state) error {
		for _, s := range st.scenarios {
			if s.ModuleID == moduleID {
				out = append(out, s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *scenarios) Update(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error) {
	var updated domain.Scenario
	err := r.do(func(st *state) error {
		current, ok := st.scenarios[scenario.ID]
		if !ok {
			return notFound("scenario", scenario.ID)
		}
		for id, other := range st.scenarios {
			if id != scenario.ID && other.ModuleID == current.ModuleID && other.Name == scenario.Name {
				return duplicate("scenario", scenario.Name)
			}
		}
		current.Name = scenario.Name
		current.Description = scenario.Description
		current.UpdatedAt = time.Now()
		st.scenarios[scenario.ID] = current
		updated = current
		return nil
	})
	return updated, err
}

func (r *scenarios) Delete(ctx context.Context, id int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.scenarios[id]; !ok {
			return notFound("scenario", id)
		}
		delete(st.scenarios, id)
		for tcID, tc := range st.testCases {
			if tc.ScenarioID != nil && *tc.ScenarioID == id {
				tc.ScenarioID = nil
				st.testCases[tcID] = tc
			}
		}
		return nil
	})
}

type testCases struct{ *view }

func (r *testCases) Create(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error) {
	testCase = testCase.ApplyDefaults().Clone()
	if testCase.Source == "" {
		testCase.Source = domain.SourceManual
	}
	err := r.do(func(st *state) error {
		now := time.Now()
		testCase.ID = st.id()
		testCase.CreatedAt, testCase.UpdatedAt = now, now
		st.testCases[testCase.ID] = testCase.Clone()
		return nil
	})
	return testCase, err
}

func (r *testCases) GetByID(ctx context.Context, id int64) (domain.TestCase, error) {
	var found domain.TestCase
	err := r.do(func(st *state) error {
		tc, ok := st.testCases[id]
		if !ok {
			return notFound("test case", id)
		}
		found = tc.Clone()
		return nil
	})
	return found, err
}

func (r *testCases) FindByTitle(ctx context.Context, title string) (domain.TestCase, error) {
	var found domain.TestCase
	err := r.do(func(st *state) error {
		var best *domain.TestCase
		for _, tc := range st.testCases {
			if tc.Title != title {
				continue
			}
			if best == nil || tc.ID < best.ID {
				candidate := tc
				best = &candidate
			}
		}
		if best == nil {
			return notFound("test case", title)
		}
		found = best.Clone()
		return nil
	})
	return found, err
}

func (r *testCases) CountByTitle(ctx context.Context, title string) (int64, error) {
	var count int64
	err := r.do(func(st *state) error {
		for _, tc := range st.testCases {
			if tc.Title == title {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *testCases) List(ctx context.Context, filter repository.TestCaseFilter) ([]domain.TestCase, int, error) {
	matches := []domain.TestCase{}
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	err := r.do(func(st *state) error {
		for _, tc := range st.testCases {
			if !sameID(filter.SystemID, tc.SystemID) || !sameID(filter.ModuleID, tc.ModuleID) || !sameID(filter.ScenarioID, tc.ScenarioID) {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(tc.Title), query) {
				continue
			}
			matches = append(matches, tc.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	total := len(matches)
	if filter.Offset > 0 {
		if filter.Offset >= len(matches) {
			matches = []domain.TestCase{}
		} else {
			matches = matches[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, total, nil
}

func sameID(want, got *int64) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

func (r *testCases) Update(ctx context.Context, testCase domain.TestCase) (domain.TestCase, error) {
	testCase = testCase.ApplyDefaults().Clone()
	err := r.do(func(st *state) error {
		current, ok := st.testCases[testCase.ID]
		if !ok {
			return notFound("test case", testCase.ID)
		}
		testCase.Source = current.Source
		testCase.CreatedAt = current.CreatedAt
		testCase.UpdatedAt = time.Now()
		st.testCases[testCase.ID] = testCase.Clone()
		return nil
	})
	return testCase, err
}

func (r *testCases) Delete(ctx context.Context, id int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.testCases[id]; !ok {
			return notFound("test case", id)
		}
		delete(st.testCases, id)
		return nil
	})
}

type importLogs struct{ *view }

func (r *importLogs) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	return r.do(func(st *state) error {
		entry.ID = st.id()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		st.importLogs = append(st.importLogs, entry)
		return nil
	})
}

func (r *importLogs) List(ctx context.Context, jobID string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	out := []domain.ImportLogEntry{}
	err := r.do(func(st *state) error {
		skipped := 0
		for _, entry := range st.importLogs {
			if entry.JobID != jobID {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			if len(out) >= limit {
				break
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}
