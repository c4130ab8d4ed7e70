package hierarchyloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const loadersKey ctxKey = "hierarchyLoaders"

// Loaders batch hierarchy lookups made while serving one request.
type Loaders struct {
	systems   *dataloader.Loader
	modules   *dataloader.Loader
	scenarios *dataloader.Loader
}

// Names are the display names of a test case's hierarchy.
type Names struct {
	SystemName   string `json:"systemName,omitempty"`
	ModuleName   string `json:"moduleName,omitempty"`
	ScenarioName string `json:"scenarioName,omitempty"`
}

func New(repos repository.Repos) *Loaders {
	return &Loaders{
		systems: newLoader(repos.Systems.GetByIDs, func(s domain.System) (int64, string) {
			return s.ID, s.Name
		}),
		modules: newLoader(repos.Modules.GetByIDs, func(m domain.Module) (int64, string) {
			return m.ID, m.Name
		}),
		scenarios: newLoader(repos.Scenarios.GetByIDs, func(s domain.Scenario) (int64, string) {
			return s.ID, s.Name
		}),
	}
}

func newLoader[T any](fetch func(context.Context, []int64) ([]T, error), name func(T) (int64, string)) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid id %q: %w", k.String(), err)}}
			}
			ids[i] = id
		}

		items, err := fetch(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		names := make(map[int64]string, len(items))
		for _, item := range items {
			id, n := name(item)
			names[id] = n
		}

		// Results must follow key order; unknown ids resolve to "".
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: names[id]}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(2*time.Millisecond))
}

func key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

type pending struct {
	system, module, scenario dataloader.Thunk
}

// Prime schedules the lookups for ref. Calling the returned function waits
// for the batch and yields the names. Priming every row before resolving any
// of them lets the loaders fetch each level in one query.
func (l *Loaders) Prime(ctx context.Context, ref domain.HierarchyRef) func() (Names, error) {
	var p pending
	if ref.SystemID != nil {
		p.system = l.systems.Load(ctx, key(*ref.SystemID))
	}
	if ref.ModuleID != nil {
		p.module = l.modules.Load(ctx, key(*ref.ModuleID))
	}
	if ref.ScenarioID != nil {
		p.scenario = l.scenarios.Load(ctx, key(*ref.ScenarioID))
	}
	return func() (Names, error) {
		var names Names
		var err error
		if names.SystemName, err = resolve(p.system); err != nil {
			return names, err
		}
		if names.ModuleName, err = resolve(p.module); err != nil {
			return names, err
		}
		names.ScenarioName, err = resolve(p.scenario)
		return names, err
	}
}

// Resolve loads the names of a single ref.
func (l *Loaders) Resolve(ctx context.Context, ref domain.HierarchyRef) (Names, error) {
	return l.Prime(ctx, ref)()
}

func resolve(thunk dataloader.Thunk) (string, error) {
	if thunk == nil {
		return "", nil
	}
	data, err := thunk()
	if err != nil {
		return "", err
	}
	name, _ := data.(string)
	return name, nil
}

// WithLoaders stores loaders on ctx.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// FromContext returns the request loaders, or nil.
func FromContext(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return l
	}
	return nil
}
