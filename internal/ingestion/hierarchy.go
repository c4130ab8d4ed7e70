package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"
)

// HierarchyNames are the trimmed system/module/scenario names of a row.
type HierarchyNames struct {
	System   string
	Module   string
	Scenario string
}

// Names returns the hierarchy names referenced by the row.
func (r RawRow) Names() HierarchyNames {
	return HierarchyNames{System: r.System, Module: r.Module, Scenario: r.Scenario}
}

// ResolveHierarchy finds or creates each named level using repos, which are
// expected to be bound to the caller's transaction. A level resolves only
// when its parent did, so child ids always derive from the resolved parent.
func ResolveHierarchy(ctx context.Context, repos repository.Repos, names HierarchyNames) (domain.HierarchyRef, error) {
	var ref domain.HierarchyRef
	if names.System == "" {
		return ref, nil
	}

	system, err := findOrCreate(
		func() (domain.System, error) { return repos.Systems.FindByName(ctx, names.System) },
		func() (domain.System, error) {
			return repos.Systems.Create(ctx, domain.NewSystem(names.System, ""))
		},
	)
	if err != nil {
		return ref, fmt.Errorf("resolve system %q: %w", names.System, err)
	}
	ref.SystemID = &system.ID

	if names.Module == "" {
		return ref, nil
	}
	module, err := findOrCreate(
		func() (domain.Module, error) { return repos.Modules.FindByName(ctx, system.ID, names.Module) },
		func() (domain.Module, error) {
			return repos.Modules.Create(ctx, domain.NewModule(system.ID, names.Module, ""))
		},
	)
	if err != nil {
		return ref, fmt.Errorf("resolve module %q: %w", names.Module, err)
	}
	ref.ModuleID = &module.ID

	if names.Scenario == "" {
		return ref, nil
	}
	scenario, err := findOrCreate(
		func() (domain.Scenario, error) { return repos.Scenarios.FindByName(ctx, module.ID, names.Scenario) },
		func() (domain.Scenario, error) {
			return repos.Scenarios.Create(ctx, domain.NewScenario(module.ID, names.Scenario, ""))
		},
	)
	if err != nil {
		return ref, fmt.Errorf("resolve scenario %q: %w", names.Scenario, err)
	}
	ref.ScenarioID = &scenario.ID

	return ref, nil
}

// findOrCreate looks an entity up and creates it when missing. A create that
// loses a uniqueness race re-reads the winner; any other create failure, or a
// race whose winner cannot be read, returns the create error.
func findOrCreate[T any](find func() (T, error), create func() (T, error)) (T, error) {
	var zero T

	found, err := find()
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return zero, err
	}

	created, createErr := create()
	if createErr == nil {
		return created, nil
	}
	if !errors.Is(createErr, repository.ErrDuplicate) {
		return zero, createErr
	}

	winner, err := find()
	if err != nil {
		return zero, createErr
	}
	return winner, nil
}
