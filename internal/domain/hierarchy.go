package domain

import "time"

// System is the top level of the test-case hierarchy.
type System struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Module belongs to exactly one System.
type Module struct {
	ID          int64     `json:"id"`
	SystemID    int64     `json:"systemId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Scenario belongs to exactly one Module.
type Scenario struct {
	ID          int64     `json:"id"`
	ModuleID    int64     `json:"moduleId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewSystem creates a system ready for persistence.
func NewSystem(name, description string) System {
	now := time.Now()
	return System{Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
}

// NewModule creates a module scoped to systemID.
func NewModule(systemID int64, name, description string) Module {
	now := time.Now()
	return Module{SystemID: systemID, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
}

// NewScenario creates a scenario scoped to moduleID.
func NewScenario(moduleID int64, name, description string) Scenario {
	now := time.Now()
	return Scenario{ModuleID: moduleID, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
}

// HierarchyRef carries the resolved hierarchy ids for a test case. A nil id
// means the level is unset; a level is never set without its ancestor.
type HierarchyRef struct {
	SystemID   *int64 `json:"systemId,omitempty"`
	ModuleID   *int64 `json:"moduleId,omitempty"`
	ScenarioID *int64 `json:"scenarioId,omitempty"`
}

// Consistent reports whether lower levels are only set together with their ancestors.
func (h HierarchyRef) Consistent() bool {
	if h.ScenarioID != nil && h.ModuleID == nil {
		return false
	}
	if h.ModuleID != nil && h.SystemID == nil {
		return false
	}
	return true
}
