package domain

import (
	"strings"
	"time"
)

// Priority ranks a test case.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// DefaultPriority applies when a priority is absent or unrecognised.
const DefaultPriority = PriorityMedium

// Valid reports whether p is one of the canonical priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the execution state of a test case.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// DefaultStatus applies when a status is absent or unrecognised.
const DefaultStatus = StatusPending

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPassed, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// SourceManual marks test cases created by hand or by spreadsheet import.
const SourceManual = "manual"

var prioritySynonyms = map[string]Priority{
	"low":    PriorityLow,
	"l":      PriorityLow,
	"低":      PriorityLow,
	"低优先级":   PriorityLow,
	"medium": PriorityMedium,
	"m":      PriorityMedium,
	"中":      PriorityMedium,
	"中等":     PriorityMedium,
	"中优先级":   PriorityMedium,
	"high":   PriorityHigh,
	"h":      PriorityHigh,
	"高":      PriorityHigh,
	"高优先级":   PriorityHigh,
}

var statusSynonyms = map[string]Status{
	"pending": StatusPending,
	"待执行":     StatusPending,
	"未执行":     StatusPending,
	"待测试":     StatusPending,
	"passed":  StatusPassed,
	"pass":    StatusPassed,
	"通过":      StatusPassed,
	"已通过":     StatusPassed,
	"failed":  StatusFailed,
	"fail":    StatusFailed,
	"失败":      StatusFailed,
	"未通过":     StatusFailed,
	"skipped": StatusSkipped,
	"skip":    StatusSkipped,
	"跳过":      StatusSkipped,
	"已跳过":     StatusSkipped,
}

// ParsePriority maps free text to a canonical priority. Matching is
// case-insensitive over English tokens and the localized synonyms.
func ParsePriority(raw string) (Priority, bool) {
	p, ok := prioritySynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// NormalizePriority is ParsePriority with the documented fallback.
func NormalizePriority(raw string) Priority {
	if p, ok := ParsePriority(raw); ok {
		return p
	}
	return DefaultPriority
}

// ParseStatus maps free text to a canonical status.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// NormalizeStatus is ParseStatus with the documented fallback.
func NormalizeStatus(raw string) Status {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return DefaultStatus
}

// TestCase is a single manual test case.
type TestCase struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Preconditions  string    `json:"preconditions"`
	Steps          string    `json:"steps"`
	ExpectedResult string    `json:"expectedResult"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Tags           []string  `json:"tags,omitempty"`
	SystemID       *int64    `json:"systemId,omitempty"`
	ModuleID       *int64    `json:"moduleId,omitempty"`
	ScenarioID     *int64    `json:"scenarioId,omitempty"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Hierarchy returns the hierarchy ids of the test case.
func (t TestCase) Hierarchy() HierarchyRef {
	return HierarchyRef{SystemID: t.SystemID, ModuleID: t.ModuleID, ScenarioID: t.ScenarioID}
}

// WithHierarchy returns a copy linked to ref.
func (t TestCase) WithHierarchy(ref HierarchyRef) TestCase {
	t.SystemID = ref.SystemID
	t.ModuleID = ref.ModuleID
	t.ScenarioID = ref.ScenarioID
	t.Tags = copyTags(t.Tags)
	return t
}

// Clone returns a deep copy.
func (t TestCase) Clone() TestCase {
	t.Tags = copyTags(t.Tags)
	t.SystemID = copyID(t.SystemID)
	t.ModuleID = copyID(t.ModuleID)
	t.ScenarioID = copyID(t.ScenarioID)
	return t
}

// ApplyDefaults fills in priority and status when unset.
func (t TestCase) ApplyDefaults() TestCase {
	if !t.Priority.Valid() {
		t.Priority = DefaultPriority
	}
	if !t.Status.Valid() {
		t.Status = DefaultStatus
	}
	return t
}

// SplitTags splits a comma separated tag cell. Both ASCII and full-width
// commas separate tags. A blank cell yields nil, never an empty slice.
func SplitTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '，' })
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func copyTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	return append([]string(nil), tags...)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
