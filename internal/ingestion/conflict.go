package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"
)

// ErrTitleExists is returned under the skip strategy when the title is taken.
var ErrTitleExists = errors.New("already exists, skipped")

// VersionSuffix is appended to the title of a new version.
const VersionSuffix = " (副本)"

// Outcome describes what happened to an imported row.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeVersioned Outcome = "versioned"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ResolveConflict persists candidate, applying strategy when a test case with
// the same title already exists. Titles are compared across all test cases.
func ResolveConflict(ctx context.Context, repos repository.Repos, candidate domain.TestCase, strategy domain.ConflictStrategy) (domain.TestCase, Outcome, error) {
	existing, err := repos.TestCases.FindByTitle(ctx, candidate.Title)
	if errors.Is(err, repository.ErrNotFound) {
		created, err := repos.TestCases.Create(ctx, candidate)
		if err != nil {
			return domain.TestCase{}, OutcomeFailed, fmt.Errorf("create test case: %w", err)
		}
		return created, OutcomeCreated, nil
	}
	if err != nil {
		return domain.TestCase{}, OutcomeFailed, fmt.Errorf("look up title: %w", err)
	}

	switch strategy {
	case domain.ConflictOverwrite:
		updated := existing
		updated.Preconditions = candidate.Preconditions
		updated.Steps = candidate.Steps
		updated.ExpectedResult = candidate.ExpectedResult
		updated.Priority = candidate.Priority
		updated.Status = candidate.Status
		updated.Tags = candidate.Tags
		updated = updated.WithHierarchy(candidate.Hierarchy())

		saved, err := repos.TestCases.Update(ctx, updated)
		if err != nil {
			return domain.TestCase{}, OutcomeFailed, fmt.Errorf("overwrite test case %d: %w", existing.ID, err)
		}
		return saved, OutcomeUpdated, nil

	case domain.ConflictNewVersion:
		version := candidate.Clone()
		version.Title = candidate.Title + VersionSuffix
		created, err := repos.TestCases.Create(ctx, version)
		if err != nil {
			return domain.TestCase{}, OutcomeFailed, fmt.Errorf("create new version: %w", err)
		}
		return created, OutcomeVersioned, nil

	case domain.ConflictSkip:
		return existing, OutcomeSkipped, fmt.Errorf("test case %q %w", candidate.Title, ErrTitleExists)

	default:
		return domain.TestCase{}, OutcomeFailed, fmt.Errorf("unknown conflict strategy %q", strategy)
	}
}
