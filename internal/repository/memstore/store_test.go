package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemNamesAreUnique(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	_, err := repos.Systems.Create(ctx, domain.NewSystem("Acme", ""))
	require.NoError(t, err)

	_, err = repos.Systems.Create(ctx, domain.NewSystem("Acme", "again"))
	require.ErrorIs(t, err, repository.ErrDuplicate)

	count, err := repos.Systems.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestModuleNamesAreScopedToSystem(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	a, err := repos.Systems.Create(ctx, domain.NewSystem("A", ""))
	require.NoError(t, err)
	b, err := repos.Systems.Create(ctx, domain.NewSystem("B", ""))
	require.NoError(t, err)

	_, err = repos.Modules.Create(ctx, domain.NewModule(a.ID, "Login", ""))
	require.NoError(t, err)
	_, err = repos.Modules.Create(ctx, domain.NewModule(b.ID, "Login", ""))
	require.NoError(t, err)
	_, err = repos.Modules.Create(ctx, domain.NewModule(a.ID, "Login", ""))
	require.ErrorIs(t, err, repository.ErrDuplicate)

	found, err := repos.Modules.FindByName(ctx, b.ID, "Login")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.SystemID)

	_, err = repos.Modules.Create(ctx, domain.NewModule(999, "Orphan", ""))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(r repository.Repos) error {
		if _, err := r.Systems.Create(ctx, domain.NewSystem("Acme", "")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repos().Systems.FindByName(ctx, "Acme")
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = store.WithinTx(ctx, func(r repository.Repos) error {
		_, err := r.Systems.Create(ctx, domain.NewSystem("Acme", ""))
		return err
	})
	require.NoError(t, err)

	_, err = store.Repos().Systems.FindByName(ctx, "Acme")
	require.NoError(t, err)
}

func TestDeleteSystemWithModulesIsRejected(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	sys, err := repos.Systems.Create(ctx, domain.NewSystem("Acme", ""))
	require.NoError(t, err)
	_, err = repos.Modules.Create(ctx, domain.NewModule(sys.ID, "Login", ""))
	require.NoError(t, err)

	err = repos.Systems.Delete(ctx, sys.ID)
	require.ErrorIs(t, err, repository.ErrHasDependents)
}

func TestTestCaseFindByTitleReturnsOldest(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	first, err := repos.TestCases.Create(ctx, domain.TestCase{Title: "Login works", Steps: "one"})
	require.NoError(t, err)
	_, err = repos.TestCases.Create(ctx, domain.TestCase{Title: "Login works", Steps: "two"})
	require.NoError(t, err)

	found, err := repos.TestCases.FindByTitle(ctx, "Login works")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, domain.PriorityMedium, found.Priority)
	assert.Equal(t, domain.StatusPending, found.Status)
	assert.Equal(t, domain.SourceManual, found.Source)

	count, err := repos.TestCases.CountByTitle(ctx, "Login works")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTestCaseListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	sys, err := repos.Systems.Create(ctx, domain.NewSystem("Acme", ""))
	require.NoError(t, err)
	for _, title := range []string{"Login ok", "Login locked", "Logout"} {
		_, err := repos.TestCases.Create(ctx, domain.TestCase{Title: title, SystemID: &sys.ID})
		require.NoError(t, err)
	}
	_, err = repos.TestCases.Create(ctx, domain.TestCase{Title: "Unlinked login"})
	require.NoError(t, err)

	items, total, err := repos.TestCases.List(ctx, repository.TestCaseFilter{SystemID: &sys.ID, Query: "login", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Login ok", items[0].Title)

	items, total, err = repos.TestCases.List(ctx, repository.TestCaseFilter{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, items)
}

func TestReturnedTestCasesAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	created, err := repos.TestCases.Create(ctx, domain.TestCase{Title: "T1", Tags: []string{"a"}})
	require.NoError(t, err)
	created.Tags[0] = "mutated"

	fetched, err := repos.TestCases.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fetched.Tags)
}

func TestImportLogsListByJob(t *testing.T) {
	ctx := context.Background()
	logs := New().ImportLogs()

	row := 3
	require.NoError(t, logs.Record(ctx, domain.ImportLogEntry{JobID: "job-1", RowNumber: &row, ErrorMessage: "bad"}))
	require.NoError(t, logs.Record(ctx, domain.ImportLogEntry{JobID: "job-2", ErrorMessage: "other"}))

	entries, err := logs.List(ctx, "job-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bad", entries[0].ErrorMessage)
	assert.False(t, entries[0].CreatedAt.IsZero())
}
