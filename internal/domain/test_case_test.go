package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePriority(t *testing.T) {
	cases := map[string]Priority{
		"LOW":    PriorityLow,
		" high ": PriorityHigh,
		"Medium": PriorityMedium,
		"高":      PriorityHigh,
		"低":      PriorityLow,
		"中":      PriorityMedium,
		"urgent": PriorityMedium,
		"":       PriorityMedium,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizePriority(raw), "raw=%q", raw)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"passed":  StatusPassed,
		"PASS":    StatusPassed,
		"通过":      StatusPassed,
		"失败":      StatusFailed,
		"跳过":      StatusSkipped,
		"待执行":     StatusPending,
		"blocked": StatusPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw=%q", raw)
	}

	_, ok := ParseStatus("blocked")
	assert.False(t, ok)
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, SplitTags(""))
	assert.Nil(t, SplitTags("   "))
	assert.Nil(t, SplitTags(" , ,"))
	assert.Equal(t, []string{"smoke", "login", "回归"}, SplitTags(" smoke, login ，回归"))
}

func TestTestCaseCloneIsDeep(t *testing.T) {
	systemID := int64(7)
	original := TestCase{Title: "a", Tags: []string{"x"}, SystemID: &systemID}

	clone := original.Clone()
	clone.Tags[0] = "y"
	*clone.SystemID = 9

	assert.Equal(t, "x", original.Tags[0])
	assert.Equal(t, int64(7), *original.SystemID)
}

func TestHierarchyRefConsistent(t *testing.T) {
	id := int64(1)
	assert.True(t, HierarchyRef{}.Consistent())
	assert.True(t, HierarchyRef{SystemID: &id}.Consistent())
	assert.True(t, HierarchyRef{SystemID: &id, ModuleID: &id, ScenarioID: &id}.Consistent())
	assert.False(t, HierarchyRef{ModuleID: &id}.Consistent())
	assert.False(t, HierarchyRef{SystemID: &id, ScenarioID: &id}.Consistent())
}

func TestParseConflictStrategy(t *testing.T) {
	s, err := ParseConflictStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ConflictSkip, s)

	s, err = ParseConflictStrategy("NEW_VERSION")
	require.NoError(t, err)
	assert.Equal(t, ConflictNewVersion, s)

	_, err = ParseConflictStrategy("merge")
	require.Error(t, err)
}

func TestImportJobCloneCopiesErrors(t *testing.T) {
	job := NewImportJob("job-1", "cases.csv", ConflictSkip)
	job.Errors = append(job.Errors, ImportError{Row: 3, Message: "boom"})

	clone := job.Clone()
	clone.Errors[0].Message = "changed"

	assert.Equal(t, "boom", job.Errors[0].Message)
	assert.Equal(t, ImportJobStatusPending, clone.Status)
	assert.Equal(t, "row 3: boom", job.Errors[0].Error())
}
