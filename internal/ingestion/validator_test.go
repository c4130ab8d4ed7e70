package ingestion

import (
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRowIsPure(t *testing.T) {
	row := RawRow{Title: "T1", Priority: "URGENT", PriorityText: "urgent", Status: "DONE"}

	first := ValidateRow(row, 3)
	second := ValidateRow(row, 3)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestValidateRowBlankTitleIsNotAnError(t *testing.T) {
	assert.Empty(t, ValidateRow(RawRow{Title: "   ", Priority: "nonsense"}, 4))
}

func TestValidateRowRejectsNonCanonicalEnums(t *testing.T) {
	errs := ValidateRow(RawRow{Title: "T1", Priority: "URGENT", PriorityText: "urgent"}, 7)

	require.Len(t, errs, 1)
	assert.Equal(t, 7, errs[0].Row)
	assert.Equal(t, ColumnPriority, errs[0].Column)
	assert.Equal(t, "urgent", errs[0].Value)

	errs = ValidateRow(RawRow{Title: "T1", Status: "DONE"}, 8)
	require.Len(t, errs, 1)
	assert.Equal(t, ColumnStatus, errs[0].Column)
	assert.Equal(t, "DONE", errs[0].Value)
}

func TestValidateRowAcceptsNormalizedRows(t *testing.T) {
	row := rowFromCells(3, func(field string) string {
		switch field {
		case ColumnTitle:
			return "T1"
		case ColumnPriority:
			return "urgent"
		case ColumnStatus:
			return "whatever"
		}
		return ""
	})

	assert.Empty(t, ValidateRow(row, row.RowNumber))
	assert.Equal(t, domain.PriorityMedium, row.Priority)
	assert.Equal(t, domain.StatusPending, row.Status)
}

func TestDiagnoseReportsSoftProblems(t *testing.T) {
	notes := Diagnose(RawRow{Title: "T1", PriorityText: "urgent", Priority: domain.PriorityMedium})

	assert.Contains(t, notes, "steps missing")
	assert.Contains(t, notes, "expected result missing")
	assert.Contains(t, notes, "system missing")
	assert.Contains(t, notes, "module missing")
	assert.Contains(t, notes, `priority "urgent" not recognized, using MEDIUM`)

	complete := RawRow{Title: "T1", Steps: "s", ExpectedResult: "e", System: "A", Module: "B", PriorityText: "高", Priority: domain.PriorityHigh}
	assert.Empty(t, Diagnose(complete))
}
