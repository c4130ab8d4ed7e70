package ingestion

import (
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
)

// ValidateRow checks one parsed row. rowNumber is the row's position in the
// file including the two header rows. A blank-title row is structural, not
// an error, and yields no errors. ValidateRow does no I/O.
func ValidateRow(row RawRow, rowNumber int) []domain.ImportError {
	if row.Blank() {
		return nil
	}

	var errs []domain.ImportError
	if row.Priority != "" && !row.Priority.Valid() {
		errs = append(errs, domain.ImportError{
			Row:     rowNumber,
			Column:  ColumnPriority,
			Message: fmt.Sprintf("priority must be one of %s, %s, %s", domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh),
			Value:   valueOr(row.PriorityText, string(row.Priority)),
		})
	}
	if row.Status != "" && !row.Status.Valid() {
		errs = append(errs, domain.ImportError{
			Row:     rowNumber,
			Column:  ColumnStatus,
			Message: fmt.Sprintf("status must be one of %s, %s, %s, %s", domain.StatusPending, domain.StatusPassed, domain.StatusFailed, domain.StatusSkipped),
			Value:   valueOr(row.StatusText, string(row.Status)),
		})
	}
	return errs
}

// Diagnose lists soft problems with a row. They are logged, never reported
// to the client.
func Diagnose(row RawRow) []string {
	var notes []string
	if row.Steps == "" {
		notes = append(notes, "steps missing")
	}
	if row.ExpectedResult == "" {
		notes = append(notes, "expected result missing")
	}
	if row.System == "" {
		notes = append(notes, "system missing")
	}
	if row.Module == "" {
		notes = append(notes, "module missing")
	}
	if row.PriorityText != "" {
		if _, ok := domain.ParsePriority(row.PriorityText); !ok {
			notes = append(notes, fmt.Sprintf("priority %q not recognized, using %s", row.PriorityText, row.Priority))
		}
	}
	if row.StatusText != "" {
		if _, ok := domain.ParseStatus(row.StatusText); !ok {
			notes = append(notes, fmt.Sprintf("status %q not recognized, using %s", row.StatusText, row.Status))
		}
	}
	return notes
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
