package domain

import (
	"fmt"
	"strings"
	"time"
)

// ImportJobStatus captures lifecycle state for a batch import.
type ImportJobStatus string

const (
	ImportJobStatusPending    ImportJobStatus = "pending"
	ImportJobStatusProcessing ImportJobStatus = "processing"
	ImportJobStatusCompleted  ImportJobStatus = "completed"
	ImportJobStatusFailed     ImportJobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s ImportJobStatus) Terminal() bool {
	return s == ImportJobStatusCompleted || s == ImportJobStatusFailed
}

// ConflictStrategy decides what happens when an imported title already exists.
type ConflictStrategy string

const (
	ConflictSkip       ConflictStrategy = "skip"
	ConflictOverwrite  ConflictStrategy = "overwrite"
	ConflictNewVersion ConflictStrategy = "new_version"
)

// ParseConflictStrategy accepts the wire values; blank means skip.
func ParseConflictStrategy(raw string) (ConflictStrategy, error) {
	switch ConflictStrategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConflictSkip:
		return ConflictSkip, nil
	case ConflictOverwrite:
		return ConflictOverwrite, nil
	case ConflictNewVersion:
		return ConflictNewVersion, nil
	default:
		return "", fmt.Errorf("unknown conflict strategy %q", raw)
	}
}

// ImportError is a positional error reported back to the client. Row 0 is
// reserved for job level failures.
type ImportError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e ImportError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// ImportJob is the live progress/result record of one batch import.
type ImportJob struct {
	ID               string           `json:"jobId"`
	Status           ImportJobStatus  `json:"status"`
	FileName         string           `json:"fileName,omitempty"`
	Format           string           `json:"format,omitempty"`
	ConflictStrategy ConflictStrategy `json:"conflictStrategy"`
	Total            int              `json:"total"`
	Processed        int              `json:"processed"`
	Success          int              `json:"success"`
	Failed           int              `json:"failed"`
	Skipped          int              `json:"skipped"`
	Errors           []ImportError    `json:"errors"`
	ReportURL        *string          `json:"reportUrl,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
}

// NewImportJob creates a pending job.
func NewImportJob(id, fileName string, strategy ConflictStrategy) ImportJob {
	now := time.Now()
	return ImportJob{
		ID:               id,
		Status:           ImportJobStatusPending,
		FileName:         fileName,
		ConflictStrategy: strategy,
		Errors:           []ImportError{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy that can be handed to readers.
func (j ImportJob) Clone() ImportJob {
	if j.Errors != nil {
		j.Errors = append([]ImportError(nil), j.Errors...)
	} else {
		j.Errors = []ImportError{}
	}
	if j.ReportURL != nil {
		url := *j.ReportURL
		j.ReportURL = &url
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		j.CompletedAt = &at
	}
	return j
}
