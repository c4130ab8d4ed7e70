package domain

import "time"

// ImportLogEntry persists a row level import issue for later auditing.
type ImportLogEntry struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"jobId"`
	FileName     string    `json:"fileName"`
	RowNumber    *int      `json:"rowNumber,omitempty"`
	Column       string    `json:"column,omitempty"`
	ErrorMessage string    `json:"errorMessage"`
	Value        string    `json:"value,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
