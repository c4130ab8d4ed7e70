package repository

import (
	"context"
	"fmt"

	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type importLogRepository struct {
	db db.DBTX
}

// NewImportLogRepository wires a repository backed by pgx.
func NewImportLogRepository(q db.DBTX) ImportLogRepository {
	return &importLogRepository{db: q}
}

func (r *importLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if r.db == nil {
		return fmt.Errorf("import log repository not initialized")
	}

	var rowNumber any
	if entry.RowNumber != nil {
		rowNumber = *entry.RowNumber
	}

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO import_logs (job_id, file_name, row_number, column_name, error_message, value)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.JobID,
		entry.FileName,
		rowNumber,
		entry.Column,
		entry.ErrorMessage,
		entry.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}

	return nil
}

func (r *importLogRepository) List(ctx context.Context, jobID string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("import log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, job_id, file_name, row_number, column_name, error_message, value, created_at
		 FROM import_logs
		 WHERE job_id = $1
		 ORDER BY created_at, id
		 LIMIT $2 OFFSET $3`,
		jobID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.ImportLogEntry{}
	for rows.Next() {
		var (
			entry     domain.ImportLogEntry
			rowNumber pgtype.Int4
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.FileName,
			&rowNumber,
			&entry.Column,
			&entry.ErrorMessage,
			&entry.Value,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", scanErr)
		}

		if rowNumber.Valid {
			value := int(rowNumber.Int32)
			entry.RowNumber = &value
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import logs: %w", rowsErr)
	}

	return logs, nil
}
