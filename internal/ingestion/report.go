package ingestion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "错误报告"

var reportHeader = []any{"行号", "列", "错误信息", "原始值"}

// ReportURL is where the error report of a job can be downloaded.
func ReportURL(jobID string) string {
	return fmt.Sprintf("/test-cases/batch/import/%s/report", jobID)
}

func reportPath(dir, jobID string) string {
	return filepath.Join(dir, jobID+".xlsx")
}

// writeReport renders the job errors as a workbook under dir. The file is
// written to a temporary name and renamed so readers never see a partial file.
func writeReport(dir string, job domain.ImportJob) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return "", fmt.Errorf("name report sheet: %w", err)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}
	for i, importErr := range job.Errors {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		values := []any{importErr.Row, importErr.Column, importErr.Message, importErr.Value}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return "", fmt.Errorf("write report row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(reportSheet, "C", "C", 60)

	tempFile, err := os.CreateTemp(dir, fmt.Sprintf("%s-*.xlsx", job.ID))
	if err != nil {
		return "", fmt.Errorf("create temp report file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if err := f.Write(tempFile); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	finalPath := reportPath(dir, job.ID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("promote report file: %w", err)
	}
	cleanup = false
	return finalPath, nil
}
