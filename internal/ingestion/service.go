package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/metrics"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyFile is returned for uploads without content.
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge is returned for uploads above the size limit.
	ErrFileTooLarge = errors.New("file exceeds the upload limit")
	// ErrReportNotFound is returned when a job has no error report.
	ErrReportNotFound = errors.New("import report not found")
)

const (
	defaultMaxFileSize = 10 << 20
	defaultPaceEvery   = 10
	defaultPause       = 10 * time.Millisecond
	defaultPreviewRows = 10
)

// Service runs batch imports of test cases. Each accepted upload becomes a
// job processed by its own goroutine; rows are imported strictly in file
// order, one transaction per row.
type Service struct {
	store    repository.Store
	progress ProgressStore
	logs     repository.ImportLogRepository
	metrics  *metrics.Import
	logger   logrus.FieldLogger

	maxFileSize int64
	paceEvery   int
	pause       time.Duration
	previewRows int
	reportDir   string
	now         func() time.Time
	newID       func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

type Option func(*Service)

// WithLogger sets the logger used for job and row diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Import) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithImportLogs records every row error through repo.
func WithImportLogs(repo repository.ImportLogRepository) Option {
	return func(s *Service) {
		s.logs = repo
	}
}

func WithMaxFileSize(size int64) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxFileSize = size
		}
	}
}

// WithPacing makes the worker pause for pause after every n rows. A zero n
// disables pacing.
func WithPacing(n int, pause time.Duration) Option {
	return func(s *Service) {
		if n >= 0 {
			s.paceEvery = n
		}
		if pause >= 0 {
			s.pause = pause
		}
	}
}

func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewRows = n
		}
	}
}

// WithReportDirectory enables xlsx error reports written under dir.
func WithReportDirectory(dir string) Option {
	return func(s *Service) {
		s.reportDir = strings.TrimSpace(dir)
	}
}

// NewService creates an import service persisting through store and
// publishing job state to progress.
func NewService(store repository.Store, progress ProgressStore, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	service := &Service{
		store:       store,
		progress:    progress,
		logger:      logrus.StandardLogger(),
		maxFileSize: defaultMaxFileSize,
		paceEvery:   defaultPaceEvery,
		pause:       defaultPause,
		previewRows: defaultPreviewRows,
		now:         time.Now,
		newID:       uuid.NewString,
		baseCtx:     ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.logger = service.logger.WithField("component", "ingestion")
	return service
}

// ImportRequest describes an accepted upload.
type ImportRequest struct {
	FileName         string
	Data             []byte
	ConflictStrategy domain.ConflictStrategy
}

// StartImport checks the upload, records a pending job and processes it in
// the background. The returned job is the pending snapshot.
func (s *Service) StartImport(ctx context.Context, req ImportRequest) (domain.ImportJob, error) {
	if len(req.Data) == 0 {
		return domain.ImportJob{}, ErrEmptyFile
	}
	if int64(len(req.Data)) > s.maxFileSize {
		return domain.ImportJob{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(req.Data))
	}
	strategy, err := domain.ParseConflictStrategy(string(req.ConflictStrategy))
	if err != nil {
		return domain.ImportJob{}, err
	}
	format, err := DetectFormat(req.FileName, req.Data)
	if err != nil {
		return domain.ImportJob{}, err
	}
	if err := s.baseCtx.Err(); err != nil {
		return domain.ImportJob{}, fmt.Errorf("import service closed: %w", err)
	}

	job := domain.NewImportJob(s.newID(), req.FileName, strategy)
	job.Format = string(format)
	job.CreatedAt, job.UpdatedAt = s.now(), s.now()
	if err := s.progress.Save(ctx, job); err != nil {
		return domain.ImportJob{}, fmt.Errorf("save import job: %w", err)
	}

	data := append([]byte(nil), req.Data...)
	s.workers.Add(1)
	go s.run(job, format, data)

	s.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"file":     req.FileName,
		"format":   format,
		"strategy": strategy,
	}).Info("import job accepted")
	return job.Clone(), nil
}

// Progress returns the current snapshot of a job.
func (s *Service) Progress(ctx context.Context, jobID string) (domain.ImportJob, error) {
	return s.progress.Get(ctx, jobID)
}

// ReportPath locates the error report of a finished job.
func (s *Service) ReportPath(ctx context.Context, jobID string) (string, error) {
	job, err := s.progress.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.ReportURL == nil || s.reportDir == "" {
		return "", ErrReportNotFound
	}
	path := reportPath(s.reportDir, job.ID)
	if _, err := os.Stat(path); err != nil {
		return "", ErrReportNotFound
	}
	return path, nil
}

// Close stops accepting work, interrupts running jobs and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.workers.Wait()
}

// Wait blocks until every running job has finished.
func (s *Service) Wait() {
	s.workers.Wait()
}

func (s *Service) run(job domain.ImportJob, format Format, data []byte) {
	defer s.workers.Done()
	ctx := s.baseCtx
	started := s.now()
	log := s.logger.WithField("job_id", job.ID)
	s.metrics.JobStarted()

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic while processing job: %v", rec)
			s.failJob(&job, fmt.Errorf("panic: %v", rec))
		}
		s.metrics.JobFinished(string(job.Status), s.now().Sub(started))
	}()

	job.Status = domain.ImportJobStatusProcessing
	s.save(&job)

	reader, err := NewRowReader(format, data)
	if err != nil {
		s.failJob(&job, err)
		return
	}
	rows, err := ParseAll(reader)
	if err != nil {
		s.failJob(&job, err)
		return
	}
	job.Total = len(rows)
	s.save(&job)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			s.failJob(&job, fmt.Errorf("import interrupted: %w", err))
			return
		}

		s.processRow(ctx, &job, row, log)
		job.Processed++
		s.save(&job)

		if s.paceEvery > 0 && (i+1)%s.paceEvery == 0 && i+1 < len(rows) {
			select {
			case <-ctx.Done():
			case <-time.After(s.pause):
			}
		}
	}

	if job.Failed > 0 && s.reportDir != "" {
		if _, err := writeReport(s.reportDir, job); err != nil {
			log.WithError(err).Warn("failed to write error report")
		} else {
			url := ReportURL(job.ID)
			job.ReportURL = &url
		}
	}

	completed := s.now()
	job.Status = domain.ImportJobStatusCompleted
	job.CompletedAt = &completed
	s.save(&job)
	log.WithFields(logrus.Fields{
		"total":   job.Total,
		"success": job.Success,
		"failed":  job.Failed,
		"skipped": job.Skipped,
	}).Info("import job completed")
}

// processRow validates and imports one row, folding the result into job.
func (s *Service) processRow(ctx context.Context, job *domain.ImportJob, row RawRow, log logrus.FieldLogger) {
	if row.Blank() {
		return
	}
	rowLog := log.WithField("row", row.RowNumber)
	for _, note := range Diagnose(row) {
		rowLog.Debug(note)
	}

	if errs := ValidateRow(row, row.RowNumber); len(errs) > 0 {
		s.recordFailure(ctx, job, OutcomeFailed, errs...)
		return
	}

	var outcome Outcome
	err := s.store.WithinTx(ctx, func(repos repository.Repos) error {
		ref, err := ResolveHierarchy(ctx, repos, row.Names())
		if err != nil {
			return err
		}
		_, outcome, err = ResolveConflict(ctx, repos, row.TestCase().WithHierarchy(ref), job.ConflictStrategy)
		return err
	})
	switch {
	case err == nil:
		job.Success++
		s.metrics.RowProcessed(string(outcome))
	case errors.Is(err, ErrTitleExists):
		job.Skipped++
		s.recordFailure(ctx, job, OutcomeSkipped, domain.ImportError{
			Row:     row.RowNumber,
			Column:  ColumnTitle,
			Message: ErrTitleExists.Error(),
			Value:   row.Title,
		})
	default:
		rowLog.WithError(err).Warn("row import failed")
		s.recordFailure(ctx, job, OutcomeFailed, domain.ImportError{
			Row:     row.RowNumber,
			Message: err.Error(),
		})
	}
}

// recordFailure counts one failed row and keeps its errors.
func (s *Service) recordFailure(ctx context.Context, job *domain.ImportJob, outcome Outcome, errs ...domain.ImportError) {
	job.Failed++
	job.Errors = append(job.Errors, errs...)
	s.metrics.RowProcessed(string(outcome))
	for _, importErr := range errs {
		s.logImportError(ctx, *job, importErr)
	}
}

func (s *Service) failJob(job *domain.ImportJob, err error) {
	completed := s.now()
	job.Status = domain.ImportJobStatusFailed
	job.CompletedAt = &completed
	job.Errors = append(job.Errors, domain.ImportError{Row: 0, Message: err.Error()})
	s.save(job)
	s.logImportError(context.Background(), *job, domain.ImportError{Row: 0, Message: err.Error()})
	s.logger.WithField("job_id", job.ID).WithError(err).Error("import job failed")
}

func (s *Service) save(job *domain.ImportJob) {
	job.UpdatedAt = s.now()
	if err := s.progress.Save(context.Background(), *job); err != nil {
		s.logger.WithField("job_id", job.ID).WithError(err).Warn("failed to publish job progress")
	}
}

func (s *Service) logImportError(ctx context.Context, job domain.ImportJob, importErr domain.ImportError) {
	if s.logs == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	entry := domain.ImportLogEntry{
		JobID:        job.ID,
		FileName:     job.FileName,
		Column:       importErr.Column,
		ErrorMessage: importErr.Message,
		Value:        importErr.Value,
	}
	if importErr.Row > 0 {
		row := importErr.Row
		entry.RowNumber = &row
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.WithField("job_id", job.ID).WithError(err).Debug("failed to record import log")
	}
}

// PreviewRow is a parsed row together with its validation errors.
type PreviewRow struct {
	RawRow
	Errors []domain.ImportError `json:"errors,omitempty"`
}

// ValidationResult is the synchronous answer of Validate.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Errors    []domain.ImportError `json:"errors"`
	Preview   []PreviewRow         `json:"preview"`
	TotalRows int                  `json:"totalRows"`
}

// Validate parses an upload and validates the first preview rows without
// writing anything.
func (s *Service) Validate(_ context.Context, fileName string, data []byte) (ValidationResult, error) {
	if len(data) == 0 {
		return ValidationResult{}, ErrEmptyFile
	}
	if int64(len(data)) > s.maxFileSize {
		return ValidationResult{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}
	_, rows, err := ParseFile(fileName, data)
	if err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{
		Errors:    []domain.ImportError{},
		Preview:   []PreviewRow{},
		TotalRows: len(rows),
	}
	for i, row := range rows {
		if i >= s.previewRows {
			break
		}
		errs := ValidateRow(row, row.RowNumber)
		result.Errors = append(result.Errors, errs...)
		result.Preview = append(result.Preview, PreviewRow{RawRow: row, Errors: errs})
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}
