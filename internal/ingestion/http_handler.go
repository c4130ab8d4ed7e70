package ingestion

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

// Handler exposes batch import over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the import routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/test-cases/batch/import", h.Import)
	r.Get("/test-cases/batch/import/{jobId}/progress", h.Progress)
	r.Get("/test-cases/batch/import/{jobId}/report", h.Report)
	r.Post("/test-cases/batch/validate", h.Validate)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	strategy, err := domain.ParseConflictStrategy(r.FormValue("conflictStrategy"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	job, err := h.service.StartImport(r.Context(), ImportRequest{
		FileName:         fileName,
		Data:             data,
		ConflictStrategy: strategy,
	})
	if err != nil {
		httpx.WriteError(w, uploadStatus(err), err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, job)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Progress(r.Context(), chi.URLParam(r, "jobId"))
	if errors.Is(err, ErrJobNotFound) {
		httpx.WriteError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	path, err := h.service.ReportPath(r.Context(), jobID)
	if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrReportNotFound) {
		httpx.WriteError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import-errors-"+filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := h.service.Validate(r.Context(), fileName, data)
	if err != nil {
		status := uploadStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		httpx.WriteError(w, status, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// readUpload extracts the multipart "file" field. It writes the error
// response itself and reports whether the caller may continue.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := h.service.maxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return "", nil, false
		}
		httpx.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid form data: %w", err))
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Errorf("file required: %w", err))
		return "", nil, false
	}
	defer file.Close()

	if header.Size > limit {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return "", nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Errorf("failed to read file: %w", err))
		return "", nil, false
	}
	return header.Filename, data, true
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrEmptyFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
