package ingestion

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/repository/memstore"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts ...Option) (*Service, http.Handler) {
	t.Helper()
	service := newTestService(t, memstore.New(), opts...)
	router := chi.NewRouter()
	NewHTTPHandler(service).Register(router)
	return service, router
}

func uploadRequest(t *testing.T, path, fileName string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportHandlerAcceptsAndReportsProgress(t *testing.T) {
	service, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/test-cases/batch/import", "cases.csv", csvFile("T1,Acme"), map[string]string{
		"conflictStrategy": "overwrite",
	}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted domain.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.ID)
	assert.Equal(t, domain.ImportJobStatusPending, accepted.Status)
	assert.Equal(t, domain.ConflictOverwrite, accepted.ConflictStrategy)
	assert.Zero(t, accepted.Total)

	service.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-cases/batch/import/"+accepted.ID+"/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, domain.ImportJobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Success)
}

func TestImportHandlerRejectsBadRequests(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{
			name:   "missing file",
			req:    uploadRequest(t, "/test-cases/batch/import", "", nil, nil),
			status: http.StatusBadRequest,
		},
		{
			name:   "unsupported extension",
			req:    uploadRequest(t, "/test-cases/batch/import", "cases.txt", []byte("T1"), nil),
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown strategy",
			req:    uploadRequest(t, "/test-cases/batch/import", "cases.csv", csvFile("T1"), map[string]string{"conflictStrategy": "merge"}),
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestImportHandlerRejectsLargeFiles(t *testing.T) {
	_, router := newTestRouter(t, WithMaxFileSize(32))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/test-cases/batch/import", "cases.csv", csvFile("T1", "T2", "T3"), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProgressHandlerUnknownJob(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-cases/batch/import/nope/progress", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateHandler(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/test-cases/batch/validate", "cases.csv", csvFile("T1", "T2"), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.TotalRows)
	assert.Len(t, result.Preview, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/test-cases/batch/validate", "cases.xlsx", []byte("broken"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerServesWorkbook(t *testing.T) {
	service, router := newTestRouter(t, WithReportDirectory(t.TempDir()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/test-cases/batch/import", "cases.csv", csvFile("T1", "T1"), nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted domain.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	service.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-cases/batch/import/"+accepted.ID+"/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Positive(t, rec.Body.Len())
}
