package export

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/18061718791/AITestCraft-sub000/internal/catalog"
	"github.com/18061718791/AITestCraft-sub000/internal/httpx"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the export routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/test-cases/export", h.handleExport)
	r.Get("/test-cases/batch/template", h.handleTemplate)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := catalog.FilterFromQuery(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	var buf bytes.Buffer
	if _, err := h.service.WriteTestCases(r.Context(), &buf, filter); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	writeWorkbook(w, h.service.FileName(), buf.Bytes())
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.WriteTemplate(&buf); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	writeWorkbook(w, "test-case-import-template.xlsx", buf.Bytes())
}

func writeWorkbook(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
