package generation

import (
	"errors"
	"net/http"

	"github.com/18061718791/AITestCraft-sub000/internal/httpx"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/ai/generate", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	taskID, err := h.service.Generate(req)
	switch {
	case errors.Is(err, ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, ErrDisabled):
		httpx.WriteError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}
