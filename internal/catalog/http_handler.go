package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/18061718791/AITestCraft-sub000/internal/httpx"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the catalog as REST endpoints.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the catalog routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/systems", h.listSystems)
	r.Post("/systems", h.createSystem)
	r.Get("/systems/{id}", h.getSystem)
	r.Put("/systems/{id}", h.updateSystem)
	r.Delete("/systems/{id}", h.deleteSystem)

	r.Get("/systems/{id}/modules", h.listModules)
	r.Post("/systems/{id}/modules", h.createModule)
	r.Put("/modules/{id}", h.updateModule)
	r.Delete("/modules/{id}", h.deleteModule)

	r.Get("/modules/{id}/scenarios", h.listScenarios)
	r.Post("/modules/{id}/scenarios", h.createScenario)
	r.Put("/scenarios/{id}", h.updateScenario)
	r.Delete("/scenarios/{id}", h.deleteScenario)

	r.Get("/test-cases", h.listTestCases)
	r.Post("/test-cases", h.createTestCase)
	r.Delete("/test-cases/batch/delete", h.batchDelete)
	r.Get("/test-cases/{id}", h.getTestCase)
	r.Put("/test-cases/{id}", h.updateTestCase)
	r.Delete("/test-cases/{id}", h.deleteTestCase)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	httpx.WriteError(w, httpx.StatusFor(err), err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return 0, false
	}
	return id, true
}

func decodeHierarchy(w http.ResponseWriter, r *http.Request) (HierarchyInput, bool) {
	var input HierarchyInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return input, false
	}
	return input, true
}

func decodeTestCase(w http.ResponseWriter, r *http.Request) (TestCaseInput, bool) {
	var input TestCaseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return input, false
	}
	return input, true
}

// respond writes value, or the mapped error when err is set.
func respond(w http.ResponseWriter, status int, value any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, status, value)
}

func respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := h.service.ListSystems(r.Context())
	respond(w, http.StatusOK, systems, err)
}

func (h *Handler) createSystem(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	system, err := h.service.CreateSystem(r.Context(), input)
	respond(w, http.StatusCreated, system, err)
}

func (h *Handler) getSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	system, err := h.service.GetSystem(r.Context(), id)
	respond(w, http.StatusOK, system, err)
}

func (h *Handler) updateSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	system, err := h.service.UpdateSystem(r.Context(), id, input)
	respond(w, http.StatusOK, system, err)
}

func (h *Handler) deleteSystem(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(w, r); ok {
		respondDeleted(w, h.service.DeleteSystem(r.Context(), id))
	}
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	modules, err := h.service.ListModules(r.Context(), id)
	respond(w, http.StatusOK, modules, err)
}

func (h *Handler) createModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	module, err := h.service.CreateModule(r.Context(), id, input)
	respond(w, http.StatusCreated, module, err)
}

func (h *Handler) updateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	module, err := h.service.UpdateModule(r.Context(), id, input)
	respond(w, http.StatusOK, module, err)
}

func (h *Handler) deleteModule(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(w, r); ok {
		respondDeleted(w, h.service.DeleteModule(r.Context(), id))
	}
}

func (h *Handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	scenarios, err := h.service.ListScenarios(r.Context(), id)
	respond(w, http.StatusOK, scenarios, err)
}

func (h *Handler) createScenario(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	scenario, err := h.service.CreateScenario(r.Context(), id, input)
	respond(w, http.StatusCreated, scenario, err)
}

func (h *Handler) updateScenario(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeHierarchy(w, r)
	if !ok {
		return
	}
	scenario, err := h.service.UpdateScenario(r.Context(), id, input)
	respond(w, http.StatusOK, scenario, err)
}

func (h *Handler) deleteScenario(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(w, r); ok {
		respondDeleted(w, h.service.DeleteScenario(r.Context(), id))
	}
}

// FilterFromQuery reads the test case filter parameters shared by listing
// and export.
func FilterFromQuery(r *http.Request) (repository.TestCaseFilter, error) {
	var (
		filter repository.TestCaseFilter
		err    error
	)
	if filter.SystemID, err = httpx.QueryID(r, "systemId"); err != nil {
		return filter, err
	}
	if filter.ModuleID, err = httpx.QueryID(r, "moduleId"); err != nil {
		return filter, err
	}
	if filter.ScenarioID, err = httpx.QueryID(r, "scenarioId"); err != nil {
		return filter, err
	}
	if filter.Limit, err = httpx.QueryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = httpx.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	filter.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	return filter, nil
}

func (h *Handler) listTestCases(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	page, err := h.service.ListTestCases(r.Context(), filter)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) createTestCase(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeTestCase(w, r)
	if !ok {
		return
	}
	tc, err := h.service.CreateTestCase(r.Context(), input)
	respond(w, http.StatusCreated, tc, err)
}

func (h *Handler) getTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tc, err := h.service.GetTestCase(r.Context(), id)
	respond(w, http.StatusOK, tc, err)
}

func (h *Handler) updateTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := decodeTestCase(w, r)
	if !ok {
		return
	}
	tc, err := h.service.UpdateTestCase(r.Context(), id, input)
	respond(w, http.StatusOK, tc, err)
}

func (h *Handler) deleteTestCase(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(w, r); ok {
		respondDeleted(w, h.service.DeleteTestCase(r.Context(), id))
	}
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.service.BatchDelete(r.Context(), req.IDs)
	respond(w, http.StatusOK, result, err)
}
