package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListScenarios возвращает все сценарии.
// GET /api/v1/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.svc.ListScenarios(r.Context())
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	result := make([]ScenarioResponse, len(scenarios))
	for i, s := range scenarios {
		result[i] = ScenarioFromDomain(s)
	}

	List(w, result, len(result))
}

// CreateScenario создаёт новый сценарий.
// POST /api/v1/scenarios
func (h *Handler) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	sc := req.ToDomain()
	if err := h.svc.CreateScenario(r.Context(), sc); err != nil {
		HandleServiceError(w, h.logger, err, "")
		return
	}

	Created(w, ScenarioFromDomain(*sc))
}

// GetScenario возвращает сценарий по ID.
// Параметр ?revision=N выбирает конкретную ревизию.
// GET /api/v1/scenarios/{id}
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	revision := 0
	if v := r.URL.Query().Get("revision"); v != "" {
		revision, err = strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "invalid revision number")
			return
		}
	}

	sc, err := h.svc.GetScenario(r.Context(), id, revision)
	if HandleServiceError(w, h.logger, err, "scenario not found") {
		return
	}

	Success(w, ScenarioFromDomain(*sc))
}

// UpdateScenario сохраняет правку сценария новой ревизией.
// Отклоняется с 409, пока сценарий выполняется.
// PUT /api/v1/scenarios/{id}
func (h *Handler) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	sc := req.ToDomain()
	sc.ID = id
	if err := h.svc.UpdateScenario(r.Context(), sc); err != nil {
		HandleServiceError(w, h.logger, err, "scenario not found")
		return
	}

	Success(w, ScenarioFromDomain(*sc))
}

// DeleteScenario удаляет сценарий.
// Параметр ?force=true отменяет выполняющийся запуск и ждёт остановки.
// DELETE /api/v1/scenarios/{id}
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if err := h.svc.DeleteScenario(r.Context(), id, force); err != nil {
		HandleServiceError(w, h.logger, err, "scenario not found")
		return
	}

	NoContent(w)
}

// SetScenarioActive включает или выключает сценарий.
// PUT /api/v1/scenarios/{id}/active
func (h *Handler) SetScenarioActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.svc.SetScenarioActive(r.Context(), id, req.Active); err != nil {
		HandleServiceError(w, h.logger, err, "scenario not found")
		return
	}

	NoContent(w)
}
