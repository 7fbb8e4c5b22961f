package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ExecuteScenario создаёт запуск сценария.
// POST /api/v1/scenarios/{id}/executions
func (h *Handler) ExecuteScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	// Тело опционально: запуск без опций использует значения по умолчанию
	var req ExecuteScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	exec, err := h.svc.ExecuteScenario(r.Context(), id, req.ToDomain())
	if HandleServiceError(w, h.logger, err, "scenario not found") {
		return
	}

	Created(w, ExecutionFromDomain(*exec))
}

// ListExecutions возвращает запуски сценария.
// GET /api/v1/scenarios/{id}/executions
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "invalid limit")
			return
		}
	}

	executions, err := h.svc.ListExecutions(r.Context(), id, limit)
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// CancelExecution отменяет выполняющийся сценарий.
// POST /api/v1/scenarios/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	if err := h.svc.CancelExecution(r.Context(), id); err != nil {
		HandleServiceError(w, h.logger, err, "scenario not found")
		return
	}

	NoContent(w)
}

// GetExecution возвращает запуск по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.svc.GetExecution(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}
