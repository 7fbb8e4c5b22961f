package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// CreateSchedule создаёт расписание для сценария.
// POST /api/v1/scenarios/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	scenarioID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid scenario id")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	sched := req.ToDomain(scenarioID)
	if HandleServiceError(w, h.logger, h.svc.CreateSchedule(r.Context(), sched), "scenario not found") {
		return
	}

	Created(w, ScheduleFromDomain(*sched))
}

// ListSchedules возвращает все расписания.
// GET /api/v1/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.ListSchedules(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := make([]ScheduleResponse, len(schedules))
	for i, s := range schedules {
		resp[i] = ScheduleFromDomain(s)
	}
	List(w, resp, len(resp))
}

// GetSchedule возвращает расписание по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	sched, err := h.svc.GetSchedule(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(*sched))
}

// UpdateSchedule обновляет расписание.
// PUT /api/v1/schedules/{id}
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	sched, err := h.svc.GetSchedule(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "schedule not found") {
		return
	}

	upd := req.ToDomain(sched.ScenarioID)
	upd.ID = sched.ID
	upd.CreatedAt = sched.CreatedAt
	if upd.Timezone == "" {
		upd.Timezone = sched.Timezone
	}

	if HandleServiceError(w, h.logger, h.svc.UpdateSchedule(r.Context(), upd), "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(*upd))
}

// DeleteSchedule удаляет расписание.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if HandleServiceError(w, h.logger, h.svc.DeleteSchedule(r.Context(), id), "schedule not found") {
		return
	}

	NoContent(w)
}

// SetScheduleEnabled включает/выключает расписание.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleServiceError(w, h.logger, h.svc.SetScheduleEnabled(r.Context(), id, req.Enabled), "schedule not found") {
		return
	}

	sched, err := h.svc.GetSchedule(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(*sched))
}
