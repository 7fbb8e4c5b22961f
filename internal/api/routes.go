package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Templates
	mux.Handle("GET /api/v1/templates", chain(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("POST /api/v1/templates", chain(http.HandlerFunc(h.CreateTemplate)))
	mux.Handle("GET /api/v1/templates/{id}", chain(http.HandlerFunc(h.GetTemplate)))
	mux.Handle("PUT /api/v1/templates/{id}", chain(http.HandlerFunc(h.UpdateTemplate)))
	mux.Handle("DELETE /api/v1/templates/{id}", chain(http.HandlerFunc(h.DeleteTemplate)))

	// Scenarios
	mux.Handle("GET /api/v1/scenarios", chain(http.HandlerFunc(h.ListScenarios)))
	mux.Handle("POST /api/v1/scenarios", chain(http.HandlerFunc(h.CreateScenario)))
	mux.Handle("GET /api/v1/scenarios/{id}", chain(http.HandlerFunc(h.GetScenario)))
	mux.Handle("PUT /api/v1/scenarios/{id}", chain(http.HandlerFunc(h.UpdateScenario)))
	mux.Handle("DELETE /api/v1/scenarios/{id}", chain(http.HandlerFunc(h.DeleteScenario)))
	mux.Handle("PUT /api/v1/scenarios/{id}/active", chain(http.HandlerFunc(h.SetScenarioActive)))

	// Executions
	mux.Handle("POST /api/v1/scenarios/{id}/executions", chain(http.HandlerFunc(h.ExecuteScenario)))
	mux.Handle("GET /api/v1/scenarios/{id}/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("POST /api/v1/scenarios/{id}/cancel", chain(http.HandlerFunc(h.CancelExecution)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))

	// Schedules
	mux.Handle("POST /api/v1/scenarios/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))

	// Generation
	mux.Handle("POST /api/v1/generate", chain(http.HandlerFunc(h.GenerateFromTemplate)))
	mux.Handle("POST /api/v1/generate/batch", chain(http.HandlerFunc(h.GenerateBatch)))
	mux.Handle("POST /api/v1/generate/instances", chain(http.HandlerFunc(h.GenerateInstances)))
}
