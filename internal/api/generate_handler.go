package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
)

// GenerateFromTemplate генерирует одно событие из шаблона.
// Ошибки валидации — бизнес-исход: 200 с success=false.
// POST /api/v1/generate
func (h *Handler) GenerateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.TemplateID == uuid.Nil {
		BadRequest(w, "template_id is required")
		return
	}

	result, err := h.svc.GenerateFromTemplate(r.Context(), req.TemplateID, req.Bindings)
	if HandleServiceError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, result)
}

// GenerateBatch генерирует пакет событий из шаблона.
// POST /api/v1/generate/batch
func (h *Handler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req GenerateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.TemplateID == uuid.Nil {
		BadRequest(w, "template_id is required")
		return
	}
	if req.Count <= 0 {
		BadRequest(w, "count must be positive")
		return
	}

	result, err := h.svc.GenerateEvents(r.Context(), req.TemplateID, req.Bindings, req.Count)
	if HandleServiceError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, result)
}

// GenerateInstances генерирует пакет готовых событий.
// Невалидные экземпляры — бизнес-исход: учитываются в failed,
// остальные генерируются.
// POST /api/v1/generate/instances
func (h *Handler) GenerateInstances(w http.ResponseWriter, r *http.Request) {
	var req GenerateInstancesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if len(req.Instances) == 0 {
		BadRequest(w, "instances is required")
		return
	}

	instances := make([]*domain.EventInstance, len(req.Instances))
	for i, in := range req.Instances {
		instances[i] = in.ToDomain()
	}

	Success(w, h.svc.GenerateInstances(r.Context(), instances))
}
