package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListTemplates возвращает последние версии всех шаблонов.
// GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context())
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	result := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		result[i] = TemplateFromDomain(t)
	}

	List(w, result, len(result))
}

// CreateTemplate создаёт новый шаблон.
// POST /api/v1/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tpl := req.ToDomain()
	if err := h.svc.CreateTemplate(r.Context(), tpl); err != nil {
		HandleServiceError(w, h.logger, err, "")
		return
	}

	Created(w, TemplateFromDomain(*tpl))
}

// GetTemplate возвращает шаблон по ID.
// Параметр ?version=N выбирает конкретную версию.
// GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	version := 0
	if v := r.URL.Query().Get("version"); v != "" {
		version, err = strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "invalid version number")
			return
		}
	}

	tpl, err := h.svc.GetTemplate(r.Context(), id, version)
	if HandleServiceError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, TemplateFromDomain(*tpl))
}

// UpdateTemplate сохраняет правку шаблона следующей версией.
// PUT /api/v1/templates/{id}
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tpl := req.ToDomain()
	tpl.ID = id
	if err := h.svc.UpdateTemplate(r.Context(), tpl); err != nil {
		HandleServiceError(w, h.logger, err, "template not found")
		return
	}

	Success(w, TemplateFromDomain(*tpl))
}

// DeleteTemplate удаляет шаблон со всеми версиями.
// DELETE /api/v1/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	if err := h.svc.DeleteTemplate(r.Context(), id); err != nil {
		HandleServiceError(w, h.logger, err, "template not found")
		return
	}

	NoContent(w)
}
