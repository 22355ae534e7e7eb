package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
)

// ListTemplates возвращает список всех шаблонов.
// GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, templates, len(templates))
}

// RegisterTemplate регистрирует новый шаблон.
// POST /api/v1/templates
//
// Шаблон проходит полную валидацию движка до записи в БД:
// некорректный шаблон не сохраняется и возвращает 422.
func (h *Handler) RegisterTemplate(w http.ResponseWriter, r *http.Request) {
	var def domain.TemplateDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := engine.ValidateTemplate(&def); err != nil {
		if HandleEngineError(w, err) {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	if err := h.templateRepo.Create(r.Context(), &def); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, def)
}

// ListTemplateVersions возвращает все версии шаблона.
// GET /api/v1/templates/{name}/versions
func (h *Handler) ListTemplateVersions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		BadRequest(w, "template name is required")
		return
	}

	versions, err := h.templateRepo.ListVersions(r.Context(), name)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	if len(versions) == 0 {
		NotFound(w, "template not found")
		return
	}

	List(w, versions, len(versions))
}

// GetTemplate возвращает шаблон по имени и версии.
// GET /api/v1/templates/{name}/versions/{version}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	version := r.PathValue("version")

	def, err := h.templateRepo.Get(r.Context(), name, version)
	if HandleRepoError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, def)
}

// DeleteTemplate удаляет шаблон.
// DELETE /api/v1/templates/{name}/versions/{version}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	version := r.PathValue("version")

	if err := h.templateRepo.Delete(r.Context(), name, version); err != nil {
		if HandleRepoError(w, h.logger, err, "template not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}
