package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/scheduler"
)

// ListTriggers возвращает список triggers с фильтрацией.
// GET /api/v1/triggers?pipeline_id=...&enabled=...&limit=...&offset=...
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	filter := repo.TriggerFilter{}

	// Парсим query параметры
	if pipelineIDStr := r.URL.Query().Get("pipeline_id"); pipelineIDStr != "" {
		pipelineID, err := uuid.Parse(pipelineIDStr)
		if err != nil {
			BadRequest(w, "invalid pipeline_id")
			return
		}
		filter.PipelineID = &pipelineID
	}

	if enabledStr := r.URL.Query().Get("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filter.Enabled = &enabled
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	triggers, err := h.triggerRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TriggerResponse, len(triggers))
	for i := range triggers {
		result[i] = TriggerFromDomain(&triggers[i])
	}

	List(w, result, len(result))
}

// CreateTrigger создаёт новый trigger для pipeline.
// POST /api/v1/pipelines/{id}/triggers
func (h *Handler) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	pipelineID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	var req CreateTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Валидация
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	if req.CronExpr == "" && req.IntervalSec <= 0 {
		BadRequest(w, "either cron_expr or interval_sec is required")
		return
	}

	if req.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	// Проверяем, что pipeline существует
	_, err = h.pipelineRepo.GetByID(r.Context(), pipelineID)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	trigger := &domain.Trigger{
		ID:          uuid.New(),
		PipelineID:  pipelineID,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    timezone,
		Enabled:     req.Enabled,
	}

	// Вычисляем первое время срабатывания
	if nextDue, err := scheduler.CalculateInitialNextDue(trigger); err == nil {
		trigger.NextDueAt = &nextDue
	}

	if err := h.triggerRepo.Create(r.Context(), trigger); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, TriggerFromDomain(trigger))
}

// GetTrigger возвращает trigger по ID.
// GET /api/v1/triggers/{id}
func (h *Handler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	trigger, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	Success(w, TriggerFromDomain(trigger))
}

// UpdateTrigger обновляет trigger.
// PUT /api/v1/triggers/{id}
func (h *Handler) UpdateTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	var req UpdateTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	trigger, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	if req.Name != nil {
		trigger.Name = *req.Name
	}
	if req.CronExpr != nil {
		if *req.CronExpr != "" {
			if err := scheduler.ValidateCronExpr(*req.CronExpr); err != nil {
				BadRequest(w, err.Error())
				return
			}
		}
		trigger.CronExpr = *req.CronExpr
	}
	if req.IntervalSec != nil {
		trigger.IntervalSec = *req.IntervalSec
	}
	if req.Timezone != nil {
		trigger.Timezone = *req.Timezone
	}

	// Пересчитываем следующее срабатывание по новому расписанию
	if nextDue, err := scheduler.CalculateInitialNextDue(trigger); err == nil {
		trigger.NextDueAt = &nextDue
	}

	if err := h.triggerRepo.Update(r.Context(), trigger); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, TriggerFromDomain(trigger))
}

// DeleteTrigger удаляет trigger.
// DELETE /api/v1/triggers/{id}
func (h *Handler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	if err := h.triggerRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "trigger not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// SetTriggerEnabled включает или выключает trigger.
// PUT /api/v1/triggers/{id}/enabled
func (h *Handler) SetTriggerEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.triggerRepo.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		if HandleRepoError(w, h.logger, err, "trigger not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	// Возвращаем обновлённый trigger
	trigger, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	Success(w, TriggerFromDomain(trigger))
}
