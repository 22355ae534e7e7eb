package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/repo"
)

// ListPlans возвращает список записей планов с фильтрацией.
// GET /api/v1/plans?pipeline_id=...&status=...&limit=...&offset=...
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	filter := repo.PlanFilter{}

	// Парсим query параметры
	if pipelineIDStr := r.URL.Query().Get("pipeline_id"); pipelineIDStr != "" {
		pipelineID, err := uuid.Parse(pipelineIDStr)
		if err != nil {
			BadRequest(w, "invalid pipeline_id")
			return
		}
		filter.PipelineID = &pipelineID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.PlanStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	records, err := h.planRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]PlanResponse, len(records))
	for i, record := range records {
		result[i] = PlanFromDomain(record)
	}

	List(w, result, len(result))
}

// RequestPlan создаёт запрос на построение плана для pipeline.
// POST /api/v1/pipelines/{id}/plans
//
// Запись создаётся в статусе PENDING; план строит planner-сервис.
func (h *Handler) RequestPlan(w http.ResponseWriter, r *http.Request) {
	pipelineID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	var req RequestPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что pipeline существует
	pipeline, err := h.pipelineRepo.GetByID(r.Context(), pipelineID)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	// Определяем версию
	var version int
	if req.Version != nil {
		version = *req.Version
		// Проверяем, что версия существует
		_, err := h.pipelineRepo.GetVersion(r.Context(), pipelineID, version)
		if HandleRepoError(w, h.logger, err, "pipeline version not found") {
			return
		}
	} else {
		// Используем последнюю версию
		latestVersion, err := h.pipelineRepo.GetLatestVersion(r.Context(), pipelineID)
		if HandleRepoError(w, h.logger, err, "pipeline has no versions") {
			return
		}
		version = latestVersion.Version
	}

	// Проверяем idempotency key
	if req.IdempotencyKey != "" {
		existing, err := h.planRepo.GetByIdempotencyKey(r.Context(), pipelineID, req.IdempotencyKey)
		if err == nil && existing != nil {
			// Возвращаем существующую запись
			Success(w, PlanFromDomain(*existing))
			return
		}
	}

	record := &domain.PlanRecord{
		ID:             uuid.New(),
		PipelineID:     pipeline.ID,
		Version:        version,
		Status:         domain.PlanStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := h.planRepo.Create(r.Context(), record); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие в очередь
	if h.publisher != nil {
		if err := h.publisher.PublishPlanRequested(r.Context(), record.ID); err != nil {
			h.logger.Warn("failed to publish plan.requested", "plan_id", record.ID, "error", err)
		}
	}

	Created(w, PlanFromDomain(*record))
}

// GetPlan возвращает запись плана по ID.
// GET /api/v1/plans/{id}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plan id")
		return
	}

	record, err := h.planRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "plan not found") {
		return
	}

	Success(w, PlanFromDomain(*record))
}

// PreviewPlan строит план по шаблонам и определению из тела запроса.
// POST /api/v1/plans/preview
//
// Dry-run: ничего не сохраняется, события не публикуются.
// Ошибки валидации возвращаются как 422 с точным описанием.
func (h *Handler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	var req PreviewPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if len(req.Templates) == 0 {
		BadRequest(w, "templates are required")
		return
	}
	if len(req.Pipeline.Jobs) == 0 {
		BadRequest(w, "pipeline must contain at least one job")
		return
	}

	registry := engine.NewRegistry()
	for i := range req.Templates {
		if err := registry.Register(&req.Templates[i]); err != nil {
			if HandleEngineError(w, err) {
				return
			}
			InternalError(w, h.logger, err)
			return
		}
	}

	graph, err := engine.Resolve(registry, &req.Pipeline)
	if err != nil {
		if HandleEngineError(w, err) {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	plan, err := engine.Plan(graph, engine.PlanOptions{})
	if err != nil {
		if HandleEngineError(w, err) {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, plan)
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
