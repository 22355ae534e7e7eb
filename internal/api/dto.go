package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
)

// Pipeline DTOs

// CreatePipelineRequest — запрос на создание pipeline.
type CreatePipelineRequest struct {
	Name string `json:"name"`
}

// UpdatePipelineRequest — запрос на обновление pipeline.
type UpdatePipelineRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// PipelineResponse — ответ с pipeline.
type PipelineResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PipelineFromDomain конвертирует domain.Pipeline в PipelineResponse.
func PipelineFromDomain(p domain.Pipeline) PipelineResponse {
	return PipelineResponse{
		ID:        p.ID,
		Name:      p.Name,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// PipelineVersion DTOs

// CreatePipelineVersionRequest — запрос на создание версии pipeline.
type CreatePipelineVersionRequest struct {
	Def domain.PipelineDef `json:"def"`
}

// PipelineVersionResponse — ответ с версией pipeline.
type PipelineVersionResponse struct {
	PipelineID uuid.UUID          `json:"pipeline_id"`
	Version    int                `json:"version"`
	Def        domain.PipelineDef `json:"def"`
	CreatedAt  time.Time          `json:"created_at"`
}

// PipelineVersionFromDomain конвертирует domain.PipelineVersion в PipelineVersionResponse.
func PipelineVersionFromDomain(v domain.PipelineVersion) PipelineVersionResponse {
	return PipelineVersionResponse{
		PipelineID: v.PipelineID,
		Version:    v.Version,
		Def:        v.Def,
		CreatedAt:  v.CreatedAt,
	}
}

// Plan DTOs

// RequestPlanRequest — запрос на построение плана.
type RequestPlanRequest struct {
	Version        *int   `json:"version,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PreviewPlanRequest — запрос на dry-run планирование.
// Шаблоны и определение pipeline передаются прямо в теле запроса,
// ничего не сохраняется в БД.
type PreviewPlanRequest struct {
	Templates []domain.TemplateDefinition `json:"templates"`
	Pipeline  domain.PipelineDef          `json:"pipeline"`
}

// PlanResponse — ответ с записью плана.
type PlanResponse struct {
	ID             uuid.UUID             `json:"id"`
	PipelineID     uuid.UUID             `json:"pipeline_id"`
	Version        int                   `json:"version"`
	Status         string                `json:"status"`
	Plan           *domain.ExecutionPlan `json:"plan,omitempty"`
	Error          string                `json:"error,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	FinishedAt     *time.Time            `json:"finished_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// PlanFromDomain конвертирует domain.PlanRecord в PlanResponse.
func PlanFromDomain(r domain.PlanRecord) PlanResponse {
	return PlanResponse{
		ID:             r.ID,
		PipelineID:     r.PipelineID,
		Version:        r.Version,
		Status:         string(r.Status),
		Plan:           r.Plan,
		Error:          r.Error,
		IdempotencyKey: r.IdempotencyKey,
		FinishedAt:     r.FinishedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// Trigger DTOs

// CreateTriggerRequest — запрос на создание trigger.
type CreateTriggerRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UpdateTriggerRequest — запрос на обновление trigger.
type UpdateTriggerRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// TriggerResponse — ответ с trigger.
type TriggerResponse struct {
	ID          uuid.UUID  `json:"id"`
	PipelineID  uuid.UUID  `json:"pipeline_id"`
	Name        string     `json:"name"`
	CronExpr    string     `json:"cron_expr,omitempty"`
	IntervalSec int        `json:"interval_sec,omitempty"`
	Timezone    string     `json:"timezone"`
	Enabled     bool       `json:"enabled"`
	NextDueAt   *time.Time `json:"next_due_at,omitempty"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
	LastPlanID  *uuid.UUID `json:"last_plan_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TriggerFromDomain конвертирует domain.Trigger в TriggerResponse.
func TriggerFromDomain(t *domain.Trigger) TriggerResponse {
	if t == nil {
		return TriggerResponse{}
	}
	return TriggerResponse{
		ID:          t.ID,
		PipelineID:  t.PipelineID,
		Name:        t.Name,
		CronExpr:    t.CronExpr,
		IntervalSec: t.IntervalSec,
		Timezone:    t.Timezone,
		Enabled:     t.Enabled,
		NextDueAt:   t.NextDueAt,
		LastFiredAt: t.LastFiredAt,
		LastPlanID:  t.LastPlanID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
