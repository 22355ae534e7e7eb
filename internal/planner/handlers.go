package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// handlePlanRequested обрабатывает событие о новом запросе плана.
func (p *Planner) handlePlanRequested(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	payload, err := mq.ParsePayload[mq.PlanRequestedPayload](&delivery.Message)
	if err != nil {
		p.logger.Error("failed to parse plan.requested payload", "error", err)
		return err
	}

	p.logger.Debug("received plan.requested event", "plan_id", payload.PlanID)

	// Проверяем, не обрабатывается ли уже
	if p.isPlanActive(payload.PlanID) {
		p.logger.Debug("plan already active, skipping", "plan_id", payload.PlanID)
		return nil
	}

	if err := p.processPlan(ctx, payload.PlanID); err != nil {
		// Повторная доставка уже обработанной записи — не ошибка
		if errors.Is(err, ErrPlanNotPending) || errors.Is(err, ErrPlanAlreadyActive) {
			p.logger.Debug("plan not processed", "plan_id", payload.PlanID, "reason", err)
			return nil
		}
		p.logger.Error("failed to process plan", "plan_id", payload.PlanID, "error", err)
		return err
	}

	return nil
}

// processPlan обрабатывает один запрос плана.
//
// Ошибки валидации (неизвестный шаблон, несвязанный параметр, цикл)
// терминальны: запись переводится в FAILED и не переобрабатывается.
// Инфраструктурные ошибки (БД) возвращаются наверх для retry.
func (p *Planner) processPlan(ctx context.Context, planID uuid.UUID) error {
	// 1. Загружаем запись из БД
	record, err := p.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return fmt.Errorf("get plan: %w", err)
	}

	// 2. Проверяем статус
	if record.Status != domain.PlanStatusPending {
		return ErrPlanNotPending
	}

	// 3. Помечаем как обрабатываемую
	if err := p.addActivePlan(planID); err != nil {
		return err
	}
	defer p.removeActivePlan(planID)

	// 4. Строим план
	plan, buildErr := p.buildPlan(ctx, record)
	if buildErr != nil {
		// Инфраструктурные ошибки пробрасываем для retry
		var infra *infraError
		if errors.As(buildErr, &infra) {
			return infra.err
		}
		// Ошибки валидации терминальны
		return p.failPlan(ctx, record, buildErr)
	}

	// 5. Сохраняем и публикуем
	return p.publishPlan(ctx, record, plan)
}

// infraError помечает ошибку как инфраструктурную (подлежит retry).
type infraError struct {
	err error
}

func (e *infraError) Error() string { return e.err.Error() }
func (e *infraError) Unwrap() error { return e.err }

// buildPlan загружает определение pipeline и шаблоны, резолвит граф и строит план.
func (p *Planner) buildPlan(ctx context.Context, record *domain.PlanRecord) (*domain.ExecutionPlan, error) {
	// 1. Загружаем версию pipeline
	version, err := p.pipelineRepo.GetVersion(ctx, record.PipelineID, record.Version)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, record.PipelineID, record.Version)
		}
		return nil, &infraError{err: fmt.Errorf("get pipeline version: %w", err)}
	}

	// 2. Загружаем шаблоны, на которые ссылаются jobs
	registry := engine.NewRegistry()
	seen := make(map[string]bool)
	for _, job := range version.Def.Jobs {
		ref := job.Template + "@" + job.Version
		if seen[ref] {
			continue
		}
		seen[ref] = true

		def, err := p.templateRepo.Get(ctx, job.Template, job.Version)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", engine.ErrUnresolvedTemplateReference, ref)
			}
			return nil, &infraError{err: fmt.Errorf("get template %s: %w", ref, err)}
		}

		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("register template %s: %w", ref, err)
		}
	}

	// 3. Резолвим граф
	graph, err := engine.Resolve(registry, &version.Def)
	if err != nil {
		return nil, err
	}

	// 4. Строим план
	return engine.Plan(graph, engine.PlanOptions{})
}

// publishPlan сохраняет построенный план и публикует plan.ready.
func (p *Planner) publishPlan(ctx context.Context, record *domain.PlanRecord, plan *domain.ExecutionPlan) error {
	record.MarkPublished(plan)
	if err := p.planRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("update plan to published: %w", err)
	}

	telemetry.PlansPublishedTotal.Inc()
	telemetry.PlanJobs.Observe(float64(plan.JobCount()))
	telemetry.PlanBatches.Observe(float64(len(plan.Batches)))

	p.logger.Info("plan published",
		"plan_id", record.ID,
		"pipeline_id", record.PipelineID,
		"version", record.Version,
		"jobs", plan.JobCount(),
		"batches", len(plan.Batches),
		"skips", len(plan.Skips),
	)

	if p.publisher != nil {
		err := p.publisher.PublishPlanReady(ctx, mq.PlanReadyPayload{
			PlanID:     record.ID,
			PipelineID: record.PipelineID,
			Version:    record.Version,
		})
		if err != nil {
			// План сохранён в БД — executor может забрать его через API
			p.logger.Warn("failed to publish plan.ready",
				"plan_id", record.ID,
				"error", err,
			)
		}
	}

	return nil
}

// failPlan переводит запись в FAILED и публикует plan.failed.
func (p *Planner) failPlan(ctx context.Context, record *domain.PlanRecord, planErr error) error {
	record.MarkFailed(planErr.Error())
	if err := p.planRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("update plan to failed: %w", err)
	}

	telemetry.PlansFailedTotal.Inc()

	p.logger.Warn("plan failed",
		"plan_id", record.ID,
		"pipeline_id", record.PipelineID,
		"version", record.Version,
		"error", planErr,
	)

	if p.publisher != nil {
		err := p.publisher.PublishPlanFailed(ctx, mq.PlanFailedPayload{
			PlanID:     record.ID,
			PipelineID: record.PipelineID,
			Error:      planErr.Error(),
		})
		if err != nil {
			p.logger.Warn("failed to publish plan.failed",
				"plan_id", record.ID,
				"error", err,
			)
		}
	}

	return nil
}
