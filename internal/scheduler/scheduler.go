package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Scheduler — планировщик, обрабатывающий due triggers.
type Scheduler struct {
	triggerRepo  *repo.TriggerRepo
	planRepo     *repo.PlanRepo
	pipelineRepo *repo.PipelineRepo
	publisher    *mq.Publisher
	logger       *slog.Logger
	batchSize    int
}

// Config — конфигурация Scheduler.
type Config struct {
	TriggerRepo  *repo.TriggerRepo
	PlanRepo     *repo.PlanRepo
	PipelineRepo *repo.PipelineRepo
	Publisher    *mq.Publisher
	Logger       *slog.Logger
	BatchSize    int // количество triggers за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		triggerRepo:  cfg.TriggerRepo,
		planRepo:     cfg.PlanRepo,
		pipelineRepo: cfg.PipelineRepo,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		batchSize:    batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due triggers (enabled=true, next_due_at <= now)
// 2. Для каждого trigger создаёт запрос плана
// 3. Обновляет next_due_at
// 4. Публикует plan.requested в RabbitMQ
//
// Ошибки одного trigger не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	// 1. Находим due triggers
	triggers, err := s.triggerRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due triggers: %w", err)
	}

	if len(triggers) == 0 {
		return nil
	}

	s.logger.Debug("found due triggers", "count", len(triggers))

	// 2. Обрабатываем каждый trigger
	var processed, created int
	for i := range triggers {
		trigger := &triggers[i]

		planCreated, err := s.processTrigger(ctx, trigger, now)
		if err != nil {
			s.logger.Error("failed to process trigger",
				"trigger_id", trigger.ID,
				"trigger_name", trigger.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if planCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(triggers),
		"processed", processed,
		"plans_created", created,
	)

	return nil
}

// processTrigger обрабатывает один trigger.
// Возвращает true, если запрос плана был создан (не был дубликатом).
func (s *Scheduler) processTrigger(ctx context.Context, trigger *domain.Trigger, now time.Time) (bool, error) {
	// 1. Проверяем, что pipeline существует и имеет версии
	version, err := s.pipelineRepo.GetLatestVersion(ctx, trigger.PipelineID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("pipeline not found for trigger, skipping",
				"trigger_id", trigger.ID,
				"pipeline_id", trigger.PipelineID,
			)
			// Не возвращаем ошибку — просто пропускаем
			return false, nil
		}
		return false, fmt.Errorf("get latest pipeline version: %w", err)
	}

	if trigger.NextDueAt == nil {
		return false, fmt.Errorf("trigger %s has no next_due_at", trigger.ID)
	}

	// 2. Формируем idempotency key: "{trigger_id}_{next_due_at_unix}"
	// Это гарантирует, что для одного trigger и конкретного времени
	// будет создан только один запрос плана
	idempKey := fmt.Sprintf("%s_%d", trigger.ID, trigger.NextDueAt.Unix())

	// 3. Проверяем, не создан ли уже запрос (idempotency)
	existing, err := s.planRepo.GetByIdempotencyKey(ctx, trigger.PipelineID, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var planCreated bool
	var planID uuid.UUID

	if existing != nil {
		// Запрос уже существует — просто обновляем next_due_at
		s.logger.Debug("plan request already exists (idempotency)",
			"trigger_id", trigger.ID,
			"plan_id", existing.ID,
			"idempotency_key", idempKey,
		)
		planID = existing.ID
		planCreated = false
	} else {
		// 4. Создаём новый запрос плана
		record := &domain.PlanRecord{
			ID:             uuid.New(),
			PipelineID:     trigger.PipelineID,
			Version:        version.Version,
			Status:         domain.PlanStatusPending,
			IdempotencyKey: idempKey,
			CreatedAt:      now,
		}

		if err := s.planRepo.Create(ctx, record); err != nil {
			return false, fmt.Errorf("create plan request: %w", err)
		}

		telemetry.TriggerFiredTotal.Inc()

		s.logger.Info("created plan request from trigger",
			"plan_id", record.ID,
			"trigger_id", trigger.ID,
			"trigger_name", trigger.Name,
			"pipeline_id", trigger.PipelineID,
			"version", version.Version,
		)

		planID = record.ID
		planCreated = true
	}

	// 5. Вычисляем следующее время срабатывания
	nextDue, err := CalculateNextDue(trigger, now)
	if err != nil {
		s.logger.Error("failed to calculate next due",
			"trigger_id", trigger.ID,
			"error", err,
		)
		// Trigger некорректный — лучше не трогать next_due_at
		return planCreated, nil
	}

	// 6. Обновляем trigger
	trigger.RecordFired(planID, nextDue)
	if err := s.triggerRepo.Update(ctx, trigger); err != nil {
		return planCreated, fmt.Errorf("update trigger: %w", err)
	}

	// 7. Публикуем событие в RabbitMQ (если publisher настроен и запрос создан)
	if s.publisher != nil && planCreated {
		if err := s.publisher.PublishPlanRequested(ctx, planID); err != nil {
			// Не фатальная ошибка — запись уже создана в БД
			// Planner может забрать её через polling
			s.logger.Warn("failed to publish plan.requested",
				"plan_id", planID,
				"error", err,
			)
		}
	}

	return planCreated, nil
}
