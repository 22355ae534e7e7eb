package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// Planner строит execution plans по запросам.
//
// Planner — центральный компонент системы, который:
//   - Получает запросы планирования из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending записи в БД (polling fallback)
//   - Загружает шаблоны и определение pipeline
//   - Резолвит граф jobs и строит план батчей
//   - Публикует готовый план внешнему executor'у
type Planner struct {
	// Repositories
	planRepo     *repo.PlanRepo
	pipelineRepo *repo.PipelineRepo
	templateRepo *repo.TemplateRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Active plans — записи в процессе планирования (planID → struct{})
	activePlans map[uuid.UUID]struct{}
	mu          sync.RWMutex

	// Consumers
	planConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Planner.
type Config struct {
	// Repositories
	PlanRepo     *repo.PlanRepo
	PipelineRepo *repo.PipelineRepo
	TemplateRepo *repo.TemplateRepo

	// MQ
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество записей за один poll (default: 100)

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Planner.
func New(cfg Config) *Planner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Planner{
		planRepo:     cfg.PlanRepo,
		pipelineRepo: cfg.PipelineRepo,
		templateRepo: cfg.TemplateRepo,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		activePlans:  make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Planner.
//
// Запускает:
//   - Consumer для pipelines.requested
//   - Polling горутину для fallback
func (p *Planner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	p.logger.Info("starting planner",
		"poll_interval", p.pollInterval,
		"batch_size", p.batchSize,
	)

	// Без MQ работаем в режиме polling-only
	if p.conn != nil {
		p.planConsumer = mq.NewConsumer(p.conn, p.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueuePipelinesRequested),
			Handler:  p.handlePlanRequested,
			Prefetch: 10,
		})

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.planConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("plan consumer error", "error", err)
			}
		}()
	} else {
		p.logger.Warn("no message queue connection, running in polling-only mode")
	}

	// Запускаем polling
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLoop(ctx)
	}()

	p.logger.Info("planner started")
	return nil
}

// Stop останавливает Planner.
func (p *Planner) Stop() {
	p.stoppedMu.Lock()
	p.stopped = true
	p.stoppedMu.Unlock()

	p.logger.Info("stopping planner...")

	if p.cancelFunc != nil {
		p.cancelFunc()
	}

	if p.planConsumer != nil {
		p.planConsumer.Stop()
	}

	// Ждём завершения горутин
	p.wg.Wait()

	p.logger.Info("planner stopped",
		"active_plans", len(p.activePlans),
	)
}

// IsStopped проверяет, остановлен ли Planner.
func (p *Planner) IsStopped() bool {
	p.stoppedMu.RLock()
	defer p.stoppedMu.RUnlock()
	return p.stopped
}

// pollLoop — цикл polling для fallback.
func (p *Planner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем запросы созданные пока были выключены)
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (p *Planner) poll(ctx context.Context) {
	records, err := p.planRepo.ListPending(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to list pending plans", "error", err)
		return
	}

	if len(records) == 0 {
		return
	}

	p.logger.Debug("poll found pending plans", "count", len(records))

	for i := range records {
		record := &records[i]

		// Проверяем, не обрабатывается ли уже
		if p.isPlanActive(record.ID) {
			continue
		}

		if err := p.processPlan(ctx, record.ID); err != nil {
			p.logger.Error("failed to process plan from poll",
				"plan_id", record.ID,
				"error", err,
			)
		}
	}
}

// isPlanActive проверяет, находится ли запись в обработке.
func (p *Planner) isPlanActive(planID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.activePlans[planID]
	return exists
}

// addActivePlan добавляет запись в активные.
func (p *Planner) addActivePlan(planID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.activePlans[planID]; exists {
		return ErrPlanAlreadyActive
	}

	p.activePlans[planID] = struct{}{}
	return nil
}

// removeActivePlan удаляет запись из активных.
func (p *Planner) removeActivePlan(planID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activePlans, planID)
}

// ActivePlansCount возвращает количество записей в обработке.
func (p *Planner) ActivePlansCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.activePlans)
}
