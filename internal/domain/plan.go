package domain

import (
	"time"

	"github.com/google/uuid"
)

// Binding — связанные значения параметров одного job.
//
// Результат работы Parameter Binder: имя параметра → значение,
// прошедшее проверку типа, с применёнными defaults.
type Binding map[string]any

// JobNode — инстанцирование шаблона с конкретным связыванием параметров.
//
// JobNode создаётся Graph Resolver'ом на каждый JobDef и живёт до
// завершения объемлющего ExecutionPlan. После резолюции мутируется
// только статус (внешним executor'ом через API).
type JobNode struct {
	// ID — идентификатор job из JobDef.
	ID string `json:"id"`

	// Template — имя шаблона.
	Template string `json:"template"`

	// Version — версия шаблона.
	Version string `json:"version"`

	// Parameters — связанные значения параметров.
	Parameters Binding `json:"parameters,omitempty"`

	// Needs — ID jobs-предшественников (рёбра зависимостей).
	Needs []string `json:"needs,omitempty"`

	// Steps — исполняемые шаги: шаги шаблона за вычетом пропущенных по condition.
	Steps []StepSpec `json:"steps"`

	// Status — статус выполнения job.
	Status JobStatus `json:"status"`
}

// SkippedStepRecord — запись о шаге, пропущенном по condition.
//
// Пропуск — не ошибка: шаг не попадает в план как исполняемая единица,
// но факт пропуска фиксируется для наблюдаемости.
type SkippedStepRecord struct {
	// JobID — ID job, в котором пропущен шаг.
	JobID string `json:"job_id"`

	// StepID — ID пропущенного шага.
	StepID string `json:"step_id"`

	// Condition — условие, которое вычислилось в false.
	Condition string `json:"condition"`
}

// ExecutionPlan — итог планирования: упорядоченные батчи jobs.
//
// Внутри батча нет рёбер зависимостей — jobs объявлены независимыми
// и безопасными для параллельного запуска внешним executor'ом.
// Все зависимости job находятся в строго более ранних батчах.
//
// План детерминирован: батчи отсортированы лексикографически по ID job,
// поэтому одинаковый вход даёт байт-в-байт одинаковый план.
type ExecutionPlan struct {
	// Pipeline — имя pipeline, для которого построен план.
	Pipeline string `json:"pipeline,omitempty"`

	// Batches — упорядоченные батчи: каждый — отсортированный список ID jobs.
	Batches [][]string `json:"batches"`

	// Jobs — все JobNode плана, отсортированные по ID.
	Jobs []JobNode `json:"jobs"`

	// Skips — шаги, пропущенные по condition при резолюции.
	Skips []SkippedStepRecord `json:"skips,omitempty"`
}

// JobCount возвращает количество jobs в плане.
func (p *ExecutionPlan) JobCount() int {
	return len(p.Jobs)
}

// Job возвращает JobNode по ID.
// Второе значение — false, если job не найден.
func (p *ExecutionPlan) Job(id string) (*JobNode, bool) {
	for i := range p.Jobs {
		if p.Jobs[i].ID == id {
			return &p.Jobs[i], true
		}
	}
	return nil, false
}

// PlanRecord — персистентная запись о запросе плана.
//
// PlanRecord создаётся когда:
// - Пользователь запрашивает план через API/CLI
// - Scheduler создаёт запрос по триггеру
//
// Planner-сервис забирает PENDING записи, строит план и публикует
// его внешнему executor'у через MQ.
type PlanRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// PipelineID — ссылка на pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — версия pipeline, для которой строится план.
	Version int `json:"version"`

	// Status — текущий статус записи.
	Status PlanStatus `json:"status"`

	// Plan — построенный план. Nil, пока запись PENDING или FAILED.
	// Частичный план не сохраняется никогда: либо полный, либо nil.
	Plan *ExecutionPlan `json:"plan,omitempty"`

	// Error — текст ошибки планирования, если запись FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Для триггерных запросов: "{trigger_id}_{next_due_at}"
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// FinishedAt — время завершения планирования (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если планирование завершено.
func (r *PlanRecord) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkPublished сохраняет построенный план и переводит запись в PUBLISHED.
func (r *PlanRecord) MarkPublished(plan *ExecutionPlan) {
	now := time.Now()
	r.Status = PlanStatusPublished
	r.Plan = plan
	r.FinishedAt = &now
}

// MarkFailed переводит запись в FAILED с ошибкой.
// План при этом не сохраняется.
func (r *PlanRecord) MarkFailed(err string) {
	now := time.Now()
	r.Status = PlanStatusFailed
	r.Plan = nil
	r.Error = err
	r.FinishedAt = &now
}
