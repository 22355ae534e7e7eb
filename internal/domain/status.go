package domain

// PlanStatus — статус запроса плана.
//
// Жизненный цикл:
//
//	PENDING → PUBLISHED
//	        ↘ FAILED
type PlanStatus string

const (
	// PlanStatusPending — запрос создан, план ещё не построен.
	PlanStatusPending PlanStatus = "PENDING"

	// PlanStatusPublished — план построен, сохранён и опубликован executor'у.
	PlanStatusPublished PlanStatus = "PUBLISHED"

	// PlanStatusFailed — планирование завершилось ошибкой валидации.
	// Ошибки входных данных не ретраятся — нужен исправленный запрос.
	PlanStatusFailed PlanStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PlanStatus) IsTerminal() bool {
	switch s {
	case PlanStatusPublished, PlanStatusFailed:
		return true
	default:
		return false
	}
}

// JobStatus — статус выполнения job внутри плана.
//
// Статусы проставляет внешний executor; planner создаёт jobs в PENDING.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	        ↘ SKIPPED (executor пропустил job из-за упавшей зависимости)
type JobStatus string

const (
	// JobStatusPending — job ожидает своего батча.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusRunning — job выполняется executor'ом.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job успешно завершён.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusSkipped — job пропущен executor'ом.
	JobStatusSkipped JobStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusSkipped:
		return true
	default:
		return false
	}
}
