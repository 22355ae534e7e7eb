package planner

import "errors"

// Ошибки planner-сервиса.
var (
	// ErrPlanNotFound — запись плана не найдена в БД.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPipelineNotFound — pipeline не найден.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrVersionNotFound — версия pipeline не найдена.
	ErrVersionNotFound = errors.New("pipeline version not found")

	// ErrPlanNotPending — запись плана не в статусе PENDING.
	ErrPlanNotPending = errors.New("plan is not in PENDING status")

	// ErrPlanAlreadyActive — запись плана уже обрабатывается.
	ErrPlanAlreadyActive = errors.New("plan already being processed")

	// ErrPlannerStopped — planner остановлен.
	ErrPlannerStopped = errors.New("planner stopped")
)
