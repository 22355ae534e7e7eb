// Package telemetry — наблюдаемость сервисов Conductor.
//
// Состав:
//   - logging.go — structured logging через slog (JSON в production)
//   - metrics.go — Prometheus метрики планирования
//
// Каждый бинарник (api, planner, scheduler) инициализирует логгер
// через SetupLogger и отдаёт метрики на /metrics endpoint.
package telemetry
