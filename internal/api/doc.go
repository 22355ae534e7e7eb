// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (репозитории, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - template_handler.go — обработчики для /templates
//   - pipeline_handler.go — обработчики для /pipelines
//   - plan_handler.go     — обработчики для /plans
//   - trigger_handler.go  — обработчики для /triggers
//
// API предоставляет REST endpoints для управления шаблонами, pipelines,
// планами и триггерами. Ошибки валидации движка планирования
// возвращаются как 422 с машиночитаемым кодом.
package api
