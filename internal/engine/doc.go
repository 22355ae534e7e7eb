// Package engine содержит ядро планирования pipeline.
//
// Включает:
//   - registry.go — хранилище версионированных шаблонов
//   - binder.go   — связывание параметров со схемой шаблона
//   - expr.go     — язык условий шагов (закрытое дерево выражений)
//   - resolver.go — разворачивание pipeline в DAG jobs
//   - planner.go  — послойная топологическая сортировка в батчи
//
// Engine — чистая библиотека: не выполняет jobs, не ходит в сеть и в БД.
// Каждый вызов Resolve+Plan — чистая функция от шаблонов и определения
// pipeline, поэтому несвязанные pipelines можно планировать параллельно.
package engine
