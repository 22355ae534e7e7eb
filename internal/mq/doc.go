// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - plan.requested — новый запрос плана ожидает планирования
//   - plan.ready     — план построен и готов для executor'а
//   - plan.failed    — планирование завершилось ошибкой
//
// Exchanges:
//   - conductor.pipelines — запросы планирования
//   - conductor.plans     — события о планах
//   - conductor.dlq       — dead letter queue
package mq
