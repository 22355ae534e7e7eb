package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePipelines Exchange = "conductor.pipelines"
	ExchangePlans     Exchange = "conductor.plans"
	ExchangeDLQ       Exchange = "conductor.dlq"
)

// Queues — имена очередей.
const (
	QueuePipelinesRequested Queue = "pipelines.requested"
	QueuePlansReady         Queue = "plans.ready"
	QueuePlansFailed        Queue = "plans.failed"
	QueueDLQPlans           Queue = "dlq.plans"
)

// Routing keys.
const (
	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyReady     RoutingKey = "ready"
	RoutingKeyFailed    RoutingKey = "failed"
	RoutingKeyDLQPlans  RoutingKey = "plans"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangePipelines, "direct"},
		{ExchangePlans, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQPlans),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// pipelines.requested — без DLQ (запрос плана обрабатывается один раз)
		{QueuePipelinesRequested, nil},

		// plans.ready — с DLQ (executor может не забрать план после retry)
		{QueuePlansReady, dlqArgs},

		// plans.failed — без DLQ (события об ошибках планирования)
		{QueuePlansFailed, nil},

		// dlq.plans — сама DLQ очередь
		{QueueDLQPlans, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueuePipelinesRequested, RoutingKeyRequested, ExchangePipelines},
		{QueuePlansReady, RoutingKeyReady, ExchangePlans},
		{QueuePlansFailed, RoutingKeyFailed, ExchangePlans},
		{QueueDLQPlans, RoutingKeyDLQPlans, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Conductor RabbitMQ Topology:

    conductor.pipelines (direct)
    └── pipelines.requested [routing: requested]
            Consumer: Planner

    conductor.plans (direct)
    ├── plans.ready [routing: ready]
    │       Consumer: external executor
    │       DLQ: dlq.plans
    └── plans.failed [routing: failed]
            Consumer: external executor

    conductor.dlq (direct)
    └── dlq.plans [routing: plans]
            Manual processing
  `
}
