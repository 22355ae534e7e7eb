package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePlanRequested MessageType = "plan.requested"
	MessageTypePlanReady     MessageType = "plan.ready"
	MessageTypePlanFailed    MessageType = "plan.failed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PlanRequestedPayload — payload для сообщения о новом запросе плана.
type PlanRequestedPayload struct {
	PlanID uuid.UUID `json:"plan_id"`
}

// PlanReadyPayload — payload для сообщения о построенном плане.
// Сам план executor забирает по ID через API.
type PlanReadyPayload struct {
	PlanID     uuid.UUID `json:"plan_id"`
	PipelineID uuid.UUID `json:"pipeline_id"`
	Version    int       `json:"version"`
}

// PlanFailedPayload — payload для сообщения о неудачном планировании.
type PlanFailedPayload struct {
	PlanID     uuid.UUID `json:"plan_id"`
	PipelineID uuid.UUID `json:"pipeline_id"`
	Error      string    `json:"error"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishPlanRequested публикует событие о новом запросе плана.
// Потребитель: Planner.
func (p *Publisher) PublishPlanRequested(ctx context.Context, planID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypePlanRequested,
		Payload:   PlanRequestedPayload{PlanID: planID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangePipelines, RoutingKeyRequested, msg)
}

// PublishPlanReady публикует событие о построенном плане.
// Потребитель: внешний executor.
func (p *Publisher) PublishPlanReady(ctx context.Context, payload PlanReadyPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypePlanReady,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangePlans, RoutingKeyReady, msg)
}

// PublishPlanFailed публикует событие о неудачном планировании.
// Потребитель: внешний executor.
func (p *Publisher) PublishPlanFailed(ctx context.Context, payload PlanFailedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypePlanFailed,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangePlans, RoutingKeyFailed, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, exchange, routingKey, msg)
}
