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
	MessageTypeExecutionRequested MessageType = "execution.requested"
	MessageTypeExecutionCancel    MessageType = "execution.cancel"
	MessageTypeEventGenerated     MessageType = "event.generated"
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

// ExecutionRequestedPayload — payload запроса на выполнение сценария.
type ExecutionRequestedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	ScenarioID  uuid.UUID `json:"scenario_id"`
}

// ExecutionCancelPayload — payload запроса на отмену выполнения.
type ExecutionCancelPayload struct {
	ScenarioID uuid.UUID `json:"scenario_id"`
}

// EventGeneratedPayload — payload сгенерированного события.
type EventGeneratedPayload struct {
	InstanceID uuid.UUID       `json:"instance_id"`
	TemplateID uuid.UUID       `json:"template_id"`
	Channel    string          `json:"channel"`
	EventID    int             `json:"event_id"`
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
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

// PublishExecutionRequested публикует запрос на выполнение сценария.
// Потребитель: Engine.
func (p *Publisher) PublishExecutionRequested(ctx context.Context, executionID, scenarioID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionRequested,
		Payload:   ExecutionRequestedPayload{ExecutionID: executionID, ScenarioID: scenarioID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyRequested, msg)
}

// PublishExecutionCancel публикует запрос на отмену выполнения сценария.
// Потребитель: Engine.
func (p *Publisher) PublishExecutionCancel(ctx context.Context, scenarioID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionCancel,
		Payload:   ExecutionCancelPayload{ScenarioID: scenarioID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyCancel, msg)
}

// PublishEventGenerated публикует сгенерированное событие.
// Потребители: внешние коллекторы журналов.
func (p *Publisher) PublishEventGenerated(ctx context.Context, payload EventGeneratedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeEventGenerated,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyGenerated, msg)
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
