// Package event publishes domain events to a RabbitMQ topic exchange.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultExchange = "vocanova.events"

type Type string

const (
	QuizCompleted       Type = "quiz.completed"
	AchievementUnlocked Type = "achievement.unlocked"
	AchievementClaimed  Type = "achievement.claimed"
	PowerUpPurchased    Type = "powerup.purchased"
	LessonCompleted     Type = "lesson.completed"
)

// Event is the JSON body of every published message.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func New(t Type, uid string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     uid,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher sends events. With an empty URL it is disabled and drops events.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	logger   *zap.Logger
}

func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if url == "" {
		logger.Warn("AMQP URL is empty, event publishing is disabled")
		return &Publisher{exchange: exchange, logger: logger}, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("event publisher initialized", zap.String("exchange", exchange))

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		logger:   logger,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if !p.enabled {
		p.logger.Debug("event publishing disabled, skipping event", zap.String("type", string(e.Type)))
		return nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,     // exchange
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Body:         body,
			Headers: amqp091.Table{
				"event_type": string(e.Type),
				"user_id":    e.UserID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.logger.Warn("close channel", zap.Error(err))
	}
	return p.conn.Close()
}
