package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/roomservice/api/internal/events"
)

type channelSource interface {
	Channel() (*amqp091.Channel, error)
}

// Publisher sends order events to the order fanout exchange.
type Publisher struct {
	conn channelSource
}

func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Name() string { return "rabbitmq" }

// Send publishes env as a persistent JSON message routed by event type.
func (p *Publisher) Send(ctx context.Context, env events.Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	msg, err := publishing(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(ctx, ExchangeOrderEvents, env.EventType, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}
	return nil
}

func publishing(env events.Envelope) (amqp091.Publishing, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("encode envelope: %w", err)
	}
	return amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Type:          env.EventType,
		Timestamp:     env.OccurredAt,
	}, nil
}
