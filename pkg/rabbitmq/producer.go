/**
 * @description
 * This package provides a producer for publishing activity events to RabbitMQ.
 * Every successful mutation emits one event to a durable topic exchange with a
 * routing key of the form `activity.<type>`, so downstream consumers (mailers,
 * webhooks, analytics) can subscribe to the slices they care about.
 *
 * The event stream is advisory: the authoritative audit trail lives in the
 * activities table, and the service keeps running with a no-op fallback
 * publisher when no broker is configured.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/google/uuid: Event id generation.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// ActivityEvent is the payload published for each recorded activity.
type ActivityEvent struct {
	EventID   uuid.UUID      `json:"event_id"`
	UserID    int64          `json:"user_id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventProducer holds the RabbitMQ connection and channel for publishing messages.
type EventProducer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	PublishActivityEvent(ctx context.Context, userID int64, activityType string, payload map[string]any) error
	Close()
}

// EventProducerFallback is a minimal no-op publisher used when RabbitMQ is unavailable at startup.
type EventProducerFallback struct{}

func (p *EventProducerFallback) PublishActivityEvent(ctx context.Context, userID int64, activityType string, payload map[string]any) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"activity event publish skipped\" type=%s", activityType)
	return nil
}

func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer connects to RabbitMQ and returns a producer bound to the
// given exchange.
func NewEventProducer(amqpURL, exchange string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishActivityEvent publishes one activity event with routing key
// `activity.<type>`.
func (p *EventProducer) PublishActivityEvent(ctx context.Context, userID int64, activityType string, payload map[string]any) error {
	event := ActivityEvent{
		EventID:   uuid.New(),
		UserID:    userID,
		Type:      activityType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, "activity."+activityType, event)
}

func (p *EventProducer) publish(ctx context.Context, routingKey string, body any) error {
	// Ensure the exchange exists (durable topic)
	if err := p.declareExchange(); err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"exchange declare failed; reopening channel\" exchange=%s err=%v", p.exchange, err)
		if reopenErr := p.reopenChannel(); reopenErr != nil {
			return reopenErr
		}
		if err := p.declareExchange(); err != nil {
			return err
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Printf("level=error component=rabbitmq_producer msg=\"json marshal failed\" exchange=%s routing_key=%s err=%v", p.exchange, routingKey, err)
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		},
	)
	if err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"publish failed; reopening channel\" exchange=%s routing_key=%s err=%v", p.exchange, routingKey, err)
		// One-shot retry: reopen channel and try again
		if reopenErr := p.reopenChannel(); reopenErr != nil {
			return err
		}
		if exErr := p.declareExchange(); exErr != nil {
			return err
		}
		return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		})
	}
	return nil
}

func (p *EventProducer) declareExchange() error {
	return p.channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	)
}

func (p *EventProducer) reopenChannel() error {
	if p.conn == nil {
		return errors.New("rabbitmq connection is not open")
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
