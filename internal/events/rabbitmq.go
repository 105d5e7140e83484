package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
)

const CommentExchange = "comment_events"

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type rabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       channel
	exchange string
}

var _ domain.EventPublisher = (*rabbitPublisher)(nil)

// Dial connects to the broker and declares the durable topic exchange.
func Dial(url string) (*rabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	p, err := newRabbitPublisher(ch, CommentExchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string) (*rabbitPublisher, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &rabbitPublisher{ch: ch, exchange: exchange}, nil
}

// Publish sends the event with its type as routing key.
func (p *rabbitPublisher) Publish(ctx context.Context, e domain.CommentEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		MessageId:     uuid.NewString(),
		CorrelationId: e.CommentID,
		Body:          body,
	})
}

func (p *rabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		logrus.Warnf("failed to close rabbitmq channel: %v", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct{}

var _ domain.EventPublisher = noopPublisher{}

// NewNoopPublisher is used when no broker is configured.
func NewNoopPublisher() domain.EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(_ context.Context, e domain.CommentEvent) error {
	logrus.Debugf("event %s for comment %s not published: no broker configured", e.Type, e.CommentID)
	return nil
}
