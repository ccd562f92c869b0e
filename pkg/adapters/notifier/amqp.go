package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// Message is the JSON body published for every notification.
type Message struct {
	Kind       domain.EventKind `json:"kind"`
	Code       string           `json:"code"`
	OwnerID    string           `json:"owner_id"`
	Target     string           `json:"target"`
	UseCount   int              `json:"use_count"`
	UseLimit   int              `json:"use_limit"`
	TTLHours   int              `json:"ttl_hours"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher delivers one message body to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// AMQPNotifier publishes notifications to a durable queue for
// downstream consumers (mail, chat, webhooks).
type AMQPNotifier struct {
	publisher Publisher
	queue     string
	clock     ports.Clock
}

func NewAMQPNotifier(publisher Publisher, queue string, clock ports.Clock) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, queue: queue, clock: clock}
}

func (n *AMQPNotifier) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	return n.publish(ctx, domain.EventLimitReached, link)
}

func (n *AMQPNotifier) NotifyExpired(ctx context.Context, link domain.Link) error {
	return n.publish(ctx, domain.EventExpired, link)
}

func (n *AMQPNotifier) publish(ctx context.Context, kind domain.EventKind, link domain.Link) error {
	body, err := json.Marshal(Message{
		Kind:       kind,
		Code:       link.Code,
		OwnerID:    link.OwnerID,
		Target:     link.Target,
		UseCount:   link.UseCount,
		UseLimit:   link.UseLimit,
		TTLHours:   link.TTLHours,
		OccurredAt: n.clock.Now(),
	})
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, n.queue, body); err != nil {
		return fmt.Errorf("publish %s for '%s': %w", kind, link.Code, err)
	}
	return nil
}

// RabbitMQ is a Publisher over one AMQP connection, redialed when closed.
type RabbitMQ struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
}

func DialRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &RabbitMQ{url: url, conn: conn}, nil
}

func (r *RabbitMQ) connection() (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		conn, err := amqp.Dial(r.url)
		if err != nil {
			return nil, err
		}
		r.conn = conn
	}
	return r.conn, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, queue string, body []byte) error {
	conn, err := r.connection()
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	return channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

var (
	_ ports.Notifier = (*AMQPNotifier)(nil)
	_ Publisher      = (*RabbitMQ)(nil)
)
