package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const exchangeName = "voice_campaigns"

// AMQPQueue publishes events to a durable topic exchange on RabbitMQ.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	mu     sync.Mutex
	group  string
	logger *zap.Logger
}

// DialAMQP connects and declares the exchange. group names the durable
// consumer queue so several worker processes share one subscription.
func DialAMQP(url, group string, logger *zap.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, group: group, logger: logger}, nil
}

func (q *AMQPQueue) Publish(topic string, event CampaignEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.Publish(
		exchangeName,
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe binds a durable queue to topic and consumes it in a goroutine.
// A failing handler gets one redelivery; after that the message is dropped.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	name := q.group + "." + topic
	declared, err := q.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := q.ch.QueueBind(declared.Name, topic, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	msgs, err := q.ch.Consume(
		declared.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", name, err)
	}

	go func() {
		for d := range msgs {
			var event CampaignEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				q.logger.Warn("invalid event payload", zap.Error(err))
				d.Ack(false)
				continue
			}
			if err := handler(event); err != nil {
				q.logger.Warn("event handler failed",
					zap.String("type", string(event.Type)),
					zap.Int64("campaign_id", event.CampaignID),
					zap.Bool("redelivered", d.Redelivered),
					zap.Error(err),
				)
				d.Nack(false, !d.Redelivered)
				continue
			}
			d.Ack(false)
		}
	}()
	return nil
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
