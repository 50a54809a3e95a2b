package queue

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQQueue publishes every subject to one durable topic exchange, using
// the subject as routing key.
type RabbitMQQueue struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	url           string
	exchange      string
	reconnectWait time.Duration
	mu            sync.RWMutex
	closed        bool
	log           *zap.Logger
}

func NewRabbitMQQueue(url, exchange string, reconnectWait time.Duration, log *zap.Logger) (MessageQueue, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if reconnectWait <= 0 {
		reconnectWait = 5 * time.Second
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := openChannel(conn, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}

	q := &RabbitMQQueue{
		conn:          conn,
		channel:       ch,
		url:           url,
		exchange:      exchange,
		reconnectWait: reconnectWait,
		log:           log,
	}

	go q.monitorConnection()

	log.Info("Successfully connected to RabbitMQ", zap.String("exchange", exchange))
	return q, nil
}

func openChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	return ch, nil
}

func (q *RabbitMQQueue) Publish(subject string, data []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	err := q.channel.Publish(
		q.exchange, subject, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", subject, err)
	}
	return nil
}

func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	queue, err := q.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	if err := q.channel.QueueBind(queue.Name, subject, q.exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := q.channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg.Body); err != nil {
				q.log.Error("Error processing RabbitMQ message",
					zap.String("routing_key", msg.RoutingKey),
					zap.Error(err),
				)
			}
		}
	}()

	q.log.Info("Subscribed to RabbitMQ subject", zap.String("subject", subject))
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *RabbitMQQueue) monitorConnection() {
	for {
		q.mu.RLock()
		conn := q.conn
		q.mu.RUnlock()

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok {
			return
		}
		q.log.Warn("RabbitMQ connection lost, reconnecting", zap.String("reason", reason.Reason))

		for {
			time.Sleep(q.reconnectWait)

			q.mu.RLock()
			closed := q.closed
			q.mu.RUnlock()
			if closed {
				return
			}

			conn, err := amqp.Dial(q.url)
			if err != nil {
				q.log.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				continue
			}
			ch, err := openChannel(conn, q.exchange)
			if err != nil {
				conn.Close()
				continue
			}

			q.mu.Lock()
			q.conn = conn
			q.channel = ch
			q.mu.Unlock()

			q.log.Info("Successfully reconnected to RabbitMQ")
			break
		}
	}
}
