package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "assistant_index_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "assistant_index_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "assistant_jobs"
	// DefaultDelayedExchangeName is the default delayed exchange name (requires plugin)
	DefaultDelayedExchangeName = "assistant_jobs_delayed"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// ErrQueueClosed is returned by HealthCheck when the connection is gone
var ErrQueueClosed = errors.New("rabbitmq connection closed")

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
	delayed             bool
	logger              *zap.Logger
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)

// NewRabbitMQQueue connects and declares the exchanges and queues
func NewRabbitMQQueue(amqpURL string, log *zap.Logger) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		logger:              logger.OrNop(log),
	}

	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

// setup configures exchanges and queues
func (q *RabbitMQQueue) setup() error {
	// Delayed exchange requires the rabbitmq_delayed_message_exchange plugin
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		// A failed declare closes the channel
		if q.channel.IsClosed() {
			newCh, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = newCh
		}
		q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))
	} else {
		q.delayed = true
	}

	err = q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err = q.channel.QueueDeclare(q.dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err = q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Rejected jobs dead-letter into the DLQ
	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err = q.channel.QueueDeclare(q.queueName, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err = q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}
	if q.delayed {
		if err = q.channel.QueueBind(q.queueName, jobsRoutingKey, q.delayedExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to delayed exchange: %w", err)
		}
	}

	return nil
}

// Enqueue adds a job to the queue. Jobs with a future NotBefore go through the
// delayed exchange when it is available.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	exchange := q.exchangeName
	if job.NotBefore != nil && q.delayed {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
		}
	}

	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume returns a channel of messages from the queue using async delivery
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan Delivery, <-chan error, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}

	// Consumers get their own channel
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack (false = manual ack required)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan Delivery, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- errors.New("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					// Undecodable jobs go straight to the DLQ
					_ = delivery.Nack(false, false)
					q.reportError(errChan, fmt.Errorf("failed to unmarshal job: %w", err))
					continue
				}

				msg := &rabbitDelivery{job: &job, raw: delivery}

				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// reportError forwards err without blocking the delivery loop
func (q *RabbitMQQueue) reportError(errChan chan<- error, err error) {
	select {
	case errChan <- err:
	default:
		q.logger.Warn("queue_error_dropped", zap.Error(err))
	}
}

// PurgeOlderThan drops dead-lettered jobs published more than retention ago.
// Younger jobs are returned to the DLQ. At most the current DLQ depth is inspected.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	state, err := q.channel.QueueDeclarePassive(q.dlqName, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	purged := 0
	for i := 0; i < state.Messages; i++ {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		delivery, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			break
		}
		if publishedAt(delivery).Before(cutoff) {
			if err := delivery.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to drop DLQ message: %w", err)
			}
			purged++
			continue
		}
		if err := delivery.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to return DLQ message: %w", err)
		}
	}
	return purged, nil
}

// publishedAt prefers the AMQP timestamp and falls back to the job's created_at
func publishedAt(d amqp.Delivery) time.Time {
	if !d.Timestamp.IsZero() {
		return d.Timestamp
	}
	var job Job
	if err := json.Unmarshal(d.Body, &job); err == nil {
		return job.CreatedAt
	}
	return time.Time{}
}

// Depth returns the number of ready messages in the main queue and the DLQ
func (q *RabbitMQQueue) Depth() (ready, dead int, err error) {
	main, err := q.channel.QueueDeclarePassive(q.queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	dlq, err := q.channel.QueueDeclarePassive(q.dlqName, true, false, false, false, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}
	return main.Messages, dlq.Messages, nil
}

// HealthCheck reports whether the connection and publishing channel are open
func (q *RabbitMQQueue) HealthCheck(_ context.Context) error {
	if q.conn == nil || q.conn.IsClosed() || q.channel == nil || q.channel.IsClosed() {
		return ErrQueueClosed
	}
	return nil
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
