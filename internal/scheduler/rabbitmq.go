package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "commitment_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "commitment_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "commitment_exchange"
	// DefaultDelayedExchangeName is the default delayed exchange name (requires plugin)
	DefaultDelayedExchangeName = "commitment_exchange_delayed"

	// registryTTLSlack keeps a registration alive past the job's fire time
	// so a slow broker delivery still finds it
	registryTTLSlack = 24 * time.Hour
)

// RabbitMQScheduler implements Scheduler over RabbitMQ's delayed message
// exchange. Job registrations live in a JobRegistry so cancellations take
// effect even though published messages cannot be recalled.
type RabbitMQScheduler struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	registry            JobRegistry
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
}

// NewRabbitMQScheduler connects to RabbitMQ and declares the exchanges and
// queues the scheduler needs
func NewRabbitMQScheduler(amqpURL string, registry JobRegistry) (*RabbitMQScheduler, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	s := &RabbitMQScheduler{
		conn:                conn,
		channel:             ch,
		registry:            registry,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := s.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return s, nil
}

// setup configures exchanges and queues
func (s *RabbitMQScheduler) setup() error {
	// Delayed exchange requires the rabbitmq_delayed_message_exchange plugin
	delayedArgs := amqp.Table{
		"x-delayed-type": "direct",
	}
	err := s.channel.ExchangeDeclare(
		s.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		delayedArgs,
	)
	if err != nil {
		if s.channel.IsClosed() {
			newCh, openErr := s.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			s.channel = newCh
		}
		return fmt.Errorf("delayed message exchange unavailable (is the plugin installed?): %w", err)
	}

	err = s.channel.ExchangeDeclare(
		s.exchangeName,
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

	_, err = s.channel.QueueDeclare(
		s.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{},
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = s.channel.QueueBind(
		s.dlqName,
		"dlq", // routing key
		s.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    s.exchangeName,
		"x-dead-letter-routing-key": "dlq",
	}
	_, err = s.channel.QueueDeclare(
		s.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = s.channel.QueueBind(
		s.queueName,
		"jobs", // routing key
		s.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	err = s.channel.QueueBind(
		s.queueName,
		"jobs", // routing key
		s.delayedExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to delayed exchange: %w", err)
	}

	return nil
}

// ScheduleAt registers the job id and publishes the message with an x-delay
// header so the broker holds it until RunAt. A job id that is already
// registered is skipped, keeping retries idempotent.
func (s *RabbitMQScheduler) ScheduleAt(ctx context.Context, job *Job) error {
	ttl := time.Until(job.RunAt) + registryTTLSlack
	fresh, err := s.registry.Register(ctx, job.ID, ttl)
	if err != nil {
		return fmt.Errorf("failed to register job: %w", err)
	}
	if !fresh {
		return nil
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         jobJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.CreatedAt,
	}

	exchangeName := s.exchangeName
	if delay := time.Until(job.RunAt); delay > 0 {
		exchangeName = s.delayedExchangeName
		publishing.Headers = amqp.Table{
			"x-delay": int(delay.Milliseconds()),
		}
	}

	err = s.channel.PublishWithContext(
		ctx,
		exchangeName,
		"jobs", // routing key
		false,  // mandatory
		false,  // immediate
		publishing,
	)
	if err != nil {
		// Roll back the registration so a retry can publish again
		_ = s.registry.Remove(ctx, job.ID)
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// Cancel withdraws a scheduled job by dropping its registration
func (s *RabbitMQScheduler) Cancel(ctx context.Context, jobID string) error {
	return s.registry.Remove(ctx, jobID)
}

// Exists reports whether the job's registration is still live
func (s *RabbitMQScheduler) Exists(ctx context.Context, jobID string) (bool, error) {
	return s.registry.Exists(ctx, jobID)
}

// Consume returns a channel of due jobs from the queue using async delivery.
// Deliveries whose registration has been cancelled are acknowledged and
// dropped before they reach the caller.
func (s *RabbitMQScheduler) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// Dedicated channel for consuming, separate from the publish channel
	consumeCh, err := s.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	// prefetchCount=1 means fair dispatch: one unacked message per worker
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		s.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack (false = manual ack required)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
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
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal job: %w", err)
					continue
				}

				// A cancelled or duplicate job has no registration left
				live, err := s.registry.Acquire(ctx, job.ID)
				if err != nil {
					_ = delivery.Nack(false, true)
					errChan <- fmt.Errorf("failed to check job registration: %w", err)
					continue
				}
				if !live {
					_ = delivery.Ack(false)
					continue
				}

				msg := &Message{
					Job:         &job,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

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

// PurgeOlderThan drains DLQ messages whose broker timestamp is older than
// retention, returning the number purged
func (s *RabbitMQScheduler) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := s.channel.Get(s.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to get DLQ message: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if msg.Timestamp.Before(cutoff) {
			_ = msg.Ack(false)
			purged++
			continue
		}

		// First fresh message: put it back and stop
		_ = msg.Nack(false, true)
		return purged, nil
	}
}

// HealthCheck verifies the broker connection is healthy
func (s *RabbitMQScheduler) HealthCheck(_ context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if s.channel == nil || s.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

// Close closes the scheduler's connection
func (s *RabbitMQScheduler) Close() error {
	var err error
	if s.channel != nil {
		err = s.channel.Close()
	}
	if s.conn != nil {
		if closeErr := s.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

var _ Scheduler = (*RabbitMQScheduler)(nil)
