package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sauti/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	QueueNameTranscription = "transcription_jobs"
	ExchangeName           = "sauti"
)

// Publisher enqueues transcription jobs
type Publisher interface {
	PublishJob(ctx context.Context, job *TranscriptionJob) error
}

var _ Publisher = (*RabbitMQ)(nil)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.Mutex
}

// New RabbitMQ client
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		ExchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		QueueNameTranscription, // name
		true,                   // durable
		false,                  // delete when unused
		false,                  // exclusive
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = ch.QueueBind(
		QueueNameTranscription, // queue name
		QueueNameTranscription, // routing key
		ExchangeName,           // exchange
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("RabbitMQ connected successfully")

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		url:     url,
	}, nil
}

// Publish publishes a message to the queue
func (r *RabbitMQ) Publish(ctx context.Context, queueName string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.PublishWithContext(
		ctx,
		ExchangeName, // exchange
		queueName,    // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Debug("Message published to queue",
		zap.String("queue", queueName),
		zap.Int("size", len(body)))

	return nil
}

// PublishJob publishes a TranscriptionJob to the queue
func (r *RabbitMQ) PublishJob(ctx context.Context, job *TranscriptionJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return r.Publish(ctx, QueueNameTranscription, body)
}

// DecodeJob parses and validates a queued job. Failures wrap
// ErrInvalidPayload.
func DecodeJob(body []byte) (*TranscriptionJob, error) {
	var job TranscriptionJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &job, nil
}

// Consume delivers messages to handler from concurrency goroutines until ctx
// is done or the channel closes. Prefetch equals concurrency so each
// goroutine holds at most one unacknowledged message.
func (r *RabbitMQ) Consume(ctx context.Context, queueName string, concurrency int, handler func(context.Context, []byte) error) error {
	if concurrency < 1 {
		concurrency = 1
	}

	// Set QoS
	err := r.channel.Qos(
		concurrency, // prefetch count
		0,           // prefetch size
		false,       // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Info("Starting to consume messages",
		zap.String("queue", queueName),
		zap.Int("concurrency", concurrency))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				handleDelivery(ctx, msg, handler)
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}

func handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(context.Context, []byte) error) {
	logger.Debug("Received message", zap.Int("size", len(msg.Body)))
	settle(msg.Acknowledger, msg.DeliveryTag, handler(ctx, msg.Body))
}

func settle(ack amqp.Acknowledger, tag uint64, err error) {
	switch {
	case err == nil:
		if ackErr := ack.Ack(tag, false); ackErr != nil {
			logger.Error("Failed to ack message", zap.Error(ackErr))
		}
	case errors.Is(err, ErrInvalidPayload):
		logger.Error("Dropping invalid message", zap.Error(err))
		if nackErr := ack.Nack(tag, false, false); nackErr != nil {
			logger.Error("Failed to reject message", zap.Error(nackErr))
		}
	default:
		logger.Error("Failed to handle message", zap.Error(err))
		// Reject and requeue
		if nackErr := ack.Nack(tag, false, true); nackErr != nil {
			logger.Error("Failed to requeue message", zap.Error(nackErr))
		}
	}
}

// Close RabbitMQ connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
