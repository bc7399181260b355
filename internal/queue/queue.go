// Package queue owns the rabbitmq topology and the ingest and delete
// pipelines the worker runs per message.
package queue

import (
	"fmt"
	"time"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	IngestQueue = "ingest_queue"
	DeleteQueue = "delete_queue"

	// retryDelayMs is the TTL of a retry queue before the message
	// dead-letters back onto its work queue.
	retryDelayMs = 10000

	// MaxRetries before a message is parked on the DLQ.
	MaxRetries = 10
)

// Queues lists every work queue the worker consumes.
var Queues = []string{IngestQueue, DeleteQueue}

// IngestMsg asks the worker to ingest one stored file.
type IngestMsg struct {
	Document    common.Document `json:"document"`
	ObjectKey   string          `json:"object_key"`
	ContentType string          `json:"content_type,omitempty"`
}

// DeleteMsg asks the worker to remove one file from every store.
type DeleteMsg struct {
	Document  common.Document `json:"document"`
	ObjectKey string          `json:"object_key"`
}

// Init dials rabbitmq from the environment.
func Init() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every work queue with its retry and dead-letter
// companions. The retry queue has no consumer; messages sit out the TTL
// and dead-letter back onto the work queue.
func SetupQueues(ch *amqp091.Channel) error {
	for _, name := range Queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		if _, err := ch.QueueDeclare(name+"_dlq", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s_dlq: %w", name, err)
		}

		_, err := ch.QueueDeclare(name+"_retry", true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryDelayMs),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("failed to declare queue %s_retry: %w", name, err)
		}
	}
	return nil
}

// Publish enqueues one persistent message.
func Publish(ch *amqp091.Channel, queueName string, body []byte) error {
	err := ch.Publish("", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}

// RetryOrDeadLetter reroutes a failed delivery. Below MaxRetries it goes
// to the retry queue with an incremented counter; beyond that it is
// parked on the DLQ. The original delivery is acked once the reroute is
// published, or requeued if even that fails.
func RetryOrDeadLetter(ch *amqp091.Channel, msg amqp091.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	target := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp091.Table{}
	}

	if retries >= MaxRetries {
		target = queueName + "_dlq"
		logger.Warn("[Queue] parking message on DLQ", "queue", queueName, "retries", retries)
	} else {
		headers["x-retries"] = int32(retries + 1)
	}

	err := ch.Publish("", target, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        msg.Body,
		Headers:     headers,
	})
	if err != nil {
		logger.Error("[Queue] failed to reroute message", "target", target, "error", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
