// Package kafka provides a Kafka-backed implementation of the durable task
// queue. Messages are committed only after the handler returns, giving
// at-least-once delivery across worker processes; partition assignment via
// the consumer group is what keeps two workers off the same message.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/cleohq/cleo-api/internal/queue"
)

// Config holds connection settings for the task topic.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Delivery retry bounds. Retries happen in place, before the fetch
// position moves forward; see Consume.
const (
	deliveryAttempts   = 3
	deliveryRetryDelay = 2 * time.Second
)

// Queue implements queue.Queue on a Kafka topic.
type Queue struct {
	writer     *kafkago.Writer
	reader     *kafkago.Reader
	logger     *slog.Logger
	retryDelay time.Duration
}

var _ queue.Queue = (*Queue)(nil)

// New creates a Kafka queue for the given topic and consumer group.
func New(cfg Config, logger *slog.Logger) (*Queue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka consumer group ID is required")
	}

	writer := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: int(kafkago.RequireOne),
		Async:        false,
	})

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})

	logger.Info("kafka task queue configured",
		"topic", cfg.Topic,
		"group_id", cfg.GroupID,
		"brokers", len(cfg.Brokers))

	return &Queue{
		writer:     writer,
		reader:     reader,
		logger:     logger,
		retryDelay: deliveryRetryDelay,
	}, nil
}

// Enqueue publishes the message keyed by task ID.
func (q *Queue) Enqueue(ctx context.Context, msg queue.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	err = q.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.TaskID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	q.logger.Debug("task enqueued",
		"task_id", msg.TaskID,
		"task_type", msg.Type)
	return nil
}

// Consume fetches messages and commits each offset only after delivery
// finishes. Group commits are per-partition offsets, not per-message
// acks, so skipping a failed message and committing a later one would
// advance the watermark past it. Delivery therefore retries in place a
// bounded number of times and then commits anyway; a message whose
// handler still fails is left to the stuck-task sweep, which works from
// the task table rather than the queue. Undecodable messages are
// committed and skipped immediately.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	for {
		m, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, io.EOF) {
				return queue.ErrQueueClosed
			}
			q.logger.Error("kafka fetch error, retrying", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var msg queue.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			q.logger.Error("dropping undecodable queue message",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err)
			if err := q.reader.CommitMessages(ctx, m); err != nil {
				return fmt.Errorf("failed to commit kafka message: %w", err)
			}
			continue
		}

		if err := q.deliver(ctx, msg, handler); err != nil {
			if ctx.Err() != nil {
				// Shutdown mid-delivery: leave the offset uncommitted so
				// the group redelivers after rebalancing.
				return ctx.Err()
			}
			q.logger.Error("task handler exhausted retries, committing message",
				"task_id", msg.TaskID,
				"task_type", msg.Type,
				"attempts", deliveryAttempts,
				"error", err)
		}

		if err := q.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("failed to commit kafka message: %w", err)
		}
	}
}

// deliver invokes the handler with bounded in-place retries. Returns nil
// once an attempt succeeds, the context error on cancellation, or the
// last handler error once attempts are exhausted.
func (q *Queue) deliver(ctx context.Context, msg queue.Message, handler queue.Handler) error {
	var err error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.retryDelay):
			}
		}

		if err = handler(ctx, msg); err == nil {
			return nil
		}

		q.logger.Warn("task handler failed",
			"task_id", msg.TaskID,
			"task_type", msg.Type,
			"attempt", attempt,
			"error", err)
	}
	return err
}

// Close releases the writer and reader.
func (q *Queue) Close() error {
	writerErr := q.writer.Close()
	readerErr := q.reader.Close()
	if writerErr != nil {
		return writerErr
	}
	return readerErr
}
