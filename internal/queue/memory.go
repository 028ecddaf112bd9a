package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the in-memory queue.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// MemoryQueue implements Queue on a buffered channel. It is not durable on
// its own; durability comes from pairing it with startup recovery of
// pending task rows from the store.
type MemoryQueue struct {
	messages chan Message
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an in-memory queue with the specified buffer size.
func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	return &MemoryQueue{
		messages: make(chan Message, size),
		logger:   logger,
	}
}

// Enqueue adds a message to the queue without blocking.
// Returns ErrQueueFull when the buffer is at capacity and ErrQueueClosed
// after Close.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- msg:
		q.logger.Debug("task enqueued",
			"task_id", msg.TaskID,
			"task_type", msg.Type,
			"queue_len", len(q.messages),
			"queue_cap", cap(q.messages))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.messages))
	}
}

// Consume delivers messages to the handler until the context is canceled or
// the queue is closed and drained. Handler failures are logged and the
// message is dropped; the stuck-task sweep picks up whatever the handler
// left behind.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-q.messages:
			if !ok {
				return ErrQueueClosed
			}

			if err := handler(ctx, msg); err != nil {
				q.logger.Error("task handler failed",
					"task_id", msg.TaskID,
					"task_type", msg.Type,
					"error", err)
			}
		}
	}
}

// Close closes the queue, preventing further submission.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.messages)
		q.logger.Info("task queue closed")
	}
	return nil
}
