package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleohq/cleo-api/internal/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue() *Queue {
	return &Queue{
		logger:     discardLogger(),
		retryDelay: time.Millisecond,
	}
}

func testMessage() queue.Message {
	return queue.Message{
		TaskID:      uuid.New(),
		WorkspaceID: uuid.New(),
		Type:        "gmail_read",
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"no brokers", Config{Topic: "tasks", GroupID: "workers"}},
		{"no topic", Config{Brokers: []string{"localhost:9092"}, GroupID: "workers"}},
		{"no group", Config{Brokers: []string{"localhost:9092"}, Topic: "tasks"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg, discardLogger())
			require.Error(t, err)
		})
	}
}

func TestDeliver(t *testing.T) {
	t.Parallel()

	t.Run("first attempt success needs no retry", func(t *testing.T) {
		t.Parallel()
		q := newTestQueue()

		calls := 0
		err := q.deliver(context.Background(), testMessage(), func(ctx context.Context, msg queue.Message) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failure is retried in place", func(t *testing.T) {
		t.Parallel()
		q := newTestQueue()

		calls := 0
		err := q.deliver(context.Background(), testMessage(), func(ctx context.Context, msg queue.Message) error {
			calls++
			if calls < 2 {
				return errors.New("store unavailable")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("exhausted attempts return the last error", func(t *testing.T) {
		t.Parallel()
		q := newTestQueue()

		handlerErr := errors.New("store unavailable")
		calls := 0
		err := q.deliver(context.Background(), testMessage(), func(ctx context.Context, msg queue.Message) error {
			calls++
			return handlerErr
		})

		require.ErrorIs(t, err, handlerErr)
		assert.Equal(t, deliveryAttempts, calls)
	})

	t.Run("cancellation stops retrying", func(t *testing.T) {
		t.Parallel()
		q := newTestQueue()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := q.deliver(ctx, testMessage(), func(ctx context.Context, msg queue.Message) error {
			calls++
			cancel()
			return errors.New("store unavailable")
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
