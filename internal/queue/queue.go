// Package queue defines the durable task queue contract and an in-memory
// implementation. The queue carries dispatch triggers only; the task row in
// the store stays authoritative for status.
package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Message is the dispatch payload snapshot taken at enqueue time.
type Message struct {
	TaskID      uuid.UUID       `json:"taskId"`
	WorkspaceID uuid.UUID       `json:"workspaceId"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
}

// Handler processes one delivered message. Delivery is at-least-once:
// handlers must tolerate redelivery of a message whose task already reached
// a terminal state.
type Handler func(ctx context.Context, msg Message) error

// Queue is the durable task queue consumed by the worker runner.
type Queue interface {
	// Enqueue publishes a message for asynchronous processing.
	Enqueue(ctx context.Context, msg Message) error

	// Consume delivers messages to the handler until the context is
	// canceled. A message is acknowledged only after the handler returns;
	// whether a failed handler invocation is redelivered is the queue
	// implementation's policy.
	Consume(ctx context.Context, handler Handler) error

	// Close releases queue resources. Enqueue after Close returns an error.
	Close() error
}
