// Package services implements the mutation gateway: create/delete of
// transactions with validation, plus best-effort ledger event publication.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
)

// Ledger is the write surface the gateway needs from the store.
type Ledger interface {
	InsertTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// EventPublisher publishes ledger events after a mutation commits.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// TransactionService validates and applies mutations. Each operation is a
// single-row store write; event publication happens after the write and a
// publish failure never fails the request.
type TransactionService struct {
	store  Ledger
	events EventPublisher
}

// NewTransactionService builds a gateway. events may be nil when no broker
// is configured.
func NewTransactionService(store Ledger, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

// Create validates the input and persists a new transaction. The date
// defaults to now when unset and the note stays nil when absent. Returns the
// stored record including its server-assigned id.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	created, err := s.store.InsertTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.NewCreatedEvent(created.ID))
	return created, nil
}

// Delete permanently removes a transaction by id. Returns core.ErrNotFound
// when the id has no row; deleting the same id twice fails the second time.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		// The mutation is already committed; the export worker's pending
		// sweep covers lost events.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind,
			"id", event.ID,
			"error", err)
	}
}
