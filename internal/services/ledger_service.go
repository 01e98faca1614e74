// Package services orchestrates the store, the aggregation engine, events
// and report serializers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/store"
)

// EventPublisher announces committed mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// LedgerService is the single write path for transactions.
type LedgerService struct {
	store  store.Store
	engine *aggregate.Engine
	events EventPublisher

	// AwaitTimeout bounds how long a mutation waits for the engine.
	AwaitTimeout time.Duration
}

// NewLedgerService wires the write path. events may be nil.
func NewLedgerService(st store.Store, engine *aggregate.Engine, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:        st,
		engine:       engine,
		events:       events,
		AwaitTimeout: 5 * time.Second,
	}
}

// Create validates and stores t, and returns it with its new id. It returns
// once the engine reflects the insert.
func (s *LedgerService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.committed(ctx, store.OpInsert, id)
	return t, nil
}

// Update replaces the transaction with t.ID.
func (s *LedgerService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.Update(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.committed(ctx, store.OpUpdate, t.ID)
	return t, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.committed(ctx, store.OpDelete, id)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// committed waits for the engine and publishes the event. Neither failure
// undoes the mutation, so both are only logged.
func (s *LedgerService) committed(ctx context.Context, op store.Op, id int64) {
	seq := s.store.Seq()

	if s.engine != nil {
		actx, cancel := context.WithTimeout(ctx, s.AwaitTimeout)
		err := s.engine.Await(actx, seq)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "Aggregates not refreshed after mutation",
				"op", op, "id", id, "seq", seq, "error", err)
		}
	}

	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event")
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(string(op), id, seq)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"op", op, "id", id, "error", err)
	}
}
