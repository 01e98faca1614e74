// Package worker keeps the Google Sheets copy of the report in step with the
// store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/amqp"
)

// Refresher re-reads the store. The worker's engine has no in-process feed
// for mutations made by the server, so it refreshes explicitly.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Publisher pushes the current report.
type Publisher interface {
	PublishToSheets(ctx context.Context) error
}

// SheetsWorker republishes the report whenever a transaction event arrives.
// Events emitted before the start of the last successful publish are already
// reflected in the sheet and are acknowledged without work, so bursts and
// redeliveries collapse into one publish.
type SheetsWorker struct {
	refresher Refresher
	publisher Publisher
	now       func() time.Time

	mu            sync.Mutex
	syncedThrough time.Time
}

func NewSheetsWorker(refresher Refresher, publisher Publisher) *SheetsWorker {
	return &SheetsWorker{
		refresher: refresher,
		publisher: publisher,
		now:       time.Now,
	}
}

// HandleTransactionEvent is the AMQP consumer callback. A returned error
// requeues the event.
func (w *SheetsWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.mu.Lock()
	through := w.syncedThrough
	w.mu.Unlock()

	if !ev.Timestamp.IsZero() && ev.Timestamp.Before(through) {
		slog.DebugContext(ctx, "Event already reflected in sheet",
			"op", ev.Op, "id", ev.ID, "seq", ev.Seq, "synced_through", through)
		return nil
	}

	slog.InfoContext(ctx, "Processing transaction event", "op", ev.Op, "id", ev.ID, "seq", ev.Seq)
	return w.Sync(ctx)
}

// Sync refreshes the aggregates and publishes the report.
func (w *SheetsWorker) Sync(ctx context.Context) error {
	started := w.now()

	if err := w.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh aggregates: %w", err)
	}
	if err := w.publisher.PublishToSheets(ctx); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	w.mu.Lock()
	if started.After(w.syncedThrough) {
		w.syncedThrough = started
	}
	w.mu.Unlock()
	return nil
}

// RunPeriodic syncs every interval until ctx is done. It recovers from lost
// events and worker downtime.
func (w *SheetsWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
