package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finboard/internal/amqp"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

type countingPublisher struct {
	calls atomic.Int32
	err   error
}

func (p *countingPublisher) PublishToSheets(context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestHandleTransactionEventCoalesces(t *testing.T) {
	ref := &countingRefresher{}
	pub := &countingPublisher{}
	w := NewSheetsWorker(ref, pub)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	ctx := context.Background()
	older := &amqp.TransactionEvent{Op: "insert", ID: 1, Seq: 1, Timestamp: base.Add(-time.Second)}
	newer := &amqp.TransactionEvent{Op: "delete", ID: 1, Seq: 2, Timestamp: base.Add(time.Second)}

	if err := w.HandleTransactionEvent(ctx, older); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if got := pub.calls.Load(); got != 1 {
		t.Fatalf("publishes = %d, want 1", got)
	}

	// Redelivery of an event emitted before the last publish started.
	if err := w.HandleTransactionEvent(ctx, older); err != nil {
		t.Fatalf("redelivered event: %v", err)
	}
	if got := pub.calls.Load(); got != 1 {
		t.Errorf("publishes after redelivery = %d, want 1", got)
	}

	if err := w.HandleTransactionEvent(ctx, newer); err != nil {
		t.Fatalf("newer event: %v", err)
	}
	if got := pub.calls.Load(); got != 2 {
		t.Errorf("publishes = %d, want 2", got)
	}
	if got := ref.calls.Load(); got != 2 {
		t.Errorf("refreshes = %d, want 2", got)
	}
}

func TestSyncErrors(t *testing.T) {
	tests := []struct {
		name         string
		refreshErr   error
		publishErr   error
		wantPublish  int32
		wantAdvanced bool
	}{
		{"ok", nil, nil, 1, true},
		{"refresh fails", errors.New("db locked"), nil, 0, false},
		{"publish fails", nil, errors.New("quota"), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &countingPublisher{err: tt.publishErr}
			w := NewSheetsWorker(&countingRefresher{err: tt.refreshErr}, pub)
			at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			w.now = func() time.Time { return at }

			err := w.Sync(context.Background())
			if (err != nil) == tt.wantAdvanced {
				t.Fatalf("Sync() error = %v", err)
			}
			if got := pub.calls.Load(); got != tt.wantPublish {
				t.Errorf("publishes = %d, want %d", got, tt.wantPublish)
			}
			if advanced := w.syncedThrough.Equal(at); advanced != tt.wantAdvanced {
				t.Errorf("syncedThrough advanced = %v, want %v", advanced, tt.wantAdvanced)
			}
		})
	}
}

func TestRunPeriodic(t *testing.T) {
	pub := &countingPublisher{}
	w := NewSheetsWorker(&countingRefresher{}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for pub.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic sync did not run")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunPeriodic() = %v", err)
	}
}
