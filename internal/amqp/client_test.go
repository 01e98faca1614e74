package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"amqp closed", amqp091.ErrClosed, true},
		{"not connected", errNotConnected, true},
		{"other error", errors.New("precondition failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func newOfflineClient() *Client {
	return &Client{
		url:          "invalid-url",
		exchangeName: "test_exchange",
		queueName:    "test_queue",
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		},
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := newOfflineClient()

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset after success")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be StateHalfOpen after timeout")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)

		client.recordFailure()

		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_PublishTransactionEvent(t *testing.T) {
	ev := NewTransactionEvent("insert", 12, 3)

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		client := newOfflineClient()
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishTransactionEvent(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		client := newOfflineClient()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishTransactionEvent(ctx, ev); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("publish without connection retries then records failure", func(t *testing.T) {
		client := newOfflineClient()

		err := client.PublishTransactionEvent(context.Background(), ev)
		if !errors.Is(err, errNotConnected) {
			t.Errorf("expected errNotConnected, got %v", err)
		}
		if got := atomic.LoadInt64(&client.failureCount); got != 1 {
			t.Errorf("expected one recorded failure, got %d", got)
		}
	})
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestProcess(t *testing.T) {
	body, err := NewTransactionEvent("delete", 5, 9).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("success acks", func(t *testing.T) {
		ack := &fakeAck{}
		var got *TransactionEvent
		process(context.Background(), body, "m1", ack, func(_ context.Context, ev *TransactionEvent) error {
			got = ev
			return nil
		})
		if !ack.acked || ack.nacked {
			t.Errorf("expected ack, got %+v", ack)
		}
		if got == nil || got.Op != "delete" || got.ID != 5 || got.Seq != 9 {
			t.Errorf("unexpected event %+v", got)
		}
	})

	t.Run("handler failure requeues", func(t *testing.T) {
		ack := &fakeAck{}
		process(context.Background(), body, "m2", ack, func(context.Context, *TransactionEvent) error {
			return errors.New("sheets unavailable")
		})
		if !ack.nacked || !ack.requeued {
			t.Errorf("expected nack with requeue, got %+v", ack)
		}
	})

	t.Run("malformed message is dropped", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		process(context.Background(), []byte("{not json"), "m3", ack, func(context.Context, *TransactionEvent) error {
			called = true
			return nil
		})
		if called {
			t.Error("handler must not run for malformed messages")
		}
		if !ack.nacked || ack.requeued {
			t.Errorf("expected nack without requeue, got %+v", ack)
		}
	})
}

func TestTransactionEventJSON(t *testing.T) {
	data := []byte(`{"op":"update","id":42,"seq":7,"timestamp":"2025-01-02T03:04:05Z"}`)
	ev, err := TransactionEventFromJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Op != "update" || ev.ID != 42 || ev.Seq != 7 || ev.Timestamp.Year() != 2025 {
		t.Errorf("unexpected event %+v", ev)
	}

	if _, err := TransactionEventFromJSON([]byte("invalid")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
