package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/core"
	"finboard/internal/store"
)

// ErrNotReady is returned by readers before the first snapshot is computed.
var ErrNotReady = errors.New("aggregate snapshot not computed yet")

// Source is what the engine needs from a store.
type Source interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
	store.Notifier
}

// Filter restricts Transactions to an inclusive date range. Zero bounds are open.
type Filter struct {
	From time.Time
	To   time.Time
}

// state is published atomically. Exactly one of snap and err is set.
type state struct {
	seq  int64
	snap *Snapshot
	err  error
}

type Engine struct {
	src Source
	now func() time.Time

	// RetryInterval re-reads the store while the last read failed.
	RetryInterval time.Duration

	refreshMu sync.Mutex
	current   atomic.Pointer[state]

	waitMu  sync.Mutex
	updated chan struct{}
}

func NewEngine(src Source) *Engine {
	return &Engine{
		src:           src,
		now:           time.Now,
		RetryInterval: 5 * time.Second,
		updated:       make(chan struct{}),
	}
}

// Refresh recomputes the snapshot from the store. The feed sequence is read
// before the store so the snapshot never claims a newer version than it saw.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	seq := e.src.Seq()
	txs, err := e.src.ListAll(ctx)
	if err != nil {
		if !core.IsStore(err) {
			err = &core.StoreError{Op: "list", Err: err}
		}
		slog.ErrorContext(ctx, "Aggregate refresh failed",
			"component", "aggregate", "seq", seq, "error", err)
		e.publish(&state{seq: seq, err: err})
		return err
	}

	snap := Compute(txs)
	snap.Seq = seq
	snap.ComputedAt = e.now().UTC()
	e.publish(&state{seq: seq, snap: &snap})

	slog.DebugContext(ctx, "Aggregate snapshot published",
		"component", "aggregate",
		"seq", seq,
		"transactions", len(snap.Transactions),
		"income_cents", snap.TotalIncome.Cents,
		"expense_cents", snap.TotalExpense.Cents)
	return nil
}

func (e *Engine) publish(st *state) {
	e.current.Store(st)

	e.waitMu.Lock()
	close(e.updated)
	e.updated = make(chan struct{})
	e.waitMu.Unlock()
}

// Run refreshes once, then on every store change until ctx is done or the
// store closes its feed.
func (e *Engine) Run(ctx context.Context) error {
	changes, cancel := e.src.Subscribe()
	defer cancel()

	slog.InfoContext(ctx, "Aggregation engine started", "component", "aggregate")
	failed := e.Refresh(ctx) != nil

	var retry <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		retry = nil
		if failed && e.RetryInterval > 0 {
			if timer == nil {
				timer = time.NewTimer(e.RetryInterval)
			} else {
				timer.Reset(e.RetryInterval)
			}
			retry = timer.C
		}

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Aggregation engine stopped", "component", "aggregate")
			return nil
		case _, ok := <-changes:
			if !ok {
				slog.InfoContext(ctx, "Store feed closed, aggregation engine stopping", "component", "aggregate")
				return nil
			}
			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-retry:
		}
		failed = e.Refresh(ctx) != nil
	}
}

// Await blocks until a snapshot reflecting feed sequence seq has been
// published. It returns the store error if that recompute failed.
func (e *Engine) Await(ctx context.Context, seq int64) error {
	for {
		e.waitMu.Lock()
		updated := e.updated
		e.waitMu.Unlock()

		if st := e.current.Load(); st != nil && st.seq >= seq {
			return st.err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updated:
		}
	}
}

func (e *Engine) load() (*Snapshot, error) {
	st := e.current.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	if st.err != nil {
		return nil, st.err
	}
	return st.snap, nil
}

// Snapshot returns a copy of the current snapshot.
func (e *Engine) Snapshot() (Snapshot, error) {
	s, err := e.load()
	if err != nil {
		return Snapshot{}, err
	}
	return s.clone(), nil
}

// Seq returns the feed sequence of the last successful snapshot, or -1.
func (e *Engine) Seq() int64 {
	s, err := e.load()
	if err != nil {
		return -1
	}
	return s.Seq
}

func (e *Engine) Totals() (core.Totals, error) {
	s, err := e.load()
	if err != nil {
		return core.Totals{}, err
	}
	return s.Totals(), nil
}

func (e *Engine) NetProfitLoss() (core.Money, error) {
	s, err := e.load()
	if err != nil {
		return core.Money{}, err
	}
	return s.NetProfitLoss, nil
}

// CategoryBreakdown returns the categories of t that have at least one
// transaction, in vocabulary order.
func (e *Engine) CategoryBreakdown(t core.TransactionType) ([]core.CategoryTotal, error) {
	s, err := e.load()
	if err != nil {
		return nil, err
	}
	return append([]core.CategoryTotal(nil), s.Breakdown(t)...), nil
}

// Transactions returns the transactions matching f, newest first.
func (e *Engine) Transactions(f Filter) ([]core.Transaction, error) {
	s, err := e.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		if core.InRange(t.Date, f.From, f.To) {
			out = append(out, t)
		}
	}
	return out, nil
}
