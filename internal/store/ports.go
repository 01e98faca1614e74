// Package store defines the transaction store port and its change feed.
package store

import (
	"context"
	"time"

	"finboard/internal/core"
)

// Op names the kind of mutation a Change reports.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is fired after every successful mutation. Seq increases by one per
// mutation on a given Feed.
type Change struct {
	Seq int64
	Op  Op
	ID  int64
}

type (
	Writer interface {
		// Insert stores t and returns its new id. t.ID is ignored.
		Insert(ctx context.Context, t core.Transaction) (int64, error)
		// Update replaces the transaction with t.ID.
		Update(ctx context.Context, t core.Transaction) error
		Delete(ctx context.Context, id int64) error
	}

	Reader interface {
		Get(ctx context.Context, id int64) (core.Transaction, error)
		ListAll(ctx context.Context) ([]core.Transaction, error)
		// ListByDateRange returns transactions dated within [from, to].
		ListByDateRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
	}

	Notifier interface {
		// Subscribe returns a channel of changes and a func to stop receiving.
		Subscribe() (<-chan Change, func())
		// Seq is the sequence number of the last fired change.
		Seq() int64
	}

	// Store is a durable keyed collection of transactions with a change feed.
	Store interface {
		Writer
		Reader
		Notifier
		Close() error
	}
)
