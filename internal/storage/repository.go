// Package storage implements the transaction store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"finboard/internal/core"
	"finboard/internal/store"

	_ "modernc.org/sqlite"
)

const selectColumns = `SELECT id, title, amount_cents, type, category, date_ms, notes FROM transactions`

// orderNewestFirst matches core.SortNewestFirst.
const orderNewestFirst = ` ORDER BY date_ms DESC, id DESC`

type SQLiteRepository struct {
	*store.Feed

	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Mutations are serialized through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{Feed: store.NewFeed(), db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	r.Feed.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (title, amount_cents, type, category, date_ms, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Title, t.Amount.Cents, string(t.Type), t.Category, core.Millis(t.Date), t.Notes)
	if err != nil {
		return 0, &core.StoreError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &core.StoreError{Op: "insert", Err: fmt.Errorf("read inserted id: %w", err)}
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)

	r.Publish(store.OpInsert, id)
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, amount_cents = ?, type = ?, category = ?, date_ms = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Amount.Cents, string(t.Type), t.Category, core.Millis(t.Date), t.Notes, t.ID)
	if err != nil {
		return &core.StoreError{Op: "update", Err: err}
	}
	if err := requireOneRow(res, "update"); err != nil {
		return err
	}

	r.Publish(store.OpUpdate, t.ID)
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return &core.StoreError{Op: "delete", Err: err}
	}
	if err := requireOneRow(res, "delete"); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	r.Publish(store.OpDelete, id)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: core.ErrNotFound}
	}
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: err}
	}
	return t, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return r.query(ctx, "list", selectColumns+orderNewestFirst)
}

func (r *SQLiteRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	lo, hi := rangeBounds(from, to)
	return r.query(ctx, "list range",
		selectColumns+` WHERE date_ms BETWEEN ? AND ?`+orderNewestFirst, lo, hi)
}

// rangeBounds maps zero times to open bounds.
func rangeBounds(from, to time.Time) (int64, int64) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = core.Millis(from)
	}
	if !to.IsZero() {
		hi = core.Millis(to)
	}
	return lo, hi
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, &core.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, op, q string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &core.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, &core.StoreError{Op: op, Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: op, Err: err}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		typ    string
		dateMS int64
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Amount.Cents, &typ, &t.Category, &dateMS, &t.Notes); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = core.FromMillis(dateMS)
	return t, nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StoreError{Op: op, Err: fmt.Errorf("rows affected: %w", err)}
	}
	if n == 0 {
		return &core.StoreError{Op: op, Err: core.ErrNotFound}
	}
	return nil
}
