// Package memory is an in-process transaction store, optionally seeded from
// a CSV file. Data does not survive a restart.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/store"
)

// SeedFile is the CSV file NewFromFiles reads from its base directory.
const SeedFile = "seed_transactions.csv"

type Store struct {
	*store.Feed

	mu     sync.RWMutex
	nextID int64
	items  map[int64]core.Transaction
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{Feed: store.NewFeed(), items: make(map[int64]core.Transaction)}
}

// NewFromFiles returns a store seeded from base/seed_transactions.csv when
// present. Invalid seed rows are skipped and logged.
func NewFromFiles(base string) *Store {
	s := New()
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return s
	}
	defer f.Close()

	txs, err := ReadSeed(f)
	if err != nil {
		slog.Warn("Ignoring unreadable seed file", "path", f.Name(), "error", err)
	}
	for _, t := range txs {
		s.insert(t)
	}
	return s
}

// ReadSeed parses rows of date,type,category,title,amount[,notes]. A header
// row and lines starting with '#' are skipped.
func ReadSeed(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var out []core.Transaction
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read seed: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		t, err := parseSeedRow(rec)
		if err != nil {
			slog.Warn("Skipping invalid seed row", "line", line, "error", err)
			continue
		}
		out = append(out, t)
	}
}

func parseSeedRow(rec []string) (core.Transaction, error) {
	if len(rec) < 5 {
		return core.Transaction{}, fmt.Errorf("expected at least 5 fields, got %d", len(rec))
	}
	date, err := core.ParseDay(strings.TrimSpace(rec[0]), time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	typ, err := core.ParseTransactionType(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(rec[4])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	t := core.Transaction{
		Date:     date,
		Type:     typ,
		Category: rec[2],
		Title:    rec[3],
		Amount:   amount,
	}
	if len(rec) > 5 {
		t.Notes = rec[5]
	}
	t = t.Normalize()
	return t, t.Validate()
}

func (s *Store) insert(t core.Transaction) int64 {
	s.mu.Lock()
	s.nextID++
	t.ID = s.nextID
	s.items[t.ID] = t
	s.mu.Unlock()
	return t.ID
}

func (s *Store) Insert(_ context.Context, t core.Transaction) (int64, error) {
	id := s.insert(t)
	s.Publish(store.OpInsert, id)
	return id, nil
}

func (s *Store) Update(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	if _, ok := s.items[t.ID]; !ok {
		s.mu.Unlock()
		return &core.StoreError{Op: "update", Err: core.ErrNotFound}
	}
	s.items[t.ID] = t
	s.mu.Unlock()

	s.Publish(store.OpUpdate, t.ID)
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return &core.StoreError{Op: "delete", Err: core.ErrNotFound}
	}
	delete(s.items, id)
	s.mu.Unlock()

	s.Publish(store.OpDelete, id)
	return nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: core.ErrNotFound}
	}
	return t, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return s.ListByDateRange(ctx, time.Time{}, time.Time{})
}

func (s *Store) ListByDateRange(_ context.Context, from, to time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if core.InRange(t.Date, from, to) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	core.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Close() error {
	s.Feed.Close()
	return nil
}
