package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/storage"
	"finboard/internal/store/memory"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "d"}
	opts, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Type != SQLite || opts.SQLiteDBPath != "x.db" || opts.DataDir != "d" {
		t.Errorf("unexpected options %+v", opts)
	}

	if _, err := FromConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestOpenMemorySeeded(t *testing.T) {
	dir := t.TempDir()
	seed := "date,type,category,title,amount\n2025-01-05,expense,Rent,Office,800\n"
	if err := os.WriteFile(filepath.Join(dir, memory.SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), Options{Type: Memory, DataDir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
	txs, err := s.ListAll(context.Background())
	if err != nil || len(txs) != 1 || txs[0].Type != core.Expense {
		t.Fatalf("unexpected seeded data %+v err=%v", txs, err)
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finboard.db")
	s, err := Open(context.Background(), Options{Type: SQLite, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected SQLite repository, got %T", s)
	}
	id, err := s.Insert(context.Background(), core.Transaction{
		Title: "Sale", Amount: core.Money{Cents: 100}, Type: core.Income, Category: "Sales",
		Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil || id != 1 {
		t.Fatalf("insert: id=%d err=%v", id, err)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(context.Background(), Options{Type: "bolt"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
}
