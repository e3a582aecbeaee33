package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func newTestTable(t *testing.T) *sql.DB {
	t.Helper()
	db := setupTestDB(t, "sqlite3")
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func insert(val string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestBatchWriterTransactions(t *testing.T) {
	db := newTestTable(t)
	bw := NewBatchWriter(context.Background(), db, 2)

	for _, v := range []string{"A", "B", "C"} {
		if err := bw.Submit(insert(v)); err != nil {
			t.Fatalf("submit %s: %v", v, err)
		}
	}
	if got := countRows(t, db); got != 2 {
		t.Fatalf("expected first batch of 2 committed, got %d rows", got)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := countRows(t, db); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	if bw.Batches() != 2 {
		t.Fatalf("expected 2 batches, got %d", bw.Batches())
	}
}

func TestBatchWriterRollback(t *testing.T) {
	db := newTestTable(t)
	bw := NewBatchWriter(context.Background(), db, 2)

	if err := bw.Submit(insert("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	boom := errors.New("boom")
	err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("expected rollback of the whole batch, got %d rows", got)
	}
}

func TestBatchWriterClosed(t *testing.T) {
	db := newTestTable(t)
	bw := NewBatchWriter(context.Background(), db, 5)
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bw.Submit(insert("A")); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed on second close, got %v", err)
	}
}

func TestBatchWriterCanceledContext(t *testing.T) {
	db := newTestTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	bw := NewBatchWriter(ctx, db, 1)
	cancel()

	if err := bw.Submit(insert("A")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
}
