package db

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter buffers write operations and flushes them in batches inside a
// transaction. Runs are single-threaded, so flushing happens on the caller's
// goroutine when the buffer fills up and on Close.
type BatchWriter struct {
	db      *sql.DB
	ctx     context.Context
	buf     []WriteFunc
	cap     int
	closed  bool
	batches int
}

// NewBatchWriter creates a BatchWriter that commits every bufferSize writes.
func NewBatchWriter(ctx context.Context, db *sql.DB, bufferSize int) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	return &BatchWriter{
		db:  db,
		ctx: ctx,
		buf: make([]WriteFunc, 0, bufferSize),
		cap: bufferSize,
	}
}

// Submit enqueues a write function, flushing when the buffer is full. The
// error of a failed flush is returned here; the failed batch is rolled back.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.cap {
		return bw.Flush()
	}
	return nil
}

// Flush commits the buffered writes in one transaction.
func (bw *BatchWriter) Flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.cap)
	if err := bw.executeBatch(batch); err != nil {
		return err
	}
	bw.batches++
	return nil
}

// Batches returns the number of committed batches.
func (bw *BatchWriter) Batches() int { return bw.batches }

func (bw *BatchWriter) executeBatch(batch []WriteFunc) error {
	if err := bw.ctx.Err(); err != nil {
		return fmt.Errorf("batch writer: dropping batch of %d items: %w", len(batch), err)
	}

	tx, err := bw.db.BeginTx(bw.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(bw.ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

// Close flushes pending writes and stops accepting submissions.
func (bw *BatchWriter) Close() error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.closed = true
	return bw.Flush()
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
