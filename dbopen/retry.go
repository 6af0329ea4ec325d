package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Busy-retry helpers. The cardle cache has one logical writer (the daily
// regeneration path) but WAL readers on the request path can still collide
// with it around checkpoints; a short linear backoff rides out those
// windows instead of failing the request.

const (
	busyRetries = 3
	busyBackoff = 100 * time.Millisecond
)

// IsBusy reports whether err is an SQLite BUSY/locked condition, matching
// the message forms modernc.org/sqlite produces.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx runs fn inside a transaction, retrying the whole transaction on
// BUSY with linear backoff (100/200/300 ms). fn must therefore be safe to
// re-run from the top; all cardle cache writes are delete-then-insert and
// satisfy that.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= busyRetries; attempt++ {
		if err = runOnce(ctx, db, fn); err == nil || !IsBusy(err) {
			return err
		}
		if attempt == busyRetries {
			break
		}
		if werr := sleepCtx(ctx, time.Duration(attempt)*busyBackoff); werr != nil {
			return fmt.Errorf("dbopen: context cancelled during retry: %w", werr)
		}
	}
	return fmt.Errorf("dbopen: RunTx: still busy after %d attempts: %w", busyRetries, err)
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec runs a single statement with the same BUSY retry policy as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var err error
	for attempt := 1; attempt <= busyRetries; attempt++ {
		var result sql.Result
		if result, err = db.ExecContext(ctx, query, args...); err == nil || !IsBusy(err) {
			return result, err
		}
		if attempt == busyRetries {
			break
		}
		if werr := sleepCtx(ctx, time.Duration(attempt)*busyBackoff); werr != nil {
			return nil, fmt.Errorf("dbopen: context cancelled during retry: %w", werr)
		}
	}
	return nil, fmt.Errorf("dbopen: Exec: still busy after %d attempts: %w", busyRetries, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
