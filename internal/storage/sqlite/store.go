// Package sqlite is the embedded storage engine backing a Filigree
// project: a single SQLite file opened in WAL mode, written through one
// serialized connection and read through an unlimited pool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/tachyon-beep/filigree/internal/storage/sqlite/migrations"
)

// Store wraps the write and read connection pools for one project database.
type Store struct {
	write *sql.DB // SetMaxOpenConns(1): the single writer
	read  *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applies the
// base schema and every pending migration, and returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connStr := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	// The writer takes its SQLite lock at BEGIN instead of deferring it to
	// the first write statement, so a transaction that opens with a SELECT
	// before its INSERT/UPDATE can't lose a lock-upgrade race against a
	// concurrent reader.
	writeConnStr := connStr + "&_txlock=immediate"

	write, err := sql.Open("sqlite", writeConnStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}

	if _, err := write.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := write.ExecContext(ctx, schema); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("apply base schema: %w", err)
	}

	if err := migrations.Run(write); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{write: write, read: read}, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	werr := s.write.Close()
	rerr := s.read.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// ReadDB exposes the read pool for packages building ad-hoc SELECT queries
// (analytics, pagination) that don't warrant a dedicated Store method.
func (s *Store) ReadDB() *sql.DB {
	return s.read
}

// WithTx runs fn inside a single write transaction, retrying on
// SQLITE_BUSY. It is exported so the workflow engine can compose several
// storage primitives (issue update, event insert, label change) into one
// atomic unit without each primitive opening its own transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, fn)
}

// withTx runs fn inside a BEGIN IMMEDIATE transaction on the single writer
// connection, retrying with bounded backoff on SQLITE_BUSY before
// surfacing the error. fn must not retain conn past its invocation.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	operation := func() error {
		tx, err := s.write.BeginTx(ctx, nil)
		if err != nil {
			return classifyBusy(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return classifyBusy(err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(func() error {
		err := operation()
		if err == nil || !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

type busyError struct{ err error }

func (b *busyError) Error() string { return b.err.Error() }
func (b *busyError) Unwrap() error { return b.err }

func classifyBusy(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked") {
		return &busyError{err: err}
	}
	return err
}

func isBusy(err error) bool {
	_, ok := err.(*busyError)
	return ok
}
