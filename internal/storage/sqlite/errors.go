package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique constraint violation or CAS mismatch.
	ErrConflict = errors.New("conflict")
	// ErrCycle indicates a dependency cycle would be created.
	ErrCycle = errors.New("dependency cycle detected")
	// ErrAlreadyClaimed indicates a claim lost a race to another actor.
	ErrAlreadyClaimed = errors.New("already claimed")
)

// wrapDBError wraps a database error with operation context, folding
// sql.ErrNoRows into ErrNotFound so callers can use errors.Is uniformly.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
