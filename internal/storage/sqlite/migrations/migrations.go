// Package migrations holds forward-only schema and data migrations,
// applied in ascending numeric order by Run. Each migration is an
// idempotent Go function, not a raw .sql file, so it can inspect
// PRAGMA table_info before altering a table or backfill data with
// ordinary Go logic.
package migrations

import "database/sql"

type migration struct {
	name string
	fn   func(*sql.DB) error
}

var all = []migration{
	{name: "001_backfill_content_hash", fn: MigrateBackfillContentHash},
	{name: "002_file_association_created_by", fn: MigrateFileAssociationCreatedBy},
}

// Run applies every migration in order. A migration that has already been
// applied (schema already matches, rows already backfilled) is a no-op.
func Run(db *sql.DB) error {
	for _, m := range all {
		if err := m.fn(db); err != nil {
			return &Error{Name: m.name, Err: err}
		}
	}
	return nil
}

// Error wraps a failed migration with its name for diagnostics.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
