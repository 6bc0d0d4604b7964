package migrations

import (
	"database/sql"
	"errors"
	"fmt"
)

// MigrateFileAssociationCreatedBy adds the created_by column to
// file_associations for installations whose database predates it,
// matching the base schema's column for fresh installs.
func MigrateFileAssociationCreatedBy(db *sql.DB) (retErr error) {
	rows, err := db.Query("PRAGMA table_info(file_associations)")
	if err != nil {
		return fmt.Errorf("checking file_associations schema: %w", err)
	}
	defer func() {
		if rows != nil {
			if cerr := rows.Close(); cerr != nil {
				retErr = errors.Join(retErr, fmt.Errorf("closing schema rows: %w", cerr))
			}
		}
	}()

	var exists bool
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, pk int
		var dflt *string
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == "created_by" {
			exists = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading column info: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("closing schema rows: %w", err)
	}
	rows = nil

	if !exists {
		if _, err := db.Exec(`ALTER TABLE file_associations ADD COLUMN created_by TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("adding created_by column: %w", err)
		}
	}
	return nil
}
