package migrations

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
)

// MigrateBackfillContentHash computes content_hash for any issue row left
// with the empty default, covering rows inserted before the column was
// populated on every write path.
func MigrateBackfillContentHash(db *sql.DB) (retErr error) {
	rows, err := db.Query(`
		SELECT id, title, description, notes, status, priority, issue_type, assignee
		FROM issues WHERE content_hash = ''`)
	if err != nil {
		return fmt.Errorf("querying issues with empty content_hash: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	type pending struct {
		id   string
		hash string
	}
	var updates []pending

	for rows.Next() {
		var id, title, description, notes, status, issueType, assignee string
		var priority int
		if err := rows.Scan(&id, &title, &description, &notes, &status, &priority, &issueType, &assignee); err != nil {
			return fmt.Errorf("scanning issue row: %w", err)
		}
		h := sha256.New()
		for _, part := range []string{title, description, notes, status, fmt.Sprintf("%d", priority), issueType, assignee} {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
		updates = append(updates, pending{id: id, hash: fmt.Sprintf("%x", h.Sum(nil))})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating issue rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("closing rows: %w", err)
	}

	for _, u := range updates {
		if _, err := db.Exec(`UPDATE issues SET content_hash = ? WHERE id = ?`, u.hash, u.id); err != nil {
			return fmt.Errorf("backfilling content_hash for %s: %w", u.id, err)
		}
	}
	return nil
}
