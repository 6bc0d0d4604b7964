package sqlite

import (
	"context"
	"database/sql"
)

// AddLabel attaches a label to an issue inside an existing transaction,
// tolerating a label already present. Reports whether the label was
// actually new so the caller can skip recording a no-op event.
func AddLabel(ctx context.Context, tx *sql.Tx, issueID, label string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		"INSERT INTO labels (issue_id, label) VALUES (?, ?) ON CONFLICT (issue_id, label) DO NOTHING",
		issueID, label)
	if err != nil {
		return false, wrapDBError("add label", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError("add label rows affected", err)
	}
	return n > 0, nil
}

// RemoveLabel detaches a label from an issue inside an existing
// transaction.
func RemoveLabel(ctx context.Context, tx *sql.Tx, issueID, label string) error {
	result, err := tx.ExecContext(ctx,
		"DELETE FROM labels WHERE issue_id = ? AND label = ?", issueID, label)
	if err != nil {
		return wrapDBError("remove label", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("remove label rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLabels returns every label attached to an issue.
func (s *Store) ListLabels(ctx context.Context, issueID string) ([]string, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT label FROM labels WHERE issue_id = ? ORDER BY label ASC", issueID)
	if err != nil {
		return nil, wrapDBError("list labels", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, wrapDBError("scan label", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
