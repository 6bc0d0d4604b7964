package sqlite

import (
	"context"
	"database/sql"

	"github.com/tachyon-beep/filigree/internal/types"
)

// InsertComment appends a comment inside an existing transaction.
func InsertComment(ctx context.Context, tx *sql.Tx, c *types.Comment) (int64, error) {
	result, err := tx.ExecContext(ctx,
		"INSERT INTO comments (issue_id, author, text, created_at) VALUES (?, ?, ?, ?)",
		c.IssueID, c.Author, c.Text, c.CreatedAt)
	if err != nil {
		return 0, wrapDBError("insert comment", err)
	}
	return result.LastInsertId()
}

// ListComments returns an issue's comments in chronological order.
func (s *Store) ListComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT id, issue_id, author, text, created_at FROM comments WHERE issue_id = ? ORDER BY id ASC", issueID)
	if err != nil {
		return nil, wrapDBError("list comments", err)
	}
	defer rows.Close()

	var out []*types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, wrapDBError("scan comment", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
