package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tachyon-beep/filigree/internal/types"
)

// InsertDependency records a blocking edge inside an existing
// transaction, updating the edge's type in place if it already exists.
// The caller is responsible for cycle detection before calling this.
// Returns the edge's previous type (empty if it didn't exist yet) and
// whether it already existed, so the caller can tell a genuinely new
// edge from a type change from a true no-op.
func InsertDependency(ctx context.Context, tx *sql.Tx, dep *types.Dependency) (prevType string, existed bool, err error) {
	switch err = tx.QueryRowContext(ctx,
		"SELECT type FROM dependencies WHERE issue_id = ? AND depends_on_id = ?",
		dep.IssueID, dep.DependsOnID).Scan(&prevType); {
	case errors.Is(err, sql.ErrNoRows):
		existed, err = false, nil
	case err != nil:
		return "", false, wrapDBError("lookup dependency", err)
	default:
		existed = true
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (issue_id, depends_on_id) DO UPDATE SET type = excluded.type
	`, dep.IssueID, dep.DependsOnID, dep.Type, dep.CreatedAt, dep.CreatedBy)
	if err != nil {
		return prevType, existed, wrapDBError("insert dependency", err)
	}
	return prevType, existed, nil
}

// DeleteDependency removes a blocking edge inside an existing transaction.
func DeleteDependency(ctx context.Context, tx *sql.Tx, issueID, dependsOnID string) error {
	result, err := tx.ExecContext(ctx,
		"DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ?", issueID, dependsOnID)
	if err != nil {
		return wrapDBError("delete dependency", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("delete dependency rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDependencies returns every outgoing edge (issue_id = id).
func (s *Store) ListDependencies(ctx context.Context, issueID string) ([]types.Dependency, error) {
	return s.queryDependencies(ctx, "issue_id", issueID)
}

// ListDependents returns every incoming edge (depends_on_id = id): the
// issues that would-be blocked by id.
func (s *Store) ListDependents(ctx context.Context, issueID string) ([]types.Dependency, error) {
	return s.queryDependencies(ctx, "depends_on_id", issueID)
}

func (s *Store) queryDependencies(ctx context.Context, col, id string) ([]types.Dependency, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT issue_id, depends_on_id, type, created_at, created_by FROM dependencies WHERE "+col+" = ?", id)
	if err != nil {
		return nil, wrapDBError("list dependencies", err)
	}
	defer rows.Close()

	var out []types.Dependency
	for rows.Next() {
		var d types.Dependency
		if err := rows.Scan(&d.IssueID, &d.DependsOnID, &d.Type, &d.CreatedAt, &d.CreatedBy); err != nil {
			return nil, wrapDBError("scan dependency", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AllDependencyEdges loads the full live dependency graph, used by the
// dependency engine's in-memory cycle detection and critical-path
// computation rather than paying per-call query overhead for a graph
// walk.
func (s *Store) AllDependencyEdges(ctx context.Context) ([]types.Dependency, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT issue_id, depends_on_id, type, created_at, created_by FROM dependencies")
	if err != nil {
		return nil, wrapDBError("list all dependencies", err)
	}
	defer rows.Close()

	var out []types.Dependency
	for rows.Next() {
		var d types.Dependency
		if err := rows.Scan(&d.IssueID, &d.DependsOnID, &d.Type, &d.CreatedAt, &d.CreatedBy); err != nil {
			return nil, wrapDBError("scan dependency", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
