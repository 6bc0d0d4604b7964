package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tachyon-beep/filigree/internal/types"
)

func marshalFields(f map[string]interface{}) (string, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshaling fields: %w", err)
	}
	return string(b), nil
}

func unmarshalFields(s string) (map[string]interface{}, error) {
	if s == "" {
		return map[string]interface{}{}, nil
	}
	var f map[string]interface{}
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("unmarshaling fields: %w", err)
	}
	return f, nil
}

// InsertIssue writes a new issue row inside an existing transaction.
func InsertIssue(ctx context.Context, tx *sql.Tx, issue *types.Issue) error {
	fields, err := marshalFields(issue.Fields)
	if err != nil {
		return err
	}
	var parentID interface{}
	if issue.ParentID != "" {
		parentID = issue.ParentID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO issues (
			id, content_hash, title, description, notes, status, priority,
			issue_type, parent_id, assignee, estimated_minutes, fields,
			created_at, updated_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		issue.ID, issue.ContentHash, issue.Title, issue.Description, issue.Notes,
		issue.Status, issue.Priority, issue.Type, parentID, issue.Assignee,
		issue.EstimatedMinutes, fields, issue.CreatedAt, issue.UpdatedAt, issue.ClosedAt,
	)
	if err != nil {
		return wrapDBError("insert issue", err)
	}
	return nil
}

func scanIssue(row interface{ Scan(...interface{}) error }) (*types.Issue, error) {
	var i types.Issue
	var parentID, assignee sql.NullString
	var fields string
	var closedAt sql.NullTime
	err := row.Scan(
		&i.ID, &i.ContentHash, &i.Title, &i.Description, &i.Notes, &i.Status,
		&i.Priority, &i.Type, &parentID, &assignee, &i.EstimatedMinutes, &fields,
		&i.CreatedAt, &i.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	i.ParentID = parentID.String
	i.Assignee = assignee.String
	if closedAt.Valid {
		i.ClosedAt = &closedAt.Time
	}
	i.Fields, err = unmarshalFields(fields)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const issueColumns = `id, content_hash, title, description, notes, status, priority,
	issue_type, parent_id, assignee, estimated_minutes, fields, created_at, updated_at, closed_at`

// GetIssue fetches a single issue by id from the read pool.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	row := s.read.QueryRowContext(ctx, "SELECT "+issueColumns+" FROM issues WHERE id = ?", id)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, wrapDBError("get issue", err)
	}
	return issue, nil
}

// IssueExists reports whether an issue id is already in use; suitable as
// an idgen.Exists callback.
func (s *Store) IssueExists(id string) (bool, error) {
	var n int
	err := s.read.QueryRow("SELECT COUNT(1) FROM issues WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, wrapDBError("check issue existence", err)
	}
	return n > 0, nil
}

// ListIssues returns issues matching filter, most recently created first.
func (s *Store) ListIssues(ctx context.Context, filter types.IssueFilter, page types.PageRequest) ([]*types.Issue, int, error) {
	var where []string
	var args []interface{}

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Type != nil {
		where = append(where, "issue_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Assignee != nil {
		where = append(where, "assignee = ?")
		args = append(args, *filter.Assignee)
	}
	if filter.ParentID != nil {
		where = append(where, "parent_id = ?")
		args = append(args, *filter.ParentID)
	}
	for _, label := range filter.Labels {
		where = append(where, "EXISTS (SELECT 1 FROM labels WHERE labels.issue_id = issues.id AND labels.label = ?)")
		args = append(args, label)
	}
	if len(filter.LabelsAny) > 0 {
		placeholders := make([]string, len(filter.LabelsAny))
		for i, l := range filter.LabelsAny {
			placeholders[i] = "?"
			args = append(args, l)
		}
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM labels WHERE labels.issue_id = issues.id AND labels.label IN (%s))",
			strings.Join(placeholders, ", ")))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countArgs := append([]interface{}{}, args...)
	if err := s.read.QueryRowContext(ctx, "SELECT COUNT(1) FROM issues "+whereClause, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapDBError("count issues", err)
	}

	sortCol := "created_at"
	switch page.Sort {
	case "priority", "updated_at", "status":
		sortCol = page.Sort
	}
	direction := "DESC"
	if page.Direction == "asc" {
		direction = "ASC"
	}
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT %s FROM issues %s ORDER BY %s %s LIMIT ? OFFSET ?",
		issueColumns, whereClause, sortCol, direction)
	args = append(args, limit, page.Offset)

	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapDBError("list issues", err)
	}
	defer rows.Close()

	var out []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, wrapDBError("scan issue", err)
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError("iterate issues", err)
	}
	return out, total, nil
}

// UpdateIssueFields applies a dynamic column-level update inside an
// existing transaction, matching the CAS-free write path used by
// update_issue. The caller supplies the new content_hash precomputed.
func UpdateIssueFields(ctx context.Context, tx *sql.Tx, id string, set map[string]interface{}, contentHash string) error {
	if len(set) == 0 {
		return nil
	}
	cols := make([]string, 0, len(set)+2)
	args := make([]interface{}, 0, len(set)+2)
	for col, val := range set {
		cols = append(cols, col+" = ?")
		args = append(args, val)
	}
	cols = append(cols, "content_hash = ?")
	args = append(args, contentHash)
	args = append(args, id)

	query := fmt.Sprintf("UPDATE issues SET %s WHERE id = ?", strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return wrapDBError("update issue", err)
	}
	return nil
}

// ClaimIssueTx performs ClaimIssue's conditional UPDATE inside an existing
// transaction, so callers can pair the claim with an event insert in one
// commit. openStatuses is the caller's type-scoped set of open-category
// state names; folding it into the WHERE clause makes the open-category
// check part of the same atomic write as the assignee check, so a
// concurrent status change between a caller's pre-check and this call
// cannot land a claim on an issue that has since left the open category.
func ClaimIssueTx(ctx context.Context, tx *sql.Tx, id, actor string, openStatuses []string) error {
	if len(openStatuses) == 0 {
		return ErrConflict
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(openStatuses)), ",")
	query := fmt.Sprintf(
		`UPDATE issues SET assignee = ? WHERE id = ? AND status IN (%s) AND (assignee = '' OR assignee = ?)`,
		placeholders)
	args := make([]interface{}, 0, len(openStatuses)+3)
	args = append(args, actor, id)
	for _, s := range openStatuses {
		args = append(args, s)
	}
	args = append(args, actor)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapDBError("claim issue", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("claim issue rows affected", err)
	}
	if n == 0 {
		var status, assignee string
		err := tx.QueryRowContext(ctx, "SELECT status, assignee FROM issues WHERE id = ?", id).Scan(&status, &assignee)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return wrapDBError("check issue state", err)
		}
		if !contains(openStatuses, status) {
			return ErrConflict
		}
		return ErrAlreadyClaimed
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// ClaimIssue atomically assigns an unclaimed issue to actor using a
// conditional UPDATE, scoped to the given open-category statuses. It does
// not change status: Filigree's claim semantics separate "who owns this"
// from workflow state. Returns ErrAlreadyClaimed if another actor already
// holds it, ErrConflict if the issue is no longer in an open-category
// state.
func (s *Store) ClaimIssue(ctx context.Context, id, actor string, openStatuses []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return ClaimIssueTx(ctx, tx, id, actor, openStatuses)
	})
}

// ArchiveIssuesClosedBefore deletes every issue closed before the cutoff
// and, via ON DELETE CASCADE, every dependent row across dependencies,
// labels, comments, events, and file_associations. Returns the archived
// issues so the caller can export them before they're gone.
func (s *Store) ArchiveIssuesClosedBefore(ctx context.Context, olderThanDays int) ([]*types.Issue, error) {
	var archived []*types.Issue
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT "+issueColumns+` FROM issues
			WHERE closed_at IS NOT NULL AND closed_at < datetime('now', ?)`,
			fmt.Sprintf("-%d days", olderThanDays))
		if err != nil {
			return wrapDBError("query issues to archive", err)
		}
		var ids []string
		for rows.Next() {
			issue, err := scanIssue(rows)
			if err != nil {
				rows.Close()
				return wrapDBError("scan issue to archive", err)
			}
			archived = append(archived, issue)
			ids = append(ids, issue.ID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return wrapDBError("iterate issues to archive", err)
		}
		rows.Close()

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id); err != nil {
				return wrapDBError("delete archived issue", err)
			}
		}
		return nil
	})
	return archived, err
}

// ReleaseClaimTx is ReleaseClaim's existing-transaction counterpart.
func ReleaseClaimTx(ctx context.Context, tx *sql.Tx, id, actor string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE issues SET assignee = '' WHERE id = ? AND assignee = ?`, id, actor)
	if err != nil {
		return wrapDBError("release claim", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("release claim rows affected", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseClaim clears the assignee if and only if actor currently holds
// the claim, mirroring ClaimIssue's compare-and-swap shape.
func (s *Store) ReleaseClaim(ctx context.Context, id, actor string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return ReleaseClaimTx(ctx, tx, id, actor)
	})
}

// PurgeIssues permanently deletes the given issue ids and everything
// that cascades from them (dependencies, labels, comments, events), used
// to roll back a partially created plan tree.
func (s *Store) PurgeIssues(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id); err != nil {
				return wrapDBError("purge issue", err)
			}
		}
		return nil
	})
}
