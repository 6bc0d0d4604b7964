package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tachyon-beep/filigree/internal/types"
)

// InsertEvent appends an audit record inside an existing transaction and
// returns its assigned id.
func InsertEvent(ctx context.Context, tx *sql.Tx, e *types.Event) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (issue_id, event_type, actor, old_value, new_value, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.IssueID, e.EventType, e.Actor, e.OldValue, e.NewValue, e.Comment, e.CreatedAt)
	if err != nil {
		return 0, wrapDBError("insert event", err)
	}
	return result.LastInsertId()
}

func scanEvent(row interface{ Scan(...interface{}) error }) (*types.Event, error) {
	var e types.Event
	var oldValue, newValue, comment sql.NullString
	if err := row.Scan(&e.ID, &e.IssueID, &e.EventType, &e.Actor, &oldValue, &newValue, &comment, &e.CreatedAt); err != nil {
		return nil, err
	}
	if oldValue.Valid {
		e.OldValue = &oldValue.String
	}
	if newValue.Valid {
		e.NewValue = &newValue.String
	}
	if comment.Valid {
		e.Comment = &comment.String
	}
	return &e, nil
}

const eventColumns = "id, issue_id, event_type, actor, old_value, new_value, comment, created_at"

// ListEvents returns an issue's event history, newest first.
func (s *Store) ListEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.read.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE issue_id = ? ORDER BY id DESC LIMIT ?", issueID, limit)
	if err != nil {
		return nil, wrapDBError("list events", err)
	}
	defer rows.Close()

	var out []*types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBError("scan event", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastReversibleEvent returns the most recent event for issueID whose
// type appears in types.ReversibleEvents, or nil if there is none.
func (s *Store) LastReversibleEvent(ctx context.Context, issueID string) (*types.Event, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE issue_id = ? ORDER BY id DESC", issueID)
	if err != nil {
		return nil, wrapDBError("scan events for undo", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBError("scan event", err)
		}
		if types.ReversibleEvents[e.EventType] {
			return e, nil
		}
	}
	return nil, rows.Err()
}

// EventsSince returns every event with id > cursor across all issues, in
// ascending order, backing the change-feed resumption contract.
func (s *Store) EventsSince(ctx context.Context, cursor int64, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.read.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id > ? ORDER BY id ASC LIMIT ?", cursor, limit)
	if err != nil {
		return nil, wrapDBError("events since", err)
	}
	defer rows.Close()

	var out []*types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBError("scan event", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentEvents returns the most recently recorded events across all
// issues, newest first, backing the dashboard activity feed.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.read.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, wrapDBError("recent events", err)
	}
	defer rows.Close()

	var out []*types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBError("scan event", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CompactEvents truncates event rows older than olderThanDays across all
// issues, regardless of issue status, bounding event-table growth.
func (s *Store) CompactEvents(ctx context.Context, olderThanDays int) (int64, error) {
	result, err := s.write.ExecContext(ctx,
		"DELETE FROM events WHERE created_at < datetime('now', ?)", fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return 0, wrapDBError("compact events", err)
	}
	return result.RowsAffected()
}
