package engine

import (
	"context"

	"github.com/tachyon-beep/filigree/internal/types"
)

// GetIssueEvents returns an issue's event history, newest first.
func (e *Engine) GetIssueEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	events, err := e.Store.ListEvents(ctx, issueID, limit)
	if err != nil {
		return nil, wrapStorageErr("issue", issueID, err)
	}
	return events, nil
}

// GetRecentEvents returns the most recent events across every issue,
// newest first, backing the dashboard activity feed.
func (e *Engine) GetRecentEvents(ctx context.Context, limit int) ([]*types.Event, error) {
	events, err := e.Store.RecentEvents(ctx, limit)
	if err != nil {
		return nil, wrapStorageErr("event", "", err)
	}
	return events, nil
}

// GetEventsSince powers session resumption: every event with id > cursor,
// ascending.
func (e *Engine) GetEventsSince(ctx context.Context, cursor int64, limit int) ([]*types.Event, error) {
	events, err := e.Store.EventsSince(ctx, cursor, limit)
	if err != nil {
		return nil, wrapStorageErr("event", "", err)
	}
	return events, nil
}

// ArchiveClosed returns (for export by the caller) and then removes every
// issue closed before the cutoff, along with every dependent row across
// comments, labels, events, dependencies, and file associations.
func (e *Engine) ArchiveClosed(ctx context.Context, olderThanDays int) ([]*types.Issue, error) {
	archived, err := e.Store.ArchiveIssuesClosedBefore(ctx, olderThanDays)
	if err != nil {
		return nil, wrapStorageErr("issue", "", err)
	}
	return archived, nil
}

// CompactEvents truncates event rows older than olderThanDays across all
// issues regardless of status.
func (e *Engine) CompactEvents(ctx context.Context, olderThanDays int) (int64, error) {
	n, err := e.Store.CompactEvents(ctx, olderThanDays)
	if err != nil {
		return 0, wrapStorageErr("event", "", err)
	}
	return n, nil
}
