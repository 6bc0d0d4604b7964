package engine

import (
	"context"
	"database/sql"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/idgen"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/types"
)

// AddComment appends a comment to an issue and records a
// comment_added event in the same commit.
func (e *Engine) AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error) {
	if _, err := e.ensureIssue(ctx, issueID); err != nil {
		return nil, err
	}
	c := &types.Comment{IssueID: issueID, Author: author, Text: text, CreatedAt: idgen.Now()}

	err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := sqlite.InsertComment(ctx, tx, c)
		if err != nil {
			return err
		}
		c.ID = id
		_, err = emitEvent(ctx, tx, issueID, types.EventCommentAdded, author, nil, nil, strPtr(text))
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("issue", issueID, err)
	}
	_ = e.refreshSummary(ctx)
	return c, nil
}

// ListComments returns an issue's comments in chronological order.
func (e *Engine) ListComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	comments, err := e.Store.ListComments(ctx, issueID)
	if err != nil {
		return nil, wrapStorageErr("issue", issueID, err)
	}
	return comments, nil
}

// AddLabel attaches a label to an issue, tolerating one already present,
// and records a label_added event only when the label was newly added.
func (e *Engine) AddLabel(ctx context.Context, issueID, label, actor string) error {
	if label == "" {
		return ferrors.New(ferrors.CodeValidation, "label is required")
	}
	if _, err := e.ensureIssue(ctx, issueID); err != nil {
		return err
	}
	err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		added, err := sqlite.AddLabel(ctx, tx, issueID, label)
		if err != nil || !added {
			return err
		}
		_, err = emitEvent(ctx, tx, issueID, types.EventLabelAdded, actor, nil, strPtr(label), nil)
		return err
	})
	if err != nil {
		return wrapStorageErr("issue", issueID, err)
	}
	_ = e.refreshSummary(ctx)
	return nil
}

// RemoveLabel detaches a label from an issue and records a
// label_removed event.
func (e *Engine) RemoveLabel(ctx context.Context, issueID, label, actor string) error {
	if _, err := e.ensureIssue(ctx, issueID); err != nil {
		return err
	}
	err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.RemoveLabel(ctx, tx, issueID, label); err != nil {
			return err
		}
		_, err := emitEvent(ctx, tx, issueID, types.EventLabelRemoved, actor, strPtr(label), nil, nil)
		return err
	})
	if err != nil {
		return wrapStorageErr("issue", issueID, err)
	}
	_ = e.refreshSummary(ctx)
	return nil
}

// ListLabels returns every label attached to an issue.
func (e *Engine) ListLabels(ctx context.Context, issueID string) ([]string, error) {
	labels, err := e.Store.ListLabels(ctx, issueID)
	if err != nil {
		return nil, wrapStorageErr("issue", issueID, err)
	}
	return labels, nil
}
