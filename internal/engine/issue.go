package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/idgen"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

// CreateIssueInput carries create_issue's optional fields.
type CreateIssueInput struct {
	Title       string
	Type        string
	Priority    *int
	ParentID    string
	Assignee    string
	Description string
	Notes       string
	Fields      map[string]interface{}
	Status      string
	Actor       string
}

// CreateIssue mints an id, defaults type/priority/status, validates the
// parent reference, inserts the row, and records a created event.
func (e *Engine) CreateIssue(ctx context.Context, in CreateIssueInput) (*types.Issue, error) {
	issueType := in.Type
	if issueType == "" {
		issueType = "task"
	}
	tmpl, known := e.templateFor(issueType)
	if !known {
		return nil, ferrors.New(ferrors.CodeValidation, "unknown issue type %q", issueType)
	}

	status := in.Status
	if status == "" {
		status = tmpl.InitialState
	}

	priority := 2
	if in.Priority != nil {
		priority = *in.Priority
	}

	if in.ParentID != "" {
		if _, err := e.ensureIssue(ctx, in.ParentID); err != nil {
			return nil, err
		}
	}

	id, err := e.newIssueID()
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeInternal, err, "generating issue id")
	}

	now := idgen.Now()
	issue := &types.Issue{
		ID:          id,
		Title:       in.Title,
		Status:      status,
		Priority:    priority,
		Type:        issueType,
		ParentID:    in.ParentID,
		Assignee:    in.Assignee,
		Description: in.Description,
		Notes:       in.Notes,
		Fields:      in.Fields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tmpl.StateCategory(status) == types.CategoryDone {
		issue.ClosedAt = &now
	}
	if err := issue.Validate(); err != nil {
		return nil, ferrors.Wrap(ferrors.CodeValidation, err, "validating issue")
	}
	issue.ContentHash = issue.ComputeContentHash()

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.InsertIssue(ctx, tx, issue); err != nil {
			return err
		}
		_, err := emitEvent(ctx, tx, issue.ID, types.EventCreated, in.Actor, nil, strPtr(issue.Status), nil)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}

	e.Metrics.IssueCreated(ctx)
	_ = e.refreshSummary(ctx)
	return issue, nil
}

// UpdateIssueInput carries update_issue's optional field changes. A nil
// pointer means "leave unchanged"; Fields, when non-nil, replaces the
// issue's dynamic field map wholesale.
type UpdateIssueInput struct {
	Status              *string
	Priority            *int
	Title               *string
	Assignee            *string
	Description         *string
	Notes               *string
	ParentID            *string
	Fields              map[string]interface{}
	Actor               string
	SkipTransitionCheck bool
}

// UpdateIssue applies the requested field changes, validating any status
// transition against the issue's template unless SkipTransitionCheck is
// set, and records one event per changed field.
func (e *Engine) UpdateIssue(ctx context.Context, id string, in UpdateIssueInput) (*types.Issue, []ferrors.Warning, error) {
	issue, err := e.ensureIssue(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	tmpl, known := e.templateFor(issue.Type)
	var warnings []ferrors.Warning
	set := map[string]interface{}{}
	events := []pendingEvent{}

	if in.Status != nil && *in.Status != issue.Status {
		newStatus := *in.Status
		if known && !in.SkipTransitionCheck {
			mergedFields := issue.Fields
			if in.Fields != nil {
				mergedFields = in.Fields
			}
			ok, missing, valErr := templates.ValidateTransition(tmpl, issue.Status, newStatus, mergedFields)
			if valErr != nil {
				return nil, nil, ferrors.Wrap(ferrors.CodeInternal, valErr, "validating transition")
			}
			if !ok {
				valid := make([]string, 0)
				for _, vt := range templates.ValidTransitions(tmpl, issue.Status, mergedFields) {
					valid = append(valid, vt.To)
				}
				return nil, nil, ferrors.InvalidTransition(issue.Status, newStatus, valid, missing)
			}
			if len(missing) > 0 {
				warnings = append(warnings, ferrors.Warning{
					Message: fmtMissingFields(missing),
				})
			}
		}
		set["status"] = newStatus
		events = append(events, pendingEvent{types.EventStatusChanged, strPtr(issue.Status), strPtr(newStatus)})

		oldCategory, newCategory := types.CategoryOpen, types.CategoryOpen
		if known {
			oldCategory = tmpl.StateCategory(issue.Status)
			newCategory = tmpl.StateCategory(newStatus)
		} else {
			oldCategory = types.InferCategory(issue.Status)
			newCategory = types.InferCategory(newStatus)
		}
		if newCategory == types.CategoryDone && oldCategory != types.CategoryDone {
			now := idgen.Now()
			set["closed_at"] = now
			issue.ClosedAt = &now
		} else if newCategory != types.CategoryDone && oldCategory == types.CategoryDone {
			set["closed_at"] = nil
			issue.ClosedAt = nil
		}
		issue.Status = newStatus
	}

	if in.Priority != nil && *in.Priority != issue.Priority {
		set["priority"] = *in.Priority
		events = append(events, pendingEvent{types.EventPriorityChanged, strPtr(fmt.Sprintf("%d", issue.Priority)), strPtr(fmt.Sprintf("%d", *in.Priority))})
		issue.Priority = *in.Priority
	}
	if in.Title != nil && *in.Title != issue.Title {
		set["title"] = *in.Title
		events = append(events, pendingEvent{types.EventTitleChanged, strPtr(issue.Title), strPtr(*in.Title)})
		issue.Title = *in.Title
	}
	if in.Assignee != nil && *in.Assignee != issue.Assignee {
		set["assignee"] = *in.Assignee
		events = append(events, pendingEvent{types.EventAssigneeChanged, strPtr(issue.Assignee), strPtr(*in.Assignee)})
		issue.Assignee = *in.Assignee
	}
	if in.Description != nil && *in.Description != issue.Description {
		set["description"] = *in.Description
		events = append(events, pendingEvent{types.EventDescriptionChanged, strPtr(issue.Description), strPtr(*in.Description)})
		issue.Description = *in.Description
	}
	if in.Notes != nil && *in.Notes != issue.Notes {
		set["notes"] = *in.Notes
		events = append(events, pendingEvent{types.EventNotesChanged, strPtr(issue.Notes), strPtr(*in.Notes)})
		issue.Notes = *in.Notes
	}
	if in.ParentID != nil && *in.ParentID != issue.ParentID {
		if *in.ParentID != "" {
			if _, err := e.ensureIssue(ctx, *in.ParentID); err != nil {
				return nil, nil, err
			}
		}
		set["parent_id"] = nullableString(*in.ParentID)
		events = append(events, pendingEvent{types.EventParentChanged, strPtr(issue.ParentID), strPtr(*in.ParentID)})
		issue.ParentID = *in.ParentID
	}
	if in.Fields != nil {
		fieldsJSON, err := marshalJSON(in.Fields)
		if err != nil {
			return nil, nil, ferrors.Wrap(ferrors.CodeValidation, err, "marshaling fields")
		}
		set["fields"] = fieldsJSON
		events = append(events, pendingEvent{types.EventFieldsChanged, nil, strPtr(fieldsJSON)})
		issue.Fields = in.Fields
	}

	if len(set) == 0 {
		return issue, warnings, nil
	}

	if err := issue.Validate(); err != nil {
		return nil, nil, ferrors.Wrap(ferrors.CodeValidation, err, "validating issue")
	}
	issue.ContentHash = issue.ComputeContentHash()

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.UpdateIssueFields(ctx, tx, id, set, issue.ContentHash); err != nil {
			return err
		}
		for _, pe := range events {
			if _, err := emitEvent(ctx, tx, id, pe.eventType, in.Actor, pe.oldValue, pe.newValue, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapStorageErr("issue", id, err)
	}

	_ = e.refreshSummary(ctx)
	return issue, warnings, nil
}

// GetIssue loads a single issue by id.
func (e *Engine) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	return e.ensureIssue(ctx, id)
}

// ListIssues is a thin pass-through to the storage layer's dynamic-filter
// query, backing the list_issues and search tools.
func (e *Engine) ListIssues(ctx context.Context, filter types.IssueFilter, page types.PageRequest) ([]*types.Issue, int, error) {
	issues, total, err := e.Store.ListIssues(ctx, filter, page)
	if err != nil {
		return nil, 0, wrapStorageErr("issue", "", err)
	}
	return issues, total, nil
}

type pendingEvent struct {
	eventType types.EventType
	oldValue  *string
	newValue  *string
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CloseIssue transitions an issue into its type's terminal (done-category)
// state, bypassing transition validation like the reference's reopen
// path, optionally appending a reason comment, and reports the issues
// that became unblocked as a result.
func (e *Engine) CloseIssue(ctx context.Context, id, reason, actor string) (*types.Issue, []*types.Issue, error) {
	issue, err := e.ensureIssue(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tmpl, known := e.templateFor(issue.Type)
	terminal := "done"
	if known {
		t, ok := tmpl.TerminalState()
		if !ok {
			return nil, nil, ferrors.New(ferrors.CodeInvalid, "type %q declares no done-category state", issue.Type)
		}
		terminal = t
	}

	beforeBlocked, err := e.dependentsOf(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	prevStatus := issue.Status
	now := idgen.Now()
	issue.Status = terminal
	issue.ClosedAt = &now
	if err := issue.Validate(); err != nil {
		return nil, nil, ferrors.Wrap(ferrors.CodeValidation, err, "validating issue")
	}
	issue.ContentHash = issue.ComputeContentHash()

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		set := map[string]interface{}{"status": terminal, "closed_at": now}
		if err := sqlite.UpdateIssueFields(ctx, tx, id, set, issue.ContentHash); err != nil {
			return err
		}
		if _, err := emitEvent(ctx, tx, id, types.EventStatusChanged, actor, strPtr(prevStatus), strPtr(terminal), nil); err != nil {
			return err
		}
		if reason != "" {
			if _, err := sqlite.InsertComment(ctx, tx, &types.Comment{
				IssueID:   id,
				Author:    actor,
				Text:      reason,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		_, err := emitEvent(ctx, tx, id, types.EventClosed, actor, nil, strPtr(terminal), nullableStrPtr(reason))
		return err
	})
	if err != nil {
		return nil, nil, wrapStorageErr("issue", id, err)
	}

	unblocked, err := e.newlyUnblocked(ctx, beforeBlocked)
	if err != nil {
		return nil, nil, err
	}

	e.Metrics.IssueClosed(ctx)
	_ = e.refreshSummary(ctx)
	return issue, unblocked, nil
}

func nullableStrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// dependentsOf returns the blocked-status of every issue that directly
// depends on id, before id's own status changes, so CloseIssue can later
// diff against newlyUnblocked.
func (e *Engine) dependentsOf(ctx context.Context, id string) (map[string]bool, error) {
	dependents, err := e.Store.ListDependents(ctx, id)
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}
	out := map[string]bool{}
	for _, d := range dependents {
		blocked, err := e.isBlocked(ctx, d.IssueID)
		if err != nil {
			return nil, err
		}
		out[d.IssueID] = blocked
	}
	return out, nil
}

// newlyUnblocked re-checks blocked status for every issue recorded by
// dependentsOf and returns those that flipped from blocked to unblocked.
func (e *Engine) newlyUnblocked(ctx context.Context, before map[string]bool) ([]*types.Issue, error) {
	var out []*types.Issue
	for issueID, wasBlocked := range before {
		if !wasBlocked {
			continue
		}
		nowBlocked, err := e.isBlocked(ctx, issueID)
		if err != nil {
			return nil, err
		}
		if !nowBlocked {
			issue, err := e.ensureIssue(ctx, issueID)
			if err != nil {
				return nil, err
			}
			out = append(out, issue)
		}
	}
	return out, nil
}

// ReopenIssue resets a done-category issue back to its type's initial
// state, clearing closed_at.
func (e *Engine) ReopenIssue(ctx context.Context, id, actor string) (*types.Issue, error) {
	issue, err := e.ensureIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl, known := e.templateFor(issue.Type)
	category := types.InferCategory(issue.Status)
	if known {
		category = tmpl.StateCategory(issue.Status)
	}
	if category != types.CategoryDone {
		return nil, ferrors.New(ferrors.CodeInvalid, "issue %q is not in a done-category state", id)
	}
	initial := "open"
	if known {
		initial = tmpl.InitialState
	}

	prevStatus := issue.Status
	issue.Status = initial
	issue.ClosedAt = nil
	if err := issue.Validate(); err != nil {
		return nil, ferrors.Wrap(ferrors.CodeValidation, err, "validating issue")
	}
	issue.ContentHash = issue.ComputeContentHash()

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		set := map[string]interface{}{"status": initial, "closed_at": nil}
		if err := sqlite.UpdateIssueFields(ctx, tx, id, set, issue.ContentHash); err != nil {
			return err
		}
		if _, err := emitEvent(ctx, tx, id, types.EventStatusChanged, actor, strPtr(prevStatus), strPtr(initial), nil); err != nil {
			return err
		}
		_, err := emitEvent(ctx, tx, id, types.EventReopened, actor, nil, strPtr(initial), nil)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}

	_ = e.refreshSummary(ctx)
	return issue, nil
}

// ClaimIssue assigns an unclaimed, open-category issue to assignee. It
// never changes status: the caller advances workflow through UpdateIssue
// explicitly.
func (e *Engine) ClaimIssue(ctx context.Context, id, assignee, actor string) (*types.Issue, error) {
	issue, err := e.ensureIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl, known := e.templateFor(issue.Type)
	category := types.InferCategory(issue.Status)
	if known {
		category = tmpl.StateCategory(issue.Status)
	}
	if category != types.CategoryOpen {
		return nil, ferrors.New(ferrors.CodeInvalid, "issue %q is not in an open-category state", id)
	}
	openStatuses := openCategoryStatuses(tmpl, known, issue.Status)

	prevAssignee := issue.Assignee
	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.ClaimIssueTx(ctx, tx, id, assignee, openStatuses); err != nil {
			return err
		}
		_, err := emitEvent(ctx, tx, id, types.EventClaimed, actor, nullableStrPtr(prevAssignee), strPtr(assignee), nil)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}

	issue.Assignee = assignee
	_ = e.refreshSummary(ctx)
	return issue, nil
}

// openCategoryStatuses returns the set of state names ClaimIssueTx should
// accept as "still open" for id's type, so the claim's conditional UPDATE
// can check status and assignee atomically. Falls back to the issue's own
// current status when its type carries no known template.
func openCategoryStatuses(tmpl types.Template, known bool, currentStatus string) []string {
	if !known {
		return []string{currentStatus}
	}
	var out []string
	for _, s := range tmpl.States {
		if s.Category == types.CategoryOpen {
			out = append(out, s.Name)
		}
	}
	if len(out) == 0 {
		out = []string{currentStatus}
	}
	return out
}

// ReleaseClaim clears an issue's assignee if actor currently holds it.
func (e *Engine) ReleaseClaim(ctx context.Context, id, actor string) (*types.Issue, error) {
	issue, err := e.ensureIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Assignee == "" {
		return nil, ferrors.New(ferrors.CodeInvalid, "issue %q has no assignee to release", id)
	}
	prevAssignee := issue.Assignee
	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.ReleaseClaimTx(ctx, tx, id, actor); err != nil {
			return err
		}
		_, err := emitEvent(ctx, tx, id, types.EventReleased, actor, strPtr(prevAssignee), strPtr(""), nil)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}

	issue.Assignee = ""
	_ = e.refreshSummary(ctx)
	return issue, nil
}

// ClaimNextResult is claim_next's response: either a claimed issue with a
// human-readable selection reason, or none=true.
type ClaimNextResult struct {
	Issue  *types.Issue
	Reason string
	None   bool
}

// ClaimNext computes the ready set, applies filters, sorts by (priority
// asc, created_at asc), and atomically claims the first candidate.
func (e *Engine) ClaimNext(ctx context.Context, assignee string, filter types.WorkFilter, actor string) (*ClaimNextResult, error) {
	ready, err := e.GetReady(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return &ClaimNextResult{None: true}, nil
	}
	for _, candidate := range ready {
		claimed, err := e.ClaimIssue(ctx, candidate.ID, assignee, actor)
		if err != nil {
			if ferrors.CodeOf(err) == ferrors.CodeAlreadyClaimed {
				continue
			}
			return nil, err
		}
		reason := fmt.Sprintf("priority %d, type %s, no outstanding blockers", claimed.Priority, claimed.Type)
		return &ClaimNextResult{Issue: claimed, Reason: reason}, nil
	}
	return &ClaimNextResult{None: true}, nil
}

// BatchItemError is one failed item in a batch_close/batch_update response.
type BatchItemError struct {
	ID               string   `json:"id"`
	Error            string   `json:"error"`
	Code             string   `json:"code"`
	ValidTransitions []string `json:"valid_transitions,omitempty"`
}

// BatchClose closes every id, collecting per-id errors without aborting
// the whole batch. Each CloseIssue call commits on its own, so the
// successful subset is not applied as one unit: every item that closed
// stays committed whatever happens to the other items.
func (e *Engine) BatchClose(ctx context.Context, ids []string, reason, actor string) ([]*types.Issue, []BatchItemError) {
	var closed []*types.Issue
	var errs []BatchItemError
	for _, id := range ids {
		issue, _, err := e.CloseIssue(ctx, id, reason, actor)
		if err != nil {
			errs = append(errs, batchErrorFor(id, err))
			continue
		}
		closed = append(closed, issue)
	}
	return closed, errs
}

// BatchUpdate applies the same field changes to every id.
func (e *Engine) BatchUpdate(ctx context.Context, ids []string, fields map[string]interface{}, actor string) ([]*types.Issue, []BatchItemError) {
	var updated []*types.Issue
	var errs []BatchItemError
	for _, id := range ids {
		issue, _, err := e.UpdateIssue(ctx, id, UpdateIssueInput{Fields: fields, Actor: actor})
		if err != nil {
			errs = append(errs, batchErrorFor(id, err))
			continue
		}
		updated = append(updated, issue)
	}
	return updated, errs
}

func batchErrorFor(id string, err error) BatchItemError {
	be := BatchItemError{ID: id, Error: err.Error(), Code: string(ferrors.CodeOf(err))}
	var fe *ferrors.Error
	if asFerrors(err, &fe) {
		be.ValidTransitions = fe.ValidTransitions
	}
	return be
}

func asFerrors(err error, target **ferrors.Error) bool {
	for err != nil {
		if fe, ok := err.(*ferrors.Error); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// UndoResult is undo_last's response.
type UndoResult struct {
	Undone    bool
	EventType string
	EventID   int64
	Reason    string
}

// UndoLast finds the most recent reversible event for an issue and applies
// its inverse directly, without transition re-validation.
func (e *Engine) UndoLast(ctx context.Context, issueID, actor string) (*UndoResult, error) {
	event, err := e.Store.LastReversibleEvent(ctx, issueID)
	if err != nil {
		return nil, wrapStorageErr("issue", issueID, err)
	}
	if event == nil {
		return &UndoResult{Undone: false, Reason: "no reversible event found"}, nil
	}

	prior := ""
	if event.OldValue != nil {
		prior = *event.OldValue
	}

	switch event.EventType {
	case types.EventStatusChanged:
		if _, _, err := e.UpdateIssue(ctx, issueID, UpdateIssueInput{Status: &prior, Actor: actor, SkipTransitionCheck: true}); err != nil {
			return nil, err
		}
	case types.EventPriorityChanged:
		p := 2
		fmt.Sscanf(prior, "%d", &p)
		if _, _, err := e.UpdateIssue(ctx, issueID, UpdateIssueInput{Priority: &p, Actor: actor}); err != nil {
			return nil, err
		}
	case types.EventTitleChanged:
		if _, _, err := e.UpdateIssue(ctx, issueID, UpdateIssueInput{Title: &prior, Actor: actor}); err != nil {
			return nil, err
		}
	case types.EventClaimed:
		if prior == "" {
			if _, err := e.ReleaseClaim(ctx, issueID, actor); err != nil {
				return nil, err
			}
		} else if _, err := e.ClaimIssue(ctx, issueID, prior, actor); err != nil {
			return nil, err
		}
	case types.EventLabelAdded:
		label := ""
		if event.NewValue != nil {
			label = *event.NewValue
		}
		if err := e.RemoveLabel(ctx, issueID, label, actor); err != nil {
			return nil, err
		}
	case types.EventCommentAdded:
		// Recorded for audit visibility; a comment has no single-value
		// "old state" to restore.
		return &UndoResult{Undone: false, Reason: "comment_added has no inverse", EventType: string(event.EventType), EventID: event.ID}, nil
	default:
		return &UndoResult{Undone: false, Reason: fmt.Sprintf("event type %s has no inverse", event.EventType)}, nil
	}

	return &UndoResult{Undone: true, EventType: string(event.EventType), EventID: event.ID}, nil
}

// sortByPriorityThenCreated orders issues the way get_ready/claim_next
// require: priority ascending, then created_at ascending.
func sortByPriorityThenCreated(issues []*types.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		return issues[i].CreatedAt.Before(issues[j].CreatedAt)
	})
}
