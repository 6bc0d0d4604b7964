// Package types defines the core data structures shared by Filigree's
// storage layer, workflow engine, and boundary adapters.
package types

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Category is the universal classification of a workflow state.
type Category string

const (
	CategoryOpen Category = "open"
	CategoryWIP  Category = "wip"
	CategoryDone Category = "done"
)

// InferCategory classifies a state name when no template entry exists for
// it, so that issues carrying an old or foreign status string still sort
// into a sensible category.
func InferCategory(state string) Category {
	switch state {
	case "closed", "done", "completed":
		return CategoryDone
	default:
		return CategoryOpen
	}
}

// Issue is a unit of work tracked by Filigree.
type Issue struct {
	ID               string                 `json:"id"`
	ContentHash      string                 `json:"content_hash,omitempty"`
	Title            string                 `json:"title"`
	Status           string                 `json:"status"`
	Priority         int                    `json:"priority"`
	Type             string                 `json:"type"`
	ParentID         string                 `json:"parent_id,omitempty"`
	Assignee         string                 `json:"assignee,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	ClosedAt         *time.Time             `json:"closed_at,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	Fields           map[string]interface{} `json:"fields,omitempty"`
	EstimatedMinutes *int                   `json:"estimated_minutes,omitempty"`
}

// ComputeContentHash hashes the issue's substantive fields, excluding
// Fields and ParentID: dynamic fields are tracked by their own
// fields_changed event, not by the content hash.
func (i *Issue) ComputeContentHash() string {
	h := sha256.New()
	parts := []string{
		i.Title, i.Description, i.Notes, i.Status,
		fmt.Sprintf("%d", i.Priority), i.Type, i.Assignee,
	}
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Validate checks field-level invariants that do not require template
// knowledge: shape of title and priority. Status/type validity against
// the template registry is checked by the issue engine, not here.
func (i *Issue) Validate() error {
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if i.EstimatedMinutes != nil && *i.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	return nil
}

// Dependency is a directed blocking edge: IssueID is blocked by DependsOnID.
type Dependency struct {
	IssueID     string    `json:"issue_id"`
	DependsOnID string    `json:"depends_on_id"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

const DefaultDependencyType = "blocks"

// EventType enumerates the closed taxonomy of audit events.
type EventType string

const (
	EventCreated             EventType = "created"
	EventStatusChanged       EventType = "status_changed"
	EventPriorityChanged     EventType = "priority_changed"
	EventTitleChanged        EventType = "title_changed"
	EventAssigneeChanged     EventType = "assignee_changed"
	EventDescriptionChanged  EventType = "description_changed"
	EventNotesChanged        EventType = "notes_changed"
	EventParentChanged       EventType = "parent_changed"
	EventFieldsChanged       EventType = "fields_changed"
	EventClaimed             EventType = "claimed"
	EventReleased            EventType = "released"
	EventCommentAdded        EventType = "comment_added"
	EventLabelAdded          EventType = "label_added"
	EventLabelRemoved        EventType = "label_removed"
	EventDependencyAdded     EventType = "dependency_added"
	EventDependencyRemoved   EventType = "dependency_removed"
	EventClosed              EventType = "closed"
	EventReopened            EventType = "reopened"
	EventArchived            EventType = "archived"
	EventFindingCreated      EventType = "finding_created"
	EventFindingUpdated      EventType = "finding_updated"
	EventAssociationCreated  EventType = "association_created"
	EventFileMetadataUpdate  EventType = "file_metadata_update"
)

// ReversibleEvents is the set of event types undo_last may invert.
// "released" has no inverse here: undo cannot know who to restore the
// claim to.
var ReversibleEvents = map[EventType]bool{
	EventStatusChanged:   true,
	EventPriorityChanged: true,
	EventTitleChanged:    true,
	EventClaimed:         true,
	EventCommentAdded:    true,
	EventLabelAdded:      true,
}

// Event is an append-only audit record.
type Event struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is an ordered, per-issue discussion entry.
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Label is a string tag attached to an issue.
type Label struct {
	IssueID string `json:"issue_id"`
	Label   string `json:"label"`
}

// BlockedIssue pairs an issue with the summaries of its outstanding blockers.
type BlockedIssue struct {
	Issue
	Blockers []IssueSummary `json:"blockers"`
}

// IssueSummary is a minimal projection used in blocker lists and timelines.
type IssueSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
}
