package types

import "time"

// FileRecord is a tracked repository file.
type FileRecord struct {
	ID        string                 `json:"id"`
	Path      string                 `json:"path"`
	Language  string                 `json:"language,omitempty"`
	FileType  string                 `json:"file_type,omitempty"`
	FirstSeen time.Time              `json:"first_seen"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Severity is the closed set of scan-finding severities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// FindingStatus is the closed set of scan-finding lifecycle states.
type FindingStatus string

const (
	FindingOpen           FindingStatus = "open"
	FindingAcknowledged   FindingStatus = "acknowledged"
	FindingUnseenInLatest FindingStatus = "unseen_in_latest"
	FindingFixed          FindingStatus = "fixed"
	FindingFalsePositive  FindingStatus = "false_positive"
)

// IsTerminal reports whether the finding is considered resolved for the
// purposes of min_findings filtering.
func (s FindingStatus) IsTerminal() bool {
	return s == FindingFixed || s == FindingFalsePositive
}

// ScanFinding is a discovered issue in a file, attributed to a scan source.
type ScanFinding struct {
	ID          string                 `json:"id"`
	FileID      string                 `json:"file_id"`
	ScanSource  string                 `json:"scan_source"`
	RuleID      string                 `json:"rule_id"`
	Severity    Severity               `json:"severity"`
	Status      FindingStatus          `json:"status"`
	Message     string                 `json:"message"`
	Suggestion  string                 `json:"suggestion,omitempty"`
	LineStart   *int                   `json:"line_start,omitempty"`
	LineEnd     *int                   `json:"line_end,omitempty"`
	FirstSeen   time.Time              `json:"first_seen"`
	LastSeenAt  time.Time              `json:"last_seen_at"`
	SeenCount   int                    `json:"seen_count"`
	ScanRunID   string                 `json:"scan_run_id,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// AssocType is the closed set of file-issue association kinds.
type AssocType string

const (
	AssocBugIn       AssocType = "bug_in"
	AssocTaskFor     AssocType = "task_for"
	AssocScanFinding AssocType = "scan_finding"
	AssocMentionedIn AssocType = "mentioned_in"
)

func (a AssocType) Valid() bool {
	switch a {
	case AssocBugIn, AssocTaskFor, AssocScanFinding, AssocMentionedIn:
		return true
	}
	return false
}

// FileAssociation links a file to an issue.
type FileAssociation struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	IssueID   string    `json:"issue_id"`
	AssocType AssocType `json:"assoc_type"`
	CreatedAt time.Time `json:"created_at"`
}

// FileEvent is a lightweight metadata-change timeline entry for a file.
type FileEvent struct {
	ID        int64     `json:"id"`
	FileID    string    `json:"file_id"`
	EventType EventType `json:"event_type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileSummary is the per-file row returned by list_files_paginated.
type FileSummary struct {
	File             FileRecord     `json:"file"`
	SeverityCounts   map[string]int `json:"severity_counts"`
	AssociationCount int            `json:"associations_count"`
}

// TimelineEntry is one row in a file's merged timeline.
type TimelineEntry struct {
	Type      string      `json:"type"` // "finding", "association", "file_metadata_update", "finding_created", "finding_updated"
	CreatedAt time.Time   `json:"created_at"`
	Payload   interface{} `json:"payload"`
}

// FileHotspot ranks a file by weighted active-finding count.
type FileHotspot struct {
	File   FileRecord `json:"file"`
	Score  int        `json:"score"`
	Counts map[string]int `json:"counts"`
}
