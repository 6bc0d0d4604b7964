package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/types"
)

func TestRegisterFile_NoopWhenUnchanged(t *testing.T) {
	e, ctx := newTestEngine(t)

	first, err := e.RegisterFile(ctx, "internal/engine/issue.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}

	second, err := e.RegisterFile(ctx, "internal/engine/issue.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("re-registering file: %v", err)
	}
	assert.Equal(t, first.ID, second.ID)

	timeline, err := e.GetFileTimeline(ctx, first.ID, "file_metadata_update", 10, 0)
	if err != nil {
		t.Fatalf("getting timeline: %v", err)
	}
	assert.Len(t, timeline, 1, "registering an unchanged file twice must emit at most one metadata-update event")
}

func TestRegisterFile_ChangeEmitsMetadataEvent(t *testing.T) {
	e, ctx := newTestEngine(t)

	if _, err := e.RegisterFile(ctx, "internal/engine/issue.go", "go", "source", nil); err != nil {
		t.Fatalf("registering file: %v", err)
	}
	changed, err := e.RegisterFile(ctx, "internal/engine/issue.go", "go", "test", nil)
	if err != nil {
		t.Fatalf("re-registering with a change: %v", err)
	}

	timeline, err := e.GetFileTimeline(ctx, changed.ID, "file_metadata_update", 10, 0)
	if err != nil {
		t.Fatalf("getting timeline: %v", err)
	}
	assert.Len(t, timeline, 2)
}

func TestProcessScanResults_ReingestBumpsSeenCount(t *testing.T) {
	e, ctx := newTestEngine(t)
	file, err := e.RegisterFile(ctx, "internal/engine/file.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}

	line := 42
	finding := func() []*types.ScanFinding {
		return []*types.ScanFinding{{
			RuleID:    "no-unchecked-error",
			Severity:  types.SeverityHigh,
			Message:   "error return value is ignored",
			LineStart: &line,
		}}
	}

	if err := e.ProcessScanResults(ctx, file.ID, "staticcheck", "run-1", finding()); err != nil {
		t.Fatalf("ingesting first scan: %v", err)
	}
	if err := e.ProcessScanResults(ctx, file.ID, "staticcheck", "run-2", finding()); err != nil {
		t.Fatalf("ingesting second scan: %v", err)
	}

	findings, err := e.Store.ListFindings(ctx, file.ID)
	if err != nil {
		t.Fatalf("listing findings: %v", err)
	}
	if assert.Len(t, findings, 1, "same natural key must dedupe to one row") {
		assert.Equal(t, 2, findings[0].SeenCount)
	}
}

func TestProcessScanResults_EmitsFindingCreatedThenFindingUpdated(t *testing.T) {
	e, ctx := newTestEngine(t)
	file, err := e.RegisterFile(ctx, "internal/engine/file.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}

	line := 42
	finding := func() []*types.ScanFinding {
		return []*types.ScanFinding{{
			RuleID:    "no-unchecked-error",
			Severity:  types.SeverityHigh,
			Message:   "error return value is ignored",
			LineStart: &line,
		}}
	}

	if err := e.ProcessScanResults(ctx, file.ID, "staticcheck", "run-1", finding()); err != nil {
		t.Fatalf("ingesting first scan: %v", err)
	}
	created, err := e.GetFileTimeline(ctx, file.ID, string(types.EventFindingCreated), 10, 0)
	if err != nil {
		t.Fatalf("getting timeline: %v", err)
	}
	assert.Len(t, created, 1, "a genuinely new finding must emit exactly one finding_created event")

	if err := e.ProcessScanResults(ctx, file.ID, "staticcheck", "run-2", finding()); err != nil {
		t.Fatalf("ingesting second scan: %v", err)
	}
	updated, err := e.GetFileTimeline(ctx, file.ID, string(types.EventFindingUpdated), 10, 0)
	if err != nil {
		t.Fatalf("getting timeline: %v", err)
	}
	assert.Len(t, updated, 1, "re-ingesting the same finding must emit a finding_updated event, not another finding_created")

	created, err = e.GetFileTimeline(ctx, file.ID, string(types.EventFindingCreated), 10, 0)
	if err != nil {
		t.Fatalf("getting timeline: %v", err)
	}
	assert.Len(t, created, 1, "the finding_created count must not grow on re-ingest")
}

func TestGetFileTimeline_NegativeOffsetClampsToZero(t *testing.T) {
	e, ctx := newTestEngine(t)
	file, err := e.RegisterFile(ctx, "internal/engine/file.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}
	if _, err := e.RegisterFile(ctx, "internal/engine/file.go", "go", "test", nil); err != nil {
		t.Fatalf("re-registering with a change: %v", err)
	}

	zero, err := e.GetFileTimeline(ctx, file.ID, "file_metadata_update", 10, 0)
	if err != nil {
		t.Fatalf("getting timeline with offset 0: %v", err)
	}
	negative, err := e.GetFileTimeline(ctx, file.ID, "file_metadata_update", 10, -5)
	if err != nil {
		t.Fatalf("getting timeline with negative offset: %v", err)
	}
	assert.Equal(t, zero, negative, "a negative offset must behave like offset 0 rather than panicking")
}

func TestAddFileAssociation_IdempotentOnFullTuple(t *testing.T) {
	e, ctx := newTestEngine(t)
	file, err := e.RegisterFile(ctx, "internal/engine/file.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}
	issue := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "touches file.go", Actor: "alice"})

	if _, err := e.AddFileAssociation(ctx, file.ID, issue.ID, types.AssocTaskFor, "alice"); err != nil {
		t.Fatalf("first association: %v", err)
	}
	if _, err := e.AddFileAssociation(ctx, file.ID, issue.ID, types.AssocTaskFor, "alice"); err != nil {
		t.Fatalf("duplicate association: %v", err)
	}

	assocs, err := e.Store.ListFileAssociations(ctx, file.ID)
	if err != nil {
		t.Fatalf("listing associations: %v", err)
	}
	assert.Len(t, assocs, 1, "the same (file, issue, assoc_type) tuple must not duplicate")

	events, err := e.GetIssueEvents(ctx, issue.ID, 10)
	if err != nil {
		t.Fatalf("getting events: %v", err)
	}
	count := 0
	for _, ev := range events {
		if ev.EventType == types.EventAssociationCreated {
			count++
		}
	}
	assert.Equal(t, 1, count, "a duplicate association tuple must not record a second association_created event")
}

func TestListFilesPaginated_MinFindingsExcludesFilesWithoutFindings(t *testing.T) {
	e, ctx := newTestEngine(t)
	acked, err := e.RegisterFile(ctx, "internal/engine/dependency.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering file: %v", err)
	}
	quiet, err := e.RegisterFile(ctx, "internal/engine/planning.go", "go", "source", nil)
	if err != nil {
		t.Fatalf("registering second file: %v", err)
	}

	line := 10
	if err := e.ProcessScanResults(ctx, acked.ID, "staticcheck", "run-1", []*types.ScanFinding{{
		RuleID: "r1", Severity: types.SeverityMedium, Message: "m", LineStart: &line,
	}}); err != nil {
		t.Fatalf("ingesting finding: %v", err)
	}

	summaries, _, err := e.ListFilesPaginated(ctx, types.FileFilter{MinFindings: 1}, types.PageRequest{})
	if err != nil {
		t.Fatalf("listing files: %v", err)
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.File.ID
	}
	assert.Contains(t, ids, acked.ID)
	assert.NotContains(t, ids, quiet.ID)
}

func TestListFilesPaginated_MinFindingsTotalAndPageStayConsistent(t *testing.T) {
	e, ctx := newTestEngine(t)
	line := 10

	var matching []string
	for i := 0; i < 3; i++ {
		f, err := e.RegisterFile(ctx, fmt.Sprintf("internal/engine/match%d.go", i), "go", "source", nil)
		if err != nil {
			t.Fatalf("registering matching file %d: %v", i, err)
		}
		if err := e.ProcessScanResults(ctx, f.ID, "staticcheck", "run-1", []*types.ScanFinding{{
			RuleID: "r1", Severity: types.SeverityMedium, Message: "m", LineStart: &line,
		}}); err != nil {
			t.Fatalf("ingesting finding %d: %v", i, err)
		}
		matching = append(matching, f.ID)
	}
	if _, err := e.RegisterFile(ctx, "internal/engine/quiet.go", "go", "source", nil); err != nil {
		t.Fatalf("registering quiet file: %v", err)
	}

	page1, total, err := e.ListFilesPaginated(ctx, types.FileFilter{MinFindings: 1}, types.PageRequest{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("listing first page: %v", err)
	}
	assert.Equal(t, 3, total, "total must reflect the post-rollup filtered count, not every row in the files table")
	assert.Len(t, page1, 2, "a full page must be returned when enough matching rows exist beyond it")

	page2, total2, err := e.ListFilesPaginated(ctx, types.FileFilter{MinFindings: 1}, types.PageRequest{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("listing second page: %v", err)
	}
	assert.Equal(t, 3, total2)
	assert.Len(t, page2, 1, "the remaining matching row must appear on the next page, not be dropped")
}
