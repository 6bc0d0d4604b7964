package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/idgen"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/types"
)

// canonicalPath normalizes a project-relative path, rejecting absolute
// paths and any that escape the project root.
func canonicalPath(p string) (string, error) {
	if p == "" {
		return "", ferrors.New(ferrors.CodeInvalidPath, "path is required")
	}
	if path.IsAbs(p) || strings.HasPrefix(p, "/") {
		return "", ferrors.New(ferrors.CodeInvalidPath, "path %q must be project-relative", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ferrors.New(ferrors.CodeInvalidPath, "path %q escapes the project root", p)
	}
	return clean, nil
}

func metadataEqual(a, b map[string]interface{}) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	var av, bv interface{}
	_ = json.Unmarshal(aj, &av)
	_ = json.Unmarshal(bj, &bv)
	aNorm, _ := json.Marshal(av)
	bNorm, _ := json.Marshal(bv)
	return string(aNorm) == string(bNorm)
}

// RegisterFile upserts a tracked file by canonical path, updating only
// when the language, file type, or metadata actually changed, and
// recording a file_metadata_update event in that case.
func (e *Engine) RegisterFile(ctx context.Context, filePath, language, fileType string, metadata map[string]interface{}) (*types.FileRecord, error) {
	clean, err := canonicalPath(filePath)
	if err != nil {
		return nil, err
	}

	existing, err := e.Store.GetFileByPath(ctx, clean)
	var changed bool
	now := idgen.Now()
	rec := &types.FileRecord{Path: clean, Language: language, FileType: fileType, Metadata: metadata, UpdatedAt: now}

	switch {
	case errIsNotFound(err):
		id, idErr := e.newFileID()
		if idErr != nil {
			return nil, ferrors.Wrap(ferrors.CodeInternal, idErr, "generating file id")
		}
		rec.ID = id
		rec.FirstSeen = now
		changed = true
	case err != nil:
		return nil, wrapStorageErr("file", clean, err)
	default:
		rec.ID = existing.ID
		rec.FirstSeen = existing.FirstSeen
		changed = existing.Language != language || existing.FileType != fileType || !metadataEqual(existing.Metadata, metadata)
		if !changed {
			return existing, nil
		}
	}

	if err := e.Store.UpsertFile(ctx, rec); err != nil {
		return nil, wrapStorageErr("file", clean, err)
	}

	if err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return sqlite.InsertFileEvent(ctx, tx, &types.FileEvent{
			FileID: rec.ID, EventType: types.EventFileMetadataUpdate, CreatedAt: now,
		})
	}); err != nil {
		return nil, wrapStorageErr("file", clean, err)
	}
	return rec, nil
}

func errIsNotFound(err error) bool {
	return err != nil && ferrors.CodeOf(wrapStorageErr("file", "", err)) == ferrors.CodeNotFound
}

// ProcessScanResults upserts each incoming finding by its natural key,
// reopening any that had gone fixed or unseen_in_latest, and records a
// finding_created event for genuinely new rows.
func (e *Engine) ProcessScanResults(ctx context.Context, fileID, scanSource, scanRunID string, findings []*types.ScanFinding) error {
	for _, f := range findings {
		f.FileID = fileID
		f.ScanSource = scanSource
		f.ScanRunID = scanRunID
		mintedID := ""
		if f.ID == "" {
			id, err := idgen.NewIssueID("finding", nil)
			if err != nil {
				return ferrors.Wrap(ferrors.CodeInternal, err, "generating finding id")
			}
			f.ID = id
			mintedID = id
			f.FirstSeen = idgen.Now()
		}
		now := idgen.Now()
		f.LastSeenAt = now

		if err := e.Store.UpsertFinding(ctx, f); err != nil {
			return wrapStorageErr("finding", f.ID, err)
		}
		// UpsertFinding replaces f.ID with the existing row's id when the
		// natural key already matched, so the row is new only if the freshly
		// minted id survived.
		isNew := mintedID != "" && f.ID == mintedID

		eventType := types.EventFindingUpdated
		if isNew {
			eventType = types.EventFindingCreated
		}
		if err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
			return sqlite.InsertFileEvent(ctx, tx, &types.FileEvent{
				FileID: fileID, EventType: eventType, Detail: f.ID, CreatedAt: now,
			})
		}); err != nil {
			return wrapStorageErr("finding", f.ID, err)
		}
	}
	return nil
}

// CleanStaleFindings flags findings from scanSource with a different
// scan_run_id than the current run as unseen_in_latest, eligible for GC
// after the configured grace period.
func (e *Engine) CleanStaleFindings(ctx context.Context, fileID, scanSource, currentRunID string) (int64, error) {
	n, err := e.Store.MarkFindingsUnseen(ctx, fileID, scanSource, currentRunID)
	if err != nil {
		return 0, wrapStorageErr("finding", fileID, err)
	}
	return n, nil
}

// GCFindings hard-deletes findings unseen for at least graceDays.
func (e *Engine) GCFindings(ctx context.Context, graceDays int) (int64, error) {
	n, err := e.Store.GCFindings(ctx, graceDays)
	if err != nil {
		return 0, wrapStorageErr("finding", "", err)
	}
	return n, nil
}

// AddFileAssociation links a file to an issue, rejecting an unknown
// assoc_type and tolerating a duplicate tuple.
func (e *Engine) AddFileAssociation(ctx context.Context, fileID, issueID string, assocType types.AssocType, actor string) (*types.FileAssociation, error) {
	if !assocType.Valid() {
		return nil, ferrors.New(ferrors.CodeValidation, "unknown association type %q", assocType)
	}
	if _, err := e.ensureIssue(ctx, issueID); err != nil {
		return nil, err
	}
	if _, err := e.Store.GetFile(ctx, fileID); err != nil {
		return nil, wrapStorageErr("file", fileID, err)
	}

	id, err := idgen.NewIssueID("assoc", nil)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeInternal, err, "generating association id")
	}
	assoc := &types.FileAssociation{ID: id, FileID: fileID, IssueID: issueID, AssocType: assocType, CreatedAt: idgen.Now()}

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		created, err := sqlite.InsertFileAssociation(ctx, tx, assoc)
		if err != nil || !created {
			return err
		}
		newValue := issueID
		_, err = emitEvent(ctx, tx, issueID, types.EventAssociationCreated, actor, nil, &newValue, nil)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("file", fileID, err)
	}
	return assoc, nil
}

// ListFilesPaginated is a thin pass-through to the storage layer's
// dynamic-filter query.
func (e *Engine) ListFilesPaginated(ctx context.Context, filter types.FileFilter, page types.PageRequest) ([]types.FileSummary, int, error) {
	summaries, total, err := e.Store.ListFilesPaginated(ctx, filter, page)
	if err != nil {
		return nil, 0, wrapStorageErr("file", "", err)
	}
	return summaries, total, nil
}

// GetFileHotspots is a thin pass-through to the storage layer's
// weighted-severity ranking query.
func (e *Engine) GetFileHotspots(ctx context.Context, limit int) ([]types.FileHotspot, error) {
	hotspots, err := e.Store.GetFileHotspots(ctx, limit)
	if err != nil {
		return nil, wrapStorageErr("file", "", err)
	}
	return hotspots, nil
}

// GetFileTimeline merges a file's finding, association, and
// metadata-update streams, fetched concurrently, into one
// timestamp-descending list, filtered by type when requested.
func (e *Engine) GetFileTimeline(ctx context.Context, fileID, eventTypeFilter string, limit, offset int) ([]types.TimelineEntry, error) {
	validTypes := map[string]bool{
		"finding": true, "association": true, "file_metadata_update": true,
		string(types.EventFindingCreated): true, string(types.EventFindingUpdated): true,
	}
	if eventTypeFilter != "" && !validTypes[eventTypeFilter] {
		return nil, nil
	}

	var findings []*types.ScanFinding
	var assocs []*types.FileAssociation
	var fileEvents []*types.FileEvent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		findings, err = e.Store.ListFindings(gctx, fileID)
		return err
	})
	g.Go(func() error {
		var err error
		assocs, err = e.Store.ListFileAssociations(gctx, fileID)
		return err
	})
	g.Go(func() error {
		var err error
		fileEvents, err = e.listFileEvents(gctx, fileID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, wrapStorageErr("file", fileID, err)
	}

	var entries []types.TimelineEntry
	if eventTypeFilter == "" || eventTypeFilter == "finding" {
		for _, f := range findings {
			entries = append(entries, types.TimelineEntry{Type: "finding", CreatedAt: f.LastSeenAt, Payload: f})
		}
	}
	if eventTypeFilter == "" || eventTypeFilter == "association" {
		for _, a := range assocs {
			entries = append(entries, types.TimelineEntry{Type: "association", CreatedAt: a.CreatedAt, Payload: a})
		}
	}
	for _, ev := range fileEvents {
		entryType := string(ev.EventType)
		if eventTypeFilter != "" && eventTypeFilter != entryType {
			continue
		}
		entries = append(entries, types.TimelineEntry{Type: entryType, CreatedAt: ev.CreatedAt, Payload: ev})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })

	if offset < 0 {
		offset = 0
	}
	if offset > len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// listFileEvents reads a file's raw metadata-change timeline, not
// exposed as a Store method elsewhere since it's only consumed by the
// timeline merge.
func (e *Engine) listFileEvents(ctx context.Context, fileID string) ([]*types.FileEvent, error) {
	rows, err := e.Store.ReadDB().QueryContext(ctx,
		"SELECT id, file_id, event_type, detail, created_at FROM file_events WHERE file_id = ? ORDER BY id DESC", fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.FileEvent
	for rows.Next() {
		var ev types.FileEvent
		if err := rows.Scan(&ev.ID, &ev.FileID, &ev.EventType, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
