package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tachyon-beep/filigree/internal/types"
)

func marshalMeta(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(s string) (map[string]interface{}, error) {
	if s == "" {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return m, nil
}

// UpsertFile inserts a new file record or, if the path is already tracked,
// overwrites its language, file_type, metadata and last_seen_at and sets
// f.ID to the existing record's id.
func (s *Store) UpsertFile(ctx context.Context, f *types.FileRecord) error {
	meta, err := marshalMeta(f.Metadata)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID string
		err := tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", f.Path).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO files (id, path, language, file_type, metadata, first_seen_at, last_seen_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, f.ID, f.Path, f.Language, f.FileType, meta, f.FirstSeen, f.UpdatedAt)
			return wrapDBError("insert file", err)
		case err != nil:
			return wrapDBError("lookup file by path", err)
		default:
			f.ID = existingID
			_, err := tx.ExecContext(ctx, `
				UPDATE files SET language = ?, file_type = ?, metadata = ?, last_seen_at = ?
				WHERE id = ?
			`, f.Language, f.FileType, meta, f.UpdatedAt, existingID)
			return wrapDBError("update file", err)
		}
	})
}

func scanFile(row interface{ Scan(...interface{}) error }) (*types.FileRecord, error) {
	var f types.FileRecord
	var meta string
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.FileType, &meta, &f.FirstSeen, &f.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	f.Metadata, err = unmarshalMeta(meta)
	return &f, err
}

const fileColumns = "id, path, language, file_type, metadata, first_seen_at, last_seen_at"

// GetFile fetches a file record by id.
func (s *Store) GetFile(ctx context.Context, id string) (*types.FileRecord, error) {
	row := s.read.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	f, err := scanFile(row)
	if err != nil {
		return nil, wrapDBError("get file", err)
	}
	return f, nil
}

// GetFileByPath fetches a file record by its repository-relative path.
func (s *Store) GetFileByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	row := s.read.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE path = ?", path)
	f, err := scanFile(row)
	if err != nil {
		return nil, wrapDBError("get file by path", err)
	}
	return f, nil
}

// UpsertFinding inserts a new finding or updates the existing row sharing
// the same natural key (file_id, scan_source, rule_id, line_start),
// bumping seen_count and last_seen_at and restoring an unseen_in_latest
// finding back to open on re-ingest.
func (s *Store) UpsertFinding(ctx context.Context, f *types.ScanFinding) error {
	meta, err := marshalMeta(f.Metadata)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID string
		var status types.FindingStatus
		var seenCount int
		err := tx.QueryRowContext(ctx, `
			SELECT id, status, seen_count FROM scan_findings
			WHERE file_id = ? AND scan_source = ? AND rule_id = ? AND line_start IS ?
		`, f.FileID, f.ScanSource, f.RuleID, f.LineStart).Scan(&existingID, &status, &seenCount)

		switch {
		case err == sql.ErrNoRows:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO scan_findings (
					id, file_id, scan_source, rule_id, severity, line_start, line_end,
					message, suggestion, status, seen_count, metadata,
					first_seen_at, last_seen_at, scan_run_id
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
			`, f.ID, f.FileID, f.ScanSource, f.RuleID, f.Severity, f.LineStart, f.LineEnd,
				f.Message, f.Suggestion, types.FindingOpen, meta, f.FirstSeen, f.LastSeenAt, f.ScanRunID)
			return wrapDBError("insert finding", err)
		case err != nil:
			return wrapDBError("lookup finding", err)
		default:
			f.ID = existingID
			newStatus := status
			if status == types.FindingUnseenInLatest {
				newStatus = types.FindingOpen
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE scan_findings SET severity = ?, message = ?, suggestion = ?,
					status = ?, seen_count = ?, metadata = ?, last_seen_at = ?, scan_run_id = ?
				WHERE id = ?
			`, f.Severity, f.Message, f.Suggestion, newStatus, seenCount+1, meta, f.LastSeenAt, f.ScanRunID, existingID)
			return wrapDBError("update finding", err)
		}
	})
}

// MarkFindingsUnseen flags every open/acknowledged finding for fileID whose
// scan_source matches and whose scan_run_id differs from the latest run,
// used by clean_stale_findings after a fresh scan ingest.
func (s *Store) MarkFindingsUnseen(ctx context.Context, fileID, scanSource, currentRunID string) (int64, error) {
	result, err := s.write.ExecContext(ctx, `
		UPDATE scan_findings SET status = ?
		WHERE file_id = ? AND scan_source = ? AND scan_run_id != ?
		AND status IN (?, ?)
	`, types.FindingUnseenInLatest, fileID, scanSource, currentRunID, types.FindingOpen, types.FindingAcknowledged)
	if err != nil {
		return 0, wrapDBError("mark findings unseen", err)
	}
	return result.RowsAffected()
}

// GCFindings hard-deletes findings that have been unseen_in_latest for at
// least graceDays, never touching active findings.
func (s *Store) GCFindings(ctx context.Context, graceDays int) (int64, error) {
	result, err := s.write.ExecContext(ctx, `
		DELETE FROM scan_findings
		WHERE status = ? AND last_seen_at < datetime('now', ?)
	`, types.FindingUnseenInLatest, fmt.Sprintf("-%d days", graceDays))
	if err != nil {
		return 0, wrapDBError("gc findings", err)
	}
	return result.RowsAffected()
}

func scanFinding(row interface{ Scan(...interface{}) error }) (*types.ScanFinding, error) {
	var f types.ScanFinding
	var meta string
	if err := row.Scan(
		&f.ID, &f.FileID, &f.ScanSource, &f.RuleID, &f.Severity, &f.LineStart, &f.LineEnd,
		&f.Message, &f.Suggestion, &f.Status, &f.SeenCount, &meta,
		&f.FirstSeen, &f.LastSeenAt, &f.ScanRunID,
	); err != nil {
		return nil, err
	}
	var err error
	f.Metadata, err = unmarshalMeta(meta)
	return &f, err
}

const findingColumns = `id, file_id, scan_source, rule_id, severity, line_start, line_end,
	message, suggestion, status, seen_count, metadata, first_seen_at, last_seen_at, scan_run_id`

// ListFindings returns findings for a file, most recently seen first.
func (s *Store) ListFindings(ctx context.Context, fileID string) ([]*types.ScanFinding, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT "+findingColumns+" FROM scan_findings WHERE file_id = ? ORDER BY last_seen_at DESC", fileID)
	if err != nil {
		return nil, wrapDBError("list findings", err)
	}
	defer rows.Close()

	var out []*types.ScanFinding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, wrapDBError("scan finding", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertFileAssociation links a file to an issue inside an existing
// transaction, tolerating a duplicate (file_id, issue_id, assoc_type)
// tuple. Reports whether the row was actually new so the caller can
// skip recording a no-op event.
func InsertFileAssociation(ctx context.Context, tx *sql.Tx, a *types.FileAssociation) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO file_associations (id, file_id, issue_id, assoc_type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, '')
		ON CONFLICT (file_id, issue_id, assoc_type) DO NOTHING
	`, a.ID, a.FileID, a.IssueID, a.AssocType, a.CreatedAt)
	if err != nil {
		return false, wrapDBError("insert file association", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError("insert file association rows affected", err)
	}
	return n > 0, nil
}

// ListFileAssociations returns every association for a file.
func (s *Store) ListFileAssociations(ctx context.Context, fileID string) ([]*types.FileAssociation, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT id, file_id, issue_id, assoc_type, created_at FROM file_associations WHERE file_id = ? ORDER BY created_at ASC", fileID)
	if err != nil {
		return nil, wrapDBError("list file associations", err)
	}
	defer rows.Close()

	var out []*types.FileAssociation
	for rows.Next() {
		var a types.FileAssociation
		if err := rows.Scan(&a.ID, &a.FileID, &a.IssueID, &a.AssocType, &a.CreatedAt); err != nil {
			return nil, wrapDBError("scan file association", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// InsertFileEvent appends a file metadata timeline entry.
func InsertFileEvent(ctx context.Context, tx *sql.Tx, e *types.FileEvent) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO file_events (file_id, event_type, detail, created_at) VALUES (?, ?, ?, ?)",
		e.FileID, e.EventType, e.Detail, e.CreatedAt)
	return wrapDBError("insert file event", err)
}

// ListFilesPaginated returns files matching filter along with severity
// counts and association counts for each, for the dashboard file list.
//
// MinFindings and HasSeverity can only be evaluated after the per-file
// severity rollup, which isn't expressible in the files-table WHERE
// clause; when either is set, every matching row is fetched and rolled
// up before paging in Go so LIMIT/OFFSET and the reported total stay
// consistent with the post-rollup filter instead of truncating to a
// page of candidates that then shrinks further.
func (s *Store) ListFilesPaginated(ctx context.Context, filter types.FileFilter, page types.PageRequest) ([]types.FileSummary, int, error) {
	var where []string
	var args []interface{}

	if filter.Language != "" {
		where = append(where, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.PathPrefix != "" {
		where = append(where, "path LIKE ?")
		args = append(args, filter.PathPrefix+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	postRollupFilter := filter.MinFindings > 0 || filter.HasSeverity != ""

	query := fmt.Sprintf("SELECT %s FROM files %s ORDER BY path ASC", fileColumns, whereClause)
	queryArgs := append([]interface{}{}, args...)
	if !postRollupFilter {
		query += " LIMIT ? OFFSET ?"
		queryArgs = append(queryArgs, limit, page.Offset)
	}

	rows, err := s.read.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, wrapDBError("list files", err)
	}
	defer rows.Close()

	var matched []types.FileSummary
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, wrapDBError("scan file", err)
		}
		counts, assocCount, err := s.fileRollup(ctx, f.ID)
		if err != nil {
			return nil, 0, err
		}
		if filter.MinFindings > 0 {
			total := 0
			for _, c := range counts {
				total += c
			}
			if total < filter.MinFindings {
				continue
			}
		}
		if filter.HasSeverity != "" && counts[filter.HasSeverity] == 0 {
			continue
		}
		matched = append(matched, types.FileSummary{File: *f, SeverityCounts: counts, AssociationCount: assocCount})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError("iterate files", err)
	}

	if !postRollupFilter {
		var total int
		if err := s.read.QueryRowContext(ctx, "SELECT COUNT(1) FROM files "+whereClause, args...).Scan(&total); err != nil {
			return nil, 0, wrapDBError("count files", err)
		}
		return matched, total, nil
	}

	total := len(matched)
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) fileRollup(ctx context.Context, fileID string) (map[string]int, int, error) {
	counts := map[string]int{}
	rows, err := s.read.QueryContext(ctx, `
		SELECT severity, COUNT(1) FROM scan_findings
		WHERE file_id = ? AND status IN (?, ?, ?)
		GROUP BY severity
	`, fileID, types.FindingOpen, types.FindingAcknowledged, types.FindingUnseenInLatest)
	if err != nil {
		return nil, 0, wrapDBError("rollup findings", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, 0, wrapDBError("scan finding rollup", err)
		}
		counts[sev] = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError("iterate finding rollup", err)
	}

	var assocCount int
	if err := s.read.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM file_associations WHERE file_id = ?", fileID).Scan(&assocCount); err != nil {
		return nil, 0, wrapDBError("count file associations", err)
	}
	return counts, assocCount, nil
}

// GetFileHotspots ranks files by a weighted count of active findings
// (critical=4, high=3, medium=2, low=1, info=0), descending.
func (s *Store) GetFileHotspots(ctx context.Context, limit int) ([]types.FileHotspot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.read.QueryContext(ctx, `
		SELECT f.id, f.path, f.language, f.file_type, f.metadata, f.first_seen_at, f.last_seen_at,
			SUM(CASE sf.severity
				WHEN 'critical' THEN 4 WHEN 'high' THEN 3
				WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END) AS score
		FROM files f
		JOIN scan_findings sf ON sf.file_id = f.id AND sf.status IN (?, ?, ?)
		GROUP BY f.id
		ORDER BY score DESC
		LIMIT ?
	`, types.FindingOpen, types.FindingAcknowledged, types.FindingUnseenInLatest, limit)
	if err != nil {
		return nil, wrapDBError("file hotspots", err)
	}
	defer rows.Close()

	var out []types.FileHotspot
	for rows.Next() {
		var f types.FileRecord
		var meta string
		var score int
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.FileType, &meta, &f.FirstSeen, &f.UpdatedAt, &score); err != nil {
			return nil, wrapDBError("scan hotspot", err)
		}
		f.Metadata, err = unmarshalMeta(meta)
		if err != nil {
			return nil, err
		}
		counts, _, err := s.fileRollup(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, types.FileHotspot{File: f, Score: score, Counts: counts})
	}
	return out, rows.Err()
}
