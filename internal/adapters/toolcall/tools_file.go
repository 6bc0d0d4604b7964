package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerFileTools wires file registration, scan-finding ingestion, and
// the issue/file association and rollup queries built on top of them.
func registerFileTools(r *Registry, e *engine.Engine) {
	r.Register(&funcTool{
		name:        "register_file",
		description: "Upsert a tracked file by canonical project-relative path.",
		schema:      schema(`{"type":"object","properties":{"path":{"type":"string"},"language":{"type":"string"},"file_type":{"type":"string"},"metadata":{"type":"object"}},"required":["path"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Path     string                 `json:"path"`
				Language string                 `json:"language"`
				FileType string                 `json:"file_type"`
				Metadata map[string]interface{} `json:"metadata"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.RegisterFile(ctx, in.Path, in.Language, in.FileType, in.Metadata)
		},
	})

	r.Register(&funcTool{
		name:        "process_scan_results",
		description: "Ingest a batch of scan findings for a file, upserting by natural key.",
		schema:      schema(`{"type":"object","properties":{"file_id":{"type":"string"},"scan_source":{"type":"string"},"scan_run_id":{"type":"string"},"findings":{"type":"array"}},"required":["file_id","scan_source","findings"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				FileID     string               `json:"file_id"`
				ScanSource string               `json:"scan_source"`
				ScanRunID  string               `json:"scan_run_id"`
				Findings   []*types.ScanFinding `json:"findings"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := e.ProcessScanResults(ctx, in.FileID, in.ScanSource, in.ScanRunID, in.Findings); err != nil {
				return nil, err
			}
			return struct {
				Ingested int `json:"ingested"`
			}{len(in.Findings)}, nil
		},
	})

	r.Register(&funcTool{
		name:        "clean_stale_findings",
		description: "Flag findings from a scan source not present in the current run as unseen_in_latest.",
		schema:      schema(`{"type":"object","properties":{"file_id":{"type":"string"},"scan_source":{"type":"string"},"current_run_id":{"type":"string"}},"required":["file_id","scan_source","current_run_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				FileID       string `json:"file_id"`
				ScanSource   string `json:"scan_source"`
				CurrentRunID string `json:"current_run_id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			n, err := e.CleanStaleFindings(ctx, in.FileID, in.ScanSource, in.CurrentRunID)
			if err != nil {
				return nil, err
			}
			return struct {
				Flagged int64 `json:"flagged"`
			}{n}, nil
		},
	})

	r.Register(&funcTool{
		name:        "gc_findings",
		description: "Hard-delete findings unseen for at least the configured grace period.",
		schema:      schema(`{"type":"object","properties":{"grace_days":{"type":"integer"}},"required":["grace_days"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				GraceDays int `json:"grace_days"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			n, err := e.GCFindings(ctx, in.GraceDays)
			if err != nil {
				return nil, err
			}
			return struct {
				Deleted int64 `json:"deleted"`
			}{n}, nil
		},
	})

	r.Register(&funcTool{
		name:        "add_file_association",
		description: "Link a file to an issue under a typed association, idempotent on the full tuple.",
		schema:      schema(`{"type":"object","properties":{"file_id":{"type":"string"},"issue_id":{"type":"string"},"assoc_type":{"type":"string"},"actor":{"type":"string"}},"required":["file_id","issue_id","assoc_type","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				FileID    string `json:"file_id"`
				IssueID   string `json:"issue_id"`
				AssocType string `json:"assoc_type"`
				Actor     string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.AddFileAssociation(ctx, in.FileID, in.IssueID, types.AssocType(in.AssocType), in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "list_files_paginated",
		description: "List tracked files matching a filter, with per-file severity rollups.",
		schema:      schema(`{"type":"object","properties":{"language":{"type":"string"},"path_prefix":{"type":"string"},"min_findings":{"type":"integer"},"has_severity":{"type":"string"},"scan_source":{"type":"string"},"limit":{"type":"integer"},"offset":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Language    string `json:"language"`
				PathPrefix  string `json:"path_prefix"`
				MinFindings int    `json:"min_findings"`
				HasSeverity string `json:"has_severity"`
				ScanSource  string `json:"scan_source"`
				Limit       int    `json:"limit"`
				Offset      int    `json:"offset"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			summaries, total, err := e.ListFilesPaginated(ctx, types.FileFilter{
				Language: in.Language, PathPrefix: in.PathPrefix, MinFindings: in.MinFindings,
				HasSeverity: in.HasSeverity, ScanSource: in.ScanSource,
			}, types.PageRequest{Limit: in.Limit, Offset: in.Offset})
			if err != nil {
				return nil, err
			}
			return struct {
				Files []types.FileSummary `json:"files"`
				Total int                 `json:"total"`
			}{summaries, total}, nil
		},
	})

	r.Register(&funcTool{
		name:        "get_file_hotspots",
		description: "Rank tracked files by weighted active-finding severity.",
		schema:      schema(`{"type":"object","properties":{"limit":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetFileHotspots(ctx, in.Limit)
		},
	})

	r.Register(&funcTool{
		name:        "get_file_timeline",
		description: "Merge a file's finding, association, and metadata-update streams newest-first.",
		schema:      schema(`{"type":"object","properties":{"file_id":{"type":"string"},"event_type":{"type":"string"},"limit":{"type":"integer"},"offset":{"type":"integer"}},"required":["file_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				FileID    string `json:"file_id"`
				EventType string `json:"event_type"`
				Limit     int    `json:"limit"`
				Offset    int    `json:"offset"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetFileTimeline(ctx, in.FileID, in.EventType, in.Limit, in.Offset)
		},
	})
}
