package engine

import (
	"context"
	"time"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

// ComputeFlowMetrics derives cycle time, lead time, and throughput from
// the event log for issues closed within the last windowDays days. It
// queries the read pool directly (per Store.ReadDB's documented use for
// analytics) rather than adding single-purpose storage methods for each
// aggregate.
func (e *Engine) ComputeFlowMetrics(ctx context.Context, windowDays int) (*types.FlowMetrics, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)

	rows, err := e.Store.ReadDB().QueryContext(ctx, `
		SELECT id, type, created_at, closed_at FROM issues
		WHERE closed_at IS NOT NULL AND closed_at >= ?
	`, cutoff)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeInternal, err, "querying closed issues")
	}
	type closedIssue struct {
		id        string
		issueType string
		createdAt time.Time
		closedAt  time.Time
	}
	var closedIssues []closedIssue
	for rows.Next() {
		var ci closedIssue
		if err := rows.Scan(&ci.id, &ci.issueType, &ci.createdAt, &ci.closedAt); err != nil {
			rows.Close()
			return nil, ferrors.Wrap(ferrors.CodeInternal, err, "scanning closed issue")
		}
		closedIssues = append(closedIssues, ci)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, ferrors.Wrap(ferrors.CodeInternal, err, "iterating closed issues")
	}
	rows.Close()

	throughput := map[string]int{}
	var cycleTimes, leadTimes []time.Duration

	for _, ci := range closedIssues {
		day := ci.closedAt.Format("2006-01-02")
		throughput[day]++
		leadTimes = append(leadTimes, ci.closedAt.Sub(ci.createdAt))

		events, err := e.Store.ListEvents(ctx, ci.id, 1000)
		if err != nil {
			return nil, wrapStorageErr("issue", ci.id, err)
		}
		firstOut, firstDone := e.findFirstTransitions(ci.issueType, events)
		if firstOut != nil && firstDone != nil {
			cycleTimes = append(cycleTimes, firstDone.CreatedAt.Sub(firstOut.CreatedAt))
		}
	}

	return &types.FlowMetrics{
		WindowDays:    windowDays,
		CycleTimeMean: meanHours(cycleTimes),
		LeadTimeMean:  meanHours(leadTimes),
		Throughput:    throughput,
	}, nil
}

// findFirstTransitions scans an issue's events (ListEvents returns
// newest-first) for the earliest status_changed event (the first move out
// of the initial state) and the earliest one whose new_value names a
// done-category state for issueType, falling back to the generic status
// heuristic for a type with no registered template.
func (e *Engine) findFirstTransitions(issueType string, events []*types.Event) (firstOut, firstDone *types.Event) {
	tmpl, known := e.templateFor(issueType)
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.EventType != types.EventStatusChanged {
			continue
		}
		if firstOut == nil {
			firstOut = ev
		}
		if firstDone == nil && ev.NewValue != nil {
			category := types.InferCategory(*ev.NewValue)
			if known {
				category = tmpl.StateCategory(*ev.NewValue)
			}
			if category == types.CategoryDone {
				firstDone = ev
			}
		}
		if firstOut != nil && firstDone != nil {
			return
		}
	}
	return
}

func meanHours(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total.Hours() / float64(len(durations))
}
