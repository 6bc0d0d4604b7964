// Package summary regenerates context.md, the markdown snapshot of a
// project's visible state, after every mutation that could change it.
package summary

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

const (
	readyQueueSize   = 10
	recentEventsSize = 20
)

// Generator rebuilds context.md from the live database state. It
// satisfies engine.SummaryRefresher without importing internal/engine:
// it reads the same storage and template handles directly rather than
// going through the issue engine's command layer.
type Generator struct {
	store *sqlite.Store
	tmpls *templates.Manager
	path  string
}

// New returns a Generator that writes to path (typically
// project.Layout.ContextPath).
func New(store *sqlite.Store, tmpls *templates.Manager, path string) *Generator {
	return &Generator{store: store, tmpls: tmpls, path: path}
}

// Refresh regenerates context.md in a single atomic write. Regeneration
// is idempotent and deterministic given the database state; callers log
// a failure here rather than let it fail the mutation that triggered it.
func (g *Generator) Refresh(ctx context.Context) error {
	issues, _, err := g.store.ListIssues(ctx, types.IssueFilter{}, types.PageRequest{Limit: 100000})
	if err != nil {
		return fmt.Errorf("listing issues for context.md: %w", err)
	}
	edges, err := g.store.AllDependencyEdges(ctx)
	if err != nil {
		return fmt.Errorf("listing dependencies for context.md: %w", err)
	}
	recent, err := g.store.RecentEvents(ctx, recentEventsSize)
	if err != nil {
		return fmt.Errorf("listing events for context.md: %w", err)
	}

	reg := g.tmpls.Current()
	categoryOf := func(issue *types.Issue) types.Category {
		if tmpl, ok := reg.Template(issue.Type); ok {
			return tmpl.StateCategory(issue.Status)
		}
		return types.InferCategory(issue.Status)
	}

	byID := make(map[string]*types.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	blockedBy := make(map[string][]string)
	for _, edge := range edges {
		blocker, ok := byID[edge.DependsOnID]
		if !ok || categoryOf(blocker) == types.CategoryDone {
			continue
		}
		blockedBy[edge.IssueID] = append(blockedBy[edge.IssueID], edge.DependsOnID)
	}

	vitals := map[types.Category]int{}
	var ready, inProgress []*types.Issue
	for _, issue := range issues {
		category := categoryOf(issue)
		vitals[category]++
		switch category {
		case types.CategoryOpen:
			if len(blockedBy[issue.ID]) == 0 {
				ready = append(ready, issue)
			}
		case types.CategoryWIP:
			inProgress = append(inProgress, issue)
		}
	}
	sortByPriorityThenCreated(ready)
	if len(ready) > readyQueueSize {
		ready = ready[:readyQueueSize]
	}
	sortByPriorityThenCreated(inProgress)

	doc := render(vitals, ready, inProgress, recent)
	return writeAtomic(g.path, doc)
}

func sortByPriorityThenCreated(issues []*types.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		return issues[i].CreatedAt.Before(issues[j].CreatedAt)
	})
}

func render(vitals map[types.Category]int, ready, inProgress []*types.Issue, recent []*types.Event) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Project context\n\n")
	fmt.Fprintf(&buf, "_Regenerated %s. Not authoritative — the database is._\n\n", time.Now().UTC().Format(time.RFC3339))

	buf.WriteString("## Vitals\n\n")
	fmt.Fprintf(&buf, "- Open: %d\n", vitals[types.CategoryOpen])
	fmt.Fprintf(&buf, "- In progress: %d\n", vitals[types.CategoryWIP])
	fmt.Fprintf(&buf, "- Done: %d\n\n", vitals[types.CategoryDone])

	buf.WriteString("## Ready queue\n\n")
	if len(ready) == 0 {
		buf.WriteString("_Nothing ready._\n\n")
	} else {
		for _, issue := range ready {
			fmt.Fprintf(&buf, "- [%s] P%d %s — %s\n", issue.ID, issue.Priority, issue.Status, issue.Title)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## In progress\n\n")
	if len(inProgress) == 0 {
		buf.WriteString("_Nothing in progress._\n\n")
	} else {
		for _, issue := range inProgress {
			assignee := issue.Assignee
			if assignee == "" {
				assignee = "unassigned"
			}
			fmt.Fprintf(&buf, "- [%s] P%d %s (%s) — %s\n", issue.ID, issue.Priority, issue.Status, assignee, issue.Title)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Recent changes\n\n")
	if len(recent) == 0 {
		buf.WriteString("_No events recorded yet._\n")
	} else {
		for _, ev := range recent {
			fmt.Fprintf(&buf, "- %s %s %s", ev.CreatedAt.UTC().Format(time.RFC3339), ev.IssueID, ev.EventType)
			if ev.NewValue != nil {
				fmt.Fprintf(&buf, " -> %s", *ev.NewValue)
			}
			if ev.Actor != "" {
				fmt.Fprintf(&buf, " (%s)", ev.Actor)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// writeAtomic stages doc under path+".tmp" then renames it into place, so
// a reader never observes a half-written file.
func writeAtomic(path string, doc []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create context.md directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, doc, 0o644); err != nil {
		return fmt.Errorf("write temp context.md: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp context.md: %w", err)
	}
	return nil
}
