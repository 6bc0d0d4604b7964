package engine

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/idgen"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/types"
)

// AddDependency records a blocking edge after rejecting self-dependency,
// unknown issues, and any edge that would close a cycle. Cycle detection
// walks the reverse reachability set from depends_on_id: if issue_id
// appears in it, adding the edge would create a cycle.
func (e *Engine) AddDependency(ctx context.Context, issueID, dependsOnID, depType, actor string) error {
	if issueID == dependsOnID {
		return ferrors.New(ferrors.CodeValidation, "an issue cannot depend on itself")
	}
	if _, err := e.ensureIssue(ctx, issueID); err != nil {
		return err
	}
	if _, err := e.ensureIssue(ctx, dependsOnID); err != nil {
		return err
	}

	edges, err := e.Store.AllDependencyEdges(ctx)
	if err != nil {
		return wrapStorageErr("dependency", issueID, err)
	}
	if reachable(edges, dependsOnID, issueID) {
		return ferrors.New(ferrors.CodeWouldCreateCycle, "adding %s -> %s would create a cycle", issueID, dependsOnID)
	}

	if depType == "" {
		depType = types.DefaultDependencyType
	}
	dep := &types.Dependency{
		IssueID:     issueID,
		DependsOnID: dependsOnID,
		Type:        depType,
		CreatedAt:   idgen.Now(),
		CreatedBy:   actor,
	}
	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		prevType, existed, err := sqlite.InsertDependency(ctx, tx, dep)
		if err != nil {
			return err
		}
		if existed && prevType == depType {
			return nil
		}
		var oldValue *string
		if existed {
			oldValue = strPtr(prevType)
		}
		newValue := dependsOnID + ":" + depType
		_, err = emitEvent(ctx, tx, issueID, types.EventDependencyAdded, actor, oldValue, &newValue, nil)
		return err
	})
	if err != nil {
		return wrapStorageErr("dependency", issueID, err)
	}
	_ = e.refreshSummary(ctx)
	return nil
}

// RemoveDependency deletes a blocking edge, tolerating an already-absent
// one as success.
func (e *Engine) RemoveDependency(ctx context.Context, issueID, dependsOnID, actor string) error {
	err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		derr := sqlite.DeleteDependency(ctx, tx, issueID, dependsOnID)
		if errors.Is(derr, sqlite.ErrNotFound) {
			return nil
		}
		if derr != nil {
			return derr
		}
		oldValue := dependsOnID
		_, err := emitEvent(ctx, tx, issueID, types.EventDependencyRemoved, actor, &oldValue, nil, nil)
		return err
	})
	if err != nil {
		return wrapStorageErr("dependency", issueID, err)
	}
	_ = e.refreshSummary(ctx)
	return nil
}

// reachable reports whether target is reachable from start by following
// "blocked-by" edges forward (issue_id -> depends_on_id), matching the
// reverse-BFS-from-depends_on_id cycle check.
func reachable(edges []types.Dependency, start, target string) bool {
	adj := map[string][]string{}
	for _, e := range edges {
		adj[e.IssueID] = append(adj[e.IssueID], e.DependsOnID)
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		for _, next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// isBlocked reports whether an issue has at least one outstanding
// (open or wip category) blocker.
func (e *Engine) isBlocked(ctx context.Context, issueID string) (bool, error) {
	deps, err := e.Store.ListDependencies(ctx, issueID)
	if err != nil {
		return false, wrapStorageErr("issue", issueID, err)
	}
	for _, d := range deps {
		blocker, err := e.ensureIssue(ctx, d.DependsOnID)
		if err != nil {
			if ferrors.CodeOf(err) == ferrors.CodeNotFound {
				continue
			}
			return false, err
		}
		if e.categoryOf(blocker) != types.CategoryDone {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) categoryOf(issue *types.Issue) types.Category {
	if tmpl, ok := e.templateFor(issue.Type); ok {
		return tmpl.StateCategory(issue.Status)
	}
	return types.InferCategory(issue.Status)
}

// GetReady returns open-category issues with no outstanding blocker,
// filtered by type/priority range, sorted (priority asc, created_at asc).
func (e *Engine) GetReady(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error) {
	issueFilter := types.IssueFilter{}
	if filter.Type != "" {
		issueFilter.Type = &filter.Type
	}
	candidates, _, err := e.Store.ListIssues(ctx, issueFilter, types.PageRequest{Limit: 1000})
	if err != nil {
		return nil, wrapStorageErr("issue", "", err)
	}

	var ready []*types.Issue
	for _, issue := range candidates {
		if e.categoryOf(issue) != types.CategoryOpen {
			continue
		}
		if filter.PriorityMin != nil && issue.Priority < *filter.PriorityMin {
			continue
		}
		if filter.PriorityMax != nil && issue.Priority > *filter.PriorityMax {
			continue
		}
		blocked, err := e.isBlocked(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		if !blocked {
			ready = append(ready, issue)
		}
	}
	sortByPriorityThenCreated(ready)
	if filter.Limit > 0 && len(ready) > filter.Limit {
		ready = ready[:filter.Limit]
	}
	return ready, nil
}

// GetBlocked returns open-category issues with at least one outstanding
// blocker, each paired with summaries of its blocking issues.
func (e *Engine) GetBlocked(ctx context.Context) ([]types.BlockedIssue, error) {
	candidates, _, err := e.Store.ListIssues(ctx, types.IssueFilter{}, types.PageRequest{Limit: 10000})
	if err != nil {
		return nil, wrapStorageErr("issue", "", err)
	}

	var out []types.BlockedIssue
	for _, issue := range candidates {
		if e.categoryOf(issue) != types.CategoryOpen {
			continue
		}
		deps, err := e.Store.ListDependencies(ctx, issue.ID)
		if err != nil {
			return nil, wrapStorageErr("issue", issue.ID, err)
		}
		var blockers []types.IssueSummary
		for _, d := range deps {
			blocker, err := e.ensureIssue(ctx, d.DependsOnID)
			if err != nil {
				if ferrors.CodeOf(err) == ferrors.CodeNotFound {
					continue
				}
				return nil, err
			}
			if e.categoryOf(blocker) != types.CategoryDone {
				blockers = append(blockers, types.IssueSummary{
					ID: blocker.ID, Title: blocker.Title, Status: blocker.Status, Priority: blocker.Priority,
				})
			}
		}
		if len(blockers) > 0 {
			out = append(out, types.BlockedIssue{Issue: *issue, Blockers: blockers})
		}
	}
	return out, nil
}

// CriticalPath is the result of get_critical_path: the longest dependency
// chain by node count over the non-done subgraph.
type CriticalPath struct {
	IssueIDs []string
	Length   int
}

// GetCriticalPath computes the longest dependency chain over the
// non-done subgraph via Kahn's topological sort followed by longest-path
// relaxation, breaking ties by lowest summed priority.
func (e *Engine) GetCriticalPath(ctx context.Context) (*CriticalPath, error) {
	allIssues, _, err := e.Store.ListIssues(ctx, types.IssueFilter{}, types.PageRequest{Limit: 100000})
	if err != nil {
		return nil, wrapStorageErr("issue", "", err)
	}
	nodes := map[string]*types.Issue{}
	for _, issue := range allIssues {
		if e.categoryOf(issue) != types.CategoryDone {
			nodes[issue.ID] = issue
		}
	}

	edges, err := e.Store.AllDependencyEdges(ctx)
	if err != nil {
		return nil, wrapStorageErr("dependency", "", err)
	}
	// forward: depends_on_id -> issue_id, the direction work flows in.
	forward := map[string][]string{}
	indegree := map[string]int{}
	for id := range nodes {
		indegree[id] = 0
	}
	for _, edge := range edges {
		if _, ok := nodes[edge.IssueID]; !ok {
			continue
		}
		if _, ok := nodes[edge.DependsOnID]; !ok {
			continue
		}
		forward[edge.DependsOnID] = append(forward[edge.DependsOnID], edge.IssueID)
		indegree[edge.IssueID]++
	}

	var queue []string
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var topo []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		topo = append(topo, cur)
		next := append([]string{}, forward[cur]...)
		sort.Strings(next)
		for _, n := range next {
			indegree[n]--
			if indegree[n] == 0 {
				queue = append(queue, n)
			}
		}
	}

	dist := map[string]int{}
	prioritySum := map[string]int{}
	prev := map[string]string{}
	for _, id := range topo {
		if _, ok := dist[id]; !ok {
			dist[id] = 1
			prioritySum[id] = nodes[id].Priority
		}
		for _, next := range forward[id] {
			candidate := dist[id] + 1
			candidateSum := prioritySum[id] + nodes[next].Priority
			if candidate > dist[next] || (candidate == dist[next] && candidateSum < prioritySum[next]) {
				dist[next] = candidate
				prioritySum[next] = candidateSum
				prev[next] = id
			}
		}
	}

	bestID, bestLen, bestSum := "", 0, 0
	for id, l := range dist {
		if l > bestLen || (l == bestLen && prioritySum[id] < bestSum) {
			bestID, bestLen, bestSum = id, l, prioritySum[id]
		}
	}
	if bestID == "" {
		return &CriticalPath{}, nil
	}

	var chain []string
	for id := bestID; ; {
		chain = append([]string{id}, chain...)
		p, ok := prev[id]
		if !ok {
			break
		}
		id = p
	}
	return &CriticalPath{IssueIDs: chain, Length: len(chain)}, nil
}
