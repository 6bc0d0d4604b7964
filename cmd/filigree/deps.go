package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/types"
)

var flagDepType string

var depAddCmd = &cobra.Command{
	Use:     "dep-add <id> <depends-on-id>",
	GroupID: "deps",
	Short:   "Add a blocking dependency between two issues",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		if err := a.Engine.AddDependency(rootCtx, args[0], args[1], flagDepType, actor); err != nil {
			fail(err)
		}
		emit(struct {
			OK bool `json:"ok"`
		}{true}, func() { printOK("%s now depends on %s", args[0], args[1]) })
	},
}

var depRemoveCmd = &cobra.Command{
	Use:     "dep-remove <id> <depends-on-id>",
	GroupID: "deps",
	Short:   "Remove a dependency between two issues",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		if err := a.Engine.RemoveDependency(rootCtx, args[0], args[1], actor); err != nil {
			fail(err)
		}
		emit(struct {
			OK bool `json:"ok"`
		}{true}, func() { printOK("removed dependency %s -> %s", args[0], args[1]) })
	},
}

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: "deps",
	Short:   "List unblocked, open-category issues",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issues, err := a.Engine.GetReady(rootCtx, types.WorkFilter{Type: flagType})
		if err != nil {
			fail(err)
		}
		emit(issues, func() {
			for _, issue := range issues {
				fmt.Printf("%s  %s\n", accentStyle.Render(issue.ID), issue.Title)
			}
		})
	},
}

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	GroupID: "deps",
	Short:   "List issues blocked by an incomplete dependency",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issues, err := a.Engine.GetBlocked(rootCtx)
		if err != nil {
			fail(err)
		}
		emit(issues, func() {
			for _, b := range issues {
				ids := make([]string, len(b.Blockers))
				for i, blocker := range b.Blockers {
					ids[i] = blocker.ID
				}
				fmt.Printf("%s  blocked by %v\n", accentStyle.Render(b.Issue.ID), ids)
			}
		})
	},
}

var criticalPathCmd = &cobra.Command{
	Use:     "critical-path",
	GroupID: "deps",
	Short:   "Show the longest chain of open blocking dependencies",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		path, err := a.Engine.GetCriticalPath(rootCtx)
		if err != nil {
			fail(err)
		}
		emit(path, func() {
			for _, id := range path.IssueIDs {
				fmt.Println(accentStyle.Render(id))
			}
			fmt.Println(mutedStyle.Render(fmt.Sprintf("length: %d", path.Length)))
		})
	},
}

func init() {
	depAddCmd.Flags().StringVar(&flagDepType, "type", "blocks", "dependency type")
	readyCmd.Flags().StringVar(&flagType, "type", "", "restrict to an issue type")
}
