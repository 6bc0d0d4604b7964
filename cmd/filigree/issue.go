package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/types"
)

var (
	flagTitle       string
	flagType        string
	flagPriority    int
	flagParent      string
	flagAssignee    string
	flagDescription string
	flagNotes       string
	flagStatus      string
	flagReason      string
	flagSkipCheck   bool
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	GroupID: "issues",
	Short:   "Create a new issue",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		in := engine.CreateIssueInput{
			Title: args[0], Type: flagType, ParentID: flagParent, Assignee: flagAssignee,
			Description: flagDescription, Notes: flagNotes, Status: flagStatus, Actor: actor,
		}
		if cmd.Flags().Changed("priority") {
			in.Priority = &flagPriority
		}
		issue, err := a.Engine.CreateIssue(rootCtx, in)
		if err != nil {
			fail(err)
		}
		emit(issue, func() { printOK("created %s: %s", issue.ID, issue.Title) })
	},
}

var getCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "issues",
	Short:   "Show a single issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issue, err := a.Engine.GetIssue(rootCtx, args[0])
		if err != nil {
			fail(err)
		}
		emit(issue, func() {
			fmt.Println(boldStyle.Render(issue.ID), "-", issue.Title)
			fmt.Println(mutedStyle.Render(fmt.Sprintf("type=%s status=%s assignee=%s priority=%d", issue.Type, issue.Status, issue.Assignee, issue.Priority)))
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "issues",
	Short:   "List issues, optionally filtered",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		filter := types.IssueFilter{}
		if flagStatus != "" {
			filter.Status = &flagStatus
		}
		if flagType != "" {
			filter.Type = &flagType
		}
		if flagAssignee != "" {
			filter.Assignee = &flagAssignee
		}
		issues, total, err := a.Engine.ListIssues(rootCtx, filter, types.PageRequest{})
		if err != nil {
			fail(err)
		}
		emit(struct {
			Issues []*types.Issue `json:"issues"`
			Total  int            `json:"total"`
		}{issues, total}, func() {
			for _, issue := range issues {
				fmt.Printf("%s  %-10s %s\n", accentStyle.Render(issue.ID), issue.Status, issue.Title)
			}
			fmt.Println(mutedStyle.Render(fmt.Sprintf("%d of %d", len(issues), total)))
		})
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: "issues",
	Short:   "Update an issue's fields",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		in := engine.UpdateIssueInput{Actor: actor, SkipTransitionCheck: flagSkipCheck}
		if cmd.Flags().Changed("status") {
			in.Status = &flagStatus
		}
		if cmd.Flags().Changed("priority") {
			in.Priority = &flagPriority
		}
		if cmd.Flags().Changed("title") {
			in.Title = &flagTitle
		}
		if cmd.Flags().Changed("assignee") {
			in.Assignee = &flagAssignee
		}
		if cmd.Flags().Changed("description") {
			in.Description = &flagDescription
		}
		issue, warnings, err := a.Engine.UpdateIssue(rootCtx, args[0], in)
		if err != nil {
			fail(err)
		}
		emit(struct {
			Issue    interface{} `json:"issue"`
			Warnings interface{} `json:"warnings,omitempty"`
		}{issue, warnings}, func() {
			printOK("updated %s", issue.ID)
			for _, w := range warnings {
				fmt.Println(mutedStyle.Render("warning: " + w.Message))
			}
		})
	},
}

var closeCmd = &cobra.Command{
	Use:     "close <id>",
	GroupID: "issues",
	Short:   "Close an issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issue, unblocked, err := a.Engine.CloseIssue(rootCtx, args[0], flagReason, actor)
		if err != nil {
			fail(err)
		}
		emit(struct {
			Issue          interface{} `json:"issue"`
			NewlyUnblocked interface{} `json:"newly_unblocked,omitempty"`
		}{issue, unblocked}, func() {
			printOK("closed %s", issue.ID)
			for _, u := range unblocked {
				fmt.Println(mutedStyle.Render("unblocked: " + u.ID))
			}
		})
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>",
	GroupID: "issues",
	Short:   "Reopen a closed issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issue, err := a.Engine.ReopenIssue(rootCtx, args[0], actor)
		if err != nil {
			fail(err)
		}
		emit(issue, func() { printOK("reopened %s", issue.ID) })
	},
}

var claimCmd = &cobra.Command{
	Use:     "claim <id>",
	GroupID: "issues",
	Short:   "Claim an issue for an assignee",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		assignee := flagAssignee
		if assignee == "" {
			assignee = actor
		}
		issue, err := a.Engine.ClaimIssue(rootCtx, args[0], assignee, actor)
		if err != nil {
			fail(err)
		}
		emit(issue, func() { printOK("claimed %s for %s", issue.ID, issue.Assignee) })
	},
}

var claimNextCmd = &cobra.Command{
	Use:     "claim-next",
	GroupID: "issues",
	Short:   "Claim the highest-priority ready issue",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		assignee := flagAssignee
		if assignee == "" {
			assignee = actor
		}
		result, err := a.Engine.ClaimNext(rootCtx, assignee, types.WorkFilter{Type: flagType}, actor)
		if err != nil {
			fail(err)
		}
		emit(result, func() {
			if result.Issue == nil {
				fmt.Println(mutedStyle.Render("nothing ready to claim"))
				return
			}
			printOK("claimed %s: %s", result.Issue.ID, result.Issue.Title)
		})
	},
}

var releaseCmd = &cobra.Command{
	Use:     "release <id>",
	GroupID: "issues",
	Short:   "Release a claimed issue back to the ready queue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		issue, err := a.Engine.ReleaseClaim(rootCtx, args[0], actor)
		if err != nil {
			fail(err)
		}
		emit(issue, func() { printOK("released %s", issue.ID) })
	},
}

var undoCmd = &cobra.Command{
	Use:     "undo <id>",
	GroupID: "issues",
	Short:   "Undo the most recent event on an issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		result, err := a.Engine.UndoLast(rootCtx, args[0], actor)
		if err != nil {
			fail(err)
		}
		emit(result, func() {
			if result.Undone {
				printOK("undid last event on %s", args[0])
			} else {
				fmt.Println(mutedStyle.Render("nothing to undo"))
			}
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		cmd.Flags().StringVar(&flagTitle, "title", "", "issue title")
		cmd.Flags().StringVar(&flagType, "type", "", "issue type")
		cmd.Flags().IntVar(&flagPriority, "priority", 0, "priority (0=highest)")
		cmd.Flags().StringVar(&flagParent, "parent", "", "parent issue id")
		cmd.Flags().StringVar(&flagAssignee, "assignee", "", "assignee")
		cmd.Flags().StringVar(&flagDescription, "description", "", "description")
		cmd.Flags().StringVar(&flagNotes, "notes", "", "notes")
		cmd.Flags().StringVar(&flagStatus, "status", "", "status")
	}
	updateCmd.Flags().BoolVar(&flagSkipCheck, "skip-transition-check", false, "bypass workflow transition validation")

	listCmd.Flags().StringVar(&flagStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&flagType, "type", "", "filter by type")
	listCmd.Flags().StringVar(&flagAssignee, "assignee", "", "filter by assignee")

	closeCmd.Flags().StringVar(&flagReason, "reason", "", "close reason")

	claimCmd.Flags().StringVar(&flagAssignee, "assignee", "", "assignee (defaults to --actor)")
	claimNextCmd.Flags().StringVar(&flagAssignee, "assignee", "", "assignee (defaults to --actor)")
	claimNextCmd.Flags().StringVar(&flagType, "type", "", "restrict to an issue type")
}
