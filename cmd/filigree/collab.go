package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagCommentText string

var commentCmd = &cobra.Command{
	Use:     "comment <id> <text>",
	GroupID: "issues",
	Short:   "Add a comment to an issue",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		comment, err := a.Engine.AddComment(rootCtx, args[0], actor, args[1])
		if err != nil {
			fail(err)
		}
		emit(comment, func() { printOK("commented on %s", args[0]) })
	},
}

var labelCmd = &cobra.Command{
	Use:     "label <id> <add|remove> <label>",
	GroupID: "issues",
	Short:   "Add or remove a label on an issue",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		id, action, label := args[0], args[1], args[2]
		switch action {
		case "add":
			if err := a.Engine.AddLabel(rootCtx, id, label, actor); err != nil {
				fail(err)
			}
		case "remove":
			if err := a.Engine.RemoveLabel(rootCtx, id, label, actor); err != nil {
				fail(err)
			}
		default:
			fatal(2, "unknown label action %q (want add or remove)", action)
		}
		emit(struct {
			OK bool `json:"ok"`
		}{true}, func() { fmt.Println(passStyle.Render("✓"), action, "label", label, "on", id) })
	},
}
