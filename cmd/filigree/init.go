package main

import (
	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/project"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Create a new .filigree project in the target directory",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if issuePrefix == "" {
			issuePrefix = "fil"
		}
		layout, err := project.Init(rootCtx, projectDir, issuePrefix)
		if err != nil {
			fatal(1, "%v", err)
		}
		emit(layout, func() {
			printOK("initialized project at %s", layout.Root)
		})
	},
}

func init() {
	initCmd.Flags().StringVar(&issuePrefix, "prefix", "fil", "issue and file id prefix")
}
