package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:     "context",
	GroupID: "setup",
	Short:   "Render the project's context.md snapshot",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		raw, err := os.ReadFile(a.Layout.ContextPath)
		if err != nil {
			fatal(1, "reading context.md: %v", err)
		}
		if jsonOutput {
			printJSON(struct {
				Markdown string `json:"markdown"`
			}{string(raw)})
			return
		}
		rendered, err := glamour.Render(string(raw), "dark")
		if err != nil {
			fmt.Print(string(raw))
			return
		}
		fmt.Print(rendered)
	},
}
