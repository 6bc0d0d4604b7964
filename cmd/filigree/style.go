package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

// printJSON marshals v indented and writes it to stdout. Used for every
// command when --json is set.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "filigree: encoding output:", err)
	}
}

// printOK renders a one-line styled confirmation for text mode.
func printOK(format string, args ...interface{}) {
	fmt.Println(passStyle.Render("✓"), fmt.Sprintf(format, args...))
}

// emit writes v as JSON if --json was requested, otherwise calls text
// for a styled rendering of the same result.
func emit(v interface{}, text func()) {
	if jsonOutput {
		printJSON(v)
		return
	}
	text()
}
