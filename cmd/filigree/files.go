package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/types"
)

var (
	flagLanguage   string
	flagFileType   string
	flagScanSource string
	flagScanRunID  string
	flagFindings   string
	flagAssocType  string
)

var fileRegisterCmd = &cobra.Command{
	Use:     "file-register <path>",
	GroupID: "files",
	Short:   "Register a source file for scan-finding and hotspot tracking",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		file, err := a.Engine.RegisterFile(rootCtx, args[0], flagLanguage, flagFileType, nil)
		if err != nil {
			fail(err)
		}
		emit(file, func() { printOK("registered %s as %s", file.Path, file.ID) })
	},
}

var fileListCmd = &cobra.Command{
	Use:     "file-list",
	GroupID: "files",
	Short:   "List tracked files, optionally filtered",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		summaries, total, err := a.Engine.ListFilesPaginated(rootCtx, types.FileFilter{
			Language: flagLanguage,
		}, types.PageRequest{})
		if err != nil {
			fail(err)
		}
		emit(struct {
			Files []types.FileSummary `json:"files"`
			Total int                 `json:"total"`
		}{summaries, total}, func() {
			for _, f := range summaries {
				fmt.Printf("%s  %s\n", accentStyle.Render(f.File.ID), f.File.Path)
			}
		})
	},
}

var fileHotspotsCmd = &cobra.Command{
	Use:     "file-hotspots",
	GroupID: "files",
	Short:   "List files with the most outstanding scan findings",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		hotspots, err := a.Engine.GetFileHotspots(rootCtx, 20)
		if err != nil {
			fail(err)
		}
		emit(hotspots, func() {
			for _, h := range hotspots {
				fmt.Printf("%s  score %d\n", accentStyle.Render(h.File.Path), h.Score)
			}
		})
	},
}

var fileTimelineCmd = &cobra.Command{
	Use:     "file-timeline <file-id>",
	GroupID: "files",
	Short:   "Show the chronological event history for a tracked file",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		timeline, err := a.Engine.GetFileTimeline(rootCtx, args[0], "", 50, 0)
		if err != nil {
			fail(err)
		}
		emit(timeline, func() {
			for _, entry := range timeline {
				fmt.Println(mutedStyle.Render(entry.CreatedAt.Format("2006-01-02 15:04:05")), entry.Type)
			}
		})
	},
}

var scanResultsCmd = &cobra.Command{
	Use:     "scan-results <file-id>",
	GroupID: "files",
	Short:   "Ingest scan findings for a tracked file from a JSON array",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		data, err := os.ReadFile(flagFindings)
		if err != nil {
			fatal(2, "reading findings file: %v", err)
		}
		var findings []*types.ScanFinding
		if err := json.Unmarshal(data, &findings); err != nil {
			fatal(2, "parsing findings: %v", err)
		}
		if err := a.Engine.ProcessScanResults(rootCtx, args[0], flagScanSource, flagScanRunID, findings); err != nil {
			fail(err)
		}
		emit(struct {
			Ingested int `json:"ingested"`
		}{len(findings)}, func() { printOK("ingested %d findings for %s", len(findings), args[0]) })
	},
}

var fileAssocCmd = &cobra.Command{
	Use:     "file-assoc <file-id> <issue-id>",
	GroupID: "files",
	Short:   "Associate a tracked file with an issue",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		assoc, err := a.Engine.AddFileAssociation(rootCtx, args[0], args[1], types.AssocType(flagAssocType), actor)
		if err != nil {
			fail(err)
		}
		emit(assoc, func() { printOK("associated %s with %s (%s)", args[0], args[1], flagAssocType) })
	},
}

func init() {
	fileRegisterCmd.Flags().StringVar(&flagLanguage, "language", "", "source language")
	fileRegisterCmd.Flags().StringVar(&flagFileType, "file-type", "", "file type classification")
	fileListCmd.Flags().StringVar(&flagLanguage, "language", "", "filter by language")

	scanResultsCmd.Flags().StringVar(&flagScanSource, "source", "", "scan source identifier")
	scanResultsCmd.Flags().StringVar(&flagScanRunID, "run-id", "", "scan run id")
	scanResultsCmd.Flags().StringVar(&flagFindings, "findings", "", "path to a JSON array of findings")

	fileAssocCmd.Flags().StringVar(&flagAssocType, "type", "task_for", "association type")
}
