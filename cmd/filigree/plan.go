package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/types"
)

var flagPlanFile string
var flagWindowDays int

var planCreateCmd = &cobra.Command{
	Use:     "plan-create",
	GroupID: "plan",
	Short:   "Create a milestone/phase/step plan from a JSON payload",
	Long:    "Reads a types.PlanInput JSON document (--file, or stdin with -) describing a milestone, its phases, and their steps, and materializes the whole tree as issues, all or nothing: issues are created one at a time, and if any item fails the issues already created are deleted again.",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		data, err := readPlanInput(flagPlanFile)
		if err != nil {
			fatal(2, "%v", err)
		}
		var in types.PlanInput
		if err := json.Unmarshal(data, &in); err != nil {
			fatal(2, "parsing plan payload: %v", err)
		}
		plan, err := a.Engine.CreatePlan(rootCtx, in, actor)
		if err != nil {
			fail(err)
		}
		emit(plan, func() {
			printOK("created plan %s: %s (%d phases)", plan.MilestoneID, plan.Title, len(plan.Phases))
		})
	},
}

var planGetCmd = &cobra.Command{
	Use:     "plan-show <milestone-id>",
	GroupID: "plan",
	Short:   "Show a plan's phase/step progress",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		plan, err := a.Engine.GetPlan(rootCtx, args[0])
		if err != nil {
			fail(err)
		}
		emit(plan, func() {
			fmt.Println(boldStyle.Render(plan.Title), fmt.Sprintf("(%.0f%%)", plan.ProgressPct))
			for _, p := range plan.Phases {
				fmt.Printf("  %s  %d/%d complete, %d ready\n", p.Title, p.Completed, p.Total, p.Ready)
			}
		})
	},
}

var flowMetricsCmd = &cobra.Command{
	Use:     "flow-metrics",
	GroupID: "plan",
	Short:   "Compute cycle-time, lead-time, and throughput over a trailing window",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		metrics, err := a.Engine.ComputeFlowMetrics(rootCtx, flagWindowDays)
		if err != nil {
			fail(err)
		}
		emit(metrics, func() {
			fmt.Printf("cycle time (mean): %.1fh\n", metrics.CycleTimeMean)
			fmt.Printf("lead time (mean):  %.1fh\n", metrics.LeadTimeMean)
		})
	},
}

func readPlanInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return readAllStdin()
	}
	return os.ReadFile(path)
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no --file given and stdin is a terminal")
	}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}

func init() {
	planCreateCmd.Flags().StringVar(&flagPlanFile, "file", "", "path to a plan JSON document (default: stdin)")
	flowMetricsCmd.Flags().IntVar(&flagWindowDays, "window-days", 30, "trailing window size in days")
}
