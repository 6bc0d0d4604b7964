// Command filigree is the agent-native issue tracker's command-line
// front end: every subcommand opens the same engine the tool-call and
// HTTP adapters use, so scripting filigree from a shell and driving it
// from an agent produce identical state transitions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tachyon-beep/filigree/internal/bootstrap"
)

var (
	projectDir  string
	actor       string
	issuePrefix string
	jsonOutput  bool

	app *bootstrap.App

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "filigree",
	Short: "filigree - agent-native issue tracker",
	Long:  `Filigree tracks issues, their blocking dependencies, and hierarchical plans for agents and humans working the same backlog.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if !cmd.Flags().Changed("json") {
			jsonOutput = viper.GetBool("json")
		}
		if !cmd.Flags().Changed("actor") && actor == "" {
			actor = viper.GetString("actor")
		}
		if actor == "" {
			actor = "cli"
		}
	},
}

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "directory to locate the .filigree project in")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "identity recorded against every event this command creates")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of styled text")

	viper.SetEnvPrefix("FILIGREE")
	viper.AutomaticEnv()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".filigree"))
	}
	_ = viper.ReadInConfig()

	rootCmd.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	rootCmd.AddGroup(&cobra.Group{ID: "deps", Title: "Dependencies:"})
	rootCmd.AddGroup(&cobra.Group{ID: "plan", Title: "Planning:"})
	rootCmd.AddGroup(&cobra.Group{ID: "files", Title: "Files & Scans:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup:"})

	rootCmd.AddCommand(
		initCmd,
		createCmd, getCmd, listCmd, updateCmd, closeCmd, reopenCmd,
		claimCmd, claimNextCmd, releaseCmd, undoCmd,
		commentCmd, labelCmd,
		depAddCmd, depRemoveCmd, readyCmd, blockedCmd, criticalPathCmd,
		planCreateCmd, planGetCmd, flowMetricsCmd,
		fileRegisterCmd, fileListCmd, fileHotspotsCmd, fileTimelineCmd, scanResultsCmd, fileAssocCmd,
		serveCmd,
		contextCmd,
	)
}

// requireApp lazily opens the project rooted above projectDir, reusing
// the same handle across a command's lifetime. Commands needing a
// project call this first; init does not.
func requireApp() *bootstrap.App {
	if app != nil {
		return app
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := bootstrap.Open(rootCtx, projectDir, false, issuePrefix, logger)
	if err != nil {
		fatal(2, "%v", err)
	}
	app = a
	return app
}

// fatal prints err (respecting --json) and exits with code. Business and
// validation failures exit 1; usage failures (missing project, bad
// arguments resolved at runtime) exit 2.
func fatal(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		printJSON(map[string]string{"error": msg})
	} else {
		fmt.Fprintln(os.Stderr, failStyle.Render("error:"), msg)
	}
	if app != nil {
		app.Close(context.Background())
	}
	os.Exit(code)
}

// fail reports an engine error at the CLI boundary. Every error reaching
// this point already passed through ferrors' classification, so the
// exit-code contract (0/1/2) only needs to know it's a business failure,
// not which of the nine codes produced it.
func fail(err error) {
	fatal(1, "%v", err)
}

func main() {
	defer func() {
		if rootCancel != nil {
			rootCancel()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
	if app != nil {
		if err := app.Close(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "filigree: closing project:", err)
		}
	}
}
