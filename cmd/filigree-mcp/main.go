// Command filigree-mcp serves Filigree's tool-call protocol over stdio,
// for agent clients that drive issues through a tool registry rather
// than shelling out to the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tachyon-beep/filigree/internal/adapters/toolcall"
	"github.com/tachyon-beep/filigree/internal/bootstrap"
)

var version = "dev"

func main() {
	dbDir := flag.String("dir", ".", "directory to locate (or initialize) the .filigree project in")
	issuePrefix := flag.String("prefix", "fil", "issue id prefix used if a new project is initialized")
	initProject := flag.Bool("init", false, "initialize a new .filigree project if one isn't found")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.Open(ctx, *dbDir, *initProject, *issuePrefix, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "filigree-mcp:", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	registry := toolcall.NewRegistry()
	toolcall.RegisterAll(registry, app.Engine)

	server := toolcall.NewServer(registry, toolcall.ServerInfo{Name: "filigree", Version: version}, logger)
	if err := server.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "filigree-mcp:", err)
		os.Exit(1)
	}
}
