package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tachyon-beep/filigree/internal/adapters/httpapi"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "setup",
	Short:   "Serve the REST API and dashboard over HTTP",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := requireApp()
		server := httpapi.NewServer(a.Engine, a.Logger)
		fmt.Println(accentStyle.Render("filigree"), "listening on", flagServeAddr)
		if err := http.ListenAndServe(flagServeAddr, server.Handler()); err != nil {
			fatal(1, "%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":8420", "listen address")
}
