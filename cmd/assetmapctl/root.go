package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"assetmap/internal/assetclient"
	"assetmap/internal/logging"
)

type rootOptions struct {
	server   string
	logLevel string
}

func defaultServer() string {
	if v := os.Getenv("ASSETMAP_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "assetmapctl",
		Short: "Command-line client for the assetmap server",
		Long: `assetmapctl queries and feeds a running assetmap server.

Available subcommands:
  markers - Load the marker layer for a filter and print it
  import  - Upload a CSV file of assets`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer(), "assetmap base URL (env ASSETMAP_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error, off)")

	root.AddCommand(newMarkersCmd(opts), newImportCmd(opts))
	return root
}

func (o *rootOptions) logger() zerolog.Logger {
	return logging.NewConsole(o.logLevel)
}

func (o *rootOptions) client() *assetclient.Client {
	return assetclient.New(o.server, assetclient.Options{Log: o.logger()})
}
