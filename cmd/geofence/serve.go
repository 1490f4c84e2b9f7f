package main

import (
	"os"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/internal/cli"
	"github.com/aretw0/geofence/internal/presentation/tui"
	"github.com/aretw0/geofence/pkg/adapters/console"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the service with the simulated monitor and exposes it over HTTP:
POST /events, /register, /unregister and /reconcile; GET /regions, /status,
/stream (SSE), /diagram and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		var opts []cli.BuildOption
		if isTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, geofence.Version)
			c := console.New(os.Stdout)
			opts = append(opts, cli.WithDisplay(c), cli.WithRetirementListener(c))
		}

		s, err := start(sigCtx, cmd, opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		err = cli.Serve(sigCtx, s.Runtime, os.Stdout)
		if sig := sigCtx.Signal(); sig != nil {
			s.Logger.Info("stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
	serveCmd.Flags().Duration("reconcile-interval", 0, "How often to reconcile a diverged registry (default 30s)")
	bind(serveCmd.Flags(), "listen", "listen")
	bind(serveCmd.Flags(), "reconcile_interval", "reconcile-interval")
}
