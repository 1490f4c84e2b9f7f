package main

import (
	"io"
	"os"

	"github.com/aretw0/geofence/internal/cli"
	"github.com/aretw0/geofence/pkg/adapters/console"
	"github.com/aretw0/geofence/pkg/adapters/stream"
	"github.com/aretw0/geofence/pkg/ports"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [events.jsonl]",
	Short: "Route transition events read as JSON lines",
	Long: `Registers the landmarks, then routes every transition event read from the
file (or stdin) in order. Notifications are printed in colour on a terminal and
as JSON lines otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		var in io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		var sink ports.DisplaySink
		var opts []cli.BuildOption
		if asJSON || !isTerminal(os.Stdout) {
			sink = stream.NewSink(os.Stdout)
		} else {
			c := console.New(os.Stdout)
			sink = c
			opts = append(opts, cli.WithRetirementListener(c))
		}
		opts = append(opts, cli.WithDisplay(sink))

		s, err := start(sigCtx, cmd, opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		noRegister, _ := cmd.Flags().GetBool("no-register")
		return cli.Replay(sigCtx, s.Runtime, in, !noRegister)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("json", false, "Print notifications as JSON lines even on a terminal")
	replayCmd.Flags().Bool("no-register", false, "Do not register the landmarks before replaying")
}
