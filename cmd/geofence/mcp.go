package main

import (
	"github.com/aretw0/geofence/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the service as MCP tools over stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout with the tools
inject_transition, list_regions, coordinator_status, register_landmarks and
unregister_all. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		s, err := start(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return cli.ServeMCP(sigCtx, s.Runtime)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
