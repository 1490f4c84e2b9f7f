package main

import (
	"fmt"

	"github.com/aretw0/geofence/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd prints the registration cycle as a Mermaid state diagram.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the registration state machine",
	Long:  `Outputs a Mermaid diagram (stateDiagram-v2) of the idle, removing and adding phases. A running server serves the live version at GET /diagram.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(graph.GenerateStateDiagram(nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
