package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/geofence"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of geofence",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("geofence version %s\n", strings.TrimSpace(geofence.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
