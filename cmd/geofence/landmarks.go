package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/geofence/internal/cli"
)

var landmarksCmd = &cobra.Command{
	Use:   "landmarks",
	Short: "Show the landmark catalogue and region settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := start(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		styled := isTerminal(os.Stdout)
		width := 0
		if styled {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
		}
		return cli.PrintLandmarks(cmd.Context(), s.Runtime, os.Stdout, styled, width)
	},
}

func init() {
	rootCmd.AddCommand(landmarksCmd)
}
