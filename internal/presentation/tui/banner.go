package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Teal to green, matching the ENTER colour of the console sink
	lines := []struct {
		text, color string
	}{
		{"   __ _  ___  ___  / _| ___ _ __   ___ ___ ", "#2dd4bf"},
		{"  / _` |/ _ \\/ _ \\| |_ / _ \\ '_ \\ / __/ _ \\", "#34d399"},
		{" | (_| |  __/ (_) |  _|  __/ | | | (_|  __/", "#4ade80"},
		{"  \\__, |\\___|\\___/|_|  \\___|_| |_|\\___\\___|", "#a3e635"},
		{"  |___/", "#facc15"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
