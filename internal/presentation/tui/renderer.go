package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/geofence/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Width 0 keeps glamour's default word wrap.
func NewRenderer(width int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)

	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// LandmarksMarkdown renders the landmark catalogue and the region settings
// applied to each landmark as a markdown table.
func LandmarksMarkdown(landmarks domain.Landmarks, t domain.RegionTemplate) string {
	ids := make([]string, 0, len(landmarks))
	for id := range landmarks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Landmarks (%d)\n\n", len(ids))
	sb.WriteString("| ID | Latitude | Longitude |\n")
	sb.WriteString("|----|---------:|----------:|\n")
	for _, id := range ids {
		c := landmarks[id]
		fmt.Fprintf(&sb, "| %s | %.6f | %.6f |\n", id, c.Latitude, c.Longitude)
	}

	sb.WriteString("\n## Region settings\n\n")
	fmt.Fprintf(&sb, "- **Radius**: %.0f m\n", t.RadiusMeters)
	fmt.Fprintf(&sb, "- **Expiration**: %s\n", t.Expiration)
	fmt.Fprintf(&sb, "- **Transitions**: %s\n", t.Transitions)
	fmt.Fprintf(&sb, "- **Dwell delay**: %s\n", t.DwellDelay)
	fmt.Fprintf(&sb, "- **Responsiveness**: %s\n", t.Responsiveness)
	return sb.String()
}
