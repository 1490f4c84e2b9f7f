package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/geofence/internal/presentation/tui"
)

// PrintLandmarks writes the landmark catalogue to w. Markdown is rendered
// through glamour when styled is set and printed as is otherwise.
func PrintLandmarks(ctx context.Context, rt *Runtime, w io.Writer, styled bool, width int) error {
	lm, err := rt.Service.Landmarks(ctx)
	if err != nil {
		return fmt.Errorf("load landmarks: %w", err)
	}
	md := tui.LandmarksMarkdown(lm, rt.Template)
	if styled {
		out, err := tui.NewRenderer(width)(md)
		if err != nil {
			rt.Logger.Warn("markdown rendering failed, printing raw", "error", err)
		} else {
			md = out
		}
	}
	_, err = io.WriteString(w, md)
	return err
}
