// Package console renders notifications on a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/geofence/pkg/domain"
	"github.com/muesli/termenv"
)

// Sink implements ports.DisplaySink and ports.RetirementListener for a terminal.
// Colours follow the output's detected profile; a plain io.Writer gets none.
type Sink struct {
	mu  sync.Mutex
	out *termenv.Output
}

// New creates a sink writing to w.
func New(w io.Writer, opts ...termenv.OutputOption) *Sink {
	return &Sink{out: termenv.NewOutput(w, opts...)}
}

func (s *Sink) color(k domain.TransitionKind) termenv.Color {
	switch k {
	case domain.TransitionEnter:
		return s.out.Color("#22c55e")
	case domain.TransitionExit:
		return s.out.Color("#eab308")
	case domain.TransitionDwell:
		return s.out.Color("#ef4444")
	default:
		return s.out.Color("#9ca3af")
	}
}

// Display prints the title, coloured by kind, followed by the indented body.
func (s *Sink) Display(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := s.out.String(n.Title).Foreground(s.color(n.Kind))
	if n.Dwell {
		title = title.Bold()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%03d] %s\n", n.ID, title)
	for _, line := range strings.Split(n.Body, "\n") {
		if line != "" {
			fmt.Fprintf(&b, "      %s\n", s.out.String(line).Faint())
		}
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}

// Retired prints a one-line rotation notice.
func (s *Sink) Retired(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "      %s\n", s.out.String("retired "+id).Italic())
}
