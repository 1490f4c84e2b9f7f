package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
)

// GenerateStateDiagram produces a Mermaid state diagram of the registration
// cycle. When status is non-nil the current phase is highlighted and notes
// mark a queued request or a diverged registry.
func GenerateStateDiagram(status *coordinator.Status) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	sb.WriteString("    [*] --> idle\n")
	sb.WriteString("    idle --> removing: request with removals\n")
	sb.WriteString("    idle --> adding: request with additions only\n")
	sb.WriteString("    removing --> adding: removals confirmed\n")
	sb.WriteString("    removing --> idle: removals failed or nothing to add\n")
	sb.WriteString("    adding --> idle: additions resolved\n")

	if status == nil {
		return sb.String()
	}

	phase := string(status.Phase)
	if phase == "" {
		phase = string(domain.PhaseIdle)
	}
	if status.Queued != "" {
		fmt.Fprintf(&sb, "    note right of %s: queued %s\n", phase, status.Queued)
	}
	if status.Diverged {
		sb.WriteString("    note left of idle: registry diverged from monitor\n")
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light and dark themes
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000\n")
	fmt.Fprintf(&sb, "    class %s current\n", phase)
	return sb.String()
}

// GenerateRegions produces a Mermaid flowchart comparing the desired regions
// with the ones the monitor confirmed. Regions present on one side only are
// styled as pending or orphaned.
func GenerateRegions(desired, confirmed []domain.Region) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    registry((\"registry\"))\n")
	sb.WriteString("    monitor[[\"monitor\"]]\n")

	inDesired := make(map[string]domain.Region, len(desired))
	for _, r := range desired {
		inDesired[r.ID] = r
	}
	inConfirmed := make(map[string]domain.Region, len(confirmed))
	for _, r := range confirmed {
		inConfirmed[r.ID] = r
	}

	var pending, orphaned []string
	for _, r := range desired {
		safeID := sanitizeMermaidID(r.ID)
		fmt.Fprintf(&sb, "    %s[\"%s <br/> %.0f m\"]\n", safeID, r.ID, r.RadiusMeters)
		sb.WriteString(fmt.Sprintf("    registry --> %s\n", safeID))
		if c, ok := inConfirmed[r.ID]; ok && c == r {
			sb.WriteString(fmt.Sprintf("    %s --> monitor\n", safeID))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -.-> monitor\n", safeID))
			pending = append(pending, safeID)
		}
	}
	for _, r := range confirmed {
		if _, ok := inDesired[r.ID]; ok {
			continue
		}
		safeID := sanitizeMermaidID(r.ID)
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, r.ID)
		sb.WriteString(fmt.Sprintf("    %s --> monitor\n", safeID))
		orphaned = append(orphaned, safeID)
	}

	if len(pending) > 0 || len(orphaned) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef pending fill:#e1f5fe,stroke:#01579b,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef orphaned fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		for _, id := range pending {
			sb.WriteString(fmt.Sprintf("    class %s pending;\n", id))
		}
		for _, id := range orphaned {
			sb.WriteString(fmt.Sprintf("    class %s orphaned;\n", id))
		}
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "r_" + s
}
