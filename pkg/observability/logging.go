package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/geofence/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write every event to logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionRouted) {
			if e.Err != nil {
				logger.DebugContext(ctx, "transition_rejected", "kind", e.Event.Kind, "ids", e.Event.RegionIDs, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "transition", "kind", e.Event.Kind, "ids", e.Event.RegionIDs)
		},
		OnMutationIssued: func(ctx context.Context, e *domain.MutationEvent) {
			logger.DebugContext(ctx, "mutation_issued",
				"mutation_id", e.MutationID,
				"phase", e.Phase,
				"removals", e.Removals,
				"additions", e.Additions,
			)
		},
		OnMutationResolved: func(ctx context.Context, e *domain.MutationEvent) {
			logger.DebugContext(ctx, "mutation_resolved", "mutation_id", e.MutationID, "phase", e.Phase, "ok", e.Err == nil)
		},
		OnMutationSuperseded: func(ctx context.Context, e *domain.MutationEvent) {
			logger.InfoContext(ctx, "mutation_superseded", "mutation_id", e.MutationID, "reason", e.Reason)
		},
		OnRetired: func(ctx context.Context, e *domain.RetiredEvent) {
			logger.InfoContext(ctx, "region_retired", "region_id", e.RegionID)
		},
	}
}
