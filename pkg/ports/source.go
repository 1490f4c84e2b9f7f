package ports

import (
	"context"

	"github.com/aretw0/geofence/pkg/domain"
)

// RegionSource supplies the canonical landmark list used to (re)build regions.
type RegionSource interface {
	AllLandmarks(ctx context.Context) (domain.Landmarks, error)
}

// DisplaySink accepts user-facing notifications.
type DisplaySink interface {
	Display(ctx context.Context, n domain.Notification) error
}

// RetirementListener is told which region a DWELL rotation retired.
type RetirementListener interface {
	Retired(ctx context.Context, regionID string)
}

// RetirementFunc adapts a function to RetirementListener.
type RetirementFunc func(ctx context.Context, regionID string)

// Retired calls f.
func (f RetirementFunc) Retired(ctx context.Context, regionID string) {
	f(ctx, regionID)
}

// FlagStore persists boolean flags across process restarts.
type FlagStore interface {
	// GetFlag returns the stored value, or false if the key was never set.
	GetFlag(ctx context.Context, key string) (bool, error)

	// SetFlag stores the value for key.
	SetFlag(ctx context.Context, key string, value bool) error
}
