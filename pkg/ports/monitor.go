package ports

import (
	"context"

	"github.com/aretw0/geofence/pkg/domain"
)

// ResultFunc receives the asynchronous outcome of a monitor call.
type ResultFunc func(err error)

// Monitor is the external location monitoring service.
//
// Each Submit call either returns an error synchronously (the call was refused,
// e.g. domain.ErrPermissionDenied) and never invokes done, or returns nil and
// later invokes done exactly once, possibly from another goroutine.
type Monitor interface {
	// SubmitRemovals stops monitoring the given region identifiers.
	SubmitRemovals(ctx context.Context, ids []string, done ResultFunc) error

	// SubmitAdditions starts monitoring the given regions.
	// Adding a region whose ID is already monitored replaces it.
	SubmitAdditions(ctx context.Context, regions []domain.Region, done ResultFunc) error
}

// Readiness is implemented by monitors that hold a connection which may not be
// established yet. Calls are only issued once Ready reports true.
type Readiness interface {
	Ready() bool
}
