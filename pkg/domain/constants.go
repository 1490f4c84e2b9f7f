package domain

import "time"

// Region construction defaults.
const (
	// DefaultRadiusMeters is one mile, the radius used for every landmark.
	DefaultRadiusMeters = 1609.0

	// DefaultExpiration is how long the monitoring service keeps a region alive.
	DefaultExpiration = 12 * time.Hour

	// DefaultDwellDelay is how long the device must stay inside before a DWELL fires.
	DefaultDwellDelay = 10 * time.Minute

	// DefaultResponsiveness is the notification responsiveness hint.
	DefaultResponsiveness = 5 * time.Second
)

// KeyRegionsAdded is the persistent flag recording whether regions are registered.
const KeyRegionsAdded = "geofences_added"

// Mutation reasons.
const (
	ReasonDwell      = "dwell"
	ReasonRegister   = "register"
	ReasonUnregister = "unregister"
	ReasonReconcile  = "reconcile"
)
