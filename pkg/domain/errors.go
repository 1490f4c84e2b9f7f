package domain

import (
	"errors"
	"fmt"
)

// ErrMonitoringService is returned when the monitoring service reports an error code
// instead of a transition. It is terminal for the event that carried it.
var ErrMonitoringService = errors.New("monitoring service error")

// ErrPermissionDenied is returned when the monitoring service refuses a call for lack of authorization.
var ErrPermissionDenied = errors.New("permission denied")

// ErrRemovalFailed marks a mutation abandoned because its removal step failed.
var ErrRemovalFailed = errors.New("region removal failed")

// ErrAdditionFailed marks a mutation whose addition step failed after the removal succeeded.
var ErrAdditionFailed = errors.New("region addition failed")

// ErrUnknownTransition is returned for transition kinds other than ENTER, EXIT and DWELL.
var ErrUnknownTransition = errors.New("unknown transition kind")

// ErrEmptyTrigger is returned when a transition event names no regions.
var ErrEmptyTrigger = errors.New("transition event has no triggering regions")

// ErrInvalidRegion is returned when a region cannot be constructed from its parameters.
var ErrInvalidRegion = errors.New("invalid region")

// ErrNotReady is returned when the monitoring service connection is not established.
var ErrNotReady = errors.New("monitoring service not ready")

// ErrResolutionTimeout is reported when a submitted step is not resolved in time.
var ErrResolutionTimeout = errors.New("monitoring service did not resolve in time")

// ErrorCode is a status code reported by the monitoring service.
type ErrorCode int

const (
	// ErrorGeofenceNotAvailable means the service cannot monitor regions, usually
	// because location access is turned off.
	ErrorGeofenceNotAvailable ErrorCode = 1000
	// ErrorTooManyGeofences means the per-application region limit was reached.
	ErrorTooManyGeofences ErrorCode = 1001
	// ErrorTooManyPendingIntents means too many callbacks are registered with the service.
	ErrorTooManyPendingIntents ErrorCode = 1002
)

// Message returns a human readable description of the code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorGeofenceNotAvailable:
		return "Geofence service is not available now"
	case ErrorTooManyGeofences:
		return "Your app has registered too many geofences"
	case ErrorTooManyPendingIntents:
		return "You have provided too many PendingIntents to the addGeofences() call"
	default:
		return "Unknown error: the Geofence service is not available now"
	}
}

// MonitorError carries an ErrorCode reported by the monitoring service.
type MonitorError struct {
	Code ErrorCode
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("%s (code %d): %s", ErrMonitoringService, int(e.Code), e.Code.Message())
}

// Unwrap allows errors.Is(err, ErrMonitoringService).
func (e *MonitorError) Unwrap() error {
	return ErrMonitoringService
}
