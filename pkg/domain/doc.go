/*
Package domain contains the core domain models for the geofence rotation engine.

It defines the value types that flow through the state machine: Regions and the
Coordinates they are centred on, the TransitionEvents reported by a monitoring
service, and the Mutations the coordinator submits back to it. This package is
kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Region: an immutable circular area with an identifier and trigger settings.
  - TransitionEvent: an ENTER, EXIT or DWELL report for one or more regions.
  - Mutation: an ordered pair of removals and additions sent to the monitor.
  - Notification: the display summary produced for a transition.
  - LifecycleHooks: callbacks for observability (metrics, tracing, listeners).
*/
package domain
