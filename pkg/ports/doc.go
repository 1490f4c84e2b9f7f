/*
Package ports defines the driven ports (interfaces) of the geofence engine.

These interfaces decouple the rotation state machine from the location platform,
the landmark catalogue, the presentation layer and persistence.

# Key Interfaces

  - Monitor: the location monitoring service that registers and removes regions.
  - RegionSource: the canonical landmark list regions are (re)built from.
  - DisplaySink: receives user-facing notifications.
  - RetirementListener: is told which region a DWELL rotation retired.
  - FlagStore: persists the "regions are registered" flag across restarts.
*/
package ports
