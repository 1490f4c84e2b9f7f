/*
Package geofence keeps a rotating set of monitored regions in step with a
location monitoring service.

Transition events (ENTER, EXIT, DWELL) are routed one at a time. ENTER and EXIT
only produce a notification. DWELL retires the first triggered region and asks
the coordinator to remove it and then re-register the landmark set. The
coordinator keeps at most one mutation in flight; a request made while busy
waits in a single slot and is replaced by any newer request.

# Architecture

  - pkg/domain: regions, events, mutations, errors and lifecycle hooks.
  - pkg/ports: the Monitor, RegionSource, DisplaySink, RetirementListener and FlagStore interfaces.
  - pkg/registry: the desired region set.
  - pkg/router: classifies events and builds rotations.
  - pkg/coordinator: the Idle → Removing → Adding state machine and reconciliation.
  - pkg/notify: notification text and identifiers.
  - pkg/adapters: memory, file and redis flag stores, a simulated monitor,
    YAML landmarks, JSON-lines streams, console output, HTTP and MCP.

# Usage

	mon := sim.New()
	svc, err := geofence.New(mon, geofence.WithSink(console.New(os.Stdout)))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := svc.Register(ctx); err != nil {
		log.Fatal(err)
	}
	for _, ev := range mon.Move(ctx, domain.Coordinate{Latitude: 37.62, Longitude: -122.38}) {
		_ = svc.Handle(ctx, ev)
	}
*/
package geofence
