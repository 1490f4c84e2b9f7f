/*
Package observability turns the service's lifecycle hooks into metrics, logs
and traces.

NewMetrics registers Prometheus collectors and exposes them as hooks,
LoggingHooks writes the same events to a structured logger, and InitTracing
installs the OpenTelemetry tracer provider used by Service.Handle spans.

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	svc, _ := geofence.New(monitor,
		geofence.WithLifecycleHooks(m.Hooks()),
		geofence.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)
*/
package observability
