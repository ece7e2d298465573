// Package telemetry provides logging, metrics and tracing for froyo-fgs.
//
// Logging uses zerolog. The CLI builds one Logger from LoggingConfig and
// hands its Zerolog() value to the reconcilers; tests use NopLogger.
//
// Metrics use a private Prometheus registry. Counters cover runs,
// per-resource reconciliation outcomes and FunctionGraph API calls. A run
// can dump the registry to a node exporter textfile with WriteTextfile, and
// watch mode can serve it over HTTP with ServeMetrics. A disabled Metrics
// value accepts every call and records nothing.
//
// Tracing uses OpenTelemetry with a stdout or OTLP gRPC exporter. A run
// produces one root span, one child span per reconciled resource and one
// grandchild span per remote call:
//
//	run.deploy
//	├── reconcile.function
//	│   ├── fgs.get-function
//	│   └── fgs.update-function
//	└── reconcile.trigger
//	    ├── fgs.list-triggers
//	    └── fgs.create-trigger
package telemetry
