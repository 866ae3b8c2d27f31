// Package metric provides Prometheus metrics for the Annalist core engine.
//
// A MetricsRegistry owns a private Prometheus registry pre-loaded with the
// core engine metrics (entity store operations, registry cache activity,
// context generation) plus Go runtime collectors. Components register any
// additional collectors through the MetricsRegistrar interface, which
// rejects duplicate registrations with a classified error.
//
// The registry is exposed over HTTP with Handler, which wraps promhttp for
// the host process to mount wherever it serves operational endpoints.
package metric
