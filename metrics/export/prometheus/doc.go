// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewExporter] wraps an [authguard.Engine] and exposes an [net/http.Handler]
// serving every counter and histogram. Counter names carry the
// authguard_*_total prefix; the single histogram is
// authguard_verify_latency_seconds.
//
// The package never registers anything in a global Prometheus registry;
// callers mount the Handler where they want it. It reads snapshots and never
// mutates engine state.
package prometheus
