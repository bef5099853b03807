// Package prometheus renders twofa engine counters in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [twofa.Engine] and exposes an
// [net/http.Handler] that renders every counter. Counter names are prefixed
// twofa_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
