// Package prometheus renders authcore metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] takes an [authcore.Engine] and serves an
// [http.Handler]. Counters are named authcore_*_total; the single
// histogram is authcore_authenticate_latency_seconds. Nothing is
// registered globally; callers mount the handler.
package prometheus
