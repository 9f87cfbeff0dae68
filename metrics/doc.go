// Package metrics exports session statistics as Prometheus metrics.
//
// Collectors read the session's latest stats snapshot at scrape time, so
// registering one costs nothing between scrapes:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewReceiverCollector(recv, prometheus.Labels{"stream": "cam1"}))
//
// Nothing is reported until the session has received its first stats
// callback.
package metrics
