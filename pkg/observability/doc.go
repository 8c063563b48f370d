/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log records.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.MergeHooks(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
