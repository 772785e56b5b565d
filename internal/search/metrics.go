package search

import "github.com/prometheus/client_golang/prometheus"

var (
	indexErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_index_errors_total",
			Help: "Search index operations that failed",
		},
		[]string{"op"},
	)
	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_fallbacks_total",
			Help: "Queries answered by the relational fallback instead of the index",
		},
		[]string{"view"},
	)
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{indexErrors, fallbacks}
}

// RecordFallback counts a query served by the relational path.
func RecordFallback(view string) {
	if view == "" {
		view = "global"
	}
	fallbacks.WithLabelValues(view).Inc()
}
