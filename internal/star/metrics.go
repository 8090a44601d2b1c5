package star

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlane_star_commands_total",
			Help: "Commands processed by the star router's pump, by kind.",
		},
		[]string{"command"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starlane_star_queue_depth",
			Help: "Commands currently queued awaiting the router's pump.",
		},
	)

	wrangleAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlane_star_wrangle_attempts_total",
			Help: "Wrangle discovery attempts, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	searchesInitiatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starlane_star_searches_initiated_total",
			Help: "Star searches this router has initiated to resolve an unknown route.",
		},
	)
)

func commandLabel(c command) string {
	switch c.(type) {
	case cmdFromHyperway:
		return "from_hyperway"
	case cmdToHyperway:
		return "to_hyperway"
	case cmdToGravity:
		return "to_gravity"
	case cmdShard:
		return "shard"
	case cmdWrangle:
		return "wrangle"
	default:
		return "unknown"
	}
}
