package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the reconciliation engine. Registered on the
// default registry so the /metrics endpoint picks them up.
var (
	PriceFeedFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_price_feed_fallbacks_total",
		Help: "Times the live price feed failed and a static fallback price was served.",
	}, []string{"asset"})

	ExplorerPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_explorer_polls_total",
		Help: "Explorer polling ticks executed by the watcher.",
	}, []string{"network"})

	ExplorerPollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_explorer_poll_errors_total",
		Help: "Explorer polling ticks that failed with a transient error.",
	}, []string{"network"})

	WatcherMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_watcher_matches_total",
		Help: "On-chain transfers matched to a payment intent.",
	}, []string{"asset"})

	IntentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_intent_transitions_total",
		Help: "Payment intent state transitions by resulting status.",
	}, []string{"status"})
)
