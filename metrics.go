package main

import "github.com/prometheus/client_golang/prometheus"

var (
	macroEstimatesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quickcheck_api",
		Name:      "macro_estimates_total",
		Help:      "Meal macro estimation requests grouped by outcome.",
	}, []string{"outcome"})

	checkoutSessionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quickcheck_api",
		Name:      "checkout_sessions_total",
		Help:      "Checkout session requests grouped by plan and outcome.",
	}, []string{"plan", "outcome"})

	storeFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quickcheck_api",
		Name:      "store_failures_total",
		Help:      "Document store reads and writes that failed and were served from memory.",
	}, []string{"op"})

	documentWritesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quickcheck_api",
		Name:      "document_writes_total",
		Help:      "Quick-check documents written after a mutation.",
	})
)

func init() {
	prometheus.MustRegister(macroEstimatesCounter, checkoutSessionsCounter, storeFailuresCounter, documentWritesCounter)
}

func recordMacroEstimate(outcome string) {
	macroEstimatesCounter.WithLabelValues(outcome).Inc()
}

func recordCheckoutSession(plan, outcome string) {
	checkoutSessionsCounter.WithLabelValues(plan, outcome).Inc()
}

func recordStoreFailure(op string) {
	storeFailuresCounter.WithLabelValues(op).Inc()
}
