// Package metrics defines the Prometheus instrumentation for the intake
// pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TurnsProcessed counts conversational turns handled by the dialog
	// engine, labelled by the state they arrived in.
	TurnsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadresq_turns_processed_total",
			Help: "Total number of conversational turns processed",
		},
		[]string{"state"},
	)

	// IncidentsCreated counts finalized incidents by type.
	IncidentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadresq_incidents_created_total",
			Help: "Total number of incidents created",
		},
		[]string{"type"},
	)

	// UnclassifiedUtterances counts utterances no intent rule matched.
	UnclassifiedUtterances = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadresq_unclassified_utterances_total",
			Help: "Total number of utterances that could not be classified",
		},
	)

	// GeoFailures counts geocoding and device-geolocation failures.
	GeoFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadresq_geo_failures_total",
			Help: "Total number of geocoding or geolocation failures",
		},
	)
)

func init() {
	prometheus.MustRegister(TurnsProcessed)
	prometheus.MustRegister(IncidentsCreated)
	prometheus.MustRegister(UnclassifiedUtterances)
	prometheus.MustRegister(GeoFailures)
}
