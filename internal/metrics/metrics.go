// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_messages_total",
			Help: "Messages attempted by campaign runs, by outcome",
		},
		[]string{"outcome"}, // "sent", "failed"
	)

	CheckpointErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_checkpoint_errors_total",
			Help: "Progress checkpoints that could not be persisted",
		},
	)

	RunsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_runs_finalized_total",
			Help: "Finished campaign runs, by final write result",
		},
		[]string{"result"}, // "done", "failed_fallback", "lost"
	)

	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campaign_active_runs",
			Help: "Campaign runs currently executing in this process",
		},
	)

	StuckCampaigns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campaign_stuck_sending",
			Help: "Campaigns in sending state without a live worker, as of the last monitor pass",
		},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waapi_request_duration_seconds",
			Help:    "Duration of waapi HTTP calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "result"},
	)
)
