package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radar_refresh_duration_seconds",
		Help:    "Duration of frame index refresh operations",
		Buckets: prometheus.DefBuckets,
	})

	framesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_frames_loaded",
		Help: "Number of frames in the current index (past + nowcast)",
	})

	lastRefreshTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_last_refresh_timestamp_seconds",
		Help: "Unix timestamp of the last successful frame index refresh",
	})

	refreshErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_refresh_errors_total",
		Help: "Failed upstream refreshes by source",
	}, []string{"source"})

	alertsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_alerts_active",
		Help: "Number of active alerts in the current overlay snapshot",
	})
)
