// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for playlistd.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlistd_refresh_total",
		Help: "Playlist refresh attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlistd_refresh_failures_total",
		Help: "Playlist refresh failures by stage",
	}, []string{"stage"}) // stage=config|fetch|content|parse|store

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playlistd_refresh_duration_seconds",
		Help:    "Time spent refreshing a single playlist",
		Buckets: prometheus.DefBuckets,
	})

	channelsPerPlaylist = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playlistd_channels",
		Help: "Channels persisted per playlist (last successful refresh)",
	}, []string{"playlist_id"}) // keyed by id: names are not unique and may change

	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlistd_probes_total",
		Help: "Stream availability probes by outcome",
	}, []string{"outcome"}) // outcome=available|unavailable

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playlistd_circuit_breaker_state",
		Help: "Fetch circuit breaker state per host (0=closed, 1=open, 2=half-open)",
	}, []string{"host"})

	schedulerRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playlistd_scheduler_runs_total",
		Help: "Scheduler ticks that evaluated due playlists",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlistd_http_requests_total",
		Help: "API requests by method and status class",
	}, []string{"method", "class"})
)

func RecordRefreshSuccess(seconds float64) {
	refreshTotal.WithLabelValues("success").Inc()
	refreshDurationSeconds.Observe(seconds)
}

func RecordRefreshFailure(stage string, seconds float64) {
	refreshTotal.WithLabelValues("failure").Inc()
	refreshFailuresTotal.WithLabelValues(stage).Inc()
	refreshDurationSeconds.Observe(seconds)
}

func SetChannelCount(playlistID int64, n int) {
	channelsPerPlaylist.WithLabelValues(strconv.FormatInt(playlistID, 10)).Set(float64(n))
}

func DropChannelCount(playlistID int64) {
	channelsPerPlaylist.DeleteLabelValues(strconv.FormatInt(playlistID, 10))
}

func RecordProbe(available bool) {
	if available {
		probesTotal.WithLabelValues("available").Inc()
	} else {
		probesTotal.WithLabelValues("unavailable").Inc()
	}
}

func SetCircuitBreakerState(host string, state float64) {
	circuitBreakerState.WithLabelValues(host).Set(state)
}

func RecordSchedulerRun() {
	schedulerRunsTotal.Inc()
}

func RecordHTTPRequest(method, class string) {
	httpRequestsTotal.WithLabelValues(method, class).Inc()
}
