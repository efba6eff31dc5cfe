// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write paths recorded by PlaytimeWrites
const (
	WriteLog    = "log"
	WriteEdit   = "edit"
	WriteDelete = "delete"
	WriteMerge  = "merge"
)

// Import outcomes recorded by ImportSessions
const (
	ImportMerged  = "merged"
	ImportSkipped = "skipped"
	ImportFailed  = "failed"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playtime_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playtime_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Playtime Metrics
	PlaytimeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playtime_entry_writes_total",
			Help: "Total number of playtime entry writes by path",
		},
		[]string{"path"},
	)

	PlaytimeMinutesLogged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playtime_minutes_logged_total",
			Help: "Total minutes written through the log and merge paths",
		},
	)

	ImportSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playtime_import_sessions_total",
			Help: "Total number of imported sessions by outcome",
		},
		[]string{"outcome"},
	)

	// Leaderboard Metrics
	LeaderboardCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playtime_leaderboard_cache_hits_total",
			Help: "Total number of leaderboard cache hits",
		},
	)

	LeaderboardCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playtime_leaderboard_cache_misses_total",
			Help: "Total number of leaderboard cache misses",
		},
	)

	LeaderboardBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playtime_leaderboard_build_duration_seconds",
			Help:    "Time spent computing a leaderboard from stored entries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period"},
	)

	// WebSocket Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playtime_websocket_connections_active",
			Help: "Current number of connected websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playtime_websocket_messages_sent_total",
			Help: "Total number of leaderboard updates queued to websocket clients",
		},
	)
)

// RecordAPIRequest records one served API request
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWrite records a playtime write and the minutes it added
func RecordWrite(path string, minutes int) {
	PlaytimeWrites.WithLabelValues(path).Inc()
	if minutes > 0 && (path == WriteLog || path == WriteMerge) {
		PlaytimeMinutesLogged.Add(float64(minutes))
	}
}

// RecordImport records the outcome of one imported session
func RecordImport(outcome string) {
	ImportSessions.WithLabelValues(outcome).Inc()
}

// RecordLeaderboardCache records a leaderboard cache lookup
func RecordLeaderboardCache(hit bool) {
	if hit {
		LeaderboardCacheHits.Inc()
		return
	}
	LeaderboardCacheMisses.Inc()
}

// RecordLeaderboardBuild records the time spent building a period's board
func RecordLeaderboardBuild(period string, duration time.Duration) {
	LeaderboardBuildDuration.WithLabelValues(period).Observe(duration.Seconds())
}
