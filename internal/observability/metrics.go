// Package observability provides Prometheus metrics and health endpoints.
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	// Pipeline volume metrics
	PostsFetched     *prometheus.CounterVec
	SymbolsExtracted prometheus.Counter
	SymbolsTrending  prometheus.Counter

	// Enrichment metrics
	EnrichmentOutcomes *prometheus.CounterVec

	// Source and store failure metrics
	SourceErrors *prometheus.CounterVec
	StoreErrors  *prometheus.CounterVec
	AlertsSent   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg. A nil reg uses
// the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "meme_radar"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "cycles_total",
			Help:      "Total number of pipeline cycles by outcome",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "cycle_duration_seconds",
			Help:      "Full cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		PostsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "posts_fetched_total",
			Help:      "Total number of posts fetched by source",
		}, []string{"source"}),
		SymbolsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "symbols_extracted_total",
			Help:      "Total number of distinct symbols extracted",
		}),
		SymbolsTrending: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "symbols_trending_total",
			Help:      "Total number of symbols that met the threshold",
		}),

		EnrichmentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "outcomes_total",
			Help:      "Total enrichment outcomes by result",
		}, []string{"outcome"}),

		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total source fetch failures by source",
		}, []string{"source"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total store write failures by table",
		}, []string{"table"}),
		AlertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "alerts_total",
			Help:      "Total alert deliveries by outcome",
		}, []string{"status"}),

		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last cycle that completed without errors",
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status        string `json:"status"`
	Component     string `json:"component"`
	LastHeartbeat int64  `json:"last_heartbeat_ms,omitempty"`
	Message       string `json:"message,omitempty"`
}

// HealthzHandler reports liveness from the latest heartbeat of component.
// A heartbeat older than maxAge, or an error status, yields 503.
func HealthzHandler(statuses storage.StatusStore, component string, maxAge time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		hb, err := statuses.Get(ctx, component)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(healthResponse{Status: "unknown", Component: component})
			return
		}

		resp := healthResponse{
			Status:        string(hb.Status),
			Component:     hb.Component,
			LastHeartbeat: hb.LastHeartbeat,
			Message:       hb.Message,
		}

		stale := maxAge > 0 && time.Since(time.UnixMilli(hb.LastHeartbeat)) > maxAge
		if hb.Status == domain.StatusError || stale {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	})
}
