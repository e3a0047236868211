package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Wallet scan metrics
	WalletScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_wallet_scans_total",
			Help: "Total number of wallet scans",
		},
		[]string{"status"}, // success, fetch_error
	)

	WalletScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentlens_wallet_scan_duration_seconds",
			Help:    "Duration of a single wallet fetch and score",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	BotScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentlens_bot_scores",
			Help:    "Distribution of wallet bot scores (0-100)",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_classifications_total",
			Help: "Wallet classifications by tier",
		},
		[]string{"tier"}, // human, mixed, likely-bot, bot
	)

	// Market level metrics
	MarketAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_market_analyses_total",
			Help: "Total number of market deep analyses",
		},
		[]string{"status"}, // success, not_found, error
	)

	ConvergenceScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentlens_convergence_scores",
			Help:    "Distribution of market convergence scores (0-100)",
			Buckets: []float64{15, 30, 45, 60, 75, 90, 100},
		},
	)

	AlphaSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_alpha_signals_total",
			Help: "Alpha signals emitted by kind",
		},
		[]string{"kind"},
	)

	ConsensusCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_consensus_cache_lookups_total",
			Help: "Consensus snapshot cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// Alert metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_alerts_sent_total",
			Help: "Total number of alerts sent",
		},
		[]string{"status", "kind"},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"api", "endpoint", "status"}, // data/gamma, /trades, success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_database_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"},
	)
)

// RecordWalletScan records one wallet fetch+score attempt
func RecordWalletScan(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "fetch_error"
	}
	WalletScans.WithLabelValues(status).Inc()
	WalletScanDuration.Observe(duration.Seconds())
}

// RecordClassification records a wallet's tier and score
func RecordClassification(tier string, score int) {
	Classifications.WithLabelValues(tier).Inc()
	BotScores.Observe(float64(score))
}

// RecordMarketAnalysis records the outcome of a market deep scan
func RecordMarketAnalysis(status string) {
	MarketAnalyses.WithLabelValues(status).Inc()
}

// RecordConvergenceScore records a market convergence score
func RecordConvergenceScore(score int) {
	ConvergenceScores.Observe(float64(score))
}

// RecordAlphaSignal records an emitted alpha signal
func RecordAlphaSignal(kind string) {
	AlphaSignals.WithLabelValues(kind).Inc()
}

// RecordCacheLookup records a consensus cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ConsensusCache.WithLabelValues(result).Inc()
}

// RecordAlert records an alert delivery attempt
func RecordAlert(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(status, kind).Inc()
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueries.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
