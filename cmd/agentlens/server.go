package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/intel"
	"github.com/liamashdown/agentlens/internal/metrics"
	"github.com/liamashdown/agentlens/internal/processor"
)

type marketAnalyzer interface {
	AnalyzeMarket(ctx context.Context, ref string, bet float64) (*processor.MarketReport, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // a deep scan fetches every holder's history
		IdleTimeout:  15 * time.Second,
	}
}

// apiHandler serves on-demand market analysis
func apiHandler(a marketAnalyzer, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		market := r.URL.Query().Get("market")
		if market == "" {
			writeError(w, http.StatusBadRequest, "market is required")
			return
		}
		bet := 0.0
		if raw := r.URL.Query().Get("bet"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				writeError(w, http.StatusBadRequest, "bet must be a finite non-negative number")
				return
			}
			bet = v
		}

		report, err := a.AnalyzeMarket(r.Context(), market, bet)
		switch {
		case errors.Is(err, intel.ErrMarketNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			log.WithError(err).WithField("market", market).Error("Market analysis failed")
			writeError(w, http.StatusBadGateway, "analysis failed")
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
	return mux
}

// opsHandler serves health, readiness and metrics
func opsHandler(db pinger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			metrics.RecordHealthCheck(false)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		metrics.RecordHealthCheck(true)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
