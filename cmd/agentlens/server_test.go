package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/intel"
	"github.com/liamashdown/agentlens/internal/processor"
)

type stubAnalyzer struct {
	ref string
	bet float64
	err error
}

func (s *stubAnalyzer) AnalyzeMarket(ctx context.Context, ref string, bet float64) (*processor.MarketReport, error) {
	s.ref, s.bet = ref, bet
	if s.err != nil {
		return nil, s.err
	}
	return &processor.MarketReport{Market: domain.Market{ConditionID: ref}, Bet: bet}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAnalyzeEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		query      string
		err        error
		wantStatus int
		wantBet    float64
	}{
		{"ok", http.MethodGet, "?market=0xabc&bet=250", nil, http.StatusOK, 250},
		{"bet defaults to zero", http.MethodGet, "?market=0xabc", nil, http.StatusOK, 0},
		{"missing market", http.MethodGet, "?bet=5", nil, http.StatusBadRequest, 0},
		{"negative bet", http.MethodGet, "?market=0xabc&bet=-1", nil, http.StatusBadRequest, 0},
		{"bad bet", http.MethodGet, "?market=0xabc&bet=lots", nil, http.StatusBadRequest, 0},
		{"NaN bet", http.MethodGet, "?market=0xabc&bet=NaN", nil, http.StatusBadRequest, 0},
		{"infinite bet", http.MethodGet, "?market=0xabc&bet=Inf", nil, http.StatusBadRequest, 0},
		{"wrong method", http.MethodPost, "?market=0xabc", nil, http.StatusMethodNotAllowed, 0},
		{"unknown market", http.MethodGet, "?market=0xabc", intel.ErrMarketNotFound, http.StatusNotFound, 0},
		{"upstream failure", http.MethodGet, "?market=0xabc", errors.New("timeout"), http.StatusBadGateway, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAnalyzer{err: tt.err}
			rec := httptest.NewRecorder()
			apiHandler(stub, quietLogger()).ServeHTTP(rec, httptest.NewRequest(tt.method, "/analyze"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantStatus == http.StatusBadRequest {
				assert.Empty(t, stub.ref, "invalid requests never reach the analyzer")
			}
			if tt.wantStatus == http.StatusOK {
				var report processor.MarketReport
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
				assert.Equal(t, "0xabc", report.Market.ConditionID)
				assert.Equal(t, tt.wantBet, stub.bet)
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	opsHandler(stubPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	opsHandler(stubPinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	opsHandler(stubPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestCreateAlertSender(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		webhook  string
		smtpHost string
		want     string
	}{
		{"log", "log", "", "", "*alerts.LogSender"},
		{"discord", "discord", "https://discord.example/hook", "", "*alerts.DiscordSender"},
		{"discord without webhook falls back", "discord", "", "", "*alerts.LogSender"},
		{"smtp", "smtp", "", "smtp.example.com", "*alerts.SMTPSender"},
		{"smtp without host falls back", "smtp", "", "", "*alerts.LogSender"},
		{"combined", "log, discord", "https://discord.example/hook", "", "*alerts.MultiSender"},
		{"unknown", "pager", "", "", "*alerts.LogSender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				AlertMode:         tt.mode,
				DiscordWebhookURL: tt.webhook,
				SMTPHost:          tt.smtpHost,
				SMTPPort:          587,
				SMTPTo:            []string{"ops@example.com"},
			}
			got := createAlertSender(cfg, quietLogger())
			assert.Equal(t, tt.want, typeName(got))
		})
	}
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
