package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/agentlens/internal/convergence"
)

func testAlert(score *convergence.ConvergenceScore) *AlphaAlert {
	signal := convergence.AlphaSignal{
		Kind:       convergence.AlphaWhaleConvergence,
		MarketIDs:  []string{"0xabc"},
		Title:      "Will it rain?",
		Confidence: 88,
		Traders:    []string{"alice", "bob", "carol"},
		Action:     "Consider Yes",
	}
	return NewAlphaAlert(signal, score, "test", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		confidence int
		want       Severity
	}{
		{100, SeverityAlert},
		{85, SeverityAlert},
		{84, SeverityWarn},
		{70, SeverityWarn},
		{69, SeverityInfo},
		{0, SeverityInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.confidence), "confidence %d", tt.confidence)
	}
}

func TestNewAlphaAlert(t *testing.T) {
	a := testAlert(nil)
	assert.Equal(t, SeverityAlert, a.Severity)
	assert.Equal(t, "test", a.Environment)
	assert.Nil(t, a.Convergence)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Whale Convergence", kindLabel(convergence.AlphaWhaleConvergence))
	assert.Equal(t, "OI Surge Consensus", kindLabel(convergence.AlphaOISurgeConsensus))
}

func TestDiscordSender(t *testing.T) {
	var got map[string][]map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	score := &convergence.ConvergenceScore{
		MarketID: "0xabc",
		Total:    82,
		Tier:     convergence.TierStrong,
		Breakdown: convergence.Breakdown{
			Consensus: 25, Edge: 15, Momentum: 20, Validation: 10, Quality: 12,
		},
	}
	alert := testAlert(score)
	alert.MarketURL = "https://polymarket.com/event/will-it-rain"
	err := NewDiscordSender(server.URL).Send(context.Background(), alert)
	require.NoError(t, err)

	require.Len(t, got["embeds"], 1)
	embed := got["embeds"][0]
	assert.Equal(t, "🚨 Will it rain?", embed["title"])
	assert.Equal(t, "https://polymarket.com/event/will-it-rain", embed["url"])

	fields, ok := embed["fields"].([]interface{})
	require.True(t, ok)
	assert.Len(t, fields, 5)
	last := fields[4].(map[string]interface{})
	assert.Contains(t, last["value"], "Total: **82/100** (STRONG)")
}

func TestDiscordSenderRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewDiscordSender(server.URL).Send(context.Background(), testAlert(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(ctx context.Context, alert *AlphaAlert) error {
	s.calls++
	return s.err
}

func TestSMTPSenderBuildMessage(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "user", "secret", "alerts@example.com", []string{"a@example.com", "b@example.com"})

	tests := []struct {
		name       string
		score      *convergence.ConvergenceScore
		contains   []string
		notContain []string
	}{
		{
			name: "with convergence",
			score: &convergence.ConvergenceScore{
				MarketID: "0xabc",
				Total:    82,
				Tier:     convergence.TierStrong,
				Breakdown: convergence.Breakdown{
					Consensus: 25, Edge: 15, Momentum: 20, Validation: 10, Quality: 12,
				},
			},
			contains: []string{
				"CONVERGENCE\n",
				"Consensus:      25/",
				"Total:          82/100 (STRONG)",
			},
		},
		{
			name:       "without convergence",
			notContain: []string{"CONVERGENCE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := string(sender.buildMessage(testAlert(tt.score)))

			headers, body, ok := strings.Cut(msg, "\r\n\r\n")
			require.True(t, ok, "headers and body are separated by a blank line")
			assert.Contains(t, headers, "From: alerts@example.com\r\n")
			assert.Contains(t, headers, "To: a@example.com, b@example.com\r\n")
			assert.Contains(t, headers, "Subject: [ALERT] Whale Convergence: Will it rain?\r\n")
			assert.Contains(t, headers, "Content-Type: text/plain; charset=UTF-8")

			assert.Contains(t, body, "AGENTLENS ALPHA - ALERT\n")
			assert.Contains(t, body, "Confidence:     88/100\n")
			assert.Contains(t, body, "Markets:        0xabc\n")
			assert.Contains(t, body, "Traders:        alice, bob, carol\n")
			assert.Contains(t, body, "Action:         Consider Yes\n")
			assert.Contains(t, body, "Environment: test\n")
			assert.Contains(t, body, "Generated: 2026-03-01 12:00:00 UTC\n")
			for _, want := range tt.contains {
				assert.Contains(t, body, want)
			}
			for _, unwanted := range tt.notContain {
				assert.NotContains(t, body, unwanted)
			}
		})
	}
}

func TestSMTPSenderRequiresRecipients(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "alerts@example.com", nil)
	err := sender.Send(context.Background(), testAlert(nil))
	assert.ErrorContains(t, err, "no recipients")
}

func TestMultiSenderTriesEverySender(t *testing.T) {
	boom := errors.New("boom")
	first := &stubSender{err: boom}
	second := &stubSender{}

	err := NewMultiSender(first, second).Send(context.Background(), testAlert(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, NewMultiSender(second).Send(context.Background(), testAlert(nil)))
}

func TestLogSender(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	assert.NoError(t, NewLogSender(log).Send(context.Background(), testAlert(nil)))
}
