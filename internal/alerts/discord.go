package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liamashdown/agentlens/internal/convergence"
)

// DiscordSender sends alerts to Discord via webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert as a webhook embed
func (s *DiscordSender) Send(ctx context.Context, alert *AlphaAlert) error {
	webhookPayload := map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(alert)},
	}

	body, err := json.Marshal(webhookPayload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *DiscordSender) buildEmbed(alert *AlphaAlert) map[string]interface{} {
	var color int
	switch alert.Severity {
	case SeverityAlert:
		color = 0x00C853 // Green
	case SeverityWarn:
		color = 0xFFA500 // Orange
	default:
		color = 0x0099FF // Blue
	}

	sig := alert.Signal
	fields := []map[string]interface{}{
		{
			"name":   "Signal",
			"value":  kindLabel(sig.Kind),
			"inline": true,
		},
		{
			"name":   "Confidence",
			"value":  fmt.Sprintf("**%d/100**", sig.Confidence),
			"inline": true,
		},
		{
			"name":   "Traders",
			"value":  truncate(traderList(sig.Traders), 200),
			"inline": true,
		},
		{
			"name":   "Action",
			"value":  truncate(sig.Action, 300),
			"inline": false,
		},
	}

	if alert.Convergence != nil {
		fields = append(fields, map[string]interface{}{
			"name":   "📊 Convergence",
			"value":  formatBreakdown(alert.Convergence),
			"inline": false,
		})
	}

	embed := map[string]interface{}{
		"title":  fmt.Sprintf("%s %s", severityIcon(alert.Severity), truncate(sig.Title, 200)),
		"color":  color,
		"fields": fields,
		"footer": map[string]interface{}{
			"text": fmt.Sprintf("AgentLens • %s • %s", alert.Environment, alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")),
		},
		"timestamp": alert.Timestamp.Format(time.RFC3339),
	}
	if alert.MarketURL != "" {
		embed["url"] = alert.MarketURL
	}
	return embed
}

func formatBreakdown(c *convergence.ConvergenceScore) string {
	b := c.Breakdown
	parts := []string{
		fmt.Sprintf("Total: **%d/100** (%s)", c.Total, c.Tier),
		fmt.Sprintf("Consensus %d/%d", b.Consensus, convergence.MaxConsensus),
		fmt.Sprintf("Edge %d/%d", b.Edge, convergence.MaxEdge),
		fmt.Sprintf("Momentum %d/%d", b.Momentum, convergence.MaxMomentum),
		fmt.Sprintf("Validation %d/%d", b.Validation, convergence.MaxValidation),
		fmt.Sprintf("Quality %d/%d", b.Quality, convergence.MaxQuality),
	}
	return strings.Join(parts, "\n")
}

func kindLabel(kind convergence.AlphaKind) string {
	words := strings.Split(strings.ToLower(string(kind)), "_")
	for i, w := range words {
		if w == "oi" {
			words[i] = "OI"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func severityIcon(s Severity) string {
	switch s {
	case SeverityAlert:
		return "🚨"
	case SeverityWarn:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func traderList(traders []string) string {
	if len(traders) == 0 {
		return "-"
	}
	return strings.Join(traders, ", ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
