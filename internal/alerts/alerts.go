package alerts

import (
	"context"
	"time"

	"github.com/liamashdown/agentlens/internal/convergence"
)

// Severity represents alert severity
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityAlert Severity = "ALERT"
)

// SeverityFor maps a signal confidence to an alert severity
func SeverityFor(confidence int) Severity {
	switch {
	case confidence >= 85:
		return SeverityAlert
	case confidence >= 70:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// AlphaAlert contains all information for one alpha signal alert
type AlphaAlert struct {
	Severity    Severity
	Signal      convergence.AlphaSignal
	Convergence *convergence.ConvergenceScore // nil when the market was not scored
	MarketURL   string                        // optional link for the embed title
	Timestamp   time.Time
	Environment string
}

// NewAlphaAlert builds an alert for a signal
func NewAlphaAlert(signal convergence.AlphaSignal, score *convergence.ConvergenceScore, env string, now time.Time) *AlphaAlert {
	return &AlphaAlert{
		Severity:    SeverityFor(signal.Confidence),
		Signal:      signal,
		Convergence: score,
		Timestamp:   now,
		Environment: env,
	}
}

// Sender defines the interface for alert senders
type Sender interface {
	Send(ctx context.Context, alert *AlphaAlert) error
}
