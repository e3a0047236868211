package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the alert
func (s *LogSender) Send(ctx context.Context, alert *AlphaAlert) error {
	fields := logrus.Fields{
		"severity":   alert.Severity,
		"kind":       alert.Signal.Kind,
		"markets":    alert.Signal.MarketIDs,
		"title":      alert.Signal.Title,
		"confidence": alert.Signal.Confidence,
		"traders":    len(alert.Signal.Traders),
		"action":     alert.Signal.Action,
	}
	if alert.Convergence != nil {
		fields["convergence"] = alert.Convergence.Total
		fields["convergence_tier"] = alert.Convergence.Tier
	}
	s.log.WithFields(fields).Info("Alpha signal")
	return nil
}
