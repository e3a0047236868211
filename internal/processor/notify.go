package processor

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/alerts"
	"github.com/liamashdown/agentlens/internal/convergence"
	"github.com/liamashdown/agentlens/internal/metrics"
	"github.com/liamashdown/agentlens/internal/storage"
)

// dispatchAlerts stores every signal and alerts on those at or above the
// configured confidence. A signal of the same kind on the same market is not
// re-alerted within the cooldown.
func (p *Processor) dispatchAlerts(ctx context.Context, r *SmartMoneyReport) {
	scores := make(map[string]*convergence.ConvergenceScore, len(r.Scores))
	for i := range r.Scores {
		scores[r.Scores[i].MarketID] = &r.Scores[i]
	}

	for _, sig := range r.Signals {
		marketID := ""
		if len(sig.MarketIDs) > 0 {
			marketID = sig.MarketIDs[0]
		}
		logger := p.log.WithFields(logrus.Fields{
			"kind":       sig.Kind,
			"market":     marketID,
			"confidence": sig.Confidence,
		})

		alertable := sig.Confidence >= p.cfg.AlphaAlertMinConfidence
		if alertable {
			last, err := p.store.LastAlertedSignal(ctx, string(sig.Kind), marketID)
			if err != nil {
				logger.WithError(err).Warn("Failed to check alert cooldown")
				alertable = false
			} else if last != nil && r.GeneratedAt.Unix()-last.CreatedTS < int64(alertCooldown.Seconds()) {
				logger.Debug("Alpha signal alerted recently, skipping")
				alertable = false
			}
		}

		row := &storage.AlphaSignal{
			Kind:        string(sig.Kind),
			ConditionID: marketID,
			MarketTitle: sig.Title,
			Confidence:  sig.Confidence,
			Traders:     strings.Join(sig.Traders, ","),
			Action:      sig.Action,
			CreatedTS:   r.GeneratedAt.Unix(),
		}
		if err := p.store.SaveAlphaSignal(ctx, row); err != nil {
			logger.WithError(err).Error("Failed to store alpha signal")
			continue
		}
		if !alertable {
			continue
		}

		var score *convergence.ConvergenceScore
		if len(sig.MarketIDs) == 1 {
			score = scores[marketID]
		}
		alert := alerts.NewAlphaAlert(sig, score, p.cfg.Environment, r.GeneratedAt)
		err := p.alertSender.Send(ctx, alert)
		metrics.RecordAlert(string(sig.Kind), err)
		if err != nil {
			logger.WithError(err).Error("Failed to send alpha alert")
			continue
		}
		if err := p.store.MarkAlphaAlerted(ctx, row.ID); err != nil {
			logger.WithError(err).Error("Failed to mark alpha signal alerted")
		}
	}
}
