package intel

import (
	"math"
	"sort"
	"time"

	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/scorer"
)

// smartMoneyRatio is how much one side's agent capital must exceed the other's
const smartMoneyRatio = 1.5

// Aggregate reduces per-wallet results into a DeepAnalysisResult. The output
// does not depend on the order of results.
func Aggregate(marketID string, totalHolders int, results []scorer.Result, now time.Time) *DeepAnalysisResult {
	holders := sortedResults(results)

	res := &DeepAnalysisResult{
		MarketID:       marketID,
		TotalHolders:   totalHolders,
		ScannedHolders: len(holders),
		StrategyCounts: make(map[scorer.StrategyType]int),
		Holders:        holders,
		ScannedAt:      now,
	}

	for _, h := range holders {
		switch h.Tier {
		case scorer.TierBot:
			res.Classifications.Bot++
		case scorer.TierLikelyBot:
			res.Classifications.LikelyBot++
		case scorer.TierMixed:
			res.Classifications.Mixed++
		default:
			res.Classifications.Human++
		}
		res.StrategyCounts[h.Strategy.Type]++
		addCapital(&res.Capital, h)
	}

	res.AgentRate = AgentRate(res.Classifications.Agents(), res.ScannedHolders)
	res.DominantStrategy = dominantStrategy(holders)
	res.SmartMoney = ComputeSmartMoney(res.Capital.YesAgent, res.Capital.NoAgent)

	f := collectFacts(res)
	res.RedFlags = redFlags(f)
	res.Recommendation = recommend(f, len(res.RedFlags))
	res.Tags = buildTags(f)
	res.SignalHash = SignalHash(marketID, holders, now)
	return res
}

// AgentRate is round(100 * agents / scanned), 0 when nothing was scanned
func AgentRate(agents, scanned int) int {
	if scanned == 0 {
		return 0
	}
	return int(math.Round(100 * float64(agents) / float64(scanned)))
}

// ComputeSmartMoney compares agent capital on each side
func ComputeSmartMoney(yesAgent, noAgent float64) SmartMoney {
	total := yesAgent + noAgent
	if total <= 0 {
		return SmartMoney{Direction: DirectionNoSignal}
	}
	switch {
	case yesAgent > noAgent*smartMoneyRatio:
		return SmartMoney{Direction: DirectionYes, Percentage: share(yesAgent, total)}
	case noAgent > yesAgent*smartMoneyRatio:
		return SmartMoney{Direction: DirectionNo, Percentage: share(noAgent, total)}
	}
	return SmartMoney{Direction: DirectionDivided, Percentage: share(math.Max(yesAgent, noAgent), total)}
}

func share(part, total float64) int {
	return int(math.Round(part / total * 100))
}

func addCapital(c *Capital, h scorer.Result) {
	agent := h.Tier.IsAgent()
	switch h.Side {
	case domain.OutcomeYes:
		if agent {
			c.YesAgent += h.PositionSize
		} else {
			c.YesHuman += h.PositionSize
		}
	case domain.OutcomeNo:
		if agent {
			c.NoAgent += h.PositionSize
		} else {
			c.NoHuman += h.PositionSize
		}
	}
}

// dominantStrategy picks the most common classified strategy. Ties go to the
// strategy encountered first in holder order.
func dominantStrategy(holders []scorer.Result) scorer.StrategyType {
	counts := make(map[scorer.StrategyType]int)
	var order []scorer.StrategyType
	for _, h := range holders {
		t := h.Strategy.Type
		if t == scorer.StrategyUnclassified || t == "" {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	var best scorer.StrategyType
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// sortedResults orders holders by position size, largest first, with the
// address as tie-break so results are independent of scan completion order.
func sortedResults(results []scorer.Result) []scorer.Result {
	out := append([]scorer.Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PositionSize != out[j].PositionSize {
			return out[i].PositionSize > out[j].PositionSize
		}
		return out[i].Address < out[j].Address
	})
	return out
}
