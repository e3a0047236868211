package convergence

import (
	"fmt"
	"sort"
	"time"

	"github.com/liamashdown/agentlens/internal/consensus"
	"github.com/liamashdown/agentlens/internal/domain"
)

// AlphaKind discriminates alpha signals
type AlphaKind string

const (
	AlphaWhaleConvergence       AlphaKind = "WHALE_CONVERGENCE"
	AlphaUnderwaterAccumulation AlphaKind = "UNDERWATER_ACCUMULATION"
	AlphaYieldMomentum          AlphaKind = "YIELD_MOMENTUM"
	AlphaHighConvictionCluster  AlphaKind = "HIGH_CONVICTION_CLUSTER"
	AlphaOISurgeConsensus       AlphaKind = "OI_SURGE_CONSENSUS"
)

// kindOrder breaks confidence ties when sorting signals
var kindOrder = map[AlphaKind]int{
	AlphaWhaleConvergence:       0,
	AlphaUnderwaterAccumulation: 1,
	AlphaYieldMomentum:          2,
	AlphaHighConvictionCluster:  3,
	AlphaOISurgeConsensus:       4,
}

const (
	accumulationWindow   = 48 * time.Hour
	clusterConvictionPct = 20.0
	minConvergingWhales  = 3
	minYieldConsensus    = 60
	minSurgeConsensus    = 70
	surgeOpenInterest    = 100_000.0
)

// YieldOpportunity is a near-certain market whose safe side pays a small return
type YieldOpportunity struct {
	MarketID  string
	SafeSide  domain.Outcome
	ReturnPct float64
}

// AlphaInput is one aggregation pass worth of market state
type AlphaInput struct {
	Markets      []consensus.SmartMoneyMarket
	Trades       []WhaleTrade
	OpenInterest map[string]float64
	Yield        []YieldOpportunity
	Now          time.Time
}

// AlphaSignal is one detected opportunity
type AlphaSignal struct {
	Kind       AlphaKind `json:"kind"`
	MarketIDs  []string  `json:"marketIds"`
	Title      string    `json:"title"`
	Confidence int       `json:"confidence"`
	Traders    []string  `json:"traders"`
	Action     string    `json:"action"`
}

type detector func(in AlphaInput, titles map[string]string) []AlphaSignal

// detectors run independently; every signal they find is emitted.
var detectors = []detector{
	whaleConvergence,
	underwaterAccumulation,
	yieldMomentum,
	highConvictionCluster,
	oiSurgeConsensus,
}

// DetectAlpha runs every detector and sorts the signals by confidence
func DetectAlpha(in AlphaInput) []AlphaSignal {
	titles := make(map[string]string, len(in.Markets))
	for _, m := range in.Markets {
		titles[m.MarketID] = m.Title
	}

	signals := []AlphaSignal{}
	for _, d := range detectors {
		signals = append(signals, d(in, titles)...)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Kind != b.Kind {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return firstID(a) < firstID(b)
	})
	return signals
}

func whaleConvergence(in AlphaInput, titles map[string]string) []AlphaSignal {
	buyers := make(map[string]map[string]bool)
	for _, t := range in.Trades {
		age := in.Now.Sub(t.Timestamp)
		if t.Side != domain.SideBuy || age < 0 || age > recentWindow {
			continue
		}
		if buyers[t.MarketID] == nil {
			buyers[t.MarketID] = make(map[string]bool)
		}
		buyers[t.MarketID][t.Trader] = true
	}

	var out []AlphaSignal
	for _, marketID := range sortedKeys(buyers) {
		names := setToSorted(buyers[marketID])
		if len(names) < minConvergingWhales {
			continue
		}
		out = append(out, AlphaSignal{
			Kind:       AlphaWhaleConvergence,
			MarketIDs:  []string{marketID},
			Title:      titles[marketID],
			Confidence: confidence(float64(len(names)) * 20),
			Traders:    names,
			Action:     fmt.Sprintf("Review %s: %d whales bought in the last 24h", label(marketID, titles), len(names)),
		})
	}
	return out
}

func underwaterAccumulation(in AlphaInput, _ map[string]string) []AlphaSignal {
	var out []AlphaSignal
	for _, m := range in.Markets {
		if m.Direction != consensus.EdgeUnderwater {
			continue
		}
		buyers := make(map[string]bool)
		var sumConv float64
		buys := 0
		for _, t := range recentTrades(in.Trades, m.MarketID, in.Now, accumulationWindow) {
			if t.Side != domain.SideBuy {
				continue
			}
			buyers[t.Trader] = true
			sumConv += t.Conviction
			buys++
		}
		if buys == 0 {
			continue
		}
		out = append(out, AlphaSignal{
			Kind:       AlphaUnderwaterAccumulation,
			MarketIDs:  []string{m.MarketID},
			Title:      m.Title,
			Confidence: confidence(50 + sumConv/float64(buys)),
			Traders:    setToSorted(buyers),
			Action: fmt.Sprintf("Whales are adding to %s while %d%% underwater: consider entering below cohort cost",
				labelOf(m), -m.EdgePct),
		})
	}
	return out
}

func yieldMomentum(in AlphaInput, _ map[string]string) []AlphaSignal {
	byID := make(map[string]consensus.SmartMoneyMarket, len(in.Markets))
	for _, m := range in.Markets {
		byID[m.MarketID] = m
	}

	var out []AlphaSignal
	for _, y := range in.Yield {
		m, ok := byID[y.MarketID]
		if !ok || y.SafeSide != m.DominantOutcome || m.CapitalConsensus < minYieldConsensus {
			continue
		}
		out = append(out, AlphaSignal{
			Kind:       AlphaYieldMomentum,
			MarketIDs:  []string{m.MarketID},
			Title:      m.Title,
			Confidence: confidence(float64(m.CapitalConsensus) + 5*y.ReturnPct),
			Traders:    tradersOn(m, m.DominantOutcome),
			Action: fmt.Sprintf("Safe side %s on %s agrees with smart money: about %.1f%% return",
				y.SafeSide, labelOf(m), y.ReturnPct),
		})
	}
	return out
}

func highConvictionCluster(in AlphaInput, _ map[string]string) []AlphaSignal {
	var out []AlphaSignal
	for _, m := range in.Markets {
		conv := make(map[string]float64)
		for _, p := range m.Traders {
			if p.Conviction >= clusterConvictionPct && p.Conviction > conv[p.Name] {
				conv[p.Name] = p.Conviction
			}
		}
		if len(conv) < 2 {
			continue
		}
		names := sortedKeys(conv)
		sum := 0.0
		for _, name := range names {
			sum += conv[name]
		}
		avg := sum / float64(len(conv))
		out = append(out, AlphaSignal{
			Kind:       AlphaHighConvictionCluster,
			MarketIDs:  []string{m.MarketID},
			Title:      m.Title,
			Confidence: confidence(float64(len(conv))*25 + avg),
			Traders:    names,
			Action: fmt.Sprintf("%d traders hold %.0f%% of their portfolios in %s on average",
				len(conv), avg, labelOf(m)),
		})
	}
	return out
}

func oiSurgeConsensus(in AlphaInput, _ map[string]string) []AlphaSignal {
	var out []AlphaSignal
	for _, m := range in.Markets {
		oi := in.OpenInterest[m.MarketID]
		if oi <= surgeOpenInterest || m.CapitalConsensus < minSurgeConsensus {
			continue
		}
		out = append(out, AlphaSignal{
			Kind:       AlphaOISurgeConsensus,
			MarketIDs:  []string{m.MarketID},
			Title:      m.Title,
			Confidence: confidence(oi/1e6*30 + float64(m.CapitalConsensus)),
			Traders:    tradersOn(m, m.DominantOutcome),
			Action: fmt.Sprintf("Open interest of $%.0f backs %d%% consensus on %s %s",
				oi, m.CapitalConsensus, labelOf(m), m.DominantOutcome),
		})
	}
	return out
}

func confidence(v float64) int {
	return capped(v, 100)
}

func tradersOn(m consensus.SmartMoneyMarket, outcome domain.Outcome) []string {
	seen := make(map[string]bool)
	for _, p := range m.Traders {
		if p.Outcome == outcome {
			seen[p.Name] = true
		}
	}
	return setToSorted(seen)
}

func label(marketID string, titles map[string]string) string {
	if t := titles[marketID]; t != "" {
		return t
	}
	return marketID
}

func labelOf(m consensus.SmartMoneyMarket) string {
	if m.Title != "" {
		return m.Title
	}
	return m.MarketID
}

func firstID(s AlphaSignal) string {
	if len(s.MarketIDs) == 0 {
		return ""
	}
	return s.MarketIDs[0]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setToSorted(set map[string]bool) []string {
	return sortedKeys(set)
}
