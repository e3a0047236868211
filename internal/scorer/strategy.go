package scorer

import (
	"math"
	"sort"

	"github.com/liamashdown/agentlens/internal/domain"
)

// StrategyType tags the trading strategy a wallet appears to run
type StrategyType string

const (
	StrategyMarketMaker  StrategyType = "MARKET_MAKER"
	StrategyHybrid       StrategyType = "HYBRID"
	StrategySniper       StrategyType = "SNIPER"
	StrategyMomentum     StrategyType = "MOMENTUM"
	StrategyUnclassified StrategyType = "UNCLASSIFIED"
)

// Strategy is the secondary classification of a wallet's activity
type Strategy struct {
	Type            StrategyType `json:"type"`
	Label           string       `json:"label"`
	Confidence      int          `json:"confidence"`
	Description     string       `json:"description"`
	AvgROI          float64      `json:"avgRoi"`
	SizeCV          float64      `json:"sizeCv"`
	DirectionalBias float64      `json:"directionalBias"`
	Bimodal         bool         `json:"bimodal"`
}

var strategyText = map[StrategyType]struct{ label, description string }{
	StrategyMarketMaker:  {"Market Maker", "Quotes both sides and recycles inventory through merges"},
	StrategyHybrid:       {"Hybrid", "Mixes directional bets with market-making activity"},
	StrategySniper:       {"Sniper", "Takes fast one-sided positions that close at high returns"},
	StrategyMomentum:     {"Momentum", "Adds to positions as price moves in its favor"},
	StrategyUnclassified: {"Unclassified", "Not enough activity to infer a strategy"},
}

// Label returns the display label for a strategy type
func (t StrategyType) Label() string {
	return strategyText[t].label
}

// strategyMetrics are the inputs the strategy rules inspect
type strategyMetrics struct {
	trades         int
	merges         int
	roi            float64 // percent
	sizeCV         float64
	bias           float64 // percent of capital on the majority side
	mergeRatio     float64
	medianGapSec   float64
	trendFollowing float64 // share of repeat buys at an equal or higher price
	bimodal        bool
}

type strategyRule struct {
	strategy   StrategyType
	match      func(m strategyMetrics) bool
	confidence func(m strategyMetrics) float64
}

// strategyRules are evaluated top to bottom; the first match wins.
var strategyRules = []strategyRule{
	{
		strategy:   StrategyUnclassified,
		match:      func(m strategyMetrics) bool { return m.trades < 5 && m.merges == 0 },
		confidence: func(strategyMetrics) float64 { return 0 },
	},
	{
		strategy: StrategyMarketMaker,
		match:    func(m strategyMetrics) bool { return m.bias <= 60 && m.mergeRatio >= 0.20 },
		confidence: func(m strategyMetrics) float64 {
			return clamp(50+(60-m.bias)+m.mergeRatio*40, 0, 95)
		},
	},
	{
		strategy: StrategySniper,
		match: func(m strategyMetrics) bool {
			return m.bias >= 80 && m.roi >= 20 && m.medianGapSec <= 60
		},
		confidence: func(m strategyMetrics) float64 {
			return clamp(50+(m.bias-80)+math.Min(m.roi, 100)/4, 0, 95)
		},
	},
	{
		strategy: StrategyMomentum,
		match:    func(m strategyMetrics) bool { return m.trendFollowing >= 0.60 && m.bias >= 70 },
		confidence: func(m strategyMetrics) float64 {
			return clamp(40+m.trendFollowing*40+(m.bias-70)/2, 0, 90)
		},
	},
	{
		strategy: StrategyHybrid,
		match:    func(m strategyMetrics) bool { return m.mergeRatio >= 0.05 || m.bimodal },
		confidence: func(m strategyMetrics) float64 {
			bonus := 0.0
			if m.bimodal {
				bonus = 10
			}
			return clamp(40+m.mergeRatio*100+bonus, 0, 80)
		},
	},
}

// ClassifyStrategy runs the strategy pass over a wallet's activity
func ClassifyStrategy(a *domain.WalletActivity) Strategy {
	m := measureStrategy(a)
	kind := StrategyUnclassified
	confidence := 0.0
	for _, rule := range strategyRules {
		if rule.match(m) {
			kind = rule.strategy
			confidence = rule.confidence(m)
			break
		}
	}
	if kind == StrategyUnclassified {
		confidence = 0
	}
	return Strategy{
		Type:            kind,
		Label:           kind.Label(),
		Confidence:      int(math.Round(confidence)),
		Description:     strategyText[kind].description,
		AvgROI:          round2(m.roi),
		SizeCV:          round2(m.sizeCV),
		DirectionalBias: round2(m.bias),
		Bimodal:         m.bimodal,
	}
}

func measureStrategy(a *domain.WalletActivity) strategyMetrics {
	m := strategyMetrics{
		trades:       len(a.Trades),
		merges:       len(a.Merges),
		roi:          returnOnInvestment(a),
		bias:         directionalBias(a),
		medianGapSec: math.Inf(1),
	}
	if len(a.Trades) >= 2 {
		m.sizeCV = coefficientOfVariation(notionals(a.Trades))
		m.medianGapSec = median(tradeGaps(a.Trades))
	}
	m.mergeRatio = float64(m.merges) / math.Max(float64(m.trades), 1)
	m.trendFollowing = trendFollowing(a.Trades)
	m.bimodal = len(a.Trades) >= 8 && bimodalityCoefficient(notionals(a.Trades)) > 5.0/9.0
	return m
}

// returnOnInvestment is realized plus unrealized pnl over open cost, in percent
func returnOnInvestment(a *domain.WalletActivity) float64 {
	cost, pnl := 0.0, 0.0
	for _, p := range a.Positions {
		cost += p.Cost()
		pnl += p.Value() - p.Cost() + p.RealizedPnL
	}
	for _, c := range a.Closed {
		pnl += c.RealizedPnL
	}
	if cost <= 0 {
		return 0
	}
	return pnl / cost * 100
}

// directionalBias is the percent of capital on the majority outcome of each
// market, summed over markets. Falls back to buy notional without positions.
func directionalBias(a *domain.WalletActivity) float64 {
	byMarket := make(map[string]map[domain.Outcome]float64)
	add := func(market string, o domain.Outcome, v float64) {
		if v <= 0 {
			return
		}
		if byMarket[market] == nil {
			byMarket[market] = make(map[domain.Outcome]float64)
		}
		byMarket[market][o] += v
	}
	if len(a.Positions) > 0 {
		for _, p := range a.Positions {
			add(p.MarketID, p.Outcome, positionCapital(p))
		}
	} else {
		for _, t := range a.Trades {
			if t.Side == domain.SideBuy {
				add(t.MarketID, t.Outcome, t.Notional())
			}
		}
	}
	majority, total := 0.0, 0.0
	for _, outcomes := range byMarket {
		top := 0.0
		for _, v := range outcomes {
			total += v
			if v > top {
				top = v
			}
		}
		majority += top
	}
	if total == 0 {
		return 0
	}
	return majority / total * 100
}

// trendFollowing is the share of repeat buys on the same outcome that were
// placed at an equal or higher price than the previous buy.
func trendFollowing(trades []domain.Trade) float64 {
	type key struct {
		market  string
		outcome domain.Outcome
	}
	buys := make(map[key][]domain.Trade)
	for _, t := range trades {
		if t.Side == domain.SideBuy {
			k := key{t.MarketID, t.Outcome}
			buys[k] = append(buys[k], t)
		}
	}
	pairs, rising := 0, 0
	for _, series := range buys {
		sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
		for i := 1; i < len(series); i++ {
			pairs++
			if series[i].Price >= series[i-1].Price {
				rising++
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return float64(rising) / float64(pairs)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
