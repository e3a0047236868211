// Package convergence fuses consensus, edge, flow, open interest and trader
// quality into one market score, detects alpha signals and rates traders.
package convergence

import (
	"math"
	"time"

	"github.com/liamashdown/agentlens/internal/consensus"
	"github.com/liamashdown/agentlens/internal/domain"
)

// Sub-score caps
const (
	MaxConsensus  = 25
	MaxEdge       = 20
	MaxMomentum   = 20
	MaxValidation = 15
	MaxQuality    = 20
)

const (
	recentWindow       = 24 * time.Hour
	convictionBuyPct   = 15.0
	neutralWinRate     = 0.5
	qualityPnLScale    = 100_000.0
	qualityPnLMaxBonus = 8.0
)

// Tier buckets a convergence score
type Tier string

const (
	TierStrong   Tier = "STRONG"
	TierModerate Tier = "MODERATE"
	TierWeak     Tier = "WEAK"
)

// TierFor maps a total score to its tier
func TierFor(total int) Tier {
	switch {
	case total >= 75:
		return TierStrong
	case total >= 45:
		return TierModerate
	}
	return TierWeak
}

// WhaleTrade is a recent trade by a tracked trader
type WhaleTrade struct {
	Trader     string
	MarketID   string
	Side       domain.Side
	Outcome    domain.Outcome
	Value      float64
	Conviction float64 // percent of the trader's portfolio
	Timestamp  time.Time
}

// TraderRecord is the resolved history of one trader in a market
type TraderRecord struct {
	Address     string
	WinRate     float64
	Resolved    int
	RealizedPnL float64
}

// Input is everything the convergence score reads for one market
type Input struct {
	Market       consensus.SmartMoneyMarket
	Trades       []WhaleTrade
	OpenInterest float64
	Traders      []TraderRecord
	Now          time.Time
}

// Breakdown holds the five capped sub-scores
type Breakdown struct {
	Consensus  int `json:"consensus"`
	Edge       int `json:"edge"`
	Momentum   int `json:"momentum"`
	Validation int `json:"validation"`
	Quality    int `json:"quality"`
}

// Sum adds the sub-scores
func (b Breakdown) Sum() int {
	return b.Consensus + b.Edge + b.Momentum + b.Validation + b.Quality
}

// ConvergenceScore is the fused 0-100 market score
type ConvergenceScore struct {
	MarketID  string    `json:"marketId"`
	Title     string    `json:"title"`
	Total     int       `json:"total"`
	Tier      Tier      `json:"tier"`
	Breakdown Breakdown `json:"breakdown"`
}

// Score computes the convergence score of one market
func Score(in Input) ConvergenceScore {
	b := Breakdown{
		Consensus:  consensusScore(in.Market),
		Edge:       edgeScore(in.Market),
		Momentum:   momentumScore(in.Market.MarketID, in.Trades, in.Now),
		Validation: validationScore(in.OpenInterest, in.Market.TraderCount),
		Quality:    qualityScore(in.Traders),
	}
	total := b.Sum()
	return ConvergenceScore{
		MarketID:  in.Market.MarketID,
		Title:     in.Market.Title,
		Total:     total,
		Tier:      TierFor(total),
		Breakdown: b,
	}
}

func consensusScore(m consensus.SmartMoneyMarket) int {
	v := float64(m.CapitalConsensus)/100*12 + float64(m.HeadConsensus)/100*8
	switch {
	case m.TotalCapital > 50_000:
		v += 5
	case m.TotalCapital > 10_000:
		v += 3
	case m.TotalCapital > 1_000:
		v++
	}
	return capped(v, MaxConsensus)
}

func edgeScore(m consensus.SmartMoneyMarket) int {
	e := float64(m.EdgePct)
	switch m.Direction {
	case consensus.EdgeProfit:
		return capped(10+0.5*e, MaxEdge)
	case consensus.EdgeUnderwater:
		return capped(5-0.3*math.Abs(e), MaxEdge)
	}
	return 10
}

func momentumScore(marketID string, trades []WhaleTrade, now time.Time) int {
	var buys int
	var buyVol, sellVol float64
	conviction := false
	for _, t := range recentTrades(trades, marketID, now, recentWindow) {
		switch t.Side {
		case domain.SideBuy:
			buys++
			buyVol += t.Value
			if t.Conviction >= convictionBuyPct {
				conviction = true
			}
		case domain.SideSell:
			sellVol += t.Value
		}
	}

	v := 0.0
	if buys >= 2 {
		v += 8
	}
	if total := buyVol + sellVol; total > 0 {
		switch share := buyVol / total; {
		case share > 0.7:
			v += 8
		case share > 0.5:
			v += 4
		}
	}
	if conviction {
		v += 4
	}
	return capped(v, MaxMomentum)
}

func validationScore(openInterest float64, traders int) int {
	v := 0
	switch {
	case openInterest > 500_000:
		v = 8
	case openInterest > 100_000:
		v = 6
	case openInterest > 10_000:
		v = 4
	case openInterest > 0:
		v = 2
	}
	switch {
	case traders >= 8:
		v += 7
	case traders >= 5:
		v += 5
	case traders >= 3:
		v += 3
	default:
		v++
	}
	return capped(float64(v), MaxValidation)
}

func qualityScore(traders []TraderRecord) int {
	winRate := neutralWinRate
	var sumWR, sumPnL float64
	withHistory := 0
	for _, t := range traders {
		sumPnL += t.RealizedPnL
		if t.Resolved > 0 {
			sumWR += t.WinRate
			withHistory++
		}
	}
	if withHistory > 0 {
		winRate = sumWR / float64(withHistory)
	}

	v := 2.0
	switch {
	case winRate >= 0.65:
		v = 12
	case winRate >= 0.55:
		v = 8
	case winRate >= 0.45:
		v = 5
	}
	if len(traders) > 0 {
		avgPnL := sumPnL / float64(len(traders))
		v += qualityPnLMaxBonus * math.Max(0, math.Min(1, avgPnL/qualityPnLScale))
	}
	return capped(v, MaxQuality)
}

// recentTrades returns the trades on a market within window before now
func recentTrades(trades []WhaleTrade, marketID string, now time.Time, window time.Duration) []WhaleTrade {
	var out []WhaleTrade
	for _, t := range trades {
		if t.MarketID != marketID {
			continue
		}
		age := now.Sub(t.Timestamp)
		if age < 0 || age > window {
			continue
		}
		out = append(out, t)
	}
	return out
}

// capped rounds v and clamps it to [0,limit]
func capped(v float64, limit int) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > limit {
		return limit
	}
	return r
}
