package convergence

import (
	"math"

	"github.com/liamashdown/agentlens/internal/domain"
)

// Trader reliability caps
const (
	MaxWinRate        = 40
	MaxPnL            = 25
	MaxLeaderboardPnL = 15
	MaxDiversity      = 20
	MaxDataConfidence = 15
)

// ReliabilityTier buckets a trader reliability score
type ReliabilityTier string

const (
	ReliabilityReliable ReliabilityTier = "RELIABLE"
	ReliabilityModerate ReliabilityTier = "MODERATE"
	ReliabilityUnproven ReliabilityTier = "UNPROVEN"
)

// ReliabilityTierFor maps a reliability score to its tier
func ReliabilityTierFor(score int) ReliabilityTier {
	switch {
	case score >= 65:
		return ReliabilityReliable
	case score >= 35:
		return ReliabilityModerate
	}
	return ReliabilityUnproven
}

// TraderProfile is one trader's leaderboard entry, resolved history and book
type TraderProfile struct {
	Address        string
	Name           string
	Rank           int // 0 when not on the leaderboard
	LeaderboardPnL float64
	Resolved       int
	Wins           int
	RealizedPnL    float64
	Positions      []domain.Position
}

// ReliabilityBreakdown holds the component scores
type ReliabilityBreakdown struct {
	WinRate         int `json:"winRate"`
	PnL             int `json:"pnl"`
	Diversification int `json:"diversification"`
	DataConfidence  int `json:"dataConfidence"`
}

// TraderScore is a 0-100 reliability rating
type TraderScore struct {
	Address          string               `json:"address"`
	Name             string               `json:"name"`
	Score            int                  `json:"score"`
	Tier             ReliabilityTier      `json:"tier"`
	Breakdown        ReliabilityBreakdown `json:"breakdown"`
	WinRate          float64              `json:"winRate"`
	ConcentrationPct float64              `json:"concentrationPct"`
	Hedged           bool                 `json:"hedged"`
}

// ScoreTrader rates how much weight a trader's positions deserve
func ScoreTrader(p TraderProfile) TraderScore {
	winRate := neutralWinRate
	if p.Resolved > 0 {
		winRate = float64(p.Wins) / float64(p.Resolved)
	}
	concentration := concentrationPct(p.Positions)
	hedged := hasHedge(p.Positions)

	b := ReliabilityBreakdown{
		WinRate:         winRateComponent(winRate, p.Resolved),
		PnL:             pnlComponent(p),
		Diversification: diversificationComponent(concentration, len(p.Positions) > 0, hedged),
		DataConfidence:  dataConfidenceComponent(p.Resolved, p.Rank),
	}
	score := b.WinRate + b.PnL + b.Diversification + b.DataConfidence
	if score > 100 {
		score = 100
	}

	name := p.Name
	if name == "" {
		name = p.Address
	}
	return TraderScore{
		Address:          p.Address,
		Name:             name,
		Score:            score,
		Tier:             ReliabilityTierFor(score),
		Breakdown:        b,
		WinRate:          winRate,
		ConcentrationPct: concentration,
		Hedged:           hedged,
	}
}

// winRateComponent scales from a 40% baseline; small samples are discounted
func winRateComponent(winRate float64, resolved int) int {
	v := math.Max(0, math.Min(1, (winRate-0.4)/0.6)) * MaxWinRate
	switch {
	case resolved < 5:
		v *= 0.5
	case resolved < 10:
		v *= 0.75
	}
	return capped(v, MaxWinRate)
}

// pnlComponent is log-scaled so $100k of realized pnl saturates it. Without
// resolved history the leaderboard pnl is used at a lower cap.
func pnlComponent(p TraderProfile) int {
	if p.Resolved > 0 {
		return capped(logScale(p.RealizedPnL)*MaxPnL, MaxPnL)
	}
	return capped(logScale(p.LeaderboardPnL)*MaxLeaderboardPnL, MaxLeaderboardPnL)
}

func logScale(pnl float64) float64 {
	if pnl <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(1+pnl)/5)
}

// diversificationComponent peaks when the largest position is 15-50% of the
// book. Lower reads as index-like copying, higher as a single bet.
func diversificationComponent(concentration float64, hasPositions, hedged bool) int {
	if !hasPositions {
		return 0
	}
	const peak = 17.0
	var v float64
	switch {
	case concentration < 15:
		v = peak * concentration / 15
	case concentration <= 50:
		v = peak
	default:
		v = peak * (100 - concentration) / 50
	}
	if hedged {
		v += 3
	}
	return capped(v, MaxDiversity)
}

func dataConfidenceComponent(resolved, rank int) int {
	v := math.Min(10, float64(resolved)/20*10)
	if rank > 0 {
		v += 5
	}
	return capped(v, MaxDataConfidence)
}

// concentrationPct is the largest position's share of the book by value
func concentrationPct(positions []domain.Position) float64 {
	total, top := 0.0, 0.0
	for _, p := range positions {
		v := p.Value()
		total += v
		top = math.Max(top, v)
	}
	if total <= 0 {
		return 0
	}
	return top / total * 100
}

// hasHedge reports whether the book holds both outcomes of any market
func hasHedge(positions []domain.Position) bool {
	held := make(map[string]domain.Outcome)
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		if o, ok := held[p.MarketID]; ok && o != p.Outcome {
			return true
		}
		held[p.MarketID] = p.Outcome
	}
	return false
}
