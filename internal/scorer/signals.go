package scorer

import (
	"math"
	"sort"

	"github.com/liamashdown/agentlens/internal/domain"
)

// Signals holds the seven behavioral scores, each in [0,100].
// GhostWhale is non-zero only when ghost-whale mode triggered, in which case
// the other six are left at zero.
type Signals struct {
	IntervalRegularity  float64 `json:"intervalRegularity"`
	SplitMergeRatio     float64 `json:"splitMergeRatio"`
	SizingConsistency   float64 `json:"sizingConsistency"`
	ActivityCoverage    float64 `json:"activityCoverage"`
	ExtremeWinRate      float64 `json:"extremeWinRate"`
	MarketConcentration float64 `json:"marketConcentration"`
	GhostWhale          float64 `json:"ghostWhale"`
}

// Weights of the six regular signals; they sum to 1
type Weights struct {
	IntervalRegularity  float64
	SplitMergeRatio     float64
	SizingConsistency   float64
	ActivityCoverage    float64
	ExtremeWinRate      float64
	MarketConcentration float64
	// GhostWhale scales the ghost score when it replaces the weighted sum
	GhostWhale float64
}

// DefaultWeights returns the production signal weights
func DefaultWeights() Weights {
	return Weights{
		IntervalRegularity:  0.20,
		SplitMergeRatio:     0.25,
		SizingConsistency:   0.15,
		ActivityCoverage:    0.15,
		ExtremeWinRate:      0.15,
		MarketConcentration: 0.10,
		GhostWhale:          0.50,
	}
}

const (
	minTradesForShape     = 3
	minResolvedForWinRate = 5
	fastIntervalSec       = 30.0
	humanHoursCeiling     = 8.0
	botHoursFloor         = 22.0
	plausibleWinRate      = 0.60
	extremeWinRate        = 0.85
	ghostMaxTrades        = 1
	ghostMinVolumeShare   = 0.05
	ghostFullVolumeShare  = 0.20
)

// ComputeSignals derives the SignalVector for one wallet
func ComputeSignals(a *domain.WalletActivity, ctx Context) Signals {
	if ghost := ghostWhaleScore(len(a.Trades), ctx.PositionSize, ctx.MarketVolume); ghost > 0 {
		return Signals{GhostWhale: ghost}
	}
	winRate, resolved := a.WinRate()
	return Signals{
		IntervalRegularity:  intervalRegularity(a.Trades),
		SplitMergeRatio:     splitMergeScore(len(a.Merges), len(a.Trades)),
		SizingConsistency:   sizingConsistency(a.Trades),
		ActivityCoverage:    activityCoverage(activeHours(a.Trades)),
		ExtremeWinRate:      extremeWinRateScore(winRate, resolved),
		MarketConcentration: marketConcentration(a.Trades),
	}
}

func intervalRegularity(trades []domain.Trade) float64 {
	if len(trades) < minTradesForShape {
		return 0
	}
	gaps := tradeGaps(trades)
	meanGap := mean(gaps)
	uniformity := clamp(1-coefficientOfVariation(gaps), 0, 1)
	speed := 1.0
	if meanGap > 0 {
		speed = math.Min(1, fastIntervalSec/meanGap)
	}
	return 100 * (0.6*uniformity + 0.4*speed)
}

// tradeGaps returns the seconds between consecutive trades in time order
func tradeGaps(trades []domain.Trade) []float64 {
	ts := make([]int64, len(trades))
	for i, t := range trades {
		ts[i] = t.Timestamp.Unix()
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	gaps := make([]float64, 0, len(ts))
	for i := 1; i < len(ts); i++ {
		gaps = append(gaps, float64(ts[i]-ts[i-1]))
	}
	return gaps
}

func splitMergeScore(merges, trades int) float64 {
	if merges == 0 {
		return 0
	}
	if trades == 0 {
		return 100
	}
	return math.Min(100, float64(merges)/float64(trades)*200)
}

func sizingConsistency(trades []domain.Trade) float64 {
	if len(trades) < minTradesForShape {
		return 0
	}
	return 100 * clamp(1-coefficientOfVariation(notionals(trades)), 0, 1)
}

func notionals(trades []domain.Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.Notional()
	}
	return out
}

// activeHours counts distinct UTC hours of day with at least one trade
func activeHours(trades []domain.Trade) int {
	var seen [24]bool
	count := 0
	for _, t := range trades {
		h := t.Timestamp.UTC().Hour()
		if !seen[h] {
			seen[h] = true
			count++
		}
	}
	return count
}

func activityCoverage(hours int) float64 {
	return ramp(float64(hours), humanHoursCeiling, botHoursFloor)
}

func extremeWinRateScore(winRate float64, resolved int) float64 {
	if resolved < minResolvedForWinRate {
		return 0
	}
	return ramp(winRate, plausibleWinRate, extremeWinRate)
}

func marketConcentration(trades []domain.Trade) float64 {
	if len(trades) < minTradesForShape {
		return 0
	}
	byKey := make(map[string]float64)
	total := 0.0
	for _, t := range trades {
		key := t.Category
		if key == "" {
			key = t.MarketID
		}
		w := t.Notional()
		if w <= 0 {
			w = 1
		}
		byKey[key] += w
		total += w
	}
	top := 0.0
	for _, v := range byKey {
		if v > top {
			top = v
		}
	}
	return ramp(top/total, 0.30, 0.90)
}

// ghostWhaleScore is non-zero only when a wallet holds a large share of market
// volume with (almost) no visible trade history.
func ghostWhaleScore(trades int, position, volume float64) float64 {
	if trades > ghostMaxTrades || position <= 0 || volume <= 0 {
		return 0
	}
	share := position / volume
	if share < ghostMinVolumeShare {
		return 0
	}
	return clamp(50+(share-ghostMinVolumeShare)/(ghostFullVolumeShare-ghostMinVolumeShare)*50, 50, 100)
}

// Aggregate reduces a SignalVector and both-sides percentage to a bot score.
// Ghost-whale mode replaces the weighted sum and the both-sides bonus.
func Aggregate(s Signals, w Weights, bothSidesPct float64) int {
	if s.GhostWhale > 0 {
		return int(clamp(math.Round(s.GhostWhale*w.GhostWhale), 0, 100))
	}
	sum := s.IntervalRegularity*w.IntervalRegularity +
		s.SplitMergeRatio*w.SplitMergeRatio +
		s.SizingConsistency*w.SizingConsistency +
		s.ActivityCoverage*w.ActivityCoverage +
		s.ExtremeWinRate*w.ExtremeWinRate +
		s.MarketConcentration*w.MarketConcentration
	return int(clamp(math.Round(sum)+float64(BothSidesBonus(bothSidesPct)), 0, 100))
}

// BothSidesBonus returns the highest bonus tier reached; tiers do not stack.
func BothSidesBonus(pct float64) int {
	switch {
	case pct >= 50:
		return 20
	case pct >= 30:
		return 15
	case pct >= 10:
		return 8
	}
	return 0
}

// bothSidesPct is the share of the wallet's capital in a market that is
// offset by a position on the opposite outcome. An empty marketID takes the
// highest value across all markets.
func bothSidesPct(positions []domain.Position, marketID string) float64 {
	type sides struct{ yes, no float64 }
	byMarket := make(map[string]*sides)
	for _, p := range positions {
		if marketID != "" && p.MarketID != marketID {
			continue
		}
		s := byMarket[p.MarketID]
		if s == nil {
			s = &sides{}
			byMarket[p.MarketID] = s
		}
		switch p.Outcome {
		case domain.OutcomeYes:
			s.yes += positionCapital(p)
		case domain.OutcomeNo:
			s.no += positionCapital(p)
		}
	}
	best := 0.0
	for _, s := range byMarket {
		total := s.yes + s.no
		if total <= 0 {
			continue
		}
		if pct := 2 * math.Min(s.yes, s.no) / total * 100; pct > best {
			best = pct
		}
	}
	return best
}

func positionCapital(p domain.Position) float64 {
	if c := p.Cost(); c > 0 {
		return c
	}
	return p.Value()
}
