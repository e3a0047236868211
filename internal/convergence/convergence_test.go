package convergence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/agentlens/internal/consensus"
	"github.com/liamashdown/agentlens/internal/domain"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func buy(trader, market string, value, conviction float64, age time.Duration) WhaleTrade {
	return WhaleTrade{Trader: trader, MarketID: market, Side: domain.SideBuy, Outcome: domain.OutcomeYes, Value: value, Conviction: conviction, Timestamp: now.Add(-age)}
}

func sell(trader, market string, value float64, age time.Duration) WhaleTrade {
	return WhaleTrade{Trader: trader, MarketID: market, Side: domain.SideSell, Outcome: domain.OutcomeYes, Value: value, Timestamp: now.Add(-age)}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		total int
		want  Tier
	}{
		{100, TierStrong},
		{75, TierStrong},
		{74, TierModerate},
		{45, TierModerate},
		{44, TierWeak},
		{0, TierWeak},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.total), "total %d", tt.total)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Breakdown
		tier Tier
	}{
		{
			name: "every component saturated",
			in: Input{
				Market: consensus.SmartMoneyMarket{
					MarketID: "m", CapitalConsensus: 100, HeadConsensus: 100, TotalCapital: 60_000,
					Direction: consensus.EdgeProfit, EdgePct: 30, TraderCount: 9,
				},
				Trades: []WhaleTrade{
					buy("a", "m", 1000, 20, time.Hour),
					buy("b", "m", 1000, 5, 2*time.Hour),
					buy("c", "m", 1000, 5, 3*time.Hour),
				},
				OpenInterest: 600_000,
				Traders: []TraderRecord{
					{Address: "a", WinRate: 0.7, Resolved: 10, RealizedPnL: 200_000},
					{Address: "b", WinRate: 0.7, Resolved: 10, RealizedPnL: 200_000},
				},
				Now: now,
			},
			want: Breakdown{Consensus: 25, Edge: 20, Momentum: 20, Validation: 15, Quality: 20},
			tier: TierStrong,
		},
		{
			name: "no data defaults",
			in: Input{
				Market: consensus.SmartMoneyMarket{MarketID: "m", Direction: consensus.EdgeNeutral, TraderCount: 2},
				Now:    now,
			},
			want: Breakdown{Consensus: 0, Edge: 10, Momentum: 0, Validation: 1, Quality: 5},
			tier: TierWeak,
		},
		{
			name: "partial signals",
			in: Input{
				Market: consensus.SmartMoneyMarket{
					MarketID: "m", CapitalConsensus: 50, HeadConsensus: 50, TotalCapital: 20_000,
					Direction: consensus.EdgeUnderwater, EdgePct: -10, TraderCount: 5,
				},
				Trades: []WhaleTrade{
					buy("a", "m", 300, 5, time.Hour),
					buy("b", "m", 300, 5, 2*time.Hour),
					sell("c", "m", 400, 3*time.Hour),
					buy("d", "m", 10_000, 50, 30*time.Hour), // outside 24h
					buy("e", "other", 10_000, 50, time.Hour),
					buy("f", "m", 10_000, 50, -time.Hour), // in the future
				},
				OpenInterest: 50_000,
				Traders: []TraderRecord{
					{Address: "a", WinRate: 0.6, Resolved: 20, RealizedPnL: 50_000},
					{Address: "b", Resolved: 0, RealizedPnL: 50_000},
				},
				Now: now,
			},
			// consensus 6+4+3, edge 5-3, momentum 8+4, validation 4+5, quality 8+4
			want: Breakdown{Consensus: 13, Edge: 2, Momentum: 12, Validation: 9, Quality: 12},
			tier: TierModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in)
			assert.Equal(t, tt.want, got.Breakdown)
			assert.Equal(t, tt.want.Sum(), got.Total)
			assert.Equal(t, tt.tier, got.Tier)
			assert.Equal(t, "m", got.MarketID)
		})
	}
}

func TestEdgeScore(t *testing.T) {
	tests := []struct {
		dir  consensus.EdgeDirection
		edge int
		want int
	}{
		{consensus.EdgeNeutral, 2, 10},
		{consensus.EdgeProfit, 4, 12},
		{consensus.EdgeProfit, 15, 18},
		{consensus.EdgeProfit, 40, 20},
		{consensus.EdgeUnderwater, -4, 4},
		{consensus.EdgeUnderwater, -10, 2},
		{consensus.EdgeUnderwater, -30, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.dir, tt.edge), func(t *testing.T) {
			m := consensus.SmartMoneyMarket{Direction: tt.dir, EdgePct: tt.edge}
			assert.Equal(t, tt.want, edgeScore(m))
		})
	}
}

func TestScoreCapsAndSum(t *testing.T) {
	dirs := []consensus.EdgeDirection{consensus.EdgeProfit, consensus.EdgeNeutral, consensus.EdgeUnderwater}
	for _, cons := range []int{0, 33, 70, 100} {
		for _, edge := range []int{-80, -4, 0, 5, 80} {
			for _, capital := range []float64{0, 5_000, 1e6} {
				for _, oi := range []float64{0, 20_000, 2e6} {
					for i, dir := range dirs {
						in := Input{
							Market: consensus.SmartMoneyMarket{
								MarketID: "m", CapitalConsensus: cons, HeadConsensus: 100 - cons,
								TotalCapital: capital, Direction: dir, EdgePct: edge, TraderCount: i * 4,
							},
							Trades:       []WhaleTrade{buy("a", "m", capital, 90, time.Minute), buy("b", "m", 1, 0, time.Minute)},
							OpenInterest: oi,
							Traders:      []TraderRecord{{WinRate: 1, Resolved: 50, RealizedPnL: capital * 10}},
							Now:          now,
						}
						got := Score(in)
						b := got.Breakdown
						require.LessOrEqual(t, b.Consensus, MaxConsensus)
						require.LessOrEqual(t, b.Edge, MaxEdge)
						require.LessOrEqual(t, b.Momentum, MaxMomentum)
						require.LessOrEqual(t, b.Validation, MaxValidation)
						require.LessOrEqual(t, b.Quality, MaxQuality)
						require.GreaterOrEqual(t, b.Edge, 0)
						require.Equal(t, b.Sum(), got.Total)
						require.LessOrEqual(t, got.Total, 100)
					}
				}
			}
		}
	}
}

func TestDetectAlpha(t *testing.T) {
	underwater := consensus.SmartMoneyMarket{MarketID: "uw", Title: "Underwater", Direction: consensus.EdgeUnderwater, EdgePct: -8}
	yes70 := consensus.SmartMoneyMarket{
		MarketID: "y", Title: "Yield", DominantOutcome: domain.OutcomeYes, CapitalConsensus: 70,
		Traders: []consensus.TraderPosition{
			{Name: "bob", Outcome: domain.OutcomeYes, Conviction: 10},
			{Name: "amy", Outcome: domain.OutcomeYes, Conviction: 10},
			{Name: "cat", Outcome: domain.OutcomeNo, Conviction: 10},
		},
	}
	cluster := consensus.SmartMoneyMarket{
		MarketID: "c", Title: "Cluster",
		Traders: []consensus.TraderPosition{
			{Name: "amy", Conviction: 30},
			{Name: "bob", Conviction: 40},
			{Name: "cat", Conviction: 10},
		},
	}
	surge := consensus.SmartMoneyMarket{MarketID: "s", Title: "Surge", DominantOutcome: domain.OutcomeNo, CapitalConsensus: 80}

	tests := []struct {
		name   string
		in     AlphaInput
		kind   AlphaKind
		conf   int
		market string
		names  []string
	}{
		{
			name: "whale convergence",
			in: AlphaInput{
				Trades: []WhaleTrade{
					buy("amy", "w", 100, 0, time.Hour),
					buy("bob", "w", 100, 0, 2*time.Hour),
					buy("bob", "w", 100, 0, 3*time.Hour),
					buy("cat", "w", 100, 0, 23*time.Hour),
				},
			},
			kind: AlphaWhaleConvergence, conf: 60, market: "w", names: []string{"amy", "bob", "cat"},
		},
		{
			name: "underwater accumulation",
			in: AlphaInput{
				Markets: []consensus.SmartMoneyMarket{underwater},
				Trades:  []WhaleTrade{buy("amy", "uw", 100, 30, 36*time.Hour)},
			},
			kind: AlphaUnderwaterAccumulation, conf: 80, market: "uw", names: []string{"amy"},
		},
		{
			name: "yield momentum",
			in: AlphaInput{
				Markets: []consensus.SmartMoneyMarket{yes70},
				Yield:   []YieldOpportunity{{MarketID: "y", SafeSide: domain.OutcomeYes, ReturnPct: 3}},
			},
			kind: AlphaYieldMomentum, conf: 85, market: "y", names: []string{"amy", "bob"},
		},
		{
			name: "high conviction cluster",
			in:   AlphaInput{Markets: []consensus.SmartMoneyMarket{cluster}},
			kind: AlphaHighConvictionCluster, conf: 85, market: "c", names: []string{"amy", "bob"},
		},
		{
			name: "open interest surge",
			in: AlphaInput{
				Markets:      []consensus.SmartMoneyMarket{surge},
				OpenInterest: map[string]float64{"s": 500_000},
			},
			kind: AlphaOISurgeConsensus, conf: 95, market: "s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			signals := DetectAlpha(tt.in)
			require.Len(t, signals, 1)
			s := signals[0]
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.conf, s.Confidence)
			assert.Equal(t, []string{tt.market}, s.MarketIDs)
			if tt.names != nil {
				assert.Equal(t, tt.names, s.Traders)
			}
			assert.NotEmpty(t, s.Action)
		})
	}
}

func TestDetectAlphaThresholds(t *testing.T) {
	tests := []struct {
		name string
		in   AlphaInput
	}{
		{
			name: "two whales do not converge",
			in: AlphaInput{Trades: []WhaleTrade{
				buy("amy", "w", 100, 0, time.Hour),
				buy("bob", "w", 100, 0, time.Hour),
				buy("cat", "w", 100, 0, 25*time.Hour),
				sell("dan", "w", 100, time.Hour),
			}},
		},
		{
			name: "underwater without recent buys",
			in: AlphaInput{
				Markets: []consensus.SmartMoneyMarket{{MarketID: "uw", Direction: consensus.EdgeUnderwater, EdgePct: -8}},
				Trades:  []WhaleTrade{buy("amy", "uw", 100, 30, 49*time.Hour), sell("bob", "uw", 100, time.Hour)},
			},
		},
		{
			name: "yield on the other side",
			in: AlphaInput{
				Markets: []consensus.SmartMoneyMarket{{MarketID: "y", DominantOutcome: domain.OutcomeYes, CapitalConsensus: 90}},
				Yield:   []YieldOpportunity{{MarketID: "y", SafeSide: domain.OutcomeNo, ReturnPct: 3}},
			},
		},
		{
			name: "yield with weak consensus",
			in: AlphaInput{
				Markets: []consensus.SmartMoneyMarket{{MarketID: "y", DominantOutcome: domain.OutcomeYes, CapitalConsensus: 59}},
				Yield:   []YieldOpportunity{{MarketID: "y", SafeSide: domain.OutcomeYes, ReturnPct: 3}},
			},
		},
		{
			name: "one conviction holder",
			in: AlphaInput{Markets: []consensus.SmartMoneyMarket{{MarketID: "c", Traders: []consensus.TraderPosition{
				{Name: "amy", Conviction: 90},
				{Name: "amy", Conviction: 80},
				{Name: "bob", Conviction: 19},
			}}}},
		},
		{
			name: "open interest at threshold",
			in: AlphaInput{
				Markets:      []consensus.SmartMoneyMarket{{MarketID: "s", CapitalConsensus: 90}},
				OpenInterest: map[string]float64{"s": 100_000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			assert.Empty(t, DetectAlpha(tt.in))
		})
	}
}

func TestDetectAlphaEmitsAllSortedByConfidence(t *testing.T) {
	m := consensus.SmartMoneyMarket{
		MarketID: "m", Title: "Both", DominantOutcome: domain.OutcomeYes, CapitalConsensus: 75,
		Direction: consensus.EdgeUnderwater, EdgePct: -5,
		Traders: []consensus.TraderPosition{
			{Name: "amy", Outcome: domain.OutcomeYes, Conviction: 25},
			{Name: "bob", Outcome: domain.OutcomeYes, Conviction: 25},
		},
	}
	in := AlphaInput{
		Markets: []consensus.SmartMoneyMarket{m},
		Trades: []WhaleTrade{
			buy("amy", "m", 100, 10, time.Hour),
			buy("bob", "m", 100, 10, time.Hour),
			buy("cat", "m", 100, 10, time.Hour),
		},
		OpenInterest: map[string]float64{"m": 200_000},
		Now:          now,
	}

	signals := DetectAlpha(in)

	var kinds []AlphaKind
	var confs []int
	for _, s := range signals {
		kinds = append(kinds, s.Kind)
		confs = append(confs, s.Confidence)
	}
	// convergence 60, underwater 60, cluster 75, surge 81
	assert.Equal(t, []AlphaKind{
		AlphaOISurgeConsensus,
		AlphaHighConvictionCluster,
		AlphaWhaleConvergence,
		AlphaUnderwaterAccumulation,
	}, kinds)
	assert.Equal(t, []int{81, 75, 60, 60}, confs)
}

func pos(market string, outcome domain.Outcome, value float64) domain.Position {
	return domain.Position{MarketID: market, Outcome: outcome, Size: value, CurPrice: 1}
}

func TestScoreTrader(t *testing.T) {
	tests := []struct {
		name    string
		profile TraderProfile
		want    ReliabilityBreakdown
		score   int
		tier    ReliabilityTier
	}{
		{
			name:    "no history",
			profile: TraderProfile{Address: "0x1"},
			want:    ReliabilityBreakdown{WinRate: 3},
			score:   3,
			tier:    ReliabilityUnproven,
		},
		{
			name: "proven ranked trader",
			profile: TraderProfile{
				Address: "0x2", Name: "whale", Rank: 4,
				Resolved: 40, Wins: 30, RealizedPnL: 100_000,
				Positions: []domain.Position{
					pos("a", domain.OutcomeYes, 40),
					pos("b", domain.OutcomeYes, 30),
					pos("c", domain.OutcomeNo, 30),
				},
			},
			want:  ReliabilityBreakdown{WinRate: 23, PnL: 25, Diversification: 17, DataConfidence: 15},
			score: 80,
			tier:  ReliabilityReliable,
		},
		{
			name: "leaderboard fallback",
			profile: TraderProfile{
				Address: "0x3", Rank: 10, LeaderboardPnL: 1e6,
				Positions: []domain.Position{pos("a", domain.OutcomeYes, 100)},
			},
			want:  ReliabilityBreakdown{WinRate: 3, PnL: 15, Diversification: 0, DataConfidence: 5},
			score: 23,
			tier:  ReliabilityUnproven,
		},
		{
			name: "hedged book",
			profile: TraderProfile{
				Address: "0x4", Resolved: 20, Wins: 13, RealizedPnL: 999,
				Positions: []domain.Position{
					pos("a", domain.OutcomeYes, 50),
					pos("a", domain.OutcomeNo, 50),
				},
			},
			// win rate 0.65, pnl log10(1000)/5
			want:  ReliabilityBreakdown{WinRate: 17, PnL: 15, Diversification: 20, DataConfidence: 10},
			score: 62,
			tier:  ReliabilityModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreTrader(tt.profile)
			assert.Equal(t, tt.want, got.Breakdown)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.tier, got.Tier)
		})
	}
}

func TestWinRateSampleDiscount(t *testing.T) {
	tests := []struct {
		resolved int
		want     int
	}{
		{4, 20},
		{8, 30},
		{10, 40},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, winRateComponent(1, tt.resolved), "resolved %d", tt.resolved)
	}
}

func TestDiversificationComponent(t *testing.T) {
	tests := []struct {
		name          string
		concentration float64
		hedged        bool
		want          int
	}{
		{"index-like", 10, false, 11},
		{"lower edge of peak", 15, false, 17},
		{"upper edge of peak", 50, false, 17},
		{"single bet", 100, false, 0},
		{"concentrated", 75, false, 9},
		{"hedge bonus is capped", 30, true, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diversificationComponent(tt.concentration, true, tt.hedged))
		})
	}
}

func TestReliabilityTierFor(t *testing.T) {
	assert.Equal(t, ReliabilityReliable, ReliabilityTierFor(65))
	assert.Equal(t, ReliabilityModerate, ReliabilityTierFor(64))
	assert.Equal(t, ReliabilityModerate, ReliabilityTierFor(35))
	assert.Equal(t, ReliabilityUnproven, ReliabilityTierFor(34))
}
