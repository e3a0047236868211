package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/consensus"
	"github.com/liamashdown/agentlens/internal/convergence"
	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/metrics"
	"github.com/liamashdown/agentlens/internal/polymarket/dataapi"
	"github.com/liamashdown/agentlens/internal/polymarket/gammaapi"
	"github.com/liamashdown/agentlens/internal/storage"
)

// minYieldPrice is the price from which a side counts as near-certain
const minYieldPrice = 0.95

// SmartMoneyReport is one pass of the leaderboard consensus scan
type SmartMoneyReport struct {
	GeneratedAt time.Time                      `json:"generatedAt"`
	Cached      bool                           `json:"cached"`
	TraderCount int                            `json:"traderCount"`
	Markets     []consensus.SmartMoneyMarket   `json:"markets"`
	Scores      []convergence.ConvergenceScore `json:"scores"`
	Signals     []convergence.AlphaSignal      `json:"signals"`
	Traders     []convergence.TraderScore      `json:"traders"`
}

// trackedTrader is one leaderboard wallet with its fetched history
type trackedTrader struct {
	consensus consensus.Trader
	profile   convergence.TraderProfile
	portfolio float64
}

// ScanSmartMoney builds the cross-trader consensus of the leaderboard, scores
// each market's convergence and detects alpha signals. A snapshot younger
// than the cache TTL is served instead of rescanning.
func (p *Processor) ScanSmartMoney(ctx context.Context) (*SmartMoneyReport, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	now := p.now()

	if cached := p.cachedReport(ctx, now); cached != nil {
		return cached, nil
	}

	entries, err := p.data.GetLeaderboard(ctx, p.cfg.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	traders := p.fetchTraders(ctx, entries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cohort := make([]consensus.Trader, len(traders))
	for i, t := range traders {
		cohort[i] = t.consensus
	}
	markets := consensus.Aggregate(cohort, consensus.Options{DustThreshold: p.cfg.DustThresholdUSD})

	ids := make([]string, len(markets))
	for i, m := range markets {
		ids[i] = m.MarketID
	}
	openInterest := map[string]float64{}
	if len(ids) > 0 {
		oi, err := p.data.GetOpenInterest(ctx, ids)
		if err != nil {
			p.log.WithError(err).Warn("Failed to fetch open interest")
		} else {
			openInterest = oi
		}
	}

	trades := p.fetchWhaleTrades(ctx, ids, traders)
	scores := scoreMarkets(markets, trades, openInterest, traders, now)

	signals := convergence.DetectAlpha(convergence.AlphaInput{
		Markets:      markets,
		Trades:       trades,
		OpenInterest: openInterest,
		Yield:        p.yieldOpportunities(ctx),
		Now:          now,
	})
	for _, s := range signals {
		metrics.RecordAlphaSignal(string(s.Kind))
	}

	report := &SmartMoneyReport{
		GeneratedAt: now,
		TraderCount: len(traders),
		Markets:     markets,
		Scores:      scores,
		Signals:     signals,
		Traders:     scoreTraders(traders),
	}

	p.persistReport(ctx, report, traders)
	p.dispatchAlerts(ctx, report)

	p.log.WithFields(logrus.Fields{
		"traders": report.TraderCount,
		"markets": len(report.Markets),
		"signals": len(report.Signals),
	}).Info("Smart money scan complete")

	return report, nil
}

func (p *Processor) cachedReport(ctx context.Context, now time.Time) *SmartMoneyReport {
	snap, err := p.store.LatestConsensusSnapshot(ctx, now.Add(-p.cfg.ConsensusCacheTTL).Unix())
	if err != nil {
		p.log.WithError(err).Warn("Failed to read consensus cache")
	}
	if snap == nil {
		metrics.RecordCacheLookup(false)
		return nil
	}

	var report SmartMoneyReport
	if err := json.Unmarshal([]byte(snap.Body), &report); err != nil {
		p.log.WithError(err).WithField("snapshot_id", snap.ID).Warn("Discarding unreadable consensus snapshot")
		metrics.RecordCacheLookup(false)
		return nil
	}
	metrics.RecordCacheLookup(true)
	report.Cached = true
	return &report
}

// fetchTraders loads positions and resolved history for each leaderboard
// wallet. A wallet whose positions cannot be fetched is skipped.
func (p *Processor) fetchTraders(ctx context.Context, entries []dataapi.LeaderboardEntry) []trackedTrader {
	results := make([]*trackedTrader, len(entries))

	p.forEach(ctx, len(entries), func(i int) {
		e := entries[i]
		start := time.Now()

		positions, err := p.data.GetPositions(ctx, e.ProxyWallet)
		if err != nil {
			metrics.RecordWalletScan(time.Since(start), err)
			p.log.WithError(err).WithField("wallet", e.ProxyWallet).Warn("Failed to fetch trader positions")
			return
		}
		closed, err := p.data.GetClosedPositions(ctx, e.ProxyWallet, closedPositionLimit)
		if err != nil {
			// Resolved history only feeds reliability; keep the trader
			p.log.WithError(err).WithField("wallet", e.ProxyWallet).Warn("Failed to fetch closed positions")
		}
		metrics.RecordWalletScan(time.Since(start), nil)

		results[i] = newTrackedTrader(e, dataapi.ToDomainPositions(positions), dataapi.ToDomainClosed(closed))
	})

	var out []trackedTrader
	for _, t := range results {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}

func newTrackedTrader(e dataapi.LeaderboardEntry, positions []domain.Position, closed []domain.ClosedPosition) *trackedTrader {
	t := &trackedTrader{
		consensus: consensus.Trader{
			Address:   e.ProxyWallet,
			Name:      e.UserName,
			Rank:      int(e.Rank),
			PnL:       e.PnL,
			Volume:    e.Volume,
			Positions: positions,
		},
		profile: convergence.TraderProfile{
			Address:        e.ProxyWallet,
			Name:           e.UserName,
			Rank:           int(e.Rank),
			LeaderboardPnL: e.PnL,
			Resolved:       len(closed),
			Positions:      positions,
		},
	}
	for _, c := range closed {
		t.profile.RealizedPnL += c.RealizedPnL
		if c.Won {
			t.profile.Wins++
		}
	}
	for _, pos := range positions {
		t.portfolio += pos.Value()
	}
	return t
}

// fetchWhaleTrades collects the recent trades tracked traders made on the
// consensus markets
func (p *Processor) fetchWhaleTrades(ctx context.Context, marketIDs []string, traders []trackedTrader) []convergence.WhaleTrade {
	byWallet := make(map[string]trackedTrader, len(traders))
	for _, t := range traders {
		byWallet[strings.ToLower(t.consensus.Address)] = t
	}

	var mu sync.Mutex
	var out []convergence.WhaleTrade

	p.forEach(ctx, len(marketIDs), func(i int) {
		trades, err := p.data.GetMarketTrades(ctx, marketIDs[i], marketTradeLimit)
		if err != nil {
			p.log.WithError(err).WithField("condition_id", marketIDs[i]).Warn("Failed to fetch market trades")
			return
		}
		var found []convergence.WhaleTrade
		for _, tr := range trades {
			t, ok := byWallet[strings.ToLower(tr.ProxyWallet)]
			if !ok {
				continue
			}
			found = append(found, toWhaleTrade(tr, t))
		}
		mu.Lock()
		out = append(out, found...)
		mu.Unlock()
	})

	// Fetch order is nondeterministic
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].MarketID != out[j].MarketID {
			return out[i].MarketID < out[j].MarketID
		}
		return out[i].Trader < out[j].Trader
	})
	return out
}

func toWhaleTrade(tr dataapi.Trade, t trackedTrader) convergence.WhaleTrade {
	value := tr.Notional()
	var conviction float64
	if t.portfolio > 0 {
		conviction = value / t.portfolio * 100
	}
	return convergence.WhaleTrade{
		Trader:     t.consensus.DisplayName(),
		MarketID:   tr.ConditionID,
		Side:       domain.Side(strings.ToUpper(tr.Side)),
		Outcome:    domain.ParseOutcome(tr.Outcome),
		Value:      value,
		Conviction: conviction,
		Timestamp:  time.Unix(tr.Timestamp, 0).UTC(),
	}
}

func scoreMarkets(markets []consensus.SmartMoneyMarket, trades []convergence.WhaleTrade, oi map[string]float64, traders []trackedTrader, now time.Time) []convergence.ConvergenceScore {
	profiles := make(map[string]convergence.TraderProfile, len(traders))
	for _, t := range traders {
		profiles[t.profile.Address] = t.profile
	}

	scores := make([]convergence.ConvergenceScore, 0, len(markets))
	for _, m := range markets {
		var records []convergence.TraderRecord
		seen := make(map[string]bool)
		for _, tp := range m.Traders {
			if seen[tp.Address] {
				continue
			}
			seen[tp.Address] = true
			prof := profiles[tp.Address]
			rec := convergence.TraderRecord{
				Address:     tp.Address,
				Resolved:    prof.Resolved,
				RealizedPnL: prof.RealizedPnL,
			}
			if prof.Resolved > 0 {
				rec.WinRate = float64(prof.Wins) / float64(prof.Resolved)
			}
			records = append(records, rec)
		}

		s := convergence.Score(convergence.Input{
			Market:       m,
			Trades:       trades,
			OpenInterest: oi[m.MarketID],
			Traders:      records,
			Now:          now,
		})
		metrics.RecordConvergenceScore(s.Total)
		scores = append(scores, s)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Total > scores[j].Total
	})
	return scores
}

func scoreTraders(traders []trackedTrader) []convergence.TraderScore {
	out := make([]convergence.TraderScore, len(traders))
	for i, t := range traders {
		out[i] = convergence.ScoreTrader(t.profile)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// yieldOpportunities lists active markets where one side trades close to
// certain, with the return of buying that side at its price
func (p *Processor) yieldOpportunities(ctx context.Context) []convergence.YieldOpportunity {
	list, err := p.markets.ListActiveMarkets(ctx, yieldScanLimit)
	if err != nil {
		p.log.WithError(err).Warn("Failed to list active markets")
		return nil
	}
	return findYield(list)
}

func findYield(list []gammaapi.Market) []convergence.YieldOpportunity {
	var out []convergence.YieldOpportunity
	for _, m := range list {
		yes, no, err := m.Prices()
		if err != nil {
			continue
		}
		side, price := domain.OutcomeYes, yes
		if no > yes {
			side, price = domain.OutcomeNo, no
		}
		if price < minYieldPrice || price >= 1 {
			continue
		}
		out = append(out, convergence.YieldOpportunity{
			MarketID:  m.ConditionID,
			SafeSide:  side,
			ReturnPct: (1 - price) / price * 100,
		})
	}
	return out
}

func (p *Processor) persistReport(ctx context.Context, r *SmartMoneyReport, traders []trackedTrader) {
	body, err := json.Marshal(r)
	if err != nil {
		p.log.WithError(err).Error("Failed to marshal smart money report")
		return
	}

	var capital float64
	for _, m := range r.Markets {
		capital += m.TotalCapital
	}
	snap := &storage.ConsensusSnapshot{
		MarketCount:  len(r.Markets),
		TraderCount:  r.TraderCount,
		TotalCapital: decimal.NewFromFloat(capital).Round(6),
		Body:         string(body),
		CreatedTS:    r.GeneratedAt.Unix(),
	}
	if err := p.store.SaveConsensusSnapshot(ctx, snap); err != nil {
		p.log.WithError(err).Error("Failed to store consensus snapshot")
	}

	byAddress := make(map[string]convergence.TraderProfile, len(traders))
	for _, t := range traders {
		byAddress[t.profile.Address] = t.profile
	}
	rows := make([]storage.TraderScore, len(r.Traders))
	for i, t := range r.Traders {
		prof := byAddress[t.Address]
		rows[i] = storage.TraderScore{
			WalletAddress: t.Address,
			Name:          t.Name,
			Rank:          prof.Rank,
			Score:         t.Score,
			Tier:          string(t.Tier),
			WinRate:       decimal.NewFromFloat(t.WinRate).Round(4),
			PnLUSD:        decimal.NewFromFloat(prof.LeaderboardPnL).Round(6),
			UpdatedTS:     r.GeneratedAt.Unix(),
		}
	}
	if err := p.store.UpsertTraderScores(ctx, rows); err != nil {
		p.log.WithError(err).Error("Failed to store trader scores")
	}
}
