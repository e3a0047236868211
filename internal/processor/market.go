package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/intel"
	"github.com/liamashdown/agentlens/internal/polymarket/dataapi"
	"github.com/liamashdown/agentlens/internal/probability"
	"github.com/liamashdown/agentlens/internal/storage"
)

// ErrInvalidBet is returned for a negative or non-finite stake
var ErrInvalidBet = errors.New("bet must be a finite non-negative number")

// MarketReport is the result of one deep market scan
type MarketReport struct {
	Market      domain.Market             `json:"market"`
	Bet         float64                   `json:"bet"`
	Analysis    *intel.DeepAnalysisResult `json:"analysis"`
	Probability probability.Result        `json:"probability"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

// AnalyzeMarket scans the top holders of a market, identified by condition
// ID or slug, and estimates the probability and stake for a bet.
func (p *Processor) AnalyzeMarket(ctx context.Context, ref string, bet float64) (*MarketReport, error) {
	if bet < 0 || math.IsNaN(bet) || math.IsInf(bet, 0) {
		return nil, ErrInvalidBet
	}
	now := p.now()

	market, err := p.resolveMarket(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve market %s: %w", ref, err)
	}

	groups, err := p.data.GetHolders(ctx, market.ConditionID, p.holderFetchLimit())
	if err != nil {
		return nil, fmt.Errorf("fetch holders: %w", err)
	}
	holders := holdersInUSD(dataapi.ToDomainHolders(groups), market)

	if oi, err := p.data.GetOpenInterest(ctx, []string{market.ConditionID}); err != nil {
		p.log.WithError(err).WithField("condition_id", market.ConditionID).Warn("Failed to fetch open interest")
	} else {
		market.OpenInterest = oi[market.ConditionID]
	}

	analysis, err := p.analyzer.Analyze(ctx, market, holders, now)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", market.ConditionID, err)
	}

	report := &MarketReport{
		Market:   market,
		Bet:      bet,
		Analysis: analysis,
		Probability: p.engine.Estimate(probability.Input{
			Analysis:     analysis,
			YesPrice:     market.YesPrice,
			NoPrice:      market.NoPrice,
			Bet:          bet,
			MarketVolume: market.Volume,
		}),
		GeneratedAt: now,
	}

	if err := p.saveMarketReport(ctx, report); err != nil {
		p.log.WithError(err).WithField("condition_id", market.ConditionID).Error("Failed to store market analysis")
	}

	p.log.WithFields(logrus.Fields{
		"condition_id": market.ConditionID,
		"scanned":      analysis.ScannedHolders,
		"agent_rate":   analysis.AgentRate,
		"smart_money":  analysis.SmartMoney.Direction,
		"red_flags":    len(analysis.RedFlags),
		"final_prob":   report.Probability.FinalProbability,
	}).Info("Market analyzed")

	return report, nil
}

// holderFetchLimit is how many holders are requested per outcome. It is wider
// than the deep-scan cap so TotalHolders counts more than the scanned wallets.
func (p *Processor) holderFetchLimit() int {
	if p.cfg.HolderFetchLimit > p.cfg.ScanHolderLimit {
		return p.cfg.HolderFetchLimit
	}
	return p.cfg.ScanHolderLimit
}

// resolveMarket treats 0x-prefixed references as condition IDs and anything
// else as a slug
func (p *Processor) resolveMarket(ctx context.Context, ref string) (domain.Market, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Market{}, intel.ErrMarketNotFound
	}

	lookup := p.markets.GetMarketBySlug
	if strings.HasPrefix(ref, "0x") {
		lookup = p.markets.GetMarketByConditionID
	}
	m, err := lookup(ctx, ref)
	if err != nil {
		return domain.Market{}, err
	}
	return m.ToDomain()
}

// holdersInUSD converts token amounts to dollar exposure at the current price
func holdersInUSD(holders []domain.Holder, market domain.Market) []domain.Holder {
	out := make([]domain.Holder, len(holders))
	for i, h := range holders {
		price := market.YesPrice
		if h.Outcome == domain.OutcomeNo {
			price = market.NoPrice
		}
		h.Amount *= price
		out[i] = h
	}
	return out
}

func (p *Processor) saveMarketReport(ctx context.Context, r *MarketReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	a := r.Analysis
	row := &storage.MarketAnalysis{
		ConditionID:         r.Market.ConditionID,
		MarketTitle:         r.Market.Title,
		SignalHash:          a.SignalHash,
		TotalHolders:        a.TotalHolders,
		ScannedHolders:      a.ScannedHolders,
		AgentRate:           a.AgentRate,
		SmartMoneyDirection: string(a.SmartMoney.Direction),
		SmartMoneyPct:       a.SmartMoney.Percentage,
		RedFlagCount:        len(a.RedFlags),
		Recommendation:      a.Recommendation,
		YesPrice:            decimal.NewFromFloat(r.Market.YesPrice),
		FinalProbability:    decimal.NewFromFloat(r.Probability.FinalProbability),
		Body:                string(body),
		CreatedTS:           r.GeneratedAt.Unix(),
	}

	wallets := make([]storage.WalletClassification, 0, len(a.Holders))
	for _, h := range a.Holders {
		wallets = append(wallets, storage.WalletClassification{
			WalletAddress:      h.Address,
			ConditionID:        r.Market.ConditionID,
			SignalHash:         a.SignalHash,
			Side:               string(h.Side),
			PositionUSD:        decimal.NewFromFloat(h.PositionSize).Round(6),
			BotScore:           h.BotScore,
			Tier:               string(h.Tier),
			Strategy:           string(h.Strategy.Type),
			StrategyConfidence: h.Strategy.Confidence,
			GhostMode:          h.GhostMode,
			CreatedTS:          r.GeneratedAt.Unix(),
		})
	}
	return p.store.SaveMarketAnalysis(ctx, row, wallets)
}
