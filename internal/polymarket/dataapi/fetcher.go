package dataapi

import (
	"context"
	"fmt"
	"time"

	"github.com/liamashdown/agentlens/internal/domain"
)

const (
	defaultTradeLimit  = 500
	defaultClosedLimit = 200
)

// ActivityFetcher assembles one wallet's trades, merges, positions and
// resolved history from the Data API
type ActivityFetcher struct {
	client      *Client
	tradeLimit  int
	closedLimit int
}

// NewActivityFetcher creates a fetcher backed by the Data API client
func NewActivityFetcher(client *Client) *ActivityFetcher {
	return &ActivityFetcher{
		client:      client,
		tradeLimit:  defaultTradeLimit,
		closedLimit: defaultClosedLimit,
	}
}

// FetchActivity fetches everything the wallet scorer needs for one address.
// Any failed request or malformed record fails the whole wallet.
func (f *ActivityFetcher) FetchActivity(ctx context.Context, address string) (*domain.WalletActivity, error) {
	trades, err := f.client.GetTrades(ctx, TradeParams{User: address, Limit: f.tradeLimit})
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	events, err := f.client.GetActivity(ctx, address, []string{ActivityMerge, ActivitySplit}, f.tradeLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch merges: %w", err)
	}
	positions, err := f.client.GetPositions(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	closed, err := f.client.GetClosedPositions(ctx, address, f.closedLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch closed positions: %w", err)
	}

	activity := &domain.WalletActivity{
		Address:   address,
		Positions: ToDomainPositions(positions),
		Closed:    ToDomainClosed(closed),
	}
	for _, t := range trades {
		if activity.Pseudonym == "" {
			activity.Pseudonym = firstNonEmpty(t.Name, t.Pseudonym)
		}
		dt, err := domain.NewTrade(t.Timestamp, t.Side, t.ConditionID, t.Outcome, t.Size, t.Price)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.TransactionHash, err)
		}
		dt.Category = t.EventSlug
		activity.Trades = append(activity.Trades, dt)
	}
	for _, e := range events {
		kind := domain.MergeKind(e.Type)
		if kind != domain.MergeKindMerge && kind != domain.MergeKindSplit {
			continue
		}
		activity.Merges = append(activity.Merges, domain.Merge{
			Timestamp: time.Unix(e.Timestamp, 0).UTC(),
			Kind:      kind,
			MarketID:  e.ConditionID,
			Size:      e.Size,
		})
	}
	return activity, nil
}

// ToDomainPositions converts open positions, dropping empty ones
func ToDomainPositions(positions []Position) []domain.Position {
	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		out = append(out, domain.Position{
			MarketID:    p.ConditionID,
			Title:       p.Title,
			Outcome:     domain.ParseOutcome(p.Outcome),
			Size:        p.Size,
			AvgPrice:    p.AvgPrice,
			CurPrice:    p.CurPrice,
			RealizedPnL: p.RealizedPnL,
		})
	}
	return out
}

// ToDomainClosed converts resolved positions; a position won if it realized a profit
func ToDomainClosed(closed []ClosedPosition) []domain.ClosedPosition {
	out := make([]domain.ClosedPosition, 0, len(closed))
	for _, c := range closed {
		out = append(out, domain.ClosedPosition{
			MarketID:    c.ConditionID,
			Outcome:     domain.ParseOutcome(c.Outcome),
			RealizedPnL: c.RealizedPnL,
			Won:         c.RealizedPnL > 0,
		})
	}
	return out
}

// ToDomainHolders flattens per-token holder lists. Outcome index 0 is Yes.
func ToDomainHolders(groups []HolderGroup) []domain.Holder {
	var out []domain.Holder
	for _, g := range groups {
		for _, h := range g.Holders {
			outcome := domain.OutcomeYes
			if h.OutcomeIndex == 1 {
				outcome = domain.OutcomeNo
			}
			out = append(out, domain.Holder{
				Address:   h.ProxyWallet,
				Pseudonym: firstNonEmpty(h.Name, h.Pseudonym),
				Outcome:   outcome,
				Amount:    h.Amount,
			})
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
