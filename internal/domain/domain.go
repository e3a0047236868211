// Package domain holds the value records exchanged between the market data
// provider and the scoring pipeline. Records are immutable snapshots: they are
// built once per scan and never mutated downstream.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome is one side of a binary market
type Outcome string

const (
	OutcomeYes Outcome = "Yes"
	OutcomeNo  Outcome = "No"
)

// ParseOutcome normalizes provider spellings ("YES", "yes", " No ") to the
// canonical binary outcomes. Named outcomes of multi-outcome markets are kept
// as-is after trimming.
func ParseOutcome(s string) Outcome {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "yes":
		return OutcomeYes
	case "no":
		return OutcomeNo
	}
	return Outcome(trimmed)
}

// Opposite returns the other side of a binary outcome
func (o Outcome) Opposite() Outcome {
	switch o {
	case OutcomeYes:
		return OutcomeNo
	case OutcomeNo:
		return OutcomeYes
	}
	return ""
}

// Trade is a single fill in a wallet's history
type Trade struct {
	Timestamp time.Time
	Side      Side
	MarketID  string
	Category  string
	Outcome   Outcome
	Size      float64
	Price     float64
}

// Notional returns the trade value in USDC
func (t Trade) Notional() float64 {
	return t.Size * t.Price
}

// NewTrade builds a Trade from raw provider fields, rejecting malformed input.
func NewTrade(ts int64, side, marketID, outcome string, size, price float64) (Trade, error) {
	s := Side(strings.ToUpper(strings.TrimSpace(side)))
	if s != SideBuy && s != SideSell {
		return Trade{}, fmt.Errorf("invalid trade side %q", side)
	}
	if marketID == "" {
		return Trade{}, fmt.Errorf("trade missing market id")
	}
	if size < 0 {
		return Trade{}, fmt.Errorf("negative trade size %f", size)
	}
	if price < 0 || price > 1 {
		return Trade{}, fmt.Errorf("trade price %f outside [0,1]", price)
	}
	return Trade{
		Timestamp: time.Unix(ts, 0).UTC(),
		Side:      s,
		MarketID:  marketID,
		Outcome:   ParseOutcome(outcome),
		Size:      size,
		Price:     price,
	}, nil
}

// MergeKind distinguishes conditional-token recombination events
type MergeKind string

const (
	MergeKindMerge MergeKind = "MERGE"
	MergeKindSplit MergeKind = "SPLIT"
)

// Merge is a split or merge of outcome tokens
type Merge struct {
	Timestamp time.Time
	Kind      MergeKind
	MarketID  string
	Size      float64
}

// Position is an open position held by a wallet
type Position struct {
	MarketID    string
	Title       string
	Outcome     Outcome
	Size        float64
	AvgPrice    float64
	CurPrice    float64
	RealizedPnL float64
}

// Cost is the capital paid to open the position
func (p Position) Cost() float64 {
	return p.Size * p.AvgPrice
}

// Value is the position marked at the current price
func (p Position) Value() float64 {
	return p.Size * p.CurPrice
}

// ClosedPosition is a resolved position used for win-rate statistics
type ClosedPosition struct {
	MarketID    string
	Outcome     Outcome
	RealizedPnL float64
	Won         bool
}

// WalletActivity is one wallet's fetched history. It is fetched fresh for every
// scan and never cached across scans.
type WalletActivity struct {
	Address   string
	Pseudonym string
	Trades    []Trade
	Merges    []Merge
	Positions []Position
	Closed    []ClosedPosition
}

// WinRate returns the resolved win rate and the number of resolved positions.
// The rate is 0 when nothing has resolved; callers decide the neutral default.
func (a *WalletActivity) WinRate() (float64, int) {
	if len(a.Closed) == 0 {
		return 0, 0
	}
	wins := 0
	for _, c := range a.Closed {
		if c.Won {
			wins++
		}
	}
	return float64(wins) / float64(len(a.Closed)), len(a.Closed)
}

// Holder is one entry of a market's ranked holder list
type Holder struct {
	Address   string
	Pseudonym string
	Outcome   Outcome
	Amount    float64
}

// Market is the live snapshot of a binary market
type Market struct {
	ConditionID  string
	Title        string
	Slug         string
	Category     string
	YesPrice     float64
	NoPrice      float64
	Volume       float64
	OpenInterest float64
}
