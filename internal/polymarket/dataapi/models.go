package dataapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Trade represents a trade from the Data API
type Trade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY, SELL
	ConditionID     string  `json:"conditionId"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"` // Unix timestamp in seconds
	Outcome         string  `json:"outcome"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	EventSlug       string  `json:"eventSlug"`
	Name            string  `json:"name"`
	Pseudonym       string  `json:"pseudonym"`
	TransactionHash string  `json:"transactionHash"`
}

// Notional returns the USDC value of the trade
func (t Trade) Notional() float64 {
	return t.Size * t.Price
}

// Activity types
const (
	ActivityTrade  = "TRADE"
	ActivitySplit  = "SPLIT"
	ActivityMerge  = "MERGE"
	ActivityRedeem = "REDEEM"
)

// ActivityEvent represents an on-chain activity event for a wallet
type ActivityEvent struct {
	ProxyWallet string  `json:"proxyWallet"`
	Type        string  `json:"type"`
	ConditionID string  `json:"conditionId"`
	Size        float64 `json:"size"`
	USDCSize    float64 `json:"usdcSize"`
	Timestamp   int64   `json:"timestamp"`
}

// Position is an open position from /positions
type Position struct {
	ProxyWallet  string  `json:"proxyWallet"`
	ConditionID  string  `json:"conditionId"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurPrice     float64 `json:"curPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnL      float64 `json:"cashPnl"`
	RealizedPnL  float64 `json:"realizedPnl"`
}

// ClosedPosition is a resolved position from /closed-positions
type ClosedPosition struct {
	ConditionID string  `json:"conditionId"`
	Title       string  `json:"title"`
	Outcome     string  `json:"outcome"`
	AvgPrice    float64 `json:"avgPrice"`
	TotalBought float64 `json:"totalBought"`
	RealizedPnL float64 `json:"realizedPnl"`
	Timestamp   int64   `json:"timestamp"`
}

// HolderGroup is the holder list of one outcome token
type HolderGroup struct {
	Token   string   `json:"token"`
	Holders []Holder `json:"holders"`
}

// Holder is one wallet holding an outcome token
type Holder struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Name         string  `json:"name"`
	Pseudonym    string  `json:"pseudonym"`
	Amount       float64 `json:"amount"`
	OutcomeIndex int     `json:"outcomeIndex"`
}

// LeaderboardEntry is one ranked trader
type LeaderboardEntry struct {
	Rank        FlexInt `json:"rank"`
	ProxyWallet string  `json:"proxyWallet"`
	UserName    string  `json:"userName"`
	Volume      float64 `json:"vol"`
	PnL         float64 `json:"pnl"`
}

// OpenInterest is the open interest of one market
type OpenInterest struct {
	Market string  `json:"market"`
	Value  float64 `json:"value"`
}

// FlexInt decodes integers the API sometimes sends as strings
type FlexInt int

// UnmarshalJSON accepts 3, "3" and null
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode int from %s: %w", b, err)
	}
	*f = FlexInt(v)
	return nil
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
