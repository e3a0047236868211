// Package intel scans the top holders of one market and aggregates their
// wallet classifications into capital-flow, smart-money and risk signals.
package intel

import (
	"errors"
	"time"

	"github.com/liamashdown/agentlens/internal/scorer"
)

// ErrMarketNotFound is returned when the provider reports no holders
var ErrMarketNotFound = errors.New("market not found: no holders returned")

// ErrNoActivity is returned when the provider answers without wallet activity
var ErrNoActivity = errors.New("no wallet activity returned")

// Direction is where agent capital leans
type Direction string

const (
	DirectionYes      Direction = "Yes"
	DirectionNo       Direction = "No"
	DirectionDivided  Direction = "Divided"
	DirectionNoSignal Direction = "No Signal"
)

// SmartMoney is the agent-capital direction and the share backing it
type SmartMoney struct {
	Direction  Direction `json:"direction"`
	Percentage int       `json:"percentage"`
}

// Capital splits holder capital per outcome into agent and human totals
type Capital struct {
	YesAgent float64 `json:"yesAgent"`
	YesHuman float64 `json:"yesHuman"`
	NoAgent  float64 `json:"noAgent"`
	NoHuman  float64 `json:"noHuman"`
}

// TierCounts tallies classifications across scanned holders
type TierCounts struct {
	Human     int `json:"human"`
	Mixed     int `json:"mixed"`
	LikelyBot int `json:"likelyBot"`
	Bot       int `json:"bot"`
}

// Agents is the number of bot and likely-bot holders
func (c TierCounts) Agents() int {
	return c.Bot + c.LikelyBot
}

// DeepAnalysisResult is the value object produced by one market scan.
// TotalHolders counts the holders the provider returned, which is bounded by
// the provider request limit and is not the market's full holder count.
// ScannedHolders counts the wallets that were deep-scanned successfully.
type DeepAnalysisResult struct {
	MarketID         string                      `json:"marketId"`
	TotalHolders     int                         `json:"totalHolders"`
	ScannedHolders   int                         `json:"scannedHolders"`
	Classifications  TierCounts                  `json:"classifications"`
	AgentRate        int                         `json:"agentRate"`
	StrategyCounts   map[scorer.StrategyType]int `json:"strategyCounts"`
	DominantStrategy scorer.StrategyType         `json:"dominantStrategy,omitempty"`
	Capital          Capital                     `json:"capital"`
	SmartMoney       SmartMoney                  `json:"smartMoney"`
	RedFlags         []RedFlag                   `json:"redFlags"`
	Recommendation   string                      `json:"recommendation"`
	Tags             []string                    `json:"tags"`
	Holders          []scorer.Result             `json:"holders"`
	SignalHash       string                      `json:"signalHash"`
	ScannedAt        time.Time                   `json:"scannedAt"`
}

// RedFlagMessages returns the flags as display strings, in order
func (r *DeepAnalysisResult) RedFlagMessages() []string {
	out := make([]string, len(r.RedFlags))
	for i, f := range r.RedFlags {
		out[i] = f.Message
	}
	return out
}
