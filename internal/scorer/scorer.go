// Package scorer classifies a single wallet as human or automated from its
// trade, merge and position history, and tags the strategy it appears to run.
package scorer

import (
	"github.com/liamashdown/agentlens/internal/domain"
)

// Tier is the bot classification bucket
type Tier string

const (
	TierHuman     Tier = "human"
	TierMixed     Tier = "mixed"
	TierLikelyBot Tier = "likely-bot"
	TierBot       Tier = "bot"
)

// IsAgent reports whether the tier counts as an automated agent
func (t Tier) IsAgent() bool {
	return t == TierBot || t == TierLikelyBot
}

// Classify maps a bot score to its tier. Boundaries belong to the higher tier.
func Classify(score int) Tier {
	switch {
	case score >= 80:
		return TierBot
	case score >= 60:
		return TierLikelyBot
	case score >= 40:
		return TierMixed
	}
	return TierHuman
}

// Context is the market context a wallet is scored in
type Context struct {
	MarketID     string
	Side         domain.Outcome
	PositionSize float64
	MarketVolume float64
}

// Result is the BotDetectionResult for one wallet in one scan
type Result struct {
	Address      string         `json:"address"`
	Pseudonym    string         `json:"pseudonym"`
	Side         domain.Outcome `json:"side"`
	PositionSize float64        `json:"positionSize"`
	BotScore     int            `json:"botScore"`
	Tier         Tier           `json:"classification"`
	Strategy     Strategy       `json:"strategy"`
	Signals      Signals        `json:"signals"`
	TradeCount   int            `json:"tradeCount"`
	MergeCount   int            `json:"mergeCount"`
	ActiveHours  int            `json:"activeHours"`
	BothSidesPct float64        `json:"bothSidesPct"`
	GhostMode    bool           `json:"ghostMode"`
}

// Scorer computes BotDetectionResults. It is stateless and safe for
// concurrent use.
type Scorer struct {
	weights Weights
}

// New creates a scorer with the default weights
func New() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// NewWithWeights creates a scorer with custom signal weights
func NewWithWeights(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score evaluates one wallet's activity in the given market context
func (s *Scorer) Score(a *domain.WalletActivity, ctx Context) Result {
	signals := ComputeSignals(a, ctx)
	ghost := signals.GhostWhale > 0

	pct := 0.0
	if !ghost {
		pct = bothSidesPct(a.Positions, ctx.MarketID)
	}
	score := Aggregate(signals, s.weights, pct)

	return Result{
		Address:      a.Address,
		Pseudonym:    displayName(a),
		Side:         ctx.Side,
		PositionSize: ctx.PositionSize,
		BotScore:     score,
		Tier:         Classify(score),
		Strategy:     ClassifyStrategy(a),
		Signals:      signals,
		TradeCount:   len(a.Trades),
		MergeCount:   len(a.Merges),
		ActiveHours:  activeHours(a.Trades),
		BothSidesPct: round2(pct),
		GhostMode:    ghost,
	}
}

func displayName(a *domain.WalletActivity) string {
	if a.Pseudonym != "" {
		return a.Pseudonym
	}
	return ShortenAddress(a.Address)
}

// ShortenAddress renders 0x1234...abcd style addresses
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
