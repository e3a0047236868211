// Package probability turns a market deep scan and live prices into an
// estimated win probability, a recommended side and a Kelly-sized stake.
package probability

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/intel"
)

// Confidence is how much the estimate should be trusted
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Config tunes the engine
type Config struct {
	MaxAgentAdjustment  float64 // points of probability at 100% smart money and agent rate
	MaxRedFlagPenalty   float64
	RedFlagPenaltyScale float64 // points per unit of flag severity
	ImpactThresholdPct  float64 // bet as a percent of volume before impact applies
	MaxImpactPenalty    float64
	NeutralBand         float64 // points around 50 with no recommended side
	KellyFraction       float64
}

// DefaultConfig returns the standard engine settings
func DefaultConfig() Config {
	return Config{
		MaxAgentAdjustment:  10,
		MaxRedFlagPenalty:   8,
		RedFlagPenaltyScale: 1.5,
		ImpactThresholdPct:  1,
		MaxImpactPenalty:    10,
		NeutralBand:         2,
		KellyFraction:       0.5,
	}
}

// Input is one stake being considered
type Input struct {
	Analysis     *intel.DeepAnalysisResult
	YesPrice     float64
	NoPrice      float64
	Bet          float64
	MarketVolume float64
}

// Result is the probability breakdown and sizing suggestion. The deltas sum
// with the implied probability to the final probability. RedFlagPenalty and
// ImpactPenalty shrink the estimate toward 50 without crossing it, so they
// are negative above 50 and positive below it.
type Result struct {
	ImpliedProbability float64         `json:"impliedProbability"`
	AgentAdjustment    float64         `json:"agentAdjustment"`
	RedFlagPenalty     float64         `json:"redFlagPenalty"`
	ImpactPenalty      float64         `json:"impactPenalty"`
	FinalProbability   float64         `json:"finalProbability"`
	Confidence         Confidence      `json:"confidence"`
	RecommendedSide    *domain.Outcome `json:"recommendedSide"`
	NoEdge             bool            `json:"noEdge"`
	KellyFraction      float64         `json:"kellyFraction"`
	SuggestedStake     decimal.Decimal `json:"suggestedStake"`
}

// Engine estimates probabilities
type Engine struct {
	cfg Config
}

// NewEngine creates a new engine, filling unset settings from DefaultConfig
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxAgentAdjustment <= 0 {
		cfg.MaxAgentAdjustment = def.MaxAgentAdjustment
	}
	if cfg.MaxRedFlagPenalty <= 0 {
		cfg.MaxRedFlagPenalty = def.MaxRedFlagPenalty
	}
	if cfg.RedFlagPenaltyScale <= 0 {
		cfg.RedFlagPenaltyScale = def.RedFlagPenaltyScale
	}
	if cfg.ImpactThresholdPct <= 0 {
		cfg.ImpactThresholdPct = def.ImpactThresholdPct
	}
	if cfg.MaxImpactPenalty <= 0 {
		cfg.MaxImpactPenalty = def.MaxImpactPenalty
	}
	if cfg.NeutralBand <= 0 {
		cfg.NeutralBand = def.NeutralBand
	}
	if cfg.KellyFraction <= 0 || cfg.KellyFraction > 1 {
		cfg.KellyFraction = def.KellyFraction
	}
	return &Engine{cfg: cfg}
}

// Estimate computes the probability breakdown for one stake.
// Non-finite prices and bets are treated as 0.
func (e *Engine) Estimate(in Input) Result {
	in.YesPrice = finiteOrZero(in.YesPrice)
	in.NoPrice = finiteOrZero(in.NoPrice)
	in.Bet = finiteOrZero(in.Bet)
	in.MarketVolume = finiteOrZero(in.MarketVolume)

	implied := clamp(in.YesPrice*100, 0, 100)
	res := Result{ImpliedProbability: round2(implied)}

	p := implied
	res.AgentAdjustment = e.agentAdjustment(in.Analysis)
	p = clamp(p+res.AgentAdjustment, 0, 100)

	severity := flagSeverity(in.Analysis)
	before := p
	p = towardFifty(p, math.Min(e.cfg.MaxRedFlagPenalty, severity*e.cfg.RedFlagPenaltyScale))
	res.RedFlagPenalty = p - before

	before = p
	p = towardFifty(p, e.impactMagnitude(in.Bet, in.MarketVolume))
	res.ImpactPenalty = p - before

	res.AgentAdjustment = round2(res.AgentAdjustment)
	res.RedFlagPenalty = round2(res.RedFlagPenalty)
	res.ImpactPenalty = round2(res.ImpactPenalty)
	res.FinalProbability = round2(p)

	distance := math.Abs(p - 50)
	res.Confidence = confidenceFor(distance, severity)

	res.SuggestedStake = decimal.Zero
	if distance <= e.cfg.NeutralBand {
		res.NoEdge = true
		return res
	}
	side := domain.OutcomeYes
	win, price := p/100, in.YesPrice
	if p < 50 {
		side = domain.OutcomeNo
		win, price = 1-p/100, in.NoPrice
		if price <= 0 {
			price = 1 - in.YesPrice
		}
	}
	res.RecommendedSide = &side
	res.KellyFraction = round4(kelly(win, price) * e.cfg.KellyFraction)
	res.SuggestedStake = stake(in.Bet, res.KellyFraction)
	return res
}

// agentAdjustment pushes toward the side agent capital favors, scaled by how
// one-sided that capital is and how many holders are agents
func (e *Engine) agentAdjustment(a *intel.DeepAnalysisResult) float64 {
	if a == nil {
		return 0
	}
	mag := e.cfg.MaxAgentAdjustment * float64(a.SmartMoney.Percentage) / 100 * float64(a.AgentRate) / 100
	switch a.SmartMoney.Direction {
	case intel.DirectionYes:
		return mag
	case intel.DirectionNo:
		return -mag
	}
	return 0
}

// impactMagnitude grows with the bet's share of market volume past the threshold
func (e *Engine) impactMagnitude(bet, volume float64) float64 {
	if bet <= 0 {
		return 0
	}
	if volume <= 0 {
		return e.cfg.MaxImpactPenalty
	}
	ratio := bet / volume * 100
	th := e.cfg.ImpactThresholdPct
	if ratio <= th {
		return 0
	}
	return math.Min(e.cfg.MaxImpactPenalty, (ratio-th)/th*2)
}

func flagSeverity(a *intel.DeepAnalysisResult) float64 {
	if a == nil {
		return 0
	}
	total := 0.0
	for _, f := range a.RedFlags {
		total += f.Code.Severity()
	}
	return total
}

func confidenceFor(distance, severity float64) Confidence {
	switch {
	case distance >= 15 && severity < 3:
		return ConfidenceHigh
	case distance >= 7 && severity < 5:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// kelly is the full-Kelly fraction for a binary contract bought at price
func kelly(win, price float64) float64 {
	if price <= 0 || price >= 1 {
		return 0
	}
	return clamp((win-price)/(1-price), 0, 1)
}

// stake sizes the bet to cents and never exceeds it
func stake(bet, fraction float64) decimal.Decimal {
	if bet <= 0 || fraction <= 0 || !isFinite(bet) || !isFinite(fraction) {
		return decimal.Zero
	}
	b := decimal.NewFromFloat(bet)
	s := b.Mul(decimal.NewFromFloat(fraction)).RoundDown(2)
	if s.GreaterThan(b) {
		return b
	}
	return s
}

// towardFifty moves p toward 50 by up to mag without crossing it
func towardFifty(p, mag float64) float64 {
	if mag <= 0 {
		return p
	}
	if p > 50 {
		return math.Max(50, p-mag)
	}
	return math.Min(50, p+mag)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
