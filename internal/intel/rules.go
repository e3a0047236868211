package intel

import (
	"fmt"

	"github.com/liamashdown/agentlens/internal/scorer"
)

// ghostFlagThreshold is the ghost-whale signal above which a holder is flagged
const ghostFlagThreshold = 60

// FlagCode identifies a red flag
type FlagCode string

const (
	FlagHighAgentConcentration FlagCode = "HIGH_AGENT_CONCENTRATION"
	FlagModerateAgentPresence  FlagCode = "MODERATE_AGENT_PRESENCE"
	FlagSmartMoneyDivided      FlagCode = "SMART_MONEY_DIVIDED"
	FlagConfirmedBots          FlagCode = "CONFIRMED_BOTS"
	FlagGhostWhale             FlagCode = "GHOST_WHALE"
	FlagLatencyArbitrage       FlagCode = "LATENCY_ARBITRAGE"
)

// Severity weights a flag for downstream risk penalties
func (c FlagCode) Severity() float64 {
	switch c {
	case FlagHighAgentConcentration, FlagGhostWhale:
		return 2
	case FlagSmartMoneyDivided, FlagLatencyArbitrage:
		return 1.5
	}
	return 1
}

// RedFlag is one risk observation about a market's holders
type RedFlag struct {
	Code    FlagCode `json:"code"`
	Message string   `json:"message"`
}

// facts are the aggregate observations the rule lists read
type facts struct {
	agentRate  int
	bots       int
	snipers    int
	ghosts     int
	smartMoney SmartMoney
	dominant   scorer.StrategyType
}

func collectFacts(r *DeepAnalysisResult) facts {
	f := facts{
		agentRate:  r.AgentRate,
		bots:       r.Classifications.Bot,
		snipers:    r.StrategyCounts[scorer.StrategySniper],
		smartMoney: r.SmartMoney,
		dominant:   r.DominantStrategy,
	}
	for _, h := range r.Holders {
		if h.Signals.GhostWhale > ghostFlagThreshold {
			f.ghosts++
		}
	}
	return f
}

func (f facts) hasDirection() bool {
	return f.smartMoney.Direction == DirectionYes || f.smartMoney.Direction == DirectionNo
}

type flagRule struct {
	code    FlagCode
	applies func(f facts) bool
	message func(f facts) string
}

// flagRules are evaluated independently; every applicable flag is emitted.
var flagRules = []flagRule{
	{
		code:    FlagHighAgentConcentration,
		applies: func(f facts) bool { return f.agentRate >= 60 },
		message: func(f facts) string {
			return fmt.Sprintf("High agent concentration: %d%% of top holders are automated", f.agentRate)
		},
	},
	{
		code:    FlagModerateAgentPresence,
		applies: func(f facts) bool { return f.agentRate >= 30 && f.agentRate < 60 },
		message: func(f facts) string {
			return fmt.Sprintf("Moderate agent presence: %d%% of top holders are automated", f.agentRate)
		},
	},
	{
		code:    FlagSmartMoneyDivided,
		applies: func(f facts) bool { return f.smartMoney.Direction == DirectionDivided },
		message: func(facts) string {
			return "Smart money divided: agents hold both sides with no clear majority"
		},
	},
	{
		code:    FlagConfirmedBots,
		applies: func(f facts) bool { return f.bots >= 3 },
		message: func(f facts) string {
			return fmt.Sprintf("%d confirmed bots among top holders", f.bots)
		},
	},
	{
		code:    FlagGhostWhale,
		applies: func(f facts) bool { return f.ghosts > 0 },
		message: func(f facts) string {
			return fmt.Sprintf("Ghost whale: %d large holder(s) with no trade history", f.ghosts)
		},
	},
	{
		code:    FlagLatencyArbitrage,
		applies: func(f facts) bool { return f.snipers >= 2 },
		message: func(f facts) string {
			return fmt.Sprintf("Latency arbitrage: %d snipers among top holders", f.snipers)
		},
	},
}

// redFlags evaluates every flag rule
func redFlags(f facts) []RedFlag {
	flags := []RedFlag{}
	for _, rule := range flagRules {
		if rule.applies(f) {
			flags = append(flags, RedFlag{Code: rule.code, Message: rule.message(f)})
		}
	}
	return flags
}

type recommendationRule struct {
	applies func(f facts, flagCount int) bool
	text    func(f facts) string
}

// recommendationRules are evaluated top to bottom; the first match wins.
var recommendationRules = []recommendationRule{
	{
		applies: func(f facts, flags int) bool { return f.agentRate < 20 && flags == 0 },
		text:    func(facts) string { return "Low risk: human-driven market with no agent red flags" },
	},
	{
		applies: func(f facts, _ int) bool { return f.agentRate < 40 },
		text: func(facts) string {
			return "Some agent activity: check that your thesis aligns with the automated flow"
		},
	},
	{
		applies: func(f facts, _ int) bool { return f.smartMoney.Direction == DirectionDivided },
		text:    func(facts) string { return "High uncertainty: agents are divided, consider waiting" },
	},
	{
		applies: func(f facts, _ int) bool { return f.hasDirection() },
		text: func(f facts) string {
			return fmt.Sprintf("Agents favor %s (%d%% of agent capital): proceed aware of automated flow",
				f.smartMoney.Direction, f.smartMoney.Percentage)
		},
	},
	{
		applies: func(facts, int) bool { return true },
		text:    func(facts) string { return "High agent concentration with no clear direction: caution" },
	},
}

// recommend returns the first matching recommendation
func recommend(f facts, flagCount int) string {
	for _, rule := range recommendationRules {
		if rule.applies(f, flagCount) {
			return rule.text(f)
		}
	}
	return ""
}

type tagRule struct {
	applies func(f facts) bool
	tag     func(f facts) string
}

// participationTag yields exactly one participation tag
func participationTag(f facts) string {
	switch {
	case f.agentRate >= 50:
		return "Bot-Heavy"
	case f.agentRate >= 20:
		return "Mixed Participation"
	}
	return "Human-Driven"
}

var tagRules = []tagRule{
	{applies: func(facts) bool { return true }, tag: participationTag},
	{
		applies: func(f facts) bool { return f.dominant != "" },
		tag:     func(f facts) string { return f.dominant.Label() },
	},
	{
		applies: func(f facts) bool { return f.hasDirection() },
		tag:     func(f facts) string { return "Smart Money: " + string(f.smartMoney.Direction) },
	},
	{
		applies: func(f facts) bool { return f.ghosts > 0 },
		tag:     func(facts) string { return "Ghost Whale" },
	},
}

// buildTags builds the market tag list
func buildTags(f facts) []string {
	var tags []string
	for _, rule := range tagRules {
		if rule.applies(f) {
			tags = append(tags, rule.tag(f))
		}
	}
	return tags
}
