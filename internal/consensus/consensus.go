// Package consensus groups many ranked traders' open positions by market and
// measures how strongly they agree on an outcome.
package consensus

import (
	"math"
	"sort"

	"github.com/liamashdown/agentlens/internal/domain"
)

const (
	// DefaultDustThreshold is the position value at or below which a holding
	// does not count toward a market
	DefaultDustThreshold = 0.5

	// MinTraders is how many distinct traders a market needs to be reported
	MinTraders = 2

	// edgeDeadband keeps bid/ask noise from flipping the edge direction
	edgeDeadband = 3
)

// EdgeDirection is whether the cohort is in profit at the current price
type EdgeDirection string

const (
	EdgeProfit     EdgeDirection = "PROFIT"
	EdgeUnderwater EdgeDirection = "UNDERWATER"
	EdgeNeutral    EdgeDirection = "NEUTRAL"
)

// Trader is one ranked wallet with its open positions
type Trader struct {
	Address   string
	Name      string
	Rank      int
	PnL       float64
	Volume    float64
	Positions []domain.Position
}

// DisplayName returns the trader's name, falling back to the address
func (t Trader) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Address
}

// PriceKey addresses the live price of one outcome of one market
type PriceKey struct {
	MarketID string
	Outcome  domain.Outcome
}

// Prices overrides the position-reported current price per market outcome
type Prices map[PriceKey]float64

// OutcomeBias is the capital and headcount behind one outcome
type OutcomeBias struct {
	Outcome domain.Outcome `json:"outcome"`
	Capital float64        `json:"capital"`
	Traders int            `json:"traders"`
}

// TraderPosition is one trader's qualifying holding in a market
type TraderPosition struct {
	Address    string         `json:"address"`
	Name       string         `json:"name"`
	Outcome    domain.Outcome `json:"outcome"`
	Value      float64        `json:"value"`
	AvgPrice   float64        `json:"avgPrice"`
	Conviction float64        `json:"conviction"` // percent of the trader's portfolio
}

// SmartMoneyMarket is the cross-trader view of one market
type SmartMoneyMarket struct {
	MarketID         string           `json:"marketId"`
	Title            string           `json:"title"`
	TraderCount      int              `json:"traderCount"`
	TotalCapital     float64          `json:"totalCapital"`
	Outcomes         []OutcomeBias    `json:"outcomes"`
	DominantOutcome  domain.Outcome   `json:"dominantOutcome"`
	CapitalConsensus int              `json:"capitalConsensus"`
	HeadConsensus    int              `json:"headConsensus"`
	AvgEntry         float64          `json:"avgEntry"`
	MinEntry         float64          `json:"minEntry"`
	MaxEntry         float64          `json:"maxEntry"`
	CurrentPrice     float64          `json:"currentPrice"`
	EdgePct          int              `json:"edgePct"`
	Direction        EdgeDirection    `json:"direction"`
	Traders          []TraderPosition `json:"traders"`
}

// Options tunes the aggregation
type Options struct {
	DustThreshold float64
	Prices        Prices
}

// Aggregate builds one SmartMoneyMarket per market held by at least two
// distinct traders above the dust threshold. The result does not depend on
// the order of traders or of their positions.
func Aggregate(traders []Trader, opts Options) []SmartMoneyMarket {
	if opts.DustThreshold <= 0 {
		opts.DustThreshold = DefaultDustThreshold
	}

	byMarket := make(map[string][]TraderPosition)
	titles := make(map[string]string)
	curPrices := make(map[string][]domain.Position)

	for _, t := range traders {
		portfolio := 0.0
		for _, p := range t.Positions {
			portfolio += p.Value()
		}
		for _, p := range t.Positions {
			v := p.Value()
			if v <= opts.DustThreshold || p.MarketID == "" {
				continue
			}
			conviction := 0.0
			if portfolio > 0 {
				conviction = v / portfolio * 100
			}
			byMarket[p.MarketID] = append(byMarket[p.MarketID], TraderPosition{
				Address:    t.Address,
				Name:       t.DisplayName(),
				Outcome:    p.Outcome,
				Value:      v,
				AvgPrice:   p.AvgPrice,
				Conviction: conviction,
			})
			curPrices[p.MarketID] = append(curPrices[p.MarketID], p)
			if p.Title != "" && (titles[p.MarketID] == "" || p.Title < titles[p.MarketID]) {
				titles[p.MarketID] = p.Title
			}
		}
	}

	markets := make([]SmartMoneyMarket, 0, len(byMarket))
	for marketID, positions := range byMarket {
		if distinctTraders(positions) < MinTraders {
			continue
		}
		m := buildMarket(marketID, titles[marketID], positions, curPrices[marketID], opts.Prices)
		markets = append(markets, m)
	}

	sort.Slice(markets, func(i, j int) bool {
		a, b := markets[i], markets[j]
		if a.TraderCount != b.TraderCount {
			return a.TraderCount > b.TraderCount
		}
		if a.CapitalConsensus != b.CapitalConsensus {
			return a.CapitalConsensus > b.CapitalConsensus
		}
		return a.MarketID < b.MarketID
	})
	return markets
}

func buildMarket(marketID, title string, positions []TraderPosition, raw []domain.Position, prices Prices) SmartMoneyMarket {
	sortPositions(positions)

	m := SmartMoneyMarket{
		MarketID:    marketID,
		Title:       title,
		TraderCount: distinctTraders(positions),
		Traders:     positions,
	}

	capital := make(map[domain.Outcome]float64)
	heads := make(map[domain.Outcome]map[string]bool)
	for _, p := range positions {
		capital[p.Outcome] += p.Value
		if heads[p.Outcome] == nil {
			heads[p.Outcome] = make(map[string]bool)
		}
		heads[p.Outcome][p.Address] = true
		m.TotalCapital += p.Value
	}

	for o, c := range capital {
		m.Outcomes = append(m.Outcomes, OutcomeBias{Outcome: o, Capital: c, Traders: len(heads[o])})
	}
	sort.Slice(m.Outcomes, func(i, j int) bool {
		a, b := m.Outcomes[i], m.Outcomes[j]
		if a.Capital != b.Capital {
			return a.Capital > b.Capital
		}
		if a.Traders != b.Traders {
			return a.Traders > b.Traders
		}
		return a.Outcome < b.Outcome
	})
	m.DominantOutcome = m.Outcomes[0].Outcome

	capShares := make([]float64, len(m.Outcomes))
	headShares := make([]float64, len(m.Outcomes))
	for i, o := range m.Outcomes {
		capShares[i] = o.Capital
		headShares[i] = float64(o.Traders)
	}
	m.CapitalConsensus = Consensus(capShares)
	m.HeadConsensus = Consensus(headShares)

	m.AvgEntry, m.MinEntry, m.MaxEntry = entryStats(positions, m.DominantOutcome)
	m.CurrentPrice = currentPrice(marketID, m.DominantOutcome, raw, prices)
	m.EdgePct = int(math.Round((m.CurrentPrice - m.AvgEntry) * 100))
	m.Direction = Direction(m.EdgePct)
	return m
}

// Consensus measures how dominant the largest share is relative to an even
// split, scaled to [0,100]. Binary markets are always treated as having at
// least two outcomes.
func Consensus(shares []float64) int {
	total := 0.0
	top := 0.0
	for _, s := range shares {
		total += s
		top = math.Max(top, s)
	}
	if total <= 0 {
		return 0
	}
	k := float64(len(shares))
	if k < 2 {
		k = 2
	}
	even := 1 / k
	v := (top/total - even) / (1 - even)
	v = math.Max(0, math.Min(1, v))
	return int(math.Round(v * 100))
}

// Direction maps an edge percentage to PROFIT, UNDERWATER or NEUTRAL
func Direction(edgePct int) EdgeDirection {
	switch {
	case edgePct > edgeDeadband:
		return EdgeProfit
	case edgePct < -edgeDeadband:
		return EdgeUnderwater
	}
	return EdgeNeutral
}

// entryStats returns the capital-weighted average entry and the raw entry
// range of the positions on one outcome
func entryStats(positions []TraderPosition, outcome domain.Outcome) (avg, lo, hi float64) {
	weighted, total := 0.0, 0.0
	first := true
	for _, p := range positions {
		if p.Outcome != outcome {
			continue
		}
		weighted += p.AvgPrice * p.Value
		total += p.Value
		if first {
			lo, hi = p.AvgPrice, p.AvgPrice
			first = false
			continue
		}
		lo = math.Min(lo, p.AvgPrice)
		hi = math.Max(hi, p.AvgPrice)
	}
	if total > 0 {
		avg = weighted / total
	}
	// keep float error from pushing the average outside its own range
	return math.Max(lo, math.Min(hi, avg)), lo, hi
}

// currentPrice prefers a live quote and otherwise takes the value-weighted
// position price of the outcome
func currentPrice(marketID string, outcome domain.Outcome, raw []domain.Position, prices Prices) float64 {
	if p, ok := prices[PriceKey{MarketID: marketID, Outcome: outcome}]; ok {
		return p
	}
	sorted := append([]domain.Position(nil), raw...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CurPrice != sorted[j].CurPrice {
			return sorted[i].CurPrice < sorted[j].CurPrice
		}
		return sorted[i].Size < sorted[j].Size
	})
	weighted, total := 0.0, 0.0
	for _, p := range sorted {
		if p.Outcome != outcome {
			continue
		}
		weighted += p.CurPrice * p.Value()
		total += p.Value()
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func distinctTraders(positions []TraderPosition) int {
	seen := make(map[string]bool)
	for _, p := range positions {
		seen[p.Address] = true
	}
	return len(seen)
}

// sortPositions orders holdings by value, then address and outcome
func sortPositions(positions []TraderPosition) {
	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		if a.Outcome != b.Outcome {
			return a.Outcome < b.Outcome
		}
		return a.AvgPrice < b.AvgPrice
	})
}
