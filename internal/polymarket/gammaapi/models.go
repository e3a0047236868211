package gammaapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/liamashdown/agentlens/internal/domain"
)

// Market represents a Gamma API market
type Market struct {
	ID            string  `json:"id"`
	ConditionID   string  `json:"conditionId"`
	Slug          string  `json:"slug"`
	Question      string  `json:"question"`
	EndDate       string  `json:"endDate"`
	Category      string  `json:"category"`
	VolumeNum     float64 `json:"volumeNum"`
	LiquidityNum  float64 `json:"liquidityNum"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
	Outcomes      string  `json:"outcomes"`      // JSON array, e.g. ["Yes","No"]
	OutcomePrices string  `json:"outcomePrices"` // JSON array, e.g. ["0.55","0.45"]
}

// Prices returns the Yes and No prices parsed from the outcome arrays
func (m Market) Prices() (yes, no float64, err error) {
	outcomes, err := parseStringArray(m.Outcomes)
	if err != nil {
		return 0, 0, fmt.Errorf("outcomes: %w", err)
	}
	raw, err := parseStringArray(m.OutcomePrices)
	if err != nil {
		return 0, 0, fmt.Errorf("outcome prices: %w", err)
	}
	if len(raw) < 2 {
		return 0, 0, fmt.Errorf("market %s has %d outcome prices", m.ConditionID, len(raw))
	}

	prices := make([]float64, len(raw))
	for i, s := range raw {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("outcome price %q: %w", s, err)
		}
		prices[i] = p
	}

	yesIdx, noIdx := 0, 1
	for i, o := range outcomes {
		switch domain.ParseOutcome(o) {
		case domain.OutcomeYes:
			yesIdx = i
		case domain.OutcomeNo:
			noIdx = i
		}
	}
	if yesIdx >= len(prices) || noIdx >= len(prices) {
		return 0, 0, fmt.Errorf("market %s outcomes and prices disagree", m.ConditionID)
	}
	return prices[yesIdx], prices[noIdx], nil
}

// ToDomain converts the market into the live snapshot the pipeline reads
func (m Market) ToDomain() (domain.Market, error) {
	yes, no, err := m.Prices()
	if err != nil {
		return domain.Market{}, err
	}
	return domain.Market{
		ConditionID: m.ConditionID,
		Title:       m.Question,
		Slug:        m.Slug,
		Category:    m.Category,
		YesPrice:    yes,
		NoPrice:     no,
		Volume:      m.VolumeNum,
	}, nil
}

// parseStringArray accepts a JSON array string or a bare comma list
func parseStringArray(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(part))
	}
	return out, nil
}
