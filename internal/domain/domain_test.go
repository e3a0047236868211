package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want Outcome
	}{
		{"YES", OutcomeYes},
		{" no ", OutcomeNo},
		{"Yes", OutcomeYes},
		{"Donald Trump", Outcome("Donald Trump")},
		{"", Outcome("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutcome(tt.in))
		})
	}
}

func TestNewTrade(t *testing.T) {
	tr, err := NewTrade(1700000000, "buy", "0xabc", "YES", 100, 0.42)
	require.NoError(t, err)
	assert.Equal(t, SideBuy, tr.Side)
	assert.Equal(t, OutcomeYes, tr.Outcome)
	assert.InDelta(t, 42.0, tr.Notional(), 1e-9)

	_, err = NewTrade(1700000000, "HOLD", "0xabc", "Yes", 1, 0.5)
	assert.Error(t, err)

	_, err = NewTrade(1700000000, "BUY", "", "Yes", 1, 0.5)
	assert.Error(t, err)

	_, err = NewTrade(1700000000, "BUY", "0xabc", "Yes", 1, 1.5)
	assert.Error(t, err)
}

func TestWinRate(t *testing.T) {
	a := &WalletActivity{}
	rate, n := a.WinRate()
	assert.Zero(t, rate)
	assert.Zero(t, n)

	a.Closed = []ClosedPosition{{Won: true}, {Won: true}, {Won: false}, {Won: true}}
	rate, n = a.WinRate()
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.75, rate, 1e-9)
}
