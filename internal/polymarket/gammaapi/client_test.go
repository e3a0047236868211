package gammaapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{GammaAPIBaseURL: srv.URL, GammaAPIRPS: 1000})
}

func TestPrices(t *testing.T) {
	tests := []struct {
		name    string
		market  Market
		yes, no float64
		wantErr bool
	}{
		{
			name:   "json arrays",
			market: Market{Outcomes: `["Yes", "No"]`, OutcomePrices: `["0.62", "0.38"]`},
			yes:    0.62, no: 0.38,
		},
		{
			name:   "reversed order",
			market: Market{Outcomes: `["No","Yes"]`, OutcomePrices: `["0.1","0.9"]`},
			yes:    0.9, no: 0.1,
		},
		{
			name:   "comma list",
			market: Market{Outcomes: "YES,NO", OutcomePrices: "0.02,0.98"},
			yes:    0.02, no: 0.98,
		},
		{
			name:    "missing prices",
			market:  Market{Outcomes: `["Yes","No"]`},
			wantErr: true,
		},
		{
			name:    "bad price",
			market:  Market{Outcomes: `["Yes","No"]`, OutcomePrices: `["abc","0.5"]`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yes, no, err := tt.market.Prices()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.yes, yes, 1e-9)
			assert.InDelta(t, tt.no, no, 1e-9)
		})
	}
}

func TestGetMarketByConditionID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("condition_ids"))
		_, _ = w.Write([]byte(`[{"conditionId":"0xabc","question":"Will it rain?","category":"Weather","volumeNum":25000,"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.7\",\"0.3\"]"}]`))
	})

	m, err := c.GetMarketByConditionID(context.Background(), "0xabc")
	require.NoError(t, err)

	dm, err := m.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, domain.Market{
		ConditionID: "0xabc",
		Title:       "Will it rain?",
		Category:    "Weather",
		YesPrice:    0.7,
		NoPrice:     0.3,
		Volume:      25000,
	}, dm)
}

func TestGetMarketByConditionIDEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.GetMarketByConditionID(context.Background(), "0xnone")
	assert.ErrorContains(t, err, "no market found")
}

func TestListActiveMarkets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"conditionId":"a"},{"conditionId":"b"}]`))
	})

	markets, err := c.ListActiveMarkets(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetMarketBySlug(context.Background(), "some-slug")
	assert.ErrorContains(t, err, "unexpected status 500")
}
