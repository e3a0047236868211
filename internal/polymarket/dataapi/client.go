package dataapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/metrics"
	"github.com/liamashdown/agentlens/internal/ratelimit"
)

// Client handles communication with the Polymarket Data API
type Client struct {
	baseURL      string
	httpClient   *http.Client
	authMode     config.AuthMode
	bearerToken  string
	apiKey       string
	extraHeaders map[string]string
	limiter      *ratelimit.Limiter
}

// NewClient creates a new Data API client. One limiter is shared by every
// endpoint since the provider's limit is per caller.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.DataAPIBaseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authMode:     cfg.DataAPIAuthMode,
		bearerToken:  cfg.DataAPIBearerToken,
		apiKey:       cfg.DataAPIAPIKey,
		extraHeaders: cfg.DataAPIExtraHeaders,
		limiter:      ratelimit.New(cfg.DataAPIRPS, cfg.DataAPIBurst),
	}
}

// TradeParams holds parameters for the GetTrades call
type TradeParams struct {
	Limit  int
	Offset int
	Market string
	User   string
	Side   string // BUY, SELL
}

// GetTrades fetches trades filtered by wallet and/or market
func (c *Client) GetTrades(ctx context.Context, params TradeParams) ([]Trade, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Market != "" {
		q.Set("market", params.Market)
	}
	if params.User != "" {
		q.Set("user", params.User)
	}
	if params.Side != "" {
		q.Set("side", params.Side)
	}

	var trades []Trade
	if err := c.get(ctx, "/trades", q, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetMarketTrades fetches the most recent trades on a market
func (c *Client) GetMarketTrades(ctx context.Context, conditionID string, limit int) ([]Trade, error) {
	return c.GetTrades(ctx, TradeParams{Market: conditionID, Limit: limit})
}

// GetActivity fetches a wallet's activity of the given types (MERGE, SPLIT...)
func (c *Client) GetActivity(ctx context.Context, wallet string, types []string, limit int) ([]ActivityEvent, error) {
	q := url.Values{}
	q.Set("user", wallet)
	if len(types) > 0 {
		q.Set("type", strings.Join(types, ","))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("sortBy", "TIMESTAMP")
	q.Set("sortDirection", "DESC")

	var events []ActivityEvent
	if err := c.get(ctx, "/activity", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetPositions fetches a wallet's open positions
func (c *Client) GetPositions(ctx context.Context, wallet string) ([]Position, error) {
	q := url.Values{}
	q.Set("user", wallet)
	q.Set("sizeThreshold", "0")
	q.Set("limit", "500")

	var positions []Position
	if err := c.get(ctx, "/positions", q, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetClosedPositions fetches a wallet's resolved positions
func (c *Client) GetClosedPositions(ctx context.Context, wallet string, limit int) ([]ClosedPosition, error) {
	q := url.Values{}
	q.Set("user", wallet)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var closed []ClosedPosition
	if err := c.get(ctx, "/closed-positions", q, &closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// GetHolders fetches the top holders of each outcome token of a market
func (c *Client) GetHolders(ctx context.Context, conditionID string, limit int) ([]HolderGroup, error) {
	q := url.Values{}
	q.Set("market", conditionID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var groups []HolderGroup
	if err := c.get(ctx, "/holders", q, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetLeaderboard fetches the top traders by pnl
func (c *Client) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("orderBy", "PNL")
	q.Set("timePeriod", "ALL")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var entries []LeaderboardEntry
	if err := c.get(ctx, "/v1/leaderboard", q, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetOpenInterest fetches open interest for the given markets
func (c *Client) GetOpenInterest(ctx context.Context, conditionIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(conditionIDs))
	if len(conditionIDs) == 0 {
		return out, nil
	}
	q := url.Values{}
	q.Set("market", strings.Join(conditionIDs, ","))

	var entries []OpenInterest
	if err := c.get(ctx, "/oi", q, &entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Market] = e.Value
	}
	return out, nil
}

// get performs a rate-limited GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("data", endpoint, time.Since(start), err)
	}()

	// Rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("401 Unauthorized (auth_mode=%s) - check credentials", c.authMode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && (apiErr.Error != "" || apiErr.Message != "") {
			return fmt.Errorf("%s: unexpected status %d: %s %s", endpoint, resp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("%s: unexpected status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	switch c.authMode {
	case config.AuthModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case config.AuthModeAPIKey:
		req.Header.Set("X-API-KEY", c.apiKey)
	case config.AuthModeNone:
		// No auth headers
	}

	// Add extra headers
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
}
