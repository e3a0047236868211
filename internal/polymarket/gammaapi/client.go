package gammaapi

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

// Client handles communication with the Polymarket Gamma API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new Gamma API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GammaAPIBaseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New(cfg.GammaAPIRPS, 0),
	}
}

// GetMarketByConditionID fetches market details by condition ID
func (c *Client) GetMarketByConditionID(ctx context.Context, conditionID string) (*Market, error) {
	q := url.Values{}
	q.Set("condition_ids", conditionID)

	body, err := c.get(ctx, "/markets", q)
	if err != nil {
		return nil, err
	}

	// Response can be either array or single market
	var markets []Market
	if err := json.Unmarshal(body, &markets); err == nil {
		if len(markets) > 0 {
			return &markets[0], nil
		}
		return nil, fmt.Errorf("no market found for condition_id %s", conditionID)
	}

	var market Market
	if err := json.Unmarshal(body, &market); err == nil {
		return &market, nil
	}

	return nil, fmt.Errorf("failed to decode market response")
}

// GetMarketBySlug fetches market details by slug
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	body, err := c.get(ctx, "/markets/slug/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}

	var market Market
	if err := json.Unmarshal(body, &market); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &market, nil
}

// ListActiveMarkets fetches open markets ordered by volume
func (c *Client) ListActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "volumeNum")
	q.Set("ascending", "false")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/markets", q)
	if err != nil {
		return nil, err
	}

	var markets []Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return markets, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (body []byte, err error) {
	start := time.Now()
	defer func() {
		// slug lookups share one label to keep metric cardinality bounded
		label := endpoint
		if strings.HasPrefix(endpoint, "/markets/slug/") {
			label = "/markets/slug"
		}
		metrics.RecordAPIRequest("gamma", label, time.Since(start), err)
	}()

	// Rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Gamma API is public, no auth headers
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
