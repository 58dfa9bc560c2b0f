// Package oracle resolves token prices from the DexScreener public API.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/utils"
)

// PairInfo is one market entry returned by DexScreener for a token.
// PriceUsd is absent when the market has no USD quote.
type PairInfo struct {
	ChainID     string  `json:"chainId"`
	DexID       string  `json:"dexId"`
	PairAddress string  `json:"pairAddress"`
	PriceNative string  `json:"priceNative"`
	PriceUsd    *string `json:"priceUsd"`
}

// Client queries DexScreener. A nil price result is expressed as an empty
// slice, never an error: missing prices are expected for illiquid tokens.
type Client struct {
	Logger  *zap.Logger
	BaseURL string
	ChainID string

	http *http.Client
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		Logger:  logger,
		BaseURL: utils.Env("DEXSCREENER_URL", "https://api.dexscreener.com"),
		ChainID: utils.Env("DEXSCREENER_CHAIN_ID", "starknet"),
		http: &http.Client{
			Timeout: time.Duration(utils.EnvInt("DEXSCREENER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
	}
}

// TokenPairs returns every market DexScreener knows for the token. Transport
// errors, timeouts, non-200 responses and undecodable bodies all yield an
// empty list so metrics fall back gracefully.
func (c *Client) TokenPairs(ctx context.Context, tokenAddress string) ([]PairInfo, error) {
	url := fmt.Sprintf("%s/token-pairs/v1/%s/%s", c.BaseURL, c.ChainID, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build dexscreener request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.Logger.Warn("DexScreener request failed, treating as no price data",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return []PairInfo{}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.Logger.Warn("DexScreener returned non-200, treating as no price data",
			zap.String("token", tokenAddress),
			zap.Int("status", resp.StatusCode))
		return []PairInfo{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Logger.Warn("Failed to read DexScreener response, treating as no price data",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return []PairInfo{}, nil
	}

	var pairs []PairInfo
	if err := json.Unmarshal(body, &pairs); err != nil {
		c.Logger.Warn("Failed to decode DexScreener response, treating as no price data",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return []PairInfo{}, nil
	}
	return pairs, nil
}

// TokenPriceUSD picks the first market with a usable USD price and returns
// it. The second return is false when no market carries one.
func (c *Client) TokenPriceUSD(ctx context.Context, tokenAddress string) (decimal.Decimal, bool, error) {
	pairs, err := c.TokenPairs(ctx, tokenAddress)
	if err != nil {
		return decimal.Zero, false, err
	}
	return FirstUSDPrice(pairs)
}

// FirstUSDPrice scans market entries in order and returns the first parseable
// USD price.
func FirstUSDPrice(pairs []PairInfo) (decimal.Decimal, bool, error) {
	for _, p := range pairs {
		if p.PriceUsd == nil || *p.PriceUsd == "" {
			continue
		}
		price, err := decimal.NewFromString(*p.PriceUsd)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("parse priceUsd %q: %w", *p.PriceUsd, err)
		}
		return price, true, nil
	}
	return decimal.Zero, false, nil
}
