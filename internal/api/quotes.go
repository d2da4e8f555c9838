package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/price-relay/internal/model"
)

// QuoteResponse is the /quote payload. Fields are pointers because Finnhub
// sends null for day change on symbols without a prior close.
type QuoteResponse struct {
	Current       *float64 `json:"c"`
	Change        *float64 `json:"d"`
	PercentChange *float64 `json:"dp"`
	High          *float64 `json:"h"`
	Low           *float64 `json:"l"`
	Open          *float64 `json:"o"`
	PrevClose     *float64 `json:"pc"`
	Timestamp     int64    `json:"t"`
}

// SearchResult is one symbol lookup match.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// GetQuote fetches the latest quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Quote{}, fmt.Errorf("get quote: empty symbol")
	}

	var resp QuoteResponse
	query := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/quote", query, &resp); err != nil {
		return model.Quote{}, fmt.Errorf("get quote %s: %w", symbol, err)
	}

	return model.Quote{
		Symbol:           symbol,
		Price:            resp.Current,
		DayChange:        resp.Change,
		DayChangePercent: resp.PercentChange,
	}, nil
}

// SearchSymbol looks up symbols matching query, in provider ranking order.
func (c *Client) SearchSymbol(ctx context.Context, query string) ([]SearchResult, error) {
	var resp searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, fmt.Errorf("search symbol %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, SearchResult{Symbol: r.Symbol, Description: r.Description})
	}
	return results, nil
}
