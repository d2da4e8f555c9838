package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rickgao/price-relay/internal/model"
)

// Candle statuses returned by /stock/candle.
const (
	CandleStatusOK     = "ok"
	CandleStatusNoData = "no_data"
)

// CandleResponse is the /stock/candle payload: parallel arrays indexed by bar.
type CandleResponse struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Volume    []float64 `json:"v"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

// GetDailyCloses returns the daily closes for symbol between from and to,
// oldest first. A "no_data" response yields an empty slice.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyClose, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("get daily closes: empty symbol")
	}

	query := url.Values{
		"symbol":     {symbol},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}

	var resp CandleResponse
	if err := c.get(ctx, "/stock/candle", query, &resp); err != nil {
		return nil, fmt.Errorf("get daily closes %s: %w", symbol, err)
	}

	switch resp.Status {
	case CandleStatusNoData:
		return []model.DailyClose{}, nil
	case CandleStatusOK:
	default:
		return nil, fmt.Errorf("get daily closes %s: unexpected status %q", symbol, resp.Status)
	}

	if len(resp.Close) != len(resp.Timestamp) {
		return nil, fmt.Errorf("get daily closes %s: %d closes for %d timestamps",
			symbol, len(resp.Close), len(resp.Timestamp))
	}

	closes := make([]model.DailyClose, 0, len(resp.Close))
	for i, ts := range resp.Timestamp {
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		closes = append(closes, model.DailyClose{Date: day, Close: resp.Close[i]})
	}
	sort.Slice(closes, func(i, j int) bool {
		return closes[i].Date.Before(closes[j].Date)
	})

	return closes, nil
}
