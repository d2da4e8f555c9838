package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventTypeTrade is the only event type forwarded to downstream clients.
const EventTypeTrade = "trade"

// DefaultSource names the upstream provider on events.
const DefaultSource = "finnhub"

// NormalizeSymbol canonicalizes a ticker so "aapl " and "AAPL" share one key.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeSymbols normalizes a batch, dropping empties and duplicates while
// keeping first-seen order.
func NormalizeSymbols(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		s := NormalizeSymbol(r)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// -----------------------------------------------------------------------------
// Stream Types
// -----------------------------------------------------------------------------

// Event is a normalized trade update delivered to downstream clients.
// The JSON shape is the contract the transport re-serializes verbatim.
type Event struct {
	Type      string   `json:"type"`      // Always "trade"
	Symbol    string   `json:"symbol"`    // Normalized ticker
	Price     float64  `json:"price"`     // Last trade price
	Volume    *float64 `json:"volume"`    // nil when the provider omits it
	Timestamp int64    `json:"timestamp"` // Trade time (ms since epoch)
	Source    string   `json:"source"`    // Provider name, e.g. "finnhub"
}

// NewTradeEvent builds a trade Event. A zero timestamp is replaced by the
// local receipt time.
func NewTradeEvent(symbol string, price float64, volume *float64, timestampMs int64, source string, receivedAt time.Time) Event {
	if timestampMs == 0 {
		timestampMs = receivedAt.UnixMilli()
	}
	return Event{
		Type:      EventTypeTrade,
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: timestampMs,
		Source:    source,
	}
}

// -----------------------------------------------------------------------------
// Portfolio Types
// -----------------------------------------------------------------------------

// Holding is a position a user holds in one symbol.
type Holding struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Symbol   string    `json:"symbol"`
	Quantity float64   `json:"quantity"`
	AvgCost  float64   `json:"avg_cost"`
}

// HoldingInput is the mutable part of a Holding as accepted from clients.
type HoldingInput struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// Quote is a point-in-time price snapshot from the provider's REST API.
type Quote struct {
	Symbol           string   `json:"symbol"`
	Price            *float64 `json:"price"`
	DayChange        *float64 `json:"day_change"`
	DayChangePercent *float64 `json:"day_change_percent"`
}

// DailyClose is one point of a symbol's daily close history.
type DailyClose struct {
	Date  time.Time // Trading day (UTC midnight)
	Close float64
}
