package router

import (
	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/session"
)

// Provider frame types.
const (
	frameTrade = "trade"
	framePing  = "ping"
	frameError = "error"
)

// Subscribers resolves the sessions interested in a symbol.
type Subscribers interface {
	SessionsFor(symbol string) []*session.Session
}

// Replier queues outbound commands to the provider.
type Replier interface {
	Enqueue(cmd connection.Command)
}

// Stats contains runtime statistics.
type Stats struct {
	FramesReceived int64 `json:"frames_received"`
	TradesReceived int64 `json:"trades_received"`
	Dispatched     int64 `json:"dispatched"`
	Skipped        int64 `json:"skipped"`
	ParseErrors    int64 `json:"parse_errors"`
	Pings          int64 `json:"pings"`
}

// frameEnvelope is the provider frame shape:
//
//	{"type":"trade","data":[{"s":"AAPL","p":189.5,"v":100,"t":1700000000000}]}
//	{"type":"ping"}
//	{"type":"error","msg":"..."}
type frameEnvelope struct {
	Type string      `json:"type"`
	Data []tradeWire `json:"data"`
	Msg  string      `json:"msg"`
}

// tradeWire is one trade record. Pointers distinguish absent fields.
type tradeWire struct {
	Symbol    string   `json:"s"`
	Price     *float64 `json:"p"`
	Volume    *float64 `json:"v"`
	Timestamp *float64 `json:"t"` // Milliseconds
}
