package router

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/metrics"
	"github.com/rickgao/price-relay/internal/model"
)

// Dispatcher turns provider frames into events on subscriber queues.
// HandleFrame is called from the connector's receiver duty.
type Dispatcher struct {
	subs    Subscribers
	replier Replier
	source  string
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Stats
	frames      atomic.Int64
	trades      atomic.Int64
	dispatched  atomic.Int64
	skipped     atomic.Int64
	parseErrors atomic.Int64
	pings       atomic.Int64
}

// NewDispatcher creates a dispatcher. source is stamped on every event.
func NewDispatcher(subs Subscribers, replier Replier, source string, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if source == "" {
		source = model.DefaultSource
	}

	return &Dispatcher{
		subs:    subs,
		replier: replier,
		source:  source,
		logger:  logger,
		metrics: m,
	}
}

// HandleFrame decodes one frame and acts on it.
func (d *Dispatcher) HandleFrame(msg connection.TimestampedMessage) {
	d.frames.Add(1)

	var env frameEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		d.parseErrors.Add(1)
		d.metrics.IncParseErrors()
		d.logger.Warn("failed to decode provider frame", "error", err, "size", len(msg.Data))
		return
	}

	switch env.Type {
	case framePing:
		d.pings.Add(1)
		d.replier.Enqueue(connection.Pong())

	case frameTrade:
		d.dispatchTrades(env.Data, msg.ReceivedAt)

	case frameError:
		d.logger.Warn("provider error", "message", env.Msg)

	default:
		d.logger.Debug("skipping frame type", "type", env.Type)
	}
}

func (d *Dispatcher) dispatchTrades(records []tradeWire, receivedAt time.Time) {
	total := 0
	for _, rec := range records {
		symbol := model.NormalizeSymbol(rec.Symbol)
		if symbol == "" || rec.Price == nil {
			d.skipped.Add(1)
			continue
		}
		d.trades.Add(1)

		var ts int64
		if rec.Timestamp != nil {
			ts = int64(*rec.Timestamp)
		}
		ev := model.NewTradeEvent(symbol, *rec.Price, rec.Volume, ts, d.source, receivedAt)

		for _, s := range d.subs.SessionsFor(symbol) {
			s.Enqueue(ev)
			total++
		}
	}

	if total > 0 {
		d.dispatched.Add(int64(total))
		d.metrics.AddTradesDispatched(total)
	}
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		FramesReceived: d.frames.Load(),
		TradesReceived: d.trades.Load(),
		Dispatched:     d.dispatched.Load(),
		Skipped:        d.skipped.Load(),
		ParseErrors:    d.parseErrors.Load(),
		Pings:          d.pings.Load(),
	}
}
