package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/price-relay/internal/metrics"
)

// Connector owns the single upstream connection.
type Connector struct {
	cfg      Config
	endpoint EndpointFunc
	handler  Handler
	source   SubscriptionSource
	logger   *slog.Logger
	metrics  *metrics.Metrics

	newClient func(ClientConfig, *slog.Logger) Client

	outbox  *outbox
	backoff *Backoff
	state   atomic.Int32

	// Stats
	connects       atomic.Int64
	reconnects     atomic.Int64
	framesReceived atomic.Int64
	commandsSent   atomic.Int64

	mu          sync.RWMutex
	lastErr     error
	connectedAt time.Time
}

// NewConnector creates a connector. Run starts the connection loop.
// source may be nil, in which case nothing is replayed on connect.
func NewConnector(
	cfg Config,
	endpoint EndpointFunc,
	handler Handler,
	source SubscriptionSource,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == nil {
		endpoint = StaticEndpoint("")
	}
	if handler == nil {
		handler = HandlerFunc(func(TimestampedMessage) {})
	}
	cfg = cfg.withDefaults()

	c := &Connector{
		cfg:       cfg,
		endpoint:  endpoint,
		handler:   handler,
		source:    source,
		logger:    logger,
		metrics:   m,
		newClient: NewClient,
		outbox:    newOutbox(),
		backoff:   NewBackoff(cfg.BaseDelay, cfg.MaxDelay),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// Enqueue queues a command for the sender duty. Never blocks.
// Commands queued while disconnected are superseded by the replay on
// the next connect.
func (c *Connector) Enqueue(cmd Command) {
	c.outbox.push(cmd)
}

// PendingCommands returns the queued commands oldest first.
func (c *Connector) PendingCommands() []Command {
	return c.outbox.snapshot()
}

// State returns the current connection state.
func (c *Connector) State() State {
	return State(c.state.Load())
}

// Stats returns current statistics.
func (c *Connector) Stats() Stats {
	c.mu.RLock()
	lastErr := c.lastErr
	connectedAt := c.connectedAt
	c.mu.RUnlock()

	s := Stats{
		State:          c.State().String(),
		Connects:       c.connects.Load(),
		Reconnects:     c.reconnects.Load(),
		FramesReceived: c.framesReceived.Load(),
		CommandsSent:   c.commandsSent.Load(),
		Pending:        c.outbox.size(),
		ConnectedAt:    connectedAt,
	}
	if lastErr != nil {
		s.LastError = lastErr.Error()
	}
	return s
}

func (c *Connector) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	c.metrics.SetUpstreamState(int(s))
	if prev != s {
		c.logger.Debug("upstream state changed", "from", prev.String(), "to", s.String())
	}
}

func (c *Connector) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// Run drives the connection loop until ctx is cancelled.
func (c *Connector) Run(ctx context.Context) error {
	defer c.setState(StateTerminated)

	warnedIdle := false
	for {
		if ctx.Err() != nil {
			c.setState(StateShuttingDown)
			return nil
		}

		url, ok := c.endpoint()
		if !ok {
			c.setState(StateDisconnected)
			if !warnedIdle {
				c.logger.Warn("upstream endpoint not configured, waiting", "recheck", c.cfg.IdleInterval)
				warnedIdle = true
			}
			if !sleepCtx(ctx, c.cfg.IdleInterval) {
				c.setState(StateShuttingDown)
				return nil
			}
			continue
		}
		warnedIdle = false

		err := c.runSession(ctx, url)
		if ctx.Err() != nil {
			c.setState(StateShuttingDown)
			return nil
		}

		c.recordError(err)
		c.setState(StateReconnecting)
		c.reconnects.Add(1)
		c.metrics.IncUpstreamReconnects()

		wait := c.backoff.Next()
		c.logger.Warn("upstream connection lost, reconnecting",
			"error", err,
			"wait", wait,
		)
		if !sleepCtx(ctx, wait) {
			c.setState(StateShuttingDown)
			return nil
		}
	}
}

// runSession connects once and runs the sender and receiver duties
// until either ends. It always returns a non-nil error unless ctx ended.
func (c *Connector) runSession(ctx context.Context, url string) error {
	c.setState(StateConnecting)

	clientCfg := ClientConfig{
		URL:          url,
		PingTimeout:  c.cfg.PingTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
		BufferSize:   c.cfg.BufferSize,
	}
	client := c.newClient(clientCfg, c.logger)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.backoff.Reset()
	c.connects.Add(1)
	c.metrics.IncUpstreamConnects()
	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()

	c.setState(StateConnected)
	replayed := c.replay()
	c.logger.Info("upstream connected",
		"url", redactURL(url),
		"replayed", replayed,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.sendLoop(gctx, client) })
	g.Go(func() error { return c.receiveLoop(gctx, client) })

	err := g.Wait()
	if err == nil {
		err = ErrConnectionClosed
	}
	return err
}

// replay rebuilds the outbox with one subscribe per active symbol.
func (c *Connector) replay() int {
	if c.source == nil {
		return 0
	}
	n := 0
	c.source.ReplaySubscriptions(func(symbols []string) {
		cmds := make([]Command, 0, len(symbols))
		for _, s := range symbols {
			cmds = append(cmds, Subscribe(s))
		}
		c.outbox.replace(cmds)
		n = len(cmds)
	})
	return n
}

// sendLoop writes queued commands to the provider.
func (c *Connector) sendLoop(ctx context.Context, client Client) error {
	for {
		cmd, ok := c.outbox.pop(ctx)
		if !ok {
			return ctx.Err()
		}

		data, err := json.Marshal(cmd)
		if err != nil {
			c.logger.Error("failed to encode command", "type", cmd.Type, "error", err)
			continue
		}

		if err := client.Send(data); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Type, err)
		}

		c.commandsSent.Add(1)
		c.metrics.IncCommandsSent(cmd.Type)
		c.logger.Debug("command sent", "type", cmd.Type, "symbol", cmd.Symbol)
	}
}

// receiveLoop hands inbound frames to the handler.
func (c *Connector) receiveLoop(ctx context.Context, client Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-client.Errors():
			if err == nil {
				err = ErrConnectionClosed
			}
			return fmt.Errorf("receive: %w", err)
		case msg := <-client.Messages():
			c.framesReceived.Add(1)
			c.metrics.IncFramesReceived()
			c.handler.HandleFrame(msg)
		}
	}
}
