package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/metrics"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/router"
	"github.com/rickgao/price-relay/internal/session"
	"github.com/rickgao/price-relay/internal/subscription"
)

// Stats contains engine statistics.
type Stats struct {
	Clients       int              `json:"clients"`
	ActiveSymbols int              `json:"active_symbols"`
	Enabled       bool             `json:"enabled"`
	Upstream      connection.Stats `json:"upstream"`
	Dispatcher    router.Stats     `json:"dispatcher"`
}

// Engine relays provider trades to downstream clients.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu serializes registry mutation with command enqueue and replay.
	mu         sync.RWMutex
	registry   *subscription.Registry
	sessions   map[string]*session.Session
	connector  *connection.Connector
	dispatcher *router.Dispatcher

	// Lifecycle
	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
}

// New creates an engine. Call Start to open the upstream connection.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		registry: subscription.NewRegistry(),
		sessions: make(map[string]*session.Session),
	}

	e.connector = connection.NewConnector(
		cfg.Connection,
		cfg.Endpoint,
		connection.HandlerFunc(e.handleFrame),
		e,
		logger.With("component", "upstream"),
		m,
	)
	e.dispatcher = router.NewDispatcher(e, e.connector, cfg.Source, logger.With("component", "dispatcher"), m)

	return e
}

func (e *Engine) handleFrame(msg connection.TimestampedMessage) {
	e.dispatcher.HandleFrame(msg)
}

// Start launches the connection loop. Calling Start again is a no-op.
// With no endpoint configured the loop idles and rechecks periodically.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.started = true

	if !e.Enabled() {
		e.logger.Warn("provider endpoint not configured, live streaming disabled")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		e.connector.Run(runCtx)
	}()

	e.logger.Info("relay engine started", "queue_capacity", e.cfg.QueueCapacity)
	return nil
}

// Stop cancels the connection loop and waits for it to finish, bounded
// by ctx. All client sessions are closed. Calling Stop again is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.stopped {
		e.lifeMu.Unlock()
		return nil
	}
	e.stopped = true
	cancel, done := e.cancel, e.done
	e.lifeMu.Unlock()

	e.logger.Info("stopping relay engine")

	var err error
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			e.logger.Warn("relay engine stop timed out")
			err = fmt.Errorf("stop relay engine: %w", ctx.Err())
		}
	}

	e.mu.Lock()
	for id, s := range e.sessions {
		s.Close()
		e.registry.DetachAll(id)
		delete(e.sessions, id)
	}
	e.updateGaugesLocked()
	e.mu.Unlock()

	e.logger.Info("relay engine stopped")
	return err
}

func (e *Engine) isStopped() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.stopped
}

// Enabled reports whether the provider endpoint is configured.
func (e *Engine) Enabled() bool {
	_, ok := e.cfg.Endpoint()
	return ok
}

// RegisterClient creates a session for id. It fails with ErrStopped once
// Stop has been called.
func (e *Engine) RegisterClient(id string) (*session.Session, error) {
	if !e.Enabled() {
		return nil, ErrDisabled
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Checked under mu so a session cannot slip in after Stop's sweep.
	if e.isStopped() {
		return nil, fmt.Errorf("register %s: %w", id, ErrStopped)
	}
	if _, ok := e.sessions[id]; ok {
		return nil, fmt.Errorf("register %s: %w", id, ErrDuplicateClient)
	}

	s := session.New(id, e.cfg.QueueCapacity, e.metrics.IncEventsDropped)
	e.sessions[id] = s
	e.updateGaugesLocked()

	e.logger.Debug("client registered", "client_id", id)
	return s, nil
}

// UnregisterClient releases every subscription of id and closes its
// session. Unknown ids are ignored.
func (e *Engine) UnregisterClient(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok {
		return
	}
	delete(e.sessions, id)

	released := e.registry.DetachAll(id)
	for _, symbol := range released {
		e.connector.Enqueue(connection.Unsubscribe(symbol))
	}
	s.Close()
	e.updateGaugesLocked()

	e.logger.Debug("client unregistered", "client_id", id, "released", len(released))
}

// Subscribe adds symbols to id's subscriptions, queueing an upstream
// subscribe for each symbol that gains its first subscriber.
// Unknown ids are ignored.
func (e *Engine) Subscribe(id string, symbols []string) {
	symbols = model.NormalizeSymbols(symbols)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[id]; !ok {
		return
	}
	for _, symbol := range symbols {
		if e.registry.Attach(id, symbol) {
			e.connector.Enqueue(connection.Subscribe(symbol))
		}
	}
	e.updateGaugesLocked()
}

// Unsubscribe removes symbols from id's subscriptions, queueing an
// upstream unsubscribe for each symbol left with no subscribers.
// Unknown ids are ignored.
func (e *Engine) Unsubscribe(id string, symbols []string) {
	symbols = model.NormalizeSymbols(symbols)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[id]; !ok {
		return
	}
	for _, symbol := range symbols {
		if e.registry.Detach(id, symbol) {
			e.connector.Enqueue(connection.Unsubscribe(symbol))
		}
	}
	e.updateGaugesLocked()
}

// Forward drains id's queue into sink until the client is unregistered,
// ctx is cancelled, or sink fails.
func (e *Engine) Forward(ctx context.Context, id string, sink func(model.Event) error) error {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("forward %s: %w", id, ErrUnknownClient)
	}
	return s.Drain(ctx, sink)
}

// Symbols returns the symbols id is subscribed to.
func (e *Engine) Symbols(id string) []string {
	return e.registry.SymbolsOf(id)
}

// SubscribersOf returns the clients subscribed to symbol.
func (e *Engine) SubscribersOf(symbol string) []string {
	return e.registry.SubscribersOf(model.NormalizeSymbol(symbol))
}

// SessionsFor returns the live sessions subscribed to symbol.
func (e *Engine) SessionsFor(symbol string) []*session.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := e.registry.SubscribersOf(symbol)
	out := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := e.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ReplaySubscriptions hands the active symbols to replay while holding
// the engine lock, so no subscribe or unsubscribe interleaves.
func (e *Engine) ReplaySubscriptions(replay func(symbols []string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	replay(e.registry.ActiveSymbols())
}

// State returns the upstream connection state.
func (e *Engine) State() connection.State {
	return e.connector.State()
}

// PendingCommands returns upstream commands not yet sent.
func (e *Engine) PendingCommands() []connection.Command {
	return e.connector.PendingCommands()
}

// Stats returns current statistics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	clients := len(e.sessions)
	e.mu.RUnlock()

	return Stats{
		Clients:       clients,
		ActiveSymbols: e.registry.Stats().Symbols,
		Enabled:       e.Enabled(),
		Upstream:      e.connector.Stats(),
		Dispatcher:    e.dispatcher.Stats(),
	}
}

func (e *Engine) updateGaugesLocked() {
	e.metrics.SetClients(len(e.sessions))
	e.metrics.SetActiveSymbols(e.registry.Stats().Symbols)
}
