package connection

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no activity)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrConnectionClosed = errors.New("connection closed by peer")
)

// State is the upstream connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Command types understood by the provider.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandPong        = "pong"
)

// Command is an outbound provider command.
// Encodes as {"type":"subscribe","symbol":"AAPL"} or {"type":"pong"}.
type Command struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

// Subscribe returns a subscribe command for symbol.
func Subscribe(symbol string) Command {
	return Command{Type: CommandSubscribe, Symbol: symbol}
}

// Unsubscribe returns an unsubscribe command for symbol.
func Unsubscribe(symbol string) Command {
	return Command{Type: CommandUnsubscribe, Symbol: symbol}
}

// Pong returns a heartbeat reply.
func Pong() Command {
	return Command{Type: CommandPong}
}

// EndpointFunc resolves the provider URL. ok is false while the
// endpoint is not configured.
type EndpointFunc func() (url string, ok bool)

// StaticEndpoint returns an EndpointFunc for a fixed URL.
// An empty URL is reported as unconfigured.
func StaticEndpoint(url string) EndpointFunc {
	return func() (string, bool) {
		return url, url != ""
	}
}

// Handler receives every inbound frame from the receiver duty.
type Handler interface {
	HandleFrame(msg TimestampedMessage)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg TimestampedMessage)

// HandleFrame calls f(msg).
func (f HandlerFunc) HandleFrame(msg TimestampedMessage) { f(msg) }

// SubscriptionSource supplies the active symbol set for replay.
//
// ReplaySubscriptions must call replay exactly once with the current
// active symbols while holding whatever lock serializes subscription
// changes, so that no change can slip between the snapshot and the
// rebuilt outbox.
type SubscriptionSource interface {
	ReplaySubscriptions(replay func(symbols []string))
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Provider URL including the token query parameter
	PingTimeout  time.Duration // Max time without inbound activity before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// Config configures the Connector.
type Config struct {
	BaseDelay    time.Duration // Backoff floor
	MaxDelay     time.Duration // Backoff ceiling
	IdleInterval time.Duration // Recheck period while the endpoint is unconfigured
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		IdleInterval: 5 * time.Second,
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = d.IdleInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// Stats provides statistics about the connector.
type Stats struct {
	State          string    `json:"state"`
	Connects       int64     `json:"connects"`
	Reconnects     int64     `json:"reconnects"`
	FramesReceived int64     `json:"frames_received"`
	CommandsSent   int64     `json:"commands_sent"`
	Pending        int       `json:"pending_commands"`
	LastError      string    `json:"last_error,omitempty"`
	ConnectedAt    time.Time `json:"connected_at,omitzero"`
}

// sleepCtx waits for d or until ctx is done. Returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
