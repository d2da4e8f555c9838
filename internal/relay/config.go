package relay

import (
	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/session"
)

// Config holds configuration for the Engine.
type Config struct {
	Endpoint      connection.EndpointFunc // Provider URL; unconfigured disables streaming
	QueueCapacity int                     // Per-client event queue size (default: 100)
	Source        string                  // Event source tag (default: "finnhub")
	Connection    connection.Config
}

// DefaultConfig returns default configuration with no endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoint:      connection.StaticEndpoint(""),
		QueueCapacity: session.DefaultCapacity,
		Source:        model.DefaultSource,
		Connection:    connection.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.Endpoint == nil {
		c.Endpoint = connection.StaticEndpoint("")
	}
	if c.QueueCapacity < 1 {
		c.QueueCapacity = session.DefaultCapacity
	}
	if c.Source == "" {
		c.Source = model.DefaultSource
	}
	return c
}
