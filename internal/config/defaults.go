package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr         = ":8000"
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultWSURL              = "wss://ws.finnhub.io"
	DefaultRestURL            = "https://finnhub.io/api/v1"
	DefaultTokenEnv           = "FINNHUB_API_KEY"
	DefaultSource             = "finnhub"
	DefaultAPITimeout         = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultQueueCapacity      = 100
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultIdleInterval       = 5 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultClientRateLimit    = 10
	DefaultClientRateBurst    = 20
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultMetricsPath        = "/metrics"
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Provider defaults
	if c.Provider.WSURL == "" {
		c.Provider.WSURL = DefaultWSURL
	}
	if c.Provider.RestURL == "" {
		c.Provider.RestURL = DefaultRestURL
	}
	if c.Provider.TokenEnv == "" {
		c.Provider.TokenEnv = DefaultTokenEnv
	}
	if c.Provider.Source == "" {
		c.Provider.Source = DefaultSource
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultAPITimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}

	// Stream defaults
	if c.Stream.QueueCapacity == 0 {
		c.Stream.QueueCapacity = DefaultQueueCapacity
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.IdleInterval == 0 {
		c.Stream.IdleInterval = DefaultIdleInterval
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.ClientRateLimit == 0 {
		c.Stream.ClientRateLimit = DefaultClientRateLimit
	}
	if c.Stream.ClientRateBurst == 0 {
		c.Stream.ClientRateBurst = DefaultClientRateBurst
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
