package config

import (
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config is the root configuration for a relay instance.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DBConfig       `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig holds Finnhub settings.
type ProviderConfig struct {
	WSURL      string        `yaml:"ws_url"`
	RestURL    string        `yaml:"rest_url"`
	Token      string        `yaml:"token"`     // Takes precedence over TokenEnv
	TokenEnv   string        `yaml:"token_env"` // Env var read when Token is empty
	Source     string        `yaml:"source"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds relay engine settings.
type StreamConfig struct {
	QueueCapacity      int           `yaml:"queue_capacity"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	IdleInterval       time.Duration `yaml:"idle_interval"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	ClientRateLimit    float64       `yaml:"client_rate_limit"` // Control messages per second
	ClientRateBurst    int           `yaml:"client_rate_burst"`
}

// DBConfig holds the holdings database connection.
// An empty Host disables the database.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// IsEnabled reports whether metrics are served. Defaults to true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// APIToken returns the provider token, falling back to the TokenEnv variable.
func (p ProviderConfig) APIToken() string {
	if p.Token != "" {
		return p.Token
	}
	if p.TokenEnv != "" {
		return strings.TrimSpace(os.Getenv(p.TokenEnv))
	}
	return ""
}

// StreamURL builds the provider WebSocket URL with the token query
// parameter. ok is false when no token is available.
func (p ProviderConfig) StreamURL() (string, bool) {
	token := p.APIToken()
	if token == "" || p.WSURL == "" {
		return "", false
	}

	u, err := url.Parse(p.WSURL)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), true
}

// SlogLevel maps the configured level to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
