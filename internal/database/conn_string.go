package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/price-relay/internal/config"
)

// ApplicationName is reported to PostgreSQL for every connection.
const ApplicationName = "price-relay"

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	// URL-encode password to handle special characters
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		cfg.Name,
		sslMode,
		ApplicationName,
	)
}
