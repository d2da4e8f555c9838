// Package model defines shared data types used across the price relay.
//
// Conventions:
//   - Symbols: uppercase, whitespace-trimmed tickers (see NormalizeSymbol)
//   - Timestamps: int64 milliseconds since Unix epoch (provider convention)
//   - Prices and quantities: float64, as delivered by the provider
//   - IDs: string for downstream clients, uuid.UUID for holdings and users
package model
