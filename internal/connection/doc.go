// Package connection implements the upstream connector.
//
// The Connector:
//   - Holds exactly one WebSocket connection to the price provider
//   - Resolves the endpoint on every attempt and idles while unconfigured
//   - Reconnects with exponential backoff (1s floor, 30s ceiling)
//   - Replays every active subscription after each successful connect
//   - Runs a sender and a receiver duty per connection; either failing ends both
//
// Commands are queued on an unbounded outbox so callers never block.
package connection
