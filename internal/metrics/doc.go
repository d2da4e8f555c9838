// Package metrics provides Prometheus metrics for monitoring the relay.
//
// Key metrics:
//   - Upstream connection state, connects and reconnects
//   - Frames received, parse errors and commands sent
//   - Trades dispatched and events dropped on slow clients
//   - Connected clients and active symbols
//
// All methods are safe to call on a nil *Metrics.
package metrics
