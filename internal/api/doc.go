// Package api provides the Finnhub REST client used for quotes, symbol
// search and daily close history.
//
// REST endpoint:
//   - https://finnhub.io/api/v1
//
// Requests authenticate with the X-Finnhub-Token header. Rate limit (429)
// and 5xx responses are retried with jittered exponential backoff.
package api
