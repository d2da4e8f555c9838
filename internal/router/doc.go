// Package router decodes provider frames and fans trades out to client queues.
//
// Trades are pushed only to sessions subscribed to the trade's symbol, so
// the cost of a frame is proportional to its subscribers. Heartbeat pings
// are answered with a pong and produce no events. Malformed frames are
// logged, counted and skipped.
package router
